// Package engine drives one mailchat account: it owns the account
// store, maintains the IMAP and SMTP links, and reports everything it
// does as events fanned out to registered sinks. Long-running
// operations (configure, backup export/import) run on engine
// goroutines and signal completion through the event stream, so
// callers observe them with the trackers in internal/track rather than
// by blocking on the engine itself.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tverho/mailchat-go/internal/config"
	"github.com/tverho/mailchat-go/internal/event"
	"github.com/tverho/mailchat-go/internal/store"
	"github.com/tverho/mailchat-go/pkg/waitq"
)

// reconnectBackoff paces link reconnection attempts in Run.
const (
	reconnectInitBackoff = 2 * time.Second
	reconnectMaxBackoff  = 2 * time.Minute
)

// outboxPollInterval bounds each wait for the next queued outgoing
// message, so the submit loop notices context cancellation promptly.
const outboxPollInterval = time.Second

// Engine is the per-account core. All exported methods are safe for
// concurrent use.
type Engine struct {
	cfg    *config.ResolvedAccount
	store  *store.Store
	logger *slog.Logger

	mu    sync.RWMutex
	sinks []event.Sink

	// outbox carries IDs of messages awaiting SMTP submission.
	outbox *waitq.Queue[int64]

	// wakeFetch is poked by the push listener (and tests) to cut the
	// idle wait short. Buffered so wakers never block.
	wakeFetch chan struct{}

	// Link dialers, replaceable in tests.
	dialIMAP func(ctx context.Context) (imapLink, error)
	dialSMTP func(ctx context.Context) (smtpLink, error)
}

// New creates an engine for one resolved account.
func New(cfg *config.ResolvedAccount, st *store.Store, logger *slog.Logger) *Engine {
	e := &Engine{
		cfg:       cfg,
		store:     st,
		logger:    logger,
		outbox:    waitq.NewQueue[int64](),
		wakeFetch: make(chan struct{}, 1),
	}

	e.dialIMAP = e.dialIMAPReal
	e.dialSMTP = e.dialSMTPReal

	return e
}

// Store exposes the account store for read-side CLI commands.
func (e *Engine) Store() *store.Store {
	return e.store
}

// AddSink registers a sink for all subsequent events.
func (e *Engine) AddSink(s event.Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sinks = append(e.sinks, s)
}

// RemoveSink unregisters a previously added sink. Sinks meant for
// removal must be comparable types (trackers are pointers); SinkFunc
// values cannot be matched for removal.
func (e *Engine) RemoveSink(s event.Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, existing := range e.sinks {
		if existing == s {
			e.sinks = append(e.sinks[:i], e.sinks[i+1:]...)

			return
		}
	}
}

// emit delivers one event to every registered sink, synchronously and
// in registration order. A panicking sink is logged and skipped; it
// must not take down the I/O goroutine the emit runs on.
func (e *Engine) emit(ev event.Event) {
	e.mu.RLock()
	sinks := make([]event.Sink, len(e.sinks))
	copy(sinks, e.sinks)
	e.mu.RUnlock()

	for _, s := range sinks {
		e.deliver(s, ev)
	}
}

func (e *Engine) deliver(s event.Sink, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event sink panicked",
				slog.String("type", string(ev.Type)),
				slog.Any("panic", r),
			)
		}
	}()

	s.HandleEvent(ev)
}

// completeConfigure delivers the one-shot configure completion signal
// to every sink that opted in.
func (e *Engine) completeConfigure(success bool) {
	e.mu.RLock()
	sinks := make([]event.Sink, len(e.sinks))
	copy(sinks, e.sinks)
	e.mu.RUnlock()

	for _, s := range sinks {
		if cs, ok := s.(event.CompletionSink); ok {
			cs.ConfigureCompleted(success)
		}
	}
}

// WakeFetch nudges the IMAP loop to fetch immediately instead of
// waiting out its idle interval. Never blocks.
func (e *Engine) WakeFetch() {
	select {
	case e.wakeFetch <- struct{}{}:
	default:
	}
}

// Run starts the account's I/O loops — IMAP fetch/idle, SMTP submit,
// websocket push, outbox directory watch — and blocks until ctx is
// canceled or a loop fails fatally. The loops mirror the per-account
// worker threads of the classic messaging-client design: each one is
// an event producer that must never be blocked by a consumer.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return e.imapLoop(ctx) })
	g.Go(func() error { return e.smtpLoop(ctx) })
	g.Go(func() error { return e.pushLoop(ctx) })
	g.Go(func() error { return e.outboxLoop(ctx) })

	return g.Wait()
}

// sleep waits for d or context cancellation, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// nextBackoff doubles the delay up to the cap.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > reconnectMaxBackoff {
		return reconnectMaxBackoff
	}

	return d
}
