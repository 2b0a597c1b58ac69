package track

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tverho/mailchat-go/internal/event"
	"github.com/tverho/mailchat-go/pkg/waitq"
)

// DefaultConfigureTimeout bounds WaitFinish when the caller supplies no
// timeout. Configuration probes two transport links with their own
// network timeouts, so this is deliberately generous.
const DefaultConfigureTimeout = 5 * time.Minute

// ConfigureFailedError reports that the engine completed configuration
// unsuccessfully. Log holds every event observed during the operation,
// in emission order, for post-mortem diagnosis.
type ConfigureFailedError struct {
	Log []event.Event
}

func (e *ConfigureFailedError) Error() string {
	lines := make([]string, len(e.Log))
	for i, ev := range e.Log {
		lines[i] = ev.String()
	}

	return fmt.Sprintf("configure failed:\n%s", strings.Join(lines, "\n"))
}

// ConfigureTracker observes one account configuration operation. It
// records every event for diagnostics, exposes the SMTP and IMAP
// link milestones as independently waitable latches, and resolves
// WaitFinish when the engine delivers its one-shot completion signal.
type ConfigureTracker struct {
	completed *waitq.Queue[bool]
	smtpUp    *waitq.Latch
	imapUp    *waitq.Latch

	mu  sync.Mutex
	log []event.Event
}

// NewConfigureTracker returns a tracker ready for registration.
func NewConfigureTracker() *ConfigureTracker {
	return &ConfigureTracker{
		completed: waitq.NewQueue[bool](),
		smtpUp:    waitq.NewLatch(),
		imapUp:    waitq.NewLatch(),
	}
}

// HandleEvent implements event.Sink. Every event is appended to the
// diagnostic log; link-established events additionally set the
// matching milestone latch. Never blocks.
func (t *ConfigureTracker) HandleEvent(ev event.Event) {
	t.mu.Lock()
	t.log = append(t.log, ev)
	t.mu.Unlock()

	switch ev.Type {
	case event.SMTPConnected:
		t.smtpUp.Set()
	case event.IMAPConnected:
		t.imapUp.Set()
	}
}

// ConfigureCompleted implements event.CompletionSink. The engine calls
// it exactly once at the end of the configure operation.
func (t *ConfigureTracker) ConfigureCompleted(success bool) {
	t.completed.Put(success)
}

// WaitSMTPConnected blocks until the SMTP link milestone is reached or
// ctx is canceled.
func (t *ConfigureTracker) WaitSMTPConnected(ctx context.Context) error {
	return t.smtpUp.Wait(ctx)
}

// WaitIMAPConnected blocks until the IMAP link milestone is reached or
// ctx is canceled.
func (t *ConfigureTracker) WaitIMAPConnected(ctx context.Context) error {
	return t.imapUp.Wait(ctx)
}

// Log returns a snapshot of the events observed so far, in order.
func (t *ConfigureTracker) Log() []event.Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]event.Event, len(t.log))
	copy(out, t.log)

	return out
}

// WaitFinish blocks until the engine signals completion. Returns nil
// on success, *ConfigureFailedError (carrying the full event log) on
// explicit failure, and waitq.ErrTimedOut when no completion signal
// arrives within timeout. A non-positive timeout falls back to
// DefaultConfigureTimeout.
func (t *ConfigureTracker) WaitFinish(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultConfigureTimeout
	}

	success, err := t.completed.Get(timeout)
	if err != nil {
		return err
	}

	if !success {
		return &ConfigureFailedError{Log: t.Log()}
	}

	return nil
}
