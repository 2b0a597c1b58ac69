package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/tverho/mailchat-go/internal/config"
	"github.com/tverho/mailchat-go/internal/event"
	"github.com/tverho/mailchat-go/internal/store"
)

// fetchBatchSize bounds the channel buffer for one UID fetch.
const fetchBatchSize = 32

// imapClient is the production imapLink over emersion/go-imap.
type imapClient struct {
	c      *client.Client
	logger *slog.Logger
}

// dialIMAPReal connects, secures, and authenticates the IMAP link.
func (e *Engine) dialIMAPReal(ctx context.Context) (imapLink, error) {
	t := e.imapTransport()
	tlsCfg := &tls.Config{ServerName: t.host}

	var (
		c   *client.Client
		err error
	)

	if t.security == config.SecurityStartTLS {
		c, err = client.Dial(t.addr())
		if err != nil {
			return nil, fmt.Errorf("engine: imap dial %s: %w", t.addr(), err)
		}

		if err := c.StartTLS(tlsCfg); err != nil {
			_ = c.Logout()
			return nil, fmt.Errorf("engine: imap starttls %s: %w", t.addr(), err)
		}
	} else {
		c, err = client.DialTLS(t.addr(), tlsCfg)
		if err != nil {
			return nil, fmt.Errorf("engine: imap dial %s: %w", t.addr(), err)
		}
	}

	if err := e.loginIMAP(c, t); err != nil {
		_ = c.Logout()
		return nil, err
	}

	if _, err := c.Select("INBOX", false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("engine: imap select INBOX: %w", err)
	}

	return &imapClient{c: c, logger: e.logger}, nil
}

// loginIMAP authenticates with SASL when the server supports it for
// the configured mechanism, falling back to LOGIN for password auth.
func (e *Engine) loginIMAP(c *client.Client, t transport) error {
	if e.cfg.Account.Auth == config.AuthOAuth {
		mech, err := e.saslClient(t)
		if err != nil {
			return err
		}

		if err := c.Authenticate(mech); err != nil {
			return fmt.Errorf("engine: imap authenticate: %w", err)
		}

		return nil
	}

	if e.cfg.Password == "" {
		return fmt.Errorf("engine: no password for %s (set %s or the config key)",
			e.cfg.Addr, config.EnvPassword)
	}

	if err := c.Login(e.cfg.Addr.String(), e.cfg.Password); err != nil {
		return fmt.Errorf("engine: imap login: %w", err)
	}

	return nil
}

// FetchNew pulls unseen messages, marking them seen on the server so
// the next fetch starts after them.
func (l *imapClient) FetchNew(ctx context.Context) ([]incoming, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := l.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("engine: imap search: %w", err)
	}

	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, fetchBatchSize)
	done := make(chan error, 1)

	go func() {
		done <- l.c.UidFetch(seqset, items, ch)
	}()

	var msgs []incoming

	for msg := range ch {
		in, ok := l.decode(msg, section)
		if !ok {
			continue
		}

		msgs = append(msgs, in)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("engine: imap fetch: %w", err)
	}

	// Mark the batch seen only after a full decode pass, so a dropped
	// connection mid-fetch re-delivers rather than losing messages.
	flagItem := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := l.c.UidStore(seqset, flagItem, []interface{}{imap.SeenFlag}, nil); err != nil {
		return nil, fmt.Errorf("engine: imap store seen: %w", err)
	}

	return msgs, nil
}

// decode reduces one fetched message to the incoming shape. Messages
// without an envelope or sender are skipped with a log line.
func (l *imapClient) decode(msg *imap.Message, section *imap.BodySectionName) (incoming, bool) {
	env := msg.Envelope
	if env == nil || len(env.From) == 0 {
		l.logger.Warn("imap: skipping message without envelope", slog.Uint64("uid", uint64(msg.Uid)))

		return incoming{}, false
	}

	in := incoming{
		msgID: env.MessageId,
		from:  env.From[0].Address(),
		time:  env.Date,
	}

	if in.time.IsZero() {
		in.time = time.Now()
	}

	if body := msg.GetBody(section); body != nil {
		raw, err := io.ReadAll(body)
		if err != nil {
			l.logger.Warn("imap: reading body", slog.Uint64("uid", uint64(msg.Uid)), slog.String("error", err.Error()))
		} else {
			in.body = textAfterHeaders(string(raw))
		}
	}

	return in, true
}

// textAfterHeaders returns the message text following the header
// block. Multipart decoding is out of scope; chat peers send plain
// text bodies.
func textAfterHeaders(raw string) string {
	if _, body, ok := strings.Cut(raw, "\r\n\r\n"); ok {
		return strings.TrimSpace(body)
	}

	if _, body, ok := strings.Cut(raw, "\n\n"); ok {
		return strings.TrimSpace(body)
	}

	return strings.TrimSpace(raw)
}

// Wait idles on the server until news arrives, wake fires, or poll
// elapses. Servers without IDLE are handled by go-imap's built-in
// polling fallback.
func (l *imapClient) Wait(ctx context.Context, wake <-chan struct{}, poll time.Duration) error {
	stop := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- l.c.Idle(stop, nil)
	}()

	timer := time.NewTimer(poll)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		close(stop)
		<-done

		return ctx.Err()
	case <-wake:
		close(stop)

		return <-done
	case <-timer.C:
		close(stop)

		return <-done
	case err := <-done:
		return err
	}
}

// Close logs out of the server.
func (l *imapClient) Close() error {
	return l.c.Logout()
}

// imapLoop keeps the receive link alive: fetch new mail, store it,
// announce it, idle, repeat. Reconnects with backoff on link failure.
func (e *Engine) imapLoop(ctx context.Context) error {
	backoff := reconnectInitBackoff

	for {
		if ctx.Err() != nil {
			return nil
		}

		link, err := e.dialIMAP(ctx)
		if err != nil {
			e.emit(event.New(event.Warning, nil, err.Error()))
			e.logger.Warn("imap connect failed", slog.String("error", err.Error()), slog.Duration("backoff", backoff))

			if sleep(ctx, backoff) != nil {
				return nil
			}

			backoff = nextBackoff(backoff)

			continue
		}

		backoff = reconnectInitBackoff

		e.emit(event.New(event.IMAPConnected, nil, nil))
		e.emit(event.New(event.ConnectivityChanged, nil, "online"))

		err = e.receiveUntilBroken(ctx, link)
		_ = link.Close()

		e.emit(event.New(event.ConnectivityChanged, nil, "offline"))

		if err == nil || ctx.Err() != nil {
			return nil
		}

		e.logger.Warn("imap link broken", slog.String("error", err.Error()))
	}
}

// receiveUntilBroken runs the fetch/idle cycle until the link errors
// or ctx ends. A nil return means clean shutdown.
func (e *Engine) receiveUntilBroken(ctx context.Context, link imapLink) error {
	for {
		msgs, err := link.FetchNew(ctx)
		if err != nil {
			return err
		}

		for _, in := range msgs {
			if err := e.storeIncoming(ctx, in); err != nil {
				e.emit(event.New(event.Error, nil, err.Error()))
			}
		}

		if err := link.Wait(ctx, e.wakeFetch, e.cfg.PollInterval); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// storeIncoming records one received message and announces it.
func (e *Engine) storeIncoming(ctx context.Context, in incoming) error {
	sender, err := parseSender(in.from)
	if err != nil {
		return fmt.Errorf("engine: incoming sender %q: %w", in.from, err)
	}

	contactID, err := e.store.UpsertContact(ctx, sender, "")
	if err != nil {
		return err
	}

	chatID, err := e.store.ChatWithContact(ctx, contactID)
	if err != nil {
		return err
	}

	msgID, inserted, err := e.store.ImportMessage(ctx, store.Message{
		RFCMsgID:  rfcMsgIDOrSynthetic(in.msgID, sender),
		ChatID:    chatID,
		From:      sender,
		Direction: store.DirectionIn,
		State:     store.StateFresh,
		Body:      in.body,
		Time:      in.time,
	})
	if err != nil {
		return err
	}

	if inserted {
		e.emit(event.New(event.IncomingMsg, chatID, msgID))
	}

	return nil
}
