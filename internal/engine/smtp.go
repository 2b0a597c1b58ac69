package engine

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emersion/go-smtp"

	"github.com/tverho/mailchat-go/internal/config"
	"github.com/tverho/mailchat-go/internal/event"
	"github.com/tverho/mailchat-go/internal/store"
	"github.com/tverho/mailchat-go/pkg/waitq"
)

// smtpClient is the production smtpLink over emersion/go-smtp.
type smtpClient struct {
	c *smtp.Client
}

// dialSMTPReal connects, secures, and authenticates the SMTP link.
func (e *Engine) dialSMTPReal(ctx context.Context) (smtpLink, error) {
	t := e.smtpTransport()
	tlsCfg := &tls.Config{ServerName: t.host}

	var (
		c   *smtp.Client
		err error
	)

	if t.security == config.SecurityStartTLS {
		c, err = smtp.DialStartTLS(t.addr(), tlsCfg)
	} else {
		c, err = smtp.DialTLS(t.addr(), tlsCfg)
	}

	if err != nil {
		return nil, fmt.Errorf("engine: smtp dial %s: %w", t.addr(), err)
	}

	mech, err := e.saslClient(t)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	if err := c.Auth(mech); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("engine: smtp auth: %w", err)
	}

	return &smtpClient{c: c}, nil
}

// Submit sends one raw RFC 5322 message.
func (l *smtpClient) Submit(from, to string, raw []byte) error {
	if err := l.c.SendMail(from, []string{to}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("engine: smtp submit: %w", err)
	}

	return nil
}

// Close quits the SMTP session.
func (l *smtpClient) Close() error {
	return l.c.Quit()
}

// smtpLoop drains the outbox queue, connecting lazily and reconnecting
// with backoff. The queue receive is bounded so shutdown is prompt.
func (e *Engine) smtpLoop(ctx context.Context) error {
	var link smtpLink

	defer func() {
		if link != nil {
			_ = link.Close()
		}
	}()

	backoff := reconnectInitBackoff

	for {
		msgID, err := e.outbox.Get(outboxPollInterval)
		if err != nil {
			if errors.Is(err, waitq.ErrTimedOut) {
				if ctx.Err() != nil {
					return nil
				}

				continue
			}

			return err
		}

		if link == nil {
			link, err = e.dialSMTP(ctx)
			if err != nil {
				e.emit(event.New(event.Warning, nil, err.Error()))
				e.logger.Warn("smtp connect failed", slog.String("error", err.Error()), slog.Duration("backoff", backoff))

				// Requeue and back off; the message stays pending.
				e.outbox.Put(msgID)

				if sleep(ctx, backoff) != nil {
					return nil
				}

				backoff = nextBackoff(backoff)

				continue
			}

			backoff = reconnectInitBackoff

			e.emit(event.New(event.SMTPConnected, nil, nil))
		}

		if err := e.submitOne(ctx, link, msgID); err != nil {
			// Link-level failure: drop the connection and retry the
			// message on a fresh one.
			_ = link.Close()
			link = nil

			e.outbox.Put(msgID)
			e.logger.Warn("smtp submit failed", slog.Int64("msg_id", msgID), slog.String("error", err.Error()))

			if sleep(ctx, backoff) != nil {
				return nil
			}

			backoff = nextBackoff(backoff)
		}
	}
}

// submitOne loads, composes, and submits one pending message, then
// records the delivery.
func (e *Engine) submitOne(ctx context.Context, link smtpLink, msgID int64) error {
	m, err := e.store.MessageByID(ctx, msgID)
	if err != nil {
		return err
	}

	if m == nil || m.State != store.StatePending {
		// Already handled (or removed); nothing to submit.
		return nil
	}

	to, err := e.peerOfChat(ctx, m.ChatID)
	if err != nil {
		return err
	}

	raw := composeRFC822(e.cfg.Addr.String(), to.String(), m.RFCMsgID, m.Body, m.Time)

	if err := link.Submit(e.cfg.Addr.String(), to.String(), raw); err != nil {
		return err
	}

	if err := e.store.SetMessageState(ctx, msgID, store.StateDelivered); err != nil {
		return err
	}

	e.emit(event.New(event.MsgDelivered, m.ChatID, msgID))

	return nil
}

// FlushOutbox submits every queued message on a dedicated connection.
// Used by one-shot commands that cannot rely on a running daemon.
// Returns the count submitted.
func (e *Engine) FlushOutbox(ctx context.Context) (int, error) {
	var link smtpLink

	defer func() {
		if link != nil {
			_ = link.Close()
		}
	}()

	sent := 0

	for {
		msgID, ok := e.outbox.TryGet()
		if !ok {
			return sent, nil
		}

		if link == nil {
			var err error

			link, err = e.dialSMTP(ctx)
			if err != nil {
				e.outbox.Put(msgID)

				return sent, err
			}

			e.emit(event.New(event.SMTPConnected, nil, nil))
		}

		if err := e.submitOne(ctx, link, msgID); err != nil {
			if stateErr := e.store.SetMessageState(ctx, msgID, store.StateFailed); stateErr != nil {
				e.logger.Error("marking message failed", slog.Int64("msg_id", msgID), slog.String("error", stateErr.Error()))
			}

			return sent, err
		}

		sent++
	}
}
