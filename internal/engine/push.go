package engine

import (
	"context"
	"log/slog"

	"github.com/coder/websocket"
)

// pushLoop maintains a websocket subscription to the account's notify
// endpoint, when one is configured. Every message on the socket is an
// opaque "new mail" hint that cuts the IMAP idle wait short; the
// payload is deliberately ignored so the server controls nothing
// beyond timing. Reconnects with backoff.
func (e *Engine) pushLoop(ctx context.Context) error {
	url := e.cfg.Account.NotifyURL
	if url == "" {
		<-ctx.Done()

		return nil
	}

	backoff := reconnectInitBackoff

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			e.logger.Warn("push connect failed",
				slog.String("url", url),
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff),
			)

			if sleep(ctx, backoff) != nil {
				return nil
			}

			backoff = nextBackoff(backoff)

			continue
		}

		backoff = reconnectInitBackoff

		e.logger.Info("push notifications connected", slog.String("url", url))

		e.readPushes(ctx, conn)

		_ = conn.Close(websocket.StatusNormalClosure, "shutting down")

		if ctx.Err() != nil {
			return nil
		}
	}
}

// readPushes wakes the fetch loop for every socket message until the
// connection breaks or ctx ends.
func (e *Engine) readPushes(ctx context.Context, conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			if ctx.Err() == nil {
				e.logger.Warn("push connection lost", slog.String("error", err.Error()))
			}

			return
		}

		e.WakeFetch()
	}
}
