package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tverho/mailchat-go/internal/addr"
)

// settleDelay gives writers time to finish a file after the create
// event before the file is read and sent.
const settleDelay = 200 * time.Millisecond

// outboxLoop watches the account's outbox directory, when one is
// configured. A text file dropped there names its recipient on the
// first line ("To: alice@example.org"); the remainder is the message
// body. Successfully queued files are removed. Files that cannot be
// parsed are renamed with a ".rejected" suffix so they are inspected
// rather than retried forever.
func (e *Engine) outboxLoop(ctx context.Context) error {
	dir := e.cfg.Account.OutboxDir
	if dir == "" {
		<-ctx.Done()

		return nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("engine: creating outbox dir %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("engine: creating outbox watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("engine: watching outbox dir %s: %w", dir, err)
	}

	// Pick up files dropped before the watch started.
	e.scanOutbox(ctx, dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case fsEvent, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !fsEvent.Has(fsnotify.Create) && !fsEvent.Has(fsnotify.Write) {
				continue
			}

			if !strings.HasSuffix(fsEvent.Name, ".txt") {
				continue
			}

			if sleep(ctx, settleDelay) != nil {
				return nil
			}

			e.processOutboxFile(ctx, fsEvent.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			e.logger.Warn("outbox watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// scanOutbox queues every .txt file already present in dir.
func (e *Engine) scanOutbox(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		e.logger.Warn("scanning outbox dir", slog.String("error", err.Error()))

		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		e.processOutboxFile(ctx, filepath.Join(dir, entry.Name()))
	}
}

// processOutboxFile parses and queues one dropped file.
func (e *Engine) processOutboxFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			e.logger.Warn("reading outbox file", slog.String("path", path), slog.String("error", err.Error()))
		}

		return
	}

	to, body, err := parseOutboxFile(string(data))
	if err != nil {
		e.logger.Warn("rejecting outbox file", slog.String("path", path), slog.String("error", err.Error()))

		if renameErr := os.Rename(path, path+".rejected"); renameErr != nil {
			e.logger.Error("renaming rejected outbox file", slog.String("error", renameErr.Error()))
		}

		return
	}

	if _, err := e.SendText(ctx, to, body); err != nil {
		e.logger.Error("queueing outbox file", slog.String("path", path), slog.String("error", err.Error()))

		return
	}

	if err := os.Remove(path); err != nil {
		e.logger.Warn("removing queued outbox file", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// parseOutboxFile splits a dropped file into recipient and body.
func parseOutboxFile(content string) (addr.Addr, string, error) {
	first, rest, _ := strings.Cut(content, "\n")

	to, ok := strings.CutPrefix(strings.TrimSpace(first), "To:")
	if !ok {
		return addr.Addr{}, "", fmt.Errorf("first line must be \"To: <address>\"")
	}

	recipient, err := addr.Parse(to)
	if err != nil {
		return addr.Addr{}, "", err
	}

	body := strings.TrimSpace(rest)
	if body == "" {
		return addr.Addr{}, "", fmt.Errorf("empty message body")
	}

	return recipient, body, nil
}
