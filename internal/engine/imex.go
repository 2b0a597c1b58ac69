package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/google/uuid"

	"github.com/tverho/mailchat-go/internal/event"
	"github.com/tverho/mailchat-go/internal/store"
)

// Imex progress milestones, in permille.
const (
	imexStarted   = 10
	imexDBDone    = 400
	imexMboxDone  = 800
	imexMergeStep = 500
)

// backupDirPerms is used when creating the export target directory.
const backupDirPerms = 0o700

// ExportBackup starts an asynchronous export into dir: a consistent
// SQLite snapshot plus an mbox archive of every stored message. Each
// written file is announced with an ImexFileWritten event; callers
// observe the operation with a track.ImexTracker registered as a sink
// before the call.
func (e *Engine) ExportBackup(ctx context.Context, dir string) {
	go e.exportBackup(ctx, dir)
}

func (e *Engine) exportBackup(ctx context.Context, dir string) {
	if err := e.runExport(ctx, dir); err != nil {
		e.logger.Error("export failed", slog.String("error", err.Error()))
		e.emit(event.New(event.Error, nil, err.Error()))
		e.emit(event.New(event.ImexProgress, event.ProgressFailed, nil))

		return
	}

	e.emit(event.New(event.ImexProgress, event.ProgressSuccess, nil))
}

func (e *Engine) runExport(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, backupDirPerms); err != nil {
		return fmt.Errorf("engine: creating export dir %s: %w", dir, err)
	}

	e.emit(event.New(event.ImexProgress, imexStarted, nil))

	stamp := fmt.Sprintf("%s-%s", time.Now().Format("2006-01-02"), uuid.NewString()[:8])

	dbPath := filepath.Join(dir, fmt.Sprintf("mailchat-backup-%s.db", stamp))
	if err := e.store.BackupTo(ctx, dbPath); err != nil {
		return err
	}

	e.emit(event.New(event.ImexFileWritten, dbPath, nil))
	e.emit(event.New(event.ImexProgress, imexDBDone, nil))

	mboxPath := filepath.Join(dir, fmt.Sprintf("mailchat-messages-%s.mbox", stamp))
	if err := e.exportMbox(ctx, mboxPath); err != nil {
		return err
	}

	e.emit(event.New(event.ImexFileWritten, mboxPath, nil))
	e.emit(event.New(event.ImexProgress, imexMboxDone, nil))

	return nil
}

// exportMbox writes every stored message as an mbox archive, one
// RFC 5322 document per message in chat order.
func (e *Engine) exportMbox(ctx context.Context, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("engine: creating mbox %s: %w", path, err)
	}
	defer f.Close()

	w := mbox.NewWriter(f)

	chats, err := e.store.ListChats(ctx)
	if err != nil {
		return err
	}

	for _, chat := range chats {
		msgs, err := e.store.ListMessages(ctx, chat.ID)
		if err != nil {
			return err
		}

		for _, m := range msgs {
			to := chat.Peer.String()
			if m.Direction == store.DirectionIn {
				to = e.cfg.Addr.String()
			}

			mw, err := w.CreateMessage(m.From.String(), m.Time)
			if err != nil {
				return fmt.Errorf("engine: mbox message %s: %w", m.RFCMsgID, err)
			}

			raw := composeRFC822(m.From.String(), to, m.RFCMsgID, m.Body, m.Time)
			if _, err := mw.Write(raw); err != nil {
				return fmt.Errorf("engine: writing mbox message %s: %w", m.RFCMsgID, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("engine: closing mbox: %w", err)
	}

	return f.Sync()
}

// ImportBackup starts an asynchronous merge of a backup snapshot
// (produced by ExportBackup) into the live store. Messages already
// present — matched by RFC 5322 Message-ID — are skipped.
func (e *Engine) ImportBackup(ctx context.Context, file string) {
	go e.importBackup(ctx, file)
}

func (e *Engine) importBackup(ctx context.Context, file string) {
	if err := e.runImport(ctx, file); err != nil {
		e.logger.Error("import failed", slog.String("error", err.Error()))
		e.emit(event.New(event.Error, nil, err.Error()))
		e.emit(event.New(event.ImexProgress, event.ProgressFailed, nil))

		return
	}

	e.emit(event.New(event.MsgsChanged, int64(0), int64(0)))
	e.emit(event.New(event.ImexProgress, event.ProgressSuccess, nil))
}

func (e *Engine) runImport(ctx context.Context, file string) error {
	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("engine: backup file: %w", err)
	}

	e.emit(event.New(event.ImexProgress, imexStarted, nil))

	backup, err := store.Open(file, e.logger)
	if err != nil {
		return fmt.Errorf("engine: opening backup: %w", err)
	}
	defer backup.Close()

	chats, err := backup.ListChats(ctx)
	if err != nil {
		return err
	}

	e.emit(event.New(event.ImexProgress, imexMergeStep, nil))

	imported := 0

	for _, chat := range chats {
		contactID, err := e.store.UpsertContact(ctx, chat.Peer, chat.DisplayName)
		if err != nil {
			return err
		}

		chatID, err := e.store.ChatWithContact(ctx, contactID)
		if err != nil {
			return err
		}

		msgs, err := backup.ListMessages(ctx, chat.ID)
		if err != nil {
			return err
		}

		for _, m := range msgs {
			m.ChatID = chatID

			_, inserted, err := e.store.ImportMessage(ctx, m)
			if err != nil {
				return err
			}

			if inserted {
				imported++
			}
		}
	}

	e.emit(event.New(event.Info, nil, fmt.Sprintf("imported %d messages from %s", imported, file)))

	return nil
}
