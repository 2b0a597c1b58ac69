// Package store persists mailchat account state — contacts, chats,
// messages, and engine config — in an embedded SQLite database with
// WAL mode. One database per account.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// walJournalSizeLimit caps the WAL journal at 64 MiB.
const walJournalSizeLimit = 67108864

// Store wraps the account database with prepared statements for the
// hot paths. Safe for concurrent use; SQLite serializes writers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	contactStmts contactStatements
	chatStmts    chatStatements
	msgStmts     messageStatements
	configStmts  configStatements
}

// Statement groups, by domain.
type contactStatements struct {
	upsert, byAddr, list *sql.Stmt
}

type chatStatements struct {
	byContact, create, list *sql.Stmt
}

type messageStatements struct {
	insert, insertIgnore, byID, listByChat, setState *sql.Stmt
}

type configStatements struct {
	get, set *sql.Stmt
}

// Open creates a Store backed by the database at dbPath, applying
// migrations and preparing statements. Use ":memory:" for tests.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	logger.Debug("opening account database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	ctx := context.Background()

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare statements: %w", err)
	}

	return s, nil
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("store: %s: %w", p, err)
		}
	}

	return nil
}

// prepareStatements readies the repeated queries.
func (s *Store) prepareStatements(ctx context.Context) error {
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.contactStmts.upsert, `
			INSERT INTO contacts (addr, display_name) VALUES (?, ?)
			ON CONFLICT(addr) DO UPDATE SET
				display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE contacts.display_name END
			RETURNING id`},
		{&s.contactStmts.byAddr, `SELECT id, addr, display_name FROM contacts WHERE addr = ?`},
		{&s.contactStmts.list, `SELECT id, addr, display_name FROM contacts ORDER BY addr`},

		{&s.chatStmts.byContact, `SELECT id FROM chats WHERE contact_id = ?`},
		{&s.chatStmts.create, `INSERT INTO chats (contact_id, created_at) VALUES (?, ?) RETURNING id`},
		{&s.chatStmts.list, `
			SELECT c.id, ct.addr, ct.display_name,
			       COUNT(m.id), COALESCE(MAX(m.ts), c.created_at)
			FROM chats c
			JOIN contacts ct ON ct.id = c.contact_id
			LEFT JOIN messages m ON m.chat_id = c.id
			GROUP BY c.id
			ORDER BY COALESCE(MAX(m.ts), c.created_at) DESC`},

		{&s.msgStmts.insert, `
			INSERT INTO messages (rfc_msgid, chat_id, from_addr, direction, state, body, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`},
		{&s.msgStmts.insertIgnore, `
			INSERT INTO messages (rfc_msgid, chat_id, from_addr, direction, state, body, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(rfc_msgid) DO NOTHING
			RETURNING id`},
		{&s.msgStmts.byID, `
			SELECT id, rfc_msgid, chat_id, from_addr, direction, state, body, ts
			FROM messages WHERE id = ?`},
		{&s.msgStmts.listByChat, `
			SELECT id, rfc_msgid, chat_id, from_addr, direction, state, body, ts
			FROM messages WHERE chat_id = ? ORDER BY ts, id`},
		{&s.msgStmts.setState, `UPDATE messages SET state = ? WHERE id = ?`},

		{&s.configStmts.get, `SELECT value FROM config WHERE key = ?`},
		{&s.configStmts.set, `
			INSERT INTO config (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`},
	}

	for _, st := range stmts {
		prepared, err := s.db.PrepareContext(ctx, st.query)
		if err != nil {
			return fmt.Errorf("preparing %q: %w", st.query, err)
		}

		*st.dst = prepared
	}

	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetConfig returns the value for key, or "" when unset.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string

	err := s.configStmts.get.QueryRowContext(ctx, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("store: get config %q: %w", key, err)
	}

	return value, nil
}

// SetConfig stores a key/value pair, replacing any previous value.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	if _, err := s.configStmts.set.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("store: set config %q: %w", key, err)
	}

	return nil
}

// BackupTo writes a consistent snapshot of the database to path using
// VACUUM INTO. The destination must not exist.
func (s *Store) BackupTo(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("store: backup to %s: %w", path, err)
	}

	return nil
}
