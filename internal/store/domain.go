package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tverho/mailchat-go/internal/addr"
)

// Message direction constants.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Message state constants. Incoming messages move fresh -> seen;
// outgoing messages move pending -> delivered or failed.
const (
	StateFresh     = "fresh"
	StateSeen      = "seen"
	StatePending   = "pending"
	StateDelivered = "delivered"
	StateFailed    = "failed"
)

// Contact is one row of the contacts table.
type Contact struct {
	ID          int64
	Addr        addr.Addr
	DisplayName string
}

// ChatInfo is one row of the chat list: the chat, its peer, and
// aggregate message facts.
type ChatInfo struct {
	ID          int64
	Peer        addr.Addr
	DisplayName string
	MsgCount    int64
	LastMsgTime time.Time
}

// Message is one row of the messages table.
type Message struct {
	ID        int64
	RFCMsgID  string
	ChatID    int64
	From      addr.Addr
	Direction string
	State     string
	Body      string
	Time      time.Time
}

// UpsertContact inserts or updates a contact and returns its row ID.
// An empty display name never overwrites a stored one.
func (s *Store) UpsertContact(ctx context.Context, a addr.Addr, displayName string) (int64, error) {
	var id int64

	err := s.contactStmts.upsert.QueryRowContext(ctx, a.String(), addr.NormalizeName(displayName)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: upsert contact %s: %w", a, err)
	}

	return id, nil
}

// ContactByAddr looks up a contact. Returns (nil, nil) when absent.
func (s *Store) ContactByAddr(ctx context.Context, a addr.Addr) (*Contact, error) {
	var (
		c   Contact
		raw string
	)

	err := s.contactStmts.byAddr.QueryRowContext(ctx, a.String()).Scan(&c.ID, &raw, &c.DisplayName)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("store: contact by addr %s: %w", a, err)
	}

	c.Addr, err = addr.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("store: stored contact addr %q: %w", raw, err)
	}

	return &c, nil
}

// ListContacts returns all contacts ordered by address.
func (s *Store) ListContacts(ctx context.Context) ([]Contact, error) {
	rows, err := s.contactStmts.list.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []Contact

	for rows.Next() {
		var (
			c   Contact
			raw string
		)

		if err := rows.Scan(&c.ID, &raw, &c.DisplayName); err != nil {
			return nil, fmt.Errorf("store: scanning contact: %w", err)
		}

		c.Addr, err = addr.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("store: stored contact addr %q: %w", raw, err)
		}

		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}

// ChatWithContact returns the 1:1 chat for a contact, creating it on
// first use.
func (s *Store) ChatWithContact(ctx context.Context, contactID int64) (int64, error) {
	var id int64

	err := s.chatStmts.byContact.QueryRowContext(ctx, contactID).Scan(&id)
	if err == nil {
		return id, nil
	}

	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("store: chat by contact %d: %w", contactID, err)
	}

	err = s.chatStmts.create.QueryRowContext(ctx, contactID, time.Now().Unix()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: create chat for contact %d: %w", contactID, err)
	}

	return id, nil
}

// ListChats returns every chat with its peer and aggregates, most
// recently active first.
func (s *Store) ListChats(ctx context.Context) ([]ChatInfo, error) {
	rows, err := s.chatStmts.list.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list chats: %w", err)
	}
	defer rows.Close()

	var chats []ChatInfo

	for rows.Next() {
		var (
			ci   ChatInfo
			raw  string
			last int64
		)

		if err := rows.Scan(&ci.ID, &raw, &ci.DisplayName, &ci.MsgCount, &last); err != nil {
			return nil, fmt.Errorf("store: scanning chat: %w", err)
		}

		ci.Peer, err = addr.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("store: stored peer addr %q: %w", raw, err)
		}

		ci.LastMsgTime = time.Unix(last, 0)

		chats = append(chats, ci)
	}

	return chats, rows.Err()
}

// AddMessage inserts a message row and returns its ID.
func (s *Store) AddMessage(ctx context.Context, m Message) (int64, error) {
	var id int64

	err := s.msgStmts.insert.QueryRowContext(ctx,
		m.RFCMsgID, m.ChatID, m.From.String(), m.Direction, m.State, m.Body, m.Time.Unix(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: add message %s: %w", m.RFCMsgID, err)
	}

	return id, nil
}

// ImportMessage inserts a message unless one with the same RFC 5322
// Message-ID already exists. Reports whether a row was inserted; the
// returned ID is zero when the message was a duplicate. Used by the
// IMAP fetch path and backup import, both of which may see a message
// twice.
func (s *Store) ImportMessage(ctx context.Context, m Message) (int64, bool, error) {
	var id int64

	err := s.msgStmts.insertIgnore.QueryRowContext(ctx,
		m.RFCMsgID, m.ChatID, m.From.String(), m.Direction, m.State, m.Body, m.Time.Unix(),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("store: import message %s: %w", m.RFCMsgID, err)
	}

	return id, true, nil
}

// MessageByID returns one message. Returns (nil, nil) when absent.
func (s *Store) MessageByID(ctx context.Context, id int64) (*Message, error) {
	row := s.msgStmts.byID.QueryRowContext(ctx, id)

	m, err := scanMessage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("store: message %d: %w", id, err)
	}

	return m, nil
}

// ListMessages returns a chat's messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, chatID int64) ([]Message, error) {
	rows, err := s.msgStmts.listByChat.QueryContext(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("store: list messages for chat %d: %w", chatID, err)
	}
	defer rows.Close()

	var msgs []Message

	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("store: scanning message: %w", err)
		}

		msgs = append(msgs, *m)
	}

	return msgs, rows.Err()
}

// SetMessageState transitions one message's state.
func (s *Store) SetMessageState(ctx context.Context, id int64, state string) error {
	if _, err := s.msgStmts.setState.ExecContext(ctx, state, id); err != nil {
		return fmt.Errorf("store: set message %d state %s: %w", id, state, err)
	}

	return nil
}

// scanMessage reads one message row via the given Scan function, so it
// serves both QueryRow and Rows.
func scanMessage(scan func(dest ...any) error) (*Message, error) {
	var (
		m   Message
		raw string
		ts  int64
	)

	err := scan(&m.ID, &m.RFCMsgID, &m.ChatID, &raw, &m.Direction, &m.State, &m.Body, &ts)
	if err != nil {
		return nil, err
	}

	m.From, err = addr.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("stored from addr %q: %w", raw, err)
	}

	m.Time = time.Unix(ts, 0)

	return &m, nil
}
