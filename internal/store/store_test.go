package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tverho/mailchat-go/internal/addr"
)

// newTestStore opens an in-memory store.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := Open(":memory:", logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

func TestConfigRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if v, err := s.GetConfig(ctx, "configured"); err != nil || v != "" {
		t.Fatalf("GetConfig on empty db = (%q, %v)", v, err)
	}

	if err := s.SetConfig(ctx, "configured", "1"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	if err := s.SetConfig(ctx, "configured", "2"); err != nil {
		t.Fatalf("SetConfig overwrite: %v", err)
	}

	v, err := s.GetConfig(ctx, "configured")
	if err != nil || v != "2" {
		t.Fatalf("GetConfig = (%q, %v), want (2, nil)", v, err)
	}
}

func TestContactUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := addr.MustParse("alice@example.org")

	id1, err := s.UpsertContact(ctx, alice, "Alice")
	if err != nil {
		t.Fatalf("UpsertContact: %v", err)
	}

	// Re-upsert with empty name must keep the stored one.
	id2, err := s.UpsertContact(ctx, alice, "")
	if err != nil {
		t.Fatalf("UpsertContact again: %v", err)
	}

	if id1 != id2 {
		t.Fatalf("upsert created a second row: %d vs %d", id1, id2)
	}

	c, err := s.ContactByAddr(ctx, alice)
	if err != nil {
		t.Fatalf("ContactByAddr: %v", err)
	}

	if c == nil || c.DisplayName != "Alice" {
		t.Fatalf("contact = %+v, want display name Alice", c)
	}
}

func TestContactByAddrMissing(t *testing.T) {
	s := newTestStore(t)

	c, err := s.ContactByAddr(context.Background(), addr.MustParse("nobody@example.org"))
	if err != nil {
		t.Fatalf("ContactByAddr: %v", err)
	}

	if c != nil {
		t.Fatalf("missing contact = %+v, want nil", c)
	}
}

func TestChatCreatedOncePerContact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cid, err := s.UpsertContact(ctx, addr.MustParse("bob@example.org"), "Bob")
	if err != nil {
		t.Fatal(err)
	}

	chat1, err := s.ChatWithContact(ctx, cid)
	if err != nil {
		t.Fatalf("ChatWithContact: %v", err)
	}

	chat2, err := s.ChatWithContact(ctx, cid)
	if err != nil {
		t.Fatalf("ChatWithContact again: %v", err)
	}

	if chat1 != chat2 {
		t.Fatalf("duplicate chat rows: %d vs %d", chat1, chat2)
	}
}

func TestMessagesOrderedWithinChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bob := addr.MustParse("bob@example.org")

	cid, _ := s.UpsertContact(ctx, bob, "")
	chatID, _ := s.ChatWithContact(ctx, cid)

	base := time.Unix(1700000000, 0)

	for i, body := range []string{"first", "second", "third"} {
		_, err := s.AddMessage(ctx, Message{
			RFCMsgID:  body + "@example.org",
			ChatID:    chatID,
			From:      bob,
			Direction: DirectionIn,
			State:     StateFresh,
			Body:      body,
			Time:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AddMessage(%s): %v", body, err)
		}
	}

	msgs, err := s.ListMessages(ctx, chatID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}

	if len(msgs) != 3 || msgs[0].Body != "first" || msgs[2].Body != "third" {
		t.Fatalf("messages out of order: %+v", msgs)
	}
}

func TestMessageStateTransition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bob := addr.MustParse("bob@example.org")

	cid, _ := s.UpsertContact(ctx, bob, "")
	chatID, _ := s.ChatWithContact(ctx, cid)

	id, err := s.AddMessage(ctx, Message{
		RFCMsgID: "m1@example.org", ChatID: chatID, From: bob,
		Direction: DirectionOut, State: StatePending, Body: "hi", Time: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetMessageState(ctx, id, StateDelivered); err != nil {
		t.Fatalf("SetMessageState: %v", err)
	}

	m, err := s.MessageByID(ctx, id)
	if err != nil || m == nil {
		t.Fatalf("MessageByID = (%+v, %v)", m, err)
	}

	if m.State != StateDelivered {
		t.Fatalf("state = %s, want %s", m.State, StateDelivered)
	}
}

func TestListChatsAggregates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bob := addr.MustParse("bob@example.org")
	carol := addr.MustParse("carol@example.org")

	bobID, _ := s.UpsertContact(ctx, bob, "Bob")
	carolID, _ := s.UpsertContact(ctx, carol, "Carol")

	bobChat, _ := s.ChatWithContact(ctx, bobID)
	if _, err := s.ChatWithContact(ctx, carolID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.AddMessage(ctx, Message{
		RFCMsgID: "x@example.org", ChatID: bobChat, From: bob,
		Direction: DirectionIn, State: StateFresh, Body: "hi",
		Time: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	chats, err := s.ListChats(ctx)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}

	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}

	// Bob's chat has the most recent message, so it sorts first.
	if chats[0].Peer != bob || chats[0].MsgCount != 1 {
		t.Fatalf("chats[0] = %+v, want bob with 1 message", chats[0])
	}

	if chats[1].Peer != carol || chats[1].MsgCount != 0 {
		t.Fatalf("chats[1] = %+v, want carol with 0 messages", chats[1])
	}
}

func TestBackupTo(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := Open(filepath.Join(dir, "acct.db"), logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.SetConfig(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}

	backup := filepath.Join(dir, "backup.db")
	if err := s.BackupTo(ctx, backup); err != nil {
		t.Fatalf("BackupTo: %v", err)
	}

	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}

	// The snapshot must open as a valid database with the data intact.
	restored, err := Open(backup, logger)
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer restored.Close()

	v, err := restored.GetConfig(ctx, "k")
	if err != nil || v != "v" {
		t.Fatalf("restored GetConfig = (%q, %v), want (v, nil)", v, err)
	}
}
