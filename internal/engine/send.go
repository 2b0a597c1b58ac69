package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tverho/mailchat-go/internal/addr"
	"github.com/tverho/mailchat-go/internal/event"
	"github.com/tverho/mailchat-go/internal/store"
)

// SendText records an outgoing text message to the peer's 1:1 chat and
// queues it for SMTP submission. Submission happens asynchronously in
// the submit loop (or via FlushOutbox for one-shot commands); the
// MsgDelivered event reports completion.
func (e *Engine) SendText(ctx context.Context, to addr.Addr, text string) (int64, error) {
	if text == "" {
		return 0, fmt.Errorf("engine: refusing to send an empty message")
	}

	contactID, err := e.store.UpsertContact(ctx, to, "")
	if err != nil {
		return 0, err
	}

	chatID, err := e.store.ChatWithContact(ctx, contactID)
	if err != nil {
		return 0, err
	}

	msgID, err := e.store.AddMessage(ctx, store.Message{
		RFCMsgID:  newMsgID(e.cfg.Addr),
		ChatID:    chatID,
		From:      e.cfg.Addr,
		Direction: store.DirectionOut,
		State:     store.StatePending,
		Body:      text,
		Time:      time.Now(),
	})
	if err != nil {
		return 0, err
	}

	e.outbox.Put(msgID)
	e.emit(event.New(event.MsgsChanged, chatID, msgID))

	return msgID, nil
}

// peerOfChat resolves the remote address of a 1:1 chat.
func (e *Engine) peerOfChat(ctx context.Context, chatID int64) (addr.Addr, error) {
	chats, err := e.store.ListChats(ctx)
	if err != nil {
		return addr.Addr{}, err
	}

	for _, c := range chats {
		if c.ID == chatID {
			return c.Peer, nil
		}
	}

	return addr.Addr{}, fmt.Errorf("engine: chat %d not found", chatID)
}
