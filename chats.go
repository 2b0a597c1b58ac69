package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tverho/mailchat-go/internal/addr"
	"github.com/tverho/mailchat-go/internal/store"
)

func newChatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats [address]",
		Short: "List chats, or show the messages of one chat",
		Long: `Without arguments, list every chat with its peer, message count, and
the time of the last message. With a peer address, print that chat's
messages oldest first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChats,
	}
}

func runChats(cmd *cobra.Command, args []string) error {
	session, err := NewAccountSession(resolvedCfg)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx := cmd.Context()

	if len(args) == 1 {
		peer, err := addr.Parse(args[0])
		if err != nil {
			return fmt.Errorf("peer address: %w", err)
		}

		return printChatLog(ctx, session, peer)
	}

	chats, err := session.Store.ListChats(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(chatsToJSON(chats))
	}

	if len(chats) == 0 {
		fmt.Println("No chats yet. Send a message with 'mailchat send'.")

		return nil
	}

	rows := make([][]string, 0, len(chats))
	for _, c := range chats {
		name := c.DisplayName
		if name == "" {
			name = c.Peer.String()
		}

		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			name,
			c.Peer.String(),
			strconv.FormatInt(c.MsgCount, 10),
			formatTime(c.LastMsgTime),
		})
	}

	printTable(os.Stdout, []string{"ID", "NAME", "ADDRESS", "MSGS", "LAST"}, rows)

	return nil
}

// printChatLog prints one chat's messages oldest first.
func printChatLog(ctx context.Context, session *AccountSession, peer addr.Addr) error {
	contact, err := session.Store.ContactByAddr(ctx, peer)
	if err != nil {
		return err
	}

	if contact == nil {
		return fmt.Errorf("no chat with %s", peer)
	}

	chatID, err := session.Store.ChatWithContact(ctx, contact.ID)
	if err != nil {
		return err
	}

	msgs, err := session.Store.ListMessages(ctx, chatID)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(messagesToJSON(msgs))
	}

	for _, m := range msgs {
		who := peer.String()
		if m.Direction == store.DirectionOut {
			who = "me"
		}

		fmt.Printf("%s  %-7s %s: %s\n", formatTime(m.Time), "["+m.State+"]", who, m.Body)
	}

	return nil
}

// chatJSON is the JSON shape of one chat list entry.
type chatJSON struct {
	ID          int64     `json:"id"`
	Peer        string    `json:"peer"`
	DisplayName string    `json:"display_name,omitempty"`
	MsgCount    int64     `json:"msg_count"`
	LastMsgTime time.Time `json:"last_msg_time"`
}

func chatsToJSON(chats []store.ChatInfo) []chatJSON {
	out := make([]chatJSON, 0, len(chats))
	for _, c := range chats {
		out = append(out, chatJSON{
			ID:          c.ID,
			Peer:        c.Peer.String(),
			DisplayName: c.DisplayName,
			MsgCount:    c.MsgCount,
			LastMsgTime: c.LastMsgTime,
		})
	}

	return out
}

// messageJSON is the JSON shape of one message.
type messageJSON struct {
	ID        int64     `json:"id"`
	From      string    `json:"from"`
	Direction string    `json:"direction"`
	State     string    `json:"state"`
	Body      string    `json:"body"`
	Time      time.Time `json:"time"`
}

func messagesToJSON(msgs []store.Message) []messageJSON {
	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageJSON{
			ID:        m.ID,
			From:      m.From.String(),
			Direction: m.Direction,
			State:     m.State,
			Body:      m.Body,
			Time:      m.Time,
		})
	}

	return out
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
