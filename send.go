package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tverho/mailchat-go/internal/addr"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <address> <text>...",
		Short: "Send a text message to a contact",
		Long: `Store a text message addressed to the given contact and submit it over
SMTP. Creates the contact and its chat on first use. With --queue-only the
message is stored as pending and left for a running 'mailchat run' daemon
to deliver.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runSend,
	}

	cmd.Flags().Bool("queue-only", false, "store the message without connecting to the SMTP server")

	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	to, err := addr.Parse(args[0])
	if err != nil {
		return fmt.Errorf("recipient: %w", err)
	}

	text := strings.Join(args[1:], " ")

	session, err := NewAccountSession(resolvedCfg)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx := cmd.Context()

	msgID, err := session.Engine.SendText(ctx, to, text)
	if err != nil {
		return err
	}

	queueOnly, _ := cmd.Flags().GetBool("queue-only")
	if queueOnly {
		statusf("Message %d queued for %s.\n", msgID, to)

		return nil
	}

	sent, err := session.Engine.FlushOutbox(ctx)
	if err != nil {
		return fmt.Errorf("message %d stored but not delivered (%w) — 'mailchat run' will retry", msgID, err)
	}

	statusf("Delivered %d message(s) to %s.\n", sent, to)

	return nil
}
