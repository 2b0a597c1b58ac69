package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tverho/mailchat-go/internal/event"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the messaging daemon in the foreground",
		Long: `Keep the account online: fetch incoming mail over IMAP (idle plus
periodic polls), deliver queued outgoing messages over SMTP, and watch the
outbox directory if one is configured. A PID file with an exclusive lock
guards against a second daemon for the same account.

Stop with Ctrl-C; a second Ctrl-C forces an immediate exit.`,
		Args: cobra.NoArgs,
		RunE: runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	session, err := NewAccountSession(resolvedCfg)
	if err != nil {
		return err
	}
	defer session.Close()

	configured, err := session.Engine.IsConfigured(cmd.Context())
	if err != nil {
		return err
	}

	if !configured {
		return fmt.Errorf("account %s is not configured — run 'mailchat configure' first", resolvedCfg.Addr)
	}

	cleanup, err := writePIDFile(resolvedCfg.PIDPath)
	if err != nil {
		return err
	}
	defer cleanup()

	logger := session.Logger
	session.Engine.AddSink(&event.LogSink{Logger: logger})

	ctx := shutdownContext(cmd.Context(), logger)

	logger.Info("daemon started",
		"account", resolvedCfg.Addr.String(),
		"poll_interval", resolvedCfg.PollInterval.String(),
	)

	if err := session.Engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("engine stopped: %w", err)
	}

	logger.Info("daemon stopped")

	return nil
}
