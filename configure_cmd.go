package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tverho/mailchat-go/internal/event"
	"github.com/tverho/mailchat-go/internal/track"
	"github.com/tverho/mailchat-go/pkg/waitq"
)

func newConfigureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Verify account settings by logging in to both mail servers",
		Long: `Probe the account's IMAP and SMTP servers, filling in any transport
settings the config file leaves unset from provider defaults. The verified
settings are stored in the account database; 'mailchat run' and 'mailchat
send' require a configured account.

Use --account to pick the account when more than one is configured.`,
		Args: cobra.NoArgs,
		RunE: runConfigureCmd,
	}

	cmd.Flags().Bool("wait-links", false, "additionally block until both server connections are reported")
	cmd.Flags().Duration("timeout", 0, "overall configure timeout (default from config)")

	return cmd
}

func runConfigureCmd(cmd *cobra.Command, _ []string) error {
	session, err := NewAccountSession(resolvedCfg)
	if err != nil {
		return err
	}
	defer session.Close()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = resolvedCfg.ConfigureTimeout
	}

	waitLinks, _ := cmd.Flags().GetBool("wait-links")

	tracker := track.NewConfigureTracker()
	session.Engine.AddSink(tracker)
	session.Engine.AddSink(progressSink())

	statusf("Configuring %s...\n", resolvedCfg.Addr)

	ctx := cmd.Context()
	session.Engine.Configure(ctx)

	if waitLinks {
		linkCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := tracker.WaitIMAPConnected(linkCtx); err != nil {
			return fmt.Errorf("waiting for IMAP connection: %w", err)
		}

		if err := tracker.WaitSMTPConnected(linkCtx); err != nil {
			return fmt.Errorf("waiting for SMTP connection: %w", err)
		}

		statusf("Both server connections verified.\n")
	}

	if err := tracker.WaitFinish(timeout); err != nil {
		var failed *track.ConfigureFailedError
		if errors.As(err, &failed) {
			return configureFailure(failed)
		}

		if errors.Is(err, waitq.ErrTimedOut) {
			return fmt.Errorf("configure did not finish within %s", timeout)
		}

		return err
	}

	statusf("Account %s configured.\n", resolvedCfg.Addr)

	return nil
}

// configureFailure turns the tracker's event log into a readable error,
// surfacing the server-side diagnostics that explain the failure.
func configureFailure(failed *track.ConfigureFailedError) error {
	for _, ev := range failed.Log {
		if ev.Type == event.Error || ev.Type == event.Warning {
			fmt.Fprintf(os.Stderr, "  %s\n", ev.Text())
		}
	}

	return fmt.Errorf("configure failed for %s", resolvedCfg.Addr)
}

// progressSink reports configure/imex progress milestones on stderr.
func progressSink() event.Sink {
	start := time.Now()

	return event.SinkFunc(func(ev event.Event) {
		switch ev.Type {
		case event.ConfigureProgress, event.ImexProgress:
			if p := ev.Progress(); p > 0 && p < event.ProgressSuccess {
				statusf("  %4d/1000 (%s)\n", p, time.Since(start).Round(time.Millisecond))
			}
		case event.Info:
			statusf("  %s\n", ev.Text())
		}
	})
}
