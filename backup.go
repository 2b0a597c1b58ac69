package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tverho/mailchat-go/internal/track"
	"github.com/tverho/mailchat-go/pkg/waitq"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import account backups",
	}

	cmd.AddCommand(newBackupExportCmd())
	cmd.AddCommand(newBackupImportCmd())

	return cmd
}

func newBackupExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write a database snapshot and an mbox archive into a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupExport,
	}

	cmd.Flags().Duration("progress-timeout", 0, "max wait between progress reports (default from config)")

	return cmd
}

func newBackupImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a backup snapshot into the account database",
		Long: `Merge contacts, chats, and messages from a snapshot produced by
'mailchat backup export'. Messages already present are skipped, so
importing the same backup twice is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: runBackupImport,
	}

	cmd.Flags().Duration("progress-timeout", 0, "max wait between progress reports (default from config)")

	return cmd
}

func runBackupExport(cmd *cobra.Command, args []string) error {
	session, err := NewAccountSession(resolvedCfg)
	if err != nil {
		return err
	}
	defer session.Close()

	tracker := track.NewImexTracker()
	session.Engine.AddSink(tracker)
	session.Engine.AddSink(progressSink())

	statusf("Exporting %s to %s...\n", resolvedCfg.Addr, args[0])

	session.Engine.ExportBackup(cmd.Context(), args[0])

	files, err := tracker.WaitFinish(progressTimeout(cmd))
	if err != nil {
		return imexFailure("export", err)
	}

	for _, f := range files {
		size := "?"
		if info, statErr := os.Stat(f); statErr == nil {
			size = formatSize(info.Size())
		}

		fmt.Printf("%s  (%s)\n", f, size)
	}

	return nil
}

func runBackupImport(cmd *cobra.Command, args []string) error {
	session, err := NewAccountSession(resolvedCfg)
	if err != nil {
		return err
	}
	defer session.Close()

	tracker := track.NewImexTracker()
	session.Engine.AddSink(tracker)
	session.Engine.AddSink(progressSink())

	statusf("Importing %s into %s...\n", args[0], resolvedCfg.Addr)

	session.Engine.ImportBackup(cmd.Context(), args[0])

	if _, err := tracker.WaitFinish(progressTimeout(cmd)); err != nil {
		return imexFailure("import", err)
	}

	statusf("Import finished.\n")

	return nil
}

// progressTimeout resolves the per-step timeout: flag > config.
func progressTimeout(cmd *cobra.Command) time.Duration {
	if t, _ := cmd.Flags().GetDuration("progress-timeout"); t != 0 {
		return t
	}

	return resolvedCfg.ProgressTimeout
}

// imexFailure maps tracker errors to user-facing messages.
func imexFailure(op string, err error) error {
	var failed *track.ImexFailedError
	if errors.As(err, &failed) {
		if len(failed.Files) > 0 {
			fmt.Fprintf(os.Stderr, "Partial output before the failure:\n")

			for _, f := range failed.Files {
				fmt.Fprintf(os.Stderr, "  %s\n", f)
			}
		}

		return fmt.Errorf("%s failed (see log above)", op)
	}

	if errors.Is(err, waitq.ErrTimedOut) {
		return fmt.Errorf("%s stalled: no progress within the timeout", op)
	}

	return err
}
