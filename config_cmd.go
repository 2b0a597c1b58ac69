package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tverho/mailchat-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Long: `Create the config file with a commented template. Refuses to overwrite
an existing file.`,
		Args: cobra.NoArgs,
		RunE: runConfigInit,
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if flagJSON {
		return printJSON(effectiveConfigJSON())
	}

	fmt.Printf("config file:       %s\n", resolvedCfg.ConfigPath)
	fmt.Printf("account:           %s\n", resolvedCfg.Addr)
	fmt.Printf("data dir:          %s\n", resolvedCfg.DataDir)
	fmt.Printf("database:          %s\n", resolvedCfg.DBPath)
	fmt.Printf("log level:         %s\n", resolvedCfg.LogLevel)
	fmt.Printf("poll interval:     %s\n", resolvedCfg.PollInterval)
	fmt.Printf("progress timeout:  %s\n", resolvedCfg.ProgressTimeout)
	fmt.Printf("configure timeout: %s\n", resolvedCfg.ConfigureTimeout)

	return nil
}

// effectiveConfig is the JSON shape of the resolved configuration.
// Secrets are deliberately absent.
type effectiveConfig struct {
	ConfigPath       string `json:"config_path"`
	Account          string `json:"account"`
	DataDir          string `json:"data_dir"`
	DBPath           string `json:"db_path"`
	LogLevel         string `json:"log_level"`
	PollInterval     string `json:"poll_interval"`
	ProgressTimeout  string `json:"progress_timeout"`
	ConfigureTimeout string `json:"configure_timeout"`
}

func effectiveConfigJSON() effectiveConfig {
	return effectiveConfig{
		ConfigPath:       resolvedCfg.ConfigPath,
		Account:          resolvedCfg.Addr.String(),
		DataDir:          resolvedCfg.DataDir,
		DBPath:           resolvedCfg.DBPath,
		LogLevel:         resolvedCfg.LogLevel,
		PollInterval:     resolvedCfg.PollInterval.String(),
		ProgressTimeout:  resolvedCfg.ProgressTimeout.String(),
		ConfigureTimeout: resolvedCfg.ConfigureTimeout.String(),
	}
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	fmt.Println(effectiveConfigPath())

	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path := effectiveConfigPath()

	if err := config.WriteDefault(path); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)

	return nil
}

// effectiveConfigPath resolves the config path without loading the
// file, for commands that run before any config exists.
func effectiveConfigPath() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}

	if env := config.ReadEnvOverrides().ConfigPath; env != "" {
		return env
	}

	return config.DefaultConfigPath()
}
