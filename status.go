package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tverho/mailchat-go/internal/addr"
	"github.com/tverho/mailchat-go/internal/config"
	"github.com/tverho/mailchat-go/internal/tokenfile"
)

// Credential state constants for status reporting.
const (
	credStateMissing = "missing"
	credStateExpired = "expired"
	credStateValid   = "valid"
	credStatePresent = "present"
)

// Account state constants for status display.
const (
	accountStateOnline     = "online"
	accountStateIdle       = "idle"
	accountStateNeedsSetup = "needs setup"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show all accounts, their credentials, and daemon state",
		Long: `Display every configured account with its auth mechanism, credential
state, database presence, and whether a daemon is currently running for it.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

// statusAccount holds status information for a single account.
type statusAccount struct {
	Address   string `json:"address"`
	Auth      string `json:"auth"`
	CredState string `json:"cred_state"`
	State     string `json:"state"`
	PID       int    `json:"pid,omitempty"`
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadOrDefault(resolvedCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if len(cfg.Accounts) == 0 {
		fmt.Println("No accounts configured. Run 'mailchat config init' and add an [account] section.")

		return nil
	}

	names := make([]string, 0, len(cfg.Accounts))
	for name := range cfg.Accounts {
		names = append(names, name)
	}

	sort.Strings(names)

	accounts := make([]statusAccount, 0, len(names))
	for _, name := range names {
		accounts = append(accounts, buildAccountStatus(name, cfg.Accounts[name]))
	}

	if flagJSON {
		return printJSON(accounts)
	}

	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		pid := "-"
		if a.PID != 0 {
			pid = fmt.Sprintf("%d", a.PID)
		}

		rows = append(rows, []string{a.Address, a.Auth, a.CredState, a.State, pid})
	}

	printTable(os.Stdout, []string{"ACCOUNT", "AUTH", "CREDENTIALS", "STATE", "PID"}, rows)

	return nil
}

// buildAccountStatus inspects one configured account's on-disk state.
func buildAccountStatus(name string, acct config.Account) statusAccount {
	st := statusAccount{Address: name, Auth: acct.Auth}
	if st.Auth == "" {
		st.Auth = config.AuthPassword
	}

	a, err := addr.Parse(name)
	if err != nil {
		st.CredState = credStateMissing
		st.State = accountStateNeedsSetup

		return st
	}

	st.CredState = credentialState(acct, a)

	dbPath := config.DBPath(resolvedCfg.DataDir, a)
	if _, err := os.Stat(dbPath); err != nil {
		st.State = accountStateNeedsSetup

		return st
	}

	if pid, running := daemonRunning(config.PIDPath(resolvedCfg.DataDir, a)); running {
		st.State = accountStateOnline
		st.PID = pid
	} else {
		st.State = accountStateIdle
	}

	return st
}

// credentialState checks the stored credential for one account without
// talking to any server.
func credentialState(acct config.Account, a addr.Addr) string {
	if acct.Auth == config.AuthOAuth {
		tok, _, err := tokenfile.Load(tokenfile.Path(resolvedCfg.DataDir, a))
		if err != nil || tok == nil {
			return credStateMissing
		}

		if !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now()) && tok.RefreshToken == "" {
			return credStateExpired
		}

		return credStateValid
	}

	if acct.Password == "" && os.Getenv(config.EnvPassword) == "" {
		return credStateMissing
	}

	return credStatePresent
}
