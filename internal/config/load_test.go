package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content to a temp config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"
poll_interval = "2m"

[account."alice@example.org"]
display_name = "Alice"
auth = "password"
imap_host = "imap.example.org"
imap_port = 993
imap_security = "tls"
smtp_host = "smtp.example.org"
smtp_port = 587
smtp_security = "starttls"
default = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "2m", cfg.PollInterval)
	// Untouched defaults survive.
	assert.Equal(t, "60s", cfg.ProgressTimeout)

	acct, ok := cfg.Accounts["alice@example.org"]
	require.True(t, ok)
	assert.Equal(t, "Alice", acct.DisplayName)
	assert.Equal(t, "starttls", acct.SMTPSecurity)
	assert.True(t, acct.Default)
}

func TestLoad_UnknownGlobalKeySuggestion(t *testing.T) {
	path := writeConfig(t, `log_levle = "debug"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"log_levle"`)
	assert.Contains(t, err.Error(), `did you mean "log_level"`)
}

func TestLoad_UnknownAccountKey(t *testing.T) {
	path := writeConfig(t, `
[account."alice@example.org"]
imap_hots = "imap.example.org"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "imap_host"`)
}

func TestLoad_InvalidAccountSection(t *testing.T) {
	path := writeConfig(t, `
[account."not-an-address"]
display_name = "X"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-an-address")
}

func TestLoad_NonCanonicalAccountSection(t *testing.T) {
	path := writeConfig(t, `
[account."Alice@Example.Org"]
display_name = "X"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not canonical")
}

func TestLoad_BadSecurityMode(t *testing.T) {
	path := writeConfig(t, `
[account."alice@example.org"]
imap_security = "ssl3"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imap_security")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Accounts)
}

func TestResolve_SingleAccount(t *testing.T) {
	path := writeConfig(t, `
[account."alice@example.org"]
auth = "password"
password = "from-file"
`)

	resolved, err := Resolve(EnvOverrides{DataDir: "/tmp/data"}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.org", resolved.Addr.String())
	assert.Equal(t, "from-file", resolved.Password)
	assert.Equal(t, 5*time.Minute, resolved.PollInterval)
	assert.Equal(t, 60*time.Second, resolved.ProgressTimeout)
	assert.Equal(t, filepath.Join("/tmp/data", "alice@example.org.db"), resolved.DBPath)
	assert.Equal(t, filepath.Join("/tmp/data", "alice@example.org.pid"), resolved.PIDPath)
}

func TestResolve_EnvPasswordWins(t *testing.T) {
	path := writeConfig(t, `
[account."alice@example.org"]
password = "from-file"
`)

	env := EnvOverrides{Password: "from-env"}

	resolved, err := Resolve(env, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "from-env", resolved.Password)
}

func TestResolve_MultipleAccountsNeedsSelector(t *testing.T) {
	path := writeConfig(t, `
[account."alice@example.org"]
[account."bob@example.org"]
`)

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple accounts")
}

func TestResolve_DefaultMarkedAccount(t *testing.T) {
	path := writeConfig(t, `
[account."alice@example.org"]
[account."bob@example.org"]
default = true
`)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.org", resolved.Addr.String())
}

func TestResolve_ExplicitAccountFlag(t *testing.T) {
	path := writeConfig(t, `
[account."alice@example.org"]
[account."bob@example.org"]
`)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path, Account: "Bob@Example.Org"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.org", resolved.Addr.String())
}

func TestResolve_UnknownAccountSynthesizesSection(t *testing.T) {
	// First-run configure: the account is named on the CLI but has no
	// config section yet.
	path := writeConfig(t, `log_level = "info"`)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path, Account: "new@example.org"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.org", resolved.Addr.String())
	assert.Empty(t, resolved.Account.IMAPHost)
}

func TestResolve_NoAccountsNoSelector(t *testing.T) {
	path := writeConfig(t, `log_level = "info"`)

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no accounts configured")
}
