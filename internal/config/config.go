// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for mailchat. It supports a
// three-layer override chain (defaults -> config file -> environment ->
// CLI flags) with one [account.<address>] section per configured
// mailbox. Unknown keys are fatal with "did you mean?" suggestions.
package config

// Config is the top-level configuration structure parsed from a TOML
// file. Global keys apply to every account; each account section can
// override its own transport settings.
type Config struct {
	Accounts map[string]Account `toml:"account"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// DataDir overrides the platform data directory (state database,
	// token files, PID file).
	DataDir string `toml:"data_dir"`

	// PollInterval is how often the engine falls back to a full IMAP
	// poll when idle/push delivers nothing. Duration string.
	PollInterval string `toml:"poll_interval"`

	// ProgressTimeout bounds each wait for the next import/export
	// progress signal. Duration string.
	ProgressTimeout string `toml:"progress_timeout"`

	// ConfigureTimeout bounds the wait for configure completion.
	// Duration string.
	ConfigureTimeout string `toml:"configure_timeout"`
}

// Account is one [account.<address>] section. Unset transport fields
// are filled by provider autoconfiguration (imap.<domain> /
// smtp.<domain> with implicit TLS) during configure.
type Account struct {
	DisplayName string `toml:"display_name"`

	IMAPHost     string `toml:"imap_host"`
	IMAPPort     int    `toml:"imap_port"`
	IMAPSecurity string `toml:"imap_security"` // "tls" or "starttls"

	SMTPHost     string `toml:"smtp_host"`
	SMTPPort     int    `toml:"smtp_port"`
	SMTPSecurity string `toml:"smtp_security"` // "tls" or "starttls"

	// Auth selects the login mechanism: "password" (LOGIN/PLAIN) or
	// "oauth" (SASL OAUTHBEARER with a token file).
	Auth string `toml:"auth"`

	// Password for password auth. Prefer the MAILCHAT_PASSWORD
	// environment variable over storing it here.
	Password string `toml:"password"`

	// NotifyURL is an optional websocket endpoint whose messages wake
	// the fetch loop between polls.
	NotifyURL string `toml:"notify_url"`

	// OutboxDir is an optional directory watched by `mailchat run`;
	// text files dropped there are sent as messages.
	OutboxDir string `toml:"outbox_dir"`

	// Default marks the account used when --account is not given and
	// more than one account is configured.
	Default bool `toml:"default"`
}

// Security mode constants for IMAPSecurity / SMTPSecurity.
const (
	SecurityTLS      = "tls"
	SecurityStartTLS = "starttls"
)

// Auth mode constants.
const (
	AuthPassword = "password"
	AuthOAuth    = "oauth"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Accounts:         map[string]Account{},
		LogLevel:         "info",
		PollInterval:     "5m",
		ProgressTimeout:  "60s",
		ConfigureTimeout: "5m",
	}
}
