package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configFilePermissions is the standard mode for config files: owner
// read/write, group and others read-only.
const configFilePermissions = 0o644

// configDirPermissions is the standard mode for config directories.
const configDirPermissions = 0o755

// configTemplate is the default config file content written by
// `mailchat config init`. All global settings are present as
// commented-out defaults so users can discover every option without
// reading docs. The template is written once and never regenerated.
const configTemplate = `# mailchat configuration

# ── Global settings ──
# Uncomment and modify to override defaults.

# Log verbosity: debug, info, warn, error
# log_level = "info"

# Data directory for state databases, token files, PID files
# (default: platform standard location)
# data_dir = ""

# Full IMAP poll interval for 'mailchat run' when idle delivers nothing
# poll_interval = "5m"

# Per-signal wait bound during backup export/import
# progress_timeout = "60s"

# Overall wait bound for 'mailchat configure'
# configure_timeout = "5m"

# ── Accounts ──
# One section per mailbox. Unset transport settings are derived from
# the address domain during 'mailchat configure'.
#
# [account."alice@example.org"]
# display_name = "Alice"
# auth = "password"          # or "oauth"
# imap_host = "imap.example.org"
# imap_port = 993
# imap_security = "tls"      # or "starttls"
# smtp_host = "smtp.example.org"
# smtp_port = 465
# smtp_security = "tls"
# notify_url = ""            # optional websocket push endpoint
# outbox_dir = ""            # optional watched outbox directory
# default = true
`

// WriteDefault writes the commented template to path unless a file
// already exists there. Returns the path written, or an error when the
// file exists — overwriting a user's config is never acceptable.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(configTemplate), configFilePermissions); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
