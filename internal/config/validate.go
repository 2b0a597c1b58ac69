package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tverho/mailchat-go/internal/addr"
)

// validLogLevels enumerates accepted log_level values.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks a parsed Config for semantic errors: bad log levels,
// unparseable durations, invalid account section names, and invalid
// per-account security/auth modes. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", cfg.LogLevel))
	}

	for key, raw := range map[string]string{
		"poll_interval":     cfg.PollInterval,
		"progress_timeout":  cfg.ProgressTimeout,
		"configure_timeout": cfg.ConfigureTimeout,
	} {
		if _, err := time.ParseDuration(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s %q is not a duration", key, raw))
		}
	}

	for name, acct := range cfg.Accounts {
		if err := validateAccount(name, acct); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// validateAccount checks one account section.
func validateAccount(name string, acct Account) error {
	var errs []error

	a, err := addr.Parse(name)
	if err != nil {
		errs = append(errs, fmt.Errorf("account section [account.%q]: %w", name, err))
	} else if a.String() != name {
		errs = append(errs, fmt.Errorf("account section [account.%q] is not canonical (use %q)", name, a.String()))
	}

	for key, v := range map[string]string{
		"imap_security": acct.IMAPSecurity,
		"smtp_security": acct.SMTPSecurity,
	} {
		if v != "" && v != SecurityTLS && v != SecurityStartTLS {
			errs = append(errs, fmt.Errorf("account %s: %s %q is not %q or %q",
				name, key, v, SecurityTLS, SecurityStartTLS))
		}
	}

	if acct.Auth != "" && acct.Auth != AuthPassword && acct.Auth != AuthOAuth {
		errs = append(errs, fmt.Errorf("account %s: auth %q is not %q or %q",
			name, acct.Auth, AuthPassword, AuthOAuth))
	}

	for key, port := range map[string]int{
		"imap_port": acct.IMAPPort,
		"smtp_port": acct.SMTPPort,
	} {
		if port < 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("account %s: %s %d out of range", name, key, port))
		}
	}

	return errors.Join(errs...)
}
