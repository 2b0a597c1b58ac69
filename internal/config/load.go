package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tverho/mailchat-go/internal/addr"
	"github.com/tverho/mailchat-go/internal/tokenfile"
)

// Load reads and parses a TOML config file, validates it, and returns
// the resulting Config. Unknown keys are fatal with "did you mean?"
// suggestions — silently ignoring a typo in a config file leads to
// hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise
// returns a Config populated with all default values, supporting a
// zero-config first run.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// CLIOverrides carries values from command-line flags into Resolve.
type CLIOverrides struct {
	ConfigPath string
	Account    string
}

// ResolvedAccount is the effective configuration for one account after
// the full override chain, with duration strings parsed and paths
// resolved. It is what commands and the engine actually consume.
type ResolvedAccount struct {
	Addr    addr.Addr
	Account Account

	LogLevel         string
	DataDir          string
	PollInterval     time.Duration
	ProgressTimeout  time.Duration
	ConfigureTimeout time.Duration

	// Password resolved from environment or config, in that order.
	Password string

	ConfigPath string
	DBPath     string
	TokenPath  string
	PIDPath    string
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// CLI flags always win, matching user expectations for one-off
// overrides without editing the config file.
func Resolve(env EnvOverrides, cli CLIOverrides) (*ResolvedAccount, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	name, acct, err := selectAccount(cfg, env, cli)
	if err != nil {
		return nil, err
	}

	account, err := addr.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", name, err)
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	if env.DataDir != "" {
		dataDir = env.DataDir
	}

	resolved := &ResolvedAccount{
		Addr:       account,
		Account:    acct,
		LogLevel:   cfg.LogLevel,
		DataDir:    dataDir,
		Password:   acct.Password,
		ConfigPath: cfgPath,
		DBPath:     DBPath(dataDir, account),
		PIDPath:    PIDPath(dataDir, account),
	}

	if env.Password != "" {
		resolved.Password = env.Password
	}

	resolved.TokenPath = tokenfile.Path(dataDir, account)

	for _, d := range []struct {
		dst *time.Duration
		key string
		raw string
	}{
		{&resolved.PollInterval, "poll_interval", cfg.PollInterval},
		{&resolved.ProgressTimeout, "progress_timeout", cfg.ProgressTimeout},
		{&resolved.ConfigureTimeout, "configure_timeout", cfg.ConfigureTimeout},
	} {
		*d.dst, err = time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %q: %w", d.key, d.raw, err)
		}
	}

	return resolved, nil
}

// selectAccount picks the active account section: CLI > env > the
// single configured account > the section marked default. A config
// with no account sections is allowed only when the caller names the
// account explicitly (first-run configure).
func selectAccount(cfg *Config, env EnvOverrides, cli CLIOverrides) (string, Account, error) {
	requested := cli.Account
	if requested == "" {
		requested = env.Account
	}

	if requested != "" {
		a, err := addr.Parse(requested)
		if err != nil {
			return "", Account{}, fmt.Errorf("--account %q: %w", requested, err)
		}

		if acct, ok := cfg.Accounts[a.String()]; ok {
			return a.String(), acct, nil
		}

		// Unknown but well-formed address: synthesize an empty section
		// so first-run configure works without editing the file.
		return a.String(), Account{}, nil
	}

	switch len(cfg.Accounts) {
	case 0:
		return "", Account{}, errors.New("no accounts configured; pass --account or add an [account] section")
	case 1:
		for name, acct := range cfg.Accounts {
			return name, acct, nil
		}
	}

	var defaults []string

	for name, acct := range cfg.Accounts {
		if acct.Default {
			defaults = append(defaults, name)
		}
	}

	sort.Strings(defaults)

	switch len(defaults) {
	case 0:
		return "", Account{}, errors.New("multiple accounts configured; pass --account or mark one with default = true")
	case 1:
		return defaults[0], cfg.Accounts[defaults[0]], nil
	default:
		return "", Account{}, fmt.Errorf("multiple accounts marked default: %v", defaults)
	}
}
