package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "MAILCHAT_CONFIG"
	EnvAccount  = "MAILCHAT_ACCOUNT"
	EnvDataDir  = "MAILCHAT_DATA_DIR"
	EnvPassword = "MAILCHAT_PASSWORD"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // MAILCHAT_CONFIG: override config file path
	Account    string // MAILCHAT_ACCOUNT: active account address
	DataDir    string // MAILCHAT_DATA_DIR: data directory override
	Password   string // MAILCHAT_PASSWORD: account password, never stored
}

// ReadEnvOverrides reads environment variables and returns any
// overrides found. This does not modify the Config; callers apply the
// relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Account:    os.Getenv(EnvAccount),
		DataDir:    os.Getenv(EnvDataDir),
		Password:   os.Getenv(EnvPassword),
	}
}
