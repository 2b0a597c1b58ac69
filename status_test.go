package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tverho/mailchat-go/internal/addr"
	"github.com/tverho/mailchat-go/internal/config"
)

func TestCredentialState_PasswordPresent(t *testing.T) {
	resetFlags(t)
	resolvedCfg = &config.ResolvedAccount{DataDir: t.TempDir()}

	acct := config.Account{Auth: config.AuthPassword, Password: "hunter2"}
	state := credentialState(acct, addr.MustParse("alice@example.org"))

	assert.Equal(t, credStatePresent, state)
}

func TestCredentialState_PasswordMissing(t *testing.T) {
	resetFlags(t)
	resolvedCfg = &config.ResolvedAccount{DataDir: t.TempDir()}

	t.Setenv(config.EnvPassword, "")

	acct := config.Account{Auth: config.AuthPassword}
	state := credentialState(acct, addr.MustParse("alice@example.org"))

	assert.Equal(t, credStateMissing, state)
}

func TestCredentialState_PasswordFromEnv(t *testing.T) {
	resetFlags(t)
	resolvedCfg = &config.ResolvedAccount{DataDir: t.TempDir()}

	t.Setenv(config.EnvPassword, "hunter2")

	acct := config.Account{Auth: config.AuthPassword}
	state := credentialState(acct, addr.MustParse("alice@example.org"))

	assert.Equal(t, credStatePresent, state)
}

func TestCredentialState_OAuthTokenMissing(t *testing.T) {
	resetFlags(t)
	resolvedCfg = &config.ResolvedAccount{DataDir: t.TempDir()}

	acct := config.Account{Auth: config.AuthOAuth}
	state := credentialState(acct, addr.MustParse("alice@example.org"))

	assert.Equal(t, credStateMissing, state)
}

func TestBuildAccountStatus_NeedsSetupWithoutDatabase(t *testing.T) {
	resetFlags(t)
	resolvedCfg = &config.ResolvedAccount{DataDir: t.TempDir()}

	st := buildAccountStatus("alice@example.org", config.Account{Password: "x"})

	assert.Equal(t, accountStateNeedsSetup, st.State)
	assert.Equal(t, config.AuthPassword, st.Auth)
	assert.Zero(t, st.PID)
}

func TestBuildAccountStatus_IdleWithDatabase(t *testing.T) {
	resetFlags(t)

	dataDir := t.TempDir()
	resolvedCfg = &config.ResolvedAccount{DataDir: dataDir}

	a := addr.MustParse("alice@example.org")

	dbPath := config.DBPath(dataDir, a)
	assert.NoError(t, os.MkdirAll(dataDir, 0o755))
	assert.NoError(t, os.WriteFile(dbPath, []byte{}, 0o600))

	st := buildAccountStatus("alice@example.org", config.Account{Password: "x"})

	assert.Equal(t, accountStateIdle, st.State)
}
