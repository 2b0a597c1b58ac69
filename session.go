package main

import (
	"fmt"
	"log/slog"

	"github.com/tverho/mailchat-go/internal/config"
	"github.com/tverho/mailchat-go/internal/engine"
	"github.com/tverho/mailchat-go/internal/store"
)

// AccountSession holds the open state database and engine for the
// resolved account. Commands that talk to the store or the mail
// servers create one and close it when done.
type AccountSession struct {
	Engine *engine.Engine
	Store  *store.Store
	Logger *slog.Logger
}

// NewAccountSession opens the account database and builds an engine
// around it. The caller must Close the session.
func NewAccountSession(resolved *config.ResolvedAccount) (*AccountSession, error) {
	logger := buildLogger()

	st, err := store.Open(resolved.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	logger.Debug("using account", "address", resolved.Addr.String(), "db", resolved.DBPath)

	return &AccountSession{
		Engine: engine.New(resolved, st, logger),
		Store:  st,
		Logger: logger,
	}, nil
}

// Close releases the state database.
func (s *AccountSession) Close() {
	if err := s.Store.Close(); err != nil {
		s.Logger.Warn("closing state database", "error", err.Error())
	}
}
