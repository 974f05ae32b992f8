package database

import (
	"context"
	"log/slog"
	"sync"

	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Opener establishes a schema-ready connection.
type Opener func(ctx context.Context, cfg *config.Config) (*gorm.DB, error)

// Manager owns the process-wide connection and establishes it on first use.
// Concurrent first callers wait for the same attempt; a failed attempt is
// not remembered, so the next call retries.
type Manager struct {
	cfg  *config.Config
	open Opener

	mu sync.Mutex
	db *gorm.DB
}

// NewManager returns a Manager that connects with Connect.
func NewManager(cfg *config.Config) *Manager {
	return NewManagerWithOpener(cfg, Connect)
}

// NewManagerWithOpener returns a Manager using a custom opener.
func NewManagerWithOpener(cfg *config.Config, open Opener) *Manager {
	return &Manager{cfg: cfg, open: open}
}

// NewStaticManager wraps an already-open handle.
func NewStaticManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// DB returns the shared handle, connecting if needed. Failures surface as
// CONNECTION_ERROR.
func (m *Manager) DB(ctx context.Context) (*gorm.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return m.db, nil
	}
	if m.open == nil {
		return nil, models.NewConnectionError(nil)
	}

	db, err := m.open(ctx, m.cfg)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "database connection failed", slog.String("error", err.Error()))
		return nil, models.NewConnectionError(err)
	}
	m.db = db
	return db, nil
}

// Close releases the connection; the next DB call reconnects.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	Close(m.db)
	m.db = nil
}
