// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Conn yields the shared gorm handle, connecting on first use.
type Conn interface {
	DB(ctx context.Context) (*gorm.DB, error)
}

type staticConn struct {
	db *gorm.DB
}

func (c staticConn) DB(context.Context) (*gorm.DB, error) {
	return c.db, nil
}

// Static wraps an open handle as a Conn.
func Static(db *gorm.DB) Conn {
	return staticConn{db: db}
}

func session(ctx context.Context, conn Conn) (*gorm.DB, error) {
	db, err := conn.DB(ctx)
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

// fail logs err and converts anything that is not already a domain error
// into an internal error.
func fail(ctx context.Context, log *observability.RepoLogger, operation string, err error) error {
	if err == nil {
		return nil
	}
	if models.IsAppError(err) {
		return err
	}
	log.LogError(ctx, err, operation)
	return models.NewInternalError(err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// containsPattern builds a case-insensitive LIKE pattern matching q literally
// anywhere in the column. Use with ESCAPE '\'.
func containsPattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}
