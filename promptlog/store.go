// Package promptlog records submitted prompts and lists the recent ones.
package promptlog

import (
	"context"
	"errors"
	"strings"

	"github.com/use-agent/webagent/models"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("promptlog: store closed")

// DefaultLimit and MaxLimit bound Recent.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Store persists prompt entries.
type Store interface {
	// Save appends e. Empty ID and zero Timestamp are filled in.
	Save(ctx context.Context, e models.PromptEntry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]models.PromptEntry, error)

	Close() error
}

// Open picks a backend from dsn:
//
//	memory                          in-process, lost on restart
//	postgres://... / postgresql://  PostgreSQL via pgx
//	anything else                   SQLite file path
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "memory" || dsn == ":memory:":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	default:
		return OpenSQLite(ctx, dsn)
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
