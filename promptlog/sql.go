package promptlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/use-agent/webagent/models"
)

// dialect holds the statements that differ between backends.
type dialect struct {
	name   string
	schema []string
	insert string
	recent string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS prompts (
			id         TEXT PRIMARY KEY,
			prompt     TEXT NOT NULL,
			client_ip  TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prompts_created_at ON prompts(created_at DESC)`,
	},
	insert: `INSERT INTO prompts (id, prompt, client_ip, created_at) VALUES (?, ?, ?, ?)`,
	recent: `SELECT id, prompt, client_ip, created_at FROM prompts ORDER BY created_at DESC, rowid DESC LIMIT ?`,
}

var postgresDialect = dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS prompts (
			id         TEXT PRIMARY KEY,
			prompt     TEXT NOT NULL,
			client_ip  TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prompts_created_at ON prompts(created_at DESC)`,
	},
	insert: `INSERT INTO prompts (id, prompt, client_ip, created_at) VALUES ($1, $2, $3, $4)`,
	recent: `SELECT id, prompt, client_ip, created_at FROM prompts ORDER BY created_at DESC LIMIT $1`,
}

// SQLStore is a Store backed by database/sql. Timestamps are stored as
// Unix microseconds so both backends sort them the same way.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

// OpenSQLite opens or creates the SQLite database at path, creating its
// directory if needed.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("promptlog: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("promptlog: open sqlite: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("promptlog: enable WAL: %w", err)
	}
	return newSQLStore(ctx, db, sqliteDialect)
}

// OpenPostgres connects to dsn with the pgx driver.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("promptlog: open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("promptlog: ping postgres: %w", err)
	}
	return newSQLStore(ctx, db, postgresDialect)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("promptlog: create %s schema: %w", d.name, err)
		}
	}
	return &SQLStore{db: db, d: d}, nil
}

func (s *SQLStore) Save(ctx context.Context, e models.PromptEntry) error {
	fill(&e)
	if _, err := s.db.ExecContext(ctx, s.d.insert, e.ID, e.Prompt, e.ClientIP, e.Timestamp.UnixMicro()); err != nil {
		return fmt.Errorf("promptlog: insert: %w", err)
	}
	return nil
}

func (s *SQLStore) Recent(ctx context.Context, limit int) ([]models.PromptEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.d.recent, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("promptlog: query: %w", err)
	}
	defer rows.Close()

	out := []models.PromptEntry{}
	for rows.Next() {
		var e models.PromptEntry
		var micros int64
		if err := rows.Scan(&e.ID, &e.Prompt, &e.ClientIP, &micros); err != nil {
			return nil, fmt.Errorf("promptlog: scan: %w", err)
		}
		e.Timestamp = time.UnixMicro(micros).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("promptlog: rows: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
