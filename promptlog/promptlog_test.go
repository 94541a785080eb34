package promptlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/webagent/models"
)

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	for i, p := range []string{"first", "second", "third"} {
		require.NoError(t, s.Save(ctx, models.PromptEntry{
			Prompt:    p,
			ClientIP:  "10.0.0.1",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Prompt)
	assert.Equal(t, "second", got[1].Prompt)
	assert.Equal(t, "10.0.0.1", got[0].ClientIP)
	assert.NotEmpty(t, got[0].ID)
	assert.True(t, got[0].Timestamp.Equal(base.Add(2*time.Minute)))

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Save(context.Background(), models.PromptEntry{Prompt: "x"}), ErrClosed)
}

func TestMemoryStoreFillsDefaults(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Save(context.Background(), models.PromptEntry{Prompt: "x"}))
	got, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prompts.db")
	s, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestOpenPicksBackend(t *testing.T) {
	s, err := Open(context.Background(), "memory")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(context.Background(), filepath.Join(t.TempDir(), "p.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())
}

func TestPostgresDialect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS prompts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := newSQLStore(context.Background(), db, postgresDialect)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO prompts \(id, prompt, client_ip, created_at\) VALUES \(\$1, \$2, \$3, \$4\)`).
		WithArgs("id-1", "hello", "1.2.3.4", base.UnixMicro()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, s.Save(context.Background(), models.PromptEntry{ID: "id-1", Prompt: "hello", ClientIP: "1.2.3.4", Timestamp: base}))

	rows := sqlmock.NewRows([]string{"id", "prompt", "client_ip", "created_at"}).
		AddRow("id-1", "hello", "1.2.3.4", base.UnixMicro())
	mock.ExpectQuery(`SELECT id, prompt, client_ip, created_at FROM prompts ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(MaxLimit).
		WillReturnRows(rows)
	got, err := s.Recent(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Timestamp.Equal(base))

	mock.ExpectClose()
	require.NoError(t, s.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	mock.ExpectClose()

	_, err = newSQLStore(context.Background(), db, postgresDialect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres schema")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRetriesFailedOpen(t *testing.T) {
	calls := 0
	h := &Handle{dsn: "x", open: func(context.Context, string) (Store, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("database is down")
		}
		return NewMemory(), nil
	}}
	ctx := context.Background()

	require.Error(t, h.Save(ctx, models.PromptEntry{Prompt: "lost"}))
	require.NoError(t, h.Save(ctx, models.PromptEntry{Prompt: "kept"}))
	got, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Prompt)
	assert.Equal(t, 2, calls, "a successful open is reused")

	require.NoError(t, h.Close())
	_, err = h.Recent(ctx, 10)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHandleCloseWithoutOpen(t *testing.T) {
	h := NewHandle("memory")
	require.NoError(t, h.Close())
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, clampLimit(0))
	assert.Equal(t, DefaultLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxLimit, clampLimit(MaxLimit+1))
}
