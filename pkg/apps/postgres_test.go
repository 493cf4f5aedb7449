package apps_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/apps"
	"github.com/dmitrymomot/notifykit/pkg/command"
)

type row struct {
	version int64
	data    []byte
}

// fakeDB interprets the repository's statements against a map.
type fakeDB struct {
	mu   sync.Mutex
	rows map[string]row
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: make(map[string]row)}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	switch {
	case strings.HasPrefix(sql, "INSERT"):
		id := args[0].(string)
		if _, ok := db.rows[id]; ok {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
		}
		db.rows[id] = row{version: args[1].(int64), data: args[2].([]byte)}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "UPDATE"):
		id := args[2].(string)
		cur, ok := db.rows[id]
		if !ok || cur.version != args[3].(int64) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		db.rows[id] = row{version: args[0].(int64), data: args[1].([]byte)}
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	panic("unexpected statement: " + sql)
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.rows[args[0].(string)]
	switch {
	case strings.Contains(sql, "EXISTS"):
		return scanFunc(func(dest ...any) error {
			*dest[0].(*bool) = ok
			return nil
		})
	case !ok:
		return scanFunc(func(...any) error { return pgx.ErrNoRows })
	default:
		return scanFunc(func(dest ...any) error {
			*dest[0].(*int64) = r.version
			*dest[1].(*[]byte) = r.data
			return nil
		})
	}
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

func TestPostgresRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := apps.NewPostgresRepository(newFakeDB())

	created, err := repo.Create(ctx, apps.New("app-1", "Acme"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	_, err = repo.Create(ctx, apps.New("app-1", "Acme"))
	assert.ErrorIs(t, err, command.ErrAlreadyExists)

	_, err = repo.Create(ctx, apps.App{})
	assert.ErrorIs(t, err, apps.ErrInvalidApp)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, command.ErrNotFound)

	next, err := command.Update[apps.App](ctx, repo, "app-1", apps.UpdateEmailVerificationStatus{Status: apps.EmailPending})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Version)

	got, err := repo.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, apps.EmailPending, got.EmailVerificationStatus)
	assert.Equal(t, "Acme", got.Name)

	stale := got.WithVersion(3)
	assert.ErrorIs(t, repo.Save(ctx, stale, 1), command.ErrVersionConflict)
	assert.ErrorIs(t, repo.Save(ctx, apps.App{ID: "nope", Version: 2}, 1), command.ErrNotFound)
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	data, err := apps.Migrations.ReadFile("migrations/00001_create_apps.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS apps")
}
