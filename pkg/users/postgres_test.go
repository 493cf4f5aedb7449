package users_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/users"
)

type row struct {
	appID   string
	version int64
	data    []byte
}

// fakeDB interprets the repository's statements against a map.
type fakeDB struct {
	mu   sync.Mutex
	rows map[string]row
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
		db.rows[id] = row{appID: args[1].(string), version: args[2].(int64), data: args[3].([]byte)}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "UPDATE"):
		id := args[2].(string)
		cur, ok := db.rows[id]
		if !ok || cur.version != args[3].(int64) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		db.rows[id] = row{appID: cur.appID, version: args[0].(int64), data: args[1].([]byte)}
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
	db := &fakeDB{rows: make(map[string]row)}
	repo := users.NewPostgresRepository(db)

	_, err := repo.Create(ctx, users.User{ID: "u1"})
	assert.ErrorIs(t, err, users.ErrInvalidUser)

	created, err := repo.Create(ctx, users.New("app-1", "u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, "app-1", db.rows["u1"].appID)

	_, err = repo.Create(ctx, users.New("app-1", "u1"))
	assert.ErrorIs(t, err, command.ErrAlreadyExists)

	next, err := command.Update[users.User](ctx, repo, "u1", users.UpdateContact{EmailAddress: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Version)

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.EmailAddress)
	assert.Equal(t, int64(2), got.Version)

	assert.ErrorIs(t, repo.Save(ctx, got.WithVersion(3), 1), command.ErrVersionConflict)
	assert.ErrorIs(t, repo.Save(ctx, users.User{ID: "nope", Version: 2}, 1), command.ErrNotFound)

	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, command.ErrNotFound)
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	data, err := users.Migrations.ReadFile("migrations/00001_create_users.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS users")
}
