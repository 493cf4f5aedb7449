package users

import (
	"context"
	"embed"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// Migrations holds the goose migrations for the users table under
// "migrations".
//
//go:embed migrations/*.sql
var Migrations embed.FS

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores users as JSONB documents.
type PostgresRepository struct {
	db DB
}

var _ command.Repository[User] = (*PostgresRepository)(nil)

// NewPostgresRepository stores users in the users table of db.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const (
	insertUser = `INSERT INTO users (id, app_id, version, data) VALUES ($1, $2, $3, $4)`
	selectUser = `SELECT version, data FROM users WHERE id = $1`
	updateUser = `UPDATE users SET version = $1, data = $2, updated_at = now() WHERE id = $3 AND version = $4`
	existsUser = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
)

// Create inserts u at version 1.
func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" || u.AppID == "" {
		return User{}, ErrInvalidUser
	}
	u = u.WithVersion(1)

	data, err := json.Marshal(u)
	if err != nil {
		return User{}, errors.Join(ErrFailedToEncode, err)
	}
	if _, err := r.db.Exec(ctx, insertUser, u.ID, u.AppID, u.Version, data); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return User{}, command.ErrAlreadyExists
		}
		return User{}, errors.Join(ErrFailedToSave, err)
	}
	return u, nil
}

// Get returns command.ErrNotFound for an unknown id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (User, error) {
	var (
		version int64
		data    []byte
	)
	if err := r.db.QueryRow(ctx, selectUser, id).Scan(&version, &data); err != nil {
		if pg.IsNotFoundError(err) {
			return User{}, command.ErrNotFound
		}
		return User{}, errors.Join(ErrFailedToLoad, err)
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return User{}, errors.Join(ErrFailedToDecode, err)
	}
	u.Version = version
	return u, nil
}

func (r *PostgresRepository) Save(ctx context.Context, next User, expectedVersion int64) error {
	data, err := json.Marshal(next)
	if err != nil {
		return errors.Join(ErrFailedToEncode, err)
	}

	tag, err := r.db.Exec(ctx, updateUser, next.Version, data, next.ID, expectedVersion)
	if err != nil {
		return errors.Join(ErrFailedToSave, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, existsUser, next.ID).Scan(&exists); err != nil {
		return errors.Join(ErrFailedToLoad, err)
	}
	if !exists {
		return command.ErrNotFound
	}
	return command.ErrVersionConflict
}
