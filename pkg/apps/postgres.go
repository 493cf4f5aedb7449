package apps

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

// Migrations holds the goose migrations for the apps table under
// "migrations".
//
//go:embed migrations/*.sql
var Migrations embed.FS

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores apps as JSONB documents.
type PostgresRepository struct {
	db DB
}

var _ command.Repository[App] = (*PostgresRepository)(nil)

// NewPostgresRepository stores apps in the apps table of db.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const (
	insertApp = `INSERT INTO apps (id, version, data) VALUES ($1, $2, $3)`
	selectApp = `SELECT version, data FROM apps WHERE id = $1`
	updateApp = `UPDATE apps SET version = $1, data = $2, updated_at = now() WHERE id = $3 AND version = $4`
	existsApp = `SELECT EXISTS (SELECT 1 FROM apps WHERE id = $1)`
)

// Create inserts app at version 1.
func (r *PostgresRepository) Create(ctx context.Context, app App) (App, error) {
	if app.ID == "" {
		return App{}, ErrInvalidApp
	}
	app = app.WithVersion(1)

	data, err := json.Marshal(app)
	if err != nil {
		return App{}, errors.Join(ErrFailedToEncode, err)
	}

	if _, err := r.db.Exec(ctx, insertApp, app.ID, app.Version, data); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return App{}, command.ErrAlreadyExists
		}
		return App{}, errors.Join(ErrFailedToSave, err)
	}
	return app, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (App, error) {
	var (
		version int64
		data    []byte
	)
	if err := r.db.QueryRow(ctx, selectApp, id).Scan(&version, &data); err != nil {
		if pg.IsNotFoundError(err) {
			return App{}, command.ErrNotFound
		}
		return App{}, errors.Join(ErrFailedToLoad, err)
	}

	var app App
	if err := json.Unmarshal(data, &app); err != nil {
		return App{}, errors.Join(ErrFailedToDecode, err)
	}
	// The column is authoritative.
	app.Version = version
	return app, nil
}

// Save inserts a new app or updates one still at expectedVersion.
func (r *PostgresRepository) Save(ctx context.Context, next App, expectedVersion int64) error {
	data, err := json.Marshal(next)
	if err != nil {
		return errors.Join(ErrFailedToEncode, err)
	}

	tag, err := r.db.Exec(ctx, updateApp, next.Version, data, next.ID, expectedVersion)
	if err != nil {
		return errors.Join(ErrFailedToSave, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, existsApp, next.ID).Scan(&exists); err != nil {
		return errors.Join(ErrFailedToLoad, err)
	}
	if !exists {
		return command.ErrNotFound
	}
	return command.ErrVersionConflict
}
