package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLBackend stores each collection as one row of the collections table.
// Works against Postgres and SQLite; queries are rebound per driver.
type SQLBackend struct {
	db *sqlx.DB
}

func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (b *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var data string
	query := b.db.Rebind(`SELECT data FROM collections WHERE name = ?`)
	if err := b.db.GetContext(ctx, &data, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(data), nil
}

func (b *SQLBackend) Put(ctx context.Context, key string, data []byte) error {
	query := b.db.Rebind(`
		INSERT INTO collections (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name)
		DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`)
	_, err := b.db.ExecContext(ctx, query, key, string(data), time.Now().Unix())
	return err
}

func (b *SQLBackend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, b.db.Rebind(`DELETE FROM collections WHERE name = ?`), key)
	return err
}
