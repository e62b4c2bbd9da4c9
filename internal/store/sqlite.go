package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jeefy/recordchat/internal/models"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS records (
	id    INTEGER PRIMARY KEY,
	name  TEXT NOT NULL,
	value TEXT NOT NULL
)`

// SQLiteStore is a single-file embedded backend for running without a Mongo
// server.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open %s: %w", path, err)
	}
	// one writer keeps SQLITE_BUSY out of concurrent updates
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.Record, error) {
	return s.query(ctx, `SELECT id, name, value FROM records ORDER BY id`)
}

func (s *SQLiteStore) Search(ctx context.Context, q string, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	qlow := strings.ToLower(q)
	return s.query(ctx, `SELECT id, name, value FROM records
		WHERE instr(lower(name), ?) > 0 OR instr(lower(value), ?) > 0
		ORDER BY id LIMIT ?`, qlow, qlow, limit)
}

func (s *SQLiteStore) query(ctx context.Context, stmt string, args ...interface{}) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()
	out := []models.Record{}
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Value); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.Record, error) {
	var r models.Record
	err := s.db.QueryRowContext(ctx, `SELECT id, name, value FROM records WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &r.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %d: %w", id, err)
	}
	return &r, nil
}

func (s *SQLiteStore) Update(ctx context.Context, rec models.Record) (*models.Record, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE records SET name = ?, value = ? WHERE id = ?`,
		rec.Name, rec.Value, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite update %d: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite update %d: %w", rec.ID, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, rec.ID)
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite count: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) InsertMany(ctx context.Context, recs []models.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (id, name, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Name, r.Value); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("sqlite insert %d: %w", r.ID, ErrDuplicateID)
			}
			return fmt.Errorf("sqlite insert %d: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("sqlite delete all: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close(ctx context.Context) error { return s.db.Close() }
