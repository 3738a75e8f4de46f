// Package storage persists monthly buckets in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fanrevenue/internal/bucket"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

var _ bucket.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load returns every bucket of the creator, newest month first.
func (r *SQLiteRepository) Load(ctx context.Context, creatorID string) ([]bucket.MonthlyBucket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM monthly_buckets
		WHERE creator_id = ?
		ORDER BY year DESC, month DESC`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("query buckets for %s: %w", creatorID, err)
	}
	defer rows.Close()

	out := make([]bucket.MonthlyBucket, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		b, err := bucket.DecodeSnapshot(payload)
		if err != nil {
			return nil, fmt.Errorf("load buckets for %s: %w", creatorID, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return out, nil
}

// Save inserts or replaces the bucket row.
func (r *SQLiteRepository) Save(ctx context.Context, b bucket.MonthlyBucket) error {
	payload, err := bucket.EncodeSnapshot(b)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO monthly_buckets (
			creator_id, year, month, display_name, payload,
			total_revenue, transaction_count, uploaded_at, last_modified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (creator_id, year, month) DO UPDATE SET
			display_name = excluded.display_name,
			payload = excluded.payload,
			total_revenue = excluded.total_revenue,
			transaction_count = excluded.transaction_count,
			uploaded_at = excluded.uploaded_at,
			last_modified = excluded.last_modified`,
		b.CreatorID, b.Year, b.Month, b.DisplayName, payload,
		b.Analysis.TotalRevenue, b.Analysis.TotalTransactions,
		b.UploadedAt.UTC().Format(timeLayout), b.LastModified.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save bucket %s: %w", b.Key(), err)
	}

	slog.DebugContext(ctx, "Bucket saved to SQLite",
		"creator_id", b.CreatorID,
		"period", b.Key().Period(),
		"records", len(b.Records))
	return nil
}

// Delete removes the bucket row. Deleting a missing row is not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, key bucket.Key) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM monthly_buckets WHERE creator_id = ? AND year = ? AND month = ?`,
		key.CreatorID, key.Year, key.Month)
	if err != nil {
		return fmt.Errorf("delete bucket %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.DebugContext(ctx, "Bucket delete matched no rows", "creator_id", key.CreatorID, "period", key.Period())
	}
	return nil
}

// Creators lists every creator with at least one bucket.
func (r *SQLiteRepository) Creators(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT creator_id FROM monthly_buckets ORDER BY creator_id`)
	if err != nil {
		return nil, fmt.Errorf("query creators: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan creator: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
