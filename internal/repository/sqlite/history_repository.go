package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ayload-server/internal/domain"
	"ayload-server/internal/repository"
)

const createDownloadsTable = `
CREATE TABLE IF NOT EXISTS downloads (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	format TEXT NOT NULL,
	quality TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL,
	total_bytes INTEGER NOT NULL DEFAULT 0,
	output_path TEXT NOT NULL DEFAULT '',
	error_detail TEXT NOT NULL DEFAULT '',
	remote_location TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);
`

// HistoryRepository persists terminal download outcomes in sqlite.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createDownloadsTable); err != nil {
		return fmt.Errorf("create downloads table: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Record(ctx context.Context, entry domain.HistoryEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO downloads (id, url, format, quality, state, total_bytes, output_path, error_detail, remote_location, created_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	state=excluded.state,
	total_bytes=excluded.total_bytes,
	output_path=excluded.output_path,
	error_detail=excluded.error_detail,
	remote_location=excluded.remote_location,
	finished_at=excluded.finished_at`,
		entry.ID,
		entry.URL,
		entry.Format,
		entry.Quality,
		string(entry.State),
		entry.TotalBytes,
		entry.OutputPath,
		entry.ErrorDetail,
		entry.RemoteLocation,
		entry.CreatedAt.UTC(),
		entry.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert download record: %w", err)
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, url, format, quality, state, total_bytes, output_path, error_detail, remote_location, created_at, finished_at
FROM downloads
ORDER BY finished_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			entry      domain.HistoryEntry
			state      string
			createdAt  time.Time
			finishedAt time.Time
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.URL,
			&entry.Format,
			&entry.Quality,
			&state,
			&entry.TotalBytes,
			&entry.OutputPath,
			&entry.ErrorDetail,
			&entry.RemoteLocation,
			&createdAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan download record: %w", err)
		}
		entry.State = domain.JobState(state)
		entry.CreatedAt = createdAt.Local()
		entry.FinishedAt = finishedAt.Local()
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
