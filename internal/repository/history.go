package repository

import (
	"context"

	"ayload-server/internal/domain"
)

// HistoryRepository archives terminal job outcomes. Live job state stays in
// memory; only the audit trail is persisted.
type HistoryRepository interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, entry domain.HistoryEntry) error
	List(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}
