package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayload-server/internal/domain"
)

func newTestRepository(t *testing.T) *HistoryRepository {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewHistoryRepository(db).(*HistoryRepository)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestRecordAndListRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Record(ctx, domain.HistoryEntry{
		ID:         "job-1",
		URL:        "https://example.test/v1",
		Format:     "MP4",
		Quality:    "720p",
		State:      domain.JobStateCompleted,
		TotalBytes: 1024,
		OutputPath: "/downloads/vid123_mp4_1.mp4",
		CreatedAt:  now.Add(-time.Minute),
		FinishedAt: now.Add(-30 * time.Second),
	}))
	require.NoError(t, repo.Record(ctx, domain.HistoryEntry{
		ID:          "job-2",
		URL:         "https://example.test/v2",
		Format:      "MP4",
		State:       domain.JobStateFailed,
		ErrorDetail: "resolution failed: video unavailable",
		CreatedAt:   now.Add(-time.Minute),
		FinishedAt:  now,
	}))

	entries, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Most recently finished first.
	assert.Equal(t, "job-2", entries[0].ID)
	assert.Equal(t, domain.JobStateFailed, entries[0].State)
	assert.Equal(t, "resolution failed: video unavailable", entries[0].ErrorDetail)

	assert.Equal(t, "job-1", entries[1].ID)
	assert.Equal(t, domain.JobStateCompleted, entries[1].State)
	assert.Equal(t, int64(1024), entries[1].TotalBytes)
	assert.Equal(t, "/downloads/vid123_mp4_1.mp4", entries[1].OutputPath)
}

func TestRecordUpsertsByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	entry := domain.HistoryEntry{
		ID:         "job-1",
		URL:        "https://example.test/v1",
		Format:     "MP4",
		State:      domain.JobStateCompleted,
		CreatedAt:  time.Now(),
		FinishedAt: time.Now(),
	}
	require.NoError(t, repo.Record(ctx, entry))

	entry.RemoteLocation = "s3://bucket/job-1/vid.mp4"
	require.NoError(t, repo.Record(ctx, entry))

	entries, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s3://bucket/job-1/vid.mp4", entries[0].RemoteLocation)
}

func TestListLimit(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, domain.HistoryEntry{
			ID:         string(rune('a' + i)),
			URL:        "https://example.test/v",
			Format:     "MP4",
			State:      domain.JobStateCompleted,
			CreatedAt:  time.Now(),
			FinishedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := repo.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
