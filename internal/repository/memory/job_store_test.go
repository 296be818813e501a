package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayload-server/internal/domain"
)

func TestInsertAndGetReturnsSnapshot(t *testing.T) {
	s := NewJobStore()

	job := &domain.Job{ID: "a", URL: "https://example.test/v1", State: domain.JobStatePending, CreatedAt: time.Now()}
	require.NoError(t, s.Insert(job))

	// Mutating the caller's struct after insert must not leak into the store.
	job.State = domain.JobStateFailed

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, domain.JobStatePending, got.State)

	// Mutating a returned snapshot must not leak either.
	got.State = domain.JobStateCompleted
	again, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, domain.JobStatePending, again.State)
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	s := NewJobStore()

	require.NoError(t, s.Insert(&domain.Job{ID: "a"}))
	assert.Error(t, s.Insert(&domain.Job{ID: "a"}))
}

func TestGetUnknownID(t *testing.T) {
	s := NewJobStore()

	_, ok := s.Get("missing")
	assert.False(t, ok)
}

func TestUpdateAppliesMutation(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Insert(&domain.Job{ID: "a", State: domain.JobStatePending}))

	ok := s.Update("a", func(j *domain.Job) {
		j.State = domain.JobStateDownloading
		j.Progress = 42
	})
	require.True(t, ok)

	got, _ := s.Get("a")
	assert.Equal(t, domain.JobStateDownloading, got.State)
	assert.Equal(t, 42, got.Progress)

	assert.False(t, s.Update("missing", func(j *domain.Job) {}))
}

func TestListOrdersByCreation(t *testing.T) {
	s := NewJobStore()
	base := time.Now()
	require.NoError(t, s.Insert(&domain.Job{ID: "b", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, s.Insert(&domain.Job{ID: "a", CreatedAt: base}))

	jobs := s.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].ID)
	assert.Equal(t, "b", jobs[1].ID)
}

func TestConcurrentAccess(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Insert(&domain.Job{ID: "shared"}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Update("shared", func(j *domain.Job) { j.Progress++ })
		}()
		go func() {
			defer wg.Done()
			s.Get("shared")
		}()
	}
	wg.Wait()

	got, _ := s.Get("shared")
	assert.Equal(t, 16, got.Progress)
}
