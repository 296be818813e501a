package repository

import "ayload-server/internal/domain"

// JobStore is the process-wide job table. Implementations must support
// concurrent insert-by-new-job and read-by-any-job; reads return snapshot
// copies so status queries never observe a half-applied update.
type JobStore interface {
	Insert(job *domain.Job) error
	Get(id string) (domain.Job, bool)
	Update(id string, fn func(*domain.Job)) bool
	List() []domain.Job
}
