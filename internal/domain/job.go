package domain

import "time"

type JobState string

const (
	JobStatePending     JobState = "pending"
	JobStateResolving   JobState = "resolving"
	JobStateDownloading JobState = "downloading"
	JobStateCompleted   JobState = "completed"
	JobStateFailed      JobState = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Job represents one tracked asynchronous download request. The job's own
// fetch task is the only writer to State, Progress, OutputPath and
// ErrorDetail for the job's lifetime.
type Job struct {
	ID             string
	URL            string
	Format         string
	Quality        string
	State          JobState
	Progress       int
	TotalBytes     int64
	OutputPath     string
	ErrorDetail    string
	RemoteLocation string
	CreatedAt      time.Time
}

// HistoryEntry archives the terminal outcome of one job.
type HistoryEntry struct {
	ID             string
	URL            string
	Format         string
	Quality        string
	State          JobState
	TotalBytes     int64
	OutputPath     string
	ErrorDetail    string
	RemoteLocation string
	CreatedAt      time.Time
	FinishedAt     time.Time
}
