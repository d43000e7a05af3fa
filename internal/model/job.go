// internal/model/job.go
package model

import "time"

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is the bookkeeping row behind one queued unit of work. A mass-fanout job
// acts as the parent of its per-recipient channel-send children: child send
// failures append lines to the parent's log instead of failing the child, so an
// operator can inspect which recipients failed inside one aggregate job.
type Job struct {
	ID          string     `db:"id" json:"id"` // ULID
	Kind        string     `db:"kind" json:"kind"`
	ParentJobID string     `db:"parent_job_id" json:"parent_job_id,omitempty"`
	Status      JobStatus  `db:"status" json:"status"`
	Log         string     `db:"log" json:"log"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	FinishedAt  *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}
