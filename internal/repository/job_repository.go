// internal/repository/job_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

type JobRepositoryInterface interface {
	Create(j *model.Job) error
	MarkRunning(id string) error
	Finish(id string, status model.JobStatus) error
	AppendLog(id, line string) error
	GetByID(id string) (*model.Job, error)
}

type JobRepository struct {
	DB *sql.DB
}

func (r *JobRepository) Create(j *model.Job) error {
	if j.ID == "" {
		j.ID = NewULID()
	}
	j.Status = model.JobPending
	j.CreatedAt = time.Now()
	query := `
        INSERT INTO jobs (id, kind, parent_job_id, status, log, created_at)
        VALUES ($1, $2, $3, $4, '', $5)
    `
	_, err := r.DB.Exec(query, j.ID, j.Kind, j.ParentJobID, j.Status, j.CreatedAt)
	return err
}

func (r *JobRepository) MarkRunning(id string) error {
	_, err := r.DB.Exec(`UPDATE jobs SET status='running' WHERE id=$1`, id)
	return err
}

func (r *JobRepository) Finish(id string, status model.JobStatus) error {
	_, err := r.DB.Exec(`UPDATE jobs SET status=$1, finished_at=$2 WHERE id=$3`, status, time.Now(), id)
	return err
}

// AppendLog adds one readable line to the job's log. Used by child sends to
// report per-recipient failures on their parent job.
func (r *JobRepository) AppendLog(id, line string) error {
	_, err := r.DB.Exec(`UPDATE jobs SET log = log || $1 || E'\n' WHERE id=$2`, line, id)
	return err
}

func (r *JobRepository) GetByID(id string) (*model.Job, error) {
	query := `SELECT id, kind, parent_job_id, status, log, created_at, finished_at FROM jobs WHERE id=$1`
	var j model.Job
	err := r.DB.QueryRow(query, id).Scan(&j.ID, &j.Kind, &j.ParentJobID, &j.Status, &j.Log, &j.CreatedAt, &j.FinishedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &j, nil
}

var _ JobRepositoryInterface = (*JobRepository)(nil)
