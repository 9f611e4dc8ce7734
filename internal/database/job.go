package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crosslister/product-scraper/internal/models"
)

// JobRepository tracks scrape and post attempts.
type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `
	id, product_id, target_url, type, status, result, error,
	created_at, started_at, completed_at`

func (r *JobRepository) Create(ctx context.Context, productID uuid.UUID, targetURL string, jobType models.JobType) (*models.Job, error) {
	job := &models.Job{
		ID:        uuid.New(),
		ProductID: productID,
		TargetURL: targetURL,
		Type:      jobType,
		Status:    models.JobPending,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO jobs (id, product_id, target_url, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		job.ID, job.ProductID, job.TargetURL, job.Type, job.Status, job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *JobRepository) List(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimPending picks up the oldest pending job and marks it running. Row
// locking keeps concurrent workers from claiming the same job.
func (r *JobRepository) ClaimPending(ctx context.Context, jobType models.JobType) (*models.Job, error) {
	var job *models.Job

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			SELECT ` + jobColumns + `
			FROM jobs
			WHERE status = $1 AND type = $2
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED`

		var err error
		job, err = r.scanOne(tx.QueryRow(ctx, query, models.JobPending, jobType))
		if err != nil {
			return err
		}

		now := time.Now()
		job.Status = models.JobRunning
		job.StartedAt = &now

		_, err = tx.Exec(ctx,
			`UPDATE jobs SET status = $1, started_at = $2 WHERE id = $3`,
			job.Status, job.StartedAt, job.ID)
		return err
	})

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

// CompleteWithTx finishes a job inside the caller's transaction so the job
// outcome and the product update commit together.
func (r *JobRepository) CompleteWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, result []byte) error {
	now := time.Now()
	tag, err := tx.Exec(ctx,
		`UPDATE jobs SET status = $1, result = $2, completed_at = $3 WHERE id = $4`,
		models.JobCompleted, result, now, id)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

// FailWithTx records the failure with the error text exactly as produced.
func (r *JobRepository) FailWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, jobErr string) error {
	now := time.Now()
	tag, err := tx.Exec(ctx,
		`UPDATE jobs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		models.JobFailed, jobErr, now, id)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

// CompleteOpenWithTx moves a product's pending or running jobs of the
// given type to completed inside the caller's transaction. Having no open
// job is not an error; a posting may be confirmed without one.
func (r *JobRepository) CompleteOpenWithTx(ctx context.Context, tx pgx.Tx, productID uuid.UUID, jobType models.JobType, result []byte) error {
	_, err := tx.Exec(ctx,
		`UPDATE jobs SET status = $1, result = $2, completed_at = $3
		 WHERE product_id = $4 AND type = $5 AND status IN ($6, $7)`,
		models.JobCompleted, result, time.Now(),
		productID, jobType, models.JobPending, models.JobRunning)
	if err != nil {
		return fmt.Errorf("failed to complete open jobs: %w", err)
	}
	return nil
}

// FailOpenWithTx is the failure counterpart of CompleteOpenWithTx.
func (r *JobRepository) FailOpenWithTx(ctx context.Context, tx pgx.Tx, productID uuid.UUID, jobType models.JobType, jobErr string) error {
	_, err := tx.Exec(ctx,
		`UPDATE jobs SET status = $1, error = $2, completed_at = $3
		 WHERE product_id = $4 AND type = $5 AND status IN ($6, $7)`,
		models.JobFailed, jobErr, time.Now(),
		productID, jobType, models.JobPending, models.JobRunning)
	if err != nil {
		return fmt.Errorf("failed to fail open jobs: %w", err)
	}
	return nil
}

func (r *JobRepository) scanOne(row pgx.Row) (*models.Job, error) {
	job := &models.Job{}
	err := row.Scan(
		&job.ID, &job.ProductID, &job.TargetURL, &job.Type, &job.Status,
		&job.Result, &job.Error, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return job, nil
}
