package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRegistry persists job records in PostgreSQL so a crash
// mid-pipeline leaves the store reflecting the last committed stage.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and ensures the jobs table exists.
func Connect(ctx context.Context, databaseURL string) (*PostgresRegistry, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &PostgresRegistry{pool: pool}
	if err := r.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the connection pool.
func (r *PostgresRegistry) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *PostgresRegistry) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id             UUID PRIMARY KEY,
			status         TEXT NOT NULL,
			input_text     TEXT NOT NULL,
			stage_results  JSONB NOT NULL DEFAULT '[]',
			failure        JSONB,
			artifact_paths JSONB,
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure jobs table: %w", err)
	}
	return nil
}

// Create inserts a new job record.
func (r *PostgresRegistry) Create(ctx context.Context, j *Job) error {
	results, failure, artifacts, err := marshalJobFields(j)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO jobs (id, status, input_text, stage_results, failure, artifact_paths, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		j.ID, j.Status, j.InputText, results, failure, artifacts, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Get retrieves one job, or *NotFoundError.
func (r *PostgresRegistry) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, status, input_text, stage_results, failure, artifact_paths, created_at, updated_at
		 FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// Update commits the whole record in one statement, keeping status and
// stage results atomic with respect to readers.
func (r *PostgresRegistry) Update(ctx context.Context, j *Job) error {
	results, failure, artifacts, err := marshalJobFields(j)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $2, stage_results = $3, failure = $4, artifact_paths = $5, updated_at = $6
		 WHERE id = $1`,
		j.ID, j.Status, results, failure, artifacts, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{ID: j.ID}
	}
	return nil
}

// List returns all jobs, newest first.
func (r *PostgresRegistry) List(ctx context.Context) ([]*Job, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, status, input_text, stage_results, failure, artifact_paths, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var results, failure, artifacts []byte
	if err := row.Scan(&j.ID, &j.Status, &j.InputText, &results, &failure, &artifacts, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	if results != nil {
		if err := json.Unmarshal(results, &j.StageResults); err != nil {
			return nil, fmt.Errorf("failed to decode stage results: %w", err)
		}
	}
	if failure != nil {
		if err := json.Unmarshal(failure, &j.Failure); err != nil {
			return nil, fmt.Errorf("failed to decode failure: %w", err)
		}
	}
	if artifacts != nil {
		if err := json.Unmarshal(artifacts, &j.ArtifactPaths); err != nil {
			return nil, fmt.Errorf("failed to decode artifact paths: %w", err)
		}
	}
	return &j, nil
}

func marshalJobFields(j *Job) (results, failure, artifacts []byte, err error) {
	if j.StageResults == nil {
		results = []byte("[]")
	} else if results, err = json.Marshal(j.StageResults); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal stage results: %w", err)
	}
	if j.Failure != nil {
		if failure, err = json.Marshal(j.Failure); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal failure: %w", err)
		}
	}
	if j.ArtifactPaths != nil {
		if artifacts, err = json.Marshal(j.ArtifactPaths); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal artifact paths: %w", err)
		}
	}
	return results, failure, artifacts, nil
}
