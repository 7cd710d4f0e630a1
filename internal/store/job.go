package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/db"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

type jobStore struct {
	db db.DBTX
}

func newJobStore(conn db.DBTX) JobStore {
	return &jobStore{db: conn}
}

const jobColumns = `id, status, params, progress, error, created_at, updated_at`

func (s *jobStore) Create(ctx context.Context, job *model.Job) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	progress, err := json.Marshal(job.Progress)
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO collection_jobs (id, status, params, progress, error)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		job.ID, string(job.Status), params, progress, job.Error)

	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

func (s *jobStore) Get(ctx context.Context, id int64) (*model.Job, error) {
	row := s.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM collection_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *jobStore) Update(ctx context.Context, id int64, upd JobUpdate) error {
	var (
		status   *string
		params   []byte
		progress []byte
		err      error
	)
	if upd.Status != nil {
		v := string(*upd.Status)
		status = &v
	}
	if upd.Params != nil {
		if params, err = json.Marshal(upd.Params); err != nil {
			return fmt.Errorf("encoding params: %w", err)
		}
	}
	if upd.Progress != nil {
		if progress, err = json.Marshal(upd.Progress); err != nil {
			return fmt.Errorf("encoding progress: %w", err)
		}
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE collection_jobs SET
			status     = COALESCE($2::text, status),
			params     = COALESCE($3::jsonb, params),
			progress   = COALESCE($4::jsonb, progress),
			error      = COALESCE($5::text, error),
			updated_at = now()
		WHERE id = $1`,
		id, status, params, progress, upd.Error)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *jobStore) ListByState(ctx context.Context, states []model.State, limit int32) ([]model.Job, error) {
	names := make([]string, len(states))
	for i, st := range states {
		names[i] = string(st)
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+jobColumns+`
		FROM collection_jobs
		WHERE cardinality($1::text[]) = 0 OR status = ANY($1::text[])
		ORDER BY updated_at ASC, id ASC
		LIMIT $2`,
		names, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		job       model.Job
		status    string
		params    []byte
		progress  []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&job.ID, &status, &params, &progress, &job.Error, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &job.Params); err != nil {
		return nil, fmt.Errorf("decoding params of job %d: %w", job.ID, err)
	}
	if err := json.Unmarshal(progress, &job.Progress); err != nil {
		return nil, fmt.Errorf("decoding progress of job %d: %w", job.ID, err)
	}
	job.Status = model.State(status)
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt
	return &job, nil
}
