package pgx

import (
	"context"
	"errors"

	"github.com/commscope/backend/internal/util"
	"github.com/commscope/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

const jobColumns = `public_id, kind, status, options, result_key, error, created_at, updated_at`

func (s *DBStorage) CreateJob(ctx context.Context, job store.Job) error {
	if job.Status == "" {
		job.Status = store.JobPending
	}
	options := []byte(job.Options)
	if len(options) == 0 {
		options = []byte("{}")
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO jobs (public_id, kind, status, options)
		VALUES ($1, $2, $3, $4)`,
		job.ID, job.Kind, string(job.Status), options,
	)
	return err
}

func (s *DBStorage) GetJob(ctx context.Context, id string) (store.Job, error) {
	var (
		job     store.Job
		status  string
		options []byte
	)
	err := s.conn.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE public_id = $1`, id).Scan(
		&job.ID, &job.Kind, &status, &options, &job.ResultKey, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.Job{}, store.ErrJobNotFound
	}
	if err != nil {
		return store.Job{}, err
	}
	job.Status = store.JobStatus(status)
	job.Options = options
	return job, nil
}

func (s *DBStorage) move(ctx context.Context, id string, to store.JobStatus, resultKey, reason string) error {
	from := make([]string, 0, 2)
	for _, st := range store.From(to) {
		from = append(from, string(st))
	}
	tag, err := s.conn.Exec(ctx, `
		UPDATE jobs
		SET status = $2,
		    result_key = CASE WHEN $3 = '' THEN result_key ELSE $3 END,
		    error = CASE WHEN $4 = '' THEN error ELSE $4 END,
		    updated_at = now()
		WHERE public_id = $1 AND status = ANY($5)`,
		id, string(to), resultKey, util.SanitizePostgresText(reason), from,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrJobNotFound
	}
	return nil
}

func (s *DBStorage) StartJob(ctx context.Context, id string) error {
	return s.move(ctx, id, store.JobRunning, "", "")
}

func (s *DBStorage) CompleteJob(ctx context.Context, id string, resultKey string) error {
	return s.move(ctx, id, store.JobCompleted, resultKey, "")
}

func (s *DBStorage) FailJob(ctx context.Context, id string, reason string) error {
	return s.move(ctx, id, store.JobFailed, "", reason)
}
