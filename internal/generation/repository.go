package generation

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job tracks one media generation for one shot.
type Job struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	Status       string    `json:"status"`
	StoryboardID string    `json:"storyboard_id"`
	SceneID      string    `json:"scene_id"`
	ShotID       string    `json:"shot_id"`
	Prompt       string    `json:"prompt"`
	Params       Envelope  `json:"params"`
	RemoteID     string    `json:"remote_id,omitempty"`
	ResultURL    string    `json:"result_url,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Done reports whether the job reached a terminal status.
func (j *Job) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

type Repository interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListJobsByStatus(ctx context.Context, status string) ([]*Job, error)
	LatestJobForShot(ctx context.Context, shotID string) (*Job, error)
	MarkSubmitted(ctx context.Context, id, remoteID string) error
	CompleteJob(ctx context.Context, id, resultURL string) error
	FailJob(ctx context.Context, id, errorMsg string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const jobColumns = `id, kind, status, storyboard_id, scene_id, shot_id, prompt, params, remote_id, result_url, error, created_at, updated_at`

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO generation_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, string(j.Kind), j.Status, j.StoryboardID, j.SceneID, j.ShotID, j.Prompt, j.Params.marshal(),
		nullString(j.RemoteID), nullString(j.ResultURL), nullString(j.Error),
		j.CreatedAt.UTC().Format(time.RFC3339), j.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryJobs(ctx, `SELECT `+jobColumns+` FROM generation_jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

func (r *SQLiteRepository) ListJobsByStatus(ctx context.Context, status string) ([]*Job, error) {
	return r.queryJobs(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE status = ? ORDER BY created_at ASC, rowid ASC`, status)
}

func (r *SQLiteRepository) LatestJobForShot(ctx context.Context, shotID string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM generation_jobs WHERE shot_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, shotID)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (r *SQLiteRepository) MarkSubmitted(ctx context.Context, id, remoteID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE generation_jobs SET status = ?, remote_id = ?, updated_at = ? WHERE id = ?
	`, JobStatusRunning, remoteID, now(), id)
	return err
}

func (r *SQLiteRepository) CompleteJob(ctx context.Context, id, resultURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE generation_jobs SET status = ?, result_url = ?, error = NULL, updated_at = ? WHERE id = ?
	`, JobStatusCompleted, nullString(resultURL), now(), id)
	return err
}

func (r *SQLiteRepository) FailJob(ctx context.Context, id, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE generation_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, JobStatusFailed, errorMsg, now(), id)
	return err
}

func (r *SQLiteRepository) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*Job, error) {
	var j Job
	var kind, params, createdAt, updatedAt string
	var remoteID, resultURL, errMsg sql.NullString

	err := s.Scan(&j.ID, &kind, &j.Status, &j.StoryboardID, &j.SceneID, &j.ShotID, &j.Prompt, &params,
		&remoteID, &resultURL, &errMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	j.Kind = Kind(kind)
	j.Params = unmarshalEnvelope(params)
	j.RemoteID = remoteID.String
	j.ResultURL = resultURL.String
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
