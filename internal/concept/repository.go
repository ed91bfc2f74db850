package concept

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Draft is the concept text a user is developing into a storyboard. It
// survives navigation between the concept, storyline and editor steps.
type Draft struct {
	ID           string    `json:"id"`
	Concept      string    `json:"concept"`
	Title        string    `json:"title,omitempty"`
	Storyline    string    `json:"storyline,omitempty"`
	StoryboardID string    `json:"storyboard_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Repository interface {
	CreateDraft(ctx context.Context, d *Draft) error
	GetDraft(ctx context.Context, id string) (*Draft, error)
	ListDrafts(ctx context.Context, limit int) ([]*Draft, error)
	UpdateDraft(ctx context.Context, d *Draft) error
	DeleteDraft(ctx context.Context, id string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateDraft(ctx context.Context, d *Draft) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO concept_drafts (id, concept, title, storyline, storyboard_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.Concept, nullString(d.Title), nullString(d.Storyline), nullString(d.StoryboardID),
		d.CreatedAt.UTC().Format(time.RFC3339), d.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetDraft(ctx context.Context, id string) (*Draft, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, concept, title, storyline, storyboard_id, created_at, updated_at
		FROM concept_drafts WHERE id = ?
	`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *SQLiteRepository) ListDrafts(ctx context.Context, limit int) ([]*Draft, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, concept, title, storyline, storyboard_id, created_at, updated_at
		FROM concept_drafts ORDER BY updated_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []*Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (r *SQLiteRepository) UpdateDraft(ctx context.Context, d *Draft) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE concept_drafts
		SET concept = ?, title = ?, storyline = ?, storyboard_id = ?, updated_at = ?
		WHERE id = ?
	`, d.Concept, nullString(d.Title), nullString(d.Storyline), nullString(d.StoryboardID),
		d.UpdatedAt.UTC().Format(time.RFC3339), d.ID)
	return err
}

func (r *SQLiteRepository) DeleteDraft(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM concept_drafts WHERE id = ?", id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(s scanner) (*Draft, error) {
	var d Draft
	var title, storyline, storyboardID sql.NullString
	var createdAt, updatedAt string

	if err := s.Scan(&d.ID, &d.Concept, &title, &storyline, &storyboardID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.Title = title.String
	d.Storyline = storyline.String
	d.StoryboardID = storyboardID.String
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &d, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
