package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when no record matches the given id.
var ErrNotFound = errors.New("record not found")

type Record struct {
	ID        uuid.UUID
	Company   string
	URL       string
	Data      string
	CreatedAt time.Time
}

// RecordPatch holds the fields of a partial update. Nil fields are left unchanged.
type RecordPatch struct {
	Company *string
	URL     *string
	Data    *string
}

func (p RecordPatch) Empty() bool {
	return p.Company == nil && p.URL == nil && p.Data == nil
}

func (s *Store) InsertRecord(ctx context.Context, company, url, data string) (*Record, error) {
	r := Record{ID: uuid.New(), Company: company, URL: url, Data: data}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO records (id, company, url, data)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		r.ID, r.Company, r.URL, r.Data,
	).Scan(&r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return &r, nil
}

// ListRecords returns every record, oldest first.
func (s *Store) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company, url, data, created_at
		FROM records ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Company, &r.URL, &r.Data, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	var r Record
	err := s.pool.QueryRow(ctx, `
		SELECT id, company, url, data, created_at
		FROM records WHERE id = $1`, id,
	).Scan(&r.ID, &r.Company, &r.URL, &r.Data, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &r, nil
}

// UpdateRecord applies the non-nil fields of patch and returns the updated row.
func (s *Store) UpdateRecord(ctx context.Context, id uuid.UUID, patch RecordPatch) (*Record, error) {
	var r Record
	err := s.pool.QueryRow(ctx, `
		UPDATE records SET
			company    = COALESCE($2, company),
			url        = COALESCE($3, url),
			data       = COALESCE($4, data),
			updated_at = now()
		WHERE id = $1
		RETURNING id, company, url, data, created_at`,
		id, patch.Company, patch.URL, patch.Data,
	).Scan(&r.ID, &r.Company, &r.URL, &r.Data, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	return &r, nil
}

func (s *Store) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
