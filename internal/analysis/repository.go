package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository provides database access for analysis records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create persists a new analysis record and returns it with the
// server-assigned timestamp.
func (r *Repository) Create(ctx context.Context, a Analysis) (Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	metadata, err := marshalMetadata(a.Metadata)
	if err != nil {
		return Analysis{}, err
	}

	query := `
INSERT INTO analyses (id, owner_id, filename, original_file_path, thumbnail_path, result, confidence, processing_time, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at;`

	row := r.pool.QueryRow(ctx, query,
		a.ID,
		a.OwnerID,
		a.Filename,
		a.OriginalFilePath,
		a.ThumbnailPath,
		string(a.Result),
		a.Confidence,
		a.ProcessingTime,
		metadata,
	)
	if err := row.Scan(&a.CreatedAt); err != nil {
		return Analysis{}, fmt.Errorf("create analysis: %w", err)
	}
	return a, nil
}

// FindByID fetches a single record.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id, owner_id, filename, original_file_path, thumbnail_path, result, confidence, processing_time, metadata, created_at
FROM analyses
WHERE id = $1;`

	var (
		a        Analysis
		result   string
		metadata []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.OwnerID,
		&a.Filename,
		&a.OriginalFilePath,
		&a.ThumbnailPath,
		&result,
		&a.Confidence,
		&a.ProcessingTime,
		&metadata,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Analysis{}, ErrAnalysisNotFound
		}
		return Analysis{}, fmt.Errorf("find analysis: %w", err)
	}

	a.Result = Result(result)
	if a.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

// ListByOwner returns the owner's records newest first, carrying only the
// columns the history projection needs.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id, filename, original_file_path, thumbnail_path, result, confidence, created_at
FROM analyses
WHERE owner_id = $1
ORDER BY created_at DESC;`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var list []Analysis
	for rows.Next() {
		var (
			a      Analysis
			result string
		)
		if err := rows.Scan(&a.ID, &a.Filename, &a.OriginalFilePath, &a.ThumbnailPath, &result, &a.Confidence, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		a.OwnerID = ownerID
		a.Result = Result(result)
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return list, nil
}

// Delete removes a record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func marshalMetadata(m *Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

func unmarshalMetadata(data []byte) (*Metadata, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &m, nil
}
