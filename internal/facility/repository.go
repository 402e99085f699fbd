package facility

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Upsert(ctx context.Context, f Facility) (*Facility, error) {
	const q = `
INSERT INTO facilities (id, slug, name, status)
VALUES ($1, $2, $3, 'active')
ON CONFLICT (slug) DO UPDATE SET
  name = EXCLUDED.name,
  status = 'active'
RETURNING id, slug, name, status, created_at
`
	out := &Facility{}
	if err := r.db.QueryRow(ctx, q, f.ID, f.Slug, f.Name).Scan(
		&out.ID, &out.Slug, &out.Name, &out.Status, &out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*Facility, error) {
	const q = `
SELECT id, slug, name, COALESCE(status, 'active'), created_at
FROM facilities
WHERE slug = $1
`
	f := &Facility{}
	if err := r.db.QueryRow(ctx, q, slug).Scan(
		&f.ID, &f.Slug, &f.Name, &f.Status, &f.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}
