package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/venuepulse/venuepulse/internal/domain"
)

type VenueRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *VenueRepo) With(db DB) *VenueRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *VenueRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Get retrieves a venue by its ID.
//
// Returns:
//   - *domain.Venue: the venue when found.
//   - error: repository.ErrNotFound if the venue is not found.
func (r *VenueRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Venue, error) {
	const op = "postgres.VenueRepo.Get"

	db := r.handle()

	var v domain.Venue
	err := db.QueryRow(ctx,
		`SELECT id, name, address, geo_lat, geo_lng, owner_id, status, cover_url
		 FROM venues WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.Name, &v.Address, &v.GeoLat, &v.GeoLng, &v.OwnerID, &v.Status, &v.CoverURL)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &v, nil
}

// ListActive returns all active venues with their coordinates for the
// browse/map surface.
func (r *VenueRepo) ListActive(ctx context.Context) ([]domain.Venue, error) {
	const op = "postgres.VenueRepo.ListActive"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, name, address, geo_lat, geo_lng, owner_id, status, cover_url
		 FROM venues
		 WHERE status = 'active'
		 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Venue
	for rows.Next() {
		var v domain.Venue
		if err := rows.Scan(
			&v.ID, &v.Name, &v.Address, &v.GeoLat, &v.GeoLng,
			&v.OwnerID, &v.Status, &v.CoverURL,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
