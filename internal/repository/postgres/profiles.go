package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/venuepulse/venuepulse/internal/domain"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ProfileRepo) With(db DB) *ProfileRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ProfileRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Ensure creates the caller's profile row if it does not exist yet and
// returns the stored profile either way. Repeated calls with the same
// identity are no-ops apart from refreshing mutable display fields.
func (r *ProfileRepo) Ensure(
	ctx context.Context,
	userID uuid.UUID,
	email, displayName, university string,
) (*domain.Profile, error) {
	const op = "postgres.ProfileRepo.Ensure"

	db := r.handle()

	var p domain.Profile
	err := db.QueryRow(ctx,
		`INSERT INTO users (id, email, display_name, university)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		    display_name = COALESCE(NULLIF($3, ''), users.display_name),
		    university   = COALESCE(NULLIF($4, ''), users.university)
		 RETURNING id, email, display_name, university, created_at`,
		userID, email, displayName, university,
	).Scan(&p.ID, &p.Email, &p.DisplayName, &p.University, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &p, nil
}

// Get retrieves a profile by user ID.
//
// Returns:
//   - error: repository.ErrNotFound if no profile row exists.
func (r *ProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	const op = "postgres.ProfileRepo.Get"

	db := r.handle()

	var p domain.Profile
	err := db.QueryRow(ctx,
		`SELECT id, email, display_name, university, created_at
		 FROM users WHERE id = $1`,
		userID,
	).Scan(&p.ID, &p.Email, &p.DisplayName, &p.University, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &p, nil
}
