package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/venuepulse/venuepulse/internal/domain"
)

type VoteRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *VoteRepo) With(db DB) *VoteRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *VoteRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Upsert replaces the caller's vote on a venue. The primary key on
// (user_id, venue_id) makes this the only write path that can touch the
// row, so re-casting the same status is a state no-op that still refreshes
// cast_at.
//
// Returns:
//   - *domain.Vote: the stored vote.
//   - error: repository.ErrNotFound if the venue does not exist.
func (r *VoteRepo) Upsert(
	ctx context.Context,
	userID, venueID uuid.UUID,
	status domain.VoteStatus,
) (*domain.Vote, error) {
	const op = "postgres.VoteRepo.Upsert"

	db := r.handle()

	var v domain.Vote
	err := db.QueryRow(ctx,
		`INSERT INTO venue_votes (user_id, venue_id, status, cast_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, venue_id) DO UPDATE SET
		    status  = $3,
		    cast_at = now()
		 RETURNING user_id, venue_id, status, cast_at`,
		userID, venueID, status,
	).Scan(&v.UserID, &v.VenueID, &v.Status, &v.CastAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &v, nil
}

// TrendingSince ranks active venues by yes-votes cast after the cutoff.
// Ties break on venue id so the same window always yields the same order.
func (r *VoteRepo) TrendingSince(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]domain.TrendingVenue, error) {
	const op = "postgres.VoteRepo.TrendingSince"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT v.id, v.name, v.cover_url, COUNT(vv.user_id) AS yes_count
		 FROM venues v
		 JOIN venue_votes vv ON vv.venue_id = v.id
		 WHERE v.status = 'active'
		   AND vv.status = 'yes'
		   AND vv.cast_at >= $1
		 GROUP BY v.id, v.name, v.cover_url
		 ORDER BY yes_count DESC, v.id ASC
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.TrendingVenue
	for rows.Next() {
		var tv domain.TrendingVenue
		if err := rows.Scan(&tv.VenueID, &tv.Name, &tv.CoverURL, &tv.YesCount); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, tv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListForUser returns the caller's own votes, newest first.
func (r *VoteRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Vote, error) {
	const op = "postgres.VoteRepo.ListForUser"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT user_id, venue_id, status, cast_at
		 FROM venue_votes
		 WHERE user_id = $1
		 ORDER BY cast_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Vote
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.UserID, &v.VenueID, &v.Status, &v.CastAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
