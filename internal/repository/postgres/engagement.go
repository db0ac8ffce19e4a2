package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/venuepulse/venuepulse/internal/domain"
)

type EngagementRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *EngagementRepo) With(db DB) *EngagementRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EngagementRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// UpcomingEvents lists events that have not ended yet, soonest first.
func (r *EngagementRepo) UpcomingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	const op = "postgres.EngagementRepo.UpcomingEvents"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, venue_id, title, start_at, end_at
		 FROM events
		 WHERE end_at > now()
		 ORDER BY start_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.VenueID, &e.Title, &e.StartAt, &e.EndAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// UpsertInterest sets the caller's RSVP state for an event, replacing any
// prior state for the same (user, event) pair.
//
// Returns:
//   - *domain.EventInterest: the stored interest row.
//   - error: repository.ErrNotFound if the event does not exist.
func (r *EngagementRepo) UpsertInterest(
	ctx context.Context,
	userID, eventID uuid.UUID,
	status domain.InterestStatus,
) (*domain.EventInterest, error) {
	const op = "postgres.EngagementRepo.UpsertInterest"

	db := r.handle()

	var ei domain.EventInterest
	err := db.QueryRow(ctx,
		`INSERT INTO event_interest (user_id, event_id, status, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, event_id) DO UPDATE SET
		    status     = $3,
		    updated_at = now()
		 RETURNING user_id, event_id, status, updated_at`,
		userID, eventID, status,
	).Scan(&ei.UserID, &ei.EventID, &ei.Status, &ei.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &ei, nil
}

// CreateBooking inserts a booking against a venue and/or event.
//
// Returns:
//   - *domain.Booking: the created booking.
//   - error: repository.ErrNotFound if the referenced venue or event is missing.
func (r *EngagementRepo) CreateBooking(
	ctx context.Context,
	userID uuid.UUID,
	venueID, eventID *uuid.UUID,
	partySize int,
) (*domain.Booking, error) {
	const op = "postgres.EngagementRepo.CreateBooking"

	db := r.handle()

	var b domain.Booking
	err := db.QueryRow(ctx,
		`INSERT INTO bookings (id, user_id, venue_id, event_id, party_size)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, venue_id, event_id, party_size, created_at`,
		uuid.New(), userID, venueID, eventID, partySize,
	).Scan(&b.ID, &b.UserID, &b.VenueID, &b.EventID, &b.PartySize, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &b, nil
}

// ToggleFavorite flips the caller's favorite flag for a venue: an existing
// row is deleted, a missing one inserted. Reports the resulting state.
func (r *EngagementRepo) ToggleFavorite(
	ctx context.Context,
	userID, venueID uuid.UUID,
) (favorited bool, err error) {
	const op = "postgres.EngagementRepo.ToggleFavorite"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND venue_id = $2`,
		userID, venueID,
	)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() > 0 {
		return false, nil
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO favorites (user_id, venue_id) VALUES ($1, $2)`,
		userID, venueID,
	); err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return true, nil
}

// ListInterests returns the caller's RSVPs with event display fields,
// most recently updated first.
func (r *EngagementRepo) ListInterests(ctx context.Context, userID uuid.UUID) ([]domain.InterestEntry, error) {
	const op = "postgres.EngagementRepo.ListInterests"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT ei.event_id, e.title, e.start_at, ei.status, ei.updated_at
		 FROM event_interest ei
		 JOIN events e ON e.id = ei.event_id
		 WHERE ei.user_id = $1
		 ORDER BY ei.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.InterestEntry
	for rows.Next() {
		var ie domain.InterestEntry
		if err := rows.Scan(&ie.EventID, &ie.Title, &ie.StartAt, &ie.Status, &ie.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, ie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListFavorites returns the caller's saved venues with display fields.
func (r *EngagementRepo) ListFavorites(ctx context.Context, userID uuid.UUID) ([]domain.Favorite, error) {
	const op = "postgres.EngagementRepo.ListFavorites"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT f.venue_id, v.name, v.cover_url
		 FROM favorites f
		 JOIN venues v ON v.id = f.venue_id
		 WHERE f.user_id = $1
		 ORDER BY v.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Favorite
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.VenueID, &f.VenueName, &f.CoverURL); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
