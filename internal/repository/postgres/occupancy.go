package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/venuepulse/venuepulse/internal/domain"
	"github.com/venuepulse/venuepulse/internal/repository"
)

type OccupancyRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OccupancyRepo) With(db DB) *OccupancyRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OccupancyRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const occupancyColumns = `venue_id, current_count, status_tag, source,
	last_delta, last_reason, updated_by, updated_at, seq`

// ApplyDelta applies a signed headcount delta as a single conditional
// upsert: concurrent deltas on the same venue serialize at the row, the
// count clamps at zero, and the first write creates the record with
// max(0, delta). A nil tag preserves the existing tag; on first write the
// tag falls back to a count-derived classification.
//
// With rejectAtCapacity set, a positive delta on a venue tagged busy or
// full updates nothing and returns repository.ErrAtCapacity.
//
// Returns:
//   - *domain.OccupancyRecord: the post-mutation record.
//   - error: repository.ErrAtCapacity on a rejected increase.
//   - error: repository.ErrNotFound if the venue does not exist.
func (r *OccupancyRepo) ApplyDelta(
	ctx context.Context,
	venueID uuid.UUID,
	delta int64,
	reason string,
	tag *domain.StatusTag,
	actorID uuid.UUID,
	source string,
	rejectAtCapacity bool,
) (*domain.OccupancyRecord, error) {
	const op = "postgres.OccupancyRepo.ApplyDelta"

	db := r.handle()

	initial := delta
	if initial < 0 {
		initial = 0
	}
	insertTag := domain.DeriveStatusTag(initial)

	var rec domain.OccupancyRecord
	err := db.QueryRow(ctx,
		`INSERT INTO venue_occupancy
		    (venue_id, current_count, status_tag, source, last_delta,
		     last_reason, updated_by, updated_at, seq)
		 VALUES ($1, GREATEST(0, $2), COALESCE($3, $4), $5, $2, $6, $7, now(), 1)
		 ON CONFLICT (venue_id) DO UPDATE SET
		    current_count = GREATEST(0, venue_occupancy.current_count + $2),
		    status_tag    = COALESCE($3, venue_occupancy.status_tag),
		    source        = $5,
		    last_delta    = $2,
		    last_reason   = $6,
		    updated_by    = $7,
		    updated_at    = now(),
		    seq           = venue_occupancy.seq + 1
		 WHERE NOT ($8 AND $2 > 0 AND venue_occupancy.status_tag IN ('busy', 'full'))
		 RETURNING `+occupancyColumns,
		venueID, delta, tag, insertTag, source, reason, actorID, rejectAtCapacity,
	).Scan(
		&rec.VenueID, &rec.CurrentCount, &rec.StatusTag, &rec.Source,
		&rec.LastDelta, &rec.LastReason, &rec.UpdatedBy, &rec.UpdatedAt, &rec.Seq,
	)
	if err != nil {
		// The upsert returns no row only when the capacity predicate
		// suppressed the update.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrAtCapacity)
		}
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &rec, nil
}

// SetCount assigns an absolute non-negative headcount. Validation of the
// target happens at the service; here the assignment is atomic with the
// same tag and sequencing semantics as ApplyDelta. last_delta records the
// effective change against the prior count.
func (r *OccupancyRepo) SetCount(
	ctx context.Context,
	venueID uuid.UUID,
	target int64,
	reason string,
	tag *domain.StatusTag,
	actorID uuid.UUID,
	source string,
) (*domain.OccupancyRecord, error) {
	const op = "postgres.OccupancyRepo.SetCount"

	db := r.handle()

	insertTag := domain.DeriveStatusTag(target)

	var rec domain.OccupancyRecord
	err := db.QueryRow(ctx,
		`INSERT INTO venue_occupancy
		    (venue_id, current_count, status_tag, source, last_delta,
		     last_reason, updated_by, updated_at, seq)
		 VALUES ($1, $2, COALESCE($3, $4), $5, $2, $6, $7, now(), 1)
		 ON CONFLICT (venue_id) DO UPDATE SET
		    current_count = $2,
		    status_tag    = COALESCE($3, venue_occupancy.status_tag),
		    source        = $5,
		    last_delta    = $2 - venue_occupancy.current_count,
		    last_reason   = $6,
		    updated_by    = $7,
		    updated_at    = now(),
		    seq           = venue_occupancy.seq + 1
		 RETURNING `+occupancyColumns,
		venueID, target, tag, insertTag, source, reason, actorID,
	).Scan(
		&rec.VenueID, &rec.CurrentCount, &rec.StatusTag, &rec.Source,
		&rec.LastDelta, &rec.LastReason, &rec.UpdatedBy, &rec.UpdatedAt, &rec.Seq,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &rec, nil
}

// GetMany returns the occupancy records for the requested venues, most
// recently updated first. Venues without a record yet are simply absent.
func (r *OccupancyRepo) GetMany(ctx context.Context, venueIDs []uuid.UUID) ([]domain.OccupancyRecord, error) {
	const op = "postgres.OccupancyRepo.GetMany"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+occupancyColumns+`
		 FROM venue_occupancy
		 WHERE venue_id = ANY($1)
		 ORDER BY updated_at DESC`,
		venueIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.OccupancyRecord
	for rows.Next() {
		var rec domain.OccupancyRecord
		if err := rows.Scan(
			&rec.VenueID, &rec.CurrentCount, &rec.StatusTag, &rec.Source,
			&rec.LastDelta, &rec.LastReason, &rec.UpdatedBy, &rec.UpdatedAt, &rec.Seq,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// AppendAudit records one mutation in the append-only trail. The trail is
// for operator accountability, not correctness, and lives in the same
// transaction as the mutation so it never references an uncommitted state.
func (r *OccupancyRepo) AppendAudit(
	ctx context.Context,
	venueID uuid.UUID,
	operation string,
	delta int64,
	reason string,
	actorID uuid.UUID,
) error {
	const op = "postgres.OccupancyRepo.AppendAudit"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO occupancy_audit (venue_id, operation, delta, reason, actor_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		venueID, operation, delta, reason, actorID,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}
