package occupancy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/venuepulse/venuepulse/internal/domain"
	redisx "github.com/venuepulse/venuepulse/internal/redis"
	"github.com/venuepulse/venuepulse/internal/repository"
	postgresrepo "github.com/venuepulse/venuepulse/internal/repository/postgres"
	redisrepo "github.com/venuepulse/venuepulse/internal/repository/redis"
	"github.com/venuepulse/venuepulse/internal/service/guard"
	"github.com/venuepulse/venuepulse/internal/uow"
)

type Config struct {
	// RejectAtCapacity refuses headcount increases while the venue is
	// tagged busy or full, closing the race where two callers both pass a
	// stale client-side check.
	RejectAtCapacity bool
	// SnapshotTTL bounds staleness of cached occupancy reads.
	SnapshotTTL time.Duration
}

// Service is the occupancy ledger: the only writer of venue headcounts.
// Every mutation is one atomic row upsert plus an audit append in the same
// transaction; change events publish after commit.
type Service struct {
	store   *postgresrepo.Store
	cache   *redisrepo.Cache
	changes *redisx.ChangeStream
	limiter *redisrepo.SlidingWindowLimiter
	guard   *guard.Guard
	uow     *uow.UoW
	cfg     Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	changes *redisx.ChangeStream,
	limiter *redisrepo.SlidingWindowLimiter,
	g *guard.Guard,
	cfg Config,
) *Service {
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 10 * time.Second
	}

	return &Service{
		store:   store,
		cache:   cache,
		changes: changes,
		limiter: limiter,
		guard:   g,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
	}
}

// Increment applies a signed delta to a venue's headcount, clamped at zero
// on the low side. A non-nil tag atomically overrides the status tag in
// the same mutation. Not retry-safe on ambiguous failures; the transport
// layer pairs it with an idempotency key.
//
// Returns:
//   - *domain.OccupancyRecord: the post-mutation record.
//   - error: occupancy.ErrUnauthenticated, occupancy.ErrNotAuthorized,
//     occupancy.ErrInvalidArgument, occupancy.ErrAtCapacity,
//     occupancy.ErrVenueNotFound, occupancy.ErrRateLimited.
func (s *Service) Increment(
	ctx context.Context,
	actor domain.Actor,
	venueID uuid.UUID,
	delta int64,
	reason string,
	tag *domain.StatusTag,
	rlKey string,
) (*domain.OccupancyRecord, error) {
	const op = "service.occupancy.Increment"

	if err := s.checkMutation(ctx, actor, venueID, tag, rlKey); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var rec *domain.OccupancyRecord

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		r, err := s.store.Occupancy().With(tx).ApplyDelta(
			ctx, venueID, delta, reason, tag, actor.ID, "api", s.cfg.RejectAtCapacity,
		)
		if err != nil {
			if errors.Is(err, repository.ErrAtCapacity) {
				return ErrAtCapacity
			}
			if errors.Is(err, repository.ErrNotFound) {
				return ErrVenueNotFound
			}
			return err
		}

		if err := s.store.Occupancy().With(tx).AppendAudit(
			ctx, venueID, "increment", delta, reason, actor.ID,
		); err != nil {
			return err
		}

		rec = r
		s.publishAfterCommit(after, rec, tag != nil)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return rec, nil
}

// SetAbsolute assigns an exact non-negative headcount. Idempotent: the
// same target always converges to the same state, so callers may retry it
// freely on ambiguous failures.
//
// Returns the same error set as Increment, plus ErrInvalidArgument for a
// negative target.
func (s *Service) SetAbsolute(
	ctx context.Context,
	actor domain.Actor,
	venueID uuid.UUID,
	target int64,
	reason string,
	tag *domain.StatusTag,
	rlKey string,
) (*domain.OccupancyRecord, error) {
	const op = "service.occupancy.SetAbsolute"

	if target < 0 {
		return nil, fmt.Errorf("%s: target %d: %w", op, target, ErrInvalidArgument)
	}

	if err := s.checkMutation(ctx, actor, venueID, tag, rlKey); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var rec *domain.OccupancyRecord

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		r, err := s.store.Occupancy().With(tx).SetCount(
			ctx, venueID, target, reason, tag, actor.ID, "api",
		)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrVenueNotFound
			}
			return err
		}

		if err := s.store.Occupancy().With(tx).AppendAudit(
			ctx, venueID, "set", r.LastDelta, reason, actor.ID,
		); err != nil {
			return err
		}

		rec = r
		s.publishAfterCommit(after, rec, tag != nil)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return rec, nil
}

// Get returns occupancy records for the requested venues. Public read, no
// authorization. Served through short-lived per-venue cache snapshots;
// venues that were never written are absent from the result.
func (s *Service) Get(ctx context.Context, venueIDs []uuid.UUID) ([]domain.OccupancyRecord, error) {
	const op = "service.occupancy.Get"

	if len(venueIDs) == 0 {
		return nil, fmt.Errorf("%s: no venue ids: %w", op, ErrInvalidArgument)
	}

	var out []domain.OccupancyRecord
	var missing []uuid.UUID

	for _, id := range venueIDs {
		rec, ok, err := redisrepo.GetJSON[domain.OccupancyRecord](ctx, s.cache, redisx.KeyVenueOccupancy(id))
		if err != nil || !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, rec)
	}

	if len(missing) > 0 {
		recs, err := s.store.Occupancy().GetMany(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		for _, rec := range recs {
			_ = redisrepo.SetJSON(ctx, s.cache, redisx.KeyVenueOccupancy(rec.VenueID), rec, s.cfg.SnapshotTTL)
			out = append(out, rec)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	return out, nil
}

func (s *Service) checkMutation(
	ctx context.Context,
	actor domain.Actor,
	venueID uuid.UUID,
	tag *domain.StatusTag,
	rlKey string,
) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}

	if tag != nil && !domain.ValidTag(*tag) {
		return fmt.Errorf("status tag %q: %w", *tag, ErrInvalidArgument)
	}

	decision, err := s.guard.Authorize(ctx, actor, guard.ActionMutateOccupancy, venueID)
	if err != nil {
		if errors.Is(err, guard.ErrVenueNotFound) {
			return ErrVenueNotFound
		}
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%s: %w", decision.Reason, ErrNotAuthorized)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("retry in %s: %w", retry, ErrRateLimited)
		}
	}

	return nil
}

func (s *Service) publishAfterCommit(after func(uow.AfterCommit), rec *domain.OccupancyRecord, tagChanged bool) {
	after(func(ctx context.Context) {
		_ = s.cache.InvalidateVenue(ctx, rec.VenueID)
		_ = s.changes.Publish(ctx, redisx.OccupancyChanged(rec))
		if tagChanged {
			_ = s.changes.Publish(ctx, redisx.StatusChanged(rec))
		}
	})
}
