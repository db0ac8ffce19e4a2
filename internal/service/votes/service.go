package votes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/venuepulse/venuepulse/internal/domain"
	redisx "github.com/venuepulse/venuepulse/internal/redis"
	"github.com/venuepulse/venuepulse/internal/repository"
	postgresrepo "github.com/venuepulse/venuepulse/internal/repository/postgres"
	redisrepo "github.com/venuepulse/venuepulse/internal/repository/redis"
	"github.com/venuepulse/venuepulse/internal/uow"
)

const (
	minWindow = 15 * time.Minute
	maxWindow = 7 * 24 * time.Hour
)

type Config struct {
	// DefaultWindow is the trending window when the caller does not pass
	// one.
	DefaultWindow time.Duration
	// CacheTTL is the trending refresh cadence: results may lag writes by
	// at most this much.
	CacheTTL time.Duration
}

// Service is the vote aggregator: sole writer of vote rows and the source
// of the trending ranking.
type Service struct {
	store   *postgresrepo.Store
	cache   *redisrepo.Cache
	changes *redisx.ChangeStream
	limiter *redisrepo.SlidingWindowLimiter
	uow     *uow.UoW
	cfg     Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	changes *redisx.ChangeStream,
	limiter *redisrepo.SlidingWindowLimiter,
	cfg Config,
) *Service {
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = 24 * time.Hour
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Second
	}

	return &Service{
		store:   store,
		cache:   cache,
		changes: changes,
		limiter: limiter,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
	}
}

// Cast upserts the caller's vote on a venue. Re-casting the same status is
// a state-level no-op that still refreshes cast_at, so the operation is
// safe to retry.
//
// Returns:
//   - *domain.Vote: the stored vote.
//   - error: votes.ErrUnauthenticated, votes.ErrInvalidArgument,
//     votes.ErrVenueNotFound, votes.ErrRateLimited.
func (s *Service) Cast(
	ctx context.Context,
	actor domain.Actor,
	venueID uuid.UUID,
	status domain.VoteStatus,
	rlKey string,
) (*domain.Vote, error) {
	const op = "service.votes.Cast"

	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthenticated)
	}

	if !domain.ValidVoteStatus(status) {
		return nil, fmt.Errorf("%s: status %q: %w", op, status, ErrInvalidArgument)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: retry in %s: %w", op, retry, ErrRateLimited)
		}
	}

	var vote *domain.Vote

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		v, err := s.store.Votes().With(tx).Upsert(ctx, actor.ID, venueID, status)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrVenueNotFound
			}
			if errors.Is(err, repository.ErrProfileMissing) {
				return ErrProfileRequired
			}
			return err
		}

		vote = v

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateTrending(ctx)
			_ = s.changes.Publish(ctx, redisx.VoteChanged(vote))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return vote, nil
}

// TrendingSince ranks venues by yes-votes inside the trailing window.
// Results come through the cache, so they trail the write path by at most
// the configured refresh cadence. Ordering is deterministic: count
// descending, then venue id.
func (s *Service) TrendingSince(
	ctx context.Context,
	window time.Duration,
	limit int,
) ([]domain.TrendingVenue, error) {
	const op = "service.votes.TrendingSince"

	window = ClampWindow(window, s.cfg.DefaultWindow)

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	key := redisx.KeyTrending(window.String(), limit)

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.CacheTTL,
		func(ctx context.Context) ([]domain.TrendingVenue, error) {
			return s.store.Votes().TrendingSince(ctx, time.Now().Add(-window), limit)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListForUser returns only the caller's own votes.
func (s *Service) ListForUser(ctx context.Context, actor domain.Actor) ([]domain.Vote, error) {
	const op = "service.votes.ListForUser"

	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthenticated)
	}

	out, err := s.store.Votes().ListForUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ClampWindow bounds a trending window to sane limits, falling back to def
// when the caller passed nothing.
func ClampWindow(window, def time.Duration) time.Duration {
	if window <= 0 {
		window = def
	}

	if window < minWindow {
		return minWindow
	}

	if window > maxWindow {
		return maxWindow
	}

	return window
}
