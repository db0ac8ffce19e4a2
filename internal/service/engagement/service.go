package engagement

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

// Service covers the engagement surface around the core: venue browsing,
// event RSVPs, bookings, favorites and the per-session profile ensure.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	uow   *uow.UoW
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache) *Service {
	return &Service{
		store: store,
		cache: cache,
		uow:   uow.NewUoW(store),
	}
}

// Venues lists active venues for the browse/map surface, cached briefly.
func (s *Service) Venues(ctx context.Context) ([]domain.Venue, error) {
	const op = "service.engagement.Venues"

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyVenueList(), 60*time.Second,
		func(ctx context.Context) ([]domain.Venue, error) {
			return s.store.Venues().ListActive(ctx)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// UpcomingEvents lists events that have not ended, soonest first.
func (s *Service) UpcomingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	const op = "service.engagement.UpcomingEvents"

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyUpcomingEvents(), 30*time.Second,
		func(ctx context.Context) ([]domain.Event, error) {
			return s.store.Engagement().UpcomingEvents(ctx, limit)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// SetInterest upserts the caller's RSVP for an event.
//
// Returns:
//   - error: engagement.ErrUnauthenticated, engagement.ErrInvalidArgument,
//     engagement.ErrNotFound (unknown event).
func (s *Service) SetInterest(
	ctx context.Context,
	actor domain.Actor,
	eventID uuid.UUID,
	status domain.InterestStatus,
) (*domain.EventInterest, error) {
	const op = "service.engagement.SetInterest"

	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthenticated)
	}

	if !domain.ValidInterestStatus(status) {
		return nil, fmt.Errorf("%s: status %q: %w", op, status, ErrInvalidArgument)
	}

	ei, err := s.store.Engagement().UpsertInterest(ctx, actor.ID, eventID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		if errors.Is(err, repository.ErrProfileMissing) {
			return nil, fmt.Errorf("%s:%w", op, ErrProfileRequired)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return ei, nil
}

// CreateBooking books a table/party at a venue, an event, or both.
func (s *Service) CreateBooking(
	ctx context.Context,
	actor domain.Actor,
	venueID, eventID *uuid.UUID,
	partySize int,
) (*domain.Booking, error) {
	const op = "service.engagement.CreateBooking"

	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthenticated)
	}

	if venueID == nil && eventID == nil {
		return nil, fmt.Errorf("%s: booking needs a venue or an event: %w", op, ErrInvalidArgument)
	}

	if partySize < 1 {
		return nil, fmt.Errorf("%s: party size %d: %w", op, partySize, ErrInvalidArgument)
	}

	b, err := s.store.Engagement().CreateBooking(ctx, actor.ID, venueID, eventID, partySize)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		if errors.Is(err, repository.ErrProfileMissing) {
			return nil, fmt.Errorf("%s:%w", op, ErrProfileRequired)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}

// ToggleFavorite flips the saved flag for a venue inside one transaction
// so two rapid taps cannot double-insert.
func (s *Service) ToggleFavorite(
	ctx context.Context,
	actor domain.Actor,
	venueID uuid.UUID,
) (favorited bool, err error) {
	const op = "service.engagement.ToggleFavorite"

	if !actor.Authenticated() {
		return false, fmt.Errorf("%s:%w", op, ErrUnauthenticated)
	}

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		var err error
		favorited, err = s.store.Engagement().With(tx).ToggleFavorite(ctx, actor.ID, venueID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			if errors.Is(err, repository.ErrProfileMissing) {
				return ErrProfileRequired
			}
			return err
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return favorited, nil
}

// Interests lists the caller's event RSVPs, newest first.
func (s *Service) Interests(ctx context.Context, actor domain.Actor) ([]domain.InterestEntry, error) {
	const op = "service.engagement.Interests"

	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthenticated)
	}

	out, err := s.store.Engagement().ListInterests(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Favorites lists the caller's saved venues.
func (s *Service) Favorites(ctx context.Context, actor domain.Actor) ([]domain.Favorite, error) {
	const op = "service.engagement.Favorites"

	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthenticated)
	}

	out, err := s.store.Engagement().ListFavorites(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// EnsureProfile creates the caller's profile row if missing and returns
// it. Idempotent; the client calls it once per session instead of folding
// the upsert into unrelated mutations.
func (s *Service) EnsureProfile(
	ctx context.Context,
	actor domain.Actor,
	email, displayName, university string,
) (*domain.Profile, error) {
	const op = "service.engagement.EnsureProfile"

	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthenticated)
	}

	p, err := s.store.Profiles().Ensure(ctx, actor.ID, email, displayName, university)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return p, nil
}

// Profile returns the caller's profile.
func (s *Service) Profile(ctx context.Context, actor domain.Actor) (*domain.Profile, error) {
	const op = "service.engagement.Profile"

	if !actor.Authenticated() {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthenticated)
	}

	p, err := s.store.Profiles().Get(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return p, nil
}
