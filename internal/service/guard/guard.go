package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/venuepulse/venuepulse/internal/domain"
	"github.com/venuepulse/venuepulse/internal/repository"
)

var ErrVenueNotFound = errors.New("venue not found")

// Action is something a caller wants to do to a resource.
type Action string

const (
	// ActionMutateOccupancy covers increments and absolute sets of a
	// venue's headcount and status tag.
	ActionMutateOccupancy Action = "occupancy.mutate"
	// ActionCastVote covers casting or replacing a crowd vote.
	ActionCastVote Action = "vote.cast"
	// ActionEngage covers RSVPs, bookings, favorites and profile writes.
	ActionEngage Action = "engage"
)

// Decision is the outcome of an authorization check. Reason is set only
// when Allowed is false and names the rule that denied, not user-facing
// text.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// VenueGetter supplies the venue needed for ownership checks.
type VenueGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Venue, error)
}

// Guard is the authorization gate in front of every mutation. It decides;
// it never mutates, and it owns no profile or account side effects.
type Guard struct {
	venues VenueGetter
}

func New(venues VenueGetter) *Guard {
	return &Guard{venues: venues}
}

// Authorize checks whether actor may perform action on the venue.
// Occupancy mutations require the venue's owner or an admin; votes and
// engagement require any authenticated identity.
//
// Returns:
//   - Decision: allowed, or denied with a rule name.
//   - error: guard.ErrVenueNotFound when an ownership check references a
//     missing venue.
func (g *Guard) Authorize(
	ctx context.Context,
	actor domain.Actor,
	action Action,
	venueID uuid.UUID,
) (Decision, error) {
	const op = "guard.Authorize"

	if !actor.Authenticated() {
		return deny("unauthenticated"), nil
	}

	switch action {
	case ActionCastVote, ActionEngage:
		return allow(), nil

	case ActionMutateOccupancy:
		if actor.Role == domain.RoleAdmin {
			return allow(), nil
		}

		venue, err := g.venues.Get(ctx, venueID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return deny("venue not found"), fmt.Errorf("%s:%w", op, ErrVenueNotFound)
			}
			return deny("venue lookup failed"), fmt.Errorf("%s:%w", op, err)
		}

		if venue.OwnerID != nil && *venue.OwnerID == actor.ID {
			return allow(), nil
		}

		return deny("not venue owner"), nil

	default:
		return deny("unknown action"), nil
	}
}
