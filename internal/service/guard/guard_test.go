package guard

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuepulse/venuepulse/internal/domain"
	"github.com/venuepulse/venuepulse/internal/repository"
)

type fakeVenues struct {
	venues map[uuid.UUID]*domain.Venue
}

func (f *fakeVenues) Get(_ context.Context, id uuid.UUID) (*domain.Venue, error) {
	v, ok := f.venues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v, nil
}

func TestAuthorize(t *testing.T) {
	ownerID := uuid.New()
	otherID := uuid.New()
	adminID := uuid.New()

	ownedVenue := uuid.New()
	unclaimedVenue := uuid.New()
	missingVenue := uuid.New()

	venues := &fakeVenues{venues: map[uuid.UUID]*domain.Venue{
		ownedVenue:     {ID: ownedVenue, OwnerID: &ownerID},
		unclaimedVenue: {ID: unclaimedVenue, OwnerID: nil},
	}}

	g := New(venues)

	tests := []struct {
		name        string
		actor       domain.Actor
		action      Action
		venueID     uuid.UUID
		wantAllowed bool
		wantErr     error
	}{
		{
			name:        "unauthenticated caller is denied everything",
			actor:       domain.Actor{},
			action:      ActionCastVote,
			venueID:     ownedVenue,
			wantAllowed: false,
		},
		{
			name:        "any authenticated user may vote",
			actor:       domain.Actor{ID: otherID, Role: domain.RoleUser},
			action:      ActionCastVote,
			venueID:     ownedVenue,
			wantAllowed: true,
		},
		{
			name:        "any authenticated user may engage",
			actor:       domain.Actor{ID: otherID, Role: domain.RoleUser},
			action:      ActionEngage,
			venueID:     ownedVenue,
			wantAllowed: true,
		},
		{
			name:        "owner may mutate occupancy of own venue",
			actor:       domain.Actor{ID: ownerID, Role: domain.RoleOwner},
			action:      ActionMutateOccupancy,
			venueID:     ownedVenue,
			wantAllowed: true,
		},
		{
			name:        "non-owner may not mutate occupancy",
			actor:       domain.Actor{ID: otherID, Role: domain.RoleOwner},
			action:      ActionMutateOccupancy,
			venueID:     ownedVenue,
			wantAllowed: false,
		},
		{
			name:        "admin may mutate any venue without a lookup",
			actor:       domain.Actor{ID: adminID, Role: domain.RoleAdmin},
			action:      ActionMutateOccupancy,
			venueID:     missingVenue,
			wantAllowed: true,
		},
		{
			name:        "unclaimed venue denies every non-admin",
			actor:       domain.Actor{ID: ownerID, Role: domain.RoleOwner},
			action:      ActionMutateOccupancy,
			venueID:     unclaimedVenue,
			wantAllowed: false,
		},
		{
			name:        "missing venue surfaces ErrVenueNotFound",
			actor:       domain.Actor{ID: ownerID, Role: domain.RoleOwner},
			action:      ActionMutateOccupancy,
			venueID:     missingVenue,
			wantAllowed: false,
			wantErr:     ErrVenueNotFound,
		},
		{
			name:        "unknown action is denied",
			actor:       domain.Actor{ID: otherID, Role: domain.RoleUser},
			action:      Action("venue.delete"),
			venueID:     ownedVenue,
			wantAllowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := g.Authorize(context.Background(), tt.actor, tt.action, tt.venueID)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantAllowed, d.Allowed)
			if !tt.wantAllowed {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}
