package httpgin

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/venuepulse/venuepulse/internal/domain"
)

type IncrementOccupancyRequest struct {
	// Pointer so a zero delta binds: tag-only mutations send delta 0.
	Delta     *int64 `json:"delta" binding:"required"`
	Reason    string `json:"reason"`
	StatusTag string `json:"status_tag" binding:"omitempty,oneof=empty moderate busy full"`
}

type SetOccupancyRequest struct {
	TargetCount *int64 `json:"target_count" binding:"required"`
	Reason      string `json:"reason"`
	StatusTag   string `json:"status_tag" binding:"omitempty,oneof=empty moderate busy full"`
}

type CastVoteRequest struct {
	Status string `json:"status" binding:"required,oneof=yes maybe no"`
}

type SetInterestRequest struct {
	Status string `json:"status" binding:"required,oneof=interested going"`
}

type CreateBookingRequest struct {
	VenueID   string `json:"venue_id" binding:"omitempty,uuid"`
	EventID   string `json:"event_id" binding:"omitempty,uuid"`
	PartySize int    `json:"party_size" binding:"required,gte=1"`
}

type EnsureProfileRequest struct {
	Email       string `json:"email" binding:"omitempty,email"`
	DisplayName string `json:"display_name"`
	University  string `json:"university"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type OccupancyResponse struct {
	VenueID      uuid.UUID `json:"venue_id"`
	CurrentCount int64     `json:"current_count"`
	StatusTag    string    `json:"status_tag"`
	Source       string    `json:"source"`
	LastDelta    int64     `json:"last_delta"`
	LastReason   string    `json:"last_reason"`
	UpdatedBy    uuid.UUID `json:"updated_by"`
	UpdatedAt    time.Time `json:"updated_at"`
	Seq          int64     `json:"seq"`
}

func toOccupancyResponse(rec *domain.OccupancyRecord) OccupancyResponse {
	return OccupancyResponse{
		VenueID:      rec.VenueID,
		CurrentCount: rec.CurrentCount,
		StatusTag:    string(rec.StatusTag),
		Source:       rec.Source,
		LastDelta:    rec.LastDelta,
		LastReason:   rec.LastReason,
		UpdatedBy:    rec.UpdatedBy,
		UpdatedAt:    rec.UpdatedAt,
		Seq:          rec.Seq,
	}
}

type VoteResponse struct {
	VenueID uuid.UUID `json:"venue_id"`
	Status  string    `json:"status"`
	CastAt  time.Time `json:"cast_at"`
}

func toVoteResponse(v *domain.Vote) VoteResponse {
	return VoteResponse{
		VenueID: v.VenueID,
		Status:  string(v.Status),
		CastAt:  v.CastAt,
	}
}

type TrendingVenueResponse struct {
	VenueID  uuid.UUID `json:"venue_id"`
	Name     string    `json:"name"`
	CoverURL string    `json:"cover_url"`
	YesCount int64     `json:"yes_count"`
}

type VenueResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	GeoLat   float64   `json:"geo_lat"`
	GeoLng   float64   `json:"geo_lng"`
	CoverURL string    `json:"cover_url"`
}

type EventResponse struct {
	ID      uuid.UUID `json:"id"`
	VenueID uuid.UUID `json:"venue_id"`
	Title   string    `json:"title"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

type InterestResponse struct {
	EventID   uuid.UUID `json:"event_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type InterestEntryResponse struct {
	EventID   uuid.UUID `json:"event_id"`
	Title     string    `json:"title"`
	StartAt   time.Time `json:"start_at"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BookingResponse struct {
	BookingID uuid.UUID  `json:"booking_id"`
	VenueID   *uuid.UUID `json:"venue_id,omitempty"`
	EventID   *uuid.UUID `json:"event_id,omitempty"`
	PartySize int        `json:"party_size"`
	CreatedAt time.Time  `json:"created_at"`
}

type FavoriteToggleResponse struct {
	VenueID   uuid.UUID `json:"venue_id"`
	Favorited bool      `json:"favorited"`
}

type FavoriteResponse struct {
	VenueID  uuid.UUID `json:"venue_id"`
	Name     string    `json:"name"`
	CoverURL string    `json:"cover_url"`
}

type ProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	University  string    `json:"university"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProfileResponse(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		University:  p.University,
		CreatedAt:   p.CreatedAt,
	}
}

// ParseVenueIDs splits a comma-separated id list, rejecting empties and
// non-uuid entries.
func ParseVenueIDs(raw string) ([]uuid.UUID, error) {
	var out []uuid.UUID

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}

	return out, nil
}

func voteStatus(s string) domain.VoteStatus {
	return domain.VoteStatus(s)
}

func interestStatus(s string) domain.InterestStatus {
	return domain.InterestStatus(s)
}

func statusTagPtr(s string) *domain.StatusTag {
	if s == "" {
		return nil
	}
	tag := domain.StatusTag(s)
	return &tag
}
