package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatusTag is the coarse crowd-level classification of a venue. It is
// settable independently of the numeric count: an operator may mark a venue
// "full" before the count reaches capacity, and that override persists until
// a later mutation supplies a new tag.
type StatusTag string

const (
	TagEmpty    StatusTag = "empty"
	TagModerate StatusTag = "moderate"
	TagBusy     StatusTag = "busy"
	TagFull     StatusTag = "full"
)

// ValidTag reports whether s is one of the known status tags.
func ValidTag(s StatusTag) bool {
	switch s {
	case TagEmpty, TagModerate, TagBusy, TagFull:
		return true
	}
	return false
}

// AtCapacity reports whether the tag refuses further headcount increases
// when the ledger runs in reject-at-capacity mode.
func (s StatusTag) AtCapacity() bool {
	return s == TagBusy || s == TagFull
}

// DeriveStatusTag classifies a headcount for venues that never had an
// explicit tag set. Thresholds are deliberately coarse.
func DeriveStatusTag(count int64) StatusTag {
	switch {
	case count <= 0:
		return TagEmpty
	case count < 30:
		return TagModerate
	case count < 80:
		return TagBusy
	default:
		return TagFull
	}
}

type VoteStatus string

const (
	VoteYes   VoteStatus = "yes"
	VoteMaybe VoteStatus = "maybe"
	VoteNo    VoteStatus = "no"
)

func ValidVoteStatus(s VoteStatus) bool {
	return s == VoteYes || s == VoteMaybe || s == VoteNo
}

type InterestStatus string

const (
	Interested InterestStatus = "interested"
	Going      InterestStatus = "going"
)

func ValidInterestStatus(s InterestStatus) bool {
	return s == Interested || s == Going
}

type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// Actor is the verified caller identity attached to a request.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) Authenticated() bool {
	return a.ID != uuid.Nil
}

type Venue struct {
	ID       uuid.UUID
	Name     string
	Address  string
	GeoLat   float64
	GeoLng   float64
	OwnerID  *uuid.UUID // nil for unclaimed venues
	Status   string     // active, hidden
	CoverURL string
}

// OccupancyRecord is the authoritative live headcount and status for one
// venue. Seq increases by one per committed mutation and orders change
// events for the venue.
type OccupancyRecord struct {
	VenueID      uuid.UUID
	CurrentCount int64
	StatusTag    StatusTag
	Source       string
	LastDelta    int64
	LastReason   string
	UpdatedBy    uuid.UUID
	UpdatedAt    time.Time
	Seq          int64
}

// Vote is one user's current verdict on a venue. At most one row exists per
// (user, venue); re-casting replaces the status and refreshes CastAt.
type Vote struct {
	UserID  uuid.UUID
	VenueID uuid.UUID
	Status  VoteStatus
	CastAt  time.Time
}

// TrendingVenue is one entry of the ranked trending feed: yes-votes inside
// the trailing window, ties broken by venue id.
type TrendingVenue struct {
	VenueID  uuid.UUID
	Name     string
	CoverURL string
	YesCount int64
}

type Event struct {
	ID      uuid.UUID
	VenueID uuid.UUID
	Title   string
	StartAt time.Time
	EndAt   time.Time
}

type EventInterest struct {
	UserID    uuid.UUID
	EventID   uuid.UUID
	Status    InterestStatus
	UpdatedAt time.Time
}

// InterestEntry is one row of the caller's RSVP history, with the event
// display fields the client shows alongside it.
type InterestEntry struct {
	EventID   uuid.UUID
	Title     string
	StartAt   time.Time
	Status    InterestStatus
	UpdatedAt time.Time
}

type Booking struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	VenueID   *uuid.UUID
	EventID   *uuid.UUID
	PartySize int
	CreatedAt time.Time
}

type Favorite struct {
	VenueID   uuid.UUID
	VenueName string
	CoverURL  string
}

type Profile struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	University  string
	CreatedAt   time.Time
}
