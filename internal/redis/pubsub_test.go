package redisx

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuepulse/venuepulse/internal/domain"
)

func TestDecodeChangeRoundTrip(t *testing.T) {
	venueID := uuid.New()

	tests := []struct {
		name   string
		change Change
	}{
		{
			name: "occupancy change",
			change: OccupancyChanged(&domain.OccupancyRecord{
				VenueID:      venueID,
				CurrentCount: 42,
				StatusTag:    domain.TagBusy,
				Seq:          7,
			}),
		},
		{
			name: "status change",
			change: StatusChanged(&domain.OccupancyRecord{
				VenueID:   venueID,
				StatusTag: domain.TagFull,
				Seq:       8,
			}),
		},
		{
			name: "vote change",
			change: VoteChanged(&domain.Vote{
				UserID:  uuid.New(),
				VenueID: venueID,
				Status:  domain.VoteYes,
				CastAt:  time.Now(),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.change)
			require.NoError(t, err)

			got, err := DecodeChange(b)
			require.NoError(t, err)

			assert.Equal(t, tt.change.Topic, got.Topic)
			assert.Equal(t, venueID, got.VenueID)
			assert.Equal(t, tt.change.Seq, got.Seq)
		})
	}
}

func TestDecodeChangeRejectsMismatchedPayload(t *testing.T) {
	venueID := uuid.New()

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "occupancy topic without payload",
			raw:  `{"topic":"venue_occupancy","venue_id":"` + venueID.String() + `","seq":1}`,
		},
		{
			name: "status topic with only vote payload",
			raw:  `{"topic":"venue_status","venue_id":"` + venueID.String() + `","vote":{"status":"yes"}}`,
		},
		{
			name: "vote topic without payload",
			raw:  `{"topic":"venue_votes","venue_id":"` + venueID.String() + `"}`,
		},
		{
			name: "unknown topic",
			raw:  `{"topic":"venue_deleted","venue_id":"` + venueID.String() + `"}`,
		},
		{
			name: "missing venue id",
			raw:  `{"topic":"venue_votes","vote":{"status":"yes"}}`,
		},
		{
			name: "not json",
			raw:  `{{{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeChange([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestValidTopic(t *testing.T) {
	assert.True(t, ValidTopic(TopicOccupancy))
	assert.True(t, ValidTopic(TopicStatus))
	assert.True(t, ValidTopic(TopicVotes))
	assert.False(t, ValidTopic("venue_deleted"))
	assert.False(t, ValidTopic(""))
}
