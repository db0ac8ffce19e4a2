package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/venuepulse/venuepulse/internal/domain"
)

// Topic identifies one class of change events.
type Topic string

const (
	TopicOccupancy Topic = "venue_occupancy"
	TopicStatus    Topic = "venue_status"
	TopicVotes     Topic = "venue_votes"
)

func ValidTopic(t Topic) bool {
	return t == TopicOccupancy || t == TopicStatus || t == TopicVotes
}

// Change is a committed state change, tagged by topic. Exactly one payload
// field is set, matching the topic; consumers switch on Topic instead of
// probing optional fields.
type Change struct {
	Topic   Topic     `json:"topic"`
	VenueID uuid.UUID `json:"venue_id"`
	// Seq orders events for a single venue in commit order. Zero for vote
	// events, which carry no per-venue sequence.
	Seq    int64 `json:"seq,omitempty"`
	TsUnix int64 `json:"ts_unix"`

	Occupancy *OccupancyPayload `json:"occupancy,omitempty"`
	Status    *StatusPayload    `json:"status,omitempty"`
	Vote      *VotePayload      `json:"vote,omitempty"`
}

type OccupancyPayload struct {
	CurrentCount int64            `json:"current_count"`
	StatusTag    domain.StatusTag `json:"status_tag"`
}

type StatusPayload struct {
	StatusTag domain.StatusTag `json:"status_tag"`
}

type VotePayload struct {
	Status domain.VoteStatus `json:"status"`
}

func OccupancyChanged(rec *domain.OccupancyRecord) Change {
	return Change{
		Topic:   TopicOccupancy,
		VenueID: rec.VenueID,
		Seq:     rec.Seq,
		TsUnix:  time.Now().Unix(),
		Occupancy: &OccupancyPayload{
			CurrentCount: rec.CurrentCount,
			StatusTag:    rec.StatusTag,
		},
	}
}

func StatusChanged(rec *domain.OccupancyRecord) Change {
	return Change{
		Topic:   TopicStatus,
		VenueID: rec.VenueID,
		Seq:     rec.Seq,
		TsUnix:  time.Now().Unix(),
		Status:  &StatusPayload{StatusTag: rec.StatusTag},
	}
}

func VoteChanged(v *domain.Vote) Change {
	return Change{
		Topic:   TopicVotes,
		VenueID: v.VenueID,
		TsUnix:  time.Now().Unix(),
		Vote:    &VotePayload{Status: v.Status},
	}
}

// DecodeChange parses a wire payload and checks that the payload variant
// matches the topic tag. Malformed or unknown messages are rejected so a
// bad publisher cannot crash subscribers.
func DecodeChange(b []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(b, &c); err != nil {
		return Change{}, err
	}

	if c.VenueID == uuid.Nil {
		return Change{}, fmt.Errorf("change without venue id")
	}

	switch c.Topic {
	case TopicOccupancy:
		if c.Occupancy == nil {
			return Change{}, fmt.Errorf("topic %s without occupancy payload", c.Topic)
		}
	case TopicStatus:
		if c.Status == nil {
			return Change{}, fmt.Errorf("topic %s without status payload", c.Topic)
		}
	case TopicVotes:
		if c.Vote == nil {
			return Change{}, fmt.Errorf("topic %s without vote payload", c.Topic)
		}
	default:
		return Change{}, fmt.Errorf("unknown topic %q", c.Topic)
	}

	return c, nil
}

// ChangeStream carries committed change events between server instances
// over a single Redis pub/sub channel. Delivery is best effort: events
// published while a subscriber is disconnected are gone, and clients
// resynchronize by re-reading authoritative state.
type ChangeStream struct {
	rdb     *redis.Client
	channel string
}

func NewChangeStream(rdb *redis.Client) *ChangeStream {
	return &ChangeStream{
		rdb:     rdb,
		channel: ChannelChanges(),
	}
}

func (p *ChangeStream) Publish(ctx context.Context, c Change) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *ChangeStream) Subscribe(ctx context.Context, handler func(ctx context.Context, c Change)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if c, err := DecodeChange([]byte(m.Payload)); err == nil {
				handler(ctx, c)
			}
		}
	}
}
