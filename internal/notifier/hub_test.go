package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuepulse/venuepulse/internal/domain"
	redisx "github.com/venuepulse/venuepulse/internal/redis"
)

func startHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return hub
}

func occupancyChange(venueID uuid.UUID, seq int64) redisx.Change {
	return redisx.OccupancyChanged(&domain.OccupancyRecord{
		VenueID:      venueID,
		CurrentCount: seq * 10,
		StatusTag:    domain.TagModerate,
		Seq:          seq,
	})
}

func recvChange(t *testing.T, sub *Subscription) redisx.Change {
	t.Helper()

	select {
	case c, ok := <-sub.Events():
		require.True(t, ok, "events channel closed unexpectedly")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return redisx.Change{}
	}
}

func TestHubFanOut(t *testing.T) {
	hub := startHub(t)
	venueID := uuid.New()

	subA := hub.Subscribe([]redisx.Topic{redisx.TopicOccupancy}, nil)
	subB := hub.Subscribe([]redisx.Topic{redisx.TopicOccupancy}, nil)
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	hub.Publish(occupancyChange(venueID, 1))

	for _, sub := range []*Subscription{subA, subB} {
		c := recvChange(t, sub)
		assert.Equal(t, redisx.TopicOccupancy, c.Topic)
		assert.Equal(t, venueID, c.VenueID)
		assert.EqualValues(t, 1, c.Seq)
	}
}

func TestHubPerVenueOrder(t *testing.T) {
	hub := startHub(t)
	venueID := uuid.New()

	sub := hub.Subscribe([]redisx.Topic{redisx.TopicOccupancy}, []uuid.UUID{venueID})
	defer sub.Unsubscribe()

	const n = 20
	for i := int64(1); i <= n; i++ {
		hub.Publish(occupancyChange(venueID, i))
	}

	for i := int64(1); i <= n; i++ {
		c := recvChange(t, sub)
		assert.Equal(t, i, c.Seq, "events must arrive in publish order")
	}
}

func TestHubVenueFilter(t *testing.T) {
	hub := startHub(t)
	wanted := uuid.New()
	other := uuid.New()

	sub := hub.Subscribe([]redisx.Topic{redisx.TopicOccupancy}, []uuid.UUID{wanted})
	defer sub.Unsubscribe()

	hub.Publish(occupancyChange(other, 1))
	hub.Publish(occupancyChange(wanted, 2))

	c := recvChange(t, sub)
	assert.Equal(t, wanted, c.VenueID)

	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected extra event for venue %s", extra.VenueID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDiscardsStaleSeq(t *testing.T) {
	hub := startHub(t)
	venueID := uuid.New()

	sub := hub.Subscribe([]redisx.Topic{redisx.TopicOccupancy}, nil)
	defer sub.Unsubscribe()

	// A later commit can reach the hub first; the earlier one must then
	// be dropped, never delivered after its successor.
	hub.Publish(occupancyChange(venueID, 3))
	hub.Publish(occupancyChange(venueID, 1))
	hub.Publish(occupancyChange(venueID, 4))

	assert.EqualValues(t, 3, recvChange(t, sub).Seq)
	assert.EqualValues(t, 4, recvChange(t, sub).Seq)

	select {
	case c := <-sub.Events():
		t.Fatalf("stale event seq %d was delivered", c.Seq)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubStaleSeqPerVenue(t *testing.T) {
	hub := startHub(t)
	venueA := uuid.New()
	venueB := uuid.New()

	sub := hub.Subscribe([]redisx.Topic{redisx.TopicOccupancy}, nil)
	defer sub.Unsubscribe()

	// One venue's high-water mark must not suppress another venue's
	// events, and redelivery of the current seq stays at-least-once.
	hub.Publish(occupancyChange(venueA, 5))
	hub.Publish(occupancyChange(venueB, 1))
	hub.Publish(occupancyChange(venueA, 5))

	assert.Equal(t, venueA, recvChange(t, sub).VenueID)
	assert.Equal(t, venueB, recvChange(t, sub).VenueID)
	assert.Equal(t, venueA, recvChange(t, sub).VenueID)
}

func TestHubPublishBlocksInsteadOfDropping(t *testing.T) {
	hub := NewHub()
	venueID := uuid.New()

	// Fill the queue while nothing drains it.
	for i := int64(1); i <= int64(cap(hub.broadcast)); i++ {
		hub.Publish(occupancyChange(venueID, i))
	}

	// One more must wait for the loop, not vanish.
	published := make(chan struct{})
	go func() {
		hub.Publish(occupancyChange(venueID, int64(cap(hub.broadcast))+1))
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("publish into a full queue returned without delivering")
	case <-time.After(50 * time.Millisecond):
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("pending publish never completed once the loop drained")
	}
}

func TestHubTopicFilter(t *testing.T) {
	hub := startHub(t)
	venueID := uuid.New()

	sub := hub.Subscribe([]redisx.Topic{redisx.TopicVotes}, nil)
	defer sub.Unsubscribe()

	hub.Publish(occupancyChange(venueID, 1))
	hub.Publish(redisx.VoteChanged(&domain.Vote{
		UserID:  uuid.New(),
		VenueID: venueID,
		Status:  domain.VoteYes,
		CastAt:  time.Now(),
	}))

	c := recvChange(t, sub)
	assert.Equal(t, redisx.TopicVotes, c.Topic)
}

func TestHubInvalidTopicsIgnored(t *testing.T) {
	hub := startHub(t)
	venueID := uuid.New()

	sub := hub.Subscribe([]redisx.Topic{"venue_deleted"}, nil)
	defer sub.Unsubscribe()

	hub.Publish(occupancyChange(venueID, 1))

	select {
	case c := <-sub.Events():
		t.Fatalf("subscription with no valid topics received %v", c.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := startHub(t)
	venueID := uuid.New()

	sub := hub.Subscribe([]redisx.Topic{redisx.TopicOccupancy}, nil)
	sub.Unsubscribe()

	// After Unsubscribe returns the hub has dropped the subscription, so
	// this publish must not land on it.
	hub.Publish(occupancyChange(venueID, 1))

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "channel must be closed, not delivering")
	case <-time.After(time.Second):
		t.Fatal("events channel was not closed")
	}

	// Idempotent.
	sub.Unsubscribe()
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := startHub(t)
	venueID := uuid.New()

	slow := hub.Subscribe([]redisx.Topic{redisx.TopicOccupancy}, nil)
	// Never read from slow: overflow its buffer plus slack.
	for i := int64(1); i <= defaultSubscriberBuffer+10; i++ {
		hub.Publish(occupancyChange(venueID, i))
	}

	// The hub closes the channel once the subscriber cannot keep up.
	// Drain whatever was buffered first.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-slow.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("slow subscriber was never dropped")
		}
	}
}

func TestHubShutdownClosesSubscribers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()

	sub := hub.Subscribe([]redisx.Topic{redisx.TopicOccupancy}, nil)

	cancel()
	<-done

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel not closed on shutdown")
	}

	// Publish and Unsubscribe after shutdown must not block or panic.
	hub.Publish(occupancyChange(uuid.New(), 1))
	sub.Unsubscribe()
}
