package notifier

import (
	"context"
	"sync"

	"github.com/google/uuid"

	redisx "github.com/venuepulse/venuepulse/internal/redis"
)

const defaultSubscriberBuffer = 64

// Hub fans committed change events out to live subscribers. All events
// pass through one broadcast loop, so each subscriber sees events for a
// given venue in publish (commit) order. Delivery is best effort: a
// subscriber that cannot keep up is dropped — disconnected, never silently
// skipped — and pending events for closed subscriptions are discarded.
type Hub struct {
	register   chan *Subscription
	unregister chan unsubReq
	broadcast  chan redisx.Change

	done     chan struct{}
	stopOnce sync.Once
}

type unsubReq struct {
	sub  *Subscription
	done chan struct{}
}

// Subscription is one live listener: a topic set, an optional venue
// filter, and a buffered event channel. Lifecycle is active → closed;
// Unsubscribe returns only after the hub will send nothing further.
type Subscription struct {
	topics map[redisx.Topic]struct{}
	venues map[uuid.UUID]struct{} // empty matches every venue

	events chan redisx.Change
	hub    *Hub
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Subscription),
		unregister: make(chan unsubReq),
		broadcast:  make(chan redisx.Change, 256),
		done:       make(chan struct{}),
	}
}

type seqKey struct {
	venue uuid.UUID
	topic redisx.Topic
}

// Run owns the subscriber set until ctx is cancelled. On shutdown every
// remaining subscription is closed.
func (h *Hub) Run(ctx context.Context) error {
	subs := make(map[*Subscription]struct{})

	// Highest sequence fanned out per venue and topic. The redis bridge
	// hands over events from concurrent publishers, so a later commit can
	// arrive first; anything below the high-water mark is stale and must
	// not be delivered after its successor. Equal sequences pass: the
	// stream is at-least-once.
	lastSeq := make(map[seqKey]int64)

	defer func() {
		h.stopOnce.Do(func() { close(h.done) })
		for sub := range subs {
			close(sub.events)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sub := <-h.register:
			subs[sub] = struct{}{}

		case req := <-h.unregister:
			if _, ok := subs[req.sub]; ok {
				delete(subs, req.sub)
				close(req.sub.events)
			}
			close(req.done)

		case c := <-h.broadcast:
			if c.Seq > 0 {
				k := seqKey{venue: c.VenueID, topic: c.Topic}
				if c.Seq < lastSeq[k] {
					continue
				}
				lastSeq[k] = c.Seq
			}

			for sub := range subs {
				if !sub.matches(c) {
					continue
				}
				select {
				case sub.events <- c:
				default:
					// Too slow to keep its delivery guarantee; cut it
					// loose so it resyncs on reconnect.
					delete(subs, sub)
					close(sub.events)
				}
			}
		}
	}
}

// Publish queues a change for fan-out. It never blocks on subscriber
// delivery, only on the hub's own queue; the caller is the change-stream
// bridge goroutine, which may safely wait for the loop to drain. While
// the hub runs, every published event reaches every subscriber that can
// keep up — loss happens only by disconnect.
func (h *Hub) Publish(c redisx.Change) {
	select {
	case h.broadcast <- c:
	case <-h.done:
	}
}

// Subscribe registers a listener for the given topics, optionally scoped
// to a venue set. Invalid topics are ignored; subscribing with none valid
// still yields a subscription that matches nothing.
func (h *Hub) Subscribe(topics []redisx.Topic, venueFilter []uuid.UUID) *Subscription {
	sub := &Subscription{
		topics: make(map[redisx.Topic]struct{}, len(topics)),
		venues: make(map[uuid.UUID]struct{}, len(venueFilter)),
		events: make(chan redisx.Change, defaultSubscriberBuffer),
		hub:    h,
	}

	for _, t := range topics {
		if redisx.ValidTopic(t) {
			sub.topics[t] = struct{}{}
		}
	}

	for _, id := range venueFilter {
		sub.venues[id] = struct{}{}
	}

	select {
	case h.register <- sub:
	case <-h.done:
		close(sub.events)
	}

	return sub
}

func (s *Subscription) matches(c redisx.Change) bool {
	if _, ok := s.topics[c.Topic]; !ok {
		return false
	}

	if len(s.venues) == 0 {
		return true
	}

	_, ok := s.venues[c.VenueID]
	return ok
}

// Events is the subscriber's receive channel. It is closed by Unsubscribe,
// hub shutdown, or a slow-subscriber drop.
func (s *Subscription) Events() <-chan redisx.Change {
	return s.events
}

// Unsubscribe releases the subscription. When it returns, the hub has
// removed the subscription and no further event will be delivered.
// Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		req := unsubReq{sub: s, done: make(chan struct{})}
		select {
		case s.hub.unregister <- req:
			<-req.done
		case <-s.hub.done:
		}
	})
}
