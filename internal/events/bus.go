// Package events is the in-process fan-out for live match events.
// Subscribers receive every event for their game in order through a
// bounded buffer; a subscriber that falls behind is dropped rather than
// ever blocking the simulation.
package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jimmy058910/replitballgame-sub006/internal/sim"
)

// MatchEvent is the envelope delivered to subscribers.
type MatchEvent struct {
	GameID uint      `json:"game_id"`
	Event  sim.Event `json:"event"`
}

// Subscription is one subscriber's ordered event feed. C is closed when
// the match completes or the subscriber is dropped for falling behind.
type Subscription struct {
	ID     string
	GameID uint
	C      <-chan MatchEvent

	ch     chan MatchEvent
	closed bool
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[uint][]*Subscription // by game id
	logger *logrus.Logger
}

func NewBus(logger *logrus.Logger) *Bus {
	return &Bus{
		subs:   make(map[uint][]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a feed for one game with the given buffer size.
func (b *Bus) Subscribe(gameID uint, buffer int) *Subscription {
	ch := make(chan MatchEvent, buffer)
	sub := &Subscription{
		ID:     uuid.NewString(),
		GameID: gameID,
		C:      ch,
		ch:     ch,
	}
	b.mu.Lock()
	b.subs[gameID] = append(b.subs[gameID], sub)
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes and closes the subscription.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remove(sub)
}

// remove must be called with the lock held.
func (b *Bus) remove(sub *Subscription) {
	if sub.closed {
		return
	}
	list := b.subs[sub.GameID]
	for i, s := range list {
		if s == sub {
			b.subs[sub.GameID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	sub.closed = true
	close(sub.ch)
}

// Publish delivers ev to every subscriber of the game. Delivery never
// blocks: a subscriber with a full buffer is disconnected.
func (b *Bus) Publish(gameID uint, ev sim.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var dropped []*Subscription
	for _, sub := range b.subs[gameID] {
		select {
		case sub.ch <- MatchEvent{GameID: gameID, Event: ev}:
		default:
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		b.logger.Warnf("Dropping slow subscriber %s on game %d", sub.ID, gameID)
		b.remove(sub)
	}
}

// CloseGame ends all feeds for a completed match. The terminal
// MATCH_COMPLETE event must be published before calling this.
func (b *Bus) CloseGame(gameID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range append([]*Subscription(nil), b.subs[gameID]...) {
		b.remove(sub)
	}
	delete(b.subs, gameID)
}

// SubscriberCount reports active feeds for a game.
func (b *Bus) SubscriberCount(gameID uint) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[gameID])
}
