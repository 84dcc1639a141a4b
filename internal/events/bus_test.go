package events

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmy058910/replitballgame-sub006/internal/sim"
)

func newTestBus() *Bus {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewBus(logger)
}

func TestPublishDeliversInOrder(t *testing.T) {
	b := newTestBus()
	sub := b.Subscribe(1, 16)

	for tick := 1; tick <= 5; tick++ {
		b.Publish(1, sim.Event{Tick: tick, Type: sim.EventRun})
	}
	b.CloseGame(1)

	var ticks []int
	for ev := range sub.C {
		assert.Equal(t, uint(1), ev.GameID)
		ticks = append(ticks, ev.Event.Tick)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ticks)
}

func TestPublishIsolatesGames(t *testing.T) {
	b := newTestBus()
	one := b.Subscribe(1, 16)
	two := b.Subscribe(2, 16)

	b.Publish(1, sim.Event{Tick: 1})
	b.CloseGame(1)
	b.CloseGame(2)

	count := 0
	for range one.C {
		count++
	}
	assert.Equal(t, 1, count)
	_, ok := <-two.C
	assert.False(t, ok)
}

func TestSlowSubscriberDropped(t *testing.T) {
	b := newTestBus()
	slow := b.Subscribe(1, 2)
	fast := b.Subscribe(1, 16)

	for tick := 1; tick <= 5; tick++ {
		b.Publish(1, sim.Event{Tick: tick})
	}

	// The slow feed filled its buffer on the third publish and was cut;
	// its channel is closed after the buffered events drain.
	assert.Equal(t, 1, b.SubscriberCount(1))
	drained := 0
	for range slow.C {
		drained++
	}
	assert.Equal(t, 2, drained)

	// The fast feed saw everything.
	b.CloseGame(1)
	got := 0
	for range fast.C {
		got++
	}
	assert.Equal(t, 5, got)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	b := newTestBus()
	sub := b.Subscribe(1, 4)
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount(1))

	// Publishing to a game with no feeds is a no-op.
	b.Publish(1, sim.Event{Tick: 1})
}

func TestCloseGameClosesAllFeeds(t *testing.T) {
	b := newTestBus()
	a := b.Subscribe(7, 4)
	c := b.Subscribe(7, 4)
	require.Equal(t, 2, b.SubscriberCount(7))

	b.CloseGame(7)
	assert.Equal(t, 0, b.SubscriberCount(7))
	_, ok := <-a.C
	assert.False(t, ok)
	_, ok = <-c.C
	assert.False(t, ok)
}
