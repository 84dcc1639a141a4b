package commentary

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/sim"
)

func runEvent() *sim.Event {
	return &sim.Event{Type: sim.EventRun, Yards: 7, Success: true}
}

func runContext(race models.Race) sim.CommentaryContext {
	return sim.CommentaryContext{
		ActorName:   "Vex Shadowstep",
		ActorRace:   race,
		SecondsLeft: 1200,
	}
}

func TestLineDeterministic(t *testing.T) {
	s := NewSelector()
	a := s.Line(runEvent(), runContext(models.RaceUmbra), rand.New(rand.NewSource(42)))
	b := s.Line(runEvent(), runContext(models.RaceUmbra), rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestLineLeavesSharedStreamDeterministic(t *testing.T) {
	// The selector shares the engine PRNG: a fixed sequence of events must
	// leave the stream in the same state on every run.
	s := NewSelector()
	sequence := []*sim.Event{
		runEvent(),
		{Type: sim.EventScore, Points: 2},
		{Type: sim.EventInjury, Severity: "MINOR"},
	}

	draw := func() int64 {
		rng := rand.New(rand.NewSource(7))
		for _, ev := range sequence {
			s.Line(ev, runContext(models.RaceHuman), rng)
		}
		return rng.Int63()
	}
	assert.Equal(t, draw(), draw())
}

func TestLineSubstitutesPlaceholders(t *testing.T) {
	s := NewSelector()
	for seed := int64(0); seed < 20; seed++ {
		line := s.Line(runEvent(), runContext(models.RaceHuman), rand.New(rand.NewSource(seed)))
		assert.NotContains(t, line, "{actor}")
		assert.NotContains(t, line, "{yards}")
	}
}

func TestLineNeverMisattributesRaceVariant(t *testing.T) {
	s := NewSelector()
	// A human runner must never draw the Umbra or Gryll line.
	for seed := int64(0); seed < 100; seed++ {
		line := s.Line(runEvent(), runContext(models.RaceHuman), rand.New(rand.NewSource(seed)))
		assert.NotContains(t, line, "shadow")
		assert.NotContains(t, line, "bulling")
	}
}

func TestRaceVariantReachable(t *testing.T) {
	s := NewSelector()
	found := false
	for seed := int64(0); seed < 100; seed++ {
		line := s.Line(runEvent(), runContext(models.RaceUmbra), rand.New(rand.NewSource(seed)))
		if strings.Contains(line, "shadow") {
			found = true
			break
		}
	}
	assert.True(t, found, "race variant never selected across 100 seeds")
}

func TestCategoryMapping(t *testing.T) {
	s := NewSelector()
	cases := []struct {
		ev   sim.Event
		want string
	}{
		{sim.Event{Type: sim.EventKickoff}, "pregame"},
		{sim.Event{Type: sim.EventScore}, "scoring"},
		{sim.Event{Type: sim.EventKick}, "scoring"},
		{sim.Event{Type: sim.EventPass, Success: true}, "passes"},
		{sim.Event{Type: sim.EventPass, Success: false}, "defense"},
		{sim.Event{Type: sim.EventRun}, "runs"},
		{sim.Event{Type: sim.EventTackle}, "defense"},
		{sim.Event{Type: sim.EventFumble}, "looseball"},
		{sim.Event{Type: sim.EventInjury}, "injury"},
		{sim.Event{Type: sim.EventSubTrigger}, "fatigue"},
		{sim.Event{Type: sim.EventHalftime}, "contextual"},
		{sim.Event{Type: sim.EventMatchEnd}, "contextual"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, s.category(&c.ev, runContext(models.RaceHuman)), string(c.ev.Type))
	}
}
