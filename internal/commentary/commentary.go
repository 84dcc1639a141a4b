// Package commentary selects a broadcast line for each match event from a
// categorized prompt database. Selection is deterministic given the event,
// its context and the engine PRNG, so commentary replays identically with
// the event stream.
package commentary

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/sim"
)

// prompt is one template. Placeholders: {actor}, {yards}.
type prompt struct {
	text string
	race models.Race // empty = any
}

// Selector implements sim.Commentator over the built-in prompt database.
type Selector struct {
	categories map[string][]prompt
}

const raceVariantChance = 0.30

func NewSelector() *Selector {
	return &Selector{categories: promptDB()}
}

// Line picks the category for the event, then a prompt within it. Race
// variants win a 30% roll when the actor's race matches. Both rolls
// always consume exactly two PRNG values per event, keeping the engine
// stream stable.
func (s *Selector) Line(ev *sim.Event, ctx sim.CommentaryContext, rng *rand.Rand) string {
	cat := s.category(ev, ctx)
	prompts := s.categories[cat]
	if len(prompts) == 0 {
		prompts = s.categories["flow"]
	}

	useRace := rng.Float64() < raceVariantChance
	idx := rng.Intn(len(prompts))

	chosen := prompts[idx]
	if useRace && ctx.ActorRace != "" {
		for _, p := range prompts {
			if p.race == ctx.ActorRace {
				chosen = p
				break
			}
		}
	}
	if chosen.race != "" && chosen.race != ctx.ActorRace {
		// Race-specific prompt drawn for the wrong race: fall back to the
		// first generic prompt in the category.
		for _, p := range prompts {
			if p.race == "" {
				chosen = p
				break
			}
		}
	}

	line := strings.ReplaceAll(chosen.text, "{actor}", ctx.ActorName)
	line = strings.ReplaceAll(line, "{yards}", fmt.Sprintf("%d", ev.Yards))
	return line
}

// category maps an event and situation onto a prompt category.
func (s *Selector) category(ev *sim.Event, ctx sim.CommentaryContext) string {
	switch ev.Type {
	case sim.EventKickoff:
		return "pregame"
	case sim.EventScore:
		return "scoring"
	case sim.EventPass:
		if !ev.Success {
			return "defense"
		}
		return "passes"
	case sim.EventRun:
		return "runs"
	case sim.EventKick:
		return "scoring"
	case sim.EventTackle, sim.EventKnockdown:
		return "defense"
	case sim.EventFumble:
		return "looseball"
	case sim.EventInjury:
		return "injury"
	case sim.EventSubTrigger:
		return "fatigue"
	case sim.EventHalftime, sim.EventOvertime, sim.EventMatchEnd:
		return "contextual"
	}
	if ctx.SecondsLeft <= 300 && abs(ctx.ScoreDiff) <= 2 {
		return "urgency"
	}
	return "flow"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func promptDB() map[string][]prompt {
	return map[string][]prompt{
		"pregame": {
			{text: "The dome lights blaze as both sides take the field."},
			{text: "The crowd is on its feet for the opening whistle."},
			{text: "Six a side, one ball, and everything to play for."},
		},
		"flow": {
			{text: "{actor} keeps the tempo up through midfield."},
			{text: "Both lines reset as play grinds on."},
			{text: "The ball works its way along the dome wall."},
		},
		"urgency": {
			{text: "Every second counts now and {actor} knows it."},
			{text: "The clock is the real opponent here."},
			{text: "You can feel the tension all the way up in the cheap seats."},
		},
		"looseball": {
			{text: "The ball is loose on the turf!"},
			{text: "{actor} coughs it up under pressure!"},
			{text: "A scramble for the loose ball and possession flips."},
		},
		"runs": {
			{text: "{actor} bursts through for {yards} yards."},
			{text: "{actor} cuts inside and picks up {yards}."},
			{text: "{actor} flickers through the gap like a shadow.", race: models.RaceUmbra},
			{text: "{actor} simply refuses to go down, bulling ahead for {yards}.", race: models.RaceGryll},
		},
		"passes": {
			{text: "{actor} threads the needle for {yards} yards."},
			{text: "A clean strike from {actor} moves the chains."},
			{text: "{actor} arcs one downfield with impossible grace.", race: models.RaceSylvan},
			{text: "{actor} fires a laser through the traffic.", race: models.RaceLumina},
		},
		"defense": {
			{text: "{actor} shuts the play down cold."},
			{text: "Nothing doing — {actor} wraps up the carrier."},
			{text: "{actor} reads it all the way and breaks up the play."},
		},
		"injury": {
			{text: "{actor} is slow getting up after that collision."},
			{text: "The trainers are waving for a look at {actor}."},
		},
		"fatigue": {
			{text: "{actor} signals to the bench — fresh legs coming on."},
			{text: "The pace is taking its toll; a change for {actor}."},
		},
		"scoring": {
			{text: "{actor} finds the end zone — the dome erupts!"},
			{text: "Points on the board for {actor}'s side."},
			{text: "{actor} splits the uprights."},
		},
		"camaraderie": {
			{text: "This unit is playing like they share one heartbeat."},
			{text: "You can see the trust between these teammates."},
		},
		"atmosphere": {
			{text: "The home crowd is deafening inside the dome."},
			{text: "The noise in here has to be worth a point or two."},
		},
		"contextual": {
			{text: "And that is how the half closes out."},
			{text: "The players catch their breath as the whistle blows."},
			{text: "That will go straight to the highlight reels."},
		},
	}
}
