// Package sim is the deterministic, tick-based match simulation engine.
// For identical input and seed the event stream is byte-identical across
// runs and across instant and live modes: the only entropy source is a
// single seeded PRNG, and all iteration is over ordered slices.
package sim

import (
	"math/rand"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

// PlayerSnapshot is an immutable view of one player at kickoff.
type PlayerSnapshot struct {
	ID         uint
	Name       string
	Role       models.Role
	Race       models.Race
	Age        int
	Speed      int
	Power      int
	Agility    int
	Throwing   int
	Catching   int
	Kicking    int
	Stamina    int
	Leadership int

	DailyStamina int
	Injury       models.InjuryStatus
}

// Fieldable reports whether the player may start or enter the field.
func (p *PlayerSnapshot) Fieldable() bool {
	return p.Injury != models.InjurySevere
}

// TeamSnapshot is an immutable view of one team at kickoff. Players are in
// roster order; the first eligible six are fielded.
type TeamSnapshot struct {
	TeamID        uint
	Name          string
	TacticalFocus models.TacticalFocus
	Camaraderie   int
	// Intimidation is stadium atmosphere felt by the opponent; non-zero
	// only for the home side's stadium.
	Intimidation int
	Players      []PlayerSnapshot
}

// Input is the full immutable simulation input.
type Input struct {
	GameID    uint
	MatchType models.MatchType
	// FieldSize is the home team's field.
	FieldSize models.FieldSize
	Home      TeamSnapshot
	Away      TeamSnapshot
	Seed      int64
}

// EventType enumerates primary match events. At most one primary event is
// emitted per tick.
type EventType string

const (
	EventKickoff    EventType = "KICKOFF"
	EventPass       EventType = "PASS"
	EventRun        EventType = "RUN"
	EventKick       EventType = "KICK"
	EventTackle     EventType = "TACKLE"
	EventKnockdown  EventType = "KNOCKDOWN"
	EventFumble     EventType = "LOOSE_BALL"
	EventScore      EventType = "SCORE"
	EventInjury     EventType = "INJURY"
	EventSubTrigger EventType = "SUBSTITUTION"
	EventHalftime   EventType = "HALFTIME"
	EventOvertime   EventType = "OVERTIME"
	EventMatchEnd   EventType = "MATCH_COMPLETE"
)

// Event is one record of the ordered match event stream.
type Event struct {
	Tick       int       `json:"tick"`
	Half       int       `json:"half"`
	Type       EventType `json:"type"`
	TeamID     uint      `json:"team_id,omitempty"`
	ActorIDs   []uint    `json:"actor_ids,omitempty"`
	Yards      int       `json:"yards,omitempty"`
	Points     int       `json:"points,omitempty"`
	Success    bool      `json:"success"`
	Severity   string    `json:"severity,omitempty"`
	HomeScore  int       `json:"home_score"`
	AwayScore  int       `json:"away_score"`
	Commentary string    `json:"commentary,omitempty"`
}

// PlayerLine is a player's accumulated statistics.
type PlayerLine struct {
	PlayerID            uint `json:"player_id"`
	TeamID              uint `json:"team_id"`
	SecondsPlayed       int  `json:"seconds_played"`
	PassAttempts        int  `json:"pass_attempts"`
	PassCompletions     int  `json:"pass_completions"`
	PassingYards        int  `json:"passing_yards"`
	RushingYards        int  `json:"rushing_yards"`
	Catches             int  `json:"catches"`
	Drops               int  `json:"drops"`
	Scores              int  `json:"scores"`
	Tackles             int  `json:"tackles"`
	KnockdownsInflicted int  `json:"knockdowns_inflicted"`
	FumblesLost         int  `json:"fumbles_lost"`
}

// TeamLine is a team's accumulated statistics.
type TeamLine struct {
	TeamID            uint `json:"team_id"`
	TotalYards        int  `json:"total_yards"`
	PossessionSeconds int  `json:"possession_seconds"`
	Turnovers         int  `json:"turnovers"`
	Knockdowns        int  `json:"knockdowns"`
}

// Result is the complete output of an instant simulation.
type Result struct {
	HomeScore   int
	AwayScore   int
	Events      []Event
	PlayerLines []PlayerLine
	TeamLines   [2]TeamLine // home, away
	FinalTick   int
}

// CommentaryContext carries the situation a commentary line is chosen for.
type CommentaryContext struct {
	ActorName    string
	ActorRace    models.Race
	ActorStamina int
	ScoreDiff    int // from the acting team's perspective
	SecondsLeft  int
	MatchType    models.MatchType
}

// Commentator selects a line for an event. Implementations must be
// deterministic given the event, context and PRNG.
type Commentator interface {
	Line(ev *Event, ctx CommentaryContext, rng *rand.Rand) string
}
