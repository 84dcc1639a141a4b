package sim

import (
	"math/rand"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

const (
	fieldLength     = 100
	kickoffPosition = 25
	kickRangeFrom   = 65
	touchdownPoints = 6
	fieldGoalPoints = 3
	knockdownTicks  = 15
	overtimeSeconds = 600
	clutchWindow    = 300
	fieldPlayers    = 6
)

// livePlayer is the in-match state of one player. Mutated only by the
// owning Run.
type livePlayer struct {
	PlayerSnapshot
	stamina          float64
	onField          bool
	knockedDownUntil int
	injury           models.InjuryStatus
	line             PlayerLine
}

type side struct {
	snap     *TeamSnapshot
	opponent *side
	players  []*livePlayer // roster order
	field    []*livePlayer // at most six
	line     TeamLine
	home     bool
}

// Run is a single match simulation in progress. Instant mode drains it;
// live mode steps it one event at a time.
type Run struct {
	in          *Input
	rng         *rand.Rand
	commentator Commentator

	home *side
	away *side

	possession *side
	fieldPos   int

	tick       int
	half       int
	regulation int
	homeScore  int
	awayScore  int

	overtime    bool
	suddenDeath bool
	done        bool

	queue []Event
}

// NewRun validates the input and prepares a simulation at tick zero.
func NewRun(in *Input, commentator Commentator) (*Run, error) {
	home := newSide(&in.Home, true)
	away := newSide(&in.Away, false)
	home.opponent = away
	away.opponent = home
	if len(home.field) == 0 || len(away.field) == 0 {
		return nil, apperr.ErrInsufficientLineup
	}

	regulation := 40 * 60
	if in.MatchType == models.MatchExhibition {
		regulation = 30 * 60
	}

	r := &Run{
		in:          in,
		rng:         rand.New(rand.NewSource(in.Seed)),
		commentator: commentator,
		home:        home,
		away:        away,
		possession:  home,
		fieldPos:    kickoffPosition,
		half:        1,
		regulation:  regulation,
	}
	r.emit(Event{Type: EventKickoff, TeamID: home.snap.TeamID})
	return r, nil
}

func newSide(snap *TeamSnapshot, isHome bool) *side {
	s := &side{snap: snap, home: isHome, line: TeamLine{TeamID: snap.TeamID}}
	for i := range snap.Players {
		p := &snap.Players[i]
		lp := &livePlayer{
			PlayerSnapshot: *p,
			stamina:        float64(p.DailyStamina),
			injury:         p.Injury,
			line:           PlayerLine{PlayerID: p.ID, TeamID: snap.TeamID},
		}
		s.players = append(s.players, lp)
		if lp.Fieldable() && len(s.field) < fieldPlayers {
			lp.onField = true
			s.field = append(s.field, lp)
		}
	}
	return s
}

// Next returns the next event in the stream. It advances the simulation
// as many ticks as needed to produce one. ok is false once the stream has
// ended (after the MATCH_COMPLETE record).
func (r *Run) Next() (*Event, bool) {
	for len(r.queue) == 0 {
		if r.done {
			return nil, false
		}
		r.step()
	}
	ev := r.queue[0]
	r.queue = r.queue[1:]
	return &ev, true
}

// StepTick advances exactly one simulated second and returns the events
// it produced, possibly none. Live mode paces the match by calling this
// once per wall tick; the concatenation of StepTick outputs is identical
// to the Next stream.
func (r *Run) StepTick() []Event {
	if !r.done {
		r.step()
	}
	evs := r.queue
	r.queue = nil
	return evs
}

// Tick returns the current simulated second.
func (r *Run) Tick() int { return r.tick }

// Done reports whether the match has finished.
func (r *Run) Done() bool { return r.done && len(r.queue) == 0 }

// Score returns the current home and away scores.
func (r *Run) Score() (int, int) { return r.homeScore, r.awayScore }

// Half returns the current half (3 = overtime).
func (r *Run) Half() int { return r.half }

// PossessionTeamID returns the team currently holding the ball.
func (r *Run) PossessionTeamID() uint { return r.possession.snap.TeamID }

// step advances exactly one simulated second.
func (r *Run) step() {
	r.tick++

	// Half and match boundaries come before any play.
	if r.boundary() {
		return
	}

	// Stamina decay and race regeneration, home roster first. Fixed
	// iteration order keeps the stream deterministic.
	r.tickStamina(r.home)
	r.tickStamina(r.away)

	// Substitution triggers take the tick's primary event slot.
	if r.substitutions(r.home) || r.substitutions(r.away) {
		return
	}

	// Possession accounting.
	r.possession.line.PossessionSeconds++
	for _, s := range []*side{r.home, r.away} {
		for _, lp := range s.field {
			lp.line.SecondsPlayed++
		}
	}

	r.action()
}

// boundary handles halftime, regulation end, overtime and sudden death.
// Returns true when the tick was consumed by a boundary.
func (r *Run) boundary() bool {
	halfLen := r.regulation / 2
	switch {
	case r.half == 1 && r.tick > halfLen:
		r.half = 2
		r.possession = r.away
		r.fieldPos = kickoffPosition
		r.emit(Event{Type: EventHalftime})
		return true
	case r.half == 2 && r.tick > r.regulation:
		if r.homeScore != r.awayScore || !r.overtimeAllowed() {
			r.finish()
			return true
		}
		r.half = 3
		r.overtime = true
		r.possession = r.home
		r.fieldPos = kickoffPosition
		r.emit(Event{Type: EventOvertime})
		return true
	case r.half == 3 && !r.suddenDeath && r.tick > r.regulation+overtimeSeconds:
		if r.homeScore != r.awayScore {
			r.finish()
			return true
		}
		r.suddenDeath = true
	case r.suddenDeath && r.homeScore != r.awayScore:
		r.finish()
		return true
	}
	return false
}

func (r *Run) overtimeAllowed() bool {
	return r.in.MatchType == models.MatchTournament || r.in.MatchType == models.MatchPlayoff
}

func (r *Run) finish() {
	r.done = true
	r.emit(Event{Type: EventMatchEnd})
}

// substitutions pulls the next eligible bench player of the same role for
// any fielded player below 50 stamina or carrying a moderate-plus injury.
// One substitution consumes the tick's primary event.
func (r *Run) substitutions(s *side) bool {
	for _, lp := range s.field {
		needsOut := lp.stamina < 50 || lp.injury == models.InjuryModerate || lp.injury == models.InjurySevere
		if !needsOut {
			continue
		}
		replacement := s.nextEligible(lp.Role)
		if replacement == nil {
			// No eligible bench player; carries on with penalties,
			// unless severely injured.
			if lp.injury == models.InjurySevere {
				s.removeFromField(lp)
				r.emit(Event{Type: EventSubTrigger, TeamID: s.snap.TeamID, ActorIDs: []uint{lp.ID}, Severity: string(lp.injury)})
				return true
			}
			continue
		}
		s.removeFromField(lp)
		replacement.onField = true
		s.field = append(s.field, replacement)
		r.emit(Event{Type: EventSubTrigger, TeamID: s.snap.TeamID, ActorIDs: []uint{lp.ID, replacement.ID}})
		return true
	}
	return false
}

func (s *side) nextEligible(role models.Role) *livePlayer {
	for _, lp := range s.players {
		if lp.onField || !lp.Fieldable() || lp.injury == models.InjurySevere {
			continue
		}
		if lp.Role == role {
			return lp
		}
	}
	return nil
}

func (s *side) removeFromField(lp *livePlayer) {
	lp.onField = false
	for i, f := range s.field {
		if f == lp {
			s.field = append(s.field[:i], s.field[i+1:]...)
			return
		}
	}
}

// ForceSubstitute applies a caller-requested substitution at the next tick
// boundary. Used by the live match manager; instant simulations never call
// it, so the two modes stay identical absent caller input.
func (r *Run) ForceSubstitute(teamID, outID, inID uint) error {
	s := r.home
	if teamID == r.away.snap.TeamID {
		s = r.away
	} else if teamID != r.home.snap.TeamID {
		return apperr.ErrTeamNotFound
	}

	var out, in *livePlayer
	for _, lp := range s.players {
		switch lp.ID {
		case outID:
			out = lp
		case inID:
			in = lp
		}
	}
	if out == nil || in == nil {
		return apperr.ErrPlayerNotFound
	}
	if !out.onField || in.onField || !in.Fieldable() || in.injury == models.InjurySevere {
		return apperr.ErrInvalidRoster
	}
	s.removeFromField(out)
	in.onField = true
	s.field = append(s.field, in)
	r.emit(Event{Type: EventSubTrigger, TeamID: s.snap.TeamID, ActorIDs: []uint{out.ID, in.ID}})
	return nil
}

// applyScore records points for the side and resets for kickoff.
func (r *Run) applyScore(s *side, points int, actor *livePlayer, evType EventType) {
	if s.home {
		r.homeScore += points
	} else {
		r.awayScore += points
	}
	actor.line.Scores++
	ev := Event{
		Type:     EventScore,
		TeamID:   s.snap.TeamID,
		ActorIDs: []uint{actor.ID},
		Points:   points,
		Success:  true,
		Severity: string(evType),
	}
	r.emit(ev)
	r.possession = s.opponent
	r.fieldPos = kickoffPosition
}

// turnover flips possession and mirrors field position.
func (r *Run) turnover() {
	r.possession.line.Turnovers++
	r.possession = r.possession.opponent
	r.fieldPos = fieldLength - r.fieldPos
}

// emit finalizes an event with clock and score context, attaches
// commentary, and queues it.
func (r *Run) emit(ev Event) {
	ev.Tick = r.tick
	ev.Half = r.half
	ev.HomeScore = r.homeScore
	ev.AwayScore = r.awayScore
	if r.commentator != nil {
		ctx := CommentaryContext{
			SecondsLeft: r.secondsLeft(),
			MatchType:   r.in.MatchType,
		}
		if len(ev.ActorIDs) > 0 {
			if lp := r.findPlayer(ev.ActorIDs[0]); lp != nil {
				ctx.ActorName = lp.Name
				ctx.ActorRace = lp.Race
				ctx.ActorStamina = int(lp.stamina)
			}
		}
		if ev.TeamID == r.home.snap.TeamID {
			ctx.ScoreDiff = r.homeScore - r.awayScore
		} else if ev.TeamID == r.away.snap.TeamID {
			ctx.ScoreDiff = r.awayScore - r.homeScore
		}
		ev.Commentary = r.commentator.Line(&ev, ctx, r.rng)
	}
	r.queue = append(r.queue, ev)
}

func (r *Run) secondsLeft() int {
	left := r.regulation - r.tick
	if left < 0 {
		left = 0
	}
	return left
}

func (r *Run) findPlayer(id uint) *livePlayer {
	for _, s := range []*side{r.home, r.away} {
		for _, lp := range s.players {
			if lp.ID == id {
				return lp
			}
		}
	}
	return nil
}

// Simulate runs a match to completion in instant mode.
func Simulate(in *Input, commentator Commentator) (*Result, error) {
	r, err := NewRun(in, commentator)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for {
		ev, ok := r.Next()
		if !ok {
			break
		}
		res.Events = append(res.Events, *ev)
	}
	res.HomeScore, res.AwayScore = r.Score()
	res.FinalTick = r.Tick()
	res.PlayerLines = r.PlayerLines()
	res.TeamLines = r.TeamLines()
	return res, nil
}

// PlayerLines returns per-player stat lines, home roster first.
func (r *Run) PlayerLines() []PlayerLine {
	var lines []PlayerLine
	for _, s := range []*side{r.home, r.away} {
		for _, lp := range s.players {
			lines = append(lines, lp.line)
		}
	}
	return lines
}

// TeamLines returns the home and away aggregates.
func (r *Run) TeamLines() [2]TeamLine {
	return [2]TeamLine{r.home.line, r.away.line}
}

// PlayerState is the checkpointed view of one player mid-match.
type PlayerState struct {
	PlayerID uint    `json:"player_id"`
	Stamina  float64 `json:"stamina"`
	OnField  bool    `json:"on_field"`
	Injury   string  `json:"injury"`
	Seconds  int     `json:"seconds_played"`
}

// PlayerStates snapshots per-player live state for checkpointing.
func (r *Run) PlayerStates() []PlayerState {
	var states []PlayerState
	for _, s := range []*side{r.home, r.away} {
		for _, lp := range s.players {
			states = append(states, PlayerState{
				PlayerID: lp.ID,
				Stamina:  lp.stamina,
				OnField:  lp.onField,
				Injury:   string(lp.injury),
				Seconds:  lp.line.SecondsPlayed,
			})
		}
	}
	return states
}

// Replay advances a fresh run to the given tick, discarding events. A
// restored run produced this way is byte-identical to the original from
// that tick onward because the PRNG consumption is identical.
func Replay(in *Input, commentator Commentator, toTick int) (*Run, []Event, error) {
	r, err := NewRun(in, commentator)
	if err != nil {
		return nil, nil, err
	}
	var replayed []Event
	for r.tick < toTick && !r.Done() {
		ev, ok := r.Next()
		if !ok {
			break
		}
		replayed = append(replayed, *ev)
	}
	return r, replayed, nil
}
