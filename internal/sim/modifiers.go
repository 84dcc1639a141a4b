package sim

import (
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

// Baseline per-tick stamina decay; action resolution adds load on top.
const (
	baseStaminaDecay  = 0.03
	largeFieldDecay   = 1.15
	actionLoadRunner  = 0.9
	actionLoadPasser  = 0.5
	actionLoadContact = 0.7
)

// tickStamina applies decay and race regeneration for every fielded
// player, in roster order. Race rolls consume PRNG values in this fixed
// order, which the determinism guarantee depends on.
func (r *Run) tickStamina(s *side) {
	decay := baseStaminaDecay
	if r.in.FieldSize == models.FieldLarge {
		decay *= largeFieldDecay
	}
	var luminaRegen int
	for _, lp := range s.field {
		lp.stamina -= decay
		if lp.stamina < 0 {
			lp.stamina = 0
		}
		switch lp.Race {
		case models.RaceSylvan:
			// Photosynthetic recovery: 10% chance of +2 each tick.
			if r.rng.Float64() < 0.10 {
				lp.stamina = clampStamina(lp.stamina + 2)
			}
		case models.RaceLumina:
			// Radiant aura: 5% chance of +1 to all teammates.
			if r.rng.Float64() < 0.05 {
				luminaRegen++
			}
		}
	}
	if luminaRegen > 0 {
		for _, lp := range s.field {
			lp.stamina = clampStamina(lp.stamina + float64(luminaRegen))
		}
	}
}

func clampStamina(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

// Fatigue penalties below 20 stamina: speed and agility lose 1 per 5
// points lost, power loses 0.5 per 5.
func fatigueSteps(stamina float64) float64 {
	if stamina >= 20 {
		return 0
	}
	return (20 - stamina) / 5
}

func (lp *livePlayer) effSpeed() float64 {
	return float64(lp.Speed) - fatigueSteps(lp.stamina)
}

func (lp *livePlayer) effAgility() float64 {
	return float64(lp.Agility) - fatigueSteps(lp.stamina)
}

func (lp *livePlayer) effPower() float64 {
	return float64(lp.Power) - fatigueSteps(lp.stamina)*0.5
}

// camaraderieMod maps team camaraderie [0,100] onto roughly [-10,+10],
// the term the success formulas divide by 100.
func camaraderieMod(camaraderie int) float64 {
	return float64(camaraderie-50) / 5.0
}

// intimidation felt by a side: the away team faces the home stadium's
// atmosphere, the home team faces none.
func (r *Run) intimidationAgainst(s *side) float64 {
	if s.home {
		return 0
	}
	return float64(r.home.snap.Intimidation)
}

// situational returns the aggression and risk weight multipliers for the
// side in possession. Second half only: past a six-point swing the
// trailing team enters desperation mode and the leader sits on the ball.
func (r *Run) situational(s *side) (aggression, risk float64) {
	aggression, risk = 1.0, 1.0
	if r.half < 2 {
		return
	}
	diff := r.homeScore - r.awayScore
	if !s.home {
		diff = -diff
	}
	switch {
	case diff <= -6:
		aggression, risk = 1.8, 2.0
	case diff >= 6:
		aggression, risk = 1.0/1.5, 0.6
	}
	return
}

// clutch returns the performance multiplier in the final five minutes of
// a close regulation game: up to +/-30% depending on camaraderie and the
// best on-field leader.
func (r *Run) clutch(s *side) float64 {
	if r.half != 2 || r.secondsLeft() > clutchWindow {
		return 1.0
	}
	diff := r.homeScore - r.awayScore
	if diff < 0 {
		diff = -diff
	}
	if diff > 2 {
		return 1.0
	}
	leader := 0
	for _, lp := range s.field {
		if lp.Leadership > leader {
			leader = lp.Leadership
		}
	}
	// Composure in [0,1] from camaraderie (0-100) and leadership (0-40).
	composure := (float64(s.snap.Camaraderie)/100.0 + float64(leader)/40.0) / 2.0
	return 0.7 + 0.6*composure
}

// roleCounts tallies fielded players by role.
func (s *side) roleCounts() (passers, runners, blockers int) {
	for _, lp := range s.field {
		switch lp.Role {
		case models.RolePasser:
			passers++
		case models.RoleRunner:
			runners++
		case models.RoleBlocker:
			blockers++
		}
	}
	return
}

// byRole returns standing fielded players of the role, falling back to
// any standing player. Order follows the field slice.
func (s *side) byRole(role models.Role, tick int) []*livePlayer {
	var out []*livePlayer
	for _, lp := range s.field {
		if lp.Role == role && lp.knockedDownUntil <= tick {
			out = append(out, lp)
		}
	}
	if len(out) == 0 {
		out = s.standing(tick)
	}
	return out
}

// standing returns fielded players not currently knocked down.
func (s *side) standing(tick int) []*livePlayer {
	var out []*livePlayer
	for _, lp := range s.field {
		if lp.knockedDownUntil <= tick {
			out = append(out, lp)
		}
	}
	return out
}
