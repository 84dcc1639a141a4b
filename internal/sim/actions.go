package sim

import (
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

type actionType int

const (
	actionPass actionType = iota
	actionRun
	actionKick
	actionTackle
	actionKnockdown
	actionLooseBall
	actionHold
)

// clampP bounds a success probability per the engine contract.
func clampP(p, lo, hi float64) float64 {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}

// action selects and resolves at most one primary event for the tick.
func (r *Run) action() {
	atk := r.possession
	def := atk.opponent

	passers, runners, _ := atk.roleCounts()
	_, _, defBlockers := def.roleCounts()

	aggression, risk := r.situational(atk)

	// Base weights scale with the role mix on the field; tactics and
	// situation shift them. Exact values are tuning, not contract.
	wPass := (20.0 + 8.0*float64(passers)) * aggression
	wRun := (20.0 + 8.0*float64(runners)) * aggression
	wKick := 0.0
	if r.fieldPos >= kickRangeFrom {
		wKick = 12.0 * aggression
	}
	wTackle := 10.0 + 4.0*float64(defBlockers)
	wKnockdown := 6.0 + 3.0*float64(defBlockers)
	wLoose := 3.0 * risk
	wHold := 10.0

	switch atk.snap.TacticalFocus {
	case models.TacticsAllOutAttack:
		wPass *= 1.3
		wRun *= 1.3
		wKick *= 1.2
	case models.TacticsDefensiveWall:
		wPass *= 0.8
		wRun *= 0.8
		wHold *= 1.4
	}
	switch def.snap.TacticalFocus {
	case models.TacticsDefensiveWall:
		wTackle *= 1.4
		wKnockdown *= 1.4
	case models.TacticsAllOutAttack:
		wTackle *= 0.85
	}
	if r.in.FieldSize == models.FieldLarge {
		wPass *= 1.15
	}
	if aggression < 1 { // conservative side leans on the run game
		wRun *= 1.5
	}

	total := wPass + wRun + wKick + wTackle + wKnockdown + wLoose + wHold
	roll := r.rng.Float64() * total
	var chosen actionType
	for i, w := range []float64{wPass, wRun, wKick, wTackle, wKnockdown, wLoose, wHold} {
		if roll < w {
			chosen = actionType(i)
			break
		}
		roll -= w
	}

	switch chosen {
	case actionPass:
		r.resolvePass(atk, def)
	case actionRun:
		r.resolveRun(atk, def)
	case actionKick:
		r.resolveKick(atk)
	case actionTackle:
		r.resolveTackle(atk, def)
	case actionKnockdown:
		r.resolveKnockdown(atk, def)
	case actionLooseBall:
		r.resolveLooseBall(atk)
	case actionHold:
		// No primary event this tick.
	}
}

func (r *Run) resolvePass(atk, def *side) {
	passers := atk.byRole(models.RolePasser, r.tick)
	receivers := atk.byRole(models.RoleRunner, r.tick)
	if len(passers) == 0 || len(receivers) == 0 {
		return
	}
	passer := passers[r.rng.Intn(len(passers))]
	target := receivers[r.rng.Intn(len(receivers))]

	camMod := camaraderieMod(atk.snap.Camaraderie)
	intim := r.intimidationAgainst(atk)
	p := 0.6 + float64(passer.Throwing)/100 + camMod/100 - intim/100 - (100-passer.stamina)/200
	p = clampP(p*r.clutch(atk), 0.05, 0.95)

	// Long throws on a small field lose accuracy; the distance roll
	// happens regardless of outcome so PRNG use stays uniform.
	yards := 3 + r.rng.Intn(13)
	if r.in.FieldSize == models.FieldSmall && yards > 9 {
		p = clampP(p-0.10, 0.05, 0.95)
	}
	if r.in.FieldSize == models.FieldLarge {
		yards += 2
	}

	passer.line.PassAttempts++
	passer.stamina = clampStamina(passer.stamina - actionLoadPasser)
	target.stamina = clampStamina(target.stamina - actionLoadRunner*0.5)

	if r.rng.Float64() < p {
		passer.line.PassCompletions++
		passer.line.PassingYards += yards
		target.line.Catches++
		atk.line.TotalYards += yards
		r.advance(atk, yards, passer, target, EventPass, true)
		return
	}

	// Incompletion: a third of failures are picked off.
	if r.rng.Float64() < 0.33 {
		r.turnover()
		r.emit(Event{Type: EventPass, TeamID: atk.snap.TeamID, ActorIDs: []uint{passer.ID, target.ID}, Success: false, Severity: "INTERCEPTED"})
		return
	}
	target.line.Drops++
	r.emit(Event{Type: EventPass, TeamID: atk.snap.TeamID, ActorIDs: []uint{passer.ID, target.ID}, Success: false})
}

func (r *Run) resolveRun(atk, def *side) {
	runners := atk.byRole(models.RoleRunner, r.tick)
	if len(runners) == 0 {
		return
	}
	runner := runners[r.rng.Intn(len(runners))]

	camMod := camaraderieMod(atk.snap.Camaraderie)
	p := 0.5 + (runner.effSpeed()+runner.effAgility())/200 + camMod/100 - (100-runner.stamina)/200
	// Umbra shadow-step: harder to bring down in the open field.
	if runner.Race == models.RaceUmbra {
		p += 0.05
	}
	p = clampP(p*r.clutch(atk), 0.05, 0.95)

	yards := 2 + r.rng.Intn(7)
	runner.stamina = clampStamina(runner.stamina - actionLoadRunner)

	if r.rng.Float64() < p {
		runner.line.RushingYards += yards
		atk.line.TotalYards += yards
		r.advance(atk, yards, runner, nil, EventRun, true)
		return
	}

	// Stuffed at or near the line; credit the defense.
	tacklers := def.byRole(models.RoleBlocker, r.tick)
	if len(tacklers) > 0 {
		tackler := tacklers[r.rng.Intn(len(tacklers))]
		tackler.line.Tackles++
		tackler.stamina = clampStamina(tackler.stamina - actionLoadContact)
		r.emit(Event{Type: EventTackle, TeamID: def.snap.TeamID, ActorIDs: []uint{tackler.ID, runner.ID}, Success: true})
		return
	}
	r.emit(Event{Type: EventRun, TeamID: atk.snap.TeamID, ActorIDs: []uint{runner.ID}, Success: false})
}

func (r *Run) resolveKick(atk *side) {
	kickers := atk.byRole(models.RolePasser, r.tick)
	if len(kickers) == 0 {
		return
	}
	kicker := kickers[r.rng.Intn(len(kickers))]

	camMod := camaraderieMod(atk.snap.Camaraderie)
	intim := r.intimidationAgainst(atk)
	p := 0.4 + float64(kicker.Kicking)/120 + camMod/120 - intim/120 - (100-kicker.stamina)/300
	p = clampP(p*r.clutch(atk), 0.05, 0.95)

	kicker.stamina = clampStamina(kicker.stamina - actionLoadPasser)
	if r.rng.Float64() < p {
		r.applyScore(atk, fieldGoalPoints, kicker, EventKick)
		return
	}
	r.emit(Event{Type: EventKick, TeamID: atk.snap.TeamID, ActorIDs: []uint{kicker.ID}, Success: false})
	r.turnover()
}

func (r *Run) resolveTackle(atk, def *side) {
	carriers := atk.standing(r.tick)
	tacklers := def.byRole(models.RoleBlocker, r.tick)
	if len(carriers) == 0 || len(tacklers) == 0 {
		return
	}
	carrier := carriers[r.rng.Intn(len(carriers))]
	tackler := tacklers[r.rng.Intn(len(tacklers))]

	// Power contest; small fields favor the hitter.
	power := tackler.effPower()
	if r.in.FieldSize == models.FieldSmall {
		power += 3
	}
	evade := carrier.effAgility()
	if carrier.Race == models.RaceUmbra {
		evade += 4
	}
	p := clampP(0.5+(power-evade)/80, 0.10, 0.90)

	tackler.stamina = clampStamina(tackler.stamina - actionLoadContact)
	if r.rng.Float64() < p {
		tackler.line.Tackles++
		// Hard hits jar the ball loose now and then.
		if r.rng.Float64() < 0.12 {
			carrier.line.FumblesLost++
			r.turnover()
			r.emit(Event{Type: EventFumble, TeamID: def.snap.TeamID, ActorIDs: []uint{tackler.ID, carrier.ID}, Success: true})
			return
		}
		r.emit(Event{Type: EventTackle, TeamID: def.snap.TeamID, ActorIDs: []uint{tackler.ID, carrier.ID}, Success: true})
		r.maybeInjure(carrier)
		return
	}
	r.emit(Event{Type: EventTackle, TeamID: def.snap.TeamID, ActorIDs: []uint{tackler.ID, carrier.ID}, Success: false})
}

func (r *Run) resolveKnockdown(atk, def *side) {
	targets := atk.standing(r.tick)
	hitters := def.byRole(models.RoleBlocker, r.tick)
	if len(targets) == 0 || len(hitters) == 0 {
		return
	}
	target := targets[r.rng.Intn(len(targets))]
	hitter := hitters[r.rng.Intn(len(hitters))]

	power := hitter.effPower()
	if r.in.FieldSize == models.FieldSmall {
		power += 3
	}
	p := clampP(0.35+(power-target.effPower())/100, 0.10, 0.80)
	hitter.stamina = clampStamina(hitter.stamina - actionLoadContact)

	if r.rng.Float64() < p {
		duration := knockdownTicks
		// Gryll stoneform shrugs off part of the hit.
		if target.Race == models.RaceGryll && r.rng.Float64() < 0.30 {
			duration -= 5
		}
		target.knockedDownUntil = r.tick + duration
		target.stamina = clampStamina(target.stamina - 3)
		hitter.line.KnockdownsInflicted++
		def.line.Knockdowns++
		r.emit(Event{Type: EventKnockdown, TeamID: def.snap.TeamID, ActorIDs: []uint{hitter.ID, target.ID}, Success: true})
		r.maybeInjure(target)
		return
	}
	r.emit(Event{Type: EventKnockdown, TeamID: def.snap.TeamID, ActorIDs: []uint{hitter.ID, target.ID}, Success: false})
}

func (r *Run) resolveLooseBall(atk *side) {
	carriers := atk.standing(r.tick)
	if len(carriers) == 0 {
		return
	}
	carrier := carriers[r.rng.Intn(len(carriers))]
	carrier.line.FumblesLost++
	r.turnover()
	r.emit(Event{Type: EventFumble, TeamID: atk.snap.TeamID, ActorIDs: []uint{carrier.ID}, Success: false})
}

// maybeInjure rolls a contact injury, escalating severity. The roll
// happens after every successful hit so PRNG consumption is uniform.
func (r *Run) maybeInjure(lp *livePlayer) {
	if r.rng.Float64() >= 0.015 {
		return
	}
	switch lp.injury {
	case models.InjuryHealthy:
		lp.injury = models.InjuryMinor
	case models.InjuryMinor:
		lp.injury = models.InjuryModerate
	default:
		lp.injury = models.InjurySevere
	}
	r.emit(Event{Type: EventInjury, TeamID: lp.line.TeamID, ActorIDs: []uint{lp.ID}, Severity: string(lp.injury)})
}

// advance moves the ball and converts a goal-line crossing into a score.
func (r *Run) advance(atk *side, yards int, actor, secondary *livePlayer, evType EventType, success bool) {
	r.fieldPos += yards
	if r.fieldPos >= fieldLength {
		scorer := actor
		if secondary != nil {
			scorer = secondary
		}
		r.applyScore(atk, touchdownPoints, scorer, evType)
		return
	}
	actors := []uint{actor.ID}
	if secondary != nil {
		actors = append(actors, secondary.ID)
	}
	r.emit(Event{Type: evType, TeamID: atk.snap.TeamID, ActorIDs: actors, Yards: yards, Success: success})
}
