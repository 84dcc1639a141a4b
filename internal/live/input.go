package live

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/sim"
)

const (
	minFieldPlayers = 6
	forfeitScore    = 6
	ticketPrice     = 25
)

// matchMeta carries home stadium context needed at completion time.
type matchMeta struct {
	HomeCapacity int
	HomeLoyalty  int
}

// DeriveSeed produces the match seed from the game id, season number and
// the season's boot nonce. The same triple always yields the same seed, so
// a recovered match replays the identical event stream.
func DeriveSeed(gameID uint, seasonNumber int, bootNonce string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%d|%s", gameID, seasonNumber, bootNonce)
	return int64(h.Sum64() & (1<<63 - 1))
}

// buildInput loads both rosters and assembles the immutable simulation
// input. Roster order is ascending player id so snapshots are stable
// across loads.
func (m *Manager) buildInput(ctx context.Context, game *models.Game, seed int64) (*sim.Input, *matchMeta, error) {
	home, err := m.store.GetTeamWithRoster(ctx, game.HomeTeamID)
	if err != nil {
		return nil, nil, err
	}
	away, err := m.store.GetTeamWithRoster(ctx, game.AwayTeamID)
	if err != nil {
		return nil, nil, err
	}

	in := &sim.Input{
		GameID:    game.ID,
		MatchType: game.MatchType,
		FieldSize: home.HomeField,
		Home:      teamSnapshot(home, true),
		Away:      teamSnapshot(away, false),
		Seed:      seed,
	}
	meta := &matchMeta{
		HomeCapacity: home.StadiumCapacity,
		HomeLoyalty:  home.FanLoyalty,
	}
	return in, meta, nil
}

func teamSnapshot(team *models.Team, isHome bool) sim.TeamSnapshot {
	snap := sim.TeamSnapshot{
		TeamID:        team.ID,
		Name:          team.Name,
		TacticalFocus: team.TacticalFocus,
		Camaraderie:   team.Camaraderie,
	}
	if isHome {
		// Stadium atmosphere felt by the visitors.
		snap.Intimidation = team.FanLoyalty / 10
	}

	players := make([]models.Player, 0, len(team.Players))
	for _, p := range team.Players {
		if p.Retired || p.OnTaxiSquad {
			continue
		}
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	for _, p := range players {
		snap.Players = append(snap.Players, sim.PlayerSnapshot{
			ID:           p.ID,
			Name:         p.FirstName + " " + p.LastName,
			Role:         p.Role,
			Race:         p.Race,
			Age:          p.Age,
			Speed:        p.Speed,
			Power:        p.Power,
			Agility:      p.Agility,
			Throwing:     p.Throwing,
			Catching:     p.Catching,
			Kicking:      p.Kicking,
			Stamina:      p.Stamina,
			Leadership:   p.Leadership,
			DailyStamina: p.DailyStamina,
			Injury:       p.InjuryStatus,
		})
	}
	return snap
}

func fieldableCount(players []sim.PlayerSnapshot) int {
	n := 0
	for i := range players {
		if players[i].Fieldable() {
			n++
		}
	}
	return n
}

// stadiumRevenue is the home gate for a league match: attendance scales
// with fan loyalty, between 35% and 85% of capacity.
func stadiumRevenue(capacity, fanLoyalty int) int64 {
	attendance := float64(capacity) * (0.35 + float64(fanLoyalty)/200)
	return int64(attendance) * ticketPrice
}
