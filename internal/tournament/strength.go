package tournament

import (
	"context"
	"sort"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

// True-strength component weights. Raw league points alone reward weak
// schedules, so seeding blends roster power with results and condition.
const (
	weightPower       = 0.35
	weightWinPct      = 0.25
	weightSchedule    = 0.15
	weightCamaraderie = 0.10
	weightForm        = 0.10
	weightHealth      = 0.05

	formWindow = 5
)

// Rating is one team's seeding score. Higher is stronger.
type Rating struct {
	TeamID uint
	Score  float64
}

// RankTeams orders the given teams by true strength, strongest first.
// Ties break on team id for stability.
func (s *Service) RankTeams(ctx context.Context, teams []models.Team) ([]Rating, error) {
	ratings := make([]Rating, 0, len(teams))
	for i := range teams {
		score, err := s.trueStrength(ctx, &teams[i])
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, Rating{TeamID: teams[i].ID, Score: score})
	}
	sort.Slice(ratings, func(i, j int) bool {
		if ratings[i].Score != ratings[j].Score {
			return ratings[i].Score > ratings[j].Score
		}
		return ratings[i].TeamID < ratings[j].TeamID
	})
	return ratings, nil
}

// trueStrength scores a team on a 0-100 scale.
func (s *Service) trueStrength(ctx context.Context, team *models.Team) (float64, error) {
	full, err := s.store.GetTeamWithRoster(ctx, team.ID)
	if err != nil {
		return 0, err
	}

	power := rosterPower(full.Players)
	health := rosterHealth(full.Players)
	winPct := winPercentage(team)

	sos, form, err := s.scheduleAndForm(ctx, team)
	if err != nil {
		return 0, err
	}

	score := weightPower*power +
		weightWinPct*winPct +
		weightSchedule*sos +
		weightCamaraderie*float64(team.Camaraderie) +
		weightForm*form +
		weightHealth*health
	return score, nil
}

// rosterPower is the mean CAR of the six strongest active players, scaled
// from the 1-40 attribute range onto 0-100.
func rosterPower(players []models.Player) float64 {
	var cars []float64
	for i := range players {
		if players[i].Retired || players[i].OnTaxiSquad {
			continue
		}
		cars = append(cars, players[i].CAR())
	}
	if len(cars) == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(cars)))
	if len(cars) > 6 {
		cars = cars[:6]
	}
	var sum float64
	for _, c := range cars {
		sum += c
	}
	return (sum / float64(len(cars))) * 2.5
}

func rosterHealth(players []models.Player) float64 {
	total, healthy := 0, 0
	for i := range players {
		if players[i].Retired {
			continue
		}
		total++
		if players[i].InjuryStatus == models.InjuryHealthy {
			healthy++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(healthy) / float64(total) * 100
}

// winPercentage is league points earned over points available, on 0-100.
// Teams without results sit at the midpoint.
func winPercentage(team *models.Team) float64 {
	played := team.Wins + team.Losses + team.Draws
	if played == 0 {
		return 50
	}
	return float64(team.Points) / float64(3*played) * 100
}

// scheduleAndForm derives strength of schedule (mean opponent win
// percentage) and recent form (points over the last five results) from the
// team's completed league and playoff games this season.
func (s *Service) scheduleAndForm(ctx context.Context, team *models.Team) (sos, form float64, err error) {
	var games []models.Game
	err = s.store.DB().WithContext(ctx).
		Where("status = ? AND match_type IN ? AND (home_team_id = ? OR away_team_id = ?)",
			models.GameCompleted, []models.MatchType{models.MatchLeague, models.MatchPlayoff}, team.ID, team.ID).
		Order("day_in_season desc, id desc").
		Find(&games).Error
	if err != nil {
		return 0, 0, err
	}
	if len(games) == 0 {
		return 50, 50, nil
	}

	opponentIDs := make([]uint, 0, len(games))
	for _, g := range games {
		if g.HomeTeamID == team.ID {
			opponentIDs = append(opponentIDs, g.AwayTeamID)
		} else {
			opponentIDs = append(opponentIDs, g.HomeTeamID)
		}
	}
	var opponents []models.Team
	if err := s.store.DB().WithContext(ctx).Where("id IN ?", opponentIDs).Find(&opponents).Error; err != nil {
		return 0, 0, err
	}
	if len(opponents) == 0 {
		sos = 50
	} else {
		var sum float64
		for i := range opponents {
			sum += winPercentage(&opponents[i])
		}
		sos = sum / float64(len(opponents))
	}

	recent := games
	if len(recent) > formWindow {
		recent = recent[:formWindow]
	}
	earned := 0
	for _, g := range recent {
		switch {
		case g.HomeScore == g.AwayScore:
			earned++
		case g.HomeTeamID == team.ID && g.HomeScore > g.AwayScore,
			g.AwayTeamID == team.ID && g.AwayScore > g.HomeScore:
			earned += 3
		}
	}
	form = float64(earned) / float64(3*len(recent)) * 100
	return sos, form, nil
}
