package progression

import (
	"context"
	"fmt"
	"math/rand"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

const (
	staminaRecoveryBase  = 20
	recoveryYouthBonus   = 5
	recoveryVeteranMalus = 5
	recoveryUsageDivisor = 8
	recoveryFloor        = 5

	// Activity score: a full forty-minute league match is worth ten
	// points, tournament seven, exhibition two. Every five points earns
	// one progression roll.
	fullMatchMinutes         = 40.0
	leagueActivityWeight     = 10.0
	tournamentActivityWeight = 7.0
	exhibitionActivityWeight = 2.0
	scoreBonus               = 2.0
	rollDivisor              = 5.0

	baseChance      = 0.05
	chanceJitter    = 0.01
	minChance       = 0.01
	maxChance       = 0.95
	youthBonusAge   = 24
	veteranMalusAge = 31
	physicalCapAge  = 34
)

// activityMinutes is one player's match activity on a single day, split
// by match type.
type activityMinutes struct {
	League     int
	Tournament int
	Exhibition int
	Scores     int
}

func (m activityMinutes) total() int {
	return m.League + m.Tournament + m.Exhibition
}

// RunDaily executes the development and recovery pass for every team: one
// transaction per team, deterministic rolls per (season, day, team).
func (s *Service) RunDaily(ctx context.Context, seasonNumber, day int) error {
	var teamIDs []uint
	if err := s.store.DB().WithContext(ctx).Model(&models.Team{}).
		Order("id asc").Pluck("id", &teamIDs).Error; err != nil {
		return fmt.Errorf("failed to list teams for daily pass: %w", err)
	}
	for _, teamID := range teamIDs {
		if err := s.dailyTeam(ctx, seasonNumber, day, teamID); err != nil {
			s.logger.WithError(err).Errorf("Daily development pass failed for team %d", teamID)
		}
	}
	return nil
}

func (s *Service) dailyTeam(ctx context.Context, seasonNumber, day int, teamID uint) error {
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var players []models.Player
		if err := tx.Where("team_id = ? AND retired = ?", teamID, false).
			Order("id asc").Find(&players).Error; err != nil {
			return err
		}
		var staff []models.Staff
		if err := tx.Where("team_id = ?", teamID).Order("id asc").Find(&staff).Error; err != nil {
			return err
		}
		var team models.Team
		if err := tx.First(&team, teamID).Error; err != nil {
			return err
		}

		minutes, err := minutesOnDay(tx, teamID, seasonNumber, day)
		if err != nil {
			return err
		}

		teaching := trainerTeaching(staff)
		physiology := recoveryPhysiology(staff)
		rng := rand.New(rand.NewSource(passSeed("daily", seasonNumber, day, teamID)))

		for i := range players {
			p := &players[i]
			activity := minutes[p.ID]
			s.recoverPlayer(p, physiology, activity.total())
			s.trainPlayer(p, rng, activity, teaching[p.Role], team.Camaraderie)
			if err := tx.Save(p).Error; err != nil {
				return fmt.Errorf("failed to save player %d: %w", p.ID, err)
			}
		}

		// Daily action counters reset with the new day.
		return tx.Model(&models.Team{}).Where("id = ?", teamID).
			Updates(map[string]interface{}{
				"exhibitions_today":      0,
				"tournament_entry_today": 0,
				"consumables_used_today": 0,
			}).Error
	})
}

// recoverPlayer restores stamina toward full, faster for the young and
// the rested, and burns down injury recovery points. An injury steps
// down one severity level each time its budget empties.
func (s *Service) recoverPlayer(p *models.Player, physiology, minutesPlayed int) {
	recovery := staminaRecoveryBase + physiology/4
	switch {
	case p.Age < youthBonusAge:
		recovery += recoveryYouthBonus
	case p.Age >= veteranMalusAge:
		recovery -= recoveryVeteranMalus
	}
	recovery -= minutesPlayed / recoveryUsageDivisor
	if recovery < recoveryFloor {
		recovery = recoveryFloor
	}
	if p.InjuryStatus != models.InjuryHealthy {
		recovery /= 2
	}
	p.DailyStamina += recovery
	if p.DailyStamina > 100 {
		p.DailyStamina = 100
	}

	if p.InjuryStatus == models.InjuryHealthy {
		return
	}
	p.InjuryRecovery -= 1 + physiology/20
	if p.InjuryRecovery > 0 {
		return
	}
	switch p.InjuryStatus {
	case models.InjurySevere:
		p.InjuryStatus = models.InjuryModerate
		p.InjuryRecovery = 4
	case models.InjuryModerate:
		p.InjuryStatus = models.InjuryMinor
		p.InjuryRecovery = 2
	default:
		p.InjuryStatus = models.InjuryHealthy
		p.InjuryRecovery = 0
	}
}

// trainPlayer rolls attribute progression. Yesterday's activity earns the
// rolls; each roll targets a uniformly drawn attribute and succeeds with a
// chance shaped by potential, age, coaching, team chemistry, injuries and
// a little luck. Players at or past the physical cap age no longer improve
// speed, agility or power.
func (s *Service) trainPlayer(p *models.Player, rng *rand.Rand, activity activityMinutes, teaching, camaraderie int) {
	rolls := progressionRolls(activity)
	if rolls == 0 {
		return
	}

	base := baseChance +
		potentialMod(p.Potential) +
		trainAgeMod(p.Age) +
		float64(teaching)/400 +
		float64(camaraderie-50)/1000 +
		injuryMod(p.InjuryStatus)

	for i := 0; i < rolls; i++ {
		attr := pickAttribute(p, rng)
		chance := base + (rng.Float64()*2-1)*chanceJitter
		if chance < minChance {
			chance = minChance
		}
		if chance > maxChance {
			chance = maxChance
		}
		if rng.Float64() >= chance {
			continue
		}
		if *attr >= p.AttributeCap() || *attr >= models.MaxAttribute {
			continue
		}
		*attr++
	}
}

// progressionRolls converts a day's activity into roll count: one roll per
// five points of activity score.
func progressionRolls(m activityMinutes) int {
	score := float64(m.League)/fullMatchMinutes*leagueActivityWeight +
		float64(m.Tournament)/fullMatchMinutes*tournamentActivityWeight +
		float64(m.Exhibition)/fullMatchMinutes*exhibitionActivityWeight +
		float64(m.Scores)*scoreBonus
	return int(score / rollDivisor)
}

// potentialMod keys the roll chance off the ten-point potential scale
// used by valuation; half-star prospects train slower than stars.
func potentialMod(potential float64) float64 {
	return (potential*2 - 5) / 100
}

func trainAgeMod(age int) float64 {
	switch {
	case age < youthBonusAge:
		return 0.02
	case age >= veteranMalusAge:
		return -0.02
	}
	return 0
}

func injuryMod(status models.InjuryStatus) float64 {
	switch status {
	case models.InjuryMinor:
		return -0.02
	case models.InjuryModerate:
		return -0.05
	case models.InjurySevere:
		return -0.10
	}
	return 0
}

// pickAttribute draws uniformly from the eight attributes; the physical
// three stop progressing at the cap age. The draw always consumes exactly
// one PRNG value.
func pickAttribute(p *models.Player, rng *rand.Rand) *int {
	attrs := []*int{
		&p.Speed, &p.Agility, &p.Power,
		&p.Throwing, &p.Catching, &p.Kicking, &p.Stamina, &p.Leadership,
	}
	if p.Age >= physicalCapAge {
		attrs = attrs[3:]
	}
	return attrs[rng.Intn(len(attrs))]
}

// minutesOnDay aggregates each player's activity across the team's games
// on the given day, split by match type for the activity score.
func minutesOnDay(tx *gorm.DB, teamID uint, seasonNumber, day int) (map[uint]activityMinutes, error) {
	type row struct {
		PlayerID  uint
		MatchType models.MatchType
		Minutes   int
		Scores    int
	}
	var rows []row
	err := tx.Model(&models.PlayerGameStats{}).
		Select("player_game_stats.player_id as player_id, games.match_type as match_type, SUM(player_game_stats.minutes_played) as minutes, SUM(player_game_stats.scores) as scores").
		Joins("JOIN games ON games.id = player_game_stats.game_id").
		Where("player_game_stats.team_id = ? AND games.season_number = ? AND games.day_in_season = ?",
			teamID, seasonNumber, day).
		Group("player_game_stats.player_id, games.match_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum daily minutes: %w", err)
	}
	minutes := make(map[uint]activityMinutes, len(rows))
	for _, r := range rows {
		m := minutes[r.PlayerID]
		switch r.MatchType {
		case models.MatchLeague, models.MatchPlayoff:
			m.League += r.Minutes
		case models.MatchTournament:
			m.Tournament += r.Minutes
		default:
			m.Exhibition += r.Minutes
		}
		m.Scores += r.Scores
		minutes[r.PlayerID] = m
	}
	return minutes, nil
}

// trainerTeaching maps each role to its trainer's teaching score; the
// head coach backstops roles without a dedicated trainer.
func trainerTeaching(staff []models.Staff) map[models.Role]int {
	out := map[models.Role]int{}
	headCoach := 0
	for _, st := range staff {
		switch st.Type {
		case models.StaffPasserTrainer:
			out[models.RolePasser] = st.Teaching
		case models.StaffRunnerTrainer:
			out[models.RoleRunner] = st.Teaching
		case models.StaffBlockerTrainer:
			out[models.RoleBlocker] = st.Teaching
		case models.StaffHeadCoach:
			headCoach = st.Teaching
		}
	}
	for _, role := range []models.Role{models.RolePasser, models.RoleRunner, models.RoleBlocker} {
		if _, ok := out[role]; !ok {
			out[role] = headCoach
		}
	}
	return out
}

func recoveryPhysiology(staff []models.Staff) int {
	best := 0
	for _, st := range staff {
		if st.Type == models.StaffRecoverySpecialist && st.Physiology > best {
			best = st.Physiology
		}
	}
	return best
}
