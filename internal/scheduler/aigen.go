package scheduler

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

var aiTeamAdjectives = []string{
	"Iron", "Crimson", "Shadow", "Thunder", "Obsidian", "Gilded",
	"Feral", "Ashen", "Howling", "Burning", "Frozen", "Savage",
}

var aiTeamNouns = []string{
	"Wardens", "Titans", "Reavers", "Sentinels", "Marauders", "Colossi",
	"Phantoms", "Juggernauts", "Vanguards", "Ravagers", "Stalkers", "Behemoths",
}

var aiFirstNames = []string{
	"Korran", "Thessa", "Brakk", "Lyrin", "Vex", "Shade", "Ember",
	"Dusk", "Orin", "Petra", "Grint", "Silva", "Mara", "Toruk", "Nyx",
}

var aiLastNames = []string{
	"Ironhide", "Swiftwind", "Stonefist", "Lightweaver", "Nightrunner",
	"Emberfall", "Deeproot", "Starforge", "Grimward", "Ashwalker",
}

var aiRaces = []models.Race{
	models.RaceHuman, models.RaceSylvan, models.RaceGryll,
	models.RaceLumina, models.RaceUmbra,
}

// fillWithAITeams creates n AI teams in the subdivision, each with a
// legal roster, staff and a finances row. Returns the new team ids.
func (s *Scheduler) fillWithAITeams(ctx context.Context, seasonNumber, division int, subdivision string, n int) ([]uint, error) {
	if n <= 0 {
		return nil, nil
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "aigen|%d|%d|%s", seasonNumber, division, subdivision)
	rng := rand.New(rand.NewSource(int64(h.Sum64() & (1<<63 - 1))))

	ids := make([]uint, 0, n)
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		for i := 0; i < n; i++ {
			team, err := createAITeam(tx, rng, division, subdivision)
			if err != nil {
				return err
			}
			ids = append(ids, team.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate AI teams: %w", err)
	}
	s.logger.Infof("Generated %d AI teams in division %d/%s", n, division, subdivision)
	return ids, nil
}

func createAITeam(tx *gorm.DB, rng *rand.Rand, division int, subdivision string) (*models.Team, error) {
	name := fmt.Sprintf("%s %s",
		aiTeamAdjectives[rng.Intn(len(aiTeamAdjectives))],
		aiTeamNouns[rng.Intn(len(aiTeamNouns))])

	team := &models.Team{
		Name:        name,
		IsAI:        true,
		Division:    division,
		Subdivision: subdivision,
		Camaraderie: 40 + rng.Intn(21),
		FanLoyalty:  30 + rng.Intn(31),
	}
	if err := tx.Create(team).Error; err != nil {
		return nil, err
	}
	if err := tx.Create(&models.TeamFinances{TeamID: team.ID}).Error; err != nil {
		return nil, err
	}

	// Lower divisions field weaker rosters.
	quality := 10 + (models.MaxDivision-division)*2

	roles := []models.Role{
		models.RolePasser, models.RolePasser,
		models.RoleRunner, models.RoleRunner, models.RoleRunner, models.RoleRunner,
		models.RoleBlocker, models.RoleBlocker, models.RoleBlocker, models.RoleBlocker,
		models.RolePasser, models.RoleRunner,
	}
	for _, role := range roles {
		player := generateAIPlayer(rng, team.ID, role, quality)
		if err := tx.Create(player).Error; err != nil {
			return nil, err
		}
	}

	for _, st := range []models.StaffType{
		models.StaffHeadCoach, models.StaffRecoverySpecialist, models.StaffScout,
	} {
		staff := &models.Staff{
			TeamID: team.ID,
			Name: fmt.Sprintf("%s %s",
				aiFirstNames[rng.Intn(len(aiFirstNames))],
				aiLastNames[rng.Intn(len(aiLastNames))]),
			Type:        st,
			Motivation:  10 + rng.Intn(quality),
			Development: 10 + rng.Intn(quality),
			Teaching:    10 + rng.Intn(quality),
			Physiology:  10 + rng.Intn(quality),
			Talent:      10 + rng.Intn(quality),
			Potential:   10 + rng.Intn(quality),
			Tactics:     10 + rng.Intn(quality),
		}
		if err := tx.Create(staff).Error; err != nil {
			return nil, err
		}
	}
	return team, nil
}

func generateAIPlayer(rng *rand.Rand, teamID uint, role models.Role, quality int) *models.Player {
	attr := func(bonus int) int {
		v := 5 + rng.Intn(quality) + bonus
		if v > models.MaxAttribute {
			v = models.MaxAttribute
		}
		return v
	}
	p := &models.Player{
		TeamID:       teamID,
		FirstName:    aiFirstNames[rng.Intn(len(aiFirstNames))],
		LastName:     aiLastNames[rng.Intn(len(aiLastNames))],
		Role:         role,
		Race:         aiRaces[rng.Intn(len(aiRaces))],
		Age:          18 + rng.Intn(14),
		Speed:        attr(0),
		Power:        attr(0),
		Agility:      attr(0),
		Throwing:     attr(0),
		Catching:     attr(0),
		Kicking:      attr(0),
		Stamina:      attr(5),
		Leadership:   attr(0),
		Potential:    0.5 + 0.5*float64(rng.Intn(8)),
		DailyStamina: 100,
		InjuryStatus: models.InjuryHealthy,
	}
	switch role {
	case models.RolePasser:
		p.Throwing = attr(8)
		p.Kicking = attr(5)
	case models.RoleRunner:
		p.Speed = attr(8)
		p.Agility = attr(5)
	case models.RoleBlocker:
		p.Power = attr(8)
		p.Stamina = attr(5)
	}
	return p
}
