package scheduler

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/clock"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

// Match slots inside the window are staggered so a subdivision's games
// stream rather than all kicking off at once.
const slotStagger = 15 * time.Minute

// generateLeagueSchedule creates the league slate for one subdivision
// from fromDay through the last regular day. Eight-team subdivisions play
// a double round robin; sixteen-team subdivisions drop one rotation so
// every team still plays fourteen league matches.
func (s *Scheduler) generateLeagueSchedule(ctx context.Context, season *models.Season, division int, subdivision string, fromDay int) error {
	teams, err := s.store.ListTeamsInSubdivision(ctx, division, subdivision)
	if err != nil {
		return err
	}
	if len(teams) < 2 {
		return nil
	}
	ids := make([]uint, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}

	rounds := roundRobinRounds(ids)
	if len(rounds) > clock.RegularDays {
		// A sixteen-team rotation has fifteen rounds; the last is cut so
		// no team exceeds its fourteen league matches.
		rounds = rounds[:clock.RegularDays]
	}
	days := clock.RegularDays - fromDay + 1
	if days <= 0 {
		return nil
	}
	plan := planRounds(len(rounds), days)

	boundary := s.clock.SeasonStartBoundary(season.StartedAt)
	var games []models.Game
	roundIdx := 0
	for dayOffset, roundsToday := range plan {
		day := fromDay + dayOffset
		date := boundary.AddDate(0, 0, day-1)
		windowStart := s.clock.WindowStart(date)
		slot := 0
		for r := 0; r < roundsToday; r++ {
			round := rounds[roundIdx%len(rounds)]
			mirror := roundIdx >= len(rounds) // second leg swaps home advantage
			roundIdx++
			for _, pair := range round {
				home, away := pair[0], pair[1]
				if mirror {
					home, away = away, home
				}
				games = append(games, models.Game{
					HomeTeamID:   home,
					AwayTeamID:   away,
					MatchType:    models.MatchLeague,
					Status:       models.GameScheduled,
					SeasonNumber: season.Number,
					DayInSeason:  day,
					ScheduledAt:  windowStart.Add(time.Duration(slot) * slotStagger),
				})
				slot++
			}
		}
	}
	if len(games) == 0 {
		return nil
	}

	err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.CreateInBatches(games, 200).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create schedule for %d/%s: %w", division, subdivision, err)
	}
	s.logger.Infof("Schedule created for division %d/%s: %d games over days %d-%d",
		division, subdivision, len(games), fromDay, clock.RegularDays)
	return nil
}

// planRounds distributes rounds across available days, one per day where
// possible. With more playable rounds than days, early days double up;
// with more days than rounds, the rotation repeats (the second leg).
func planRounds(roundCount, days int) []int {
	total := roundCount
	if days >= roundCount*2 {
		total = roundCount * 2
	} else if days > roundCount {
		total = days
	}
	plan := make([]int, days)
	if total <= days {
		for i := 0; i < total; i++ {
			plan[i] = 1
		}
		return plan
	}
	extra := total - days
	for i := range plan {
		plan[i] = 1
		if extra > 0 {
			plan[i] = 2
			extra--
		}
	}
	return plan
}

// roundRobinRounds pairs teams by the circle method: n-1 rounds of n/2
// pairings, everyone meets everyone once. Odd fields get a rotating bye.
func roundRobinRounds(ids []uint) [][][2]uint {
	ring := make([]uint, len(ids))
	copy(ring, ids)
	if len(ring)%2 == 1 {
		ring = append(ring, 0) // bye marker
	}
	n := len(ring)
	var rounds [][][2]uint
	for r := 0; r < n-1; r++ {
		var pairs [][2]uint
		for i := 0; i < n/2; i++ {
			a, b := ring[i], ring[n-1-i]
			if a == 0 || b == 0 {
				continue
			}
			// Alternate home advantage by round so the fixed pivot does
			// not host every week.
			if r%2 == 1 {
				a, b = b, a
			}
			pairs = append(pairs, [2]uint{a, b})
		}
		rounds = append(rounds, pairs)
		// Rotate all but the first element.
		last := ring[n-1]
		copy(ring[2:], ring[1:n-1])
		ring[1] = last
	}
	return rounds
}
