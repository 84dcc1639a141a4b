package scheduler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamIDs(n int) []uint {
	ids := make([]uint, n)
	for i := range ids {
		ids[i] = uint(i + 1)
	}
	return ids
}

func pairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

func TestRoundRobinEveryPairOnce(t *testing.T) {
	for _, n := range []int{4, 8, 16} {
		rounds := roundRobinRounds(teamIDs(n))
		require.Len(t, rounds, n-1, "teams=%d", n)

		seen := map[string]int{}
		for _, round := range rounds {
			require.Len(t, round, n/2)
			inRound := map[uint]bool{}
			for _, pair := range round {
				assert.NotEqual(t, pair[0], pair[1])
				// No team plays twice in one round.
				assert.False(t, inRound[pair[0]])
				assert.False(t, inRound[pair[1]])
				inRound[pair[0]] = true
				inRound[pair[1]] = true
				seen[pairKey(pair[0], pair[1])]++
			}
		}
		assert.Len(t, seen, n*(n-1)/2, "teams=%d", n)
		for key, count := range seen {
			assert.Equal(t, 1, count, "pair %s teams=%d", key, n)
		}
	}
}

func TestRoundRobinOddFieldGetsByes(t *testing.T) {
	rounds := roundRobinRounds(teamIDs(7))
	require.Len(t, rounds, 7)

	appearances := map[uint]int{}
	for _, round := range rounds {
		// One team sits out each round.
		require.Len(t, round, 3)
		for _, pair := range round {
			appearances[pair[0]]++
			appearances[pair[1]]++
		}
	}
	for id := uint(1); id <= 7; id++ {
		assert.Equal(t, 6, appearances[id], "team %d", id)
	}
}

func TestRoundRobinBalancesHomeAdvantage(t *testing.T) {
	rounds := roundRobinRounds(teamIDs(8))
	home := map[uint]int{}
	for _, round := range rounds {
		for _, pair := range round {
			home[pair[0]]++
		}
	}
	// The circle pivot must not host every round.
	for id, n := range home {
		assert.LessOrEqual(t, n, 5, "team %d", id)
		assert.GreaterOrEqual(t, n, 2, "team %d", id)
	}
}

func TestPlanRoundsDoubleRoundRobin(t *testing.T) {
	// Eight teams: seven rounds twice over fourteen days, one per day.
	plan := planRounds(7, 14)
	require.Len(t, plan, 14)
	total := 0
	for _, n := range plan {
		assert.Equal(t, 1, n)
		total += n
	}
	assert.Equal(t, 14, total)
}

func TestPlanRoundsSixteenTeams(t *testing.T) {
	// Sixteen teams are trimmed to fourteen rounds, one per day.
	plan := planRounds(14, 14)
	require.Len(t, plan, 14)
	for _, n := range plan {
		assert.Equal(t, 1, n)
	}
}

func TestSixteenTeamSlateCapsAtFourteenMatches(t *testing.T) {
	rounds := roundRobinRounds(teamIDs(16))
	require.Len(t, rounds, 15)
	rounds = rounds[:14]

	matches := map[uint]int{}
	for _, round := range rounds {
		for _, pair := range round {
			matches[pair[0]]++
			matches[pair[1]]++
		}
	}
	for id := uint(1); id <= 16; id++ {
		assert.Equal(t, 14, matches[id], "team %d", id)
	}
}

func TestPlanRoundsLateSignupSlate(t *testing.T) {
	// A subdivision formed on day four has eleven days for its seven
	// rounds plus four second-leg repeats: eleven match days, no doubles.
	plan := planRounds(7, 11)
	require.Len(t, plan, 11)
	total := 0
	for _, n := range plan {
		assert.Equal(t, 1, n)
		total += n
	}
	assert.Equal(t, 11, total)
}

func TestPlanRoundsMidSeasonRestart(t *testing.T) {
	// A schedule regenerated mid-season gets fewer days than rounds.
	plan := planRounds(7, 5)
	total := 0
	for _, n := range plan {
		total += n
	}
	assert.Equal(t, 7, total)
	assert.Equal(t, []int{2, 2, 1, 1, 1}, plan)
}
