// Package clock computes the canonical game calendar from wall time in a
// fixed civil time zone. A new game day begins at 03:00 local; days 1-14
// are the regular season, day 15 playoffs, days 16-17 offseason.
package clock

import (
	"time"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

const (
	SeasonLength = 17
	RegularDays  = 14
	PlayoffDay   = 15
)

// TimeSource abstracts wall time so the scheduler and tests can inject
// their own. Production code uses SystemTime.
type TimeSource interface {
	Now() time.Time
}

type systemTime struct{}

func (systemTime) Now() time.Time { return time.Now() }

// SystemTime is the production time source.
var SystemTime TimeSource = systemTime{}

// GameClock turns instants into (day, phase) values. All methods are pure.
type GameClock struct {
	loc            *time.Location
	dayStartHour   int
	simWindowStart int
	simWindowEnd   int
}

func NewGameClock(timezone string, dayStartHour, simWindowStart, simWindowEnd int) (*GameClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &GameClock{
		loc:            loc,
		dayStartHour:   dayStartHour,
		simWindowStart: simWindowStart,
		simWindowEnd:   simWindowEnd,
	}, nil
}

// Location returns the fixed game time zone.
func (c *GameClock) Location() *time.Location { return c.loc }

// DayBoundary returns the instant the given civil date's game day begins:
// the first 03:00 that exists on that date. On a DST transition where the
// boundary hour is skipped, time.Date normalizes forward, which is the
// first existing 03:00 by construction.
func (c *GameClock) DayBoundary(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, c.dayStartHour, 0, 0, 0, c.loc)
}

// SeasonStartBoundary normalizes a season start instant to its day-1
// boundary: the day-start hour on the civil date the season began. A start
// before the boundary hour belongs to the previous civil date's game day.
func (c *GameClock) SeasonStartBoundary(start time.Time) time.Time {
	local := start.In(c.loc)
	b := c.DayBoundary(local.Year(), local.Month(), local.Day())
	if local.Before(b) {
		prev := local.AddDate(0, 0, -1)
		b = c.DayBoundary(prev.Year(), prev.Month(), prev.Day())
	}
	return b
}

// GameDay returns the day in season for instant t, clamped to [1,17].
// Instants before the season start map to day 1 pre-roll.
func (c *GameClock) GameDay(t, seasonStart time.Time) int {
	boundary := c.SeasonStartBoundary(seasonStart)
	local := t.In(c.loc)
	if local.Before(boundary) {
		return 1
	}
	// Count whole civil days between the two boundaries rather than
	// dividing elapsed hours, so DST days (23h/25h) stay one game day.
	days := 0
	cursor := boundary
	for {
		next := cursor.AddDate(0, 0, 1)
		nextBoundary := c.DayBoundary(next.Year(), next.Month(), next.Day())
		if local.Before(nextBoundary) {
			break
		}
		cursor = nextBoundary
		days++
		if days >= SeasonLength-1 {
			break
		}
	}
	day := days + 1
	if day > SeasonLength {
		day = SeasonLength
	}
	return day
}

// Phase returns the phase for the given day in season.
func (c *GameClock) Phase(day int) models.Phase {
	return models.PhaseForDay(day)
}

// InSimWindow reports whether t falls inside the match simulation window
// (16:00-22:00 local by default) on a regular-season day.
func (c *GameClock) InSimWindow(t time.Time, day int) bool {
	if day < 1 || day > RegularDays {
		return false
	}
	h := t.In(c.loc).Hour()
	return h >= c.simWindowStart && h < c.simWindowEnd
}

// WindowStart returns the simulation window opening instant on the civil
// date of t.
func (c *GameClock) WindowStart(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), c.simWindowStart, 0, 0, 0, c.loc)
}

// WindowEnd returns the simulation window closing instant on the civil
// date of t.
func (c *GameClock) WindowEnd(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), c.simWindowEnd, 0, 0, 0, c.loc)
}

// LocalHourMinute returns the instant at h:m on the civil date of t.
func (c *GameClock) LocalHourMinute(t time.Time, hour, minute int) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, c.loc)
}
