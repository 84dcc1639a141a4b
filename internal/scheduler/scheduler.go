// Package scheduler drives the season lifecycle from wall time: day
// advancement, the daily step pipeline, the match window, tournament
// scans, marketplace settlement and the end-of-season rollover. Exactly
// one node runs the pipeline at a time, elected by a postgres advisory
// lock; every step is marker-guarded so a crashed leader's successor
// resumes without repeating work.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/clock"
	"github.com/jimmy058910/replitballgame-sub006/internal/live"
	"github.com/jimmy058910/replitballgame-sub006/internal/marketplace"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/progression"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/internal/tournament"
	"github.com/jimmy058910/replitballgame-sub006/pkg/config"
)

// Matches still SCHEDULED this long after their slot are simulated
// instantly instead of live.
const lateStartGrace = 30 * time.Minute

type Scheduler struct {
	store       *store.Store
	clock       *clock.GameClock
	ts          clock.TimeSource
	live        *live.Manager
	tournaments *tournament.Service
	market      *marketplace.Service
	progression *progression.Service
	cfg         *config.Config
	logger      *logrus.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	leader  *store.AdvisoryLock
	running bool
}

func NewScheduler(st *store.Store, gameClock *clock.GameClock, ts clock.TimeSource,
	liveMgr *live.Manager, tournaments *tournament.Service, market *marketplace.Service,
	prog *progression.Service, cfg *config.Config, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		store:       st,
		clock:       gameClock,
		ts:          ts,
		live:        liveMgr,
		tournaments: tournaments,
		market:      market,
		progression: prog,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start recovers any matches this node can claim and begins the cron
// loop. Safe to call on every node; only the leader runs the pipeline.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if err := s.live.RecoverAll(ctx); err != nil {
		s.logger.WithError(err).Error("Match recovery incomplete")
	}

	s.cron = cron.New(cron.WithLocation(s.clock.Location()))
	_, err := s.cron.AddFunc("* * * * *", func() {
		tickCtx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
		defer cancel()
		if err := s.Tick(tickCtx); err != nil {
			s.logger.WithError(err).Error("Scheduler tick failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("Scheduler started")
	return nil
}

// Stop halts the cron loop and surrenders leadership.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	if s.leader != nil {
		s.leader.Release()
		s.leader = nil
	}
	s.running = false
	s.logger.Info("Scheduler stopped")
}

// Tick is one reconciliation pass. Exported so tests can drive the
// pipeline with an injected time source.
func (s *Scheduler) Tick(ctx context.Context) error {
	if !s.ensureLeader(ctx) {
		return nil
	}
	now := s.ts.Now()

	season, err := s.store.CurrentSeason(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrSeasonNotFound) {
			return s.bootstrapSeason(ctx, now)
		}
		return err
	}

	if s.seasonOver(season, now) {
		return s.rollover(ctx, season, now)
	}

	// Catch the calendar up one day at a time. Each advanced day runs its
	// full step pipeline before the next, so an outage of several days
	// replays in order.
	for {
		expected := s.clock.GameDay(now, season.StartedAt)
		if season.CurrentDay >= expected {
			break
		}
		if err := s.runDaySteps(ctx, season, season.CurrentDay, now); err != nil {
			return err
		}
		newDay, err := s.store.AdvanceSeasonDay(ctx, season.CurrentDay)
		if errors.Is(err, apperr.ErrStaleDay) {
			season, err = s.store.CurrentSeason(ctx)
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		season.CurrentDay = newDay
		season.Phase = models.PhaseForDay(newDay)
		s.logger.Infof("Season %d advanced to day %d (%s)", season.Number, newDay, season.Phase)
	}

	if err := s.runDaySteps(ctx, season, season.CurrentDay, now); err != nil {
		return err
	}

	s.scanMatches(ctx, season, now)
	if err := s.tournaments.ScanRegistering(ctx, now); err != nil {
		s.logger.WithError(err).Error("Tournament registration scan failed")
	}
	if err := s.tournaments.AdvanceBrackets(ctx, now); err != nil {
		s.logger.WithError(err).Error("Bracket advance failed")
	}
	if err := s.market.SettleExpired(ctx, now); err != nil {
		s.logger.WithError(err).Error("Marketplace settlement failed")
	}
	return nil
}

// ensureLeader holds or acquires the pipeline leadership lock. The lock
// rides a pinned connection, so a crashed leader frees it implicitly.
func (s *Scheduler) ensureLeader(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leader != nil {
		return true
	}
	lock, err := s.store.TryAdvisoryLock(ctx, s.cfg.LeaderLockKey)
	if err != nil {
		s.logger.WithError(err).Error("Leader election failed")
		return false
	}
	if lock == nil {
		return false
	}
	s.leader = lock
	s.logger.Info("Acquired scheduler leadership")
	return true
}

// scanMatches starts due matches live inside the window and instantly
// completes anything that slipped past its slot by more than the grace
// period, including tournament and playoff rounds outside the window.
func (s *Scheduler) scanMatches(ctx context.Context, season *models.Season, now time.Time) {
	due, err := s.store.ListDueMatches(ctx, now.Add(-14*24*time.Hour), now)
	if err != nil {
		s.logger.WithError(err).Error("Due match scan failed")
		return
	}
	for _, g := range due {
		overdue := now.Sub(g.ScheduledAt) > lateStartGrace
		switch {
		case overdue:
			if err := s.live.CompleteInstant(ctx, g.ID); err != nil {
				s.logger.WithError(err).Errorf("Instant completion failed for game %d", g.ID)
			}
		case g.MatchType == models.MatchLeague && !s.clock.InSimWindow(now, season.CurrentDay):
			// League matches wait for the window to open.
		default:
			if err := s.live.StartMatch(ctx, g.ID); err != nil {
				s.logger.WithError(err).Errorf("Start failed for game %d", g.ID)
			}
		}
	}
}

func (s *Scheduler) seasonOver(season *models.Season, now time.Time) bool {
	end := s.clock.SeasonStartBoundary(season.StartedAt).AddDate(0, 0, clock.SeasonLength)
	return !now.Before(end)
}
