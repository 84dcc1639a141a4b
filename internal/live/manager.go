// Package live owns in-flight matches. Each running match has one worker
// goroutine pacing the simulation engine at the configured tick rate,
// broadcasting events over the bus and checkpointing through a circuit
// breaker. Ownership across nodes is a per-game advisory lock; a crashed
// owner's matches are replayed from seed on the next boot.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/events"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/sim"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/pkg/config"
)

type Manager struct {
	store       *store.Store
	bus         *events.Bus
	commentator sim.Commentator
	cfg         *config.Config
	logger      *logrus.Logger
	breaker     *gobreaker.CircuitBreaker

	mu      sync.Mutex
	workers map[uint]*worker
	wg      sync.WaitGroup
}

func NewManager(st *store.Store, bus *events.Bus, commentator sim.Commentator, cfg *config.Config, logger *logrus.Logger) *Manager {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "match-checkpoint",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return &Manager{
		store:       st,
		bus:         bus,
		commentator: commentator,
		cfg:         cfg,
		logger:      logger,
		breaker:     breaker,
		workers:     make(map[uint]*worker),
	}
}

// StartMatch claims a scheduled game and begins live simulation. Returns
// nil without starting when another node owns the game or it has already
// completed. A side unable to field six players forfeits immediately.
func (m *Manager) StartMatch(ctx context.Context, gameID uint) error {
	if m.worker(gameID) != nil {
		return nil
	}
	game, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Status == models.GameCompleted {
		return nil
	}
	if game.Status == models.GameInProgress {
		return m.recoverMatch(ctx, game)
	}

	lock, err := m.store.TryAdvisoryLock(ctx, store.GameLockKey(gameID))
	if err != nil {
		return err
	}
	if lock == nil {
		m.logger.Debugf("Game %d owned by another node", gameID)
		return nil
	}

	in, meta, err := m.buildInput(ctx, game, 0)
	if err != nil {
		lock.Release()
		return err
	}

	if res := forfeitResult(game, in); res != nil {
		err := m.store.PersistMatchResult(ctx, res)
		lock.Release()
		if err != nil {
			return err
		}
		m.logger.Infof("Game %d decided by forfeit %d-%d", game.ID, game.HomeScore, game.AwayScore)
		return nil
	}

	season, err := m.store.CurrentSeason(ctx)
	if err != nil {
		lock.Release()
		return err
	}
	seed := DeriveSeed(game.ID, season.Number, season.BootNonce)
	if err := m.store.MarkInProgress(ctx, game.ID, seed); err != nil {
		lock.Release()
		if errors.Is(err, apperr.ErrGameNotFound) {
			return nil // claimed elsewhere between load and update
		}
		return err
	}
	game.Seed = seed
	in.Seed = seed

	run, err := sim.NewRun(in, m.commentator)
	if err != nil {
		lock.Release()
		return err
	}
	m.spawn(game, meta, run, lock, nil)
	m.logger.Infof("Game %d live: %s vs %s, seed %d", game.ID, in.Home.Name, in.Away.Name, seed)
	return nil
}

// recoverMatch resumes an IN_PROGRESS game after a crash or ownership
// release. The run is rebuilt from its seed and fast-forwarded, without
// broadcasting, to the later of the last checkpoint and where the wall
// clock says the match should be, then continues live.
func (m *Manager) recoverMatch(ctx context.Context, game *models.Game) error {
	lock, err := m.store.TryAdvisoryLock(ctx, store.GameLockKey(game.ID))
	if err != nil {
		return err
	}
	if lock == nil {
		return nil
	}

	in, meta, err := m.buildInput(ctx, game, game.Seed)
	if err != nil {
		lock.Release()
		return err
	}

	resumeTick := 0
	if ck, err := m.store.LoadCheckpoint(ctx, game.ID); err == nil && ck != nil {
		resumeTick = ck.Tick
	} else if err != nil {
		m.logger.WithError(err).Warnf("Checkpoint load failed for game %d, replaying from kickoff", game.ID)
	}
	if game.StartedAt != nil {
		elapsed := int(time.Since(*game.StartedAt).Seconds() * m.cfg.TickRate)
		if elapsed > resumeTick {
			resumeTick = elapsed
		}
	}

	run, replayed, err := sim.Replay(in, m.commentator, resumeTick)
	if err != nil {
		lock.Release()
		return err
	}
	m.spawn(game, meta, run, lock, replayed)
	m.logger.Infof("Game %d recovered at tick %d", game.ID, run.Tick())
	return nil
}

// RecoverAll re-adopts every match left IN_PROGRESS. Called once on boot.
func (m *Manager) RecoverAll(ctx context.Context) error {
	games, err := m.store.ListInProgress(ctx)
	if err != nil {
		return err
	}
	for i := range games {
		if err := m.recoverMatch(ctx, &games[i]); err != nil {
			m.logger.WithError(err).Errorf("Failed to recover game %d", games[i].ID)
		}
	}
	return nil
}

// CompleteInstant claims a game and simulates it to completion without
// pacing or broadcast. Used for matches whose window has already passed.
func (m *Manager) CompleteInstant(ctx context.Context, gameID uint) error {
	game, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Status == models.GameCompleted {
		return nil
	}

	lock, err := m.store.TryAdvisoryLock(ctx, store.GameLockKey(gameID))
	if err != nil {
		return err
	}
	if lock == nil {
		return nil
	}
	defer lock.Release()

	seed := game.Seed
	if game.Status == models.GameScheduled {
		season, err := m.store.CurrentSeason(ctx)
		if err != nil {
			return err
		}
		seed = DeriveSeed(game.ID, season.Number, season.BootNonce)
	}

	in, meta, err := m.buildInput(ctx, game, seed)
	if err != nil {
		return err
	}
	if res := forfeitResult(game, in); res != nil {
		return m.store.PersistMatchResult(ctx, res)
	}

	if game.Status == models.GameScheduled {
		if err := m.store.MarkInProgress(ctx, game.ID, seed); err != nil {
			if errors.Is(err, apperr.ErrGameNotFound) {
				return nil
			}
			return err
		}
		game.Seed = seed
	}

	run, err := sim.NewRun(in, m.commentator)
	if err != nil {
		return err
	}
	var evs []sim.Event
	for {
		ev, ok := run.Next()
		if !ok {
			break
		}
		evs = append(evs, *ev)
	}
	homeScore, awayScore := run.Score()
	return m.finalize(ctx, game, meta, evs, run.PlayerLines(), run.TeamLines(),
		run.PlayerStates(), homeScore, awayScore)
}

// Watch subscribes to a live match's event feed.
func (m *Manager) Watch(gameID uint, buffer int) (*events.Subscription, error) {
	if m.worker(gameID) == nil {
		return nil, apperr.ErrGameNotFound
	}
	return m.bus.Subscribe(gameID, buffer), nil
}

// Unwatch ends a subscription created by Watch.
func (m *Manager) Unwatch(sub *events.Subscription) {
	m.bus.Unsubscribe(sub)
}

// Pause suspends ticking for a live match.
func (m *Manager) Pause(ctx context.Context, gameID uint) error {
	return m.command(ctx, gameID, workerCmd{kind: cmdPause})
}

// Resume continues a paused match.
func (m *Manager) Resume(ctx context.Context, gameID uint) error {
	return m.command(ctx, gameID, workerCmd{kind: cmdResume})
}

// Substitute applies a user substitution at the next tick boundary.
func (m *Manager) Substitute(ctx context.Context, gameID, teamID, outID, inID uint) error {
	return m.command(ctx, gameID, workerCmd{kind: cmdSubstitute, teamID: teamID, outID: outID, inID: inID})
}

// ActiveGames lists matches this node currently owns.
func (m *Manager) ActiveGames() []uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint, 0, len(m.workers))
	for id := range m.workers {
		ids = append(ids, id)
	}
	return ids
}

// StopAll checkpoints and releases every live match, then waits for the
// workers to exit. Games stay IN_PROGRESS for the next boot to recover.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for _, w := range m.workers {
		w.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) worker(gameID uint) *worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workers[gameID]
}

func (m *Manager) forget(gameID uint) {
	m.mu.Lock()
	delete(m.workers, gameID)
	m.mu.Unlock()
}

func (m *Manager) command(ctx context.Context, gameID uint, cmd workerCmd) error {
	w := m.worker(gameID)
	if w == nil {
		return apperr.ErrGameNotFound
	}
	cmd.reply = make(chan error, 1)
	select {
	case w.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) spawn(game *models.Game, meta *matchMeta, run *sim.Run, lock *store.AdvisoryLock, prior []sim.Event) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		m:      m,
		game:   game,
		meta:   meta,
		run:    run,
		lock:   lock,
		log:    prior,
		cmds:   make(chan workerCmd),
		cancel: cancel,
	}
	m.mu.Lock()
	if _, exists := m.workers[game.ID]; exists {
		m.mu.Unlock()
		cancel()
		lock.Release()
		return
	}
	m.workers[game.ID] = w
	m.mu.Unlock()

	m.wg.Add(1)
	go w.loop(ctx)
}

// finalize persists the completed match in one transaction, applies player
// wear, and closes the broadcast feeds.
func (m *Manager) finalize(ctx context.Context, game *models.Game, meta *matchMeta,
	evs []sim.Event, lines []sim.PlayerLine, teams [2]sim.TeamLine,
	states []sim.PlayerState, homeScore, awayScore int) error {

	game.HomeScore = homeScore
	game.AwayScore = awayScore
	game.WinnerID = winnerOf(game, homeScore, awayScore)

	result := &store.MatchResult{
		Game:        game,
		Events:      encodeEvents(game.ID, evs),
		PlayerStats: encodePlayerStats(game.ID, lines),
		TeamStats:   encodeTeamStats(game.ID, teams),
	}
	if game.MatchType == models.MatchLeague {
		result.StadiumRevenue = stadiumRevenue(meta.HomeCapacity, meta.HomeLoyalty)
	}

	if err := m.store.PersistMatchResult(ctx, result); err != nil {
		return fmt.Errorf("failed to persist result for game %d: %w", game.ID, err)
	}
	if err := m.store.ApplyMatchWear(ctx, game.MatchType, states); err != nil {
		m.logger.WithError(err).Warnf("Match wear not applied for game %d", game.ID)
	}
	m.bus.CloseGame(game.ID)
	m.logger.Infof("Game %d final: %d-%d", game.ID, homeScore, awayScore)
	return nil
}

func winnerOf(game *models.Game, homeScore, awayScore int) *uint {
	switch {
	case homeScore > awayScore:
		return &game.HomeTeamID
	case awayScore > homeScore:
		return &game.AwayTeamID
	}
	return nil
}

// forfeitResult returns a ready-to-persist result when either side cannot
// field a legal lineup, nil otherwise. A double forfeit is a scoreless
// draw.
func forfeitResult(game *models.Game, in *sim.Input) *store.MatchResult {
	homeOK := fieldableCount(in.Home.Players) >= minFieldPlayers
	awayOK := fieldableCount(in.Away.Players) >= minFieldPlayers
	if homeOK && awayOK {
		return nil
	}
	game.Forfeit = true
	switch {
	case homeOK:
		game.HomeScore, game.AwayScore = forfeitScore, 0
		game.WinnerID = &game.HomeTeamID
	case awayOK:
		game.HomeScore, game.AwayScore = 0, forfeitScore
		game.WinnerID = &game.AwayTeamID
	default:
		game.HomeScore, game.AwayScore = 0, 0
	}
	return &store.MatchResult{Game: game}
}

func encodeEvents(gameID uint, evs []sim.Event) []models.GameEvent {
	out := make([]models.GameEvent, 0, len(evs))
	for i := range evs {
		payload, err := json.Marshal(&evs[i])
		if err != nil {
			continue
		}
		out = append(out, models.GameEvent{
			GameID:     gameID,
			Tick:       evs[i].Tick,
			Type:       string(evs[i].Type),
			Payload:    payload,
			Commentary: evs[i].Commentary,
		})
	}
	return out
}

func encodePlayerStats(gameID uint, lines []sim.PlayerLine) []models.PlayerGameStats {
	out := make([]models.PlayerGameStats, 0, len(lines))
	for _, l := range lines {
		out = append(out, models.PlayerGameStats{
			GameID:              gameID,
			PlayerID:            l.PlayerID,
			TeamID:              l.TeamID,
			MinutesPlayed:       l.SecondsPlayed / 60,
			PassAttempts:        l.PassAttempts,
			PassCompletions:     l.PassCompletions,
			PassingYards:        l.PassingYards,
			RushingYards:        l.RushingYards,
			Catches:             l.Catches,
			Drops:               l.Drops,
			Scores:              l.Scores,
			Tackles:             l.Tackles,
			KnockdownsInflicted: l.KnockdownsInflicted,
			FumblesLost:         l.FumblesLost,
		})
	}
	return out
}

func encodeTeamStats(gameID uint, teams [2]sim.TeamLine) []models.TeamGameStats {
	out := make([]models.TeamGameStats, 0, 2)
	for _, t := range teams {
		out = append(out, models.TeamGameStats{
			GameID:            gameID,
			TeamID:            t.TeamID,
			TotalYards:        t.TotalYards,
			PossessionSeconds: t.PossessionSeconds,
			Turnovers:         t.Turnovers,
			Knockdowns:        t.Knockdowns,
		})
	}
	return out
}
