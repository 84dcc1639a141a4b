package live

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/sim"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
)

type cmdKind int

const (
	cmdPause cmdKind = iota
	cmdResume
	cmdSubstitute
)

type workerCmd struct {
	kind   cmdKind
	teamID uint
	outID  uint
	inID   uint
	reply  chan error
}

// worker paces one match. Only the worker goroutine touches the run.
type worker struct {
	m      *Manager
	game   *models.Game
	meta   *matchMeta
	run    *sim.Run
	lock   *store.AdvisoryLock
	log    []sim.Event
	cmds   chan workerCmd
	cancel context.CancelFunc
}

func (w *worker) loop(ctx context.Context) {
	defer w.m.wg.Done()

	tickRate := w.m.cfg.TickRate
	if tickRate <= 0 {
		tickRate = 1
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / tickRate))
	defer ticker.Stop()

	paused := false
	lastCheckpoint := w.run.Tick()
	var stalledSince time.Time

	for {
		select {
		case <-ctx.Done():
			w.checkpoint()
			w.release()
			w.m.forget(w.game.ID)
			return

		case cmd := <-w.cmds:
			switch cmd.kind {
			case cmdPause:
				paused = true
				cmd.reply <- nil
			case cmdResume:
				paused = false
				cmd.reply <- nil
			case cmdSubstitute:
				cmd.reply <- w.run.ForceSubstitute(cmd.teamID, cmd.outID, cmd.inID)
			}

		case <-ticker.C:
			if paused {
				continue
			}
			started := time.Now()

			for _, ev := range w.run.StepTick() {
				w.log = append(w.log, ev)
				w.m.bus.Publish(w.game.ID, ev)
			}

			if w.run.Done() {
				homeScore, awayScore := w.run.Score()
				if err := w.m.finalize(ctx, w.game, w.meta, w.log,
					w.run.PlayerLines(), w.run.TeamLines(), w.run.PlayerStates(),
					homeScore, awayScore); err != nil {
					// Leave the game IN_PROGRESS; recovery replays it.
					w.m.logger.WithError(err).Errorf("Finalize failed for game %d", w.game.ID)
				}
				w.release()
				w.m.forget(w.game.ID)
				return
			}

			if w.run.Tick()-lastCheckpoint >= w.m.cfg.CheckpointInterval {
				if err := w.checkpoint(); err == nil {
					lastCheckpoint = w.run.Tick()
				}
			}

			// A tick that overruns the stall timeout means the node is in
			// trouble; after the release window the match is handed back
			// for another node to recover.
			if elapsed := time.Since(started); elapsed > w.m.cfg.StallTimeout {
				if stalledSince.IsZero() {
					stalledSince = started
				}
				w.m.logger.Warnf("MatchStalled: game %d tick %d took %s", w.game.ID, w.run.Tick(), elapsed)
				if time.Since(stalledSince) >= w.m.cfg.StallReleaseAfter {
					w.m.logger.Errorf("Releasing stalled game %d at tick %d", w.game.ID, w.run.Tick())
					w.checkpoint()
					w.release()
					w.m.forget(w.game.ID)
					return
				}
			} else {
				stalledSince = time.Time{}
			}
		}
	}
}

// checkpoint writes the resume point through the circuit breaker so a sick
// database cannot wedge the tick loop for long.
func (w *worker) checkpoint() error {
	states := w.run.PlayerStates()
	snapshot, err := json.Marshal(states)
	if err != nil {
		return err
	}
	homeScore, awayScore := w.run.Score()
	ck := &models.MatchCheckpoint{
		GameID:     w.game.ID,
		Tick:       w.run.Tick(),
		Seed:       w.game.Seed,
		Half:       w.run.Half(),
		HomeScore:  homeScore,
		AwayScore:  awayScore,
		Possession: w.run.PossessionTeamID(),
		Snapshot:   snapshot,
	}
	_, err = w.m.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return nil, w.m.store.SaveCheckpoint(ctx, ck)
	})
	if err != nil {
		w.m.logger.WithError(err).Warnf("Checkpoint skipped for game %d", w.game.ID)
	}
	return err
}

func (w *worker) release() {
	if err := w.lock.Release(); err != nil {
		w.m.logger.WithError(err).Warnf("Advisory lock release failed for game %d", w.game.ID)
	}
}
