package progression

import (
	"fmt"
	"hash/fnv"

	"github.com/sirupsen/logrus"

	"github.com/jimmy058910/replitballgame-sub006/internal/store"
)

type Service struct {
	store  *store.Store
	logger *logrus.Logger
}

func NewService(st *store.Store, logger *logrus.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// passSeed derives a deterministic PRNG seed for one team's development
// pass, so re-running an interrupted day cannot produce different rolls.
func passSeed(label string, seasonNumber, day int, teamID uint) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d|%d", label, seasonNumber, day, teamID)
	return int64(h.Sum64() & (1<<63 - 1))
}
