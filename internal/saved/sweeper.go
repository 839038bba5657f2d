package saved

import (
	"github.com/robfig/cron/v3"

	"github.com/felixgeelhaar/atelier/internal/observe"
)

// Sweeper evicts expired records on a schedule. It sweeps once on
// start so a long-stopped client catches up immediately.
type Sweeper struct {
	cache *Cache
	obs   *observe.Observer
	cron  *cron.Cron
}

func NewSweeper(cache *Cache, obs *observe.Observer) *Sweeper {
	return &Sweeper{
		cache: cache,
		obs:   obs,
		cron:  cron.New(),
	}
}

// Start sweeps immediately, then on the given cron schedule.
func (s *Sweeper) Start(schedule string) error {
	s.sweep()

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule. A sweep already in flight finishes.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	evicted, err := s.cache.SweepExpired()
	if err != nil {
		s.obs.Log().Warn().Err(err).Msg("sweep failed")
		return
	}
	if len(evicted) > 0 {
		s.obs.Log().Info().Int("evicted", len(evicted)).Msg("sweep complete")
	}
}
