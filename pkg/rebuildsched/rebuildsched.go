// Package rebuildsched drives the STALE -> CLEAN index rebuild
// transition (spec §4.4's lifecycle) in the background, the way the
// teacher's pkg/scheduler drove desired-vs-actual container scheduling:
// a ticker loop filters the catalog for work, then acts on it within its
// own transaction.
package rebuildsched

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/exec"
	"github.com/latticedb/lattice/pkg/log"
	"github.com/latticedb/lattice/pkg/metrics"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/txnevents"
)

// Scheduler periodically rebuilds every STALE index it finds.
type Scheduler struct {
	store    storage.Store
	cat      *catalog.Catalog
	events   *txnevents.Broker
	interval time.Duration
	logger   zerolog.Logger
	mu       sync.RWMutex
	stopCh   chan struct{}
}

// New constructs a rebuild Scheduler over store/cat, running every
// interval. events may be nil.
func New(store storage.Store, cat *catalog.Catalog, events *txnevents.Broker, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:    store,
		cat:      cat,
		events:   events,
		interval: interval,
		logger:   log.WithComponent("rebuildsched"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduling loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the loop.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.reschedule(); err != nil {
				s.logger.Error().Err(err).Msg("rebuild scheduling cycle failed")
			}
		case <-s.stopCh:
			return
		}
	}
}

// reschedule performs one cycle: find every STALE index across the
// catalog and rebuild it.
func (s *Scheduler) reschedule() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.RebuildScheduleCyclesTotal.Inc()

	return s.store.Update(func(tx storage.Tx) error {
		schemas, err := s.cat.ListSchemas(tx)
		if err != nil {
			return err
		}
		for _, schema := range schemas {
			entities, err := s.cat.ListEntities(tx, schema)
			if err != nil {
				return err
			}
			for _, entity := range entities {
				if err := s.rebuildStaleIndexes(tx, entity); err != nil {
					s.logger.Error().Err(err).Str("entity", string(entity)).Msg("failed to rebuild stale indexes")
				}
			}
		}
		return nil
	})
}

func (s *Scheduler) rebuildStaleIndexes(tx storage.Tx, name catalog.EntityName) error {
	short, err := s.cat.ListIndexes(tx, name)
	if err != nil {
		return err
	}
	if len(short) == 0 {
		return nil
	}

	e, err := exec.OpenEntity(tx, s.cat, name)
	if err != nil {
		return err
	}

	for _, ixName := range short {
		full := catalog.NewIndexName(name, ixName)
		typ, state, _, _, ok, err := s.cat.Index(tx, full)
		if err != nil || !ok || state != catalog.IndexStale {
			continue
		}

		timer := metrics.NewTimer()
		if err := e.RebuildIndex(tx, ixName); err != nil {
			s.logger.Error().Err(err).Str("index", string(full)).Msg("index rebuild failed")
			continue
		}
		timer.ObserveDurationVec(metrics.IndexRebuildDuration, string(typ))
		metrics.RebuildScheduledTotal.Inc()

		s.logger.Info().Str("index", string(full)).Str("type", string(typ)).Msg("rebuilt stale index")
		if s.events != nil {
			s.events.Publish(&txnevents.Event{Type: txnevents.EventIndexRebuilt, Entity: name, Metadata: map[string]string{"index": ixName}})
		}
	}
	return nil
}
