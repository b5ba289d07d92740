// Package scrubber recomputes column statistics the way pkg/reconciler's
// teacher loop recomputed cluster state: a ticker-driven cycle function
// that walks every schema/entity/column and lazily refreshes any
// ValueStatistics left !Fresh() by in-band Insert/Delete folding (spec
// §4.3's "statistics may drift under heavy concurrent update; a
// background scrubber recomputes from scratch").
package scrubber

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/log"
	"github.com/latticedb/lattice/pkg/metrics"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/txnevents"
	"github.com/latticedb/lattice/pkg/types"
)

// Scrubber periodically recomputes stale column statistics.
type Scrubber struct {
	store    storage.Store
	cat      *catalog.Catalog
	events   *txnevents.Broker // optional, nil disables event-driven triggers
	interval time.Duration
	logger   zerolog.Logger
	mu       sync.Mutex
	stopCh   chan struct{}
}

// New constructs a Scrubber over store/cat, running every interval.
// events may be nil.
func New(store storage.Store, cat *catalog.Catalog, events *txnevents.Broker, interval time.Duration) *Scrubber {
	return &Scrubber{
		store:    store,
		cat:      cat,
		events:   events,
		interval: interval,
		logger:   log.WithComponent("scrubber"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scrub loop.
func (s *Scrubber) Start() {
	go s.run()
}

// Stop stops the scrub loop.
func (s *Scrubber) Stop() {
	close(s.stopCh)
}

func (s *Scrubber) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("scrubber started")

	for {
		select {
		case <-ticker.C:
			if err := s.cycle(); err != nil {
				s.logger.Error().Err(err).Msg("scrub cycle failed")
			}
		case <-s.stopCh:
			s.logger.Info().Msg("scrubber stopped")
			return
		}
	}
}

// cycle performs one full pass, recomputing every stale statistic it
// finds.
func (s *Scrubber) cycle() error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.StatsScrubDuration)
		metrics.StatsScrubCyclesTotal.Inc()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

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
				if err := s.scrubEntity(tx, entity); err != nil {
					s.logger.Error().Err(err).Str("entity", string(entity)).Msg("failed to scrub entity")
				}
			}
		}
		return nil
	})
}

func (s *Scrubber) scrubEntity(tx storage.Tx, entity catalog.EntityName) error {
	defs, ok, err := s.cat.Entity(tx, entity)
	if err != nil || !ok {
		return err
	}
	for _, def := range defs {
		colName := catalog.NewColumnName(entity, def.Name())
		stats, err := s.cat.Statistics(tx, colName, def.Type().Kind)
		if err != nil {
			return err
		}
		if stats.Fresh() {
			continue
		}
		col := column.Open(s.cat, colName, def)
		values, err := allValues(tx, col)
		if err != nil {
			return err
		}
		stats.Recompute(values)
		if err := s.cat.PutStatistics(tx, colName, def.Type().Kind, stats); err != nil {
			return err
		}
		metrics.StatsScrubRecomputedTotal.Inc()
		if s.events != nil {
			s.events.Publish(&txnevents.Event{Type: txnevents.EventStatisticsRefreshed, Entity: entity, Metadata: map[string]string{"column": def.Name()}})
		}
	}
	return nil
}

func allValues(tx storage.Tx, col *column.Column) ([]types.Value, error) {
	cur, err := col.Cursor(tx, nil)
	if err != nil {
		return nil, err
	}
	var out []types.Value
	for cur.Valid() {
		_, v, err := cur.Entry()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		cur.Next()
	}
	return out, nil
}
