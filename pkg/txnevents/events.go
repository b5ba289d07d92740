// Package txnevents publishes transaction and index lifecycle events to
// interested subscribers (spec §9's supplemental observability hooks:
// the core engine has no feature that depends on this). pkg/rebuildsched
// and pkg/scrubber publish index-rebuilt and statistics-refreshed events
// to it; both still poll the catalog on their own tickers, and the
// transaction event types are not published by anything in this module.
// Adapted from the teacher's pkg/events Broker/Subscriber pattern.
package txnevents

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/txn"
)

// EventType discriminates the kind of lifecycle transition an Event
// reports.
type EventType string

const (
	EventTxCommitted         EventType = "tx.committed"
	EventTxRolledBack        EventType = "tx.rolled_back"
	EventTxKilled            EventType = "tx.killed"
	EventIndexMarkedStale    EventType = "index.marked_stale"
	EventIndexRebuilt        EventType = "index.rebuilt"
	EventStatisticsRefreshed EventType = "statistics.refreshed"
)

// Event is one published occurrence. Metadata carries type-specific
// detail (e.g. the index name for an index event) without needing a
// distinct Go type per EventType.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	TxID      txn.TxID
	Entity    catalog.EntityName
	Metadata  map[string]string
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker manages event subscriptions and distribution. cmd/latticed
// creates one Broker and shares it with the background schedulers that
// publish to it.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker. It must be started with Start
// before any Publish call can make progress.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker. Subsequent Publish calls return immediately
// without blocking.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 64)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish enqueues event for distribution, stamping its Timestamp (and
// ID, if unset) first.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// subscriber buffer full, drop rather than block the broker
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
