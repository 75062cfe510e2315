package notify

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Collection names a streamed collection within an account namespace.
type Collection string

const (
	Customers Collection = "customers"
	Products  Collection = "products"
	Sales     Collection = "sales"
)

// Snapshot is one full-collection delivery. Subscribers replace their
// entire local copy on every delivery; there is no incremental diffing.
type Snapshot struct {
	Collection Collection
	Records    interface{}
}

// Subscription is a live registration on one account's collection. The
// caller owns teardown: Unsubscribe must be called when the subscriber
// goes away, after which C is closed.
type Subscription struct {
	C chan Snapshot

	hub        *Hub
	accountID  uuid.UUID
	collection Collection
	id         uint64
}

// Unsubscribe removes the registration and closes C. Safe to call once.
func (s *Subscription) Unsubscribe() {
	s.hub.remove(s)
}

// Hub fans full-collection snapshots out to live subscribers, keyed by
// account and collection. Writers publish after every successful write;
// slow subscribers have their channel's pending snapshot replaced rather
// than blocking the writer.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uuid.UUID]map[Collection]map[uint64]*Subscription
	logger *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]map[Collection]map[uint64]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a live subscription on one account's collection
func (h *Hub) Subscribe(accountID uuid.UUID, collection Collection) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		C:          make(chan Snapshot, 1),
		hub:        h,
		accountID:  accountID,
		collection: collection,
		id:         h.nextID,
	}

	byCollection, ok := h.subs[accountID]
	if !ok {
		byCollection = make(map[Collection]map[uint64]*Subscription)
		h.subs[accountID] = byCollection
	}
	bySub, ok := byCollection[collection]
	if !ok {
		bySub = make(map[uint64]*Subscription)
		byCollection[collection] = bySub
	}
	bySub[sub.id] = sub

	h.logger.Debug("Subscription registered",
		zap.String("account_id", accountID.String()),
		zap.String("collection", string(collection)),
	)

	return sub
}

// Publish delivers a full snapshot of one account's collection to every
// live subscriber. A subscriber that has not drained its previous snapshot
// gets it replaced with this one: only the latest snapshot matters.
func (h *Hub) Publish(accountID uuid.UUID, collection Collection, records interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := Snapshot{Collection: collection, Records: records}
	for _, sub := range h.subs[accountID][collection] {
		select {
		case sub.C <- snapshot:
		default:
			select {
			case <-sub.C:
			default:
			}
			sub.C <- snapshot
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	bySub := h.subs[sub.accountID][sub.collection]
	if _, ok := bySub[sub.id]; !ok {
		return
	}
	delete(bySub, sub.id)
	close(sub.C)

	h.logger.Debug("Subscription removed",
		zap.String("account_id", sub.accountID.String()),
		zap.String("collection", string(sub.collection)),
	)
}
