package hub

import (
	"log"
	"sync"
)

// Hub is an injectable registry of subscriber connections keyed by cart id.
// It is constructed once at process start and shared by all requests; all
// registry access is synchronized. Notifications only reach subscribers in
// the same process.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[Conn]struct{}
	logger *log.Logger
}

func New(logger *log.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[Conn]struct{}),
		logger: logger,
	}
}

// Subscribe registers conn under cartID.
func (h *Hub) Subscribe(cartID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[cartID]
	if !ok {
		set = make(map[Conn]struct{})
		h.subs[cartID] = set
	}
	set[conn] = struct{}{}
}

// Unsubscribe removes conn from cartID's set. Empty sets are dropped so a
// cart with zero live subscribers has zero registry entries.
func (h *Hub) Unsubscribe(cartID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[cartID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.subs, cartID)
	}
}

// Publish delivers ev to every connection registered under cartID at call
// time. Writes happen outside the registry lock so one slow subscriber never
// stalls subscribe/unsubscribe or delivery bookkeeping; a write failure
// removes that connection and does not affect the rest.
func (h *Hub) Publish(cartID string, ev Event) {
	h.mu.Lock()
	conns := make([]Conn, 0, len(h.subs[cartID]))
	for conn := range h.subs[cartID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Write(ev); err != nil {
			if h.logger != nil {
				h.logger.Printf("hub: dropping subscriber for cart %s: %v", cartID, err)
			}
			h.Unsubscribe(cartID, conn)
		}
	}
}

// Subscribers reports how many connections are registered under cartID.
func (h *Hub) Subscribers(cartID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[cartID])
}
