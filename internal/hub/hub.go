// Package hub implements the in-process publish/subscribe registry that fans
// out cart change notifications to live subscriber connections. Delivery is
// best effort and carries no backlog: late subscribers see nothing, and
// clients pull a fresh cart snapshot on every notification instead of trusting
// the event payload as complete state.
package hub

// Event is a lightweight change notification. Payload tells the client what
// changed, not the full new state.
type Event struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload,omitempty"`
}

const (
	KindUpdated = "updated"
	KindRemoved = "removed"
)

// Conn is one live subscriber connection. Write must not block indefinitely;
// a returned error removes the connection from the registry.
type Conn interface {
	Write(ev Event) error
}
