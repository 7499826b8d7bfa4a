package mount

import (
	"fmt"

	"github.com/go-drift/mountref/pkg/geometry"
)

// HostEvent records one Attach or Detach call on a MemoryHost.
type HostEvent struct {
	Op     string
	ID     int64
	Index  int
	Bounds geometry.Rect
}

func (e HostEvent) String() string {
	if e.Op == "detach" {
		return fmt.Sprintf("detach %d", e.ID)
	}
	return fmt.Sprintf("attach %d@%d %s", e.ID, e.Index, e.Bounds)
}

// MemoryHost is an in-memory Host that records every call.
type MemoryHost struct {
	attached map[int64]any
	events   []HostEvent
}

// NewMemoryHost creates an empty MemoryHost.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{attached: make(map[int64]any)}
}

// Attach records an attach event.
func (h *MemoryHost) Attach(id int64, index int, content any, bounds geometry.Rect) {
	h.attached[id] = content
	h.events = append(h.events, HostEvent{Op: "attach", ID: id, Index: index, Bounds: bounds})
}

// Detach records a detach event.
func (h *MemoryHost) Detach(id int64, content any) {
	delete(h.attached, id)
	h.events = append(h.events, HostEvent{Op: "detach", ID: id})
}

// Attached reports whether id is currently attached.
func (h *MemoryHost) Attached(id int64) bool {
	_, ok := h.attached[id]
	return ok
}

// Events returns the recorded calls in order.
func (h *MemoryHost) Events() []HostEvent {
	return h.events
}

// Count returns how many calls of op were recorded for id.
func (h *MemoryHost) Count(op string, id int64) int {
	n := 0
	for _, e := range h.events {
		if e.Op == op && e.ID == id {
			n++
		}
	}
	return n
}

// Reset clears the recorded events but keeps attachment state.
func (h *MemoryHost) Reset() {
	h.events = nil
}
