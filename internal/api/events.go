package api

import (
	"time"

	"github.com/stablex/driver/pkg/types"
)

// Event is the wrapper for everything broadcast over GET /ws.
type Event struct {
	Type      string      `json:"type"` // "snapshot", "readiness", "divergence"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ReadinessEvent reports the live updater's (C4) readiness. It is sent
// once to each WebSocket client when it connects; later transitions are
// not broadcast.
type ReadinessEvent struct {
	Ready bool `json:"ready"`
}

// DivergenceEvent mirrors a shadow-reader warning (C7) onto the
// observability surface so an operator watching the dashboard sees the
// same signal as the structured log.
type DivergenceEvent struct {
	Batch types.BatchIndex `json:"batch"`
	Diff  string           `json:"diff"`
}

// NewReadinessEvent wraps a readiness transition as a broadcastable Event.
func NewReadinessEvent(ready bool) Event {
	return Event{Type: "readiness", Data: ReadinessEvent{Ready: ready}}
}

// NewDivergenceEvent wraps a shadow-reader divergence as a broadcastable
// Event.
func NewDivergenceEvent(batch types.BatchIndex, diff string) Event {
	return Event{Type: "divergence", Data: DivergenceEvent{Batch: batch, Diff: diff}}
}

// NewSnapshotEvent wraps a Snapshot as a broadcastable Event.
func NewSnapshotEvent(snap Snapshot) Event {
	return Event{Type: "snapshot", Data: snap}
}
