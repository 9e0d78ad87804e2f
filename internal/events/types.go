package events

import (
	"encoding/json"
	"time"

	"github.com/nexport/opsdash/internal/probe"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	WidgetID() string
}

// Event type constants
const (
	EventTypeProbeStarted = "probe.started"
	EventTypeProbeSettled = "probe.settled"
	EventTypeBoardDone    = "board.done"
)

// ProbeStartedEvent is published when a widget's probe call is issued.
type ProbeStartedEvent struct {
	ID        string
	Method    string
	Timestamp time.Time
}

func (e ProbeStartedEvent) EventType() string { return EventTypeProbeStarted }
func (e ProbeStartedEvent) WidgetID() string  { return e.ID }

// ProbeSettledEvent is published when a widget's probe call reaches a
// terminal outcome. Failure nil means the payload arrived (possibly
// empty); a non-nil Failure carries the tolerated/genuine classification.
type ProbeSettledEvent struct {
	ID        string
	Payload   json.RawMessage
	Failure   *probe.Failure
	Duration  time.Duration
	Timestamp time.Time
}

func (e ProbeSettledEvent) EventType() string { return EventTypeProbeSettled }
func (e ProbeSettledEvent) WidgetID() string  { return e.ID }

// BoardDoneEvent is published once every enabled widget has settled.
type BoardDoneEvent struct {
	Settled   int
	Errored   int
	Timestamp time.Time
}

func (e BoardDoneEvent) EventType() string { return EventTypeBoardDone }
func (e BoardDoneEvent) WidgetID() string  { return "" }
