package estimate

import (
	"roofquote_backend/platform/events"
)

// EventEstimateComputed is published for every terminal pipeline outcome.
const EventEstimateComputed = "estimate.computed"

// EstimateComputed carries the full response so subscribers (history
// persistence, future notification hooks) need no second lookup.
type EstimateComputed struct {
	events.BaseEvent
	Response EstimateResponse
}

// EventName returns the event identifier.
func (e EstimateComputed) EventName() string {
	return EventEstimateComputed
}
