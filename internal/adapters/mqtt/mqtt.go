// Package mqtt publishes photoperiod state changes to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
)

// DefaultTopic is the MQTT topic for light state changes.
const DefaultTopic = "photoperiod/state"

// Payload is the JSON body of a transition message.
type Payload struct {
	Photoperiod StatePayload `json:"photoperiod"`
}

// StatePayload describes one observed transition.
type StatePayload struct {
	Timestamp string `json:"timestamp"`
	State     string `json:"state"` // "ON" or "OFF"
	EventID   int64  `json:"event_id,omitempty"`
	Initial   bool   `json:"initial,omitempty"` // first known state, not a switch
}

// FormatPayload creates the JSON payload for a transition.
func FormatPayload(event domain.TransitionEvent) ([]byte, error) {
	payload := Payload{
		Photoperiod: StatePayload{
			Timestamp: event.At.UTC().Format(time.RFC3339),
			State:     string(event.State),
			EventID:   event.ID,
			Initial:   event.Initial,
		},
	}
	return json.Marshal(payload)
}
