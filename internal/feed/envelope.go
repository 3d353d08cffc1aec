// Package feed consumes the simulation's WebSocket event stream and keeps
// the connection alive across drops with a fixed-interval, bounded retry
// policy. A normal closure from the server ends the feed without retrying.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"brainzzz/internal/model"
)

// ErrMalformedEvent marks frames that cannot be decoded into an envelope.
var ErrMalformedEvent = errors.New("malformed event")

// DecodeEnvelope parses one feed frame. The type field is required; unknown
// types pass through so newer backends stay consumable.
func DecodeEnvelope(raw []byte) (model.Envelope, error) {
	var env model.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.Type == "" {
		return model.Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	return env, nil
}
