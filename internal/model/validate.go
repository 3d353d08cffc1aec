package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ValidationError reports the first structural problem found in a snapshot
// payload. Field is a dotted path such as "nodes[3].bias".
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid snapshot: %s: %s", e.Field, e.Detail)
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Detail: fmt.Sprintf(format, args...)}
}

// Wire structs use pointer fields so absent values are distinguishable from
// zero values during validation.

type nodeWire struct {
	ID         *int     `json:"id"`
	Type       *string  `json:"type"`
	Activation *string  `json:"activation"`
	Bias       *float64 `json:"bias"`
	Threshold  *float64 `json:"threshold"`
}

type connWire struct {
	ID         *int     `json:"id"`
	From       *int     `json:"from"`
	To         *int     `json:"to"`
	Weight     *float64 `json:"weight"`
	Plasticity *float64 `json:"plasticity"`
	Enabled    *bool    `json:"enabled"`
}

// DecodeSnapshot parses and validates a raw snapshot payload. It returns a
// fully populated snapshot or a *ValidationError naming the first offending
// field; a malformed payload is never partially applied.
func DecodeSnapshot(data []byte) (*BrainSnapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, invalidf("payload", "not a JSON object")
	}

	snap := &BrainSnapshot{}
	if err := requireInt(top, "id", &snap.ID); err != nil {
		return nil, err
	}
	if err := requireNumber(top, "gp", &snap.GP); err != nil {
		return nil, err
	}
	if err := requireNumber(top, "fitness", &snap.Fitness); err != nil {
		return nil, err
	}
	if err := requireNumber(top, "age", &snap.Age); err != nil {
		return nil, err
	}

	rawNodes, err := requireArray(top, "nodes")
	if err != nil {
		return nil, err
	}
	rawConns, err := requireArray(top, "connections")
	if err != nil {
		return nil, err
	}

	snap.Nodes = make([]Node, 0, len(rawNodes))
	for i, raw := range rawNodes {
		field := fmt.Sprintf("nodes[%d]", i)
		var w nodeWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, invalidf(field, "not a node object")
		}
		switch {
		case w.ID == nil:
			return nil, invalidf(field+".id", "missing or not an integer")
		case w.Type == nil || *w.Type == "":
			return nil, invalidf(field+".type", "missing or empty")
		case w.Activation == nil || *w.Activation == "":
			return nil, invalidf(field+".activation", "missing or empty")
		case w.Bias == nil:
			return nil, invalidf(field+".bias", "missing or not a number")
		case w.Threshold == nil:
			return nil, invalidf(field+".threshold", "missing or not a number")
		}
		snap.Nodes = append(snap.Nodes, Node{
			ID:         *w.ID,
			Type:       *w.Type,
			Activation: *w.Activation,
			Bias:       *w.Bias,
			Threshold:  *w.Threshold,
		})
	}

	snap.Connections = make([]Connection, 0, len(rawConns))
	for i, raw := range rawConns {
		field := fmt.Sprintf("connections[%d]", i)
		var w connWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, invalidf(field, "not a connection object")
		}
		switch {
		case w.ID == nil:
			return nil, invalidf(field+".id", "missing or not an integer")
		case w.From == nil:
			return nil, invalidf(field+".from", "missing or not an integer")
		case w.To == nil:
			return nil, invalidf(field+".to", "missing or not an integer")
		case w.Weight == nil:
			return nil, invalidf(field+".weight", "missing or not a number")
		case w.Plasticity == nil:
			return nil, invalidf(field+".plasticity", "missing or not a number")
		case w.Enabled == nil:
			return nil, invalidf(field+".enabled", "missing or not a boolean")
		}
		snap.Connections = append(snap.Connections, Connection{
			ID:         *w.ID,
			From:       *w.From,
			To:         *w.To,
			Weight:     *w.Weight,
			Plasticity: *w.Plasticity,
			Enabled:    *w.Enabled,
		})
	}

	return snap, nil
}

func requireNumber(top map[string]json.RawMessage, key string, dst *float64) error {
	raw, ok := top[key]
	if !ok {
		return invalidf(key, "missing")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return invalidf(key, "not a number")
	}
	return nil
}

func requireInt(top map[string]json.RawMessage, key string, dst *int) error {
	raw, ok := top[key]
	if !ok {
		return invalidf(key, "missing")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return invalidf(key, "not an integer")
	}
	return nil
}

func requireArray(top map[string]json.RawMessage, key string) ([]json.RawMessage, error) {
	raw, ok := top[key]
	if !ok {
		return nil, invalidf(key, "missing")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalidf(key, "not an array")
	}
	return items, nil
}

// PayloadShape renders a one-line structural summary of a JSON payload for
// diagnostic logs, without echoing payload contents.
func PayloadShape(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Sprintf("unparseable(%d bytes)", len(data))
	}
	return shapeOf(v)
}

func shapeOf(v any) string {
	switch t := v.(type) {
	case map[string]any:
		keys := maps.Keys(t)
		slices.Sort(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+":"+shapeOf(t[k]))
		}
		return "object{" + strings.Join(parts, ", ") + "}"
	case []any:
		if len(t) == 0 {
			return "array(0)"
		}
		return fmt.Sprintf("array(%d of %s)", len(t), shapeOf(t[0]))
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}
