package graphview

import (
	"fmt"

	"brainzzz/internal/model"
)

// NodeElement is one renderable neuron with precomputed presentation
// strings. Semantic fields travel with the element so selection can expose
// them without another lookup.
type NodeElement struct {
	ID         int     `json:"id"`
	Label      string  `json:"label"`
	Tooltip    string  `json:"tooltip"`
	Type       string  `json:"type"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
	Threshold  float64 `json:"threshold"`
}

// EdgeElement is one renderable synapse. Key folds the connection id with
// both endpoints so numeric ids reused across reload cycles cannot collide.
type EdgeElement struct {
	Key        string  `json:"key"`
	ID         int     `json:"id"`
	From       int     `json:"from"`
	To         int     `json:"to"`
	Weight     float64 `json:"weight"`
	Plasticity float64 `json:"plasticity"`
	Enabled    bool    `json:"enabled"`
	Label      string  `json:"label"`
}

func EdgeKey(c model.Connection) string {
	return fmt.Sprintf("e%d:%d-%d", c.ID, c.From, c.To)
}

// BuildNodeElements shapes every snapshot node into an element.
func BuildNodeElements(snap *model.BrainSnapshot) []NodeElement {
	out := make([]NodeElement, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		out = append(out, NodeElement{
			ID:         n.ID,
			Label:      fmt.Sprintf("%d\n%s", n.ID, shortType(n.Type)),
			Tooltip:    nodeTooltip(n),
			Type:       n.Type,
			Activation: n.Activation,
			Bias:       n.Bias,
			Threshold:  n.Threshold,
		})
	}
	return out
}

// BuildEdgeElements shapes the connections visible under state into
// elements. Connections referencing node ids absent from the snapshot are
// returned separately so callers can flag upstream corruption; they are
// checked before visibility filtering and never silently dropped.
func BuildEdgeElements(snap *model.BrainSnapshot, state ViewState) (shown []EdgeElement, dangling []model.Connection) {
	known := make(map[int]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		known[n.ID] = true
	}
	shown = make([]EdgeElement, 0, len(snap.Connections))
	for _, c := range snap.Connections {
		if !known[c.From] || !known[c.To] {
			dangling = append(dangling, c)
			continue
		}
		if !c.Enabled && !state.ShowDisabled {
			continue
		}
		shown = append(shown, EdgeElement{
			Key:        EdgeKey(c),
			ID:         c.ID,
			From:       c.From,
			To:         c.To,
			Weight:     c.Weight,
			Plasticity: c.Plasticity,
			Enabled:    c.Enabled,
			Label:      edgeLabel(c, state.ShowWeights),
		})
	}
	return shown, dangling
}

func edgeLabel(c model.Connection, showWeights bool) string {
	if !showWeights {
		return ""
	}
	if !c.Enabled {
		return "DISABLED"
	}
	return fmt.Sprintf("%.2f\n%.2f", c.Weight, c.Plasticity)
}

func nodeTooltip(n model.Node) string {
	return fmt.Sprintf("neuron %d (%s)\nactivation: %s\nbias: %.3f\nthreshold: %.3f",
		n.ID, n.Type, n.Activation, n.Bias, n.Threshold)
}

func shortType(t string) string {
	if len(t) > 3 {
		return t[:3]
	}
	return t
}
