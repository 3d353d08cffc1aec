package nn

import (
	"fmt"
	"math"
	"sort"

	"brainzzz/internal/model"
)

// Forward runs one synchronous pass over the snapshot. Nodes are evaluated
// once each in ascending id order, so feed-forward wiring settles in a
// single call while recurrent connections read the previous id-order value
// (zero for nodes not yet visited).
//
// Input-node values come from inputs and pass through unchanged. Unknown
// activations resolve to identity; the substituted names are returned so
// callers can surface them. Memory nodes emit zero while the activated
// value stays below their threshold magnitude.
func Forward(snap *model.BrainSnapshot, inputs map[int]float64) (map[int]float64, []string, error) {
	if snap == nil {
		return nil, nil, fmt.Errorf("snapshot is required")
	}

	values := make(map[int]float64, len(snap.Nodes))
	for id, v := range inputs {
		values[id] = v
	}

	incoming := make(map[int][]model.Connection, len(snap.Nodes))
	for _, c := range snap.Connections {
		if !c.Enabled {
			continue
		}
		incoming[c.To] = append(incoming[c.To], c)
	}

	order := make([]model.Node, len(snap.Nodes))
	copy(order, snap.Nodes)
	sort.Slice(order, func(i, j int) bool { return order[i].ID < order[j].ID })

	var substituted []string
	seen := make(map[string]bool)
	for _, node := range order {
		if _, fixed := inputs[node.ID]; fixed {
			continue
		}

		total := node.Bias
		for _, c := range incoming[node.ID] {
			total += values[c.From] * c.Weight
		}

		fn, err := GetActivation(node.Activation)
		if err != nil {
			if !seen[node.Activation] {
				seen[node.Activation] = true
				substituted = append(substituted, node.Activation)
			}
			fn = func(x float64) float64 { return x }
		}
		out := fn(Saturation(total))
		if node.Type == model.NodeMemory && math.Abs(out) < node.Threshold {
			out = 0
		}
		values[node.ID] = out
	}

	sort.Strings(substituted)
	return values, substituted, nil
}
