package nn

import (
	"math"
	"testing"

	"brainzzz/internal/model"
)

func forwardSnapshot() *model.BrainSnapshot {
	return &model.BrainSnapshot{
		ID: 1,
		Nodes: []model.Node{
			{ID: 1, Type: model.NodeInput, Activation: "identity"},
			{ID: 2, Type: model.NodeInput, Activation: "identity"},
			{ID: 3, Type: model.NodeHidden, Activation: "identity", Bias: 0.5},
			{ID: 4, Type: model.NodeOutput, Activation: "tanh"},
		},
		Connections: []model.Connection{
			{ID: 1, From: 1, To: 3, Weight: 1.0, Enabled: true},
			{ID: 2, From: 2, To: 3, Weight: -2.0, Enabled: true},
			{ID: 3, From: 3, To: 4, Weight: 0.5, Enabled: true},
			{ID: 4, From: 1, To: 4, Weight: 100, Enabled: false},
		},
	}
}

func TestForwardFeedForward(t *testing.T) {
	values, substituted, err := Forward(forwardSnapshot(), map[int]float64{1: 1, 2: 0.25})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(substituted) != 0 {
		t.Fatalf("unexpected substitutions: %v", substituted)
	}

	// node 3: 0.5 + 1*1.0 + 0.25*-2.0 = 1.0
	if got := values[3]; math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("hidden value: got=%f want=1.0", got)
	}
	// node 4: tanh(1.0*0.5); the disabled connection contributes nothing.
	if got, want := values[4], math.Tanh(0.5); math.Abs(got-want) > 1e-12 {
		t.Fatalf("output value: got=%f want=%f", got, want)
	}
	// inputs pass through unchanged
	if values[1] != 1 || values[2] != 0.25 {
		t.Fatalf("input values altered: %v", values)
	}
}

func TestForwardUnknownActivationFallsBack(t *testing.T) {
	snap := forwardSnapshot()
	snap.Nodes[2].Activation = "warp"

	values, substituted, err := Forward(snap, map[int]float64{1: 1, 2: 0})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(substituted) != 1 || substituted[0] != "warp" {
		t.Fatalf("substituted = %v, want [warp]", substituted)
	}
	// identity fallback: 0.5 + 1*1.0 = 1.5
	if got := values[3]; math.Abs(got-1.5) > 1e-12 {
		t.Fatalf("fallback value: got=%f want=1.5", got)
	}
}

func TestForwardMemoryThresholdGate(t *testing.T) {
	snap := &model.BrainSnapshot{
		ID: 2,
		Nodes: []model.Node{
			{ID: 1, Type: model.NodeInput, Activation: "identity"},
			{ID: 2, Type: model.NodeMemory, Activation: "identity", Threshold: 0.5},
		},
		Connections: []model.Connection{
			{ID: 1, From: 1, To: 2, Weight: 1, Enabled: true},
		},
	}

	values, _, err := Forward(snap, map[int]float64{1: 0.4})
	if err != nil {
		t.Fatalf("forward below threshold: %v", err)
	}
	if values[2] != 0 {
		t.Fatalf("memory node fired below threshold: %f", values[2])
	}

	values, _, err = Forward(snap, map[int]float64{1: 0.6})
	if err != nil {
		t.Fatalf("forward above threshold: %v", err)
	}
	if math.Abs(values[2]-0.6) > 1e-12 {
		t.Fatalf("memory node value: got=%f want=0.6", values[2])
	}
}

func TestForwardRecurrentReadsPreviousValue(t *testing.T) {
	snap := &model.BrainSnapshot{
		ID: 3,
		Nodes: []model.Node{
			{ID: 1, Type: model.NodeInput, Activation: "identity"},
			{ID: 2, Type: model.NodeHidden, Activation: "identity"},
			{ID: 3, Type: model.NodeHidden, Activation: "identity"},
		},
		Connections: []model.Connection{
			{ID: 1, From: 1, To: 2, Weight: 1, Enabled: true},
			{ID: 2, From: 3, To: 2, Weight: 1, Enabled: true},
			{ID: 3, From: 2, To: 3, Weight: 1, Enabled: true},
		},
	}

	// First pass: node 2 sees node 3 as zero; node 3 then sees node 2.
	values, _, err := Forward(snap, map[int]float64{1: 1})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if values[2] != 1 || values[3] != 1 {
		t.Fatalf("first pass values: %v", values)
	}
}

func TestForwardNilSnapshot(t *testing.T) {
	if _, _, err := Forward(nil, nil); err == nil {
		t.Fatal("expected error for nil snapshot")
	}
}

func TestSaturationClampsExtremes(t *testing.T) {
	if got := Saturation(5000); got != 1000 {
		t.Fatalf("saturation high: got=%f want=1000", got)
	}
	if got := Saturation(-5000); got != -1000 {
		t.Fatalf("saturation low: got=%f want=-1000", got)
	}
	if got := SaturationWithSpread(3, -2); got != 2 {
		t.Fatalf("negative spread should act symmetric: got=%f want=2", got)
	}
	if got := Sat(0.5, 1, -1); got != 0.5 {
		t.Fatalf("sat in range: got=%f want=0.5", got)
	}
}
