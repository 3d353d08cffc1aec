package nn

import (
	"math"
	"testing"

	"brainzzz/internal/model"
)

func plasticitySnapshot() *model.BrainSnapshot {
	return &model.BrainSnapshot{
		ID: 1,
		Nodes: []model.Node{
			{ID: 1, Type: model.NodeInput, Activation: "identity"},
			{ID: 2, Type: model.NodeOutput, Activation: "identity"},
		},
		Connections: []model.Connection{
			{ID: 1, From: 1, To: 2, Weight: 0.5, Plasticity: 0.1, Enabled: true},
			{ID: 2, From: 1, To: 2, Weight: 0.5, Plasticity: 0, Enabled: true},
			{ID: 3, From: 1, To: 2, Weight: 0.5, Plasticity: 0.1, Enabled: false},
		},
	}
}

func TestApplyPlasticityHebbian(t *testing.T) {
	snap := plasticitySnapshot()
	values := map[int]float64{1: 1.0, 2: 0.8}

	changed, err := ApplyPlasticity(snap, values, PlasticityHebbian)
	if err != nil {
		t.Fatalf("apply plasticity: %v", err)
	}
	if changed != 1 {
		t.Fatalf("changed = %d, want 1", changed)
	}
	// delta = 0.1 * 1.0 * 0.8 = 0.08
	if got := snap.Connections[0].Weight; math.Abs(got-0.58) > 1e-12 {
		t.Fatalf("hebbian weight: got=%f want=0.58", got)
	}
	if snap.Connections[1].Weight != 0.5 || snap.Connections[2].Weight != 0.5 {
		t.Fatal("zero-rate or disabled connections were adjusted")
	}
}

func TestApplyPlasticityOja(t *testing.T) {
	snap := plasticitySnapshot()
	values := map[int]float64{1: 1.0, 2: 0.8}

	if _, err := ApplyPlasticity(snap, values, PlasticityOja); err != nil {
		t.Fatalf("apply plasticity: %v", err)
	}
	// delta = 0.1 * 0.8 * (1.0 - 0.8*0.5) = 0.048
	if got := snap.Connections[0].Weight; math.Abs(got-0.548) > 1e-12 {
		t.Fatalf("oja weight: got=%f want=0.548", got)
	}
}

func TestApplyPlasticitySaturates(t *testing.T) {
	snap := plasticitySnapshot()
	snap.Connections[0].Weight = plasticityWeightLimit - 0.01
	values := map[int]float64{1: 10, 2: 10}

	if _, err := ApplyPlasticity(snap, values, PlasticityHebbian); err != nil {
		t.Fatalf("apply plasticity: %v", err)
	}
	if got := snap.Connections[0].Weight; got != plasticityWeightLimit {
		t.Fatalf("weight should clamp at limit: got=%f want=%f", got, plasticityWeightLimit)
	}
}

func TestApplyPlasticityRuleValidation(t *testing.T) {
	if _, err := ApplyPlasticity(plasticitySnapshot(), nil, "chaotic"); err == nil {
		t.Fatal("expected unsupported rule error")
	}
	if _, err := ApplyPlasticity(nil, nil, PlasticityHebbian); err == nil {
		t.Fatal("expected nil snapshot error")
	}
}

func TestNormalizePlasticityRuleName(t *testing.T) {
	cases := map[string]string{
		"":          PlasticityHebbian,
		"hebbian":   PlasticityHebbian,
		"Hebbian_W": PlasticityHebbian,
		"ojas":      PlasticityOja,
		"OJAS_W":    PlasticityOja,
		"custom":    "custom",
	}
	for in, want := range cases {
		if got := NormalizePlasticityRuleName(in); got != want {
			t.Fatalf("normalize %q: got=%q want=%q", in, got, want)
		}
	}
}
