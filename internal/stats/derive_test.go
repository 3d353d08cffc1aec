package stats

import (
	"math"
	"testing"

	"brainzzz/internal/model"
)

func TestDeriveBasics(t *testing.T) {
	snap := &model.BrainSnapshot{
		ID: 1,
		Nodes: []model.Node{
			{ID: 1, Type: model.NodeInput, Activation: "identity", Bias: -0.5, Threshold: 0.2},
			{ID: 2, Type: model.NodeHidden, Activation: "sigmoid", Bias: 0.5, Threshold: 0.8},
			{ID: 3, Type: model.NodeOutput, Activation: "tanh", Bias: 0.0, Threshold: 0.5},
		},
		Connections: []model.Connection{
			{ID: 1, From: 1, To: 2, Weight: 0.9, Plasticity: 0.2, Enabled: true},
			{ID: 2, From: 2, To: 3, Weight: -0.3, Plasticity: 0.4, Enabled: true},
			{ID: 3, From: 1, To: 3, Weight: 0.6, Plasticity: 0.9, Enabled: false},
		},
	}
	d := Derive(snap)
	if d.Nodes != 3 || d.TotalEdges != 3 || d.EnabledEdges != 2 {
		t.Fatalf("counts: %+v", d)
	}
	wantDensity := 2.0 / 6.0
	if math.Abs(d.Density-wantDensity) > 1e-12 {
		t.Fatalf("density = %v, want %v", d.Density, wantDensity)
	}
	if math.Abs(d.WeightMean-0.3) > 1e-12 {
		t.Fatalf("weight mean = %v, want 0.3", d.WeightMean)
	}
	if math.Abs(d.WeightStd-0.6) > 1e-12 {
		t.Fatalf("weight std = %v, want 0.6", d.WeightStd)
	}
	if math.Abs(d.PlasticityMean-0.3) > 1e-12 {
		t.Fatalf("plasticity mean = %v", d.PlasticityMean)
	}
	if d.PositiveEdges != 1 || d.NegativeEdges != 1 || d.StrongEdges != 1 {
		t.Fatalf("polarity counts: %+v", d)
	}
	if d.NodesByType[model.NodeInput] != 1 || d.NodesByType[model.NodeHidden] != 1 {
		t.Fatalf("type counts: %v", d.NodesByType)
	}
	if d.BiasMin != -0.5 || d.BiasMax != 0.5 {
		t.Fatalf("bias range: %v..%v", d.BiasMin, d.BiasMax)
	}
	if d.ThresholdMin != 0.2 || d.ThresholdMax != 0.8 {
		t.Fatalf("threshold range: %v..%v", d.ThresholdMin, d.ThresholdMax)
	}
}

func TestDeriveGuardsDivisions(t *testing.T) {
	empty := Derive(&model.BrainSnapshot{})
	if empty.Density != 0 || empty.WeightMean != 0 || empty.WeightStd != 0 {
		t.Fatalf("empty snapshot produced nonzero stats: %+v", empty)
	}
	if math.IsNaN(empty.Density) || math.IsNaN(empty.WeightMean) {
		t.Fatalf("empty snapshot produced NaN")
	}

	single := Derive(&model.BrainSnapshot{
		Nodes: []model.Node{{ID: 1, Type: model.NodeInput, Activation: "identity"}},
		Connections: []model.Connection{
			{ID: 1, From: 1, To: 1, Weight: 0.5, Plasticity: 0, Enabled: true},
		},
	})
	if single.Density != 0 {
		t.Fatalf("density with one node = %v, want 0", single.Density)
	}

	noEnabled := Derive(&model.BrainSnapshot{
		Nodes: []model.Node{
			{ID: 1, Type: model.NodeInput, Activation: "identity"},
			{ID: 2, Type: model.NodeOutput, Activation: "identity"},
		},
		Connections: []model.Connection{
			{ID: 1, From: 1, To: 2, Weight: 0.5, Plasticity: 0, Enabled: false},
		},
	})
	if noEnabled.Density != 0 || noEnabled.WeightMean != 0 {
		t.Fatalf("disabled-only snapshot: %+v", noEnabled)
	}
}

func TestStrongEdgeBoundary(t *testing.T) {
	snap := &model.BrainSnapshot{
		Nodes: []model.Node{
			{ID: 1, Type: model.NodeInput, Activation: "identity"},
			{ID: 2, Type: model.NodeOutput, Activation: "identity"},
		},
		Connections: []model.Connection{
			{ID: 1, From: 1, To: 2, Weight: 0.5, Plasticity: 0, Enabled: true},
			{ID: 2, From: 1, To: 2, Weight: -0.51, Plasticity: 0, Enabled: true},
			{ID: 3, From: 1, To: 2, Weight: 0.0, Plasticity: 0, Enabled: true},
		},
	}
	d := Derive(snap)
	if d.StrongEdges != 1 {
		t.Fatalf("strong edges = %d, want 1 (0.5 is not strong, -0.51 is)", d.StrongEdges)
	}
	if d.PositiveEdges != 1 || d.NegativeEdges != 1 {
		t.Fatalf("zero-weight edge counted as signed: %+v", d)
	}
}

func TestAggregate(t *testing.T) {
	agg := Aggregate([]model.BrainSummary{
		{ID: 1, Nodes: 4, Connections: 6, Fitness: 0.2},
		{ID: 2, Nodes: 6, Connections: 10, Fitness: 0.8},
	})
	if agg.Size != 2 || agg.MaxFitness != 0.8 {
		t.Fatalf("aggregate: %+v", agg)
	}
	if agg.AvgFitness != 0.5 || agg.AvgNodes != 5 || agg.AvgConnections != 8 {
		t.Fatalf("averages: %+v", agg)
	}
	if empty := Aggregate(nil); empty.Size != 0 || empty.AvgFitness != 0 {
		t.Fatalf("empty aggregate: %+v", empty)
	}

	negative := Aggregate([]model.BrainSummary{
		{ID: 1, Fitness: -3},
		{ID: 2, Fitness: -1},
	})
	if negative.MaxFitness != -1 {
		t.Fatalf("max of negative fitness = %v, want -1", negative.MaxFitness)
	}
}
