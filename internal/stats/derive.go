package stats

import (
	"math"

	"brainzzz/internal/model"
)

// DerivedStats summarizes one brain snapshot for the statistics panel. It is
// recomputed whenever the snapshot changes and never stored independently.
// Weight, plasticity, and polarity figures cover enabled connections only;
// disabled synapses are structural remnants and would skew the live picture.
type DerivedStats struct {
	Nodes          int            `json:"nodes"`
	TotalEdges     int            `json:"total_edges"`
	EnabledEdges   int            `json:"enabled_edges"`
	Density        float64        `json:"density"`
	WeightMean     float64        `json:"weight_mean"`
	WeightStd      float64        `json:"weight_std"`
	PlasticityMean float64        `json:"plasticity_mean"`
	NodesByType    map[string]int `json:"nodes_by_type"`
	PositiveEdges  int            `json:"positive_edges"`
	NegativeEdges  int            `json:"negative_edges"`
	StrongEdges    int            `json:"strong_edges"`
	BiasMin        float64        `json:"bias_min"`
	BiasMax        float64        `json:"bias_max"`
	ThresholdMin   float64        `json:"threshold_min"`
	ThresholdMax   float64        `json:"threshold_max"`
}

// StrongWeight is the |weight| bound above which an edge counts as strong.
const StrongWeight = 0.5

// Derive computes the statistics panel values for a snapshot. All divisions
// are guarded: with fewer than two nodes or no enabled edges the affected
// figures are 0, never NaN.
func Derive(snap *model.BrainSnapshot) DerivedStats {
	d := DerivedStats{
		Nodes:       len(snap.Nodes),
		TotalEdges:  len(snap.Connections),
		NodesByType: make(map[string]int),
	}

	for _, n := range snap.Nodes {
		d.NodesByType[n.Type]++
	}
	if len(snap.Nodes) > 0 {
		d.BiasMin, d.BiasMax = snap.Nodes[0].Bias, snap.Nodes[0].Bias
		d.ThresholdMin, d.ThresholdMax = snap.Nodes[0].Threshold, snap.Nodes[0].Threshold
		for _, n := range snap.Nodes[1:] {
			d.BiasMin = math.Min(d.BiasMin, n.Bias)
			d.BiasMax = math.Max(d.BiasMax, n.Bias)
			d.ThresholdMin = math.Min(d.ThresholdMin, n.Threshold)
			d.ThresholdMax = math.Max(d.ThresholdMax, n.Threshold)
		}
	}

	var weights, plasticities []float64
	for _, c := range snap.Connections {
		if !c.Enabled {
			continue
		}
		d.EnabledEdges++
		weights = append(weights, c.Weight)
		plasticities = append(plasticities, c.Plasticity)
		switch {
		case c.Weight > 0:
			d.PositiveEdges++
		case c.Weight < 0:
			d.NegativeEdges++
		}
		if math.Abs(c.Weight) > StrongWeight {
			d.StrongEdges++
		}
	}

	if n := len(snap.Nodes); n >= 2 && d.EnabledEdges > 0 {
		d.Density = float64(d.EnabledEdges) / float64(n*(n-1))
	}
	d.WeightMean = Mean(weights)
	d.WeightStd = Std(weights)
	d.PlasticityMean = Mean(plasticities)
	return d
}

// Aggregate recomputes population-level figures from brain summaries, for
// archive listings where the backend aggregate is not available.
func Aggregate(summaries []model.BrainSummary) model.PopulationStats {
	agg := model.PopulationStats{Size: len(summaries)}
	if len(summaries) == 0 {
		return agg
	}
	var fitness, nodes, conns []float64
	agg.MaxFitness = summaries[0].Fitness
	for _, s := range summaries {
		fitness = append(fitness, s.Fitness)
		nodes = append(nodes, float64(s.Nodes))
		conns = append(conns, float64(s.Connections))
		agg.MaxFitness = math.Max(agg.MaxFitness, s.Fitness)
	}
	agg.AvgFitness = Mean(fitness)
	agg.AvgNodes = Mean(nodes)
	agg.AvgConnections = Mean(conns)
	return agg
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Std returns the population standard deviation, or 0 for an empty slice.
func Std(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)))
}
