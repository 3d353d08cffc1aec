package nn

import (
	"fmt"
	"math"
	"strings"

	"brainzzz/internal/model"
)

const (
	PlasticityHebbian = "hebbian"
	PlasticityOja     = "oja"
)

// plasticityWeightLimit keeps adapted weights inside the range the
// simulation works with.
const plasticityWeightLimit = math.Pi * 2

// NormalizePlasticityRuleName folds rule aliases to canonical names.
func NormalizePlasticityRuleName(rule string) string {
	switch strings.ToLower(strings.TrimSpace(rule)) {
	case "", PlasticityHebbian, "hebbian_w":
		return PlasticityHebbian
	case PlasticityOja, "ojas", "ojas_w":
		return PlasticityOja
	default:
		return strings.ToLower(strings.TrimSpace(rule))
	}
}

// ApplyPlasticity adapts connection weights in place from the node values
// of a forward pass. Each connection's own plasticity figure is its
// learning rate; disabled and zero-rate connections are untouched. The
// number of adjusted connections is returned.
func ApplyPlasticity(snap *model.BrainSnapshot, values map[int]float64, rule string) (int, error) {
	if snap == nil {
		return 0, fmt.Errorf("snapshot is required")
	}
	rule = NormalizePlasticityRuleName(rule)
	switch rule {
	case PlasticityHebbian, PlasticityOja:
	default:
		return 0, fmt.Errorf("unsupported plasticity rule: %s", rule)
	}

	changed := 0
	for i := range snap.Connections {
		c := &snap.Connections[i]
		if !c.Enabled || c.Plasticity == 0 {
			continue
		}

		pre := values[c.From]
		post := values[c.To]

		var delta float64
		switch rule {
		case PlasticityHebbian:
			delta = c.Plasticity * pre * post
		case PlasticityOja:
			delta = c.Plasticity * post * (pre - (post * c.Weight))
		}
		if delta == 0 {
			continue
		}

		c.Weight = SaturationWithSpread(c.Weight+delta, plasticityWeightLimit)
		changed++
	}
	return changed, nil
}
