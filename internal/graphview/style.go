package graphview

import (
	"math"

	"brainzzz/internal/model"
)

// NodeBaseSize is the unscaled node disc diameter in pixels.
const NodeBaseSize = 30.0

// Node palette per type, each fill paired with a darker border. Types the
// palette does not know stay neutral gray.
const (
	inputFill     = "#3b82f6"
	inputBorder   = "#1d4ed8"
	outputFill    = "#22c55e"
	outputBorder  = "#15803d"
	hiddenFill    = "#f59e0b"
	hiddenBorder  = "#b45309"
	memoryFill    = "#a855f7"
	memoryBorder  = "#7e22ce"
	defaultFill   = "#9ca3af"
	defaultBorder = "#6b7280"
)

// Buckets of the diverging edge color scale, keyed on signed weight.
const (
	BucketVeryStrongPositive = "very-strong-positive"
	BucketStrongPositive     = "strong-positive"
	BucketWeakPositive       = "weak-positive"
	BucketZero               = "zero"
	BucketWeakNegative       = "weak-negative"
	BucketStrongNegative     = "strong-negative"
	BucketVeryStrongNegative = "very-strong-negative"
)

var bucketColors = map[string]string{
	BucketVeryStrongPositive: "#15803d",
	BucketStrongPositive:     "#22c55e",
	BucketWeakPositive:       "#86efac",
	BucketZero:               "#9ca3af",
	BucketWeakNegative:       "#fca5a5",
	BucketStrongNegative:     "#ef4444",
	BucketVeryStrongNegative: "#b91c1c",
}

const (
	disabledEdgeWidth  = 1.0
	disabledArrowScale = 0.6
)

type NodeStyle struct {
	Size   float64 `json:"size"`
	Fill   string  `json:"fill"`
	Border string  `json:"border"`
}

type EdgeStyle struct {
	Width      float64 `json:"width"`
	Color      string  `json:"color"`
	Dashed     bool    `json:"dashed"`
	ArrowScale float64 `json:"arrow_scale"`
}

// NodeStyleFor computes a node's presentation from its type and the view's
// node scale. Input and output nodes render largest, memory slightly larger
// than hidden.
func NodeStyleFor(typ string, scale float64) NodeStyle {
	if scale <= 0 {
		scale = 1
	}
	style := NodeStyle{Size: NodeBaseSize * scale, Fill: defaultFill, Border: defaultBorder}
	switch typ {
	case model.NodeInput:
		style.Size *= 1.2
		style.Fill, style.Border = inputFill, inputBorder
	case model.NodeOutput:
		style.Size *= 1.2
		style.Fill, style.Border = outputFill, outputBorder
	case model.NodeMemory:
		style.Size *= 1.1
		style.Fill, style.Border = memoryFill, memoryBorder
	case model.NodeHidden:
		style.Fill, style.Border = hiddenFill, hiddenBorder
	}
	return style
}

// WeightBucket places a signed weight on the diverging scale. Boundaries
// are exact: 0.7 is strong-positive, anything above it very-strong.
func WeightBucket(w float64) string {
	switch {
	case w > 0.7:
		return BucketVeryStrongPositive
	case w > 0.3:
		return BucketStrongPositive
	case w > 0:
		return BucketWeakPositive
	case w == 0:
		return BucketZero
	case w >= -0.3:
		return BucketWeakNegative
	case w >= -0.7:
		return BucketStrongNegative
	default:
		return BucketVeryStrongNegative
	}
}

// BucketColor maps a bucket name to its fixed color, shared by edge lines
// and arrowheads.
func BucketColor(bucket string) string {
	if c, ok := bucketColors[bucket]; ok {
		return c
	}
	return bucketColors[BucketZero]
}

// EdgeStyleFor computes an edge's presentation from weight and enabled
// state. Disabled edges render thin and dashed with subdued arrows; enabled
// widths grow with |weight| and never drop below 1.5.
func EdgeStyleFor(weight float64, enabled bool) EdgeStyle {
	style := EdgeStyle{Color: BucketColor(WeightBucket(weight))}
	if !enabled {
		style.Width = disabledEdgeWidth
		style.Dashed = true
		style.ArrowScale = disabledArrowScale
		return style
	}
	style.Width = math.Max(1.5, math.Abs(weight)*4+1.5)
	style.ArrowScale = 1
	return style
}
