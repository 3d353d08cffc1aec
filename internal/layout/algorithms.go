package layout

import (
	"math"
	"math/rand"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Concentric places nodes on rings keyed by degree, higher-degree nodes
// toward the center. Nodes sharing a degree share a ring, swept in id order.
// A lone highest-degree node sits at the exact center.
func Concentric(ids []int, edges [][2]int, cfg Config) map[int]Position {
	pos := make(map[int]Position, len(ids))
	if len(ids) == 0 {
		return pos
	}

	degree := make(map[int]int, len(ids))
	for _, id := range ids {
		degree[id] = 0
	}
	for _, e := range edges {
		if _, ok := degree[e[0]]; ok {
			degree[e[0]]++
		}
		if _, ok := degree[e[1]]; ok {
			degree[e[1]]++
		}
	}

	byDegree := make(map[int][]int)
	for _, id := range ids {
		byDegree[degree[id]] = append(byDegree[degree[id]], id)
	}
	levels := maps.Keys(byDegree)
	slices.SortFunc(levels, func(a, b int) int { return b - a })

	cx, cy := cfg.Width/2, cfg.Height/2
	maxR := math.Max(0, math.Min(cfg.Width, cfg.Height)/2-cfg.Padding)
	for ring, deg := range levels {
		members := byDegree[deg]
		slices.Sort(members)
		r := maxR * float64(ring+1) / float64(len(levels))
		if ring == 0 && len(members) == 1 {
			r = 0
		}
		placeRing(pos, members, cx, cy, r)
	}
	return pos
}

// Circle sweeps all nodes over a full circle of fixed radius, in id order.
func Circle(ids []int, _ [][2]int, cfg Config) map[int]Position {
	pos := make(map[int]Position, len(ids))
	if len(ids) == 0 {
		return pos
	}
	r := math.Max(0, math.Min(cfg.Width, cfg.Height)/2-cfg.Padding)
	placeRing(pos, orderedIDs(ids), cfg.Width/2, cfg.Height/2, r)
	return pos
}

// Grid fills a square grid with rows = cols = ceil(sqrt(n)), row-major in
// id order. Trailing cells stay empty.
func Grid(ids []int, _ [][2]int, cfg Config) map[int]Position {
	pos := make(map[int]Position, len(ids))
	if len(ids) == 0 {
		return pos
	}
	side := int(math.Ceil(math.Sqrt(float64(len(ids)))))
	cellW := math.Max(0, cfg.Width-2*cfg.Padding) / float64(side)
	cellH := math.Max(0, cfg.Height-2*cfg.Padding) / float64(side)
	for i, id := range orderedIDs(ids) {
		row, col := i/side, i%side
		pos[id] = Position{
			X: cfg.Padding + (float64(col)+0.5)*cellW,
			Y: cfg.Padding + (float64(row)+0.5)*cellH,
		}
	}
	return pos
}

// Random scatters nodes uniformly inside the padded surface. No determinism
// is guaranteed unless cfg.Rand is seeded by the caller.
func Random(ids []int, _ [][2]int, cfg Config) map[int]Position {
	pos := make(map[int]Position, len(ids))
	next := rand.Float64
	if cfg.Rand != nil {
		next = cfg.Rand.Float64
	}
	spanX := math.Max(0, cfg.Width-2*cfg.Padding)
	spanY := math.Max(0, cfg.Height-2*cfg.Padding)
	for _, id := range ids {
		pos[id] = Position{
			X: cfg.Padding + next()*spanX,
			Y: cfg.Padding + next()*spanY,
		}
	}
	return pos
}

func placeRing(pos map[int]Position, members []int, cx, cy, r float64) {
	for i, id := range members {
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(len(members))
		pos[id] = Position{X: cx + r*math.Cos(angle), Y: cy + r*math.Sin(angle)}
	}
}

func orderedIDs(ids []int) []int {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	return ordered
}
