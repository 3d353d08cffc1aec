// Package render owns the live graph scene a view binds to: a pixel surface,
// positioned styled elements, and a camera. One engine instance belongs to
// exactly one owner, which serializes access; the engine itself holds no
// locks. Exports rasterize or dump the same scene the owner mutates.
package render

import (
	"errors"
	"fmt"
	"math"

	"brainzzz/internal/layout"
)

var (
	ErrEngineDestroyed  = errors.New("render engine destroyed")
	ErrNoSurface        = errors.New("surface has no drawable area")
	ErrUnknownEndpoint  = errors.New("edge endpoint not in scene")
	ErrDuplicateElement = errors.New("element already in scene")
)

// Engine presentation defaults restored on relayout. Owners are expected to
// reapply their edge styling after every RunLayout.
const (
	defaultEdgeWidth = 1.0
	defaultEdgeColor = "#999999"

	layoutPadding = 60.0
	fitMargin     = 40.0
	minZoom       = 0.05
	maxFitZoom    = 2.0
)

type Surface struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Surface) Usable() bool { return s.Width > 0 && s.Height > 0 }

// Camera maps world coordinates to surface pixels: screen = world*Zoom + Offset.
type Camera struct {
	Zoom    float64 `json:"zoom"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// NodeItem is one node element with resolved presentation. Size is the disc
// diameter in world pixels; Fill and Border are hex colors.
type NodeItem struct {
	ID     int     `json:"id"`
	Label  string  `json:"label"`
	Size   float64 `json:"size"`
	Fill   string  `json:"fill"`
	Border string  `json:"border"`
}

// EdgeItem is one directed edge element with resolved presentation. Key is
// the owner-assigned identity; From and To reference node ids.
type EdgeItem struct {
	Key        string  `json:"key"`
	From       int     `json:"from"`
	To         int     `json:"to"`
	Label      string  `json:"label"`
	Width      float64 `json:"width"`
	Color      string  `json:"color"`
	Dashed     bool    `json:"dashed"`
	ArrowScale float64 `json:"arrow_scale"`
}

const (
	HitNone = ""
	HitNode = "node"
	HitEdge = "edge"
)

// Hit reports what lies under a surface point.
type Hit struct {
	Kind    string
	NodeID  int
	EdgeKey string
}

type Engine struct {
	surface    Surface
	camera     Camera
	layoutName string

	nodes     map[int]NodeItem
	nodeOrder []int
	positions map[int]layout.Position
	edges     map[string]EdgeItem
	edgeOrder []string

	destroyed bool
}

// NewEngine binds a fresh engine to surface. Construction fails if the
// surface has no drawable area, so a failed construction never yields a
// half-usable instance.
func NewEngine(surface Surface) (*Engine, error) {
	if !surface.Usable() {
		return nil, fmt.Errorf("%w: %dx%d", ErrNoSurface, surface.Width, surface.Height)
	}
	return &Engine{
		surface:    surface,
		camera:     Camera{Zoom: 1},
		layoutName: layout.DefaultName,
		nodes:      make(map[int]NodeItem),
		positions:  make(map[int]layout.Position),
		edges:      make(map[string]EdgeItem),
	}, nil
}

func (e *Engine) guard() error {
	if e.destroyed {
		return ErrEngineDestroyed
	}
	return nil
}

// SetNodes replaces the node set wholesale. Edges must be cleared first;
// nodes start at the surface center until the next layout run.
func (e *Engine) SetNodes(items []NodeItem) error {
	if err := e.guard(); err != nil {
		return err
	}
	if len(e.edges) != 0 {
		return errors.New("clear edges before replacing nodes")
	}
	nodes := make(map[int]NodeItem, len(items))
	order := make([]int, 0, len(items))
	for _, item := range items {
		if _, exists := nodes[item.ID]; exists {
			return fmt.Errorf("%w: node %d", ErrDuplicateElement, item.ID)
		}
		nodes[item.ID] = item
		order = append(order, item.ID)
	}
	e.nodes = nodes
	e.nodeOrder = order
	e.positions = make(map[int]layout.Position, len(items))
	cx, cy := float64(e.surface.Width)/2, float64(e.surface.Height)/2
	for _, id := range order {
		e.positions[id] = layout.Position{X: cx, Y: cy}
	}
	return nil
}

// AddEdges appends edge elements. The batch is validated before any element
// is committed, so a rejected batch leaves the scene unchanged.
func (e *Engine) AddEdges(items []EdgeItem) error {
	if err := e.guard(); err != nil {
		return err
	}
	for _, item := range items {
		if _, exists := e.edges[item.Key]; exists {
			return fmt.Errorf("%w: edge %s", ErrDuplicateElement, item.Key)
		}
		if _, ok := e.nodes[item.From]; !ok {
			return fmt.Errorf("%w: edge %s from %d", ErrUnknownEndpoint, item.Key, item.From)
		}
		if _, ok := e.nodes[item.To]; !ok {
			return fmt.Errorf("%w: edge %s to %d", ErrUnknownEndpoint, item.Key, item.To)
		}
	}
	for _, item := range items {
		e.edges[item.Key] = item
		e.edgeOrder = append(e.edgeOrder, item.Key)
	}
	return nil
}

func (e *Engine) RemoveEdges(keys []string) error {
	if err := e.guard(); err != nil {
		return err
	}
	drop := make(map[string]bool, len(keys))
	for _, key := range keys {
		drop[key] = true
		delete(e.edges, key)
	}
	kept := e.edgeOrder[:0]
	for _, key := range e.edgeOrder {
		if !drop[key] {
			kept = append(kept, key)
		}
	}
	e.edgeOrder = kept
	return nil
}

func (e *Engine) NodeCount() int { return len(e.nodes) }
func (e *Engine) EdgeCount() int { return len(e.edges) }

func (e *Engine) HasEdge(key string) bool {
	_, ok := e.edges[key]
	return ok
}

// Nodes returns the node elements in draw order.
func (e *Engine) Nodes() []NodeItem {
	out := make([]NodeItem, 0, len(e.nodeOrder))
	for _, id := range e.nodeOrder {
		out = append(out, e.nodes[id])
	}
	return out
}

// Edges returns the edge elements in draw order.
func (e *Engine) Edges() []EdgeItem {
	out := make([]EdgeItem, 0, len(e.edgeOrder))
	for _, key := range e.edgeOrder {
		out = append(out, e.edges[key])
	}
	return out
}

func (e *Engine) Position(id int) (layout.Position, bool) {
	p, ok := e.positions[id]
	return p, ok
}

func (e *Engine) Camera() Camera     { return e.camera }
func (e *Engine) Surface() Surface   { return e.surface }
func (e *Engine) LayoutName() string { return e.layoutName }

// RunLayout re-places every node using the named layout, over the currently
// shown edge set. Per-edge presentation is reset to engine defaults; the
// owner must reapply styling afterwards.
func (e *Engine) RunLayout(name string) error {
	if err := e.guard(); err != nil {
		return err
	}
	fn, err := layout.Get(name)
	if err != nil {
		return err
	}
	pairs := make([][2]int, 0, len(e.edgeOrder))
	for _, key := range e.edgeOrder {
		item := e.edges[key]
		pairs = append(pairs, [2]int{item.From, item.To})
	}
	cfg := layout.Config{
		Width:   float64(e.surface.Width),
		Height:  float64(e.surface.Height),
		Padding: layoutPadding,
	}
	placed := fn(append([]int(nil), e.nodeOrder...), pairs, cfg)
	for id, p := range placed {
		if _, ok := e.nodes[id]; ok {
			e.positions[id] = p
		}
	}
	e.layoutName = name

	for key, item := range e.edges {
		item.Width = defaultEdgeWidth
		item.Color = defaultEdgeColor
		item.Dashed = false
		item.ArrowScale = 1
		e.edges[key] = item
	}
	return nil
}

// RestyleEdges reapplies presentation through the owner's style function.
// Element identity and endpoints cannot be changed from here.
func (e *Engine) RestyleEdges(style func(EdgeItem) EdgeItem) error {
	if err := e.guard(); err != nil {
		return err
	}
	for _, key := range e.edgeOrder {
		item := e.edges[key]
		styled := style(item)
		styled.Key, styled.From, styled.To = item.Key, item.From, item.To
		e.edges[key] = styled
	}
	return nil
}

// RestyleNodes reapplies node presentation through the owner's style
// function. Identity cannot be changed from here.
func (e *Engine) RestyleNodes(style func(NodeItem) NodeItem) error {
	if err := e.guard(); err != nil {
		return err
	}
	for _, id := range e.nodeOrder {
		item := e.nodes[id]
		styled := style(item)
		styled.ID = item.ID
		e.nodes[id] = styled
	}
	return nil
}

// Fit recenters the camera so all placed content is visible with a margin.
func (e *Engine) Fit() error {
	if err := e.guard(); err != nil {
		return err
	}
	e.camera = e.fitTransform()
	return nil
}

// Resize updates the surface dimensions and refits. A zero-area request is
// detected and skipped; the return reports whether the resize was applied.
func (e *Engine) Resize(width, height int) (bool, error) {
	if err := e.guard(); err != nil {
		return false, err
	}
	if width <= 0 || height <= 0 {
		return false, nil
	}
	e.surface = Surface{Width: width, Height: height}
	e.camera = e.fitTransform()
	return true, nil
}

// ElementAt hit-tests a surface point: topmost node first, then edges, else
// empty canvas.
func (e *Engine) ElementAt(x, y float64) (Hit, error) {
	if err := e.guard(); err != nil {
		return Hit{}, err
	}
	wx := (x - e.camera.OffsetX) / e.camera.Zoom
	wy := (y - e.camera.OffsetY) / e.camera.Zoom

	for i := len(e.nodeOrder) - 1; i >= 0; i-- {
		id := e.nodeOrder[i]
		p := e.positions[id]
		if math.Hypot(wx-p.X, wy-p.Y) <= e.nodes[id].Size/2 {
			return Hit{Kind: HitNode, NodeID: id}, nil
		}
	}
	for i := len(e.edgeOrder) - 1; i >= 0; i-- {
		item := e.edges[e.edgeOrder[i]]
		if item.From == item.To {
			continue
		}
		a := e.positions[item.From]
		b := e.positions[item.To]
		tolerance := math.Max(4, item.Width/2+2)
		if pointSegmentDistance(wx, wy, a.X, a.Y, b.X, b.Y) <= tolerance {
			return Hit{Kind: HitEdge, EdgeKey: item.Key}, nil
		}
	}
	return Hit{Kind: HitNone}, nil
}

// Destroy releases the scene. Exactly one Destroy succeeds; any use after it
// reports ErrEngineDestroyed.
func (e *Engine) Destroy() error {
	if e.destroyed {
		return ErrEngineDestroyed
	}
	e.destroyed = true
	e.nodes = nil
	e.nodeOrder = nil
	e.positions = nil
	e.edges = nil
	e.edgeOrder = nil
	return nil
}

func (e *Engine) fitTransform() Camera {
	if len(e.positions) == 0 {
		return Camera{Zoom: 1}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for id, p := range e.positions {
		r := e.nodes[id].Size/2 + fitMargin
		minX = math.Min(minX, p.X-r)
		maxX = math.Max(maxX, p.X+r)
		minY = math.Min(minY, p.Y-r)
		maxY = math.Max(maxY, p.Y+r)
	}
	bw := math.Max(maxX-minX, 1e-9)
	bh := math.Max(maxY-minY, 1e-9)
	zoom := math.Min(float64(e.surface.Width)/bw, float64(e.surface.Height)/bh)
	zoom = math.Min(math.Max(zoom, minZoom), maxFitZoom)
	return Camera{
		Zoom:    zoom,
		OffsetX: float64(e.surface.Width)/2 - zoom*(minX+maxX)/2,
		OffsetY: float64(e.surface.Height)/2 - zoom*(minY+maxY)/2,
	}
}

func pointSegmentDistance(px, py, x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-x1, py-y1)
	}
	t := ((px-x1)*dx + (py-y1)*dy) / lenSq
	t = math.Min(1, math.Max(0, t))
	return math.Hypot(px-(x1+t*dx), py-(y1+t*dy))
}
