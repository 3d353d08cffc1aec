// Package graphview renders brain snapshots as interactive graph scenes.
//
// A View owns exactly one render engine instance for its lifetime. All
// engine mutations go through the view, which serializes them behind a
// mutex and coalesces rapid state changes through a deferred update queue.
package graphview

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"brainzzz/internal/layout"
	"brainzzz/internal/model"
	"brainzzz/internal/render"
	"brainzzz/internal/stats"
)

var (
	// ErrViewClosed is returned by operations on a closed view.
	ErrViewClosed = errors.New("graph view closed")

	// ErrNotInView is returned when a selection target does not exist in
	// the current scene.
	ErrNotInView = errors.New("element not in view")
)

// ViewState holds the user-adjustable presentation settings. It survives
// snapshot replacement on the same view.
type ViewState struct {
	Layout       string  `json:"layout"`
	ShowWeights  bool    `json:"show_weights"`
	ShowDisabled bool    `json:"show_disabled"`
	NodeScale    float64 `json:"node_scale"`
}

// Selection kinds.
const (
	SelectionNone = "none"
	SelectionNode = "node"
	SelectionEdge = "edge"
)

// Selection identifies the single selected element, if any. At most one of
// Node and Edge is set, matching Kind.
type Selection struct {
	Kind string       `json:"kind"`
	Node *NodeElement `json:"node,omitempty"`
	Edge *EdgeElement `json:"edge,omitempty"`
}

// Model is the complete drawable state of a view: the positioned scene for
// painting plus the semantic elements behind it.
type Model struct {
	Brain     int                `json:"brain"`
	State     ViewState          `json:"state"`
	Selection Selection          `json:"selection"`
	Stats     stats.DerivedStats `json:"stats"`
	Warnings  []string           `json:"warnings"`
	Scene     render.Structure   `json:"scene"`
	Nodes     []NodeElement      `json:"nodes"`
	Edges     []EdgeElement      `json:"edges"`
}

// View binds one brain snapshot to one owned render engine.
type View struct {
	mu sync.Mutex

	snapshot *model.BrainSnapshot
	state    ViewState
	engine   *render.Engine
	sel      Selection
	derived  stats.DerivedStats
	warnings []string
	lastErr  string

	nodeEls   []NodeElement
	nodeByID  map[int]NodeElement
	edgeEls   []EdgeElement
	edgeByKey map[string]EdgeElement

	queue  *updateQueue
	closed bool
}

// New builds a view over a validated snapshot bound to a drawing surface.
// Construction is all-or-nothing: on failure no engine instance is left
// behind and the error is returned.
func New(snap *model.BrainSnapshot, surface render.Surface, state ViewState) (*View, error) {
	if snap == nil {
		return nil, fmt.Errorf("new view: snapshot is required")
	}
	if state.Layout == "" {
		state.Layout = layout.DefaultName
	}
	if _, err := layout.Get(state.Layout); err != nil {
		return nil, fmt.Errorf("new view: %w", err)
	}
	if state.NodeScale <= 0 {
		state.NodeScale = 1
	}

	engine, err := render.NewEngine(surface)
	if err != nil {
		return nil, fmt.Errorf("new view: %w", err)
	}
	v := &View{
		state:  state,
		engine: engine,
		sel:    Selection{Kind: SelectionNone},
		queue:  newUpdateQueue(deferDelay),
	}
	if err := v.mountLocked(snap); err != nil {
		_ = engine.Destroy()
		v.engine = nil
		v.closed = true
		return nil, fmt.Errorf("new view: %w", err)
	}
	return v, nil
}

// mountLocked loads snap into the engine wholesale: nodes, edges, layout,
// camera and styling. Any prior edge set is cleared first so node
// replacement is legal.
func (v *View) mountLocked(snap *model.BrainSnapshot) error {
	if enabled := enabledCount(snap); len(snap.Connections) > 0 && enabled == 0 && !v.state.ShowDisabled {
		v.state.ShowDisabled = true
		v.note("all connections disabled; showing disabled connections")
	}

	nodes := BuildNodeElements(snap)
	edges, dangling := BuildEdgeElements(snap, v.state)
	for _, c := range dangling {
		v.note(fmt.Sprintf("connection %d references a missing neuron (%d->%d)", c.ID, c.From, c.To))
	}

	// Element state must be in place before the engine sequence: the
	// restyle callback resolves presentation through it.
	v.snapshot = snap
	v.derived = stats.Derive(snap)
	v.setElements(nodes, edges)
	v.sel = Selection{Kind: SelectionNone}

	if keys := edgeKeys(v.engine.Edges()); len(keys) > 0 {
		v.engine.RemoveEdges(keys)
	}
	if err := v.engine.SetNodes(nodeItems(nodes, v.state.NodeScale)); err != nil {
		return err
	}
	if err := v.engine.AddEdges(edgeItems(edges)); err != nil {
		return err
	}
	if err := v.engine.RunLayout(v.state.Layout); err != nil {
		return err
	}
	if err := v.engine.Fit(); err != nil {
		return err
	}
	return v.engine.RestyleEdges(v.styleEdge)
}

// ReplaceSnapshot swaps in a new snapshot while keeping the view state and
// the engine instance. On engine failure the view is closed rather than
// left half-built.
func (v *View) ReplaceSnapshot(snap *model.BrainSnapshot) error {
	if snap == nil {
		return fmt.Errorf("replace snapshot: snapshot is required")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.guard(); err != nil {
		return err
	}
	v.warnings = nil
	v.lastErr = ""
	if err := v.mountLocked(snap); err != nil {
		_ = v.engine.Destroy()
		v.engine = nil
		v.closed = true
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// ResyncEdges reconciles the engine's edge set against the current snapshot
// and view state. Only edges are touched: stale elements are removed, newly
// visible ones added, and styling is reapplied across the set. Nodes and
// camera stay as they are, and running it again without a state change is a
// no-op.
func (v *View) ResyncEdges() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.guard(); err != nil {
		return err
	}
	return v.resyncEdgesLocked()
}

func (v *View) resyncEdgesLocked() error {
	target, _ := BuildEdgeElements(v.snapshot, v.state)
	byKey := make(map[string]EdgeElement, len(target))
	for _, el := range target {
		byKey[el.Key] = el
	}

	var stale []string
	for _, item := range v.engine.Edges() {
		if _, keep := byKey[item.Key]; !keep {
			stale = append(stale, item.Key)
		}
	}
	var added []render.EdgeItem
	for _, el := range target {
		if !v.engine.HasEdge(el.Key) {
			added = append(added, edgeItem(el))
		}
	}

	if len(stale) > 0 {
		v.engine.RemoveEdges(stale)
	}
	if len(added) > 0 {
		if err := v.engine.AddEdges(added); err != nil {
			return err
		}
	}

	v.edgeEls = target
	v.edgeByKey = byKey
	if v.sel.Kind == SelectionEdge && v.sel.Edge != nil {
		if el, ok := byKey[v.sel.Edge.Key]; ok {
			v.sel.Edge = &el
		} else {
			v.sel = Selection{Kind: SelectionNone}
		}
	}
	return v.engine.RestyleEdges(v.styleEdge)
}

// SetLayout switches the active layout. The name is validated immediately;
// the relayout itself runs deferred, followed by a refit and a restyle
// pass because the engine resets edge presentation on relayout.
func (v *View) SetLayout(name string) error {
	if _, err := layout.Get(name); err != nil {
		return err
	}
	v.mu.Lock()
	if err := v.guard(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.state.Layout = name
	v.mu.Unlock()

	v.queue.schedule("layout", func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.guard() != nil {
			return
		}
		if err := v.engine.RunLayout(v.state.Layout); err != nil {
			v.fail("layout", err)
			return
		}
		if err := v.engine.Fit(); err != nil {
			v.fail("layout", err)
			return
		}
		if err := v.engine.RestyleEdges(v.styleEdge); err != nil {
			v.fail("layout", err)
		}
	})
	return nil
}

// SetShowDisabled toggles visibility of disabled connections. The edge
// resync runs deferred; rapid toggles collapse to the final value.
func (v *View) SetShowDisabled(show bool) error {
	v.mu.Lock()
	if err := v.guard(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.state.ShowDisabled = show
	if !show && len(v.snapshot.Connections) > 0 && enabledCount(v.snapshot) == 0 {
		v.state.ShowDisabled = true
		v.note("all connections disabled; showing disabled connections")
	}
	v.mu.Unlock()
	v.scheduleResync()
	return nil
}

// SetShowWeights toggles weight and plasticity labels on enabled edges.
func (v *View) SetShowWeights(show bool) error {
	v.mu.Lock()
	if err := v.guard(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.state.ShowWeights = show
	v.mu.Unlock()
	v.scheduleResync()
	return nil
}

// SetNodeScale adjusts node sizing. Non-positive values reset to 1.
func (v *View) SetNodeScale(scale float64) error {
	if scale <= 0 {
		scale = 1
	}
	v.mu.Lock()
	if err := v.guard(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.state.NodeScale = scale
	v.mu.Unlock()

	v.queue.schedule("nodes", func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.guard() != nil {
			return
		}
		if err := v.engine.RestyleNodes(v.styleNode); err != nil {
			v.fail("node scale", err)
			return
		}
		if err := v.engine.Fit(); err != nil {
			v.fail("node scale", err)
		}
	})
	return nil
}

// Resize forwards new surface dimensions to the engine, deferred and
// coalesced. Zero-area requests are dropped by the engine.
func (v *View) Resize(width, height int) error {
	v.mu.Lock()
	if err := v.guard(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()

	v.queue.schedule("resize", func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.guard() != nil {
			return
		}
		if _, err := v.engine.Resize(width, height); err != nil {
			v.fail("resize", err)
		}
	})
	return nil
}

// Tap resolves a tap at surface coordinates into a selection change:
// topmost node wins, then edges, and empty space clears. The updated
// selection is returned.
func (v *View) Tap(x, y float64) (Selection, error) {
	v.queue.flush()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.guard(); err != nil {
		return Selection{}, err
	}
	hit, err := v.engine.ElementAt(x, y)
	if err != nil {
		return Selection{}, err
	}
	switch hit.Kind {
	case render.HitNode:
		if el, ok := v.nodeByID[hit.NodeID]; ok {
			v.sel = Selection{Kind: SelectionNode, Node: &el}
		}
	case render.HitEdge:
		if el, ok := v.edgeByKey[hit.EdgeKey]; ok {
			v.sel = Selection{Kind: SelectionEdge, Edge: &el}
		}
	default:
		v.sel = Selection{Kind: SelectionNone}
	}
	return v.sel, nil
}

// SelectNode selects a node by id without a pointer event.
func (v *View) SelectNode(id int) (Selection, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.guard(); err != nil {
		return Selection{}, err
	}
	el, ok := v.nodeByID[id]
	if !ok {
		return Selection{}, fmt.Errorf("node %d: %w", id, ErrNotInView)
	}
	v.sel = Selection{Kind: SelectionNode, Node: &el}
	return v.sel, nil
}

// SelectEdge selects an edge by key without a pointer event.
func (v *View) SelectEdge(key string) (Selection, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.guard(); err != nil {
		return Selection{}, err
	}
	el, ok := v.edgeByKey[key]
	if !ok {
		return Selection{}, fmt.Errorf("edge %s: %w", key, ErrNotInView)
	}
	v.sel = Selection{Kind: SelectionEdge, Edge: &el}
	return v.sel, nil
}

// ClearSelection drops any selection.
func (v *View) ClearSelection() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.guard(); err != nil {
		return err
	}
	v.sel = Selection{Kind: SelectionNone}
	return nil
}

// Selection returns the current selection.
func (v *View) Selection() Selection {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sel
}

// State returns the current view state.
func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Stats returns figures derived from the mounted snapshot.
func (v *View) Stats() stats.DerivedStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.derived
}

// Warnings returns accumulated non-fatal findings, oldest first.
func (v *View) Warnings() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.warnings))
	copy(out, v.warnings)
	return out
}

// LastError reports the most recent deferred-update failure, or "".
func (v *View) LastError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// BrainID returns the id of the mounted snapshot.
func (v *View) BrainID() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snapshot == nil {
		return 0
	}
	return v.snapshot.ID
}

// Flush applies all pending deferred updates immediately. Tests and export
// paths use it to observe settled state.
func (v *View) Flush() {
	v.queue.flush()
}

// Model assembles the full drawable state after settling pending updates.
func (v *View) Model() (Model, error) {
	v.queue.flush()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.guard(); err != nil {
		return Model{}, err
	}
	scene, err := v.engine.Dump()
	if err != nil {
		return Model{}, err
	}
	m := Model{
		Brain:     v.snapshot.ID,
		State:     v.state,
		Selection: v.sel,
		Stats:     v.derived,
		Warnings:  append([]string{}, v.warnings...),
		Scene:     scene,
		Nodes:     append([]NodeElement{}, v.nodeEls...),
		Edges:     append([]EdgeElement{}, v.edgeEls...),
	}
	return m, nil
}

// ExportFilename names exports after the brain and the layout that shaped
// the picture.
func ExportFilename(brainID int, layoutName, ext string) string {
	return fmt.Sprintf("brain-%d-%s.%s", brainID, layoutName, ext)
}

// Filename returns the export filename for the mounted brain and active
// layout.
func (v *View) Filename(ext string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := 0
	if v.snapshot != nil {
		id = v.snapshot.ID
	}
	return ExportFilename(id, v.state.Layout, ext)
}

// ExportPNG rasterizes the full current graph, fitted independently of the
// interactive camera.
func (v *View) ExportPNG(w io.Writer) error {
	v.queue.flush()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.guard(); err != nil {
		return err
	}
	return v.engine.RenderPNG(w)
}

// ExportSVG writes a vector rendering of the full current graph.
func (v *View) ExportSVG(w io.Writer) error {
	v.queue.flush()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.guard(); err != nil {
		return err
	}
	return v.engine.RenderSVG(w)
}

// ExportJSON writes the drawable model as indented JSON.
func (v *View) ExportJSON(w io.Writer) error {
	m, err := v.Model()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Close destroys the owned engine exactly once and drops pending updates.
// Closing an already-closed view is a no-op.
func (v *View) Close() error {
	v.queue.close()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	if v.engine == nil {
		return nil
	}
	err := v.engine.Destroy()
	v.engine = nil
	return err
}

func (v *View) guard() error {
	if v.closed || v.engine == nil {
		return ErrViewClosed
	}
	return nil
}

func (v *View) scheduleResync() {
	v.queue.schedule("edges", func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.guard() != nil {
			return
		}
		if err := v.resyncEdgesLocked(); err != nil {
			v.fail("edge resync", err)
		}
	})
}

func (v *View) setElements(nodes []NodeElement, edges []EdgeElement) {
	v.nodeEls = nodes
	v.nodeByID = make(map[int]NodeElement, len(nodes))
	for _, el := range nodes {
		v.nodeByID[el.ID] = el
	}
	v.edgeEls = edges
	v.edgeByKey = make(map[string]EdgeElement, len(edges))
	for _, el := range edges {
		v.edgeByKey[el.Key] = el
	}
}

func (v *View) note(msg string) {
	v.warnings = append(v.warnings, msg)
	log.Printf("graphview: %s", msg)
}

func (v *View) fail(op string, err error) {
	v.lastErr = fmt.Sprintf("%s: %v", op, err)
	log.Printf("graphview: %s failed: %v", op, err)
}

// styleEdge is the engine restyle callback: looks up the semantic element
// behind an edge and recomputes its presentation.
func (v *View) styleEdge(item render.EdgeItem) render.EdgeItem {
	el, ok := v.edgeByKey[item.Key]
	if !ok {
		return item
	}
	s := EdgeStyleFor(el.Weight, el.Enabled)
	item.Label = el.Label
	item.Width = s.Width
	item.Color = s.Color
	item.Dashed = s.Dashed
	item.ArrowScale = s.ArrowScale
	return item
}

func (v *View) styleNode(item render.NodeItem) render.NodeItem {
	el, ok := v.nodeByID[item.ID]
	if !ok {
		return item
	}
	s := NodeStyleFor(el.Type, v.state.NodeScale)
	item.Size = s.Size
	item.Fill = s.Fill
	item.Border = s.Border
	return item
}

func enabledCount(snap *model.BrainSnapshot) int {
	n := 0
	for _, c := range snap.Connections {
		if c.Enabled {
			n++
		}
	}
	return n
}

func edgeKeys(items []render.EdgeItem) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	return keys
}

func nodeItems(elements []NodeElement, scale float64) []render.NodeItem {
	items := make([]render.NodeItem, 0, len(elements))
	for _, el := range elements {
		s := NodeStyleFor(el.Type, scale)
		items = append(items, render.NodeItem{
			ID:     el.ID,
			Label:  el.Label,
			Size:   s.Size,
			Fill:   s.Fill,
			Border: s.Border,
		})
	}
	return items
}

func edgeItems(elements []EdgeElement) []render.EdgeItem {
	items := make([]render.EdgeItem, 0, len(elements))
	for _, el := range elements {
		items = append(items, edgeItem(el))
	}
	return items
}

func edgeItem(el EdgeElement) render.EdgeItem {
	s := EdgeStyleFor(el.Weight, el.Enabled)
	return render.EdgeItem{
		Key:        el.Key,
		From:       el.From,
		To:         el.To,
		Label:      el.Label,
		Width:      s.Width,
		Color:      s.Color,
		Dashed:     s.Dashed,
		ArrowScale: s.ArrowScale,
	}
}
