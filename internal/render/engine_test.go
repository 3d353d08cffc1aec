package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"brainzzz/internal/layout"
)

func sceneNodes() []NodeItem {
	return []NodeItem{
		{ID: 1, Label: "1\ninp", Size: 30, Fill: "#3b82f6", Border: "#1d4ed8"},
		{ID: 2, Label: "2\nout", Size: 30, Fill: "#22c55e", Border: "#15803d"},
	}
}

func sceneEdge() EdgeItem {
	return EdgeItem{
		Key: "e1:1-2", From: 1, To: 2,
		Width: 5.1, Color: "#15803d", ArrowScale: 1,
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(Surface{Width: 200, Height: 200})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.SetNodes(sceneNodes()); err != nil {
		t.Fatalf("set nodes: %v", err)
	}
	if err := e.AddEdges([]EdgeItem{sceneEdge()}); err != nil {
		t.Fatalf("add edges: %v", err)
	}
	return e
}

func TestNewEngineRejectsZeroSurface(t *testing.T) {
	for _, s := range []Surface{{}, {Width: 100}, {Height: 100}, {Width: -1, Height: 50}} {
		if _, err := NewEngine(s); !errors.Is(err, ErrNoSurface) {
			t.Fatalf("surface %+v: err = %v", s, err)
		}
	}
}

func TestSceneCounts(t *testing.T) {
	e := newTestEngine(t)
	if e.NodeCount() != 2 || e.EdgeCount() != 1 {
		t.Fatalf("counts: %d nodes %d edges", e.NodeCount(), e.EdgeCount())
	}
	if !e.HasEdge("e1:1-2") {
		t.Fatalf("edge missing")
	}
	nodes := e.Nodes()
	if len(nodes) != 2 || nodes[0].ID != 1 || nodes[1].ID != 2 {
		t.Fatalf("node order: %+v", nodes)
	}
}

func TestAddEdgesValidatesBatch(t *testing.T) {
	e := newTestEngine(t)
	batch := []EdgeItem{
		{Key: "e2:2-1", From: 2, To: 1, Width: 1, Color: "#999999"},
		{Key: "e3:1-9", From: 1, To: 9, Width: 1, Color: "#999999"},
	}
	if err := e.AddEdges(batch); !errors.Is(err, ErrUnknownEndpoint) {
		t.Fatalf("err = %v, want unknown endpoint", err)
	}
	if e.EdgeCount() != 1 {
		t.Fatalf("rejected batch mutated scene: %d edges", e.EdgeCount())
	}
	if err := e.AddEdges([]EdgeItem{sceneEdge()}); !errors.Is(err, ErrDuplicateElement) {
		t.Fatalf("duplicate err = %v", err)
	}
}

func TestRemoveEdges(t *testing.T) {
	e := newTestEngine(t)
	if err := e.RemoveEdges([]string{"e1:1-2", "ghost"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if e.EdgeCount() != 0 || len(e.Edges()) != 0 {
		t.Fatalf("edges remain: %+v", e.Edges())
	}
}

func TestRunLayoutPlacesAndResetsStyle(t *testing.T) {
	e := newTestEngine(t)
	if err := e.RunLayout("grid"); err != nil {
		t.Fatalf("run layout: %v", err)
	}
	if e.LayoutName() != "grid" {
		t.Fatalf("layout name = %s", e.LayoutName())
	}
	p1, ok := e.Position(1)
	if !ok {
		t.Fatalf("node 1 unplaced")
	}
	p2, _ := e.Position(2)
	if p1 == p2 {
		t.Fatalf("grid stacked nodes: %+v", p1)
	}
	for _, p := range []layout.Position{p1, p2} {
		if p.X < 0 || p.X > 200 || p.Y < 0 || p.Y > 200 {
			t.Fatalf("position outside surface: %+v", p)
		}
	}

	// relayout resets presentation; owners restyle afterwards
	edge := e.Edges()[0]
	if edge.Width != defaultEdgeWidth || edge.Color != defaultEdgeColor || edge.ArrowScale != 1 {
		t.Fatalf("edge style not reset: %+v", edge)
	}
	err := e.RestyleEdges(func(item EdgeItem) EdgeItem {
		item.Width = 5.1
		item.Color = "#15803d"
		item.Key = "hijacked"
		return item
	})
	if err != nil {
		t.Fatalf("restyle: %v", err)
	}
	edge = e.Edges()[0]
	if edge.Width != 5.1 || edge.Color != "#15803d" {
		t.Fatalf("restyle not applied: %+v", edge)
	}
	if edge.Key != "e1:1-2" {
		t.Fatalf("restyle changed identity: %s", edge.Key)
	}

	if err := e.RunLayout("spiral"); !errors.Is(err, layout.ErrLayoutNotFound) {
		t.Fatalf("unknown layout err = %v", err)
	}
}

func TestFitCentersContent(t *testing.T) {
	e, err := NewEngine(Surface{Width: 400, Height: 300})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.SetNodes([]NodeItem{{ID: 1, Size: 30, Fill: "#9ca3af", Border: "#6b7280"}}); err != nil {
		t.Fatalf("set nodes: %v", err)
	}
	if err := e.Fit(); err != nil {
		t.Fatalf("fit: %v", err)
	}
	cam := e.Camera()
	p, _ := e.Position(1)
	sx := p.X*cam.Zoom + cam.OffsetX
	sy := p.Y*cam.Zoom + cam.OffsetY
	if math.Abs(sx-200) > 1e-6 || math.Abs(sy-150) > 1e-6 {
		t.Fatalf("content not centered: (%v, %v)", sx, sy)
	}
	if cam.Zoom > maxFitZoom || cam.Zoom < minZoom {
		t.Fatalf("zoom out of bounds: %v", cam.Zoom)
	}
}

func TestResizeSkipsZeroArea(t *testing.T) {
	e := newTestEngine(t)
	before := e.Surface()
	for _, dims := range [][2]int{{0, 100}, {100, 0}, {-5, 60}} {
		applied, err := e.Resize(dims[0], dims[1])
		if err != nil {
			t.Fatalf("resize %v: %v", dims, err)
		}
		if applied {
			t.Fatalf("zero-area resize %v applied", dims)
		}
	}
	if e.Surface() != before {
		t.Fatalf("surface changed by skipped resize")
	}
	applied, err := e.Resize(800, 600)
	if err != nil || !applied {
		t.Fatalf("resize: applied=%v err=%v", applied, err)
	}
	if e.Surface() != (Surface{Width: 800, Height: 600}) {
		t.Fatalf("surface = %+v", e.Surface())
	}
}

func TestElementAt(t *testing.T) {
	e := newTestEngine(t)
	if err := e.RunLayout("grid"); err != nil {
		t.Fatalf("run layout: %v", err)
	}
	// identity camera: world coordinates are surface coordinates
	p1, _ := e.Position(1)
	p2, _ := e.Position(2)

	hit, err := e.ElementAt(p1.X, p1.Y)
	if err != nil || hit.Kind != HitNode || hit.NodeID != 1 {
		t.Fatalf("node hit = %+v err=%v", hit, err)
	}
	midX, midY := (p1.X+p2.X)/2, (p1.Y+p2.Y)/2
	hit, err = e.ElementAt(midX, midY)
	if err != nil || hit.Kind != HitEdge || hit.EdgeKey != "e1:1-2" {
		t.Fatalf("edge hit = %+v err=%v", hit, err)
	}
	hit, err = e.ElementAt(1, 1)
	if err != nil || hit.Kind != HitNone {
		t.Fatalf("corner hit = %+v err=%v", hit, err)
	}
}

func TestDestroyGuardsEveryOperation(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := e.Destroy(); !errors.Is(err, ErrEngineDestroyed) {
		t.Fatalf("second destroy err = %v", err)
	}
	if err := e.SetNodes(nil); !errors.Is(err, ErrEngineDestroyed) {
		t.Fatalf("set nodes after destroy: %v", err)
	}
	if err := e.AddEdges(nil); !errors.Is(err, ErrEngineDestroyed) {
		t.Fatalf("add edges after destroy: %v", err)
	}
	if err := e.RunLayout("grid"); !errors.Is(err, ErrEngineDestroyed) {
		t.Fatalf("layout after destroy: %v", err)
	}
	if _, err := e.ElementAt(0, 0); !errors.Is(err, ErrEngineDestroyed) {
		t.Fatalf("hit test after destroy: %v", err)
	}
	if _, err := e.Dump(); !errors.Is(err, ErrEngineDestroyed) {
		t.Fatalf("dump after destroy: %v", err)
	}
	if err := e.RenderPNG(&bytes.Buffer{}); !errors.Is(err, ErrEngineDestroyed) {
		t.Fatalf("png after destroy: %v", err)
	}
}

func TestDumpEmptySceneStaysValid(t *testing.T) {
	e, err := NewEngine(Surface{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.SetNodes(sceneNodes()); err != nil {
		t.Fatalf("set nodes: %v", err)
	}
	st, err := e.Dump()
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"edges":[]`) {
		t.Fatalf("empty edge set not an array: %s", raw)
	}
	if len(st.Nodes) != 2 {
		t.Fatalf("dump lost nodes: %+v", st.Nodes)
	}
}

func TestRenderPNGAndSVG(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddEdges([]EdgeItem{{
		Key: "e2:2-1", From: 2, To: 1, Label: "DISABLED",
		Width: 1, Color: "#b91c1c", Dashed: true, ArrowScale: 0.6,
	}}); err != nil {
		t.Fatalf("add edges: %v", err)
	}
	if err := e.RunLayout("circle"); err != nil {
		t.Fatalf("run layout: %v", err)
	}
	err := e.RestyleEdges(func(item EdgeItem) EdgeItem {
		if item.Key == "e2:2-1" {
			item.Width = 1
			item.Color = "#b91c1c"
			item.Dashed = true
			item.ArrowScale = 0.6
		} else {
			item.Width = 5.1
			item.Color = "#15803d"
			item.ArrowScale = 1
		}
		return item
	})
	if err != nil {
		t.Fatalf("restyle: %v", err)
	}

	var png bytes.Buffer
	if err := e.RenderPNG(&png); err != nil {
		t.Fatalf("render png: %v", err)
	}
	if !bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("png magic missing (%d bytes)", png.Len())
	}

	var svg bytes.Buffer
	if err := e.RenderSVG(&svg); err != nil {
		t.Fatalf("render svg: %v", err)
	}
	out := svg.String()
	for _, want := range []string{"<svg", "stroke-dasharray", "DISABLED", "#3b82f6"} {
		if !strings.Contains(out, want) {
			t.Fatalf("svg missing %q", want)
		}
	}
}
