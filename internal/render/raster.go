package render

import (
	"io"
	"strings"

	"git.sr.ht/~sbinet/gg"
)

const (
	canvasBG   = "#ffffff"
	labelColor = "#374151"
	nodeText   = "#ffffff"
	lineHeight = 13.0
)

// RenderPNG rasterizes the full current scene. The whole graph is fitted to
// the surface; the interactive camera is not consulted.
func (e *Engine) RenderPNG(w io.Writer) error {
	if err := e.guard(); err != nil {
		return err
	}
	cam := e.exportTransform()
	dc := gg.NewContext(e.surface.Width, e.surface.Height)
	dc.SetHexColor(canvasBG)
	dc.Clear()

	for _, g := range e.edgeGeometries(cam) {
		drawEdgePNG(dc, g)
	}
	for _, n := range e.nodeGeometries(cam) {
		drawNodePNG(dc, n)
	}
	return dc.EncodePNG(w)
}

func drawEdgePNG(dc *gg.Context, g edgeGeo) {
	dc.SetHexColor(g.item.Color)
	dc.SetLineWidth(g.width)
	if g.item.Dashed {
		dc.SetDash(6, 4)
	}
	if g.isLoop {
		dc.DrawCircle(g.loopX, g.loopY, g.loopR)
		dc.Stroke()
		dc.SetDash()
		drawEdgeLabelPNG(dc, g)
		return
	}
	dc.MoveTo(g.x1, g.y1)
	dc.QuadraticTo(g.cx, g.cy, g.x2, g.y2)
	dc.Stroke()
	dc.SetDash()

	if g.hasArrow {
		dc.MoveTo(g.arrow[0], g.arrow[1])
		dc.LineTo(g.arrow[2], g.arrow[3])
		dc.LineTo(g.arrow[4], g.arrow[5])
		dc.ClosePath()
		dc.Fill()
	}
	drawEdgeLabelPNG(dc, g)
}

func drawEdgeLabelPNG(dc *gg.Context, g edgeGeo) {
	if g.item.Label == "" {
		return
	}
	dc.SetHexColor(labelColor)
	drawLinesPNG(dc, g.item.Label, g.lx, g.ly)
}

func drawNodePNG(dc *gg.Context, n nodeGeo) {
	dc.SetHexColor(n.item.Fill)
	dc.DrawCircle(n.x, n.y, n.r)
	dc.Fill()
	dc.SetHexColor(n.item.Border)
	dc.SetLineWidth(2)
	dc.DrawCircle(n.x, n.y, n.r)
	dc.Stroke()
	if n.item.Label != "" {
		dc.SetHexColor(nodeText)
		drawLinesPNG(dc, n.item.Label, n.x, n.y)
	}
}

func drawLinesPNG(dc *gg.Context, label string, x, y float64) {
	lines := strings.Split(label, "\n")
	start := y - lineHeight*float64(len(lines)-1)/2
	for i, line := range lines {
		dc.DrawStringAnchored(line, x, start+lineHeight*float64(i), 0.5, 0.5)
	}
}
