package render

import (
	"fmt"
	"io"
	"strings"

	svg "github.com/ajstarks/svgo"
)

// RenderSVG writes the full current scene as a standalone SVG document,
// mirroring the raster output geometry exactly.
func (e *Engine) RenderSVG(w io.Writer) error {
	if err := e.guard(); err != nil {
		return err
	}
	cam := e.exportTransform()
	canvas := svg.New(w)
	canvas.Start(e.surface.Width, e.surface.Height)
	canvas.Rect(0, 0, e.surface.Width, e.surface.Height, "fill:"+canvasBG)

	for _, g := range e.edgeGeometries(cam) {
		drawEdgeSVG(canvas, g)
	}
	for _, n := range e.nodeGeometries(cam) {
		drawNodeSVG(canvas, n)
	}
	canvas.End()
	return nil
}

func drawEdgeSVG(canvas *svg.SVG, g edgeGeo) {
	stroke := fmt.Sprintf("fill:none;stroke:%s;stroke-width:%.2f", g.item.Color, g.width)
	if g.item.Dashed {
		stroke += ";stroke-dasharray:6,4"
	}
	if g.isLoop {
		canvas.Circle(int(g.loopX), int(g.loopY), int(g.loopR), stroke)
		drawEdgeLabelSVG(canvas, g)
		return
	}
	path := fmt.Sprintf("M %.1f %.1f Q %.1f %.1f %.1f %.1f", g.x1, g.y1, g.cx, g.cy, g.x2, g.y2)
	canvas.Path(path, stroke)
	if g.hasArrow {
		canvas.Polygon(
			[]int{int(g.arrow[0]), int(g.arrow[2]), int(g.arrow[4])},
			[]int{int(g.arrow[1]), int(g.arrow[3]), int(g.arrow[5])},
			"fill:"+g.item.Color,
		)
	}
	drawEdgeLabelSVG(canvas, g)
}

func drawEdgeLabelSVG(canvas *svg.SVG, g edgeGeo) {
	if g.item.Label == "" {
		return
	}
	writeLinesSVG(canvas, g.item.Label, g.lx, g.ly, labelColor)
}

func drawNodeSVG(canvas *svg.SVG, n nodeGeo) {
	canvas.Circle(int(n.x), int(n.y), int(n.r),
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:2", n.item.Fill, n.item.Border))
	if n.item.Label != "" {
		writeLinesSVG(canvas, n.item.Label, n.x, n.y, nodeText)
	}
}

func writeLinesSVG(canvas *svg.SVG, label string, x, y float64, fill string) {
	lines := strings.Split(label, "\n")
	start := y - lineHeight*float64(len(lines)-1)/2
	style := fmt.Sprintf(
		"fill:%s;font-size:11px;font-family:system-ui,sans-serif;text-anchor:middle;dominant-baseline:middle",
		fill,
	)
	for i, line := range lines {
		canvas.Text(int(x), int(start+lineHeight*float64(i)), line, style)
	}
}
