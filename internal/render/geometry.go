package render

import "math"

// edgeGeo is the screen-space geometry of one drawable edge, shared by the
// raster and SVG back-ends so both draw the identical scene.
type edgeGeo struct {
	item   EdgeItem
	x1, y1 float64 // start, trimmed to the source disc
	x2, y2 float64 // end, trimmed short of the target disc
	cx, cy float64 // quadratic control point
	lx, ly float64 // label anchor

	loopX, loopY, loopR float64
	isLoop              bool

	arrow    [6]float64 // ax, ay, p1x, p1y, p2x, p2y
	hasArrow bool
	width    float64 // screen stroke width
}

type nodeGeo struct {
	item NodeItem
	x, y float64
	r    float64
}

// exportTransform fits the full scene regardless of the interactive camera,
// so exports always show the whole graph.
func (e *Engine) exportTransform() Camera { return e.fitTransform() }

func (e *Engine) nodeGeometries(cam Camera) []nodeGeo {
	out := make([]nodeGeo, 0, len(e.nodeOrder))
	for _, id := range e.nodeOrder {
		item := e.nodes[id]
		p := e.positions[id]
		out = append(out, nodeGeo{
			item: item,
			x:    p.X*cam.Zoom + cam.OffsetX,
			y:    p.Y*cam.Zoom + cam.OffsetY,
			r:    math.Max(3, item.Size/2*cam.Zoom),
		})
	}
	return out
}

func (e *Engine) edgeGeometries(cam Camera) []edgeGeo {
	// parallel edges sharing a chord fan out with distinct bows
	groups := make(map[[2]int][]string)
	for _, key := range e.edgeOrder {
		item := e.edges[key]
		pair := chord(item.From, item.To)
		groups[pair] = append(groups[pair], key)
	}
	offsets := make(map[string]float64, len(e.edgeOrder))
	for _, keys := range groups {
		for i, key := range keys {
			offsets[key] = (float64(i) - float64(len(keys)-1)/2) * 26
		}
	}

	out := make([]edgeGeo, 0, len(e.edgeOrder))
	for _, key := range e.edgeOrder {
		item := e.edges[key]
		g := edgeGeo{item: item, width: math.Max(0.75, item.Width*cam.Zoom)}

		from := e.positions[item.From]
		to := e.positions[item.To]
		fx := from.X*cam.Zoom + cam.OffsetX
		fy := from.Y*cam.Zoom + cam.OffsetY
		tx := to.X*cam.Zoom + cam.OffsetX
		ty := to.Y*cam.Zoom + cam.OffsetY
		rFrom := e.nodes[item.From].Size / 2 * cam.Zoom
		rTo := e.nodes[item.To].Size / 2 * cam.Zoom

		if item.From == item.To {
			g.isLoop = true
			g.loopR = math.Max(6, rFrom*0.6)
			g.loopX = fx + rFrom*0.9
			g.loopY = fy - rFrom*0.9
			g.lx, g.ly = g.loopX, g.loopY-g.loopR-8
			out = append(out, g)
			continue
		}

		dx, dy := tx-fx, ty-fy
		dist := math.Hypot(dx, dy)
		if dist < 1e-6 {
			dist = 1e-6
		}
		ux, uy := dx/dist, dy/dist
		px, py := -uy, ux

		g.x1 = fx + ux*(rFrom+2)
		g.y1 = fy + uy*(rFrom+2)
		g.x2 = tx - ux*(rTo+4)
		g.y2 = ty - uy*(rTo+4)

		bow := dist*0.12 + offsets[key]
		mx, my := (g.x1+g.x2)/2, (g.y1+g.y2)/2
		g.cx = mx + px*bow
		g.cy = my + py*bow

		// label anchored at the curve midpoint
		g.lx = 0.25*g.x1 + 0.5*g.cx + 0.25*g.x2
		g.ly = 0.25*g.y1 + 0.5*g.cy + 0.25*g.y2

		// arrowhead along the control-to-end direction
		adx, ady := g.x2-g.cx, g.y2-g.cy
		if ad := math.Hypot(adx, ady); ad > 1e-6 {
			adx /= ad
			ady /= ad
			scale := item.ArrowScale
			if scale <= 0 {
				scale = 1
			}
			arrowLen := 12.0 * scale * zoomClamp(cam.Zoom)
			arrowWidth := 6.0 * scale * zoomClamp(cam.Zoom)
			apx, apy := -ady, adx
			g.arrow = [6]float64{
				g.x2, g.y2,
				g.x2 - adx*arrowLen + apx*arrowWidth, g.y2 - ady*arrowLen + apy*arrowWidth,
				g.x2 - adx*arrowLen - apx*arrowWidth, g.y2 - ady*arrowLen - apy*arrowWidth,
			}
			g.hasArrow = true
		}
		out = append(out, g)
	}
	return out
}

func chord(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Arrowheads track zoom loosely so they stay legible at extreme fits.
func zoomClamp(zoom float64) float64 {
	return math.Min(math.Max(zoom, 0.5), 1.5)
}
