package tui

import (
	"math"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/joint"
	"github.com/san-kum/rigidsim/internal/multibody"
)

const trailLen = 80

var jointGlyphs = map[joint.Kind]rune{
	joint.Sphere: '◉',
	joint.Hinge:  '⊙',
	joint.Slide:  '◆',
	joint.Fix:    '■',
}

type canvas struct {
	w, h  int
	cells [][]rune
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([][]rune, h)}
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
	c.clear()
	return c
}

func (c *canvas) clear() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = ' '
		}
	}
}

func (c *canvas) set(x, y int, r rune) {
	if x >= 0 && x < c.w && y >= 0 && y < c.h {
		c.cells[y][x] = r
	}
}

func (c *canvas) line(x1, y1, x2, y2 int, r rune) {
	dx := intAbs(x2 - x1)
	dy := intAbs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		c.set(x1, y1, r)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (c *canvas) lines() []string {
	out := make([]string, len(c.cells))
	for i, row := range c.cells {
		out[i] = string(row)
	}
	return out
}

func (c *canvas) String() string {
	return strings.Join(c.lines(), "\n")
}

// viewport maps the x-y plane onto a canvas, dropping z. A character cell
// is about twice as tall as it is wide.
type viewport struct {
	center r3.Vector
	scale  float64
	w, h   int
}

// fit frames the bodies' current positions, widened by the reach of the
// joints so that a swinging chain stays in view.
func fit(sys *multibody.System, w, h int) viewport {
	lo := r3.Vector{X: math.Inf(1), Y: math.Inf(1)}
	hi := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, b := range sys.Bodies() {
		lo.X, lo.Y = math.Min(lo.X, b.Pos.X), math.Min(lo.Y, b.Pos.Y)
		hi.X, hi.Y = math.Max(hi.X, b.Pos.X), math.Max(hi.Y, b.Pos.Y)
	}
	reach := 0.0
	for _, j := range sys.Joints() {
		if j.Kind != joint.Ground {
			reach += j.Point1.Norm() + j.Point2.Norm()
		}
	}
	reach = math.Max(reach, 1)

	span := math.Max(hi.X-lo.X, hi.Y-lo.Y) + 2*reach
	span *= 1.1
	return viewport{
		center: lo.Add(hi).Mul(0.5),
		scale:  math.Min(float64(w-1)/span, 2*float64(h-1)/span),
		w:      w,
		h:      h,
	}
}

func (v viewport) project(p r3.Vector) (int, int) {
	col := v.w/2 + int(math.Round((p.X-v.center.X)*v.scale))
	row := v.h/2 - int(math.Round((p.Y-v.center.Y)*v.scale/2))
	return col, row
}

// draw renders links from each body to its joint anchors, the anchors, a
// trail and the bodies with a tick along their local x axis.
func draw(c *canvas, v viewport, sys *multibody.System, trail []r3.Vector) {
	grounded := make(map[*body.Body]bool)
	for _, j := range sys.Joints() {
		b0, b1 := j.Bodies[0], j.Bodies[1]
		if j.Kind == joint.Ground {
			grounded[b0] = true
			continue
		}
		a0x, a0y := v.project(b0.WorldPoint(j.Point1))
		a1x, a1y := v.project(b1.WorldPoint(j.Point2))
		x0, y0 := v.project(b0.Pos)
		x1, y1 := v.project(b1.Pos)
		c.line(x0, y0, a0x, a0y, '░')
		c.line(x1, y1, a1x, a1y, '░')
		c.set(a0x, a0y, jointGlyphs[j.Kind])
	}

	for _, p := range trail {
		x, y := v.project(p)
		c.set(x, y, '·')
	}

	for _, b := range sys.Bodies() {
		x, y := v.project(b.Pos)
		tx, ty := v.project(b.WorldPoint(r3.Vector{X: 0.3}))
		c.set(tx, ty, '∘')
		if grounded[b] {
			c.set(x, y, '▼')
		} else {
			c.set(x, y, '⬤')
		}
	}
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
