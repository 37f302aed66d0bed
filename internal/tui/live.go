package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang/geo/r3"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/multibody"
)

const (
	width       = 70
	height      = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer redraws a system on a plain terminal as it is solved. It is
// attached with System.AddObserver and throttles itself to frameRate.
type LiveRenderer struct {
	sys       *multibody.System
	out       io.Writer
	frameRate int
	lastFrame time.Time
	canvas    *canvas
	view      viewport
	trail     []r3.Vector
}

func NewLiveRenderer(sys *multibody.System, out io.Writer, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &LiveRenderer{
		sys:       sys,
		out:       out,
		frameRate: frameRate,
		canvas:    newCanvas(width, height),
		view:      fit(sys, width, height),
		trail:     make([]r3.Vector, 0, trailLen),
	}
}

func (r *LiveRenderer) OnStep(x dynamo.State, t float64) {
	elapsed := time.Since(r.lastFrame)
	if elapsed < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	bodies := r.sys.Bodies()
	r.trail = append(r.trail, bodies[len(bodies)-1].Pos)
	if len(r.trail) > trailLen {
		r.trail = r.trail[1:]
	}

	r.canvas.clear()
	draw(r.canvas, r.view, r.sys, r.trail)
	r.render(x, t)
}

func (r *LiveRenderer) render(x dynamo.State, t float64) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  t=%.3fs\n", r.sys.Name, t))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	for _, row := range r.canvas.lines() {
		b.WriteString("  ")
		b.WriteString(row)
		b.WriteString("\n")
	}
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	b.WriteString(fmt.Sprintf("  E=%.6f  gap=%.2e\n", r.sys.Energy(x), r.sys.ConstraintGap()))
	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
