package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// PhasePortrait2D holds two columns of a snapshot log plotted against each
// other, typically a coordinate and its rate.
type PhasePortrait2D struct {
	XCol, YCol int
	X, Y       []float64
}

func PhasePortrait(rows []dynamo.State, xCol, yCol int) (*PhasePortrait2D, error) {
	xs, err := Column(rows, xCol)
	if err != nil {
		return nil, err
	}
	ys, err := Column(rows, yCol)
	if err != nil {
		return nil, err
	}
	return &PhasePortrait2D{XCol: xCol, YCol: yCol, X: xs, Y: ys}, nil
}

// Crossings returns the interpolated times at which column col of the log
// crosses level going upward. Column 0 is time.
func Crossings(rows []dynamo.State, col int, level float64) ([]float64, error) {
	vals, err := Column(rows, col)
	if err != nil {
		return nil, err
	}
	times := make([]float64, 0)
	for i := 1; i < len(vals); i++ {
		prev, curr := vals[i-1], vals[i]
		if prev < level && curr >= level {
			frac := (level - prev) / (curr - prev)
			t0, t1 := rows[i-1][0], rows[i][0]
			times = append(times, t0+frac*(t1-t0))
		}
	}
	return times, nil
}

// ASCII renders the portrait on a width x height character grid, with axes
// drawn where zero is in range.
func (p *PhasePortrait2D) ASCII(width, height int) (string, error) {
	if len(p.X) == 0 {
		return "", fmt.Errorf("%w: empty phase portrait", dynamo.ErrValidation)
	}
	if width < 2 || height < 2 {
		return "", fmt.Errorf("%w: canvas %dx%d too small", dynamo.ErrValidation, width, height)
	}

	minX, maxX := padded(floats.Min(p.X), floats.Max(p.X))
	minY, maxY := padded(floats.Min(p.Y), floats.Max(p.Y))
	col := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/(maxY-minY)*float64(height-1)) }

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	for i := range p.X {
		canvas[row(p.Y[i])][col(p.X[i])] = '•'
	}
	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range canvas {
			if canvas[r][c] == ' ' {
				canvas[r][c] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := range canvas[r] {
			if canvas[r][c] == ' ' {
				canvas[r][c] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, line := range canvas {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String(), nil
}

// padded widens [lo, hi] by a tenth on each side.
func padded(lo, hi float64) (float64, float64) {
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return lo - 0.1*span, hi + 0.1*span
}
