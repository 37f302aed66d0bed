// Package export renders saved trajectories as image files.
package export

import (
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// coordsPerBody matches the seven generalized coordinates of a body.
const coordsPerBody = 7

var axisNames = [3]string{"x", "y", "z"}

// Formats lists the image formats accepted by Write.
var Formats = []string{"svg", "png", "pdf", "eps", "jpg", "tif"}

// Plane picks two of x, y, z by name, e.g. "xy" or "zx".
func Plane(name string) (int, int, error) {
	if len(name) != 2 {
		return 0, 0, fmt.Errorf("%w: plane %q", dynamo.ErrValidation, name)
	}
	a := strings.IndexByte("xyz", name[0])
	b := strings.IndexByte("xyz", name[1])
	if a < 0 || b < 0 || a == b {
		return 0, 0, fmt.Errorf("%w: plane %q", dynamo.ErrValidation, name)
	}
	return a, b, nil
}

func checkWidth(rows []dynamo.State, bodies []string) error {
	if len(rows) == 0 || len(bodies) == 0 {
		return fmt.Errorf("%w: empty trajectory", dynamo.ErrValidation)
	}
	want := 1 + 3*coordsPerBody*len(bodies)
	for i, row := range rows {
		if len(row) != want {
			return fmt.Errorf("%w: row %d has %d columns, want %d", dynamo.ErrInvalidState, i, len(row), want)
		}
	}
	return nil
}

// Paths plots the path of every body's origin projected on plane, with a
// marker at its final position.
func Paths(rows []dynamo.State, bodies []string, plane, title string) (*plot.Plot, error) {
	if err := checkWidth(rows, bodies); err != nil {
		return nil, err
	}
	a, b, err := Plane(plane)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = axisNames[a]
	p.Y.Label.Text = axisNames[b]
	p.Add(plotter.NewGrid())

	for i, name := range bodies {
		pts := make(plotter.XYs, len(rows))
		for k, row := range rows {
			o := 1 + coordsPerBody*i
			pts[k].X = row[o+a]
			pts[k].Y = row[o+b]
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)

		end, err := plotter.NewScatter(pts[len(pts)-1:])
		if err != nil {
			return nil, err
		}
		end.GlyphStyle.Color = plotutil.Color(i)
		end.GlyphStyle.Shape = draw.CircleGlyph{}
		end.GlyphStyle.Radius = vg.Points(3)

		p.Add(line, end)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// Series plots one trajectory column against time.
func Series(rows []dynamo.State, col int, name, title string) (*plot.Plot, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty trajectory", dynamo.ErrValidation)
	}
	pts := make(plotter.XYs, len(rows))
	for i, row := range rows {
		if col <= 0 || col >= len(row) {
			return nil, fmt.Errorf("%w: column %d out of range in row %d", dynamo.ErrValidation, col, i)
		}
		pts[i].X = row[0]
		pts[i].Y = row[col]
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t"
	p.Y.Label.Text = name
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(1.5)
	p.Add(line)
	return p, nil
}

// Write encodes p in format ("svg", "png", ...) at the given size in inches.
func Write(p *plot.Plot, out io.Writer, format string, widthIn, heightIn float64) error {
	if !(widthIn > 0 && heightIn > 0) {
		return fmt.Errorf("%w: image size %gx%g", dynamo.ErrValidation, widthIn, heightIn)
	}
	wt, err := p.WriterTo(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch, strings.ToLower(format))
	if err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrValidation, err)
	}
	_, err = wt.WriteTo(out)
	return err
}

// FormatOf returns the image format implied by a file name's extension.
func FormatOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return "svg"
	}
	ext := strings.ToLower(path[i+1:])
	for _, f := range Formats {
		if f == ext {
			return ext
		}
	}
	switch ext {
	case "jpeg":
		return "jpg"
	case "tiff":
		return "tif"
	}
	return "svg"
}
