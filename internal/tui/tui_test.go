package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/multibody"
)

func buildPreset(t *testing.T, name string) *multibody.System {
	t.Helper()
	sys, err := config.Build(config.GetPreset(name), nil)
	if err != nil {
		t.Fatalf("Build(%s): %v", name, err)
	}
	return sys
}

func TestCanvasLine(t *testing.T) {
	c := newCanvas(6, 4)
	c.line(0, 0, 4, 2, '#')
	if c.cells[0][0] != '#' || c.cells[2][4] != '#' {
		t.Errorf("endpoints not drawn:\n%s", c)
	}
	c.set(-1, 10, '#')
	if got := strings.Count(c.String(), "#"); got != 5 {
		t.Errorf("got %d cells set, want 5", got)
	}
}

func TestFitKeepsBodiesInView(t *testing.T) {
	for _, name := range config.ListPresets() {
		sys := buildPreset(t, name)
		v := fit(sys, 60, 20)
		for _, b := range sys.Bodies() {
			x, y := v.project(b.Pos)
			if x < 0 || x >= 60 || y < 0 || y >= 20 {
				t.Errorf("%s: body %s projects to (%d, %d)", name, b.Name, x, y)
			}
		}
	}
}

func TestStepsPerFrame(t *testing.T) {
	tests := []struct {
		dt, speed float64
		want      int
	}{
		{1e-3, 1, 16},
		{1e-3, 2, 32},
		{1e-6, 1, maxStepsFrame},
		{0.1, 1, 1},
	}
	for _, tt := range tests {
		if got := stepsPerFrame(tt.dt, tt.speed); got != tt.want {
			t.Errorf("stepsPerFrame(%g, %g) = %d, want %d", tt.dt, tt.speed, got, tt.want)
		}
	}
}

func TestModelRunsAndPauses(t *testing.T) {
	app := NewApp(nil)
	next, _ := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m := next.(model)
	if m.state != stateSim || m.sys == nil {
		t.Fatalf("enter should start %s, err %v", m.selected, m.err)
	}
	if m.sys.Logging {
		t.Error("live view should not keep a snapshot log")
	}

	next, cmd := m.Update(tickMsg{})
	m = next.(model)
	if cmd == nil {
		t.Error("a running view should schedule the next tick")
	}
	want := stepsPerFrame(m.sys.Dt, 1)
	if m.sys.Steps() != want {
		t.Errorf("steps after one tick = %d, want %d", m.sys.Steps(), want)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	m = next.(model)
	next, _ = m.Update(tickMsg{})
	m = next.(model)
	if m.sys.Steps() != want {
		t.Errorf("paused view advanced to %d steps", m.sys.Steps())
	}

	view := m.View()
	if !strings.Contains(view, m.selected) || !strings.Contains(view, "paused") {
		t.Errorf("view missing status:\n%s", view)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(model)
	if m.state != stateMenu || m.sys != nil {
		t.Error("q should return to the menu")
	}
}

func TestLiveRenderer(t *testing.T) {
	sys := buildPreset(t, "pendulum")
	var out bytes.Buffer
	r := NewLiveRenderer(sys, &out, 1000)
	sys.AddObserver(r)
	r.Start()
	if _, err := sys.Solve(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	r.Stop()

	frame := out.String()
	for _, want := range []string{"pendulum", "E=", "gap=", "⬤", "▼", hideCursor, showCursor} {
		if !strings.Contains(frame, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
