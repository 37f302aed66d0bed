package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/geo/r3"
	"github.com/guptarohit/asciigraph"
	"go.uber.org/zap"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/multibody"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var presetInfo = map[string]string{
	"chain":    "three balls, ball joints",
	"pendulum": "ball joint to ground",
	"hinge":    "planar swing on a pin",
	"slider":   "prismatic incline",
	"weld":     "fixed pair in free fall",
	"spinner":  "torque-free spin",
}

const (
	frameInterval = 16 * time.Millisecond
	maxStepsFrame = 500
	historyLen    = 120
)

type state int

const (
	stateMenu state = iota
	stateSim
)

type model struct {
	state    state
	cursor   int
	presets  []string
	selected string

	running   bool
	paused    bool
	sys       *multibody.System
	view      viewport
	speed     float64
	trail     []r3.Vector
	history   []float64
	err       error
	lastFrame time.Time
	fps       float64

	width  int
	height int
	logger *zap.SugaredLogger
}

func NewApp(logger *zap.SugaredLogger) *model {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &model{
		state:   stateMenu,
		presets: config.ListPresets(),
		speed:   1.0,
		width:   80,
		height:  32,
		logger:  logger,
	}
}

func (m model) Init() tea.Cmd {
	if m.state == stateSim {
		return tick()
	}
	return nil
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.sys != nil {
			w, h := m.canvasSize()
			m.view = fit(m.sys, w, h)
		}
		return m, nil
	case tickMsg:
		if m.state != stateSim || !m.running {
			return m, nil
		}
		if !m.paused && m.sys != nil {
			now := time.Now()
			if !m.lastFrame.IsZero() {
				if dt := now.Sub(m.lastFrame).Seconds(); dt > 0 {
					m.fps = 1.0 / dt
				}
			}
			m.lastFrame = now
			m.advance(stepsPerFrame(m.sys.Dt, m.speed))
		}
		return m, tick()
	}
	return m, nil
}

// stepsPerFrame keeps simulated time in step with wall time at speed 1.
func stepsPerFrame(dt, speed float64) int {
	n := int(math.Round(frameInterval.Seconds() * speed / dt))
	return max(1, min(n, maxStepsFrame))
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateSim:
		return m.simKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.presets[m.cursor]
		m.start()
		m.state = stateSim
		return m, tea.Batch(tea.ClearScreen, tick())
	}
	return m, nil
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		m.running = false
		m.state = stateMenu
		m.reset()
		return m, tea.ClearScreen
	case " ", "p":
		m.paused = !m.paused
	case "r":
		m.start()
		return m, tea.ClearScreen
	case "+", "=":
		m.speed = math.Min(m.speed*2, 16)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 0.125)
	case "0":
		m.speed = 1.0
	}
	return m, nil
}

// start builds the selected preset with logging off and takes the initial
// snapshot.
func (m *model) start() {
	m.reset()
	m.speed = 1.0
	m.running = true
	m.paused = false

	cfg := config.GetPreset(m.selected)
	if cfg == nil {
		m.err = fmt.Errorf("%w: preset %q", dynamo.ErrNotFound, m.selected)
		m.paused = true
		return
	}
	off := false
	cfg.Log = &off
	sys, err := config.Build(cfg, m.logger)
	if err == nil {
		err = sys.Start()
	}
	if err != nil {
		m.err = err
		m.paused = true
		return
	}
	m.sys = sys
	w, h := m.canvasSize()
	m.view = fit(sys, w, h)
	m.record()
}

func (m *model) reset() {
	m.sys = nil
	m.err = nil
	m.trail = make([]r3.Vector, 0, trailLen)
	m.history = make([]float64, 0, historyLen)
	m.lastFrame = time.Time{}
	m.fps = 0
}

func (m *model) advance(steps int) {
	for i := 0; i < steps; i++ {
		if err := m.sys.Step(); err != nil {
			m.logger.Warnw("live step failed", "preset", m.selected, "error", err)
			m.err = err
			m.paused = true
			break
		}
	}
	m.record()
}

func (m *model) record() {
	bodies := m.sys.Bodies()
	m.trail = append(m.trail, bodies[len(bodies)-1].Pos)
	if len(m.trail) > trailLen {
		m.trail = m.trail[1:]
	}
	m.history = append(m.history, m.sys.Energy(m.sys.State()))
	if len(m.history) > historyLen {
		m.history = m.history[1:]
	}
}

func (m model) canvasSize() (int, int) {
	return max(50, m.width-6), max(12, m.height-18)
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateSim:
		return m.viewSim()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("          " + cyan.Render("r i g i d s i m") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.presets {
		desc := presetInfo[name]
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-12s", name)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-12s", name)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter start   q quit") + "\n")
	return b.String()
}

func (m model) viewSim() string {
	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	if m.paused {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n", statusIcon, cyan.Render(m.selected), statusText))

	if m.sys != nil {
		info := fmt.Sprintf("t=%.3fs  steps=%d  x%.3g  %.0ffps", m.sys.Time(), m.sys.Steps(), m.speed, m.fps)
		b.WriteString("   " + dim.Render(info) + "\n\n")

		c := newCanvas(m.canvasSize())
		draw(c, m.view, m.sys, m.trail)
		for _, row := range c.lines() {
			b.WriteString("   " + row + "\n")
		}

		gap := fmt.Sprintf("gap %.2e", m.sys.ConstraintGap())
		b.WriteString("\n   " + dim.Render(gap) + "\n")
	}

	if len(m.history) > 1 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(5),
			asciigraph.Width(40),
			asciigraph.Caption("energy"),
		)
		for _, line := range strings.Split(graph, "\n") {
			b.WriteString("   " + cyan.Render(line) + "\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + dim.Render("   space pause  ±speed  0 reset speed  r restart  q menu") + "\n")
	return b.String()
}

// RunInteractive opens the live view, at the menu or directly on preset.
func RunInteractive(preset string, logger *zap.SugaredLogger) error {
	app := NewApp(logger)
	if preset != "" {
		if config.GetPreset(preset) == nil {
			return fmt.Errorf("%w: preset %q (available: %s)", dynamo.ErrNotFound, preset, strings.Join(app.presets, ", "))
		}
		app.selected = preset
		app.start()
		app.state = stateSim
	}
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
