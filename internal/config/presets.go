package config

import "sort"

var Presets = map[string]func() *Config{
	"chain": func() *Config {
		return &Config{
			Name: "chain", Integrator: "rk4", Dt: 1e-3, Steps: 30,
			Gravity: []float64{0, -9.8, 0},
			Bodies: []BodyConfig{
				{Name: "b0"},
				{Name: "b1", Position: []float64{1, 0, 0}},
				{Name: "b2", Position: []float64{2, 0, 0}},
			},
			Joints: []JointConfig{
				{Name: "j01", Type: "sphere", Body1: "b0", Body2: "b1", Point1: []float64{0.5, 0, 0}, Point2: []float64{-0.5, 0, 0}},
				{Name: "j12", Type: "sphere", Body1: "b1", Body2: "b2", Point1: []float64{0.5, 0, 0}, Point2: []float64{-0.5, 0, 0}},
				{Name: "ground", Type: "ground", Body1: "b0"},
			},
		}
	},
	"pendulum": func() *Config {
		return &Config{
			Name: "pendulum", Integrator: "rk4", Dt: 1e-3, Steps: 2000,
			Gravity: []float64{0, -9.8, 0},
			Bodies: []BodyConfig{
				{Name: "pivot"},
				{Name: "bob", Position: []float64{1, 0, 0}},
			},
			Joints: []JointConfig{
				{Name: "ball", Type: "sphere", Body1: "pivot", Body2: "bob", Point2: []float64{-1, 0, 0}},
				{Name: "ground", Type: "ground", Body1: "pivot"},
			},
		}
	},
	"hinge": func() *Config {
		return &Config{
			Name: "hinge", Integrator: "rk4", Dt: 1e-3, Steps: 2000,
			Gravity: []float64{0, -9.8, 0},
			Bodies: []BodyConfig{
				{Name: "frame"},
				{Name: "arm", Position: []float64{1, 0, 0}},
			},
			Joints: []JointConfig{
				{Name: "pin", Type: "hinge", Body1: "frame", Body2: "arm", Point2: []float64{-1, 0, 0}, Axis1: []float64{0, 0, 1}},
				{Name: "ground", Type: "ground", Body1: "frame"},
			},
		}
	},
	"slider": func() *Config {
		return &Config{
			Name: "slider", Integrator: "rk4", Dt: 1e-3, Steps: 1000,
			Gravity: []float64{0, -9.8, 0},
			Bodies: []BodyConfig{
				{Name: "rail"},
				{Name: "cart", Position: []float64{1, -1, 0}},
			},
			Joints: []JointConfig{
				{Name: "track", Type: "slide", Body1: "rail", Body2: "cart", Axis1: []float64{1, -1, 0}},
				{Name: "ground", Type: "ground", Body1: "rail"},
			},
		}
	},
	"weld": func() *Config {
		return &Config{
			Name: "weld", Integrator: "rk4", Dt: 1e-3, Steps: 500,
			Gravity: []float64{0, -9.8, 0},
			Bodies: []BodyConfig{
				{Name: "left"},
				{Name: "right", Position: []float64{1, 0, 0}},
			},
			Joints: []JointConfig{
				{Name: "seam", Type: "fix", Body1: "left", Body2: "right", Point1: []float64{0.5, 0, 0}, Point2: []float64{-0.5, 0, 0}},
			},
		}
	},
	"spinner": func() *Config {
		return &Config{
			Name: "spinner", Integrator: "rk4", Dt: 1e-3, Steps: 2000,
			Gravity: []float64{0, 0, 0},
			Bodies: []BodyConfig{
				{Name: "rotor", Inertia: []float64{1, 1, 2, 0, 0, 0}, Omega: []float64{0, 0, 10}},
			},
		}
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
