// Package analysis post-processes snapshot logs of a run.
//
//   - [PowerSpectrum]: amplitude spectrum of one log column
//   - [PhasePortrait]: two columns plotted against each other
//   - [Crossings]: upward level crossings of a column, interpolated in time
//
// A pendulum's swing frequency, for example:
//
//	x, _ := analysis.Column(result.Log, 8)
//	spec, _ := analysis.PowerSpectrum(x, dt)
//	f := spec.Dominant()
package analysis
