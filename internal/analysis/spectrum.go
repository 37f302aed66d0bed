package analysis

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Spectrum is the one-sided amplitude spectrum of a uniformly sampled
// signal.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum returns the amplitude of each frequency bin of data sampled
// every dt. The mean is removed first so that bin zero does not dominate.
func PowerSpectrum(data []float64, dt float64) (*Spectrum, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: spectrum needs at least 2 samples, got %d", dynamo.ErrValidation, len(data))
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: sample interval %g must be positive", dynamo.ErrValidation, dt)
	}

	centered := make([]float64, len(data))
	copy(centered, data)
	floats.AddConst(-stat.Mean(data, nil), centered)

	fft := fourier.NewFFT(len(data))
	coeffs := fft.Coefficients(nil, centered)
	spec := &Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Power: make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		spec.Freqs[i] = fft.Freq(i) / dt
		spec.Power[i] = cmplx.Abs(c)
	}
	return spec, nil
}

// Dominant returns the frequency of the strongest non-zero bin.
func (s *Spectrum) Dominant() float64 {
	if len(s.Power) < 2 {
		return 0
	}
	return s.Freqs[1+floats.MaxIdx(s.Power[1:])]
}

// Column extracts one column of a snapshot log.
func Column(rows []dynamo.State, col int) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if col < 0 || col >= len(row) {
			return nil, fmt.Errorf("%w: column %d outside row %d of width %d", dynamo.ErrValidation, col, i, len(row))
		}
		out[i] = row[col]
	}
	return out, nil
}
