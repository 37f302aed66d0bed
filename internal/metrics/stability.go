package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Stability reports the fraction of observed states that blew up: a
// non-finite entry, or any coordinate or rate larger in magnitude than
// limit. Zero means the run stayed bounded throughout.
type Stability struct {
	limit    float64
	bad      int
	seen     int
	firstBad float64
}

func NewStability(limit float64) *Stability {
	return &Stability{limit: limit, firstBad: math.NaN()}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(x dynamo.State, t float64) {
	s.seen++
	if x.IsValid() && floats.Norm(x, math.Inf(1)) <= s.limit {
		return
	}
	if s.bad == 0 {
		s.firstBad = t
	}
	s.bad++
}

func (s *Stability) Value() float64 {
	if s.seen == 0 {
		return 0
	}
	return float64(s.bad) / float64(s.seen)
}

// FirstViolation is the time of the first unbounded state, or NaN.
func (s *Stability) FirstViolation() float64 { return s.firstBad }

func (s *Stability) Reset() {
	s.bad, s.seen = 0, 0
	s.firstBad = math.NaN()
}
