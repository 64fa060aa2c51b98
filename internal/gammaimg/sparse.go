package gammaimg

import "gonum.org/v1/gonum/floats"

// Sparse holds the non-negligible entries of one backprojection. The slices
// are reused across events; Reset keeps their capacity.
type Sparse struct {
	Bins    []int
	Values  []Real
	Maximum Real
}

// NewSparse preallocates room for capacity entries.
func NewSparse(capacity int) *Sparse {
	return &Sparse{
		Bins:   make([]int, 0, capacity),
		Values: make([]Real, 0, capacity),
	}
}

func (s *Sparse) Reset() {
	s.Bins = s.Bins[:0]
	s.Values = s.Values[:0]
	s.Maximum = 0
}

func (s *Sparse) Len() int { return len(s.Bins) }

func (s *Sparse) add(bin int, v Real) {
	s.Bins = append(s.Bins, bin)
	s.Values = append(s.Values, v)
	if v > s.Maximum {
		s.Maximum = v
	}
}

// Sum returns the total content of the entries.
func (s *Sparse) Sum() Real { return floats.Sum(s.Values) }

// AddTo accumulates the entries into a dense buffer indexed by bin.
func (s *Sparse) AddTo(dense []Real) {
	for i, b := range s.Bins {
		dense[b] += s.Values[i]
	}
}
