// Public domain.

// Package stack keeps a running sum of calibrated science frames.
package stack

import (
	"github.com/saft-obs/saftlog/internal/errs"
	"github.com/saft-obs/saftlog/internal/frame"
)

// Display stretch percentiles.
const (
	StretchLo = 20
	StretchHi = 99
)

// Stacker accumulates frames pixel by pixel.  The zero value is an empty
// stack.
type Stacker struct {
	total *frame.Frame
	n     int
}

// Accumulate adds f to the stack.  The first frame is copied to start the
// running total.  A frame that does not match the stack in binning or
// dimensions is a data error and leaves the stack as it was.
func (s *Stacker) Accumulate(f *frame.Frame) error {
	if f == nil {
		return errs.Dataf("stack.Accumulate", "", "nil frame")
	}
	if s.total == nil {
		s.total = f.Clone()
		s.n = 1
		return nil
	}
	if err := s.total.Combine(f, frame.Add); err != nil {
		return err
	}
	s.n++
	return nil
}

// Count is the number of frames accumulated.
func (s *Stacker) Count() int { return s.n }

// Total is the running sum, nil while the stack is empty.  It is owned by
// the stacker.
func (s *Stacker) Total() *frame.Frame { return s.total }

// Stats returns median, min and max of the running sum.  ok is false while
// the stack is empty.
func (s *Stacker) Stats() (st frame.Stats, ok bool) {
	if s.total == nil {
		return st, false
	}
	return s.total.Stats(), true
}

// Render returns the display values of f, stretched between the 20th and
// 99th percentiles onto [0,255].
func Render(f *frame.Frame) ([]float64, error) {
	return f.PercentileStretch(StretchLo, StretchHi)
}
