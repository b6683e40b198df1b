// Public domain.

package frame

import (
	"math"
	"sort"

	"github.com/saft-obs/saftlog/internal/errs"
)

// Op is an element-wise frame operation.
type Op int

const (
	Add Op = iota
	Subtract
	Divide
)

func (op Op) String() string {
	switch op {
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	case Divide:
		return "divide"
	}
	return "unknown"
}

// Combine applies op pixel by pixel with other as the right operand,
// replacing f's grid with the result.
//
// Frames must have the same binning and dimensions.  On a mismatch Combine
// returns a data error and neither frame is changed.  Dividing by a zero
// pixel gives a zero pixel.
func (f *Frame) Combine(other *Frame, op Op) error {
	if other == nil {
		return errs.Dataf("frame.Combine", f.Filename, "%s with nil frame", op)
	}
	if f.xbin != other.xbin || f.ybin != other.ybin {
		return errs.Dataf("frame.Combine", f.Filename,
			"cannot %s frames with different binning (%dx%d) and (%dx%d)",
			op, f.xbin, f.ybin, other.xbin, other.ybin)
	}
	if f.width != other.width || f.height != other.height {
		return errs.Dataf("frame.Combine", f.Filename,
			"cannot %s frames with different dimensions (%dx%d) and (%dx%d)",
			op, f.width, f.height, other.width, other.height)
	}
	var fn func(a, b float64) float64
	switch op {
	case Add:
		fn = func(a, b float64) float64 { return a + b }
	case Subtract:
		fn = func(a, b float64) float64 { return a - b }
	case Divide:
		fn = func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return a / b
		}
	default:
		return errs.Dataf("frame.Combine", f.Filename, "unknown operation %d", int(op))
	}
	out := make([]float64, len(f.pix))
	for i, a := range f.pix {
		out[i] = fn(a, other.pix[i])
	}
	f.pix = out
	f.stats = computeStats(out)
	return nil
}

// PercentileStretch clips the grid to its lo and hi percentiles and
// rescales the result linearly onto [0,255].  NaN pixels map to 0.  The
// grid itself is not changed.  A flat grid, where the two percentiles coincide, is a data
// error.
func (f *Frame) PercentileStretch(lo, hi float64) ([]float64, error) {
	if lo >= hi {
		return nil, errs.Dataf("frame.PercentileStretch", f.Filename,
			"lower percentile %g not below upper %g", lo, hi)
	}
	b, err := percentiles(f.pix, lo, hi)
	if err != nil {
		return nil, errs.Data("frame.PercentileStretch", f.Filename, err)
	}
	vlo, vhi := b[0], b[1]
	if vhi == vlo {
		return nil, errs.Dataf("frame.PercentileStretch", f.Filename,
			"percentiles %g and %g are both %g", lo, hi, vlo)
	}
	out := make([]float64, len(f.pix))
	for i, v := range f.pix {
		if math.IsNaN(v) {
			continue
		}
		out[i] = math.Max(0, math.Min(255, (v-vlo)/(vhi-vlo)*255))
	}
	return out, nil
}

// percentiles returns the ps percentiles (0 <= p <= 100) of the non-NaN
// pixels, interpolating linearly between the two nearest ranks.
func percentiles(pix []float64, ps ...float64) ([]float64, error) {
	if len(pix) == 0 {
		return nil, errs.Dataf("frame.Percentile", "", "empty grid")
	}
	s := make([]float64, 0, len(pix))
	for _, v := range pix {
		if !math.IsNaN(v) {
			s = append(s, v)
		}
	}
	if len(s) == 0 {
		return nil, errs.Dataf("frame.Percentile", "", "no finite pixels")
	}
	sort.Float64s(s)
	out := make([]float64, len(ps))
	for i, p := range ps {
		if p < 0 || p > 100 {
			return nil, errs.Dataf("frame.Percentile", "", "percentile %g out of range", p)
		}
		r := p / 100 * float64(len(s)-1)
		j := int(r)
		if j >= len(s)-1 {
			out[i] = s[len(s)-1]
			continue
		}
		out[i] = s[j] + (r-float64(j))*(s[j+1]-s[j])
	}
	return out, nil
}
