package gmid

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// SearchStatus reports how a TargetSearch ended.
type SearchStatus int

const (
	// StatusUnderflow: the target lies at or below the first scanned sample.
	StatusUnderflow SearchStatus = iota
	// StatusFound: every requested precision level narrowed the bracket.
	StatusFound
	// StatusOverflow: no scanned sample reached the target.
	StatusOverflow
)

func (s SearchStatus) String() string {
	switch s {
	case StatusUnderflow:
		return "underflow"
	case StatusFound:
		return "found"
	case StatusOverflow:
		return "overflow"
	default:
		return fmt.Sprintf("SearchStatus(%d)", int(s))
	}
}

// MarshalText lets statuses print by name in JSON output.
func (s SearchStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SearchResult is the outcome of a TargetSearch.
// VGS is meaningful only when Status is StatusFound.
type SearchResult struct {
	VGS    float64      `json:"vgs"`
	Status SearchStatus `json:"status"`
}

// Found reports whether VGS may be trusted.
func (r SearchResult) Found() bool {
	return r.Status == StatusFound
}

// SearchSteps are the VGS step sizes of the precision levels, coarse to fine.
var SearchSteps = [...]float64{0.1, 0.01, 0.001, 0.0001}

// MaxPrecisionLevels is the number of available refinement passes.
const MaxPrecisionLevels = len(SearchSteps)

var (
	// ErrNotMonotonic is returned when sampled data violates the ordering an inversion relies on.
	ErrNotMonotonic = errors.New("data not monotonic")
	// ErrInvalidPrecision is returned for a precision level count outside [1, MaxPrecisionLevels].
	ErrInvalidPrecision = errors.New("invalid precision level count")
)

// scanDirection is the order in which a bracket is sampled.
type scanDirection int

const (
	// scanDescending samples from the upper bound down; used for metrics that fall with VGS.
	scanDescending scanDirection = iota
	// scanAscending samples from the lower bound up; used for metrics that rise with VGS.
	scanAscending
)

// metricFunc evaluates one metric over a VGS vector at a fixed length.
type metricFunc func(ctx context.Context, vgs []float64) ([]float64, error)

// Searcher inverts sampled device curves of one dataset at a fixed bias.
type Searcher struct {
	ds       Dataset
	bias     Bias
	selfGain SelfGainMode
	maxVGS   float64
}

// NewSearcher creates a Searcher over the dataset's full VGS range.
func NewSearcher(ds Dataset, bias Bias, mode SelfGainMode) *Searcher {
	return &Searcher{
		ds:       ds,
		bias:     bias,
		selfGain: mode,
		maxVGS:   ds.Info().MaxVGS,
	}
}

// SearchVGSG finds the VGS at which gm/Id reaches target at length l.
func (s *Searcher) SearchVGSG(ctx context.Context, target, l float64, levels int) (SearchResult, error) {
	eval := func(ctx context.Context, vgs []float64) ([]float64, error) {
		return s.ds.Lookup(ctx, MetricGmOverID, s.bias, l, vgs)
	}
	return s.search(ctx, "gm/Id", eval, target, levels, scanDescending)
}

// SearchVGSA finds the VGS at which the self-gain reaches target at length l.
func (s *Searcher) SearchVGSA(ctx context.Context, target, l float64, levels int) (SearchResult, error) {
	eval := func(ctx context.Context, vgs []float64) ([]float64, error) {
		return SelfGain(ctx, s.ds, s.selfGain, s.bias, l, vgs)
	}
	return s.search(ctx, "self-gain", eval, target, levels, scanDescending)
}

// SearchVGSF finds the VGS at which the unity-gain frequency reaches target at length l.
func (s *Searcher) SearchVGSF(ctx context.Context, target, l float64, levels int) (SearchResult, error) {
	eval := func(ctx context.Context, vgs []float64) ([]float64, error) {
		return s.ds.Lookup(ctx, MetricFUG, s.bias, l, vgs)
	}
	return s.search(ctx, "Ft", eval, target, levels, scanAscending)
}

// search is the coarse-to-fine skeleton shared by all target searches.
//
// Each level samples the current bracket so that the metric sequence ascends,
// then narrows the bracket around the target's left insertion index. The
// returned VGS is the lower bound of the finest bracket reached.
func (s *Searcher) search(ctx context.Context, name string, eval metricFunc, target float64, levels int, dir scanDirection) (SearchResult, error) {
	if levels < 1 || levels > MaxPrecisionLevels {
		return SearchResult{}, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidPrecision, levels, MaxPrecisionLevels)
	}

	lo, hi := 0.0, s.maxVGS
	for level := 0; level < levels; level++ {
		seq := bracketSequence(lo, hi, SearchSteps[level], dir, level > 0)
		if len(seq) == 0 {
			return SearchResult{}, fmt.Errorf("search %s: empty bracket [%g, %g] at level %d", name, lo, hi, level)
		}
		vals, err := eval(ctx, seq)
		if err != nil {
			return SearchResult{}, fmt.Errorf("search %s at level %d: %w", name, level, err)
		}
		if len(vals) != len(seq) {
			return SearchResult{}, fmt.Errorf("search %s: %d samples for %d VGS points", name, len(vals), len(seq))
		}
		seq, vals = cutAtPeak(seq, vals)
		if i := firstDescent(vals); i >= 0 {
			return SearchResult{}, fmt.Errorf("search %s at level %d: %w: sample %d (VGS=%g) falls from %g to %g",
				name, level, ErrNotMonotonic, i, seq[i], vals[i-1], vals[i])
		}

		idx := sort.SearchFloat64s(vals, target)
		if idx == len(vals) {
			logrus.Debugf("search %s: target %g above every sample at level %d", name, target, level)
			return SearchResult{VGS: lo, Status: StatusOverflow}, nil
		}
		if dir == scanDescending {
			lo = seq[idx]
			if idx == 0 {
				return SearchResult{VGS: lo, Status: StatusUnderflow}, nil
			}
			hi = seq[idx-1]
		} else {
			hi = seq[idx]
			if idx == 0 {
				return SearchResult{VGS: lo, Status: StatusUnderflow}, nil
			}
			lo = seq[idx-1]
		}
		logrus.Debugf("search %s: level %d bracket [%g, %g]", name, level, lo, hi)
	}
	return SearchResult{VGS: lo, Status: StatusFound}, nil
}

// bracketSequence samples the bracket at step in scan order. The first level
// samples the half-open bracket the way a fresh scan does. Refinement levels
// end exactly on the bound already known to satisfy the target, so a target
// hit on a coarse grid point is never mistaken for an overflow.
func bracketSequence(lo, hi, step float64, dir scanDirection, refine bool) []float64 {
	switch {
	case !refine && dir == scanDescending:
		return arange(hi, lo, -step)
	case !refine:
		return arange(lo, hi, step)
	case dir == scanDescending:
		return append(arange(hi, lo+step/2, -step), lo)
	default:
		return append(arange(lo, hi-step/2, step), hi)
	}
}

// cutAtPeak drops every sample after the maximum of vals, which removes the
// non-invertible region beyond the metric's peak in scan order.
func cutAtPeak(seq, vals []float64) ([]float64, []float64) {
	if len(vals) == 0 {
		return seq, vals
	}
	peak := floats.MaxIdx(vals)
	return seq[:peak+1], vals[:peak+1]
}

// firstDescent returns the first index whose value is below its predecessor, or -1.
func firstDescent(vals []float64) int {
	for i := 1; i < len(vals); i++ {
		if vals[i] < vals[i-1] {
			return i
		}
	}
	return -1
}
