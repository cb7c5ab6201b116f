package gmid

import (
	"context"
	"fmt"
)

// Inversion-level gm/Id targets used for length trends.
const (
	WeakInversionGmOverID   = 20.0
	StrongInversionGmOverID = 5.0
	// trendLevels is the search precision used for length trends.
	trendLevels = 3
)

// ThresholdPoint is VT at one length.
type ThresholdPoint struct {
	L  float64 `json:"l"`
	VT float64 `json:"vt"`
}

// TrendPoint is the self-gain and Ft at one length for a fixed gm/Id.
type TrendPoint struct {
	L        float64 `json:"l"`
	VGS      float64 `json:"vgs"`
	SelfGain float64 `json:"self_gain"`
	FT       float64 `json:"ft"`
}

// LengthTrend collects self-gain and Ft against length at one gm/Id target.
// Lengths where the target is unreachable are left out.
type LengthTrend struct {
	GmOverID float64      `json:"gm_over_id"`
	Points   []TrendPoint `json:"points"`
}

// Ready reports whether any length reached the target.
func (t *LengthTrend) Ready() bool {
	return t != nil && len(t.Points) > 0
}

// ThresholdTrend evaluates VT at VDS = VGS = MaxVGS/2 and VSB = 0 for every length.
func ThresholdTrend(ctx context.Context, ds Dataset, lengths []float64) ([]ThresholdPoint, error) {
	half := 0.5 * ds.Info().MaxVGS
	bias := Bias{VDS: half, VSB: 0}
	out := make([]ThresholdPoint, 0, len(lengths))
	for _, l := range lengths {
		vt, err := LookupAt(ctx, ds, MetricVT, bias, l, half)
		if err != nil {
			return nil, fmt.Errorf("threshold trend at L=%g: %w", l, err)
		}
		out = append(out, ThresholdPoint{L: l, VT: vt})
	}
	return out, nil
}

// GmOverIDTrend searches every length for the gm/Id target and reports the
// self-gain and Ft at the solved VGS.
func (s *Sizer) GmOverIDTrend(ctx context.Context, lengths []float64, target float64) (*LengthTrend, error) {
	trend := &LengthTrend{GmOverID: target}
	for _, l := range lengths {
		res, err := s.searcher.SearchVGSG(ctx, target, l, trendLevels)
		if err != nil {
			return nil, fmt.Errorf("gm/Id trend at L=%g: %w", l, err)
		}
		if !res.Found() {
			continue
		}
		av, err := SelfGainAt(ctx, s.ds, s.selfGain, s.bias, l, res.VGS)
		if err != nil {
			return nil, fmt.Errorf("gm/Id trend at L=%g: %w", l, err)
		}
		ft, err := LookupAt(ctx, s.ds, MetricFUG, s.bias, l, res.VGS)
		if err != nil {
			return nil, fmt.Errorf("gm/Id trend at L=%g: %w", l, err)
		}
		trend.Points = append(trend.Points, TrendPoint{L: l, VGS: res.VGS, SelfGain: av, FT: ft})
	}
	return trend, nil
}

// VstarTrend is GmOverIDTrend at gm/Id = 2/vstar.
func (s *Sizer) VstarTrend(ctx context.Context, lengths []float64, vstar float64) (*LengthTrend, error) {
	if !(vstar > 0) {
		return nil, fmt.Errorf("vstar trend: Vstar must be positive, got %g", vstar)
	}
	return s.GmOverIDTrend(ctx, lengths, 2/vstar)
}

// InversionTrends holds the length trends of one corner.
type InversionTrends struct {
	Threshold []ThresholdPoint `json:"threshold"`
	Weak      *LengthTrend     `json:"weak"`
	Strong    *LengthTrend     `json:"strong"`
}

// Trends computes the threshold trend and the weak/strong inversion trends.
func (s *Sizer) Trends(ctx context.Context, lengths []float64, weak, strong float64) (*InversionTrends, error) {
	th, err := ThresholdTrend(ctx, s.ds, lengths)
	if err != nil {
		return nil, err
	}
	w, err := s.GmOverIDTrend(ctx, lengths, weak)
	if err != nil {
		return nil, err
	}
	st, err := s.GmOverIDTrend(ctx, lengths, strong)
	if err != nil {
		return nil, err
	}
	return &InversionTrends{Threshold: th, Weak: w, Strong: st}, nil
}
