package gmid

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// LengthsBetween returns the characterized lengths from a to b inclusive,
// in ascending order. Both ends must be characterized and distinct.
func LengthsBetween(all []float64, a, b float64) ([]float64, error) {
	sorted := append([]float64(nil), all...)
	sort.Float64s(sorted)
	ia, ib := indexOf(sorted, a), indexOf(sorted, b)
	if ia < 0 {
		return nil, fmt.Errorf("length %g is not characterized", a)
	}
	if ib < 0 {
		return nil, fmt.Errorf("length %g is not characterized", b)
	}
	if ia == ib {
		return nil, fmt.Errorf("design and reference length are both %g", a)
	}
	if ia > ib {
		ia, ib = ib, ia
	}
	return sorted[ia : ib+1], nil
}

func indexOf(sorted []float64, v float64) int {
	const tol = 1e-12
	for i, x := range sorted {
		if math.Abs(x-v) <= tol*math.Max(1, math.Abs(v)) {
			return i
		}
	}
	return -1
}

// SynthesisRequest describes a single-device synthesis.
// Exactly one of GmOverID/Vstar and exactly one of Gm/ID must be set.
type SynthesisRequest struct {
	L          float64
	GmOverID   float64 // S/A
	Vstar      float64 // V; used when GmOverID is zero
	Gm         float64 // S
	ID         float64 // A; used when Gm is zero
	Multiplier int
	Fingers    int
	ExtFactor  int // length extension factor; 0 means 1
}

// SynthesisResult is a synthesized device with its scaled check.
// W and WFinger are at the extended length L*ExtFactor; W/L is that of the
// characterized-length solution.
type SynthesisResult struct {
	VGS      float64     `json:"vgs"`
	GmOverID float64     `json:"gm_over_id"`
	Gm       float64     `json:"gm"`
	ID       float64     `json:"id"`
	W        float64     `json:"w"`
	WFinger  float64     `json:"w_finger"`
	Check    DeviceCheck `json:"check"`
}

// DeviceCheck lists the characteristics of a device scaled from the
// characterization width and, optionally, an extended length.
type DeviceCheck struct {
	W        float64 `json:"w"` // at the characterized length
	L        float64 `json:"l"`
	WExt     float64 `json:"w_ext"`
	LExt     float64 `json:"l_ext"`
	VGS      float64 `json:"vgs"`
	GmOverID float64 `json:"gm_over_id"`
	ID       float64 `json:"id"`
	CGG      float64 `json:"cgg"`
	FT       float64 `json:"ft"`
	Rout     float64 `json:"rout"`
	SelfGain float64 `json:"self_gain"`
	VT       float64 `json:"vt"`
	VDSAT    float64 `json:"vdsat,omitempty"`
}

// Synthesize solves VGS from the efficiency target and the width from the
// current, then checks the resulting device.
func (s *Sizer) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	gmid := req.GmOverID
	if gmid == 0 {
		if !(req.Vstar > 0) {
			return nil, fmt.Errorf("synthesize: need a positive gm/Id or Vstar target")
		}
		gmid = 2 / req.Vstar
	}
	if gmid < 0 {
		return nil, fmt.Errorf("synthesize: gm/Id must be positive, got %g", gmid)
	}
	res := &SynthesisResult{GmOverID: gmid}
	switch {
	case req.Gm > 0:
		res.Gm = req.Gm
		res.ID = req.Gm / gmid
	case req.ID > 0:
		res.ID = req.ID
		res.Gm = req.ID * gmid
	default:
		return nil, fmt.Errorf("synthesize: need a positive Gm or Id target")
	}
	if req.Multiplier < 1 || req.Fingers < 1 {
		return nil, fmt.Errorf("synthesize: multiplier and fingers must be at least 1, got %d and %d", req.Multiplier, req.Fingers)
	}

	sr, err := s.searcher.SearchVGSG(ctx, gmid, req.L, MaxPrecisionLevels)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if !sr.Found() {
		return nil, fmt.Errorf("synthesize: %w: gm/Id %g at L=%g ends in %s", ErrNotReady, gmid, req.L, sr.Status)
	}
	res.VGS = sr.VGS

	unitID, err := LookupAt(ctx, s.ds, MetricID, s.bias, req.L, sr.VGS)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if unitID <= 0 {
		return nil, fmt.Errorf("synthesize: non-positive Id %g at VGS=%g", unitID, sr.VGS)
	}
	w := res.ID * s.width / unitID

	check, err := s.Check(ctx, w, sr.VGS, req.L, req.ExtFactor)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	res.Check = *check
	res.W = check.WExt
	res.WFinger = res.W / float64(req.Multiplier*req.Fingers)
	return res, nil
}

// Check scales the characterized device to width w and then extends both
// dimensions by ext, keeping W/L. Width scales currents and capacitances
// linearly; extending the length scales area quadratically, Ft inversely
// with area and the output resistance and self-gain with length.
func (s *Sizer) Check(ctx context.Context, w, vgs, l float64, ext int) (*DeviceCheck, error) {
	if ext == 0 {
		ext = 1
	}
	if ext < 1 {
		return nil, fmt.Errorf("check: extension factor must be at least 1, got %d", ext)
	}
	if !(w > 0) {
		return nil, fmt.Errorf("check: width must be positive, got %g", w)
	}
	widthScale := w / s.width
	lengthScale := float64(ext)
	areaScale := lengthScale * lengthScale

	get := func(m Metric) (float64, error) {
		return LookupAt(ctx, s.ds, m, s.bias, l, vgs)
	}
	c := &DeviceCheck{W: w, L: l, WExt: w * lengthScale, LExt: l * lengthScale, VGS: vgs}
	var (
		cgg, ft, gds, id float64
		err              error
	)
	if c.GmOverID, err = get(MetricGmOverID); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	if id, err = get(MetricID); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	if cgg, err = get(MetricCGG); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	if ft, err = get(MetricFUG); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	if gds, err = get(MetricGDS); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	if gds <= 0 {
		return nil, fmt.Errorf("check: non-positive GDS %g at VGS=%g", gds, vgs)
	}
	if c.VT, err = get(MetricVT); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	av, err := SelfGainAt(ctx, s.ds, s.selfGain, s.bias, l, vgs)
	if err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	if s.withVdsat {
		if c.VDSAT, err = get(MetricVDSAT); err != nil {
			return nil, fmt.Errorf("check: %w", err)
		}
	}
	c.ID = id * widthScale
	c.CGG = cgg * widthScale * areaScale
	c.FT = ft / areaScale
	c.Rout = lengthScale / (widthScale * gds)
	c.SelfGain = av * lengthScale
	return c, nil
}
