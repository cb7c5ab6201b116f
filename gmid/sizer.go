package gmid

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrNotReady is returned when sizing has no valid operating point to work from.
var ErrNotReady = errors.New("no valid operating point")

// Constraint selects the figure an operating-point search holds fixed.
type Constraint int

const (
	ConstrainGmOverID Constraint = iota
	ConstrainFT
	ConstrainSelfGain
)

func (c Constraint) String() string {
	switch c {
	case ConstrainGmOverID:
		return "gmid"
	case ConstrainFT:
		return "ft"
	case ConstrainSelfGain:
		return "gain"
	default:
		return fmt.Sprintf("Constraint(%d)", int(c))
	}
}

// ParseConstraint maps a configuration string to a Constraint.
func ParseConstraint(name string) (Constraint, error) {
	switch name {
	case "gmid":
		return ConstrainGmOverID, nil
	case "ft":
		return ConstrainFT, nil
	case "gain":
		return ConstrainSelfGain, nil
	default:
		return 0, fmt.Errorf("unknown constraint %q; valid: gmid, ft, gain", name)
	}
}

// Objective selects the secondary sizing target.
type Objective int

const (
	ObjectiveGm Objective = iota
	ObjectiveID
	ObjectiveArea
)

func (o Objective) String() string {
	switch o {
	case ObjectiveGm:
		return "gm"
	case ObjectiveID:
		return "id"
	case ObjectiveArea:
		return "area"
	default:
		return fmt.Sprintf("Objective(%d)", int(o))
	}
}

// ParseObjective maps a configuration string to an Objective.
func ParseObjective(name string) (Objective, error) {
	switch name {
	case "gm":
		return ObjectiveGm, nil
	case "id":
		return ObjectiveID, nil
	case "area":
		return ObjectiveArea, nil
	default:
		return 0, fmt.Errorf("unknown objective %q; valid: gm, id, area", name)
	}
}

// OperatingPoint is the solved bias of one length under a constraint.
type OperatingPoint struct {
	L        float64 `json:"l"`
	VGS      float64 `json:"vgs"`
	VT       float64 `json:"vt"`
	VDSAT    float64 `json:"vdsat,omitempty"`
	Vstar    float64 `json:"vstar"`
	FT       float64 `json:"ft"`
	SelfGain float64 `json:"self_gain"`
	GmOverID float64 `json:"gm_over_id"`
}

// SkippedLength records a length whose search did not find the target.
type SkippedLength struct {
	L      float64      `json:"l"`
	Status SearchStatus `json:"status"`
}

// OperatingPointSet is the result of the operating-point stage.
type OperatingPointSet struct {
	Constraint Constraint       `json:"-"`
	Target     float64          `json:"target"`
	Points     []OperatingPoint `json:"points"`
	Skipped    []SkippedLength  `json:"skipped,omitempty"`
}

// Ready reports whether at least one length was solved.
func (s *OperatingPointSet) Ready() bool {
	return s != nil && len(s.Points) > 0
}

// SizedDevice is an operating point with a solved width and width-scaled quantities.
type SizedDevice struct {
	OperatingPoint
	W   float64 `json:"w"`
	ID  float64 `json:"id"`
	CGG float64 `json:"cgg"`
	CDD float64 `json:"cdd"`
}

// SizingRequest describes both stages of a sizing run.
type SizingRequest struct {
	Lengths    []float64
	Constraint Constraint
	OpTarget   float64 // gm/Id [S/A], Ft [Hz] or self-gain [V/V]
	Objective  Objective
	Value      float64 // Gm [S], Id [A] or area [um^2]
}

// SizingResult is the per-length sizing outcome.
type SizingResult struct {
	Objective Objective          `json:"-"`
	Value     float64            `json:"value"`
	Devices   []SizedDevice      `json:"devices"`
	Ops       *OperatingPointSet `json:"operating_points"`
}

// Sizer solves operating points and widths on one dataset.
type Sizer struct {
	ds        Dataset
	searcher  *Searcher
	bias      Bias
	selfGain  SelfGainMode
	width     float64
	withVdsat bool
	levels    int
}

// SizerConfig configures a Sizer.
type SizerConfig struct {
	Bias      Bias
	SelfGain  SelfGainMode
	WithVdsat bool
	Levels    int // precision levels for every search; 0 means MaxPrecisionLevels
}

// NewSizer creates a Sizer bound to a dataset.
func NewSizer(ds Dataset, cfg SizerConfig) *Sizer {
	levels := cfg.Levels
	if levels == 0 {
		levels = MaxPrecisionLevels
	}
	return &Sizer{
		ds:        ds,
		searcher:  NewSearcher(ds, cfg.Bias, cfg.SelfGain),
		bias:      cfg.Bias,
		selfGain:  cfg.SelfGain,
		width:     ds.Info().Width,
		withVdsat: cfg.WithVdsat,
		levels:    levels,
	}
}

// OperatingPoints searches every length for the constraint target.
// Lengths whose search does not end in StatusFound are skipped, never zero-filled.
func (s *Sizer) OperatingPoints(ctx context.Context, lengths []float64, c Constraint, target float64) (*OperatingPointSet, error) {
	set := &OperatingPointSet{Constraint: c, Target: target}
	for _, l := range lengths {
		var (
			res SearchResult
			err error
		)
		switch c {
		case ConstrainGmOverID:
			res, err = s.searcher.SearchVGSG(ctx, target, l, s.levels)
		case ConstrainFT:
			res, err = s.searcher.SearchVGSF(ctx, target, l, s.levels)
		case ConstrainSelfGain:
			res, err = s.searcher.SearchVGSA(ctx, target, l, s.levels)
		default:
			return nil, fmt.Errorf("operating points: unknown constraint %v", c)
		}
		if err != nil {
			return nil, fmt.Errorf("operating points at L=%g: %w", l, err)
		}
		if !res.Found() {
			logrus.Warnf("%s target %g not reachable at L=%g (%s), skipping", c, target, l, res.Status)
			set.Skipped = append(set.Skipped, SkippedLength{L: l, Status: res.Status})
			continue
		}
		op, err := s.evaluate(ctx, l, res.VGS)
		if err != nil {
			return nil, fmt.Errorf("operating points at L=%g: %w", l, err)
		}
		set.Points = append(set.Points, op)
	}
	logrus.Infof("operating points: %d solved, %d skipped for %s=%g", len(set.Points), len(set.Skipped), c, target)
	return set, nil
}

func (s *Sizer) evaluate(ctx context.Context, l, vgs float64) (OperatingPoint, error) {
	op := OperatingPoint{L: l, VGS: vgs}
	var err error
	if op.VT, err = LookupAt(ctx, s.ds, MetricVT, s.bias, l, vgs); err != nil {
		return op, err
	}
	if op.GmOverID, err = LookupAt(ctx, s.ds, MetricGmOverID, s.bias, l, vgs); err != nil {
		return op, err
	}
	if op.GmOverID <= 0 {
		return op, fmt.Errorf("non-positive gm/Id %g at VGS=%g", op.GmOverID, vgs)
	}
	op.Vstar = 2 / op.GmOverID
	if op.FT, err = LookupAt(ctx, s.ds, MetricFUG, s.bias, l, vgs); err != nil {
		return op, err
	}
	if op.SelfGain, err = SelfGainAt(ctx, s.ds, s.selfGain, s.bias, l, vgs); err != nil {
		return op, err
	}
	if s.withVdsat {
		if op.VDSAT, err = LookupAt(ctx, s.ds, MetricVDSAT, s.bias, l, vgs); err != nil {
			return op, err
		}
	}
	return op, nil
}

// Size solves a width per operating point. A nil ops runs the operating-point
// stage first; an empty one yields ErrNotReady.
func (s *Sizer) Size(ctx context.Context, req SizingRequest, ops *OperatingPointSet) (*SizingResult, error) {
	if !(req.Value > 0) {
		return nil, fmt.Errorf("size: %s target must be positive, got %g", req.Objective, req.Value)
	}
	if ops == nil {
		var err error
		if ops, err = s.OperatingPoints(ctx, req.Lengths, req.Constraint, req.OpTarget); err != nil {
			return nil, err
		}
	}
	if !ops.Ready() {
		return nil, fmt.Errorf("size: %w for %s=%g", ErrNotReady, ops.Constraint, ops.Target)
	}

	res := &SizingResult{Objective: req.Objective, Value: req.Value, Ops: ops}
	for _, op := range ops.Points {
		w, err := s.solveWidth(ctx, op, req.Objective, req.Value)
		if err != nil {
			return nil, fmt.Errorf("size at L=%g: %w", op.L, err)
		}
		dev := SizedDevice{OperatingPoint: op, W: w}
		scale := w / s.width
		for _, q := range []struct {
			m   Metric
			dst *float64
		}{{MetricID, &dev.ID}, {MetricCGG, &dev.CGG}, {MetricCDD, &dev.CDD}} {
			unit, err := LookupAt(ctx, s.ds, q.m, s.bias, op.L, op.VGS)
			if err != nil {
				return nil, fmt.Errorf("size at L=%g: %w", op.L, err)
			}
			*q.dst = unit * scale
		}
		res.Devices = append(res.Devices, dev)
	}
	return res, nil
}

// solveWidth applies the linear width-scaling law for one objective.
func (s *Sizer) solveWidth(ctx context.Context, op OperatingPoint, obj Objective, value float64) (float64, error) {
	switch obj {
	case ObjectiveArea:
		return value / op.L, nil
	case ObjectiveGm, ObjectiveID:
		m := MetricGM
		if obj == ObjectiveID {
			m = MetricID
		}
		unit, err := LookupAt(ctx, s.ds, m, s.bias, op.L, op.VGS)
		if err != nil {
			return 0, err
		}
		if unit <= 0 {
			return 0, fmt.Errorf("non-positive %s %g at VGS=%g", m, unit, op.VGS)
		}
		return value / unit * s.width, nil
	default:
		return 0, fmt.Errorf("unknown objective %v", obj)
	}
}
