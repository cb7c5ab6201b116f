package gmid

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// Domain names the independent variable of a DomainCurve.
type Domain string

const (
	DomainVoltage  Domain = "vgs"
	DomainVstar    Domain = "vstar"
	DomainGmOverID Domain = "gmid"
	DomainLogID    Domain = "logid"
)

// validDomains maps accepted domain names.
var validDomains = map[Domain]bool{
	DomainVoltage: true, DomainVstar: true, DomainGmOverID: true, DomainLogID: true,
}

// IsValidDomain returns true if name is a recognized domain.
func IsValidDomain(name string) bool {
	return validDomains[Domain(name)]
}

// Series names a dependent quantity carried by a DomainCurve.
type Series string

const (
	SeriesID       Series = "id"
	SeriesFT       Series = "ft"
	SeriesSelfGain Series = "self_gain"
	SeriesVGS      Series = "vgs"
	SeriesVDSAT    Series = "vdsat"
	SeriesGmOverID Series = "gm_over_id"
	SeriesFOM      Series = "fom"
)

// PlotMode selects the figure-of-merit formula.
type PlotMode int

const (
	// ModeBandwidthEfficiency uses Ft x gm/Id.
	ModeBandwidthEfficiency PlotMode = iota
	// ModeRawEfficiency uses gm/Id (current density in the gm/Id domain).
	ModeRawEfficiency
)

func (m PlotMode) String() string {
	switch m {
	case ModeBandwidthEfficiency:
		return "bandwidth"
	case ModeRawEfficiency:
		return "efficiency"
	default:
		return fmt.Sprintf("PlotMode(%d)", int(m))
	}
}

// ParsePlotMode maps a configuration string to a PlotMode.
func ParsePlotMode(name string) (PlotMode, error) {
	switch name {
	case "", "bandwidth":
		return ModeBandwidthEfficiency, nil
	case "efficiency":
		return ModeRawEfficiency, nil
	default:
		return 0, fmt.Errorf("unknown plot mode %q; valid: bandwidth, efficiency", name)
	}
}

// GridSpec is a fixed resampling lattice [Min, Max) at Step.
type GridSpec struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

// GridConfig holds the resampling lattices of the derived domains.
// The log-Id lattice is bounded by the data; only its step is configurable.
type GridConfig struct {
	Vstar     GridSpec `yaml:"vstar"`
	GmOverID  GridSpec `yaml:"gm_over_id"`
	LogIDStep float64  `yaml:"log_id_step"`
}

// DefaultGridConfig returns the standard lattices.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Vstar:     GridSpec{Min: 0.085, Max: 1.0, Step: 0.0005},
		GmOverID:  GridSpec{Min: 2.0, Max: 23.5, Step: 0.01},
		LogIDStep: 0.05,
	}
}

// Validate checks that every lattice is non-empty and finite.
func (g GridConfig) Validate() error {
	for name, spec := range map[string]GridSpec{"vstar": g.Vstar, "gm_over_id": g.GmOverID} {
		if spec.Step <= 0 || math.IsNaN(spec.Step) {
			return fmt.Errorf("grid %s: step must be positive, got %g", name, spec.Step)
		}
		if !(spec.Max > spec.Min) {
			return fmt.Errorf("grid %s: max %g must exceed min %g", name, spec.Max, spec.Min)
		}
	}
	if g.LogIDStep <= 0 || math.IsNaN(g.LogIDStep) {
		return fmt.Errorf("grid log_id_step must be positive, got %g", g.LogIDStep)
	}
	return nil
}

// TransformOptions configures a CurveTransformer run.
type TransformOptions struct {
	Mode      PlotMode
	Width     float64 // characterization width, for the current-density view
	WithVdsat bool
	Grids     GridConfig
}

// DomainCurve is one sweep re-expressed against an independent variable.
// Every series is aligned to Grid.
type DomainCurve struct {
	Domain Domain               `json:"domain"`
	Grid   []float64            `json:"grid"`
	Series map[Series][]float64 `json:"series"`
	fits   map[Series]interp.Predictor
	// knot span of the fits; wider than Grid when the lattice is clipped
	fitLo, fitHi float64
}

// Eval evaluates a series at x. Derived domains use the fitted spline over
// the span of the data it was fitted on; the voltage domain interpolates
// linearly between samples.
func (c *DomainCurve) Eval(s Series, x float64) (float64, error) {
	ys, ok := c.Series[s]
	if !ok {
		return 0, fmt.Errorf("domain %s has no series %s", c.Domain, s)
	}
	if p, ok := c.fits[s]; ok {
		if x < c.fitLo || x > c.fitHi {
			return 0, fmt.Errorf("domain %s: %w: %g outside [%g, %g]", c.Domain, ErrOutOfRange, x, c.fitLo, c.fitHi)
		}
		return p.Predict(x), nil
	}
	if len(c.Grid) == 0 {
		return 0, fmt.Errorf("domain %s is empty", c.Domain)
	}
	if x < c.Grid[0] || x > c.Grid[len(c.Grid)-1] {
		return 0, fmt.Errorf("domain %s: %w: %g outside [%g, %g]", c.Domain, ErrOutOfRange, x, c.Grid[0], c.Grid[len(c.Grid)-1])
	}
	i := sort.SearchFloat64s(c.Grid, x)
	if c.Grid[i] == x {
		return ys[i], nil
	}
	x0, x1 := c.Grid[i-1], c.Grid[i]
	return ys[i-1] + (ys[i]-ys[i-1])*(x-x0)/(x1-x0), nil
}

// Readout returns every series at the grid point nearest x.
func (c *DomainCurve) Readout(x float64) (map[Series]float64, bool) {
	if len(c.Grid) == 0 {
		return nil, false
	}
	i := sort.SearchFloat64s(c.Grid, x)
	switch {
	case i == len(c.Grid):
		i--
	case i > 0 && x-c.Grid[i-1] < c.Grid[i]-x:
		i--
	}
	out := make(map[Series]float64, len(c.Series))
	for s, ys := range c.Series {
		out[s] = ys[i]
	}
	return out, true
}

// CurveSet holds the four synchronized domain views of one sweep.
type CurveSet struct {
	L         float64     `json:"l"`
	Mode      PlotMode    `json:"-"`
	PeakIndex int         `json:"peak_index"` // sweep index of the gm/Id maximum
	Voltage   DomainCurve `json:"vgs"`
	Vstar     DomainCurve `json:"vstar"`
	GmOverID  DomainCurve `json:"gmid"`
	LogID     DomainCurve `json:"logid"`
}

// Curve returns the view for a domain.
func (cs *CurveSet) Curve(d Domain) (*DomainCurve, bool) {
	switch d {
	case DomainVoltage:
		return &cs.Voltage, true
	case DomainVstar:
		return &cs.Vstar, true
	case DomainGmOverID:
		return &cs.GmOverID, true
	case DomainLogID:
		return &cs.LogID, true
	default:
		return nil, false
	}
}

// Tail is the part of a sweep from the gm/Id maximum onward.
// Within it gm/Id strictly decreases with VGS.
type Tail struct {
	Offset   int // sweep index of the first retained sample
	VGS      []float64
	ID       []float64
	FT       []float64
	SelfGain []float64
	GmOverID []float64
	VDSAT    []float64 // nil unless the sweep carries VDSAT
}

// TruncateAtPeak discards every sample before the global gm/Id maximum and
// verifies that the remainder strictly decreases.
func TruncateAtPeak(sw *CharacteristicSweep) (*Tail, error) {
	if sw.Len() == 0 {
		return nil, fmt.Errorf("truncate at L=%g: empty sweep", sw.L)
	}
	peak := floats.MaxIdx(sw.GmOverID)
	t := &Tail{
		Offset:   peak,
		VGS:      sw.VGS[peak:],
		ID:       sw.ID[peak:],
		FT:       sw.FT[peak:],
		SelfGain: sw.SelfGain[peak:],
		GmOverID: sw.GmOverID[peak:],
	}
	if sw.HasVdsat {
		t.VDSAT = sw.VDSAT[peak:]
	}
	for i := 1; i < len(t.GmOverID); i++ {
		if !(t.GmOverID[i] < t.GmOverID[i-1]) {
			return nil, fmt.Errorf("truncate at L=%g: %w: gm/Id %g at VGS=%g does not fall below %g",
				sw.L, ErrNotMonotonic, t.GmOverID[i], t.VGS[i], t.GmOverID[i-1])
		}
	}
	return t, nil
}

// Transform builds the voltage, Vstar, gm/Id and log-Id views of a sweep.
// The four views are always built together from the same truncation.
func Transform(sw *CharacteristicSweep, opts TransformOptions) (*CurveSet, error) {
	if err := opts.Grids.Validate(); err != nil {
		return nil, err
	}
	if opts.WithVdsat && !sw.HasVdsat {
		return nil, fmt.Errorf("transform at L=%g: VDSAT requested but sweep has none", sw.L)
	}
	if opts.Mode == ModeRawEfficiency && !(opts.Width > 0) {
		return nil, fmt.Errorf("transform at L=%g: current-density view needs a positive width, got %g", sw.L, opts.Width)
	}

	tail, err := TruncateAtPeak(sw)
	if err != nil {
		return nil, err
	}
	cs := &CurveSet{L: sw.L, Mode: opts.Mode, PeakIndex: tail.Offset}
	cs.Voltage = voltageCurve(sw, opts.Mode)

	if cs.Vstar, err = vstarCurve(tail, opts); err != nil {
		return nil, fmt.Errorf("transform at L=%g: vstar view: %w", sw.L, err)
	}
	if cs.GmOverID, err = gmOverIDCurve(tail, opts, sw.L); err != nil {
		return nil, fmt.Errorf("transform at L=%g: gm/Id view: %w", sw.L, err)
	}
	if cs.LogID, err = logIDCurve(tail, opts); err != nil {
		return nil, fmt.Errorf("transform at L=%g: log-Id view: %w", sw.L, err)
	}
	return cs, nil
}

func voltageCurve(sw *CharacteristicSweep, mode PlotMode) DomainCurve {
	fom := make([]float64, sw.Len())
	for i := range fom {
		if mode == ModeBandwidthEfficiency {
			fom[i] = sw.FT[i] * sw.GmOverID[i]
		} else {
			fom[i] = sw.GmOverID[i]
		}
	}
	series := map[Series][]float64{
		SeriesID:       sw.ID,
		SeriesFT:       sw.FT,
		SeriesSelfGain: sw.SelfGain,
		SeriesGmOverID: sw.GmOverID,
		SeriesFOM:      fom,
	}
	if sw.HasVdsat {
		series[SeriesVDSAT] = sw.VDSAT
	}
	return DomainCurve{Domain: DomainVoltage, Grid: sw.VGS, Series: series}
}

// resample fits each dependent column against xs and evaluates it on grid.
func resample(d Domain, xs, grid []float64, cols map[Series][]float64) (DomainCurve, error) {
	curve := DomainCurve{
		Domain: d,
		Grid:   grid,
		Series: make(map[Series][]float64, len(cols)+1),
		fits:   make(map[Series]interp.Predictor, len(cols)),
		fitLo:  xs[0],
		fitHi:  xs[len(xs)-1],
	}
	for s, ys := range cols {
		fit, err := fitSpline(xs, ys)
		if err != nil {
			return DomainCurve{}, fmt.Errorf("series %s: %w", s, err)
		}
		curve.fits[s] = fit
		curve.Series[s] = predictAll(fit, grid)
	}
	return curve, nil
}

func vstarCurve(t *Tail, opts TransformOptions) (DomainCurve, error) {
	vstar := make([]float64, len(t.GmOverID))
	for i, g := range t.GmOverID {
		if g <= 0 {
			return DomainCurve{}, fmt.Errorf("non-positive gm/Id %g at VGS=%g", g, t.VGS[i])
		}
		vstar[i] = 2 / g
	}
	cols := map[Series][]float64{
		SeriesID:       t.ID,
		SeriesFT:       t.FT,
		SeriesSelfGain: t.SelfGain,
		SeriesVGS:      t.VGS,
	}
	if opts.WithVdsat {
		cols[SeriesVDSAT] = t.VDSAT
	}
	spec := opts.Grids.Vstar
	grid := latticeWithin(spec.Min, spec.Max, spec.Step, vstar[0], vstar[len(vstar)-1])
	curve, err := resample(DomainVstar, vstar, grid, cols)
	if err != nil {
		return DomainCurve{}, err
	}
	fom := make([]float64, len(grid))
	ft := curve.Series[SeriesFT]
	for i, v := range grid {
		if opts.Mode == ModeBandwidthEfficiency {
			fom[i] = 2 * ft[i] / v
		} else {
			fom[i] = 2 / v
		}
	}
	curve.Series[SeriesFOM] = fom
	return curve, nil
}

func gmOverIDCurve(t *Tail, opts TransformOptions, l float64) (DomainCurve, error) {
	n := len(t.GmOverID)
	rev := func(src []float64) []float64 {
		out := make([]float64, n)
		for i, v := range src {
			out[n-1-i] = v
		}
		return out
	}
	gmid := rev(t.GmOverID)
	cols := map[Series][]float64{
		SeriesID:       rev(t.ID),
		SeriesFT:       rev(t.FT),
		SeriesSelfGain: rev(t.SelfGain),
		SeriesVGS:      rev(t.VGS),
	}
	if opts.WithVdsat {
		cols[SeriesVDSAT] = rev(t.VDSAT)
	}
	spec := opts.Grids.GmOverID
	grid := latticeWithin(spec.Min, spec.Max, spec.Step, gmid[0], gmid[n-1])
	curve, err := resample(DomainGmOverID, gmid, grid, cols)
	if err != nil {
		return DomainCurve{}, err
	}
	fom := make([]float64, len(grid))
	ft, id := curve.Series[SeriesFT], curve.Series[SeriesID]
	for i, g := range grid {
		if opts.Mode == ModeBandwidthEfficiency {
			fom[i] = g * ft[i]
		} else {
			fom[i] = id[i] / (opts.Width / l)
		}
	}
	curve.Series[SeriesFOM] = fom
	return curve, nil
}

func logIDCurve(t *Tail, opts TransformOptions) (DomainCurve, error) {
	logID := make([]float64, len(t.ID))
	for i, id := range t.ID {
		if id <= 0 {
			return DomainCurve{}, fmt.Errorf("non-positive Id %g at VGS=%g", id, t.VGS[i])
		}
		logID[i] = math.Log10(id)
	}
	cols := map[Series][]float64{
		SeriesGmOverID: t.GmOverID,
		SeriesFT:       t.FT,
		SeriesSelfGain: t.SelfGain,
		SeriesVGS:      t.VGS,
	}
	if opts.WithVdsat {
		cols[SeriesVDSAT] = t.VDSAT
	}
	lo, hi := floats.Min(logID), floats.Max(logID)
	grid := arange(lo, hi, opts.Grids.LogIDStep)
	curve, err := resample(DomainLogID, logID, grid, cols)
	if err != nil {
		return DomainCurve{}, err
	}
	fom := make([]float64, len(grid))
	ft, gmid := curve.Series[SeriesFT], curve.Series[SeriesGmOverID]
	for i := range grid {
		if opts.Mode == ModeBandwidthEfficiency {
			fom[i] = ft[i] * gmid[i]
		} else {
			fom[i] = gmid[i]
		}
	}
	curve.Series[SeriesFOM] = fom
	return curve, nil
}
