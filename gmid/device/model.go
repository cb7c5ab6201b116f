// Package device provides an analytic MOSFET model that serves gm/Id
// characterization data through the gmid.Dataset interface.
//
// The model is a charge-based EKV form: a single interpolation function covers
// weak, moderate and strong inversion, so gm/Id, Ft and self-gain vary smoothly
// with VGS the way a tabulated characterization would.
package device

import (
	"context"
	"fmt"
	"math"

	"github.com/gmid-sizing/gmid/gmid"
)

// thermalVoltage is kT/q at 300 K, in volts.
const thermalVoltage = 0.025852

// rangeTol absorbs the rounding of generated VGS grids at the range edges.
const rangeTol = 1e-9

// Params are the EKV parameters of one process corner. Lengths and widths are
// in micrometres.
type Params struct {
	VTH0   float64 `yaml:"vth0"`   // zero-bias threshold [V]
	Gamma  float64 `yaml:"gamma"`  // body-effect coefficient [V^0.5]
	Phi    float64 `yaml:"phi"`    // surface potential 2*phi_F [V]
	N      float64 `yaml:"n"`      // subthreshold slope factor
	MuCox  float64 `yaml:"mu_cox"` // [A/V^2]
	Cox    float64 `yaml:"cox"`    // gate oxide capacitance [F/um^2]
	Cov    float64 `yaml:"cov"`    // overlap capacitance per edge [F/um]
	Cj     float64 `yaml:"cj"`     // drain junction capacitance [F/um]
	Lambda float64 `yaml:"lambda"` // channel-length modulation [um/V]
	DIBL   float64 `yaml:"dibl"`   // [um*V/V]
	Ileak  float64 `yaml:"ileak"`  // off-state leakage [A/um]
}

// Validate checks the physical ranges of the parameters.
func (p Params) Validate() error {
	if p.N < 1 {
		return fmt.Errorf("n must be at least 1, got %g", p.N)
	}
	if !(p.MuCox > 0) {
		return fmt.Errorf("mu_cox must be positive, got %g", p.MuCox)
	}
	if !(p.Cox > 0) {
		return fmt.Errorf("cox must be positive, got %g", p.Cox)
	}
	if !(p.Phi > 0) {
		return fmt.Errorf("phi must be positive, got %g", p.Phi)
	}
	for name, v := range map[string]float64{
		"gamma": p.Gamma, "cov": p.Cov, "cj": p.Cj, "lambda": p.Lambda, "dibl": p.DIBL, "ileak": p.Ileak,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s must be non-negative, got %g", name, v)
		}
	}
	return nil
}

// Model is the dataset of one (technology, corner) pair. It is immutable and
// safe for concurrent use.
type Model struct {
	tech    string
	corner  gmid.Corner
	params  Params
	info    gmid.DatasetInfo
	maxVDS  float64
	metrics map[gmid.Metric]bool
}

var _ gmid.Dataset = (*Model)(nil)

// NewModel builds the dataset of one corner of a technology.
func NewModel(name string, t *Technology, corner gmid.Corner, p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("technology %s corner %s: %w", name, corner, err)
	}
	metrics := make(map[gmid.Metric]bool)
	if len(t.Metrics) == 0 {
		for _, m := range allMetrics {
			metrics[m] = true
		}
	} else {
		for _, m := range t.Metrics {
			metrics[gmid.Metric(m)] = true
		}
	}
	return &Model{
		tech:   name,
		corner: corner,
		params: p,
		info: gmid.DatasetInfo{
			MaxVGS:  t.MaxVGS,
			StepVGS: t.StepVGS,
			MaxVSB:  t.MaxVSB,
			Lengths: append([]float64(nil), t.Lengths...),
			Width:   t.Width,
			Fingers: t.Fingers,
		},
		maxVDS:  t.MaxVDS,
		metrics: metrics,
	}, nil
}

var allMetrics = []gmid.Metric{
	gmid.MetricID, gmid.MetricGM, gmid.MetricGDS, gmid.MetricGmOverID, gmid.MetricFUG,
	gmid.MetricVT, gmid.MetricVDSAT, gmid.MetricCGG, gmid.MetricCDD, gmid.MetricSelfGain,
}

func (m *Model) Technology() string { return m.tech }

// Corner returns the process corner the model was built for.
func (m *Model) Corner() gmid.Corner { return m.corner }

func (m *Model) Info() gmid.DatasetInfo {
	info := m.info
	info.Lengths = append([]float64(nil), m.info.Lengths...)
	return info
}

func (m *Model) HasMetric(metric gmid.Metric) bool { return m.metrics[metric] }

// Lookup evaluates one metric over a VGS vector at the characterization width.
func (m *Model) Lookup(ctx context.Context, metric gmid.Metric, bias gmid.Bias, l float64, vgs []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !m.metrics[metric] {
		return nil, fmt.Errorf("%s/%s lookup %s: %w", m.tech, m.corner, metric, gmid.ErrMetricUnavailable)
	}
	if err := m.checkRange(bias, l); err != nil {
		return nil, fmt.Errorf("%s/%s lookup %s: %w", m.tech, m.corner, metric, err)
	}
	out := make([]float64, len(vgs))
	for i, v := range vgs {
		if v < -rangeTol || v > m.info.MaxVGS+rangeTol {
			return nil, fmt.Errorf("%s/%s lookup %s: %w: VGS=%g not in [0, %g]", m.tech, m.corner, metric, gmid.ErrOutOfRange, v, m.info.MaxVGS)
		}
		out[i] = m.point(bias, l, v).value(metric)
	}
	return out, nil
}

func (m *Model) checkRange(bias gmid.Bias, l float64) error {
	lengths := m.info.Lengths
	if l < lengths[0]*(1-rangeTol) || l > lengths[len(lengths)-1]*(1+rangeTol) {
		return fmt.Errorf("%w: L=%g not in [%g, %g]", gmid.ErrOutOfRange, l, lengths[0], lengths[len(lengths)-1])
	}
	if bias.VDS < -rangeTol || bias.VDS > m.maxVDS+rangeTol {
		return fmt.Errorf("%w: VDS=%g not in [0, %g]", gmid.ErrOutOfRange, bias.VDS, m.maxVDS)
	}
	if bias.VSB < -rangeTol || bias.VSB > m.info.MaxVSB+rangeTol {
		return fmt.Errorf("%w: VSB=%g not in [0, %g]", gmid.ErrOutOfRange, bias.VSB, m.info.MaxVSB)
	}
	return nil
}

// opPoint is the small-signal state of the device at one bias point.
type opPoint struct {
	id, gm, gds, vt, vdsat, cgg, cdd float64
}

func (p opPoint) value(metric gmid.Metric) float64 {
	switch metric {
	case gmid.MetricID:
		return p.id
	case gmid.MetricGM:
		return p.gm
	case gmid.MetricGDS:
		return p.gds
	case gmid.MetricGmOverID:
		return p.gm / p.id
	case gmid.MetricFUG:
		return p.gm / (2 * math.Pi * p.cgg)
	case gmid.MetricVT:
		return p.vt
	case gmid.MetricVDSAT:
		return p.vdsat
	case gmid.MetricCGG:
		return p.cgg
	case gmid.MetricCDD:
		return p.cdd
	case gmid.MetricSelfGain:
		return p.gm / p.gds
	default:
		return math.NaN()
	}
}

func (m *Model) point(bias gmid.Bias, l, vgs float64) opPoint {
	p := m.params
	w := m.info.Width
	ut := thermalVoltage
	nut := p.N * ut

	vt := p.VTH0 + p.Gamma*(math.Sqrt(p.Phi+bias.VSB)-math.Sqrt(p.Phi)) - p.DIBL*bias.VDS/l
	x := (vgs - vt) / (2 * nut)
	f := softplus(x)
	sig := sigmoid(x)
	ic := f * f

	is := 2 * p.N * p.MuCox * (w / l) * ut * ut
	clm := 1 + p.Lambda/l*bias.VDS

	idCore := is * ic
	gm := is * clm * f * sig / nut
	return opPoint{
		id:    idCore*clm + p.Ileak*w,
		gm:    gm,
		gds:   p.Lambda/l*idCore + p.DIBL/l*gm,
		vt:    vt,
		vdsat: 2*ut*math.Sqrt(ic+0.25) + 3*ut,
		cgg:   w * (l*p.Cox*(0.1+0.6*sig) + 2*p.Cov),
		cdd:   w * (p.Cj + p.Cov),
	}
}

// softplus is ln(1+e^x) without overflow for large x.
func softplus(x float64) float64 {
	if x > 30 {
		return x + math.Exp(-x)
	}
	return math.Log1p(math.Exp(x))
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
