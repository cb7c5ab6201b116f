package gmid

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// metricFn computes one metric of a synthetic device.
type metricFn func(l, vgs float64, bias Bias) float64

// fakeDataset is a function-backed Dataset for tests.
type fakeDataset struct {
	tech    string
	info    DatasetInfo
	metrics map[Metric]metricFn

	// gate, when non-nil, blocks every Lookup until closed; entered is
	// closed on the first blocked Lookup.
	gate      chan struct{}
	entered   chan struct{}
	enterOnce sync.Once

	mu    sync.Mutex
	calls int
}

func (d *fakeDataset) Technology() string { return d.tech }
func (d *fakeDataset) Info() DatasetInfo  { return d.info }

func (d *fakeDataset) HasMetric(m Metric) bool {
	_, ok := d.metrics[m]
	return ok
}

func (d *fakeDataset) Lookup(ctx context.Context, m Metric, bias Bias, l float64, vgs []float64) ([]float64, error) {
	if d.gate != nil {
		d.enterOnce.Do(func() { close(d.entered) })
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	fn, ok := d.metrics[m]
	if !ok {
		return nil, fmt.Errorf("fake %s: %w", m, ErrMetricUnavailable)
	}
	out := make([]float64, len(vgs))
	for i, v := range vgs {
		if v < -1e-9 || v > d.info.MaxVGS+1e-9 {
			return nil, fmt.Errorf("fake %s: %w: VGS=%g", m, ErrOutOfRange, v)
		}
		out[i] = fn(l, v, bias)
	}
	return out, nil
}

func (d *fakeDataset) lookups() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func testInfo() DatasetInfo {
	return DatasetInfo{
		MaxVGS:  1.8,
		StepVGS: 0.01,
		MaxVSB:  1.0,
		Lengths: []float64{0.18, 0.5, 1.0},
		Width:   10,
		Fingers: 1,
	}
}

// linearDataset has gm/Id falling linearly from 20 at VGS=0 to 2 at VGS=1.8,
// Ft rising as 1 GHz/V and self-gain falling from 100 to 10.
func linearDataset() *fakeDataset {
	return &fakeDataset{
		tech: "linear",
		info: testInfo(),
		metrics: map[Metric]metricFn{
			MetricGmOverID: func(_, v float64, _ Bias) float64 { return 20 - 10*v },
			MetricFUG:      func(_, v float64, _ Bias) float64 { return 1e9 * v },
			MetricSelfGain: func(_, v float64, _ Bias) float64 { return 100 - 50*v },
			MetricGM:       func(_, v float64, _ Bias) float64 { return 1e-3 * (1 + v) },
			MetricGDS:      func(_, v float64, _ Bias) float64 { return 1e-3 * (1 + v) / (100 - 50*v) },
			MetricID:       func(_, v float64, _ Bias) float64 { return 1e-3 * (1 + v) / (20 - 10*v) },
			MetricVT:       func(_, _ float64, _ Bias) float64 { return 0.45 },
			MetricCGG:      func(_, _ float64, _ Bias) float64 { return 1e-14 },
			MetricCDD:      func(_, _ float64, _ Bias) float64 { return 2e-15 },
		},
	}
}

// smoothState is the charge-based state of the smooth synthetic device.
type smoothState struct {
	id, gm, gds, cgg, vdsat float64
}

const (
	smoothVT    = 0.45
	smoothSlope = 0.07 // 2*n*Ut [V]
	smoothLeak  = 1e-11
)

func smoothAt(l, v float64) smoothState {
	x := (v - smoothVT) / smoothSlope
	f := math.Log1p(math.Exp(x))
	s := 1 / (1 + math.Exp(-x))
	is := 1e-6 / l
	gm := is * 2 * f * s / smoothSlope
	return smoothState{
		id:    is*f*f + smoothLeak,
		gm:    gm,
		gds:   0.05/l*is*f*f + 0.01/l*gm,
		cgg:   1e-14 * l * (0.2 + 0.6*s),
		vdsat: 0.05*math.Sqrt(f*f+0.25) + 0.075,
	}
}

// smoothDataset behaves like a real device: gm/Id peaks just above VGS=0
// because of leakage, then falls; Ft rises and self-gain falls with VGS.
func smoothDataset() *fakeDataset {
	return &fakeDataset{
		tech: "smooth",
		info: testInfo(),
		metrics: map[Metric]metricFn{
			MetricID:       func(l, v float64, _ Bias) float64 { return smoothAt(l, v).id },
			MetricGM:       func(l, v float64, _ Bias) float64 { return smoothAt(l, v).gm },
			MetricGDS:      func(l, v float64, _ Bias) float64 { return smoothAt(l, v).gds },
			MetricGmOverID: func(l, v float64, _ Bias) float64 { s := smoothAt(l, v); return s.gm / s.id },
			MetricFUG:      func(l, v float64, _ Bias) float64 { s := smoothAt(l, v); return s.gm / (2 * math.Pi * s.cgg) },
			MetricVT:       func(_, _ float64, _ Bias) float64 { return smoothVT },
			MetricVDSAT:    func(l, v float64, _ Bias) float64 { return smoothAt(l, v).vdsat },
			MetricCGG:      func(l, v float64, _ Bias) float64 { return smoothAt(l, v).cgg },
			MetricCDD:      func(_, _ float64, _ Bias) float64 { return 2e-15 },
		},
	}
}

// mapSource serves fixed datasets per corner; absent corners are missing.
type mapSource map[Corner]Dataset

func (s mapSource) Open(_ context.Context, c Corner) (Dataset, error) {
	ds, ok := s[c]
	if !ok {
		return nil, fmt.Errorf("fake %s: %w", c, ErrCornerMissing)
	}
	return ds, nil
}
