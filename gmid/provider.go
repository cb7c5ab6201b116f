package gmid

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Metric names an electrical parameter served by a Dataset.
type Metric string

const (
	MetricID       Metric = "ID"
	MetricGM       Metric = "GM"
	MetricGDS      Metric = "GDS"
	MetricGmOverID Metric = "GMOVERID"
	MetricFUG      Metric = "FUG"
	MetricVT       Metric = "VT"
	MetricVDSAT    Metric = "VDSAT"
	MetricCGG      Metric = "CGG"
	MetricCDD      Metric = "CDD"
	MetricSelfGain Metric = "SELF_GAIN"
)

// validMetrics maps accepted metric names.
var validMetrics = map[Metric]bool{
	MetricID: true, MetricGM: true, MetricGDS: true, MetricGmOverID: true, MetricFUG: true,
	MetricVT: true, MetricVDSAT: true, MetricCGG: true, MetricCDD: true, MetricSelfGain: true,
}

// IsValidMetric returns true if name is a recognized metric.
func IsValidMetric(name string) bool {
	return validMetrics[Metric(name)]
}

var (
	// ErrMetricUnavailable is returned when a dataset does not carry the requested metric.
	ErrMetricUnavailable = errors.New("metric not available in dataset")
	// ErrOutOfRange is returned when a query point lies outside the characterized range.
	ErrOutOfRange = errors.New("query outside characterized range")
)

// Bias holds the terminal voltages held constant during a VGS sweep.
type Bias struct {
	VDS float64 `yaml:"vds" json:"vds"`
	VSB float64 `yaml:"vsb" json:"vsb"`
}

// DatasetInfo describes the characterized grid of a dataset.
type DatasetInfo struct {
	MaxVGS  float64   `json:"max_vgs"`
	StepVGS float64   `json:"step_vgs"`
	MaxVSB  float64   `json:"max_vsb"`
	Lengths []float64 `json:"lengths"` // characterized gate lengths, ascending
	Width   float64   `json:"width"`   // characterization width; every lookup is at this width
	Fingers int       `json:"fingers"`
}

// Dataset is the device-model data provider for one (technology, corner) pair.
// Lookup is vectorized over VGS and must fail rather than return placeholders.
// Implementations must be safe for concurrent readers.
type Dataset interface {
	Technology() string
	Info() DatasetInfo
	HasMetric(m Metric) bool
	Lookup(ctx context.Context, m Metric, bias Bias, l float64, vgs []float64) ([]float64, error)
}

// LookupAt evaluates a single metric at one VGS.
func LookupAt(ctx context.Context, ds Dataset, m Metric, bias Bias, l, vgs float64) (float64, error) {
	vals, err := ds.Lookup(ctx, m, bias, l, []float64{vgs})
	if err != nil {
		return 0, err
	}
	if len(vals) != 1 {
		return 0, fmt.Errorf("lookup %s: expected 1 value, got %d", m, len(vals))
	}
	return vals[0], nil
}

// VGSGrid returns the default ascending sweep grid [0, MaxVGS) at StepVGS.
func VGSGrid(info DatasetInfo) []float64 {
	return arange(0, info.MaxVGS, info.StepVGS)
}

// arange returns start, start+step, ... up to but excluding stop.
// A negative step produces a descending sequence. A stop that lies on the
// grid within rounding is excluded.
func arange(start, stop, step float64) []float64 {
	if step == 0 || math.IsNaN(step) {
		return nil
	}
	n := int(math.Ceil((stop-start)/step - 1e-9))
	if n <= 0 {
		return nil
	}
	seq := make([]float64, n)
	for i := range seq {
		seq[i] = start + float64(i)*step
	}
	return seq
}
