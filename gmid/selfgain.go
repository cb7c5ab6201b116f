package gmid

import (
	"context"
	"fmt"
)

// SelfGainMode selects how the intrinsic gain is obtained from a dataset.
// It is fixed once per loaded dataset.
type SelfGainMode int

const (
	// SelfGainDirect reads SELF_GAIN from the dataset.
	SelfGainDirect SelfGainMode = iota
	// SelfGainDerived computes GM/GDS.
	SelfGainDerived
)

func (m SelfGainMode) String() string {
	switch m {
	case SelfGainDirect:
		return "direct"
	case SelfGainDerived:
		return "gm/gds"
	default:
		return fmt.Sprintf("SelfGainMode(%d)", int(m))
	}
}

// DetectSelfGainMode picks the direct figure when the dataset carries it.
func DetectSelfGainMode(ds Dataset) SelfGainMode {
	if ds.HasMetric(MetricSelfGain) {
		return SelfGainDirect
	}
	return SelfGainDerived
}

// SelfGain evaluates the self-gain over a VGS vector.
func SelfGain(ctx context.Context, ds Dataset, mode SelfGainMode, bias Bias, l float64, vgs []float64) ([]float64, error) {
	if mode == SelfGainDirect {
		return ds.Lookup(ctx, MetricSelfGain, bias, l, vgs)
	}
	gm, err := ds.Lookup(ctx, MetricGM, bias, l, vgs)
	if err != nil {
		return nil, fmt.Errorf("self-gain: %w", err)
	}
	gds, err := ds.Lookup(ctx, MetricGDS, bias, l, vgs)
	if err != nil {
		return nil, fmt.Errorf("self-gain: %w", err)
	}
	if len(gm) != len(gds) {
		return nil, fmt.Errorf("self-gain: GM has %d values, GDS has %d", len(gm), len(gds))
	}
	av := make([]float64, len(gm))
	for i := range gm {
		if gds[i] == 0 {
			return nil, fmt.Errorf("self-gain: zero GDS at VGS=%g", vgs[i])
		}
		av[i] = gm[i] / gds[i]
	}
	return av, nil
}

// SelfGainAt evaluates the self-gain at a single VGS.
func SelfGainAt(ctx context.Context, ds Dataset, mode SelfGainMode, bias Bias, l, vgs float64) (float64, error) {
	if mode == SelfGainDirect {
		return LookupAt(ctx, ds, MetricSelfGain, bias, l, vgs)
	}
	gm, err := LookupAt(ctx, ds, MetricGM, bias, l, vgs)
	if err != nil {
		return 0, fmt.Errorf("self-gain: %w", err)
	}
	gds, err := LookupAt(ctx, ds, MetricGDS, bias, l, vgs)
	if err != nil {
		return 0, fmt.Errorf("self-gain: %w", err)
	}
	if gds == 0 {
		return 0, fmt.Errorf("self-gain: zero GDS at VGS=%g", vgs)
	}
	return gm / gds, nil
}
