package gmid

import (
	"context"
	"fmt"
	"sort"
)

// Sample is one VGS point of a CharacteristicSweep.
type Sample struct {
	VGS      float64 `json:"vgs"`
	ID       float64 `json:"id"`
	GM       float64 `json:"gm"`
	GDS      float64 `json:"gds"`
	FT       float64 `json:"ft"`
	VT       float64 `json:"vt"`
	VDSAT    float64 `json:"vdsat,omitempty"`
	CGG      float64 `json:"cgg"`
	CDD      float64 `json:"cdd"`
	GmOverID float64 `json:"gm_over_id"`
	SelfGain float64 `json:"self_gain"`
}

// CharacteristicSweep holds every metric of one (corner, L, VDS, VSB) over an
// ascending VGS grid, stored column-wise. It is not modified after BuildSweep.
type CharacteristicSweep struct {
	L        float64
	Bias     Bias
	HasVdsat bool

	VGS      []float64
	ID       []float64
	GM       []float64
	GDS      []float64
	FT       []float64
	VT       []float64
	VDSAT    []float64 // nil unless HasVdsat
	CGG      []float64
	CDD      []float64
	GmOverID []float64
	SelfGain []float64
}

// SweepConfig selects the slice of the dataset a sweep covers.
type SweepConfig struct {
	L         float64
	Bias      Bias
	SelfGain  SelfGainMode
	WithVdsat bool
	VGS       []float64 // ascending; nil means VGSGrid(ds.Info())
}

// Len returns the number of samples.
func (s *CharacteristicSweep) Len() int { return len(s.VGS) }

// Sample returns the i-th sample.
func (s *CharacteristicSweep) Sample(i int) Sample {
	smp := Sample{
		VGS: s.VGS[i], ID: s.ID[i], GM: s.GM[i], GDS: s.GDS[i], FT: s.FT[i], VT: s.VT[i],
		CGG: s.CGG[i], CDD: s.CDD[i], GmOverID: s.GmOverID[i], SelfGain: s.SelfGain[i],
	}
	if s.HasVdsat {
		smp.VDSAT = s.VDSAT[i]
	}
	return smp
}

// BuildSweep queries the dataset over the VGS grid and assembles a sweep.
func BuildSweep(ctx context.Context, ds Dataset, cfg SweepConfig) (*CharacteristicSweep, error) {
	vgs := cfg.VGS
	if vgs == nil {
		vgs = VGSGrid(ds.Info())
	}
	if len(vgs) < 2 {
		return nil, fmt.Errorf("build sweep at L=%g: need at least 2 VGS points, got %d", cfg.L, len(vgs))
	}
	if !sort.Float64sAreSorted(vgs) {
		return nil, fmt.Errorf("build sweep at L=%g: VGS grid not ascending", cfg.L)
	}
	vgs = append([]float64(nil), vgs...)

	sw := &CharacteristicSweep{L: cfg.L, Bias: cfg.Bias, HasVdsat: cfg.WithVdsat, VGS: vgs}
	columns := []struct {
		metric Metric
		dst    *[]float64
	}{
		{MetricID, &sw.ID},
		{MetricGM, &sw.GM},
		{MetricGDS, &sw.GDS},
		{MetricFUG, &sw.FT},
		{MetricVT, &sw.VT},
		{MetricCGG, &sw.CGG},
		{MetricCDD, &sw.CDD},
		{MetricGmOverID, &sw.GmOverID},
	}
	if cfg.WithVdsat {
		columns = append(columns, struct {
			metric Metric
			dst    *[]float64
		}{MetricVDSAT, &sw.VDSAT})
	}
	for _, col := range columns {
		vals, err := ds.Lookup(ctx, col.metric, cfg.Bias, cfg.L, vgs)
		if err != nil {
			return nil, fmt.Errorf("build sweep at L=%g: %w", cfg.L, err)
		}
		if len(vals) != len(vgs) {
			return nil, fmt.Errorf("build sweep at L=%g: %s has %d values for %d VGS points", cfg.L, col.metric, len(vals), len(vgs))
		}
		*col.dst = vals
	}
	av, err := SelfGain(ctx, ds, cfg.SelfGain, cfg.Bias, cfg.L, vgs)
	if err != nil {
		return nil, fmt.Errorf("build sweep at L=%g: %w", cfg.L, err)
	}
	if len(av) != len(vgs) {
		return nil, fmt.Errorf("build sweep at L=%g: self-gain has %d values for %d VGS points", cfg.L, len(av), len(vgs))
	}
	sw.SelfGain = av
	return sw, nil
}
