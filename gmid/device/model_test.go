package device

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmid-sizing/gmid/gmid"
)

func testTechnology() *Technology {
	return &Technology{
		Width:   10,
		Fingers: 1,
		MaxVGS:  1.8,
		StepVGS: 0.01,
		MaxVDS:  1.8,
		MaxVSB:  1.0,
		Lengths: []float64{0.18, 0.5, 1.0},
		Corners: map[string]Params{"tt": testParams()},
	}
}

func testParams() Params {
	return Params{
		VTH0: 0.45, Gamma: 0.5, Phi: 0.8, N: 1.3, MuCox: 300e-6, Cox: 8.5e-15,
		Cov: 0.35e-15, Cj: 1e-15, Lambda: 0.05, DIBL: 0.01, Ileak: 1e-12,
	}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel("n18", testTechnology(), gmid.CornerTT, testParams())
	require.NoError(t, err)
	return m
}

var testBias = gmid.Bias{VDS: 0.9, VSB: 0}

func TestModel_GmOverID_BoundedByWeakInversionLimit(t *testing.T) {
	// GIVEN a model with slope factor n
	m := newTestModel(t)
	limit := 1 / (testParams().N * thermalVoltage)

	// WHEN gm/Id is swept over the full VGS range
	vals, err := m.Lookup(context.Background(), gmid.MetricGmOverID, testBias, 0.5, gmid.VGSGrid(m.Info()))
	require.NoError(t, err)

	// THEN every value is positive and below 1/(n*Ut)
	for i, v := range vals {
		assert.Greater(t, v, 0.0, "sample %d", i)
		assert.Less(t, v, limit, "sample %d", i)
	}
}

func TestModel_Leakage_PutsGmOverIDPeakAboveZero(t *testing.T) {
	// GIVEN a model with off-state leakage
	m := newTestModel(t)

	// WHEN a sweep is built and truncated at the gm/Id maximum
	sw, err := gmid.BuildSweep(context.Background(), m, gmid.SweepConfig{L: 0.5, Bias: testBias})
	require.NoError(t, err)
	tail, err := gmid.TruncateAtPeak(sw)

	// THEN the peak is past the first sample and the remainder strictly decreases
	require.NoError(t, err)
	assert.Greater(t, tail.Offset, 0)
}

func TestModel_FT_IncreasesWithVGS(t *testing.T) {
	m := newTestModel(t)
	vals, err := m.Lookup(context.Background(), gmid.MetricFUG, testBias, 0.18, gmid.VGSGrid(m.Info()))
	require.NoError(t, err)
	for i := 1; i < len(vals); i++ {
		assert.Greater(t, vals[i], vals[i-1], "Ft must rise at sample %d", i)
	}
}

func TestModel_SelfGain_EqualsGmOverGds(t *testing.T) {
	// GIVEN a model that serves SELF_GAIN directly
	m := newTestModel(t)
	ctx := context.Background()
	vgs := []float64{0.3, 0.6, 0.9, 1.2}

	// WHEN both forms are evaluated
	direct, err := gmid.SelfGain(ctx, m, gmid.SelfGainDirect, testBias, 0.5, vgs)
	require.NoError(t, err)
	derived, err := gmid.SelfGain(ctx, m, gmid.SelfGainDerived, testBias, 0.5, vgs)
	require.NoError(t, err)

	// THEN they agree
	assert.InDeltaSlice(t, direct, derived, 1e-9)
}

func TestModel_SelfGain_FallsWithVGS(t *testing.T) {
	m := newTestModel(t)
	vals, err := m.Lookup(context.Background(), gmid.MetricSelfGain, testBias, 1.0, gmid.VGSGrid(m.Info()))
	require.NoError(t, err)
	for i := 1; i < len(vals); i++ {
		assert.Less(t, vals[i], vals[i-1], "self-gain must fall at sample %d", i)
	}
}

func TestModel_Threshold_BodyEffectAndDIBL(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	p := testParams()

	// GIVEN zero VDS and VSB, VT is the zero-bias threshold
	vt0, err := gmid.LookupAt(ctx, m, gmid.MetricVT, gmid.Bias{}, 0.5, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, p.VTH0, vt0, 1e-12)

	// WHEN VSB rises, VT rises by the body effect
	vtBody, err := gmid.LookupAt(ctx, m, gmid.MetricVT, gmid.Bias{VSB: 0.5}, 0.5, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, p.Gamma*(math.Sqrt(p.Phi+0.5)-math.Sqrt(p.Phi)), vtBody-vt0, 1e-12)

	// WHEN VDS rises, VT drops more at shorter length
	vtShort, err := gmid.LookupAt(ctx, m, gmid.MetricVT, gmid.Bias{VDS: 1}, 0.18, 0.5)
	require.NoError(t, err)
	vtLong, err := gmid.LookupAt(ctx, m, gmid.MetricVT, gmid.Bias{VDS: 1}, 1.0, 0.5)
	require.NoError(t, err)
	assert.Less(t, vtShort, vtLong)
}

func TestModel_Lookup_RejectsOutOfRange(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	tests := []struct {
		name string
		bias gmid.Bias
		l    float64
		vgs  float64
	}{
		{"length below range", testBias, 0.1, 0.5},
		{"length above range", testBias, 2.0, 0.5},
		{"negative VDS", gmid.Bias{VDS: -0.1}, 0.5, 0.5},
		{"VSB above range", gmid.Bias{VDS: 0.9, VSB: 1.5}, 0.5, 0.5},
		{"VGS above range", testBias, 0.5, 1.9},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gmid.LookupAt(ctx, m, gmid.MetricID, tc.bias, tc.l, tc.vgs)
			assert.ErrorIs(t, err, gmid.ErrOutOfRange)
		})
	}
}

func TestModel_Lookup_RejectsUnlistedMetric(t *testing.T) {
	// GIVEN a technology that omits SELF_GAIN
	tech := testTechnology()
	tech.Metrics = []string{"ID", "GM", "GDS", "GMOVERID", "FUG", "VT", "CGG", "CDD"}
	m, err := NewModel("p18", tech, gmid.CornerTT, testParams())
	require.NoError(t, err)

	// WHEN SELF_GAIN is requested
	_, err = gmid.LookupAt(context.Background(), m, gmid.MetricSelfGain, testBias, 0.5, 0.5)

	// THEN the lookup fails and the session falls back to gm/gds
	assert.ErrorIs(t, err, gmid.ErrMetricUnavailable)
	assert.Equal(t, gmid.SelfGainDerived, gmid.DetectSelfGainMode(m))
	assert.False(t, m.HasMetric(gmid.MetricVDSAT))
}

func TestModel_Lookup_HonorsCancellation(t *testing.T) {
	m := newTestModel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Lookup(ctx, gmid.MetricID, testBias, 0.5, []float64{0.5})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_Info_ReturnsCopyOfLengths(t *testing.T) {
	m := newTestModel(t)
	info := m.Info()
	info.Lengths[0] = 99
	assert.Equal(t, 0.18, m.Info().Lengths[0])
}

func TestSoftplus_MatchesDefinitionAndStaysFinite(t *testing.T) {
	for _, x := range []float64{-20, -1, 0, 1, 20} {
		assert.InDelta(t, math.Log(1+math.Exp(x)), softplus(x), 1e-12)
	}
	assert.InDelta(t, 1000.0, softplus(1000), 1e-9)
	assert.InDelta(t, 0.5, sigmoid(0), 1e-15)
	assert.False(t, math.IsNaN(sigmoid(-1000)))
}
