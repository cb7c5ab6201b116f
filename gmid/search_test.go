package gmid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchVGSG_LinearGmOverID_FindsTarget(t *testing.T) {
	// GIVEN gm/Id falling linearly from 20 to 2 over [0, 1.8]
	s := NewSearcher(linearDataset(), Bias{VDS: 0.9}, SelfGainDirect)

	// WHEN gm/Id = 15 is searched at every precision
	for levels := 1; levels <= MaxPrecisionLevels; levels++ {
		res, err := s.SearchVGSG(context.Background(), 15, 0.5, levels)

		// THEN the search succeeds inside (0.4, 0.6)
		require.NoError(t, err)
		assert.Equal(t, StatusFound, res.Status, "levels=%d", levels)
		assert.Greater(t, res.VGS, 0.4, "levels=%d", levels)
		assert.Less(t, res.VGS, 0.6, "levels=%d", levels)
	}
}

func TestSearchVGSG_FullPrecision_ResolvesToFinestStep(t *testing.T) {
	s := NewSearcher(linearDataset(), Bias{VDS: 0.9}, SelfGainDirect)
	res, err := s.SearchVGSG(context.Background(), 15, 0.5, MaxPrecisionLevels)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.VGS, 2*SearchSteps[MaxPrecisionLevels-1])
}

func TestSearchVGSG_OffGridTarget_ReturnsLowerBracketBound(t *testing.T) {
	// GIVEN a target between coarse samples: gm/Id = 12.34 at VGS = 0.766
	s := NewSearcher(linearDataset(), Bias{VDS: 0.9}, SelfGainDirect)

	// WHEN searched at full precision
	res, err := s.SearchVGSG(context.Background(), 12.34, 0.5, MaxPrecisionLevels)

	// THEN the result is the last VGS whose gm/Id still meets the target
	require.NoError(t, err)
	assert.Equal(t, StatusFound, res.Status)
	assert.InDelta(t, 0.766, res.VGS, 1.5e-4)
	assert.GreaterOrEqual(t, 20-10*res.VGS, 12.34-1e-9)
}

func TestSearchVGSG_TargetAboveAllSamples_Overflows(t *testing.T) {
	s := NewSearcher(linearDataset(), Bias{VDS: 0.9}, SelfGainDirect)
	res, err := s.SearchVGSG(context.Background(), 25, 0.5, MaxPrecisionLevels)
	require.NoError(t, err)
	assert.Equal(t, StatusOverflow, res.Status)
	assert.False(t, res.Found())
}

func TestSearchVGSG_TargetBelowAllSamples_Underflows(t *testing.T) {
	s := NewSearcher(linearDataset(), Bias{VDS: 0.9}, SelfGainDirect)
	res, err := s.SearchVGSG(context.Background(), 1, 0.5, MaxPrecisionLevels)
	require.NoError(t, err)
	assert.Equal(t, StatusUnderflow, res.Status)
}

func TestSearchVGSF_AscendingFT(t *testing.T) {
	// GIVEN Ft rising as 1 GHz/V
	s := NewSearcher(linearDataset(), Bias{VDS: 0.9}, SelfGainDirect)
	ctx := context.Background()

	// WHEN 0.73 GHz is searched
	res, err := s.SearchVGSF(ctx, 0.73e9, 0.5, MaxPrecisionLevels)

	// THEN VGS is just below 0.73 and the bracket holds the target
	require.NoError(t, err)
	assert.Equal(t, StatusFound, res.Status)
	assert.InDelta(t, 0.73, res.VGS, 2e-4)
	assert.LessOrEqual(t, res.VGS*1e9, 0.73e9+1e-3)

	over, err := s.SearchVGSF(ctx, 5e9, 0.5, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusOverflow, over.Status)

	under, err := s.SearchVGSF(ctx, -1, 0.5, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusUnderflow, under.Status)
}

func TestSearchVGSA_DirectAndDerived_Agree(t *testing.T) {
	// GIVEN a dataset whose SELF_GAIN equals GM/GDS
	ds := linearDataset()
	ctx := context.Background()

	// WHEN self-gain 60 is searched in both modes
	direct, err := NewSearcher(ds, Bias{VDS: 0.9}, SelfGainDirect).SearchVGSA(ctx, 60, 0.5, 3)
	require.NoError(t, err)
	derived, err := NewSearcher(ds, Bias{VDS: 0.9}, SelfGainDerived).SearchVGSA(ctx, 60, 0.5, 3)
	require.NoError(t, err)

	// THEN both land near VGS = 0.8
	assert.Equal(t, StatusFound, direct.Status)
	assert.InDelta(t, direct.VGS, derived.VGS, 1e-2)
	assert.InDelta(t, 0.8, direct.VGS, 1e-2)
}

func TestSearch_InvalidLevels(t *testing.T) {
	s := NewSearcher(linearDataset(), Bias{}, SelfGainDirect)
	for _, levels := range []int{0, -1, MaxPrecisionLevels + 1} {
		_, err := s.SearchVGSG(context.Background(), 10, 0.5, levels)
		assert.ErrorIs(t, err, ErrInvalidPrecision, "levels=%d", levels)
	}
}

func TestSearchVGSG_RisingThenFallingCurve_UsesTailOnly(t *testing.T) {
	// GIVEN a device whose gm/Id rises at low VGS before falling
	s := NewSearcher(smoothDataset(), Bias{VDS: 0.9}, SelfGainDerived)

	// WHEN a mid-range target is searched
	res, err := s.SearchVGSG(context.Background(), 10, 0.5, MaxPrecisionLevels)

	// THEN the solution sits on the falling side, above the peak
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	st := smoothAt(0.5, res.VGS)
	assert.InDelta(t, 10, st.gm/st.id, 0.05)
	assert.Greater(t, res.VGS, smoothVT)
}

func TestSearch_NonMonotonicData_ReturnsError(t *testing.T) {
	// GIVEN gm/Id with a dip on the falling side
	ds := linearDataset()
	ds.metrics[MetricGmOverID] = func(_, v float64, _ Bias) float64 {
		if v > 0.95 && v < 1.25 {
			return 5
		}
		return 20 - 10*v
	}
	s := NewSearcher(ds, Bias{}, SelfGainDirect)

	// WHEN searched
	_, err := s.SearchVGSG(context.Background(), 15, 0.5, 1)

	// THEN the inversion is refused
	assert.ErrorIs(t, err, ErrNotMonotonic)
}

func TestSearch_LookupFailure_Propagates(t *testing.T) {
	ds := linearDataset()
	delete(ds.metrics, MetricFUG)
	s := NewSearcher(ds, Bias{}, SelfGainDirect)
	_, err := s.SearchVGSF(context.Background(), 1e9, 0.5, 1)
	assert.ErrorIs(t, err, ErrMetricUnavailable)
}

func TestSearchStatus_String(t *testing.T) {
	assert.Equal(t, "underflow", StatusUnderflow.String())
	assert.Equal(t, "found", StatusFound.String())
	assert.Equal(t, "overflow", StatusOverflow.String())
	text, err := StatusFound.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "found", string(text))
}

func TestArange_MatchesHalfOpenInterval(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0, 0.5, 1.0, 1.5}, arange(0, 2, 0.5), 1e-12)
	assert.InDeltaSlice(t, []float64{1.8, 1.3, 0.8, 0.3}, arange(1.8, 0, -0.5), 1e-12)
	assert.Empty(t, arange(1, 0, 0.1))
	assert.Empty(t, arange(0, 1, 0))
}
