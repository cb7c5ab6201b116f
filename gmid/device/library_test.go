package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmid-sizing/gmid/gmid"
)

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "technologies.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalLibrary = `
version: "1"
technologies:
  n18:
    width: 10
    fingers: 2
    max_vgs: 1.8
    step_vgs: 0.01
    max_vds: 1.8
    max_vsb: 1.0
    lengths: [0.18, 0.5, 1.0]
    corners:
      tt: {vth0: 0.45, gamma: 0.5, phi: 0.8, n: 1.3, mu_cox: 300.0e-6, cox: 8.5e-15, cov: 0.35e-15, cj: 1.0e-15, lambda: 0.05, dibl: 0.01, ileak: 1.0e-12}
      SS: {vth0: 0.50, gamma: 0.5, phi: 0.8, n: 1.32, mu_cox: 270.0e-6, cox: 8.3e-15, cov: 0.36e-15, cj: 1.05e-15, lambda: 0.05, dibl: 0.008, ileak: 0.3e-12}
`

func TestLoadLibrary_ValidYAML(t *testing.T) {
	// GIVEN a library with one technology and two corners
	path := writeTempYAML(t, minimalLibrary)

	// WHEN it is loaded
	lib, err := LoadLibrary(path)

	// THEN the technology and its ranges are available
	require.NoError(t, err)
	assert.Equal(t, []string{"n18"}, lib.Names())
	tech, err := lib.Technology("n18")
	require.NoError(t, err)
	assert.Equal(t, 2, tech.Fingers)
	assert.Equal(t, []float64{0.18, 0.5, 1.0}, tech.Lengths)
	assert.Len(t, tech.Corners, 2)
}

func TestLoadLibrary_UnknownField_Rejected(t *testing.T) {
	path := writeTempYAML(t, `
technologies:
  n18:
    widht: 10
`)
	_, err := LoadLibrary(path)
	assert.Error(t, err, "strict parsing must reject misspelled keys")
}

func TestLoadLibrary_MissingFile(t *testing.T) {
	_, err := LoadLibrary(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadLibrary_BundledTechnologies(t *testing.T) {
	// GIVEN the technology library shipped with the repository
	lib, err := LoadLibrary(filepath.Join("..", "..", "technologies.yaml"))
	require.NoError(t, err)

	// THEN both flavors validate and p18 omits the direct self-gain figure
	assert.Equal(t, []string{"n18", "p18"}, lib.Names())
	p18, err := lib.Technology("p18")
	require.NoError(t, err)
	assert.NotContains(t, p18.Metrics, "SELF_GAIN")
}

func TestTechnology_Validate_RejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Technology)
	}{
		{"zero width", func(tc *Technology) { tc.Width = 0 }},
		{"no fingers", func(tc *Technology) { tc.Fingers = 0 }},
		{"step above max", func(tc *Technology) { tc.StepVGS = 2 }},
		{"no lengths", func(tc *Technology) { tc.Lengths = nil }},
		{"unsorted lengths", func(tc *Technology) { tc.Lengths = []float64{0.5, 0.18} }},
		{"duplicate length", func(tc *Technology) { tc.Lengths = []float64{0.18, 0.18} }},
		{"unknown metric", func(tc *Technology) { tc.Metrics = []string{"ID", "BOGUS"} }},
		{"no corners", func(tc *Technology) { tc.Corners = nil }},
		{"unknown corner", func(tc *Technology) { tc.Corners = map[string]Params{"xx": testParams()} }},
		{"duplicate corner", func(tc *Technology) {
			tc.Corners = map[string]Params{"tt": testParams(), "TT": testParams()}
		}},
		{"bad slope factor", func(tc *Technology) {
			p := testParams()
			p.N = 0.5
			tc.Corners = map[string]Params{"tt": p}
		}},
		{"negative leakage", func(tc *Technology) {
			p := testParams()
			p.Ileak = -1
			tc.Corners = map[string]Params{"tt": p}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tech := testTechnology()
			tc.mutate(tech)
			assert.Error(t, tech.Validate())
		})
	}
}

func TestLibrary_Technology_UnknownName(t *testing.T) {
	lib, err := ParseLibrary([]byte(minimalLibrary))
	require.NoError(t, err)
	_, err = lib.Technology("n65")
	assert.ErrorContains(t, err, "n18")
}

func TestSource_Open_MissingCornerIsReported(t *testing.T) {
	// GIVEN a technology with only tt and ss (upper-case key) corners
	lib, err := ParseLibrary([]byte(minimalLibrary))
	require.NoError(t, err)
	src, err := NewSource(lib, "n18")
	require.NoError(t, err)
	ctx := context.Background()

	// WHEN each corner is opened
	tt, err := src.Open(ctx, gmid.CornerTT)
	require.NoError(t, err)
	ss, err := src.Open(ctx, gmid.CornerSS)
	require.NoError(t, err)
	_, err = src.Open(ctx, gmid.CornerFF)

	// THEN present corners build models and absent ones report ErrCornerMissing
	assert.Equal(t, "n18", tt.Technology())
	assert.Equal(t, 2, tt.Info().Fingers)
	assert.Equal(t, gmid.CornerSS, ss.(*Model).Corner())
	assert.ErrorIs(t, err, gmid.ErrCornerMissing)
}

func TestSource_DrivesCornerManager(t *testing.T) {
	// GIVEN a manager over a two-corner technology
	lib, err := ParseLibrary([]byte(minimalLibrary))
	require.NoError(t, err)
	src, err := NewSource(lib, "n18")
	require.NoError(t, err)
	mgr := gmid.NewManager(src)

	// WHEN it loads
	require.NoError(t, mgr.Load(context.Background(), gmid.CornerTT))

	// THEN availability reflects the library and self-gain is read directly
	assert.Equal(t, [gmid.NumCorners]bool{true, false, true, false, false}, mgr.Availability())
	assert.Equal(t, gmid.SelfGainDirect, mgr.SelfGainMode())
}
