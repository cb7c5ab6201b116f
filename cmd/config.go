package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gmid-sizing/gmid/gmid"
)

// SessionConfig is the persistent sizing session, loadable from a YAML file.
// Fields absent from the file keep their defaults.
type SessionConfig struct {
	Library    string          `yaml:"library"`
	Technology string          `yaml:"technology"`
	Corner     string          `yaml:"corner"`
	Bias       gmid.Bias       `yaml:"bias"`
	DesignL    float64         `yaml:"design_length"`
	ReferenceL float64         `yaml:"reference_length"`
	PlotMode   string          `yaml:"plot_mode"`
	Vdsat      bool            `yaml:"vdsat"`
	Levels     int             `yaml:"levels"`
	Grids      gmid.GridConfig `yaml:"grids"`
	Trends     TrendConfig     `yaml:"trends"`
}

// TrendConfig selects the inversion levels of the length trends.
type TrendConfig struct {
	Enabled bool    `yaml:"enabled"`
	Weak    float64 `yaml:"weak_gm_over_id"`
	Strong  float64 `yaml:"strong_gm_over_id"`
}

// DefaultSessionConfig returns the configuration used when no file is given.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		Library:    "technologies.yaml",
		Technology: "n18",
		Corner:     "tt",
		Bias:       gmid.Bias{VDS: 0.9, VSB: 0},
		PlotMode:   "bandwidth",
		Levels:     gmid.MaxPrecisionLevels,
		Grids:      gmid.DefaultGridConfig(),
		Trends: TrendConfig{
			Weak:   gmid.WeakInversionGmOverID,
			Strong: gmid.StrongInversionGmOverID,
		},
	}
}

// LoadSessionConfig reads a YAML session file over the defaults.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session config: %w", err)
	}
	cfg := DefaultSessionConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing session config: %w", err)
	}
	return cfg, nil
}

// Validate checks names and ranges. Lengths of zero mean "not set" and are
// resolved against the technology later.
func (c *SessionConfig) Validate() error {
	if c.Library == "" {
		return fmt.Errorf("library path must be set")
	}
	if c.Technology == "" {
		return fmt.Errorf("technology must be set")
	}
	if _, err := gmid.ParseCorner(c.Corner); err != nil {
		return err
	}
	if _, err := gmid.ParsePlotMode(c.PlotMode); err != nil {
		return err
	}
	if c.Bias.VDS < 0 || c.Bias.VSB < 0 {
		return fmt.Errorf("bias voltages must be non-negative, got vds=%g vsb=%g", c.Bias.VDS, c.Bias.VSB)
	}
	if c.DesignL < 0 || c.ReferenceL < 0 {
		return fmt.Errorf("lengths must be non-negative, got design=%g reference=%g", c.DesignL, c.ReferenceL)
	}
	if c.Levels < 1 || c.Levels > gmid.MaxPrecisionLevels {
		return fmt.Errorf("levels must be in [1, %d], got %d", gmid.MaxPrecisionLevels, c.Levels)
	}
	if err := c.Grids.Validate(); err != nil {
		return err
	}
	if c.Trends.Enabled && (!(c.Trends.Weak > 0) || !(c.Trends.Strong > 0)) {
		return fmt.Errorf("trend gm/Id targets must be positive, got weak=%g strong=%g", c.Trends.Weak, c.Trends.Strong)
	}
	return nil
}

// resolveLengths fills an unset design length with the longest characterized
// length and an unset reference length with the shortest.
func (c *SessionConfig) resolveLengths(info gmid.DatasetInfo) {
	if len(info.Lengths) == 0 {
		return
	}
	if c.DesignL == 0 {
		c.DesignL = info.Lengths[len(info.Lengths)-1]
	}
	if c.ReferenceL == 0 {
		c.ReferenceL = info.Lengths[0]
	}
}

// rebuildRequest assembles the inputs of a corner rebuild.
func (c *SessionConfig) rebuildRequest(trendLengths []float64) gmid.RebuildRequest {
	mode, _ := gmid.ParsePlotMode(c.PlotMode)
	req := gmid.RebuildRequest{
		DesignL:    c.DesignL,
		ReferenceL: c.ReferenceL,
		Bias:       c.Bias,
		Mode:       mode,
		WithVdsat:  c.Vdsat,
		Grids:      c.Grids,
	}
	if c.Trends.Enabled {
		req.TrendLengths = trendLengths
		req.WeakGmOverID = c.Trends.Weak
		req.StrongGmOverID = c.Trends.Strong
	}
	return req
}
