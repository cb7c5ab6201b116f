package device

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gmid-sizing/gmid/gmid"
)

// Library is a set of technologies, loadable from a YAML file.
type Library struct {
	Version      string                 `yaml:"version"`
	Technologies map[string]*Technology `yaml:"technologies"`
}

// Technology describes the characterized ranges of one device flavor and its
// per-corner parameters. Corners absent from Corners are unavailable.
type Technology struct {
	Description string            `yaml:"description"`
	Width       float64           `yaml:"width"` // characterization width [um]
	Fingers     int               `yaml:"fingers"`
	MaxVGS      float64           `yaml:"max_vgs"`
	StepVGS     float64           `yaml:"step_vgs"`
	MaxVDS      float64           `yaml:"max_vds"`
	MaxVSB      float64           `yaml:"max_vsb"`
	Lengths     []float64         `yaml:"lengths"` // [um], ascending
	Metrics     []string          `yaml:"metrics"` // empty means every metric
	Corners     map[string]Params `yaml:"corners"`
}

// LoadLibrary reads and parses a YAML technology library.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading technology library: %w", err)
	}
	lib, err := ParseLibrary(data)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("loaded technology library %s with %d technologies", path, len(lib.Technologies))
	return lib, nil
}

// ParseLibrary decodes and validates a YAML technology library.
func ParseLibrary(data []byte) (*Library, error) {
	var lib Library
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&lib); err != nil {
		return nil, fmt.Errorf("parsing technology library: %w", err)
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// Validate checks every technology in the library.
func (l *Library) Validate() error {
	if len(l.Technologies) == 0 {
		return fmt.Errorf("technology library defines no technologies")
	}
	for _, name := range l.Names() {
		t := l.Technologies[name]
		if t == nil {
			return fmt.Errorf("technology %s: empty definition", name)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("technology %s: %w", name, err)
		}
	}
	return nil
}

// Names returns the technology names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.Technologies))
	for k := range l.Technologies {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Technology returns a named technology.
func (l *Library) Technology(name string) (*Technology, error) {
	t, ok := l.Technologies[name]
	if !ok || t == nil {
		return nil, fmt.Errorf("technology %q not found in library (available: %v)", name, l.Names())
	}
	return t, nil
}

// Validate checks the characterized ranges, metric names and corner parameters.
func (t *Technology) Validate() error {
	if !(t.Width > 0) {
		return fmt.Errorf("width must be positive, got %g", t.Width)
	}
	if t.Fingers < 1 {
		return fmt.Errorf("fingers must be at least 1, got %d", t.Fingers)
	}
	if !(t.MaxVGS > 0) {
		return fmt.Errorf("max_vgs must be positive, got %g", t.MaxVGS)
	}
	if !(t.StepVGS > 0) || t.StepVGS >= t.MaxVGS {
		return fmt.Errorf("step_vgs must be in (0, max_vgs), got %g", t.StepVGS)
	}
	if !(t.MaxVDS > 0) {
		return fmt.Errorf("max_vds must be positive, got %g", t.MaxVDS)
	}
	if t.MaxVSB < 0 {
		return fmt.Errorf("max_vsb must be non-negative, got %g", t.MaxVSB)
	}
	if len(t.Lengths) == 0 {
		return fmt.Errorf("lengths must not be empty")
	}
	for i, l := range t.Lengths {
		if !(l > 0) {
			return fmt.Errorf("length %d must be positive, got %g", i, l)
		}
		if i > 0 && !(l > t.Lengths[i-1]) {
			return fmt.Errorf("lengths must be strictly ascending, %g follows %g", l, t.Lengths[i-1])
		}
	}
	for _, m := range t.Metrics {
		if !gmid.IsValidMetric(m) {
			return fmt.Errorf("unknown metric %q", m)
		}
	}
	if len(t.Corners) == 0 {
		return fmt.Errorf("no corners defined")
	}
	seen := make(map[gmid.Corner]bool, len(t.Corners))
	for name, p := range t.Corners {
		c, err := gmid.ParseCorner(name)
		if err != nil {
			return err
		}
		if seen[c] {
			return fmt.Errorf("corner %s defined more than once", c)
		}
		seen[c] = true
		if err := p.Validate(); err != nil {
			return fmt.Errorf("corner %s: %w", name, err)
		}
	}
	return nil
}

// corner returns the parameters of a corner, matching names case-insensitively.
func (t *Technology) corner(c gmid.Corner) (Params, bool) {
	for name, p := range t.Corners {
		if pc, err := gmid.ParseCorner(name); err == nil && pc == c {
			return p, true
		}
	}
	return Params{}, false
}

// Source opens the corners of one technology. It implements gmid.DatasetSource.
type Source struct {
	name string
	tech *Technology
}

var _ gmid.DatasetSource = (*Source)(nil)

// NewSource selects a technology from the library.
func NewSource(lib *Library, name string) (*Source, error) {
	t, err := lib.Technology(name)
	if err != nil {
		return nil, err
	}
	return &Source{name: name, tech: t}, nil
}

// Open builds the model of corner c, or returns gmid.ErrCornerMissing.
func (s *Source) Open(ctx context.Context, c gmid.Corner) (gmid.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := s.tech.corner(c)
	if !ok {
		return nil, fmt.Errorf("%s-%s: %w", s.name, c, gmid.ErrCornerMissing)
	}
	return NewModel(s.name, s.tech, c, p)
}
