package gmid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Corner is a process corner with its own characterization data.
type Corner int

const (
	CornerTT Corner = iota
	CornerFF
	CornerSS
	CornerFS
	CornerSF
)

// NumCorners is the size of the corner enumeration.
const NumCorners = 5

// AllCorners lists every corner in enumeration order.
var AllCorners = [NumCorners]Corner{CornerTT, CornerFF, CornerSS, CornerFS, CornerSF}

var cornerNames = [NumCorners]string{"tt", "ff", "ss", "fs", "sf"}

func (c Corner) String() string {
	if c < 0 || int(c) >= NumCorners {
		return fmt.Sprintf("Corner(%d)", int(c))
	}
	return cornerNames[c]
}

// MarshalText lets corners print by name in JSON output.
func (c Corner) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCorner maps a case-insensitive name ("tt", "FF", ...) to a Corner.
func ParseCorner(name string) (Corner, error) {
	for i, n := range cornerNames {
		if strings.EqualFold(n, name) {
			return Corner(i), nil
		}
	}
	return 0, fmt.Errorf("unknown corner %q; valid: %s", name, strings.Join(cornerNames[:], ", "))
}

// ErrCornerMissing is returned by a DatasetSource that has no data for a corner.
var ErrCornerMissing = errors.New("corner dataset missing")

// DatasetSource opens the dataset of one corner of the loaded technology.
type DatasetSource interface {
	Open(ctx context.Context, c Corner) (Dataset, error)
}

// CornerCurves holds the curve sets of one corner at both reference lengths.
type CornerCurves struct {
	Design    *CurveSet        `json:"design"`
	Reference *CurveSet        `json:"reference"`
	Trends    *InversionTrends `json:"trends,omitempty"`
}

// CornerSlot is either Available with a curve set or Unavailable.
type CornerSlot struct {
	available bool
	curves    *CornerCurves
}

// Available wraps the curves of a corner with data.
func Available(c *CornerCurves) CornerSlot {
	return CornerSlot{available: true, curves: c}
}

// Unavailable marks a corner without data.
func Unavailable() CornerSlot {
	return CornerSlot{}
}

// Curves returns the curves and whether the corner is available.
func (s CornerSlot) Curves() (*CornerCurves, bool) {
	return s.curves, s.available
}

// IsAvailable reports whether the slot carries curves.
func (s CornerSlot) IsAvailable() bool {
	return s.available
}

// CurveStyle is the emphasis a curve set is drawn with.
type CurveStyle string

const (
	StyleActive    CurveStyle = "active"
	StyleCorner    CurveStyle = "corner"
	StyleReference CurveStyle = "reference"
)

// RebuildRequest carries every input the corner curve sets depend on.
type RebuildRequest struct {
	DesignL    float64
	ReferenceL float64
	Bias       Bias
	Mode       PlotMode
	WithVdsat  bool
	Grids      GridConfig

	// TrendLengths enables length trends when non-empty.
	TrendLengths   []float64
	WeakGmOverID   float64
	StrongGmOverID float64
}

// Snapshot is an immutable view of one completed rebuild.
type Snapshot struct {
	Generation uint64
	Active     Corner
	Request    RebuildRequest
	Slots      [NumCorners]CornerSlot
}

// Style returns the emphasis of a corner's design or reference curves.
func (s *Snapshot) Style(c Corner, reference bool) CurveStyle {
	switch {
	case reference:
		return StyleReference
	case c == s.Active:
		return StyleActive
	default:
		return StyleCorner
	}
}

// Manager tracks corner availability, the active corner and the latest
// published curve sets.
type Manager struct {
	source DatasetSource

	mu       sync.RWMutex
	datasets [NumCorners]Dataset
	active   Corner
	selfGain SelfGainMode
	loaded   bool
	gen      uint64
	snapshot *Snapshot
}

// NewManager creates a Manager over a dataset source.
func NewManager(source DatasetSource) *Manager {
	return &Manager{source: source}
}

// Load opens every corner and fixes the session's self-gain mode from the
// initial corner's dataset, which must exist.
func (m *Manager) Load(ctx context.Context, initial Corner) error {
	var datasets [NumCorners]Dataset
	for _, c := range AllCorners {
		ds, err := m.source.Open(ctx, c)
		if errors.Is(err, ErrCornerMissing) {
			logrus.Infof("%s corner none", c)
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s corner: %w", c, err)
		}
		logrus.Infof("%s corner found", c)
		datasets[c] = ds
	}
	if datasets[initial] == nil {
		return fmt.Errorf("load: initial corner %s: %w", initial, ErrCornerMissing)
	}
	mode := DetectSelfGainMode(datasets[initial])
	logrus.Infof("self-gain mode: %s", mode)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets = datasets
	m.active = initial
	m.selfGain = mode
	m.loaded = true
	m.gen++
	m.snapshot = nil
	return nil
}

// SelfGainMode returns the session's self-gain mode.
func (m *Manager) SelfGainMode() SelfGainMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selfGain
}

// Availability reports which corners have data.
func (m *Manager) Availability() [NumCorners]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out [NumCorners]bool
	for i, ds := range m.datasets {
		out[i] = ds != nil
	}
	return out
}

// Active returns the active corner and its dataset.
func (m *Manager) Active() (Corner, Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.loaded {
		return 0, nil, errors.New("no technology loaded")
	}
	return m.active, m.datasets[m.active], nil
}

// Select makes c the active corner. Unavailable corners are refused.
// The published snapshot, if any, is re-issued with the new emphasis.
func (m *Manager) Select(c Corner) error {
	if c < 0 || int(c) >= NumCorners {
		return fmt.Errorf("select: invalid corner %d", int(c))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return errors.New("select: no technology loaded")
	}
	if m.datasets[c] == nil {
		return fmt.Errorf("select %s: %w", c, ErrCornerMissing)
	}
	m.active = c
	if m.snapshot != nil {
		next := *m.snapshot
		next.Active = c
		m.snapshot = &next
	}
	return nil
}

// activeBinding returns the active dataset together with the self-gain mode
// of the same Load.
func (m *Manager) activeBinding() (Dataset, SelfGainMode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.loaded {
		return nil, 0, errors.New("no technology loaded")
	}
	return m.datasets[m.active], m.selfGain, nil
}

// Searcher returns a TargetSearch bound to the active corner.
func (m *Manager) Searcher(bias Bias) (*Searcher, error) {
	ds, mode, err := m.activeBinding()
	if err != nil {
		return nil, err
	}
	return NewSearcher(ds, bias, mode), nil
}

// Sizer returns a Sizer bound to the active corner.
func (m *Manager) Sizer(cfg SizerConfig) (*Sizer, error) {
	ds, mode, err := m.activeBinding()
	if err != nil {
		return nil, err
	}
	cfg.SelfGain = mode
	return NewSizer(ds, cfg), nil
}

// Snapshot returns the latest published rebuild, or nil.
func (m *Manager) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Rebuild recomputes the curve sets of every available corner. Corners are
// computed in parallel; each depends only on its own dataset. The result is
// published only if no later Rebuild or Load started in the meantime;
// otherwise it is discarded and the returned snapshot is nil.
func (m *Manager) Rebuild(ctx context.Context, req RebuildRequest) (*Snapshot, error) {
	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return nil, errors.New("rebuild: no technology loaded")
	}
	m.gen++
	gen := m.gen
	datasets := m.datasets
	mode := m.selfGain
	m.mu.Unlock()

	var slots [NumCorners]CornerSlot
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range AllCorners {
		ds := datasets[c]
		if ds == nil {
			slots[c] = Unavailable()
			continue
		}
		g.Go(func() error {
			curves, err := buildCornerCurves(gctx, ds, mode, req)
			if err != nil {
				return fmt.Errorf("rebuild %s corner: %w", c, err)
			}
			slots[c] = Available(curves)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		logrus.Debugf("rebuild %d superseded by %d, discarding", gen, m.gen)
		return nil, nil
	}
	snap := &Snapshot{Generation: gen, Active: m.active, Request: req, Slots: slots}
	m.snapshot = snap
	logrus.Infof("rebuild %d published (design L=%g, reference L=%g)", gen, req.DesignL, req.ReferenceL)
	return snap, nil
}

func buildCornerCurves(ctx context.Context, ds Dataset, mode SelfGainMode, req RebuildRequest) (*CornerCurves, error) {
	opts := TransformOptions{
		Mode:      req.Mode,
		Width:     ds.Info().Width,
		WithVdsat: req.WithVdsat,
		Grids:     req.Grids,
	}
	build := func(l float64) (*CurveSet, error) {
		sw, err := BuildSweep(ctx, ds, SweepConfig{L: l, Bias: req.Bias, SelfGain: mode, WithVdsat: req.WithVdsat})
		if err != nil {
			return nil, err
		}
		return Transform(sw, opts)
	}
	design, err := build(req.DesignL)
	if err != nil {
		return nil, fmt.Errorf("design length: %w", err)
	}
	reference, err := build(req.ReferenceL)
	if err != nil {
		return nil, fmt.Errorf("reference length: %w", err)
	}
	curves := &CornerCurves{Design: design, Reference: reference}
	if len(req.TrendLengths) > 0 {
		sz := NewSizer(ds, SizerConfig{Bias: req.Bias, SelfGain: mode})
		if curves.Trends, err = sz.Trends(ctx, req.TrendLengths, req.WeakGmOverID, req.StrongGmOverID); err != nil {
			return nil, fmt.Errorf("trends: %w", err)
		}
	}
	return curves, nil
}
