package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gmid-sizing/gmid/gmid"
	"github.com/gmid-sizing/gmid/gmid/device"
)

var (
	// Persistent session flags; each overrides the config file only when set.
	configPath  string  // Session YAML file
	libraryPath string  // Technology library YAML file
	techName    string  // Technology name in the library
	cornerName  string  // Active process corner
	vds         float64 // Drain-source bias
	vsb         float64 // Source-bulk bias
	designL     float64 // Design length; 0 means longest characterized
	referenceL  float64 // Reference length; 0 means shortest characterized
	withVdsat   bool    // Report VDSAT
	levels      int     // Search precision levels
	logLevel    string  // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "gmid",
	Short: "gm/Id transistor sizing from device characterization data",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSession builds the session configuration from the config file and the
// flags the user actually set.
func loadSession(cmd *cobra.Command) (*SessionConfig, error) {
	cfg := DefaultSessionConfig()
	if configPath != "" {
		var err error
		if cfg, err = LoadSessionConfig(configPath); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("library") {
		cfg.Library = libraryPath
	}
	if flags.Changed("tech") {
		cfg.Technology = techName
	}
	if flags.Changed("corner") {
		cfg.Corner = cornerName
	}
	if flags.Changed("vds") {
		cfg.Bias.VDS = vds
	}
	if flags.Changed("vsb") {
		cfg.Bias.VSB = vsb
	}
	if flags.Changed("design-l") {
		cfg.DesignL = designL
	}
	if flags.Changed("reference-l") {
		cfg.ReferenceL = referenceL
	}
	if flags.Changed("vdsat") {
		cfg.Vdsat = withVdsat
	}
	if flags.Changed("levels") {
		cfg.Levels = levels
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	return cfg, nil
}

// session is a loaded technology with its corners.
type session struct {
	cfg *SessionConfig
	mgr *gmid.Manager
	ds  gmid.Dataset
}

// openSession loads the library and every corner of the configured technology.
func openSession(ctx context.Context, cmd *cobra.Command) *session {
	cfg, err := loadSession(cmd)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	lib, err := device.LoadLibrary(cfg.Library)
	if err != nil {
		logrus.Fatalf("Failed to load technology library: %v", err)
	}
	src, err := device.NewSource(lib, cfg.Technology)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	corner, _ := gmid.ParseCorner(cfg.Corner)
	mgr := gmid.NewManager(src)
	if err := mgr.Load(ctx, corner); err != nil {
		logrus.Fatalf("Failed to load %s: %v", cfg.Technology, err)
	}
	_, ds, err := mgr.Active()
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	cfg.resolveLengths(ds.Info())
	logrus.Infof("Loaded %s corner %s, bias vds=%g vsb=%g", cfg.Technology, cfg.Corner, cfg.Bias.VDS, cfg.Bias.VSB)
	return &session{cfg: cfg, mgr: mgr, ds: ds}
}

// sizer returns a Sizer on the active corner with the session's settings.
func (s *session) sizer() *gmid.Sizer {
	sz, err := s.mgr.Sizer(gmid.SizerConfig{Bias: s.cfg.Bias, WithVdsat: s.cfg.Vdsat, Levels: s.cfg.Levels})
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	return sz
}

// lengthRange returns the characterized lengths between the design and
// reference lengths.
func (s *session) lengthRange() []float64 {
	lengths, err := gmid.LengthsBetween(s.ds.Info().Lengths, s.cfg.DesignL, s.cfg.ReferenceL)
	if err != nil {
		logrus.Fatalf("Invalid length range: %v", err)
	}
	return lengths
}

// writeJSON prints v as indented JSON on stdout.
func writeJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.Fatalf("JSON marshal failed: %v", err)
	}
	fmt.Println(string(data))
}

// init sets up CLI flags
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to session YAML config")
	rootCmd.PersistentFlags().StringVar(&libraryPath, "library", "technologies.yaml", "Path to technology library YAML")
	rootCmd.PersistentFlags().StringVar(&techName, "tech", "n18", "Technology name")
	rootCmd.PersistentFlags().StringVar(&cornerName, "corner", "tt", "Process corner (tt, ff, ss, fs, sf)")
	rootCmd.PersistentFlags().Float64Var(&vds, "vds", 0.9, "Drain-source voltage (V)")
	rootCmd.PersistentFlags().Float64Var(&vsb, "vsb", 0, "Source-bulk voltage (V)")
	rootCmd.PersistentFlags().Float64Var(&designL, "design-l", 0, "Design length (um); 0 selects the longest characterized length")
	rootCmd.PersistentFlags().Float64Var(&referenceL, "reference-l", 0, "Reference length (um); 0 selects the shortest characterized length")
	rootCmd.PersistentFlags().BoolVar(&withVdsat, "vdsat", false, "Include VDSAT in results")
	rootCmd.PersistentFlags().IntVar(&levels, "levels", gmid.MaxPrecisionLevels, "Search precision levels (1-4)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
}
