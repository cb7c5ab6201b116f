package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gmid-sizing/gmid/gmid"
)

var (
	synthL        float64 // Gate length; 0 means the design length
	synthGmOverID float64 // gm/Id target (S/A)
	synthVstar    float64 // Vstar target (V), used when --gmid is unset
	synthGm       float64 // Transconductance target (S)
	synthID       float64 // Drain current target (A), used when --gm is unset
	multiplier    int     // Device multiplier
	fingers       int     // Fingers per device
	extFactor     int     // Length extension factor for the check

	checkW   float64 // Width to check (um)
	checkVGS float64 // Gate-source voltage to check (V)
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Synthesize one device from a gm/Id (or Vstar) and a Gm (or Id) target",
	Run: func(cmd *cobra.Command, args []string) {
		s := openSession(cmd.Context(), cmd)
		l := synthL
		if l == 0 {
			l = s.cfg.DesignL
		}
		req := gmid.SynthesisRequest{
			L:          l,
			GmOverID:   synthGmOverID,
			Vstar:      synthVstar,
			Gm:         synthGm,
			ID:         synthID,
			Multiplier: multiplier,
			Fingers:    fingers,
			ExtFactor:  extFactor,
		}
		res, err := s.sizer().Synthesize(cmd.Context(), req)
		if err != nil {
			logrus.Fatalf("Synthesis failed: %v", err)
		}
		logrus.Infof("Synthesized W=%g um at VGS=%g V", res.W, res.VGS)
		writeJSON(res)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Scale the characterized device to a width and extended length and report it",
	Run: func(cmd *cobra.Command, args []string) {
		s := openSession(cmd.Context(), cmd)
		l := synthL
		if l == 0 {
			l = s.cfg.DesignL
		}
		res, err := s.sizer().Check(cmd.Context(), checkW, checkVGS, l, extFactor)
		if err != nil {
			logrus.Fatalf("Check failed: %v", err)
		}
		writeJSON(res)
	},
}

func init() {
	for _, c := range []*cobra.Command{synthCmd, checkCmd} {
		c.Flags().Float64Var(&synthL, "length", 0, "Gate length (um); 0 uses the design length")
		c.Flags().IntVar(&extFactor, "ext", 1, "Length extension factor for the check")
		rootCmd.AddCommand(c)
	}
	synthCmd.Flags().Float64Var(&synthGmOverID, "gmid", 0, "gm/Id target (S/A)")
	synthCmd.Flags().Float64Var(&synthVstar, "vstar", 0, "Vstar target (V); used when --gmid is not set")
	synthCmd.Flags().Float64Var(&synthGm, "gm", 0, "Transconductance target (S)")
	synthCmd.Flags().Float64Var(&synthID, "id", 0, "Drain current target (A); used when --gm is not set")
	synthCmd.Flags().IntVar(&multiplier, "mult", 1, "Device multiplier")
	synthCmd.Flags().IntVar(&fingers, "fingers", 1, "Fingers per device")
	synthCmd.MarkFlagsOneRequired("gmid", "vstar")
	synthCmd.MarkFlagsOneRequired("gm", "id")

	checkCmd.Flags().Float64Var(&checkW, "w", 0, "Device width (um)")
	checkCmd.Flags().Float64Var(&checkVGS, "vgs", 0, "Gate-source voltage (V)")
	_ = checkCmd.MarkFlagRequired("w")
	_ = checkCmd.MarkFlagRequired("vgs")
}
