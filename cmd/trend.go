package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gmid-sizing/gmid/gmid"
)

var (
	trendWeak   float64 // Weak-inversion gm/Id target
	trendStrong float64 // Strong-inversion gm/Id target
	trendVstar  float64 // Optional Vstar target for an extra trend
	trendAll    bool    // Use every characterized length instead of the design-to-reference range
)

// trendReport is the output of the trend command for one corner.
type trendReport struct {
	Corner    gmid.Corner           `json:"corner"`
	Available bool                  `json:"available"`
	Trends    *gmid.InversionTrends `json:"trends,omitempty"`
	Vstar     *gmid.LengthTrend     `json:"vstar,omitempty"`
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Report VT, self-gain and Ft against length for every available corner",
	Run: func(cmd *cobra.Command, args []string) {
		s := openSession(cmd.Context(), cmd)
		weak, strong := s.cfg.Trends.Weak, s.cfg.Trends.Strong
		if cmd.Flags().Changed("weak") {
			weak = trendWeak
		}
		if cmd.Flags().Changed("strong") {
			strong = trendStrong
		}
		if !(weak > 0) || !(strong > 0) {
			logrus.Fatalf("Trend gm/Id targets must be positive, got weak=%g strong=%g", weak, strong)
		}
		var lengths []float64
		if trendAll {
			lengths = s.ds.Info().Lengths
		} else {
			lengths = s.lengthRange()
		}

		avail := s.mgr.Availability()
		reports := make([]trendReport, 0, gmid.NumCorners)
		for _, c := range gmid.AllCorners {
			r := trendReport{Corner: c, Available: avail[c]}
			if r.Available {
				if err := s.mgr.Select(c); err != nil {
					logrus.Fatalf("%v", err)
				}
				sz := s.sizer()
				tr, err := sz.Trends(cmd.Context(), lengths, weak, strong)
				if err != nil {
					logrus.Fatalf("Trends for corner %s failed: %v", c, err)
				}
				if !tr.Weak.Ready() || !tr.Strong.Ready() {
					logrus.Warnf("Corner %s: an inversion target is unreachable at every length", c)
				}
				r.Trends = tr
				if trendVstar > 0 {
					if r.Vstar, err = sz.VstarTrend(cmd.Context(), lengths, trendVstar); err != nil {
						logrus.Fatalf("Vstar trend for corner %s failed: %v", c, err)
					}
				}
			}
			reports = append(reports, r)
		}
		writeJSON(reports)
	},
}

func init() {
	trendCmd.Flags().Float64Var(&trendWeak, "weak", gmid.WeakInversionGmOverID, "Weak-inversion gm/Id target (S/A)")
	trendCmd.Flags().Float64Var(&trendStrong, "strong", gmid.StrongInversionGmOverID, "Strong-inversion gm/Id target (S/A)")
	trendCmd.Flags().Float64Var(&trendVstar, "vstar", 0, "Also report self-gain and Ft against length at this Vstar (V)")
	trendCmd.Flags().BoolVar(&trendAll, "all-lengths", false, "Use every characterized length")
	rootCmd.AddCommand(trendCmd)
}
