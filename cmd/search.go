package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gmid-sizing/gmid/gmid"
)

var (
	searchMetric string  // Constraint metric: gmid, gain or ft
	searchTarget float64 // Target value of the constraint metric
	searchL      float64 // Length to search at; 0 means the design length
)

// searchOutput is the output of the search command.
type searchOutput struct {
	Corner gmid.Corner       `json:"corner"`
	Metric string            `json:"metric"`
	Target float64           `json:"target"`
	L      float64           `json:"l"`
	Levels int               `json:"levels"`
	Result gmid.SearchResult `json:"result"`
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Invert a device curve for the VGS meeting a gm/Id, self-gain or Ft target",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := gmid.ParseConstraint(searchMetric)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		s := openSession(cmd.Context(), cmd)
		l := searchL
		if l == 0 {
			l = s.cfg.DesignL
		}
		searcher, err := s.mgr.Searcher(s.cfg.Bias)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		ctx := cmd.Context()
		var res gmid.SearchResult
		switch c {
		case gmid.ConstrainGmOverID:
			res, err = searcher.SearchVGSG(ctx, searchTarget, l, s.cfg.Levels)
		case gmid.ConstrainSelfGain:
			res, err = searcher.SearchVGSA(ctx, searchTarget, l, s.cfg.Levels)
		case gmid.ConstrainFT:
			res, err = searcher.SearchVGSF(ctx, searchTarget, l, s.cfg.Levels)
		default:
			err = fmt.Errorf("unsupported metric %s", c)
		}
		if err != nil {
			logrus.Fatalf("Search failed: %v", err)
		}
		logrus.Debugf("Search %s=%g at L=%g: %s", c, searchTarget, l, res.Status)
		active, _, _ := s.mgr.Active()
		writeJSON(searchOutput{
			Corner: active,
			Metric: c.String(),
			Target: searchTarget,
			L:      l,
			Levels: s.cfg.Levels,
			Result: res,
		})
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchMetric, "metric", "gmid", "Metric to search on (gmid, gain, ft)")
	searchCmd.Flags().Float64Var(&searchTarget, "target", 0, "Target value (S/A, V/V or Hz)")
	searchCmd.Flags().Float64Var(&searchL, "length", 0, "Gate length (um); 0 uses the design length")
	_ = searchCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(searchCmd)
}
