package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gmid-sizing/gmid/gmid"
)

// sessionInfo is the output of the info command.
type sessionInfo struct {
	Technology   string           `json:"technology"`
	Active       gmid.Corner      `json:"active_corner"`
	Corners      map[string]bool  `json:"corners"`
	SelfGainMode string           `json:"self_gain_mode"`
	Bias         gmid.Bias        `json:"bias"`
	DesignL      float64          `json:"design_length"`
	ReferenceL   float64          `json:"reference_length"`
	Dataset      gmid.DatasetInfo `json:"dataset"`
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the loaded technology, corner availability and characterized ranges",
	Run: func(cmd *cobra.Command, args []string) {
		s := openSession(cmd.Context(), cmd)
		active, _, _ := s.mgr.Active()
		avail := s.mgr.Availability()
		corners := make(map[string]bool, gmid.NumCorners)
		for _, c := range gmid.AllCorners {
			corners[c.String()] = avail[c]
		}
		writeJSON(sessionInfo{
			Technology:   s.ds.Technology(),
			Active:       active,
			Corners:      corners,
			SelfGainMode: s.mgr.SelfGainMode().String(),
			Bias:         s.cfg.Bias,
			DesignL:      s.cfg.DesignL,
			ReferenceL:   s.cfg.ReferenceL,
			Dataset:      s.ds.Info(),
		})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
