package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gmid-sizing/gmid/gmid"
)

var (
	opConstraint string  // Operating-point constraint: gmid, ft or gain
	opTarget     float64 // Constraint target
	objective    string  // Sizing objective: gm, id or area
	objectiveVal float64 // Objective value (S, A or um^2)
)

// oppointOutput is the output of the oppoint command.
type oppointOutput struct {
	Corner     gmid.Corner             `json:"corner"`
	Constraint string                  `json:"constraint"`
	Ops        *gmid.OperatingPointSet `json:"operating_points"`
}

// sizeOutput is the output of the size command.
type sizeOutput struct {
	Corner     gmid.Corner        `json:"corner"`
	Constraint string             `json:"constraint"`
	Objective  string             `json:"objective"`
	Result     *gmid.SizingResult `json:"result"`
}

var oppointCmd = &cobra.Command{
	Use:   "oppoint",
	Short: "Solve operating points over the design-to-reference length range",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := gmid.ParseConstraint(opConstraint)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		s := openSession(cmd.Context(), cmd)
		ops, err := s.sizer().OperatingPoints(cmd.Context(), s.lengthRange(), c, opTarget)
		if err != nil {
			logrus.Fatalf("Operating points failed: %v", err)
		}
		for _, sk := range ops.Skipped {
			logrus.Warnf("L=%g skipped: %s=%g %s", sk.L, c, opTarget, sk.Status)
		}
		active, _, _ := s.mgr.Active()
		writeJSON(oppointOutput{Corner: active, Constraint: c.String(), Ops: ops})
	},
}

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Solve operating points, then the width meeting a Gm, Id or area target",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := gmid.ParseConstraint(opConstraint)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		obj, err := gmid.ParseObjective(objective)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		s := openSession(cmd.Context(), cmd)
		req := gmid.SizingRequest{
			Lengths:    s.lengthRange(),
			Constraint: c,
			OpTarget:   opTarget,
			Objective:  obj,
			Value:      objectiveVal,
		}
		res, err := s.sizer().Size(cmd.Context(), req, nil)
		if err != nil {
			logrus.Fatalf("Sizing failed: %v", err)
		}
		logrus.Infof("Sized %d of %d lengths", len(res.Devices), len(req.Lengths))
		active, _, _ := s.mgr.Active()
		writeJSON(sizeOutput{Corner: active, Constraint: c.String(), Objective: obj.String(), Result: res})
	},
}

func init() {
	for _, c := range []*cobra.Command{oppointCmd, sizeCmd} {
		c.Flags().StringVar(&opConstraint, "constraint", "gmid", "Operating-point constraint (gmid, ft, gain)")
		c.Flags().Float64Var(&opTarget, "target", 0, "Constraint target (S/A, Hz or V/V)")
		_ = c.MarkFlagRequired("target")
		rootCmd.AddCommand(c)
	}
	sizeCmd.Flags().StringVar(&objective, "objective", "gm", "Sizing objective (gm, id, area)")
	sizeCmd.Flags().Float64Var(&objectiveVal, "value", 0, "Objective value (S, A or um^2)")
	_ = sizeCmd.MarkFlagRequired("value")
}
