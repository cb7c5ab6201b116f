package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gmid-sizing/gmid/gmid"
)

var (
	curveDomain    string // Domain to print in full; empty prints a summary
	curveSeries    string // Single series of --domain; empty prints all
	curveReference bool   // Print the reference-length curves instead of the design ones
)

// domainSummary describes one domain view without its arrays.
type domainSummary struct {
	Points int     `json:"points"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// curveSummary describes one corner's design or reference curve set.
type curveSummary struct {
	Corner    gmid.Corner                   `json:"corner"`
	Style     gmid.CurveStyle               `json:"style"`
	L         float64                       `json:"l"`
	PeakIndex int                           `json:"peak_index"`
	Domains   map[gmid.Domain]domainSummary `json:"domains"`
}

// cornerReport is the output of the curves command for one corner.
type cornerReport struct {
	Corner    gmid.Corner           `json:"corner"`
	Available bool                  `json:"available"`
	Design    *curveSummary         `json:"design,omitempty"`
	Reference *curveSummary         `json:"reference,omitempty"`
	Trends    *gmid.InversionTrends `json:"trends,omitempty"`
}

// domainReport is the output of the curves command with --domain.
type domainReport struct {
	Corner gmid.Corner               `json:"corner"`
	Style  gmid.CurveStyle           `json:"style"`
	L      float64                   `json:"l"`
	Domain gmid.Domain               `json:"domain"`
	Grid   []float64                 `json:"grid"`
	Series map[gmid.Series][]float64 `json:"series"`
}

var allDomains = []gmid.Domain{gmid.DomainVoltage, gmid.DomainVstar, gmid.DomainGmOverID, gmid.DomainLogID}

var curvesCmd = &cobra.Command{
	Use:   "curves",
	Short: "Rebuild the gm/Id curve sets of every available corner",
	Run: func(cmd *cobra.Command, args []string) {
		if curveDomain != "" && !gmid.IsValidDomain(curveDomain) {
			logrus.Fatalf("Unknown domain %q; valid: vgs, vstar, gmid, logid", curveDomain)
		}
		if curveSeries != "" && curveDomain == "" {
			logrus.Fatalf("--series requires --domain")
		}
		s := openSession(cmd.Context(), cmd)
		snap, err := s.mgr.Rebuild(cmd.Context(), s.cfg.rebuildRequest(s.lengthRange()))
		if err != nil {
			logrus.Fatalf("Rebuild failed: %v", err)
		}
		if snap == nil {
			logrus.Fatalf("Rebuild superseded")
		}
		if curveDomain != "" {
			writeJSON(activeDomain(snap, gmid.Domain(curveDomain), gmid.Series(curveSeries), curveReference))
			return
		}
		reports := make([]cornerReport, 0, gmid.NumCorners)
		for _, c := range gmid.AllCorners {
			r := cornerReport{Corner: c}
			if cc, ok := snap.Slots[c].Curves(); ok {
				r.Available = true
				r.Design = summarize(c, snap.Style(c, false), cc.Design)
				r.Reference = summarize(c, snap.Style(c, true), cc.Reference)
				r.Trends = cc.Trends
			}
			reports = append(reports, r)
		}
		writeJSON(reports)
	},
}

// activeDomain extracts one domain of the active corner, optionally reduced to
// a single series.
func activeDomain(snap *gmid.Snapshot, d gmid.Domain, series gmid.Series, reference bool) domainReport {
	cc, ok := snap.Slots[snap.Active].Curves()
	if !ok {
		logrus.Fatalf("Active corner %s has no curves", snap.Active)
	}
	cs := cc.Design
	if reference {
		cs = cc.Reference
	}
	curve, _ := cs.Curve(d)
	out := domainReport{
		Corner: snap.Active,
		Style:  snap.Style(snap.Active, reference),
		L:      cs.L,
		Domain: d,
		Grid:   curve.Grid,
		Series: curve.Series,
	}
	if series != "" {
		ys, ok := curve.Series[series]
		if !ok {
			logrus.Fatalf("Domain %s has no series %q", d, series)
		}
		out.Series = map[gmid.Series][]float64{series: ys}
	}
	return out
}

func summarize(c gmid.Corner, style gmid.CurveStyle, cs *gmid.CurveSet) *curveSummary {
	sum := &curveSummary{
		Corner:    c,
		Style:     style,
		L:         cs.L,
		PeakIndex: cs.PeakIndex,
		Domains:   make(map[gmid.Domain]domainSummary, len(allDomains)),
	}
	for _, d := range allDomains {
		curve, _ := cs.Curve(d)
		ds := domainSummary{Points: len(curve.Grid)}
		if n := len(curve.Grid); n > 0 {
			ds.Min, ds.Max = curve.Grid[0], curve.Grid[n-1]
		}
		sum.Domains[d] = ds
	}
	return sum
}

func init() {
	curvesCmd.Flags().StringVar(&curveDomain, "domain", "", "Print one domain of the active corner in full (vgs, vstar, gmid, logid)")
	curvesCmd.Flags().StringVar(&curveSeries, "series", "", "Restrict --domain output to one series (id, ft, self_gain, vgs, vdsat, gm_over_id, fom)")
	curvesCmd.Flags().BoolVar(&curveReference, "reference", false, "Use the reference-length curves with --domain")
	rootCmd.AddCommand(curvesCmd)
}
