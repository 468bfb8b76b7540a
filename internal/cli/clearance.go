package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashureev/vigil/internal/reports"
)

func newClearanceCommand() *cobra.Command {
	var (
		voltage string
		tier    string
		current float64
		species string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "clearance",
		Short: "Look up a GO95 vegetation clearance requirement",
		Example: `  vigilctl clearance --voltage 12KV --tier TIER_3
  vigilctl clearance --voltage 12KV --tier tier3 --current 2.5 --species eucalyptus`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := map[string]any{}
			var gap *reports.ComplianceGap
			req, err := reports.ClearanceRequirement(voltage, tier)
			if err != nil {
				return err
			}
			out["requirement"] = req

			if cmd.Flags().Changed("current") {
				if current < 0 {
					return fmt.Errorf("--current must be non-negative")
				}
				g, err := reports.AnalyzeComplianceGap(current, voltage, tier)
				if err != nil {
					return err
				}
				gap = &g
				out["gap"] = g
			}

			var sp *reports.SpeciesInfo
			if species != "" {
				s := reports.SpeciesGrowth(species)
				sp = &s
				out["species"] = s
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s: %g ft required (%s)\n", req.VoltageClass, req.FireTier, req.RequiredFt, req.Regulation)
			if gap != nil {
				fmt.Fprintf(w, "Current %g ft: %s, urgency %s\n", gap.CurrentFt, gap.Status, gap.Urgency)
				fmt.Fprintf(w, "%s\n", gap.Recommendation)
			}
			if sp != nil {
				fmt.Fprintf(w, "%s grows %g ft/yr to %g ft, fire risk %s\n", sp.Species, sp.GrowthRateFtYr, sp.MaxHeightFt, sp.FireRisk)
				if sp.ManagementNotes != "" {
					fmt.Fprintf(w, "%s\n", sp.ManagementNotes)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&voltage, "voltage", "", "voltage class, e.g. 12KV or HIGH_VOLTAGE")
	cmd.Flags().StringVar(&tier, "tier", "", "fire threat tier, e.g. TIER_3")
	cmd.Flags().Float64Var(&current, "current", 0, "measured clearance in feet")
	cmd.Flags().StringVar(&species, "species", "", "tree species for growth guidance")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("voltage")
	_ = cmd.MarkFlagRequired("tier")
	return cmd
}
