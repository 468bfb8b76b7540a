package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/vigil/internal/season"
)

func newCountdownCommand() *cobra.Command {
	var (
		date   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "countdown",
		Short: "Print the fire season countdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at := now()
			if date != "" {
				d, err := time.ParseInLocation(time.DateOnly, date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date %q (want YYYY-MM-DD): %w", date, err)
				}
				at = d
			}

			cd, st := season.CountdownAt(at), season.StatusAt(at)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"countdown": cd, "season": st})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fire season starts %s: %d days (%s)\n", cd.StartDate, cd.DaysRemaining, cd.Urgency)
			fmt.Fprintf(out, "%s\n", cd.Status)
			fmt.Fprintf(out, "%s: %s\n", st.Phase, st.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "evaluate on this date (YYYY-MM-DD) instead of today")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
