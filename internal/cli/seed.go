package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the warehouse schema and load demo rows if it is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			wh, err := opts.openWarehouse(cfg, opts.logger())
			if err != nil {
				return err
			}
			defer wh.Close()

			seeded, err := wh.Seed(cmd.Context(), now())
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded demo warehouse at %s\n", cfg.DBPath)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Warehouse at %s already has data, nothing to do\n", cfg.DBPath)
			}
			return nil
		},
	}
}
