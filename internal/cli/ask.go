package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/vigil/internal/analyst"
	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/orchestrator"
	"github.com/ashureev/vigil/internal/reports"
	"github.com/ashureev/vigil/internal/resolver"
)

func newAskCommand(opts *globalOptions) *cobra.Command {
	var (
		persona string
		assetID string
		region  string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask the assistant one question against the local warehouse",
		Example: `  vigilctl ask "which circuits are PSPS candidates?"
  vigilctl ask --asset AST-00012 "tell me about this pole"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := opts.logger()

			wh, err := opts.openWarehouse(cfg, logger)
			if err != nil {
				return err
			}
			defer wh.Close()
			if cfg.WarehouseSeed {
				if _, err := wh.Seed(cmd.Context(), now()); err != nil {
					return err
				}
			}

			var generator resolver.SQLGenerator
			if cfg.AnalystAddr != "" {
				client, err := analyst.New(analyst.DefaultConfig(cfg.AnalystAddr), logger)
				if err != nil {
					logger.Warn("SQL analyst unavailable, using direct templates only", "addr", cfg.AnalystAddr, "error", err)
				} else {
					defer client.Close()
					generator = client
				}
			}

			personas, err := domain.LoadPersonas()
			if err != nil {
				return err
			}
			orch := orchestrator.New(orchestrator.Deps{
				Suite:          reports.NewSuite(wh, now),
				Resolver:       resolver.New(wh, generator, logger),
				Personas:       personas,
				DefaultPersona: cfg.DefaultPersona,
				Clock:          now,
				Logger:         logger,
			})

			resp := orch.ProcessMessage(cmd.Context(), domain.ChatRequest{
				Message: strings.Join(args, " "),
				Persona: persona,
				AssetID: assetID,
				Region:  region,
			})
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s (%s)\n\n", resp.Persona.EmojiTag, resp.AgentName, resp.Intent)
			fmt.Fprintln(w, resp.Narrative)
			if len(resp.Sources) > 0 {
				fmt.Fprintf(w, "\nSources: %s\n", strings.Join(resp.Sources, ", "))
			}
			fmt.Fprintf(w, "Fire season: %d days (%s)\n", resp.FireSeason.DaysRemaining, resp.FireSeason.Urgency)
			return nil
		},
	}
	cmd.Flags().StringVar(&persona, "persona", "", "persona id (default: DEFAULT_PERSONA)")
	cmd.Flags().StringVar(&assetID, "asset", "", "focus asset id")
	cmd.Flags().StringVar(&region, "region", "", "focus region")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	return cmd
}
