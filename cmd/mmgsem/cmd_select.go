package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/mmgsem/selection"
	"github.com/katalvlaran/mmgsem/store"
)

func (a *app) selectCmd() *cobra.Command {
	var criterion string
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Fit every K of nclus and tabulate the fit criteria",
		Long: `Fit one model per K of the configured nclus range, print BIC, AIC,
ICL and the CHull scree ratios, and report the K chosen by the criterion.
When store is configured, the run is saved for later extraction.

Examples:
  mmgsem select --config run.yaml
  mmgsem select --config run.yaml --criterion CHull`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.requireConfig()
			if err != nil {
				return err
			}
			if criterion == "" {
				criterion = cfg.Criterion
			}
			crit, err := selection.ParseCriterion(criterion)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			in, err := a.step1(ctx, cfg)
			if err != nil {
				return err
			}
			opts, err := cfg.SelectionOptions()
			if err != nil {
				return err
			}
			opts.Logger = a.logger
			opts.Cluster = a.clusterOptions(opts.Cluster)

			res, err := selection.Search(ctx, in, opts)
			if err != nil {
				return err
			}
			best, err := res.Best(crit)
			if err != nil {
				a.logger.Warn("no K selected", "criterion", crit.String(), "err", err)
			}

			out := cmd.OutOrStdout()
			criteriaTable(out, res.Table, best)
			if best > 0 {
				fmt.Fprintf(out, "selected K=%d by %s\n", best, crit)
			}
			fmt.Fprintf(out, "run %s\n", res.RunID)

			if cfg.Store == "" {
				return nil
			}
			st, err := store.Open(store.Config{Path: cfg.Store, SyncWrites: true, Logger: a.logger})
			if err != nil {
				return err
			}
			defer st.Close()

			return st.Save(res.Summary())
		},
	}
	cmd.Flags().StringVar(&criterion, "criterion", "", "BIC | BIC_G | AIC | AIC3 | AICc | ICL | CHull (default: config)")

	return cmd
}
