package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/store"
)

func (a *app) extractCmd() *cobra.Command {
	var (
		k      int
		runID  string
		dir    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Show one model of a saved selection run",
		Long: `Load a run saved by 'select' and print the model with K clusters.

Examples:
  mmgsem extract --config run.yaml --k 3
  mmgsem extract --store ./runs --run 5f0c... --k 2 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" && a.cfg != nil {
				dir = a.cfg.Store
			}
			if dir == "" {
				return errors.New("no store: set --store or store in the configuration")
			}
			st, err := store.Open(store.Config{Path: dir, Logger: a.logger})
			if err != nil {
				return err
			}
			defer st.Close()

			sum, err := st.Latest()
			if runID != "" {
				sum, err = st.Load(runID)
			}
			if err != nil {
				return err
			}
			m, ok := sum.Model(k)
			if !ok {
				return fmt.Errorf("run %s covers K in [%d,%d], asked for %d: %w",
					sum.RunID, sum.MinK, sum.MaxK, k, cluster.ErrInvalidK)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")

				return enc.Encode(m)
			}
			fmt.Fprintf(out, "run %s  K=%d  loglik=%s  iterations=%d  converged=%t\n\n",
				sum.RunID, m.K, num(m.LogLik), m.Iterations, m.Converged)
			coefficientTable(out, sum.Coefficients, m.Coefficients, m.Weights)
			assignmentTable(out, sum.Groups, m.Posterior)

			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&k, "k", "k", 0, "number of clusters")
	f.StringVar(&runID, "run", "", "run ID (default: latest)")
	f.StringVar(&dir, "store", "", "store directory (default: config store)")
	f.BoolVar(&asJSON, "json", false, "print the model as JSON")
	_ = cmd.MarkFlagRequired("k")

	return cmd
}
