package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/inference"
)

func (a *app) fitCmd() *cobra.Command {
	var (
		k      int
		noSE   bool
		naive  bool
		noComp bool
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit one mixture model and report estimates and Wald tests",
		Long: `Fit the model with K clusters (--k, or the lower end of nclus), print
the cluster coefficients and group assignments, then standard errors and
Wald tests of equal coefficients across clusters.

Examples:
  mmgsem fit --config run.yaml --k 3
  mmgsem fit --config run.yaml --k 2 --naive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.requireConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			in, err := a.step1(ctx, cfg)
			if err != nil {
				return err
			}
			opts, err := cfg.ClusterOptions()
			if err != nil {
				return err
			}
			opts = a.clusterOptions(opts)
			switch {
			case k > 0:
				opts.Clusters = k
			case !cfg.NClus.Single():
				a.logger.Warn("nclus is a range; fitting its lower end", "k", cfg.NClus.Low, "high", cfg.NClus.High)
			}

			m, err := cluster.Fit(ctx, in, opts)
			if err != nil && !(m != nil && errors.Is(err, cluster.ErrNonConvergence)) {
				return err
			}
			if err != nil {
				a.logger.Warn("reporting a non-converged fit", "iterations", m.Iterations)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "K=%d  loglik=%s  iterations=%d  converged=%t\n\n",
				m.K, num(m.LogLik), m.Iterations, m.Converged)
			coef := make([][]float64, m.K)
			for i, p := range m.Params() {
				coef[i] = p.Flatten()
			}
			coefficientTable(out, in.Model.CoefficientNames(), coef, m.Weights())
			ids := make([]string, in.NumGroups())
			post := make([][]float64, in.NumGroups())
			for g, grp := range in.Groups {
				ids[g] = grp.ID
				post[g] = mat.Row(nil, g, m.Posterior)
			}
			assignmentTable(out, ids, post)
			if noSE {
				return nil
			}

			iopts := cfg.InferenceOptions()
			iopts.Logger = a.logger
			iopts.Naive = iopts.Naive || naive
			se, err := inference.ComputeSE(ctx, m, iopts)
			if err != nil {
				return err
			}
			estimateTable(out, se)
			if m.K < 2 {
				return nil
			}
			to, err := cfg.TestOptions()
			if err != nil {
				return err
			}
			to.MultipleComparison = to.MultipleComparison && !noComp
			res, err := inference.Test(m, se, to)
			if err != nil {
				return err
			}
			testTable(out, res)

			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&k, "k", "k", 0, "number of clusters (default: nclus low)")
	f.BoolVar(&noSE, "no-se", false, "skip standard errors and tests")
	f.BoolVar(&naive, "naive", false, "naive block-diagonal standard errors")
	f.BoolVar(&noComp, "no-pairwise", false, "skip pairwise cluster comparisons")

	return cmd
}
