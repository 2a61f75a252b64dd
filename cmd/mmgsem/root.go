package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/config"
	"github.com/katalvlaran/mmgsem/dataset"
	"github.com/katalvlaran/mmgsem/measurement"
	"github.com/katalvlaran/mmgsem/metrics"
)

var errNoConfig = errors.New("no --config given")

// app carries the state shared by all subcommands.
type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	trace       bool
	metricsPath string

	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
	shutdown  func(context.Context) error
}

// execute runs one command line. Tracing and metrics are flushed whether or
// not the command succeeds.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(ctx); cerr != nil {
		fmt.Fprintln(stderr, "Error:", cerr)
		err = errors.Join(err, cerr)
	}

	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mmgsem",
		Short: "Mixture multigroup structural equation modeling",
		Long: `Cluster groups on the regressions among their latent factors.

Step 1 fits a multigroup factor model with invariant loadings; step 2 runs
EM over the structural model for every K of the configured range.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "YAML run configuration")
	f.StringVar(&a.logLevel, "log-level", "info", "debug | info | warn | error")
	f.StringVar(&a.logFormat, "log-format", "auto", "text | json | auto (text on a terminal)")
	f.BoolVar(&a.trace, "trace", false, "print OpenTelemetry spans to stderr")
	f.StringVar(&a.metricsPath, "metrics", "", "write Prometheus metrics to this file after the run")

	root.AddCommand(a.fitCmd(), a.selectCmd(), a.extractCmd(), a.simulateCmd())

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	w := cmd.ErrOrStderr()
	hopts := &slog.HandlerOptions{Level: level}
	switch a.logFormat {
	case "text":
		a.logger = slog.New(slog.NewTextHandler(w, hopts))
	case "json":
		a.logger = slog.New(slog.NewJSONHandler(w, hopts))
	case "auto":
		if isTerminal(w) {
			a.logger = slog.New(slog.NewTextHandler(w, hopts))
		} else {
			a.logger = slog.New(slog.NewJSONHandler(w, hopts))
		}
	default:
		return fmt.Errorf("--log-format: unknown format %q", a.logFormat)
	}

	a.registry = prometheus.NewRegistry()
	a.collector = metrics.New(a.registry, "mmgsem")

	if a.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "mmgsem"))),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		a.shutdown = tp.Shutdown
	}

	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
		a.logger.Debug("configuration loaded", "path", a.configPath)
	}

	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// close stops the tracer provider and writes the metrics file. It is safe
// to call when setup did not run or failed half way.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}
	if a.metricsPath != "" && a.registry != nil {
		errs = append(errs, a.writeMetrics())
	}

	return errors.Join(errs...)
}

func (a *app) writeMetrics() error {
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	f, err := os.Create(a.metricsPath)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return err
		}
	}

	return nil
}

func (a *app) requireConfig() (*config.Config, error) {
	if a.cfg == nil {
		return nil, errNoConfig
	}

	return a.cfg, nil
}

// clusterOptions wires logging and metrics into the configured EM options.
func (a *app) clusterOptions(o cluster.Options) cluster.Options {
	o.Logger = a.logger
	o.Observer = a.collector

	return o
}

// step1 reads the configured data and fits the measurement model.
func (a *app) step1(ctx context.Context, cfg *config.Config) (*cluster.Input, error) {
	model, err := cfg.ParsedModel()
	if err != nil {
		return nil, err
	}
	if cfg.Data.Path == "" {
		return nil, errors.New("data.path is not set")
	}
	data, err := dataset.ReadFile(cfg.Data.Path, dataset.Options{
		GroupColumn: cfg.Data.GroupColumn,
		Indicators:  model.Indicators(),
		Listwise:    true,
	})
	if err != nil {
		return nil, err
	}
	if data.Dropped > 0 {
		a.logger.Warn("rows with missing values dropped", "rows", data.Dropped)
	}

	mo := measurement.DefaultOptions()
	mo.Logger = a.logger
	fit, err := measurement.Estimate(ctx, model, data.Groups, mo)
	if err != nil && !errors.Is(err, measurement.ErrNonConvergence) {
		return nil, fmt.Errorf("step 1: %w", err)
	}
	a.logger.Info("measurement model fitted",
		"groups", len(data.Groups), "loglik", fit.LogLik, "converged", fit.Converged)

	return cluster.NewInput(fit)
}
