// Package config loads the YAML run configuration shared by the CLI
// commands and maps it onto the option structs of the algorithm packages.
//
//	data:
//	  path: groups.csv
//	  group_column: country
//	model:
//	  measurement: |
//	    F1 =~ x1 + x2 + x3
//	    F2 =~ x4 + x5 + x6
//	  structural: F2 ~ F1
//	nclus: [1, 6]        # or a single K
//	seed: 42
//	init: random         # random | hierarchical | user
//	partition: [0, 0, 1] # start labels per group, init: user only
//	starts: 25
//	max_iterations: 1000
//	tolerance: 1.0e-6
//	hard: false
//	empty_cluster: reinitialize   # reinitialize | fail
//	criterion: BIC
//	tie_break: parsimonious
//	naive: false
//	multiple_comparison: true
//	correction: bonferroni        # bonferroni | holm
//	workers: 0
//	store: ./runs
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/inference"
	"github.com/katalvlaran/mmgsem/selection"
	"github.com/katalvlaran/mmgsem/syntax"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

var validate = validator.New()

// ClusterRange is the inclusive K range; YAML accepts an integer or a
// two-element list.
type ClusterRange struct {
	Low  int `validate:"gte=1"`
	High int `validate:"gtefield=Low"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *ClusterRange) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var k int
		if err := n.Decode(&k); err != nil {
			return fmt.Errorf("nclus: %w", err)
		}
		r.Low, r.High = k, k

		return nil
	case yaml.SequenceNode:
		var ks []int
		if err := n.Decode(&ks); err != nil {
			return fmt.Errorf("nclus: %w", err)
		}
		if len(ks) != 2 {
			return fmt.Errorf("nclus: want [low, high], got %d values", len(ks))
		}
		r.Low, r.High = ks[0], ks[1]

		return nil
	}

	return fmt.Errorf("nclus: line %d: want an integer or [low, high]", n.Line)
}

// Single reports whether the range holds exactly one K.
func (r ClusterRange) Single() bool { return r.Low == r.High }

// Data locates the raw observations.
type Data struct {
	Path        string `yaml:"path"`
	GroupColumn string `yaml:"group_column" validate:"required"`
}

// Model holds the two model-syntax strings.
type Model struct {
	Measurement string `yaml:"measurement" validate:"required"`
	Structural  string `yaml:"structural" validate:"required"`
}

// Config is the full run configuration.
type Config struct {
	Data  Data         `yaml:"data"`
	Model Model        `yaml:"model"`
	NClus ClusterRange `yaml:"nclus"`

	Seed          int64   `yaml:"seed"`
	Init          string  `yaml:"init" validate:"oneof=random hierarchical user"`
	Partition     []int   `yaml:"partition" validate:"required_if=Init user"`
	Starts        int     `yaml:"starts" validate:"gte=1"`
	MaxIterations int     `yaml:"max_iterations" validate:"gte=1"`
	Tolerance     float64 `yaml:"tolerance" validate:"gt=0"`
	Hard          bool    `yaml:"hard"`
	EmptyCluster  string  `yaml:"empty_cluster" validate:"oneof=reinitialize fail"`

	Criterion string `yaml:"criterion"`
	TieBreak  string `yaml:"tie_break" validate:"oneof=parsimonious complex"`

	Naive              bool   `yaml:"naive"`
	MultipleComparison bool   `yaml:"multiple_comparison"`
	Correction         string `yaml:"correction" validate:"oneof=bonferroni holm"`

	Workers int    `yaml:"workers" validate:"gte=0"`
	Store   string `yaml:"store"`
}

// Default mirrors the defaults of the algorithm packages.
func Default() Config {
	co := cluster.DefaultOptions(1)

	return Config{
		Data:          Data{GroupColumn: "group"},
		NClus:         ClusterRange{Low: 1, High: 1},
		Seed:          co.Seed,
		Init:          co.Init.String(),
		Starts:        co.Starts,
		MaxIterations: co.MaxIterations,
		Tolerance:     co.Tolerance,
		EmptyCluster:  co.EmptyCluster.String(),
		Criterion:     selection.BIC.String(),
		TieBreak:      "parsimonious",
		Correction:    inference.Bonferroni.String(),
	}
}

// Load reads and validates a YAML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates YAML on top of Default. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints and that the model and criterion parse.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := selection.ParseCriterion(c.Criterion); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.ParsedModel(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// ParsedModel parses the two model strings.
func (c *Config) ParsedModel() (*syntax.Model, error) {
	return syntax.Parse(c.Model.Measurement, c.Model.Structural)
}

// ClusterOptions maps the EM settings; Clusters is NClus.Low.
func (c *Config) ClusterOptions() (cluster.Options, error) {
	strategy, err := cluster.ParseInitStrategy(c.Init)
	if err != nil {
		return cluster.Options{}, err
	}
	empty, err := cluster.ParseEmptyClusterPolicy(c.EmptyCluster)
	if err != nil {
		return cluster.Options{}, err
	}
	o := cluster.DefaultOptions(c.NClus.Low)
	o.Seed = c.Seed
	o.Init = strategy
	o.Partition = append([]int(nil), c.Partition...)
	o.Starts = c.Starts
	o.MaxIterations = c.MaxIterations
	o.Tolerance = c.Tolerance
	o.Hard = c.Hard
	o.EmptyCluster = empty

	return o, nil
}

// SelectionOptions maps the search settings over NClus.
func (c *Config) SelectionOptions() (selection.Options, error) {
	co, err := c.ClusterOptions()
	if err != nil {
		return selection.Options{}, err
	}
	tb, err := selection.ParseTieBreak(c.TieBreak)
	if err != nil {
		return selection.Options{}, err
	}
	o := selection.DefaultOptions(c.NClus.Low, c.NClus.High)
	o.Cluster = co
	o.Workers = c.Workers
	o.TieBreak = tb

	return o, nil
}

// SelectionCriterion is the parsed criterion.
func (c *Config) SelectionCriterion() (selection.Criterion, error) {
	return selection.ParseCriterion(c.Criterion)
}

// InferenceOptions maps the standard-error settings.
func (c *Config) InferenceOptions() inference.Options {
	o := inference.DefaultOptions()
	o.Naive = c.Naive

	return o
}

// TestOptions maps the Wald-test settings.
func (c *Config) TestOptions() (inference.TestOptions, error) {
	corr, err := inference.ParseCorrection(c.Correction)
	if err != nil {
		return inference.TestOptions{}, err
	}

	return inference.TestOptions{MultipleComparison: c.MultipleComparison, Correction: corr}, nil
}
