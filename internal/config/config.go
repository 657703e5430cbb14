// Package config loads the YAML configuration of the ldpc_eval tool.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/observe-l/nrfec/fec"
)

// Config is the root of the evaluator configuration file.
type Config struct {
	Code     CodeConfig      `yaml:"code"`
	Channel  ChannelConfig   `yaml:"channel"`
	Decoders []DecoderConfig `yaml:"decoders"`
	Run      RunConfig       `yaml:"run"`
	Report   ReportConfig    `yaml:"report"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// CodeConfig selects the transport blocks and how they are coded.
type CodeConfig struct {
	TBSizes   []int   `yaml:"tb_sizes"`
	CodeRate  float64 `yaml:"code_rate"`
	BaseGraph int     `yaml:"base_graph"` // 0 selects from size and rate
	Qm        int     `yaml:"qm"`
	Layers    int     `yaml:"layers"`
	RVs       []int   `yaml:"rvs"`      // HARQ redundancy version sequence
	TBSLBRM   int     `yaml:"tbs_lbrm"` // 0 disables limited-buffer rate matching
	TablesDir string  `yaml:"tables_dir,omitempty"`
}

// ChannelConfig selects the channel model and its operating points.
type ChannelConfig struct {
	Model     string    `yaml:"model"` // awgn or bsc
	EbN0dB    []float64 `yaml:"ebn0_db"`
	Crossover []float64 `yaml:"crossover"`
}

// DecoderConfig is one decoder under test.
type DecoderConfig struct {
	Algorithm     string  `yaml:"algorithm"`
	Alpha         float64 `yaml:"alpha,omitempty"`
	Beta          float64 `yaml:"beta,omitempty"`
	MaxIterations int     `yaml:"max_iterations"`
}

type RunConfig struct {
	Runs    int    `yaml:"runs"`
	Workers int    `yaml:"workers"`
	Seed    uint64 `yaml:"seed"`
}

type ReportConfig struct {
	Markdown  string `yaml:"markdown"`
	JSONLines string `yaml:"json_lines"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Code: CodeConfig{
			TBSizes:  []int{40, 1000, 4000},
			CodeRate: 0.5,
			Qm:       2,
			Layers:   1,
			RVs:      []int{0},
		},
		Channel: ChannelConfig{
			Model:     "awgn",
			EbN0dB:    []float64{0, 1, 2, 3},
			Crossover: []float64{0.01, 0.03, 0.05},
		},
		Decoders: []DecoderConfig{
			{Algorithm: "bp", MaxIterations: 20},
			{Algorithm: "min-sum", Alpha: 0.75, MaxIterations: 20},
		},
		Run: RunConfig{Runs: 200, Seed: 42},
		Report: ReportConfig{
			Markdown:  "docs/reports/ldpc_eval_report.md",
			JSONLines: "docs/reports/ldpc_eval_report.jsonl",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and that every decoder name parses.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Code.TBSizes) == 0 {
		errs = append(errs, errors.New("code.tb_sizes is empty"))
	}
	for _, a := range c.Code.TBSizes {
		if a <= 0 {
			errs = append(errs, fmt.Errorf("code.tb_sizes: %d is not positive", a))
		}
	}
	if c.Code.CodeRate <= 0 || c.Code.CodeRate > 1 {
		errs = append(errs, fmt.Errorf("code.code_rate %g outside (0, 1]", c.Code.CodeRate))
	}
	if c.Code.BaseGraph != 0 && !fec.BaseGraph(c.Code.BaseGraph).Valid() {
		errs = append(errs, fmt.Errorf("code.base_graph %d: %w", c.Code.BaseGraph, fec.ErrInvalidBaseGraph))
	}
	if !fec.ValidModulationOrder(c.Code.Qm) {
		errs = append(errs, fmt.Errorf("code.qm %d: %w", c.Code.Qm, fec.ErrInvalidModulationOrder))
	}
	if len(c.Code.RVs) == 0 {
		errs = append(errs, errors.New("code.rvs is empty"))
	}
	for _, rv := range c.Code.RVs {
		if rv < 0 || rv > 3 {
			errs = append(errs, fmt.Errorf("code.rvs: %d: %w", rv, fec.ErrInvalidRedundancyVersion))
		}
	}
	switch c.Channel.Model {
	case "awgn":
		if len(c.Channel.EbN0dB) == 0 {
			errs = append(errs, errors.New("channel.ebn0_db is empty"))
		}
	case "bsc":
		if len(c.Channel.Crossover) == 0 {
			errs = append(errs, errors.New("channel.crossover is empty"))
		}
		for _, p := range c.Channel.Crossover {
			if p < 0 || p >= 0.5 {
				errs = append(errs, fmt.Errorf("channel.crossover %g outside [0, 0.5)", p))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("channel.model %q: want awgn or bsc", c.Channel.Model))
	}
	if len(c.Decoders) == 0 {
		errs = append(errs, errors.New("decoders is empty"))
	}
	for i, d := range c.Decoders {
		if _, err := d.Build(); err != nil {
			errs = append(errs, fmt.Errorf("decoders[%d]: %w", i, err))
		}
		if d.MaxIterations <= 0 {
			errs = append(errs, fmt.Errorf("decoders[%d].max_iterations must be positive", i))
		}
	}
	if c.Run.Runs <= 0 {
		errs = append(errs, errors.New("run.runs must be positive"))
	}
	return errors.Join(errs...)
}

// Build returns the decoding algorithm described by d.
func (d DecoderConfig) Build() (fec.Algorithm, error) {
	alg, err := fec.ParseAlgorithm(d.Algorithm, d.Alpha, d.Beta)
	if err != nil {
		return nil, err
	}
	if ms, ok := alg.(fec.MinSum); ok && (ms.Alpha < 0 || ms.Alpha > 1 || ms.Beta < 0) {
		return nil, fmt.Errorf("%w: min-sum alpha=%g beta=%g", fec.ErrInvalidParameter, ms.Alpha, ms.Beta)
	}
	return alg, nil
}

// Points returns the channel operating points of the selected model.
func (c ChannelConfig) Points() []float64 {
	if c.Model == "bsc" {
		return c.Crossover
	}
	return c.EbN0dB
}
