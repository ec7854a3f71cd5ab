// Package config はモデル選択の実行設定を読み込む。
//
// 優先順位は 既定値 < TOML ファイル < 環境変数 (接頭辞 MODELSELECT_) で、
// 後のものが前のものを上書きする。
//
//	[selection]
//	train_fraction = 0.8
//	k_max = 10
//	classifiers = ["naive bayes", "random forest"]
//
//	[log]
//	level = "debug"
//
//	[algorithms.random_forest]
//	num_trees = 50
package config

import (
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/pkg/log"
	"github.com/YuminosukeSato/modelselect/selection"
	"github.com/YuminosukeSato/modelselect/trainers"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "MODELSELECT"

// Selection mirrors selection.Config plus the random seed.
type Selection struct {
	TrainFraction  float64                 `toml:"train_fraction" envconfig:"TRAIN_FRACTION"`
	SampleFraction float64                 `toml:"sample_fraction" envconfig:"SAMPLE_FRACTION"`
	KMin           int                     `toml:"k_min" envconfig:"K_MIN"`
	KMax           int                     `toml:"k_max" envconfig:"K_MAX"`
	ElbowThreshold float64                 `toml:"elbow_threshold" envconfig:"ELBOW_THRESHOLD"`
	Classifiers    []selection.AlgorithmID `toml:"classifiers" envconfig:"CLASSIFIERS"`
	Regressors     []selection.AlgorithmID `toml:"regressors" envconfig:"REGRESSORS"`
	Clusterers     []selection.AlgorithmID `toml:"clusterers" envconfig:"CLUSTERERS"`
	Parallel       bool                    `toml:"parallel" envconfig:"PARALLEL"`
	Seed           int64                   `toml:"seed" envconfig:"SEED"`
}

// Log configures the zerolog backend.
type Log struct {
	Level  string `toml:"level" envconfig:"LEVEL"`
	Format string `toml:"format" envconfig:"FORMAT"`
}

// Config is the whole configuration file.
type Config struct {
	Selection Selection `toml:"selection" envconfig:"SELECTION"`
	Log       Log       `toml:"log" envconfig:"LOG"`
	// Algorithms はアルゴリズム名ごとのハイパーパラメータ。環境変数では上書きしない
	Algorithms map[string]model.Params `toml:"algorithms" ignored:"true"`
}

// Default returns the built-in defaults.
func Default() *Config {
	sc := selection.DefaultConfig()
	return &Config{
		Selection: Selection{
			TrainFraction:  sc.TrainFraction,
			SampleFraction: sc.SampleFraction,
			KMin:           sc.KMin,
			KMax:           sc.KMax,
			ElbowThreshold: sc.ElbowThreshold,
			Classifiers:    sc.Classifiers,
			Regressors:     sc.Regressors,
			Clusterers:     sc.Clusterers,
			Parallel:       sc.Parallel,
			Seed:           42,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path (optional, "" skips the file) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "config: environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "config: %s", path)
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrapf(err, "config: decode %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		// algorithms 以下は任意のキーを許し、Validate で検査する
		for _, key := range undecoded {
			if len(key) > 0 && key[0] == "algorithms" {
				continue
			}
			return errors.NewValidationError(key.String(), "unknown configuration key", path)
		}
	}
	return nil
}

// SelectionConfig converts the [selection] section.
func (c *Config) SelectionConfig() selection.Config {
	s := c.Selection
	return selection.Config{
		TrainFraction:  s.TrainFraction,
		SampleFraction: s.SampleFraction,
		KMin:           s.KMin,
		KMax:           s.KMax,
		ElbowThreshold: s.ElbowThreshold,
		Classifiers:    s.Classifiers,
		Regressors:     s.Regressors,
		Clusterers:     s.Clusterers,
		Parallel:       s.Parallel,
	}
}

// AlgorithmParams resolves the [algorithms.<name>] tables by AlgorithmID.
func (c *Config) AlgorithmParams() (map[selection.AlgorithmID]model.Params, error) {
	out := make(map[selection.AlgorithmID]model.Params, len(c.Algorithms))
	for _, name := range sortedKeys(c.Algorithms) {
		id, err := selection.ParseAlgorithmID(name)
		if err != nil {
			return nil, err
		}
		if _, dup := out[id]; dup {
			return nil, errors.NewValidationError("algorithms."+name, "duplicate section for "+id.String(), name)
		}
		out[id] = c.Algorithms[name]
	}
	return out, nil
}

// Validate checks every section and reports the first problem as a
// ValidationError.
func (c *Config) Validate() error {
	if err := c.SelectionConfig().Validate(); err != nil {
		return err
	}
	if _, err := log.ToLogLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "console", "text":
	default:
		return errors.NewValidationError("log.format", "must be json or console", c.Log.Format)
	}
	params, err := c.AlgorithmParams()
	if err != nil {
		return err
	}
	for id, p := range params {
		if err := trainers.CheckParams(id, p); err != nil {
			return err
		}
	}
	return nil
}

// Apply stores the per-algorithm hyperparameters in reg.
func (c *Config) Apply(reg *selection.Registry) error {
	params, err := c.AlgorithmParams()
	if err != nil {
		return err
	}
	for _, id := range selection.AllAlgorithms() {
		if p, ok := params[id]; ok {
			reg.SetParams(id, p)
		}
	}
	return nil
}

func sortedKeys(m map[string]model.Params) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
