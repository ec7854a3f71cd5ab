package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/selection"
	"github.com/YuminosukeSato/modelselect/trainers"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modelselect.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, selection.DefaultConfig(), cfg.SelectionConfig())
	assert.Equal(t, int64(42), cfg.Selection.Seed)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Algorithms)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[selection]
train_fraction = 0.75
k_max = 8
classifiers = ["Random Forest"]
parallel = true

[log]
level = "debug"

[algorithms.random_forest]
num_trees = 25
impurity = "entropy"

[algorithms.lasso]
alpha = 0.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	sc := cfg.SelectionConfig()
	assert.Equal(t, 0.75, sc.TrainFraction)
	assert.Equal(t, 2, sc.KMin, "untouched keys keep defaults")
	assert.Equal(t, 8, sc.KMax)
	assert.Equal(t, []selection.AlgorithmID{selection.RandomForest}, sc.Classifiers)
	assert.True(t, sc.Parallel)
	assert.Equal(t, "debug", cfg.Log.Level)

	params, err := cfg.AlgorithmParams()
	require.NoError(t, err)
	assert.Equal(t, 25, params[selection.RandomForest].Int(trainers.ParamNumTrees, 0))
	assert.Equal(t, "entropy", params[selection.RandomForest].String(trainers.ParamImpurity, ""))
	assert.Equal(t, 0.5, params[selection.Lasso].Float(trainers.ParamAlpha, 0))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[selection]
train_fraction = 0.75
k_max = 8
`)
	t.Setenv("MODELSELECT_SELECTION_K_MAX", "12")
	t.Setenv("MODELSELECT_SELECTION_REGRESSORS", "ridge,lasso")
	t.Setenv("MODELSELECT_LOG_FORMAT", "console")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.75, cfg.Selection.TrainFraction)
	assert.Equal(t, 12, cfg.Selection.KMax)
	assert.Equal(t, []selection.AlgorithmID{selection.Ridge, selection.Lasso}, cfg.Selection.Regressors)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		param string
	}{
		{
			name:  "fraction out of range",
			body:  "[selection]\ntrain_fraction = 1.5\n",
			param: "train_fraction",
		},
		{
			name:  "candidate of the wrong kind",
			body:  "[selection]\nclassifiers = [\"kmeans\"]\n",
			param: "classification_candidates",
		},
		{
			name:  "unknown hyperparameter",
			body:  "[algorithms.ridge]\niterations = 10\n",
			param: "Ridge.iterations",
		},
		{
			name:  "unknown key",
			body:  "[selection]\nk_maximum = 3\n",
			param: "selection.k_maximum",
		},
		{
			name:  "bad log level",
			body:  "[log]\nlevel = \"loud\"\n",
			param: "log.level",
		},
		{
			name:  "bad log format",
			body:  "[log]\nformat = \"xml\"\n",
			param: "log.format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			var vErr *errors.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.param, vErr.ParamName)
		})
	}
}

func TestLoadUnknownAlgorithmSection(t *testing.T) {
	_, err := Load(writeConfig(t, "[algorithms.xgboost]\nmax_depth = 3\n"))
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplySetsRegistryParams(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[algorithms.kmeans]\nn_init = 5\n"))
	require.NoError(t, err)

	reg := trainers.DefaultRegistry(1)
	require.NoError(t, cfg.Apply(reg))
	assert.Equal(t, 5, reg.Params(selection.KMeans).Int(trainers.ParamNInit, 0))
	assert.Empty(t, reg.Params(selection.GaussianMixture))
}
