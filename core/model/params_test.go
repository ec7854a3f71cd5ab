package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsGetters(t *testing.T) {
	p := Params{
		"num_trees": int64(25),
		"alpha":     0.5,
		"impurity":  "entropy",
		"max_depth": 6.0,
		"bootstrap": true,
		"tol":       "1e-4",
	}

	assert.Equal(t, 25, p.Int("num_trees", 10))
	assert.Equal(t, 6, p.Int("max_depth", 4))
	assert.Equal(t, 3, p.Int("missing", 3))
	assert.Equal(t, 0.5, p.Float("alpha", 1))
	assert.Equal(t, 25.0, p.Float("num_trees", 0))
	assert.Equal(t, 1e-4, p.Float("tol", 0))
	assert.Equal(t, "entropy", p.String("impurity", "gini"))
	assert.Equal(t, "gini", p.String("missing", "gini"))
	assert.True(t, p.Bool("bootstrap", false))
	assert.False(t, p.Bool("missing", false))
}

func TestParamsMergeAndFormat(t *testing.T) {
	base := Params{"alpha": 1.0, "iterations": 100}
	merged := base.Merge(Params{"alpha": 0.1})

	assert.Equal(t, 0.1, merged.Float("alpha", 0))
	assert.Equal(t, 1.0, base.Float("alpha", 0))
	assert.Equal(t, "alpha=0.1 iterations=100", merged.Format())
}

func TestBaseEstimatorCheckFitted(t *testing.T) {
	var e BaseEstimator
	assert.Error(t, e.CheckFitted("KMeans", "Predict"))
	e.SetFitted()
	assert.NoError(t, e.CheckFitted("KMeans", "Predict"))
	e.Reset()
	assert.False(t, e.IsFitted())
}
