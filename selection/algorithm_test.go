package selection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

func TestParseAlgorithmID(t *testing.T) {
	tests := []struct {
		in   string
		want AlgorithmID
	}{
		{"Naive Bayes", NaiveBayes},
		{"naive_bayes", NaiveBayes},
		{"RandomForest", RandomForest},
		{"random-forest", RandomForest},
		{"lasso", Lasso},
		{"Ridge", Ridge},
		{"linear", LinearRegression},
		{"LinearRegression", LinearRegression},
		{"kmeans", KMeans},
		{"K-Means", KMeans},
		{"gaussian", GaussianMixture},
		{" Gaussian Mixture ", GaussianMixture},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithmID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAlgorithmID("svm")
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestAlgorithmKinds(t *testing.T) {
	for _, id := range AllAlgorithms() {
		assert.True(t, id.Valid())
		assert.Contains(t, DefaultCandidates(id.Kind()), id, "%s is a default candidate of its kind", id)
	}
	assert.False(t, AlgorithmID(0).Valid())
	assert.Equal(t, "Unknown", AlgorithmID(99).String())
}

func TestParseTaskKind(t *testing.T) {
	for _, kind := range []TaskKind{Classification, Regression, Clustering} {
		got, err := ParseTaskKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}

	got, err := ParseTaskKind(" Regression ")
	require.NoError(t, err)
	assert.Equal(t, Regression, got)

	_, err = ParseTaskKind("ranking")
	var kErr *errors.UnsupportedTaskKindError
	require.True(t, errors.As(err, &kErr))
	assert.Equal(t, "ranking", kErr.Kind)
}

func TestCheckCategory(t *testing.T) {
	assert.NoError(t, CheckCategory(Supervised, Classification))
	assert.NoError(t, CheckCategory(Supervised, Regression))
	assert.NoError(t, CheckCategory(Unsupervised, Clustering))

	var vErr *errors.ValidationError
	assert.True(t, errors.As(CheckCategory(Unsupervised, Regression), &vErr))
	assert.True(t, errors.As(CheckCategory(Supervised, Clustering), &vErr))

	var kErr *errors.UnsupportedTaskKindError
	assert.True(t, errors.As(CheckCategory(Supervised, TaskKind(0)), &kErr))

	c, err := ParseCategory("Unsupervised")
	require.NoError(t, err)
	assert.Equal(t, Unsupervised, c)
	_, err = ParseCategory("semi")
	assert.Error(t, err)
}

func TestTextMarshaling(t *testing.T) {
	data, err := json.Marshal(struct {
		Kind   TaskKind    `json:"kind"`
		Winner AlgorithmID `json:"winner"`
	}{Clustering, GaussianMixture})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"clustering","winner":"GaussianMixture"}`, string(data))

	var decoded struct {
		Kind   TaskKind    `json:"kind"`
		Winner AlgorithmID `json:"winner"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"regression","winner":"lasso"}`), &decoded))
	assert.Equal(t, Regression, decoded.Kind)
	assert.Equal(t, Lasso, decoded.Winner)
}
