package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/dataset"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

func TestStandardScalerFitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScalerDefault()
	out, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2.5, 10}, s.Mean, 1e-12)
	// 母標準偏差 sqrt(1.25)。分散0の列は1
	assert.InDelta(t, 1.118033988749895, s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1])

	assert.InDelta(t, -1.3416407864998738, out.At(0, 0), 1e-12)
	assert.InDelta(t, 1.3416407864998738, out.At(3, 0), 1e-12)
	for i := range 4 {
		assert.Zero(t, out.At(i, 1))
	}

	back, err := s.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScalerWithoutMean(t *testing.T) {
	s := NewStandardScaler(false, true)
	out, err := s.FitTransform(mat.NewDense(2, 1, []float64{1, 3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, s.Mean)
	assert.InDelta(t, 1.0, out.At(0, 0), 1e-12)
	assert.InDelta(t, 3.0, out.At(1, 0), 1e-12)
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScalerDefault()

	_, err := s.Transform(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	assert.Contains(t, s.String(), "n_features=2")
	assert.Equal(t, true, s.GetParams().Bool("with_mean", false))
}

func TestStandardizeDataset(t *testing.T) {
	ds, err := dataset.FromRows([][]float64{{0, 1}, {2, 3}}, []float64{0, 1},
		dataset.WithFeatureNames("a", "b"))
	require.NoError(t, err)

	out, s, err := StandardizeDataset(ds)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, s.Mean)
	assert.Equal(t, []float64{-1, -1}, out.Row(0))
	assert.Equal(t, []float64{1, 1}, out.Row(1))
	assert.Equal(t, ds.Labels(), out.Labels())
	assert.Equal(t, []string{"a", "b"}, out.FeatureNames())
	// 元のデータセットは変更されない
	assert.Equal(t, []float64{0, 1}, ds.Row(0))

	empty, err := dataset.FromRows(nil, nil)
	require.NoError(t, err)
	_, _, err = StandardizeDataset(empty)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
