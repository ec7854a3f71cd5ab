package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/dataset"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// funcPredictor predicts each row with fn.
type funcPredictor struct {
	fn func(row []float64) float64
}

func (p funcPredictor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, p.fn(mat.Row(nil, i, X)))
	}
	return out, nil
}

// fixedPredictor returns the same predictions regardless of input.
type fixedPredictor []float64

func (p fixedPredictor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	if r != len(p) {
		return nil, errors.NewDimensionError("fixedPredictor.Predict", len(p), r, 0)
	}
	return mat.NewDense(r, 1, append([]float64(nil), p...)), nil
}

func fixedTrainer(pred ...float64) Trainer {
	return TrainerFunc(func(*dataset.Dataset, model.Params) (model.Predictor, error) {
		return fixedPredictor(pred), nil
	})
}

func ruleTrainer(fn func(row []float64) float64) Trainer {
	return TrainerFunc(func(*dataset.Dataset, model.Params) (model.Predictor, error) {
		return funcPredictor{fn: fn}, nil
	})
}

func failingTrainer(err error) Trainer {
	return TrainerFunc(func(*dataset.Dataset, model.Params) (model.Predictor, error) {
		return nil, err
	})
}

// offsetClusterer assigns every row to center 0, placed so that the
// distortion over an all-zero dataset of n rows equals a chosen value.
type offsetClusterer struct {
	offset float64
	k      int
}

func (c offsetClusterer) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	return mat.NewDense(r, 1, nil), nil
}

func (c offsetClusterer) ClusterCenters() [][]float64 {
	centers := make([][]float64, c.k)
	centers[0] = []float64{c.offset}
	for i := 1; i < c.k; i++ {
		centers[i] = []float64{1e6}
	}
	return centers
}

// curveTrainer yields the distortion errs[k] for every k on a zero dataset.
func curveTrainer(errs map[int]float64) ClusterTrainer {
	return ClusterTrainerFunc(func(ds *dataset.Dataset, k int, _ model.Params) (model.Clusterer, error) {
		e, ok := errs[k]
		if !ok {
			return nil, errors.Newf("no curve value for k=%d", k)
		}
		return offsetClusterer{offset: math.Sqrt(e / float64(ds.Len())), k: k}, nil
	})
}

func curveOf(kMin int, values ...float64) map[int]float64 {
	out := make(map[int]float64, len(values))
	for i, v := range values {
		out[kMin+i] = v
	}
	return out
}

func zeroDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{0}
	}
	ds, err := dataset.FromRows(rows, nil)
	require.NoError(t, err)
	return ds
}

func labeledDataset(t *testing.T, features [][]float64, labels []float64) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRows(features, labels)
	require.NoError(t, err)
	return ds
}

// parityDataset holds n records whose only feature equals the label i%2.
func parityDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rows := make([][]float64, n)
	labels := make([]float64, n)
	for i := range rows {
		labels[i] = float64(i % 2)
		rows[i] = []float64{labels[i]}
	}
	return labeledDataset(t, rows, labels)
}
