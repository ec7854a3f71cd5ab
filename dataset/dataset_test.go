package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

func makeDataset(t *testing.T, n int) *Dataset {
	t.Helper()
	rows := make([][]float64, n)
	labels := make([]float64, n)
	for i := range rows {
		rows[i] = []float64{float64(i), float64(i * 2)}
		labels[i] = float64(i % 2)
	}
	ds, err := FromRows(rows, labels, WithFeatureNames("a", "b"), WithLabelName("y"))
	require.NoError(t, err)
	return ds
}

func TestFromRows(t *testing.T) {
	ds := makeDataset(t, 5)
	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, 2, ds.NumFeatures())
	assert.True(t, ds.Labeled())
	assert.Equal(t, []float64{3, 6}, ds.Row(3))
	assert.Equal(t, []string{"a", "b"}, ds.FeatureNames())
	assert.Equal(t, "y", ds.LabelName())

	_, err := FromRows([][]float64{{1, 2}, {3}}, nil)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = FromRows([][]float64{{1}, {2}}, []float64{1})
	assert.Error(t, err)
}

func TestEmptyDataset(t *testing.T) {
	ds, err := FromRows(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.Nil(t, ds.X())
	assert.False(t, ds.Labeled())
}

func TestSubsetKeepsLabels(t *testing.T) {
	ds := makeDataset(t, 6)
	sub := ds.Subset([]int{4, 1})
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, []float64{0, 1}, sub.Labels())
	assert.Equal(t, []float64{4, 8}, sub.Row(0))
	assert.Equal(t, ds.FeatureNames(), sub.FeatureNames())
}

func TestSplitPartitionsDataset(t *testing.T) {
	ds := makeDataset(t, 10)
	s := NewSplitter(WithSeed(7))

	split, err := s.Split(ds, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 8, split.Train.Len())
	assert.Equal(t, 2, split.Test.Len())

	seen := make(map[float64]bool)
	for _, part := range []*Dataset{split.Train, split.Test} {
		prev := -1.0
		for i := 0; i < part.Len(); i++ {
			v := part.Row(i)[0]
			assert.False(t, seen[v], "record %v appears twice", v)
			assert.Greater(t, v, prev, "input order is preserved")
			seen[v] = true
			prev = v
		}
	}
	assert.Len(t, seen, 10)
}

func TestSplitIsDeterministicPerSeed(t *testing.T) {
	ds := makeDataset(t, 50)

	a, err := NewSplitter(WithSeed(3)).Split(ds, 0.7)
	require.NoError(t, err)
	b, err := NewSplitter(WithSeed(3)).Split(ds, 0.7)
	require.NoError(t, err)
	assert.Equal(t, a.Train.Labels(), b.Train.Labels())
	assert.Equal(t, a.Test.X(), b.Test.X())
}

func TestSplitSmallDatasetKeepsBothSidesNonEmpty(t *testing.T) {
	ds := makeDataset(t, 2)
	for _, f := range []float64{0.01, 0.5, 0.99} {
		split, err := NewSplitter().Split(ds, f)
		require.NoError(t, err)
		assert.Equal(t, 1, split.Train.Len())
		assert.Equal(t, 1, split.Test.Len())
	}
}

func TestSplitErrors(t *testing.T) {
	s := NewSplitter()
	ds := makeDataset(t, 4)

	tests := []struct {
		name     string
		ds       *Dataset
		fraction float64
		check    func(error) bool
	}{
		{"fraction above one", ds, 1.5, func(err error) bool {
			var e *errors.InvalidFractionError
			return errors.As(err, &e)
		}},
		{"fraction zero", ds, 0, func(err error) bool {
			var e *errors.InvalidFractionError
			return errors.As(err, &e)
		}},
		{"fraction one", ds, 1, func(err error) bool {
			var e *errors.InvalidFractionError
			return errors.As(err, &e)
		}},
		{"empty dataset", &Dataset{}, 0.5, func(err error) bool {
			return errors.Is(err, errors.ErrEmptyData)
		}},
		{"invalid fraction wins over empty", &Dataset{}, 2, func(err error) bool {
			var e *errors.InvalidFractionError
			return errors.As(err, &e)
		}},
		{"single record", makeDataset(t, 1), 0.8, func(err error) bool {
			var e *errors.InsufficientDataError
			return errors.As(err, &e) && e.Required == 2 && e.Got == 1
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Split(tt.ds, tt.fraction)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestSample(t *testing.T) {
	ds := makeDataset(t, 20)

	sample, err := NewSplitter().Sample(ds, 0.3)
	require.NoError(t, err)
	assert.Equal(t, 6, sample.Len())
	seen := make(map[float64]bool)
	for i := 0; i < sample.Len(); i++ {
		v := sample.Row(i)[0]
		assert.False(t, seen[v])
		seen[v] = true
	}

	tiny, err := NewSplitter().Sample(ds, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 1, tiny.Len())

	withRepl, err := NewSplitter(WithReplacement(true)).Sample(ds, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 10, withRepl.Len())

	_, err = NewSplitter().Sample(&Dataset{}, 0.5)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestLoadCSV(t *testing.T) {
	input := strings.Join([]string{
		"x1,x2,label",
		"1.0,2.0,cat",
		"3.0,,dog",
		"5.0,6.0,dog",
		"7.0,abc,cat",
		"9.0,10.0,",
		"11.0,12.0,cat",
	}, "\n")

	ds, stats, err := LoadCSV(strings.NewReader(input), LoadOptions{Target: "label"})
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Rows: 3, Skipped: 3}, stats)
	assert.Equal(t, []string{"x1", "x2"}, ds.FeatureNames())
	assert.Equal(t, []string{"cat", "dog"}, ds.ClassNames())
	assert.Equal(t, []float64{0, 1, 0}, ds.Labels())
	assert.Equal(t, []float64{5, 6}, ds.Row(1))
}

func TestLoadCSVFeatureSelectionAndUnlabeled(t *testing.T) {
	input := "a,b,c\n1,2,3\n4,5,6\n"

	ds, _, err := LoadCSV(strings.NewReader(input), LoadOptions{Features: []string{"c", "a"}})
	require.NoError(t, err)
	assert.False(t, ds.Labeled())
	assert.Equal(t, []float64{6, 4}, ds.Row(1))

	_, _, err = LoadCSV(strings.NewReader(input), LoadOptions{Target: "missing"})
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestLoadJSONLines(t *testing.T) {
	input := `{"b": 2, "a": 1, "y": 0.5}
{"b": 4, "a": 3, "y": 1.5}

not json
{"b": null, "a": 5, "y": 2}
`
	ds, stats, err := LoadJSON(strings.NewReader(input), LoadOptions{Target: "y"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, []string{"a", "b"}, ds.FeatureNames())
	assert.Equal(t, []float64{0.5, 1.5}, ds.Labels())
	assert.Nil(t, ds.ClassNames())
}

func TestLoadJSONLinesCountsSkipsAroundFirstObject(t *testing.T) {
	input := `{broken
{"a": 1, "y": 0}
[1, 2]
{"a": "x", "y": 1}
{"a": 2, "y": 1}
nope
`
	ds, stats, err := LoadJSON(strings.NewReader(input), LoadOptions{Target: "y"})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, LoadStats{Rows: 2, Skipped: 4}, stats)
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"x": 1}`+"\n"+`{"x": 2}`+"\n"), 0o600))

	ds, stats, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 2, ds.Len())

	_, _, err = Load(filepath.Join(dir, "missing.csv"), LoadOptions{})
	assert.Error(t, err)
}
