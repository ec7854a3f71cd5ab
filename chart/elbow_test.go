package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/selection"
)

func familyCurves() []selection.FamilyCurve {
	km := selection.ErrorCurve{{K: 2, Error: 100}, {K: 3, Error: 40}, {K: 4, Error: 38}, {K: 5, Error: 37.5}}
	gm := selection.ErrorCurve{{K: 2, Error: 120}, {K: 3, Error: 60}, {K: 4, Error: 30}, {K: 5, Error: 20}}
	return []selection.FamilyCurve{
		{Algorithm: selection.KMeans, Curve: km, Elbow: selection.Elbow{K: 3, Error: 40, Index: 1}},
		{Algorithm: selection.GaussianMixture, Curve: gm, Elbow: selection.Elbow{K: 5, Error: 20, Index: 3, Fallback: true}},
	}
}

func TestElbowPlot(t *testing.T) {
	p, err := ElbowPlot(familyCurves())
	require.NoError(t, err)
	assert.Equal(t, "Elbow selection", p.Title.Text)
	assert.LessOrEqual(t, p.X.Min, 2.0)
	assert.GreaterOrEqual(t, p.X.Max, 5.0)
	assert.GreaterOrEqual(t, p.Y.Max, 120.0)
}

func TestElbowPlotRejectsEmptyInput(t *testing.T) {
	var vErr *errors.ValidationError
	_, err := ElbowPlot(nil)
	assert.True(t, errors.As(err, &vErr))

	_, err = ElbowPlot([]selection.FamilyCurve{{Algorithm: selection.KMeans}})
	assert.True(t, errors.As(err, &vErr))
}

func TestWriteElbowPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteElbow(&buf, ".PNG", familyCurves()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestSaveElbowSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elbow.svg")
	require.NoError(t, SaveElbow(path, familyCurves()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
	assert.Equal(t, "svg", FormatOf(path))
}

func TestLegendLabel(t *testing.T) {
	curves := familyCurves()
	assert.Equal(t, "KMeans (k=3)", legendLabel(curves[0]))
	assert.Equal(t, "GaussianMixture (k=5) fallback", legendLabel(curves[1]))
}
