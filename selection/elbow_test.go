package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

func curve(kMin int, values ...float64) ErrorCurve {
	out := make(ErrorCurve, len(values))
	for i, v := range values {
		out[i] = CurvePoint{K: kMin + i, Error: v}
	}
	return out
}

func TestSelectK(t *testing.T) {
	tests := []struct {
		name      string
		curve     ErrorCurve
		threshold float64
		want      Elbow
	}{
		{
			name:      "plateau after third point",
			curve:     curve(0, 100, 80, 75, 74, 73.9),
			threshold: 0.1,
			want:      Elbow{K: 2, Error: 75, Index: 2},
		},
		{
			name:      "k offset follows curve",
			curve:     curve(2, 100, 80, 75, 74, 73.9),
			threshold: 0.1,
			want:      Elbow{K: 4, Error: 75, Index: 2},
		},
		{
			name:      "strictly decreasing falls back to last point",
			curve:     curve(2, 100, 50, 25, 12, 6),
			threshold: 0.1,
			want:      Elbow{K: 6, Error: 6, Index: 4, Fallback: true},
		},
		{
			name:      "flat start stops at first point",
			curve:     curve(2, 10, 10, 5),
			threshold: 0.1,
			want:      Elbow{K: 2, Error: 10, Index: 0},
		},
		{
			name:      "zero threshold needs exact plateau",
			curve:     curve(2, 10, 5, 5, 1),
			threshold: 0,
			want:      Elbow{K: 3, Error: 5, Index: 1},
		},
		{
			name:      "two points with large threshold",
			curve:     curve(2, 10, 4),
			threshold: 1,
			want:      Elbow{K: 2, Error: 10, Index: 0},
		},
		{
			name:      "two points fallback",
			curve:     curve(2, 10, 4),
			threshold: 0.5,
			want:      Elbow{K: 3, Error: 4, Index: 1, Fallback: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectK(tt.curve, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectKErrors(t *testing.T) {
	var insufficient *errors.InsufficientDataError
	_, err := SelectK(curve(2, 10), 0.1)
	assert.True(t, errors.As(err, &insufficient))
	_, err = SelectK(nil, 0.1)
	assert.True(t, errors.As(err, &insufficient))

	var vErr *errors.ValidationError
	_, err = SelectK(curve(2, 10, 5), -0.1)
	assert.True(t, errors.As(err, &vErr))
	_, err = SelectK(curve(2, 10, 5), math.NaN())
	assert.True(t, errors.As(err, &vErr))
	_, err = SelectK(ErrorCurve{{K: 3, Error: 10}, {K: 2, Error: 5}}, 0.1)
	assert.True(t, errors.As(err, &vErr))

	var numErr *errors.NumericalInstabilityError
	_, err = SelectK(curve(2, 10, math.Inf(1), 3), 0.1)
	assert.True(t, errors.As(err, &numErr))
}

func TestSelectKWarnsOnIncrease(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	got, err := SelectK(curve(2, 100, 60, 65, 30, 29), 0.1)
	require.NoError(t, err)
	assert.Equal(t, 5, got.K)

	require.Len(t, warnings, 1)
	var w *errors.NonMonotonicCurveWarning
	require.True(t, errors.As(warnings[0], &w))
	assert.Equal(t, 4, w.K)
	assert.Equal(t, 60.0, w.Previous)
	assert.Equal(t, 65.0, w.Current)
}
