// Package dataset provides the read-only record collection consumed by model
// selection, the train/test splitter and CSV/JSON ingestion.
package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// Dataset is an ordered, immutable collection of records. Every record has
// the same number of features; either every record carries a label or none
// does.
type Dataset struct {
	x            *mat.Dense // nil when the dataset has no records
	y            []float64  // nil when unlabeled
	nFeatures    int
	featureNames []string
	labelName    string
	classNames   []string
}

// Option configures dataset metadata.
type Option func(*Dataset)

// WithFeatureNames attaches column names to the features.
func WithFeatureNames(names ...string) Option {
	return func(d *Dataset) {
		d.featureNames = append([]string(nil), names...)
	}
}

// WithLabelName attaches the name of the label column.
func WithLabelName(name string) Option {
	return func(d *Dataset) {
		d.labelName = name
	}
}

// WithClassNames records the original string labels when labels were
// encoded as class indices.
func WithClassNames(names ...string) Option {
	return func(d *Dataset) {
		d.classNames = append([]string(nil), names...)
	}
}

// New builds a dataset from a feature matrix and optional labels. A nil y
// produces an unlabeled dataset. A nil X produces an empty dataset.
func New(X mat.Matrix, y []float64, opts ...Option) (*Dataset, error) {
	d := &Dataset{}
	for _, opt := range opts {
		opt(d)
	}

	if X == nil {
		if len(y) > 0 {
			return nil, errors.NewDimensionError("dataset.New", 0, len(y), 0)
		}
		if y != nil {
			d.y = []float64{}
		}
		d.nFeatures = len(d.featureNames)
		return d, nil
	}

	r, c := X.Dims()
	if y != nil && len(y) != r {
		return nil, errors.NewDimensionError("dataset.New", r, len(y), 0)
	}
	if d.featureNames != nil && len(d.featureNames) != c {
		return nil, errors.NewDimensionError("dataset.New", c, len(d.featureNames), 1)
	}

	d.x = mat.DenseCopyOf(X)
	d.nFeatures = c
	if y != nil {
		d.y = append([]float64(nil), y...)
	}
	return d, nil
}

// FromRows builds a dataset from row slices. labels may be nil for an
// unlabeled dataset; otherwise it must have one entry per row.
func FromRows(rows [][]float64, labels []float64, opts ...Option) (*Dataset, error) {
	if len(rows) == 0 {
		return New(nil, labels, opts...)
	}

	nFeatures := len(rows[0])
	if nFeatures == 0 {
		return nil, errors.NewValueError("dataset.FromRows", "records must have at least one feature")
	}
	data := make([]float64, 0, len(rows)*nFeatures)
	for i, row := range rows {
		if len(row) != nFeatures {
			return nil, errors.Wrapf(errors.NewDimensionError("dataset.FromRows", nFeatures, len(row), 1), "record %d", i)
		}
		data = append(data, row...)
	}
	return New(mat.NewDense(len(rows), nFeatures, data), labels, opts...)
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil || d.x == nil {
		return 0
	}
	r, _ := d.x.Dims()
	return r
}

// NumFeatures returns the feature dimensionality.
func (d *Dataset) NumFeatures() int {
	return d.nFeatures
}

// Labeled reports whether records carry labels.
func (d *Dataset) Labeled() bool {
	return d.y != nil
}

// X returns the feature matrix. Callers must not modify it.
// It is nil for an empty dataset.
func (d *Dataset) X() mat.Matrix {
	if d.x == nil {
		return nil
	}
	return d.x
}

// Y returns the labels as an n×1 matrix, or nil when unlabeled or empty.
func (d *Dataset) Y() mat.Matrix {
	if len(d.y) == 0 {
		return nil
	}
	return mat.NewDense(len(d.y), 1, append([]float64(nil), d.y...))
}

// Labels returns a copy of the labels.
func (d *Dataset) Labels() []float64 {
	if d.y == nil {
		return nil
	}
	return append([]float64(nil), d.y...)
}

// Row returns a copy of the features of record i.
func (d *Dataset) Row(i int) []float64 {
	return mat.Row(nil, i, d.x)
}

// FeatureNames returns the feature column names, if known.
func (d *Dataset) FeatureNames() []string {
	return append([]string(nil), d.featureNames...)
}

// LabelName returns the label column name, if known.
func (d *Dataset) LabelName() string {
	return d.labelName
}

// ClassNames returns the original string labels for encoded class indices.
func (d *Dataset) ClassNames() []string {
	return append([]string(nil), d.classNames...)
}

// Subset returns a new dataset holding the records at indices, in the order
// given.
func (d *Dataset) Subset(indices []int) *Dataset {
	out := &Dataset{
		nFeatures:    d.nFeatures,
		featureNames: d.featureNames,
		labelName:    d.labelName,
		classNames:   d.classNames,
	}
	if d.y != nil {
		out.y = make([]float64, 0, len(indices))
	}
	if len(indices) == 0 {
		return out
	}

	x := mat.NewDense(len(indices), d.nFeatures, nil)
	for i, idx := range indices {
		x.SetRow(i, d.x.RawRowView(idx))
		if d.y != nil {
			out.y = append(out.y, d.y[idx])
		}
	}
	out.x = x
	return out
}

// WithFeatures returns a copy of the dataset with its feature matrix
// replaced, keeping labels and metadata. Used after feature scaling.
func (d *Dataset) WithFeatures(X mat.Matrix) (*Dataset, error) {
	r, c := X.Dims()
	if r != d.Len() {
		return nil, errors.NewDimensionError("Dataset.WithFeatures", d.Len(), r, 0)
	}
	if c != d.nFeatures {
		return nil, errors.NewDimensionError("Dataset.WithFeatures", d.nFeatures, c, 1)
	}
	return &Dataset{
		x:            mat.DenseCopyOf(X),
		y:            d.Labels(),
		nFeatures:    c,
		featureNames: d.featureNames,
		labelName:    d.labelName,
		classNames:   d.classNames,
	}, nil
}
