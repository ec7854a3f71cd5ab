package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/pkg/log"
)

// LoadOptions selects the label and feature columns.
type LoadOptions struct {
	// Target is the label column. Empty means the dataset is unlabeled.
	Target string
	// Features lists the feature columns. Empty means every column except
	// Target.
	Features []string
}

// LoadStats reports how many input rows were kept and skipped.
type LoadStats struct {
	Rows    int
	Skipped int
}

// Load reads a dataset from path. Files ending in .json or .jsonl are read
// as JSON lines, everything else as CSV with a header row.
func Load(path string, opts LoadOptions) (*Dataset, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var (
		ds    *Dataset
		stats LoadStats
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl", ".ndjson":
		ds, stats, err = LoadJSON(f, opts)
	default:
		ds, stats, err = LoadCSV(f, opts)
	}
	if err != nil {
		return nil, stats, errors.Wrapf(err, "load %s", path)
	}

	log.GetLoggerWithName("dataset").Info("Dataset loaded",
		"data.path", path,
		log.SamplesKey, stats.Rows,
		log.SkippedRowsKey, stats.Skipped,
		log.FeaturesKey, ds.NumFeatures(),
	)
	return ds, stats, nil
}

// LoadCSV reads CSV with a header row. Rows with a missing or non-numeric
// feature, or a missing label, are skipped.
func LoadCSV(r io.Reader, opts LoadOptions) (*Dataset, LoadStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, LoadStats{}, errors.NewEmptyDatasetError("dataset.LoadCSV")
	}
	if err != nil {
		return nil, LoadStats{}, errors.Wrap(err, "read csv header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cols, err := resolveColumns(header, opts)
	if err != nil {
		return nil, LoadStats{}, err
	}

	b := newBuilder(cols, opts.Target)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				b.stats.Skipped++
				continue
			}
			return nil, b.stats, errors.Wrap(err, "read csv record")
		}
		b.add(func(name string) (string, bool) {
			idx, ok := cols.index[name]
			if !ok || idx >= len(record) {
				return "", false
			}
			return record[idx], true
		})
	}
	return b.build()
}

// LoadJSON reads one JSON object per line. Blank lines are ignored and
// lines that do not decode are skipped.
func LoadJSON(r io.Reader, opts LoadOptions) (*Dataset, LoadStats, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		b     *rowBuilder
		stats LoadStats
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			if b != nil {
				b.stats.Skipped++
			} else {
				stats.Skipped++
			}
			continue
		}
		if b == nil {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			cols, err := resolveColumns(keys, opts)
			if err != nil {
				return nil, stats, err
			}
			// 列決定前に読み飛ばした行も引き継ぐ
			b = newBuilder(cols, opts.Target)
			b.stats = stats
		}
		b.add(func(name string) (string, bool) {
			v, ok := obj[name]
			if !ok || v == nil {
				return "", false
			}
			switch t := v.(type) {
			case string:
				return t, true
			case float64:
				return strconv.FormatFloat(t, 'g', -1, 64), true
			case bool:
				if t {
					return "1", true
				}
				return "0", true
			default:
				return "", false
			}
		})
	}
	if err := sc.Err(); err != nil {
		return nil, stats, errors.Wrap(err, "read json lines")
	}
	if b == nil {
		return nil, stats, errors.NewEmptyDatasetError("dataset.LoadJSON")
	}
	return b.build()
}

type columns struct {
	features []string
	index    map[string]int
}

func resolveColumns(names []string, opts LoadOptions) (columns, error) {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	if opts.Target != "" {
		if _, ok := index[opts.Target]; !ok {
			return columns{}, errors.NewValidationError("target", "column not found", opts.Target)
		}
	}

	features := opts.Features
	if len(features) == 0 {
		for _, n := range names {
			if n != opts.Target {
				features = append(features, n)
			}
		}
	}
	for _, f := range features {
		if _, ok := index[f]; !ok {
			return columns{}, errors.NewValidationError("features", "column not found", f)
		}
	}
	if len(features) == 0 {
		return columns{}, errors.NewValidationError("features", "no feature columns", names)
	}
	return columns{features: features, index: index}, nil
}

type rowBuilder struct {
	cols   columns
	target string
	rows   [][]float64
	labels []string
	stats  LoadStats
}

func newBuilder(cols columns, target string) *rowBuilder {
	return &rowBuilder{cols: cols, target: target}
}

func (b *rowBuilder) add(get func(name string) (string, bool)) {
	row := make([]float64, len(b.cols.features))
	for i, name := range b.cols.features {
		s, ok := get(name)
		if !ok {
			b.stats.Skipped++
			return
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			b.stats.Skipped++
			return
		}
		row[i] = v
	}
	if b.target != "" {
		s, ok := get(b.target)
		s = strings.TrimSpace(s)
		if !ok || s == "" {
			b.stats.Skipped++
			return
		}
		b.labels = append(b.labels, s)
	}
	b.rows = append(b.rows, row)
	b.stats.Rows++
}

// build encodes labels: when every label parses as a number the values are
// used directly, otherwise the sorted distinct strings become class indices.
func (b *rowBuilder) build() (*Dataset, LoadStats, error) {
	opts := []Option{WithFeatureNames(b.cols.features...)}
	if b.target == "" {
		ds, err := FromRows(b.rows, nil, opts...)
		return ds, b.stats, err
	}

	opts = append(opts, WithLabelName(b.target))
	labels, classes := encodeLabels(b.labels)
	if classes != nil {
		opts = append(opts, WithClassNames(classes...))
	}
	ds, err := FromRows(b.rows, labels, opts...)
	return ds, b.stats, err
}

func encodeLabels(raw []string) ([]float64, []string) {
	labels := make([]float64, len(raw))
	numeric := true
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			numeric = false
			break
		}
		labels[i] = v
	}
	if numeric {
		return labels, nil
	}

	seen := make(map[string]struct{})
	for _, s := range raw {
		seen[s] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for s := range seen {
		classes = append(classes, s)
	}
	sort.Strings(classes)
	code := make(map[string]float64, len(classes))
	for i, c := range classes {
		code[c] = float64(i)
	}
	for i, s := range raw {
		labels[i] = code[s]
	}
	return labels, classes
}
