// Package cli parses the modelselect command line into Options and maps
// failures to process exit codes.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/YuminosukeSato/modelselect/chart"
	"github.com/YuminosukeSato/modelselect/selection"
)

// 終了コード
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError carries the exit code for a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// Options is the parsed command line.
type Options struct {
	DataPath   string
	Kind       selection.TaskKind
	Target     string
	Features   []string
	ConfigPath string
	// LogLevel と LogFormat は空なら設定ファイルの値を使う
	LogLevel    string
	LogFormat   string
	PlotPath    string
	Standardize bool
	FitFinal    bool
}

var plotFormats = map[string]bool{"png": true, "svg": true, "pdf": true, "jpg": true, "jpeg": true, "eps": true, "tif": true, "tiff": true}

// Parse processes args. It returns the options, whether the program should
// exit cleanly (help was requested), or an *ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	fs := flag.NewFlagSet("modelselect", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
modelselect - pick the best model family for a dataset.

Usage:
  modelselect -data FILE -kind KIND [options]

Kinds:
  classification, regression (category supervised)
  clustering (category unsupervised)

Options:
`)
		fs.PrintDefaults()
	}

	opts := &Options{}
	var category, kind, features string
	fs.StringVar(&opts.DataPath, "data", "", "Path to a CSV (with header) or JSON lines dataset.")
	fs.StringVar(&category, "category", "", "Task category: 'supervised' or 'unsupervised'. Checked against -kind when set.")
	fs.StringVar(&kind, "kind", "", "Task kind: 'classification', 'regression' or 'clustering'.")
	fs.StringVar(&opts.Target, "target", "", "Label column. Required for supervised kinds.")
	fs.StringVar(&features, "features", "", "Comma separated feature columns. Default: every column except -target.")
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to a TOML configuration file.")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Logging level: 'debug', 'info', 'warn', 'error'. Overrides the config file.")
	fs.StringVar(&opts.LogFormat, "log-format", "", "Log output format: 'json' or 'console'. Overrides the config file.")
	fs.StringVar(&opts.PlotPath, "plot", "", "Write the elbow chart to this file (clustering only, format from extension).")
	fs.BoolVar(&opts.Standardize, "standardize", false, "Standardize features to zero mean and unit variance.")
	fs.BoolVar(&opts.FitFinal, "fit-final", false, "Retrain the winner on the whole dataset and report its training score.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, usageError("%v", err)
	}
	if fs.NArg() > 0 {
		return nil, false, usageError("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if opts.DataPath == "" || kind == "" {
		fs.Usage()
		return nil, false, usageError("-data and -kind are required")
	}

	k, err := selection.ParseTaskKind(kind)
	if err != nil {
		return nil, false, usageError("invalid -kind: %v", err)
	}
	opts.Kind = k
	if category != "" {
		c, err := selection.ParseCategory(category)
		if err != nil {
			return nil, false, usageError("invalid -category: %v", err)
		}
		if err := selection.CheckCategory(c, k); err != nil {
			return nil, false, usageError("%s does not belong to category %s", k, c)
		}
	}

	if k.Supervised() && opts.Target == "" {
		return nil, false, usageError("-target is required for %s", k)
	}
	if k == selection.Clustering && opts.Target != "" {
		return nil, false, usageError("-target must be empty for clustering")
	}

	opts.Features = splitList(features)

	opts.LogLevel = strings.ToLower(opts.LogLevel)
	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid -log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	opts.LogFormat = strings.ToLower(opts.LogFormat)
	switch opts.LogFormat {
	case "", "json", "console", "text":
	default:
		return nil, false, usageError("invalid -log-format: must be 'json' or 'console'")
	}

	if opts.PlotPath != "" {
		if k != selection.Clustering {
			return nil, false, usageError("-plot is only supported for clustering")
		}
		if !plotFormats[chart.FormatOf(opts.PlotPath)] {
			return nil, false, usageError("unsupported -plot format %q", chart.FormatOf(opts.PlotPath))
		}
	}
	return opts, false, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
