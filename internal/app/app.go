// Package app wires configuration, data loading, the reference trainers and
// the selection orchestrator into one command run.
package app

import (
	"encoding/json"
	"io"

	"github.com/YuminosukeSato/modelselect/chart"
	"github.com/YuminosukeSato/modelselect/config"
	"github.com/YuminosukeSato/modelselect/dataset"
	"github.com/YuminosukeSato/modelselect/internal/cli"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/pkg/log"
	"github.com/YuminosukeSato/modelselect/preprocessing"
	"github.com/YuminosukeSato/modelselect/selection"
	"github.com/YuminosukeSato/modelselect/trainers"
)

// Report is written to stdout as JSON.
type Report struct {
	*selection.Outcome
	Final *selection.FinalModel `json:"final,omitempty"`
	Plot  string                `json:"plot,omitempty"`
}

// Run executes one selection. Logs go to logW, the report to outW.
func Run(outW, logW io.Writer, opts *cli.Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	if err := log.SetupLogger(logW, cfg.Log.Format, cfg.Log.Level); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("modelselect")

	ds, _, err := dataset.Load(opts.DataPath, dataset.LoadOptions{
		Target:   opts.Target,
		Features: opts.Features,
	})
	if err != nil {
		return err
	}

	if opts.Standardize {
		if ds, _, err = preprocessing.StandardizeDataset(ds); err != nil {
			return err
		}
		logger.Debug("Features standardized", log.FeaturesKey, ds.NumFeatures())
	}

	seed := cfg.Selection.Seed
	reg := trainers.DefaultRegistry(seed)
	if err := cfg.Apply(reg); err != nil {
		return err
	}

	orch := selection.NewOrchestrator(reg,
		selection.WithConfig(cfg.SelectionConfig()),
		selection.WithLogger(logger),
		selection.WithSplitter(dataset.NewSplitter(dataset.WithSeed(seed), dataset.WithLogger(logger))),
	)
	out, err := orch.SelectModel(ds, opts.Kind)
	if err != nil {
		return err
	}
	report := Report{Outcome: out}

	if opts.PlotPath != "" && len(out.Curves) > 0 {
		if err := chart.SaveElbow(opts.PlotPath, out.Curves); err != nil {
			return err
		}
		report.Plot = opts.PlotPath
		logger.Info("Elbow chart written", "path", opts.PlotPath)
	}

	if opts.FitFinal {
		final, err := selection.FitFinal(reg, out, ds, logger.With(log.RunIDKey, out.RunID))
		if err != nil {
			return err
		}
		report.Final = final
	}

	enc := json.NewEncoder(outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "write report")
	}
	return nil
}
