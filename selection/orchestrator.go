package selection

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/modelselect/dataset"
	"github.com/YuminosukeSato/modelselect/metrics"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/pkg/log"
)

// State is the lifecycle state of an Orchestrator.
type State int

// 状態遷移: Idle → Splitting → Comparing → (Selecting) → Done | Failed
const (
	StateIdle State = iota
	StateSplitting
	StateComparing
	StateSelecting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSplitting:
		return "Splitting"
	case StateComparing:
		return "Comparing"
	case StateSelecting:
		return "Selecting"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// StageError は選択処理が失敗した段階と候補を保持する
type StageError struct {
	Stage State
	// Algorithm は失敗した候補名。候補に依存しない失敗では空
	Algorithm string
	Err       error
}

func (e *StageError) Error() string {
	if e.Algorithm != "" {
		return fmt.Sprintf("modelselect: %s stage failed for %s: %v", e.Stage, e.Algorithm, e.Err)
	}
	return fmt.Sprintf("modelselect: %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *StageError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", e.Stage.String()).
		Str("algorithm", e.Algorithm).
		AnErr("cause", e.Err).
		Str("type", "StageError")
}

// Config holds the tunables of one selection run.
type Config struct {
	// TrainFraction is the share of records used for training.
	TrainFraction float64
	// SampleFraction, when positive, samples the dataset before splitting
	// (or before clustering). 0 disables sampling.
	SampleFraction float64
	KMin           int
	KMax           int
	ElbowThreshold float64
	Classifiers    []AlgorithmID
	Regressors     []AlgorithmID
	Clusterers     []AlgorithmID
	Parallel       bool
}

// DefaultConfig returns the defaults: 80/20 split, no sampling, k in 2..20,
// elbow threshold 0.1, the default candidates, sequential evaluation.
func DefaultConfig() Config {
	return Config{
		TrainFraction:  0.8,
		KMin:           2,
		KMax:           20,
		ElbowThreshold: DefaultElbowThreshold,
		Classifiers:    DefaultCandidates(Classification),
		Regressors:     DefaultCandidates(Regression),
		Clusterers:     DefaultCandidates(Clustering),
	}
}

// Validate checks ranges and candidate kinds.
func (c Config) Validate() error {
	if math.IsNaN(c.TrainFraction) || c.TrainFraction <= 0 || c.TrainFraction >= 1 {
		return errors.NewValidationError("train_fraction", "must be in (0, 1)", c.TrainFraction)
	}
	if math.IsNaN(c.SampleFraction) || c.SampleFraction < 0 || c.SampleFraction >= 1 {
		return errors.NewValidationError("sample_fraction", "must be 0 (disabled) or in (0, 1)", c.SampleFraction)
	}
	if c.KMin < 1 {
		return errors.NewValidationError("k_min", "must be at least 1", c.KMin)
	}
	if c.KMax <= c.KMin {
		return errors.NewValidationError("k_max", "must be greater than k_min", c.KMax)
	}
	if math.IsNaN(c.ElbowThreshold) || math.IsInf(c.ElbowThreshold, 0) || c.ElbowThreshold < 0 {
		return errors.NewValidationError("elbow_threshold", "must be a finite non-negative number", c.ElbowThreshold)
	}
	for _, group := range []struct {
		kind TaskKind
		ids  []AlgorithmID
	}{
		{Classification, c.Classifiers},
		{Regression, c.Regressors},
		{Clustering, c.Clusterers},
	} {
		if len(group.ids) == 0 {
			return errors.NewValidationError(group.kind.String()+"_candidates", "at least one candidate is required", 0)
		}
		seen := make(map[AlgorithmID]bool, len(group.ids))
		for _, id := range group.ids {
			if id.Kind() != group.kind {
				return errors.NewValidationError(group.kind.String()+"_candidates", "algorithm does not solve "+group.kind.String(), id.String())
			}
			if seen[id] {
				return errors.NewValidationError(group.kind.String()+"_candidates", "duplicate candidate", id.String())
			}
			seen[id] = true
		}
	}
	return nil
}

// FamilyCurve is the error curve of one clustering family and its elbow.
type FamilyCurve struct {
	Algorithm AlgorithmID `json:"algorithm"`
	Curve     ErrorCurve  `json:"curve"`
	Elbow     Elbow       `json:"elbow"`
}

// Outcome is the result of a successful selection run.
type Outcome struct {
	RunID  string      `json:"run_id"`
	Kind   TaskKind    `json:"kind"`
	Winner AlgorithmID `json:"winner"`
	// K is the selected cluster count (clustering only).
	K          int               `json:"k,omitempty"`
	Candidates []CandidateResult `json:"candidates"`
	// Curves holds one entry per clustering family (clustering only).
	Curves []FamilyCurve `json:"curves,omitempty"`
}

// Orchestrator runs one model selection. An Orchestrator is single use:
// after Done or Failed, SelectModel returns ErrAlreadyRun.
type Orchestrator struct {
	mu       sync.Mutex
	state    State
	registry *Registry
	cfg      Config
	splitter *dataset.Splitter
	logger   log.Logger
	runID    string
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithConfig replaces the run configuration.
func WithConfig(cfg Config) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cfg = cfg
	}
}

// WithSplitter sets the splitter used for sampling and splitting.
func WithSplitter(s *dataset.Splitter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.splitter = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithRunID sets the run identifier instead of a random UUID.
func WithRunID(id string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.runID = id
	}
}

// NewOrchestrator creates an idle orchestrator over the trainers in registry.
func NewOrchestrator(registry *Registry, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("selection")
	}
	if o.splitter == nil {
		o.splitter = dataset.NewSplitter(dataset.WithLogger(o.logger))
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	o.logger = o.logger.With(log.RunIDKey, o.runID)
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// RunID returns the identifier attached to every log line of the run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()
	o.logger.Debug("State transition", "from", from.String(), "to", to.String())
}

// SelectModel はデータセットに対して kind の候補を比較し、勝者を返す。
//
// 教師ありタスクでは TrainFraction で学習用と評価用に分割してから比較する。
// クラスタリングでは候補ごとに k = KMin..KMax の歪みカーブを作り、
// エルボー法で選んだ k での歪みが最小の候補を勝者とする（同点は候補順）。
//
// 失敗時は失敗した段階を持つ *StageError を返し、部分的な結果は返さない。
// タスク種別や設定が不正な場合は状態を変えずにエラーを返す。
func (o *Orchestrator) SelectModel(ds *dataset.Dataset, kind TaskKind) (*Outcome, error) {
	if !kind.Valid() {
		return nil, errors.NewUnsupportedTaskKindError(kind.String())
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.state != StateIdle {
		state := o.state
		o.mu.Unlock()
		return nil, errors.Wrapf(errors.ErrAlreadyRun, "orchestrator is %s", state)
	}
	o.state = StateSplitting
	o.mu.Unlock()
	o.logger.Debug("State transition", "from", StateIdle.String(), "to", StateSplitting.String())

	start := time.Now()
	logger := o.logger.With(log.TaskKindKey, kind.String())
	logger.Info("Model selection started", log.SamplesKey, ds.Len(), log.FeaturesKey, ds.NumFeatures())

	out, err := o.run(ds, kind, logger)
	if err != nil {
		stage := o.State()
		o.transition(StateFailed)
		serr := &StageError{Stage: stage, Err: err}
		var terr *errors.TrainerError
		if errors.As(err, &terr) {
			serr.Algorithm = terr.Algorithm
		}
		logger.Error("Model selection failed", err,
			log.StageKey, stage.String(),
			log.ModelNameKey, serr.Algorithm,
		)
		return nil, errors.WithStack(serr)
	}

	o.transition(StateDone)
	fields := []any{
		log.WinnerKey, out.Winner.String(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if kind == Clustering {
		fields = append(fields, log.KKey, out.K)
	}
	logger.Info("Model selection finished", fields...)
	return out, nil
}

func (o *Orchestrator) run(ds *dataset.Dataset, kind TaskKind, logger log.Logger) (*Outcome, error) {
	if kind.Supervised() && !ds.Labeled() {
		return nil, errors.NewValidationError("dataset", "labels are required for "+kind.String(), ds.LabelName())
	}

	data := ds
	if o.cfg.SampleFraction > 0 {
		sample, err := o.splitter.Sample(ds, o.cfg.SampleFraction)
		if err != nil {
			return nil, err
		}
		data = sample
	}

	comparator := NewComparator(o.registry,
		WithClassifiers(o.cfg.Classifiers...),
		WithRegressors(o.cfg.Regressors...),
		WithParallel(o.cfg.Parallel),
		WithComparatorLogger(logger),
	)

	if kind == Clustering {
		if data.Len() == 0 {
			return nil, errors.NewEmptyDatasetError("SelectModel")
		}
		return o.selectClusters(comparator, data, logger)
	}

	split, err := o.splitter.Split(data, o.cfg.TrainFraction)
	if err != nil {
		return nil, err
	}

	o.transition(StateComparing)
	var cmp *Comparison
	if kind == Classification {
		cmp, err = comparator.CompareClassifiers(split.Train, split.Test)
	} else {
		cmp, err = comparator.CompareRegressors(split.Train, split.Test)
	}
	if err != nil {
		return nil, err
	}
	return &Outcome{
		RunID:      o.runID,
		Kind:       kind,
		Winner:     cmp.Winner,
		Candidates: cmp.Results,
	}, nil
}

func (o *Orchestrator) selectClusters(comparator *Comparator, data *dataset.Dataset, logger log.Logger) (*Outcome, error) {
	kMax := o.cfg.KMax
	if n := data.Len(); n < kMax {
		kMax = n
		logger.Warn("k_max exceeds the number of records; clamped",
			"k_max", o.cfg.KMax,
			log.SamplesKey, n,
		)
	}
	if kMax <= o.cfg.KMin {
		return nil, errors.NewInsufficientDataError("SelectModel", o.cfg.KMin+1, data.Len())
	}

	o.transition(StateComparing)
	curves := make([]FamilyCurve, len(o.cfg.Clusterers))
	for i, id := range o.cfg.Clusterers {
		curve, err := comparator.ErrorCurve(id, data, o.cfg.KMin, kMax)
		if err != nil {
			return nil, errors.Wrapf(err, "%s error curve", id)
		}
		curves[i] = FamilyCurve{Algorithm: id, Curve: curve}
	}

	o.transition(StateSelecting)
	candidates := make([]CandidateResult, len(curves))
	for i := range curves {
		elbow, err := selectK(curves[i].Algorithm.String(), curves[i].Curve, o.cfg.ElbowThreshold)
		if err != nil {
			return nil, errors.Wrapf(err, "%s elbow", curves[i].Algorithm)
		}
		curves[i].Elbow = elbow
		candidates[i] = CandidateResult{
			Algorithm: curves[i].Algorithm,
			Result:    metrics.Result{Metric: metrics.MetricDistortion, Error: elbow.Error},
			K:         elbow.K,
		}
		logger.Debug("Elbow selected",
			log.ModelNameKey, curves[i].Algorithm.String(),
			log.KKey, elbow.K,
			log.ErrorKey, elbow.Error,
			log.ThresholdKey, o.cfg.ElbowThreshold,
			log.FallbackKey, elbow.Fallback,
		)
	}

	winner, _ := pickLowestError(candidates)
	return &Outcome{
		RunID:      o.runID,
		Kind:       Clustering,
		Winner:     candidates[winner].Algorithm,
		K:          candidates[winner].K,
		Candidates: candidates,
		Curves:     curves,
	}, nil
}
