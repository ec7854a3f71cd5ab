// Standard attribute keys for model selection logging.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so log lines from different runs can be filtered uniformly.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the algorithm family.
	// Examples: "NaiveBayes", "RandomForest", "KMeans"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "evaluate", "split", "sample"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Selection run context
const (
	// RunIDKey is the UUID assigned to one selection run.
	RunIDKey = "selection.run_id"

	// TaskKindKey is classification, regression or clustering.
	TaskKindKey = "selection.task_kind"

	// StageKey is the orchestrator state a log line belongs to.
	StageKey = "selection.stage"

	// WinnerKey is the chosen algorithm.
	WinnerKey = "selection.winner"

	// KKey is a cluster count.
	KKey = "selection.k"

	// ThresholdKey is the elbow threshold actually applied.
	ThresholdKey = "selection.threshold"

	// FallbackKey reports whether the elbow scan fell back to k_max.
	FallbackKey = "selection.fallback"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// TrainSamplesKey and TestSamplesKey describe a train/test split.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"

	// FractionKey is the split or sampling fraction.
	FractionKey = "data.fraction"

	// SkippedRowsKey counts input rows dropped during ingestion.
	SkippedRowsKey = "data.skipped_rows"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy in [0, 1].
	AccuracyKey = "metrics.accuracy"

	// ErrorKey records the error signal of an evaluation (1-accuracy, RMSE or distortion).
	ErrorKey = "metrics.error"

	// MetricKey names the metric an evaluation used.
	MetricKey = "metrics.name"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationEvaluate = "evaluate"
	OperationSplit    = "split"
	OperationSample   = "sample"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseSelection  = "selection"
)
