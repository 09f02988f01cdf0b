// Package log defines standard attribute keys for the report pipeline.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so records from the crime and credit reports can be
// filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "PCRegression", "SVC", "KNeighborsClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the pipeline operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "dataset", "model_selection", "report"
	ComponentKey = "ml.component"

	// PhaseKey indicates the pipeline phase.
	PhaseKey = "ml.phase"

	// ReportKey names the report being executed ("crime", "credit").
	ReportKey = "report.name"

	// RunIDKey carries the per-execution identifier of a report.
	RunIDKey = "report.run_id"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// PathKey records the input file path.
	PathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy in [0, 1].
	AccuracyKey = "metrics.accuracy"

	// R2ScoreKey records the coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// MetricStdKey records the standard deviation of fold scores.
	MetricStdKey = "metrics.std"

	// IterationKey records the iteration number of an iterative solver.
	IterationKey = "training.iteration"
)

// Cross-validation and search
const (
	// GridPointKey identifies a hyperparameter combination, formatted by its String method.
	GridPointKey = "search.grid_point"

	// GridIndexKey is the position of a grid point in enumeration order.
	GridIndexKey = "search.grid_index"

	// SchemeKey names the cross-validation scheme.
	SchemeKey = "cv.scheme"

	// FitsKey records how many models a cross-validation run fitted.
	FitsKey = "cv.fits"
)

// Error Context
const (
	// ErrorTypeKey categorizes the error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// SplitFractionKey records the train fraction of the partition.
	SplitFractionKey = "config.split_fraction"
)

// Standard attribute values.
const (
	OperationLoad      = "load"
	OperationSplit     = "split"
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationSelect    = "select"
	OperationEvaluate  = "evaluate"

	PhaseExploration = "exploration"
	PhaseTraining    = "training"
	PhaseValidation  = "validation"
	PhaseTesting     = "testing"
)
