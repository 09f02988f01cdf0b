package model_selection

import (
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/core/parallel"
	"github.com/YuminosukeSato/statlab/metrics"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// TieTolerance is the largest metric difference treated as a tie by Select.
const TieTolerance = 1e-12

// SearchConfig configures GridSearch.
type SearchConfig struct {
	Scheme Scheme
	Scorer metrics.Scorer
	// Seed derives one random stream per grid point, so results do not
	// depend on scheduling.
	Seed uint64
	// Parallel is the number of grid points evaluated concurrently.
	// 0 and 1 run sequentially, a negative value uses one worker per CPU.
	Parallel int
	// Logger receives per-point records; nil uses the "model_selection"
	// component logger.
	Logger log.Logger
}

func (c SearchConfig) workers() int {
	switch {
	case c.Parallel < 0:
		return 0
	case c.Parallel <= 1:
		return 1
	default:
		return c.Parallel
	}
}

// GridResult is the outcome of one grid point. Err is set, and CV is nil,
// when the fit did not converge.
type GridResult[P any] struct {
	Index  int
	Params P
	CV     *CVResult
	Err    error
}

// Converged reports whether the grid point produced a metric.
func (r GridResult[P]) Converged() bool {
	return r.Err == nil && r.CV != nil
}

// GridSearch cross-validates build(p) for every p in grid.
//
// A grid point whose fit returns a NonConvergenceError or a
// RankDeficiencyError is logged and kept with its error (non-convergence is
// also reported through errors.Warn); any other error (including a recovered
// panic) aborts the search, the lowest failing index winning.
func GridSearch[P fmt.Stringer](X mat.Matrix, y []float64, grid []P, build func(P) model.Estimator, cfg SearchConfig) ([]GridResult[P], error) {
	if len(grid) == 0 {
		return nil, errors.NewValueError("GridSearch", "empty grid")
	}
	if cfg.Scheme == nil || cfg.Scorer == nil {
		return nil, errors.NewValueError("GridSearch", "scheme and scorer are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("model_selection")
	}
	n, d := X.Dims()
	logger.Info("grid search started",
		log.OperationKey, log.OperationFit,
		log.SchemeKey, cfg.Scheme.String(),
		log.SamplesKey, n,
		log.FeaturesKey, d,
		"grid_size", len(grid),
	)

	results := make([]GridResult[P], len(grid))
	parallel.ForEach(len(grid), cfg.workers(), func(i int) {
		results[i] = GridResult[P]{Index: i, Params: grid[i]}
		start := time.Now()
		err := errors.SafeExecute("GridSearch", func() error {
			rng := StreamSource(cfg.Seed, uint64(i+1))
			factory := func() model.Estimator { return build(grid[i]) }
			cv, err := CrossValidate(X, y, factory, cfg.Scheme, cfg.Scorer, rng)
			results[i].CV = cv
			return err
		})
		if err != nil {
			results[i].CV = nil
			results[i].Err = errors.Wrapf(err, "grid point %s", grid[i])
			return
		}
		logger.Debug("grid point scored",
			log.GridIndexKey, i,
			log.GridPointKey, grid[i].String(),
			log.OperationKey, log.OperationScore,
			"metric", results[i].CV.Mean,
			log.MetricStdKey, results[i].CV.Std,
			log.FitsKey, results[i].CV.NFits,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	})

	for i := range results {
		err := results[i].Err
		if err == nil {
			continue
		}
		if !errors.IsExcludable(err) {
			logger.Error("grid point failed, search aborted", "error", err, log.GridPointKey, grid[i].String())
			return nil, err
		}
		logger.Warn("grid point excluded",
			log.GridIndexKey, i,
			log.GridPointKey, grid[i].String(),
			"error", err,
		)
		var nc *errors.NonConvergenceError
		if errors.As(err, &nc) {
			errors.Warn(errors.NewConvergenceWarning(nc.Algorithm, nc.Iterations, grid[i].String()))
		}
	}
	return results, nil
}

// Selection is the chosen grid point of one model family.
type Selection[P any] struct {
	Index  int
	Params P
	Score  float64
	Std    float64
	CV     *CVResult
	// Ties counts other converged points within TieTolerance of Score.
	Ties int
	// Excluded counts grid points dropped for non-convergence.
	Excluded int
}

// Select returns the converged grid point with the largest metric. Points
// within TieTolerance of each other are resolved by simpler: the point p for
// which simpler(p, other) holds is preferred. Remaining ties keep the earlier
// grid point.
func Select[P any](results []GridResult[P], simpler func(a, b P) bool) (Selection[P], error) {
	var sel Selection[P]
	found := false
	for _, r := range results {
		if !r.Converged() {
			sel.Excluded++
			continue
		}
		score := r.CV.Mean
		if math.IsNaN(score) {
			sel.Excluded++
			continue
		}
		switch {
		case !found, score > sel.Score+TieTolerance:
			sel.Index, sel.Params, sel.Score, sel.Std, sel.CV = r.Index, r.Params, score, r.CV.Std, r.CV
			found = true
		case math.Abs(score-sel.Score) <= TieTolerance && simpler != nil && simpler(r.Params, sel.Params):
			sel.Index, sel.Params, sel.Score, sel.Std, sel.CV = r.Index, r.Params, score, r.CV.Std, r.CV
		}
	}
	if !found {
		return sel, errors.Wrapf(errors.ErrNoCandidates, "%d grid points, none converged", len(results))
	}
	for _, r := range results {
		if r.Converged() && r.Index != sel.Index && math.Abs(r.CV.Mean-sel.Score) <= TieTolerance {
			sel.Ties++
		}
	}
	return sel, nil
}
