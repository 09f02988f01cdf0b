package report

import (
	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/metrics"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ClassifierEvaluation はテスト集合での分類結果
type ClassifierEvaluation struct {
	Predictions []float64
	Confusion   *metrics.ConfusionMatrix
	Accuracy    float64
}

// RegressorEvaluation はテスト集合での回帰結果
type RegressorEvaluation struct {
	Predictions []float64
	Residuals   []float64
	R2          float64
	RMSE        float64
	MAE         float64
	Summary     metrics.FiveNumber
}

func predict(m model.Predictor, op string, X mat.Matrix, y []float64) ([]float64, error) {
	r, _ := X.Dims()
	if r != len(y) {
		return nil, errors.NewDimensionMismatchError(op, r, len(y), 0)
	}
	if r == 0 {
		return nil, errors.NewModelError(op, "empty test set", errors.ErrEmptyData)
	}
	pred, err := m.Predict(X)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	return dataset.Values(pred), nil
}

// EvaluateClassifier は選択済みモデルでテスト行を予測し、混同行列を作る
func EvaluateClassifier(m model.Predictor, X mat.Matrix, y []float64) (*ClassifierEvaluation, error) {
	pred, err := predict(m, "EvaluateClassifier", X, y)
	if err != nil {
		return nil, err
	}
	cm, err := metrics.NewConfusionMatrix(y, pred)
	if err != nil {
		return nil, err
	}
	return &ClassifierEvaluation{Predictions: pred, Confusion: cm, Accuracy: cm.Accuracy()}, nil
}

// EvaluateRegressor は選択済みモデルでテスト行を予測し、R²・RMSE・MAE・残差の五数要約を返す。
// テスト応答が定数で R² が定義できない場合はエラーになる。
func EvaluateRegressor(m model.Predictor, X mat.Matrix, y []float64) (*RegressorEvaluation, error) {
	pred, err := predict(m, "EvaluateRegressor", X, y)
	if err != nil {
		return nil, err
	}
	r2, err := metrics.R2Score(y, pred)
	if err != nil {
		return nil, err
	}
	rmse, err := metrics.RMSE(y, pred)
	if err != nil {
		return nil, err
	}
	mae, err := metrics.MAE(y, pred)
	if err != nil {
		return nil, err
	}
	res, err := metrics.Residuals(y, pred)
	if err != nil {
		return nil, err
	}
	summary, err := metrics.Summarize(res)
	if err != nil {
		return nil, err
	}
	return &RegressorEvaluation{Predictions: pred, Residuals: res, R2: r2, RMSE: rmse, MAE: mae, Summary: summary}, nil
}
