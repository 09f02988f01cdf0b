// Package statlab reproduces two exploratory data-analysis reports in Go:
// a regression report on the US crime dataset and a classification report on
// a credit-approval dataset.
//
// Each report runs once as a linear pipeline: load a whitespace-delimited
// table, summarise it, take a stratified train/test split, cross-validate a
// hyperparameter grid per model family, select the best point (ties go to the
// simpler setting), and evaluate the selected model on the held-out rows.
//
// # Quick Start
//
// Principal component regression with a leave-one-out component sweep:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/statlab/core/model"
//	    "github.com/YuminosukeSato/statlab/dataset"
//	    "github.com/YuminosukeSato/statlab/linear"
//	    "github.com/YuminosukeSato/statlab/metrics"
//	    "github.com/YuminosukeSato/statlab/sklearn/model_selection"
//	)
//
//	func main() {
//	    table, err := dataset.Load("uscrime.txt")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    X, y, _, err := table.XY("Crime")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    results, err := model_selection.GridSearch(X, y, linear.ComponentGrid(15),
//	        func(p linear.PCRParams) model.Estimator { return linear.NewPCRegression(p) },
//	        model_selection.SearchConfig{Scheme: model_selection.LeaveOneOut{}, Scorer: metrics.R2Score})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    best, err := model_selection.Select(results, linear.FewerComponents)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(best.Params, best.Score)
//	}
//
// # Packages
//
//   - dataset: table loading, summary statistics, correlation
//   - preprocessing: standardisation
//   - linear: OLS with inference table, principal component regression, coefficient back-transform
//   - sklearn/decomposition: PCA
//   - sklearn/svm: C-SVC with linear, polynomial and gaussian kernels
//   - sklearn/neighbors: k-nearest-neighbour classifier
//   - sklearn/linear_model: logistic regression with optional elastic-net penalty
//   - sklearn/model_selection: stratified split, cross-validation, grid search, selection
//   - metrics: regression and classification metrics, confusion matrix
//   - report: the crime and credit reports, printing and plots
//   - core/model, core/parallel: estimator interfaces, fitted state, worker pool
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// The report command lives in cmd/report.
package statlab
