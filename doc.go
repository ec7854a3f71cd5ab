// Package modelselect picks, for a given dataset, the best of several
// competing model families for classification, regression or clustering.
//
// Each candidate is trained on a training split and evaluated on held-out
// data: accuracy for classification, RMSE for regression. For clustering
// every family is trained for k = k_min..k_max, the number of clusters is
// chosen with an elbow rule over the distortion curve, and the family with
// the lowest distortion at its own elbow wins.
//
// # Installation
//
//	go get github.com/YuminosukeSato/modelselect
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/modelselect/dataset"
//	    "github.com/YuminosukeSato/modelselect/selection"
//	    "github.com/YuminosukeSato/modelselect/trainers"
//	)
//
//	func main() {
//	    ds, _, err := dataset.Load("iris.csv", dataset.LoadOptions{Target: "species"})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    o := selection.NewOrchestrator(trainers.DefaultRegistry(42))
//	    out, err := o.SelectModel(ds, selection.Classification)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("winner:", out.Winner)
//	}
//
// # Packages
//
//   - selection: algorithm IDs, registry, comparator, elbow rule and orchestrator
//   - trainers: reference trainers for every family (DefaultRegistry)
//   - dataset: datasets, CSV / JSON lines loading, seeded split and sample
//   - metrics: accuracy, RMSE, distortion and other evaluation metrics
//   - config: TOML configuration with MODELSELECT_ environment overrides
//   - chart: elbow charts with gonum/plot
//   - preprocessing: StandardScaler
//   - linear, sklearn/...: estimators behind the reference trainers
//   - core/model, core/parallel: estimator interfaces and parallel helpers
//   - pkg/errors, pkg/log: error taxonomy and zerolog-backed logging
//
// The modelselect command (cmd/modelselect) runs a selection from the
// command line and prints the outcome as JSON.
//
// # License
//
// modelselect is released under the MIT License.
package modelselect
