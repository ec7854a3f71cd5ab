package selection

import (
	"sync"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/dataset"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// Trainer fits one supervised algorithm family on a labeled dataset.
type Trainer interface {
	Train(ds *dataset.Dataset, params model.Params) (model.Predictor, error)
}

// ClusterTrainer fits one clustering family with k clusters.
type ClusterTrainer interface {
	TrainClusters(ds *dataset.Dataset, k int, params model.Params) (model.Clusterer, error)
}

// TrainerFunc adapts a function to Trainer.
type TrainerFunc func(ds *dataset.Dataset, params model.Params) (model.Predictor, error)

// Train calls f.
func (f TrainerFunc) Train(ds *dataset.Dataset, params model.Params) (model.Predictor, error) {
	return f(ds, params)
}

// ClusterTrainerFunc adapts a function to ClusterTrainer.
type ClusterTrainerFunc func(ds *dataset.Dataset, k int, params model.Params) (model.Clusterer, error)

// TrainClusters calls f.
func (f ClusterTrainerFunc) TrainClusters(ds *dataset.Dataset, k int, params model.Params) (model.Clusterer, error) {
	return f(ds, k, params)
}

// Registry maps algorithm families to their trainers and hyperparameters.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	trainers   map[AlgorithmID]Trainer
	clusterers map[AlgorithmID]ClusterTrainer
	params     map[AlgorithmID]model.Params
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		trainers:   make(map[AlgorithmID]Trainer),
		clusterers: make(map[AlgorithmID]ClusterTrainer),
		params:     make(map[AlgorithmID]model.Params),
	}
}

// Register は教師ありファミリーのトレーナーを登録する。既存の登録は置き換える
func (r *Registry) Register(id AlgorithmID, t Trainer) error {
	if !id.Kind().Supervised() {
		return errors.NewValidationError("algorithm", "not a supervised family", id.String())
	}
	if t == nil {
		return errors.NewValidationError("trainer", "must not be nil", id.String())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trainers[id] = t
	return nil
}

// RegisterClusterer はクラスタリングファミリーのトレーナーを登録する
func (r *Registry) RegisterClusterer(id AlgorithmID, t ClusterTrainer) error {
	if id.Kind() != Clustering {
		return errors.NewValidationError("algorithm", "not a clustering family", id.String())
	}
	if t == nil {
		return errors.NewValidationError("trainer", "must not be nil", id.String())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clusterers[id] = t
	return nil
}

// SetParams sets the hyperparameters passed to the family's trainer.
func (r *Registry) SetParams(id AlgorithmID, params model.Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params[id] = params.Merge(nil)
}

// Params returns a copy of the family's hyperparameters.
func (r *Registry) Params(id AlgorithmID) model.Params {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params[id].Merge(nil)
}

// Trainer returns the supervised trainer registered for id.
func (r *Registry) Trainer(id AlgorithmID) (Trainer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trainers[id]
	return t, ok
}

// ClusterTrainer returns the clustering trainer registered for id.
func (r *Registry) ClusterTrainer(id AlgorithmID) (ClusterTrainer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.clusterers[id]
	return t, ok
}

// Registered returns the registered families in declaration order.
func (r *Registry) Registered() []AlgorithmID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []AlgorithmID
	for _, id := range AllAlgorithms() {
		_, sup := r.trainers[id]
		_, clu := r.clusterers[id]
		if sup || clu {
			out = append(out, id)
		}
	}
	return out
}
