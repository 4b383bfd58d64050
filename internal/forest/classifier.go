package forest

import (
	"context"
	"encoding/json"
	"strconv"
)

// Result is the outcome of evaluating the forest on one vector.
type Result struct {
	// Votes maps each class label to the number of trees that predicted it.
	Votes map[int]int `json:"votes"`

	// Score is votes[1] over the trees voting 0 or 1.
	Score float64 `json:"score"`

	// Label is 1 when Score >= 0.5, otherwise 0.
	Label int `json:"label"`
}

// ToVector projects a feature mapping onto an ordered vector.
// Missing names read as 0. Non-numeric values read as 1 when truthy.
func ToVector[V any](features map[string]V, names []string) []float64 {
	vec := make([]float64, len(names))
	for i, name := range names {
		v, ok := features[name]
		if !ok {
			continue
		}
		vec[i] = coerce(any(v))
	}
	return vec
}

func coerce(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		if f, err := strconv.ParseFloat(string(n), 64); err == nil {
			return f
		}
		return truthy(n != "")
	case bool:
		return truthy(n)
	case string:
		return truthy(n != "")
	default:
		return 1
	}
}

func truthy(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Predict runs every tree over vector and aggregates the votes.
// An index past the end of vector reads as 0.
func Predict(model *Model, vector []float64) (Result, error) {
	if model == nil {
		return Result{}, ErrModelNotLoaded
	}

	votes := map[int]int{0: 0, 1: 0}
	for _, tree := range model.Trees {
		votes[evaluate(tree, vector)]++
	}

	// Leaves predicting a label other than 0 or 1 are counted but do not
	// dilute the score.
	total := votes[0] + votes[1]
	if total == 0 {
		total = 1
	}
	score := float64(votes[1]) / float64(total)

	label := 0
	if score >= 0.5 {
		label = 1
	}
	return Result{Votes: votes, Score: score, Label: label}, nil
}

func evaluate(n Node, vector []float64) int {
	for {
		switch node := n.(type) {
		case Leaf:
			return node.Prediction
		case Internal:
			var v float64
			if node.FeatureIndex < len(vector) {
				v = vector[node.FeatureIndex]
			}
			if v <= node.Threshold {
				n = node.Left
			} else {
				n = node.Right
			}
		default:
			// Unreachable for validated models; count as legitimate.
			return 0
		}
	}
}

// Classifier evaluates feature maps against the model held by a Loader.
type Classifier struct {
	loader *Loader
}

// NewClassifier creates a Classifier backed by loader.
func NewClassifier(loader *Loader) *Classifier {
	return &Classifier{loader: loader}
}

// Classify projects features onto the model's feature order and predicts.
// The model is loaded on first use; a failed load is a *LoadError.
func (c *Classifier) Classify(ctx context.Context, features map[string]float64) (Result, error) {
	m, err := c.loader.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	return Predict(m, ToVector(features, m.FeatureNames))
}
