package forest

import "fmt"

// DefaultMaxDepth bounds how deep a decoded tree may be.
const DefaultMaxDepth = 64

// Node is a decision tree node: either a Leaf or an Internal node.
type Node interface {
	isNode()
}

// Leaf is a terminal node carrying a predicted class (0 = legitimate, 1 = phishing).
type Leaf struct {
	Prediction int
}

// Internal is a branching node. Evaluation goes Left when
// vector[FeatureIndex] <= Threshold and Right otherwise.
type Internal struct {
	FeatureIndex int
	Threshold    float64
	Left         Node
	Right        Node
}

func (Leaf) isNode()     {}
func (Internal) isNode() {}

// Model is an immutable decision forest.
type Model struct {
	// Trees holds the root node of every estimator.
	Trees []Node

	// FeatureNames is the ordered list of features the trees index into.
	FeatureNames []string

	// Estimators is the number of trees declared by the artifact.
	Estimators int
}

// Validate checks the model invariants: the estimator count matches the
// number of trees, every feature index is in range, every leaf predicts
// 0 or 1 and no tree exceeds maxDepth.
func (m *Model) Validate(maxDepth int) error {
	if m.Estimators != len(m.Trees) {
		return fmt.Errorf("%w: n_estimators is %d but %d trees are present",
			ErrInvalidModel, m.Estimators, len(m.Trees))
	}
	for i, tree := range m.Trees {
		if err := validateNode(tree, len(m.FeatureNames), 1, maxDepth); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func validateNode(n Node, numFeatures, depth, maxDepth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: tree deeper than %d levels", ErrInvalidModel, maxDepth)
	}
	switch node := n.(type) {
	case Leaf:
		if node.Prediction != 0 && node.Prediction != 1 {
			return fmt.Errorf("%w: leaf prediction %d is not 0 or 1", ErrInvalidModel, node.Prediction)
		}
		return nil
	case Internal:
		if node.FeatureIndex < 0 || node.FeatureIndex >= numFeatures {
			return fmt.Errorf("%w: feature index %d out of range [0, %d)",
				ErrInvalidModel, node.FeatureIndex, numFeatures)
		}
		if err := validateNode(node.Left, numFeatures, depth+1, maxDepth); err != nil {
			return err
		}
		return validateNode(node.Right, numFeatures, depth+1, maxDepth)
	default:
		return fmt.Errorf("%w: missing or unknown node", ErrInvalidModel)
	}
}
