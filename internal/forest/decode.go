package forest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// rawModel mirrors the exported JSON artifact.
type rawModel struct {
	FeatureNames []string   `json:"feature_names"`
	Estimators   *int       `json:"n_estimators"`
	Trees        []*rawNode `json:"trees"`
}

// rawNode mirrors one exported node. Leaves may also carry a "value" array
// of per-class sample counts, which inference does not need.
type rawNode struct {
	Leaf         *bool    `json:"leaf"`
	Prediction   *int     `json:"prediction"`
	FeatureIndex *int     `json:"feature_index"`
	Threshold    *float64 `json:"threshold"`
	Left         *rawNode `json:"left"`
	Right        *rawNode `json:"right"`
}

// Decode reads a model artifact from r and validates it.
// When n_estimators is absent it defaults to the number of trees.
func Decode(r io.Reader) (*Model, error) {
	return DecodeWithDepth(r, DefaultMaxDepth)
}

// DecodeWithDepth is Decode with an explicit tree depth bound.
func DecodeWithDepth(r io.Reader, maxDepth int) (*Model, error) {
	var raw rawModel
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}

	m := &Model{
		FeatureNames: raw.FeatureNames,
		Trees:        make([]Node, 0, len(raw.Trees)),
	}
	if raw.Estimators != nil {
		m.Estimators = *raw.Estimators
	} else {
		m.Estimators = len(raw.Trees)
	}

	for i, rt := range raw.Trees {
		node, err := convertNode(rt, 1, maxDepth)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.Trees = append(m.Trees, node)
	}

	if err := m.Validate(maxDepth); err != nil {
		return nil, err
	}
	return m, nil
}

func convertNode(rn *rawNode, depth, maxDepth int) (Node, error) {
	if rn == nil {
		return nil, fmt.Errorf("%w: null node", ErrInvalidModel)
	}
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: tree deeper than %d levels", ErrInvalidModel, maxDepth)
	}
	if rn.Leaf == nil {
		return nil, fmt.Errorf("%w: node without \"leaf\" flag", ErrInvalidModel)
	}

	if *rn.Leaf {
		if rn.Prediction == nil {
			return nil, fmt.Errorf("%w: leaf without prediction", ErrInvalidModel)
		}
		return Leaf{Prediction: *rn.Prediction}, nil
	}

	if rn.FeatureIndex == nil || rn.Threshold == nil {
		return nil, fmt.Errorf("%w: internal node without feature_index or threshold", ErrInvalidModel)
	}
	left, err := convertNode(rn.Left, depth+1, maxDepth)
	if err != nil {
		return nil, err
	}
	right, err := convertNode(rn.Right, depth+1, maxDepth)
	if err != nil {
		return nil, err
	}
	return Internal{
		FeatureIndex: *rn.FeatureIndex,
		Threshold:    *rn.Threshold,
		Left:         left,
		Right:        right,
	}, nil
}

// errEmptyArtifact is returned by sources that produce no bytes.
var errEmptyArtifact = errors.New("empty model artifact")
