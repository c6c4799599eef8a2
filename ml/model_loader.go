package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"firedetect/errs"
)

const (
	TypeDecisionTree = "decision_tree"
	TypeRandomForest = "random_forest"
)

// Artifact is the on-disk form of a trained model.
type Artifact struct {
	ModelType    string       `json:"model_type"`
	FeatureNames []string     `json:"feature_names"`
	Classes      []int        `json:"classes"`
	Trees        [][]TreeNode `json:"trees"`
}

// LoadModel reads the artifact at path. Every failure wraps
// errs.ErrModelUnavailable so callers can refuse to serve.
func LoadModel(path string) (*Model, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrModelUnavailable, err)
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", errs.ErrModelUnavailable, path, err)
	}
	if err := artifact.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrModelUnavailable, path, err)
	}

	model := &Model{Type: artifact.ModelType, FeatureNames: artifact.FeatureNames}
	switch artifact.ModelType {
	case TypeDecisionTree:
		if len(artifact.Trees) != 1 {
			return nil, fmt.Errorf("%w: decision tree artifact holds %d trees", errs.ErrModelUnavailable, len(artifact.Trees))
		}
		model.Classifier = NewDecisionTree(artifact.Trees[0])
	case TypeRandomForest:
		model.Classifier = NewRandomForest(artifact.Trees)
	default:
		return nil, fmt.Errorf("%w: unsupported model type %q", errs.ErrModelUnavailable, artifact.ModelType)
	}
	return model, nil
}

// CheckFeatureNames makes sure the model was trained on the configured
// predictors in the configured order.
func CheckFeatureNames(model *Model, predictors []string) error {
	if !slices.Equal(model.FeatureNames, predictors) {
		return fmt.Errorf("%w: model features %v do not match predictors %v", errs.ErrModelUnavailable, model.FeatureNames, predictors)
	}
	return nil
}

func writeArtifact(path string, artifact Artifact) error {
	if err := artifact.validate(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, payload, 0o644)
}

func (a Artifact) validate() error {
	if !slices.Equal(a.Classes, []int{ClassNoFire, ClassFire}) {
		return fmt.Errorf("classes must be [0 1], got %v", a.Classes)
	}
	if len(a.Trees) == 0 {
		return fmt.Errorf("no trees")
	}
	for t, nodes := range a.Trees {
		if err := validateNodes(nodes, len(a.FeatureNames)); err != nil {
			return fmt.Errorf("tree %d: %w", t, err)
		}
	}
	return nil
}

func validateNodes(nodes []TreeNode, featureCount int) error {
	if len(nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if node.Value[0] < 0 || node.Value[1] < 0 || node.Value[0]+node.Value[1] <= 0 {
				return fmt.Errorf("node %d: leaf needs positive class counts", i)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(nodes) {
				return fmt.Errorf("node %d: child %d out of order", i, child)
			}
		}
	}
	return nil
}
