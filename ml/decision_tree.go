package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"firedetect/sensor"
)

type DecisionTree struct {
	nodes []TreeNode
}

// TreeNode is one node of a tree stored in pre-order: children always come
// after their parent. Value holds the per-class training sample counts.
type TreeNode struct {
	FeatureIdx int        `json:"feature_idx"`
	Threshold  float64    `json:"threshold"`
	LeftChild  int        `json:"left_child"`
	RightChild int        `json:"right_child"`
	ClassLabel int        `json:"class_label"`
	IsLeaf     bool       `json:"is_leaf"`
	Value      [2]float64 `json:"value"`
}

func NewDecisionTree(nodes []TreeNode) *DecisionTree {
	return &DecisionTree{nodes: nodes}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int, maxDepth int) error {
	nodes, err := growTree(features, labels, maxDepth, 0, nil)
	if err != nil {
		return err
	}
	dt.nodes = nodes
	return nil
}

func (dt *DecisionTree) Predict(features sensor.FeatureVector) (int, error) {
	proba, err := dt.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (dt *DecisionTree) PredictProba(features sensor.FeatureVector) ([2]float64, error) {
	return dt.PredictRow(features.Row())
}

func (dt *DecisionTree) PredictRow(row []float64) ([2]float64, error) {
	return walkTree(dt.nodes, row)
}

func (dt *DecisionTree) Nodes() []TreeNode {
	return dt.nodes
}

func (dt *DecisionTree) Save(path string, featureNames []string) error {
	if len(dt.nodes) == 0 {
		return errors.New("model not trained")
	}
	return writeArtifact(path, Artifact{
		ModelType:    TypeDecisionTree,
		FeatureNames: featureNames,
		Classes:      []int{ClassNoFire, ClassFire},
		Trees:        [][]TreeNode{dt.nodes},
	})
}

func walkTree(nodes []TreeNode, row []float64) ([2]float64, error) {
	if len(nodes) == 0 {
		return [2]float64{}, errors.New("model not trained")
	}
	idx := 0
	for {
		node := nodes[idx]
		if node.IsLeaf {
			return leafProba(node)
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(row) {
			return [2]float64{}, errors.New("feature index out of range")
		}
		next := node.RightChild
		if row[node.FeatureIdx] <= node.Threshold {
			next = node.LeftChild
		}
		if next <= idx || next >= len(nodes) {
			return [2]float64{}, errors.New("invalid tree state")
		}
		idx = next
	}
}

func leafProba(node TreeNode) ([2]float64, error) {
	total := node.Value[0] + node.Value[1]
	if total <= 0 {
		return [2]float64{}, errors.New("leaf without samples")
	}
	return [2]float64{node.Value[0] / total, node.Value[1] / total}, nil
}

// argmax breaks ties toward no-fire.
func argmax(proba [2]float64) int {
	if proba[ClassFire] > proba[ClassNoFire] {
		return ClassFire
	}
	return ClassNoFire
}

// growTree builds a tree with median splits and gini impurity. When
// maxFeatures is positive each split only looks at that many randomly
// chosen features.
func growTree(features [][]float64, labels []int, maxDepth, maxFeatures int, rng *rand.Rand) ([]TreeNode, error) {
	if len(features) == 0 || len(labels) == 0 {
		return nil, errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return nil, errors.New("features and labels size mismatch")
	}
	for _, label := range labels {
		if label != ClassNoFire && label != ClassFire {
			return nil, errors.New("labels must be 0 or 1")
		}
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}
	g := grower{maxDepth: maxDepth, maxFeatures: maxFeatures, rng: rng}
	return g.buildNode(features, labels, 0), nil
}

type grower struct {
	maxDepth    int
	maxFeatures int
	rng         *rand.Rand
}

func (g grower) buildNode(features [][]float64, labels []int, depth int) []TreeNode {
	leaf := []TreeNode{newLeaf(labels)}
	if depth >= g.maxDepth || isPure(labels) {
		return leaf
	}

	bestFeature, threshold, ok := g.findBestSplit(features, labels)
	if !ok {
		return leaf
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return leaf
	}

	leftNodes := g.buildNode(leftFeatures, leftLabels, depth+1)
	rightNodes := g.buildNode(rightFeatures, rightLabels, depth+1)

	root := leaf[0]
	root.IsLeaf = false
	root.FeatureIdx = bestFeature
	root.Threshold = threshold
	root.LeftChild = 1
	root.RightChild = 1 + len(leftNodes)

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, offsetChildren(leftNodes, 1)...)
	nodes = append(nodes, offsetChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// offsetChildren rebases child indices of a subtree placed at offset.
func offsetChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

func newLeaf(labels []int) TreeNode {
	var counts [2]float64
	for _, label := range labels {
		counts[label]++
	}
	return TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: argmax(counts),
		IsLeaf:     true,
		Value:      counts,
	}
}

func (g grower) candidateFeatures(featureCount int) []int {
	if g.maxFeatures <= 0 || g.maxFeatures >= featureCount || g.rng == nil {
		all := make([]int, featureCount)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return g.rng.Perm(featureCount)[:g.maxFeatures]
}

func (g grower) findBestSplit(features [][]float64, labels []int) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for _, featureIdx := range g.candidateFeatures(len(features[0])) {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		threshold := median(values)
		leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
		if len(leftLabels) == 0 || len(rightLabels) == 0 {
			continue
		}
		impurity := weightedGini(leftLabels, rightLabels)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	leftFeatures := make([][]float64, 0)
	leftLabels := make([]int, 0)
	rightFeatures := make([][]float64, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	leftLabels := make([]int, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftLabels, rightLabels
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	var counts [2]int
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
