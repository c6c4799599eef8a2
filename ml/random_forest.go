package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"firedetect/sensor"

	"golang.org/x/sync/errgroup"
)

// RandomForest averages the class probabilities of its trees.
type RandomForest struct {
	trees [][]TreeNode
}

type ForestOptions struct {
	NEstimators int
	MaxDepth    int
	// MaxFeatures per split; zero means sqrt of the feature count.
	MaxFeatures int
	Seed        int64
}

func NewRandomForest(trees [][]TreeNode) *RandomForest {
	return &RandomForest{trees: trees}
}

// Train grows every tree on its own bootstrap sample with a per-tree seed,
// so a given Seed always yields the same forest.
func (rf *RandomForest) Train(features [][]float64, labels []int, opts ForestOptions) error {
	if len(features) == 0 {
		return errors.New("randomforest: empty features")
	}
	if len(features) != len(labels) {
		return errors.New("randomforest: features and labels length mismatch")
	}
	if opts.NEstimators <= 0 {
		opts.NEstimators = 100
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = int(math.Max(1, math.Round(math.Sqrt(float64(len(features[0]))))))
	}

	n := len(features)
	trees := make([][]TreeNode, opts.NEstimators)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < opts.NEstimators; i++ {
		idx := i
		g.Go(func() error {
			treeRand := rand.New(rand.NewSource(opts.Seed + int64(idx)))

			sampleX := make([][]float64, n)
			sampleY := make([]int, n)
			for j := 0; j < n; j++ {
				pick := treeRand.Intn(n)
				sampleX[j] = features[pick]
				sampleY[j] = labels[pick]
			}

			nodes, err := growTree(sampleX, sampleY, opts.MaxDepth, opts.MaxFeatures, treeRand)
			if err != nil {
				return fmt.Errorf("tree %d: %w", idx, err)
			}
			trees[idx] = nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rf.trees = trees
	return nil
}

func (rf *RandomForest) Predict(features sensor.FeatureVector) (int, error) {
	proba, err := rf.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (rf *RandomForest) PredictProba(features sensor.FeatureVector) ([2]float64, error) {
	return rf.PredictRow(features.Row())
}

func (rf *RandomForest) PredictRow(row []float64) ([2]float64, error) {
	if len(rf.trees) == 0 {
		return [2]float64{}, errors.New("model not trained")
	}
	var sum [2]float64
	for _, nodes := range rf.trees {
		proba, err := walkTree(nodes, row)
		if err != nil {
			return [2]float64{}, err
		}
		sum[0] += proba[0]
		sum[1] += proba[1]
	}
	count := float64(len(rf.trees))
	return [2]float64{sum[0] / count, sum[1] / count}, nil
}

func (rf *RandomForest) Trees() [][]TreeNode {
	return rf.trees
}

func (rf *RandomForest) Save(path string, featureNames []string) error {
	if len(rf.trees) == 0 {
		return errors.New("model not trained")
	}
	return writeArtifact(path, Artifact{
		ModelType:    TypeRandomForest,
		FeatureNames: featureNames,
		Classes:      []int{ClassNoFire, ClassFire},
		Trees:        rf.trees,
	})
}
