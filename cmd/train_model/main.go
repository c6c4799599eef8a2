package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"firedetect/config"
	"firedetect/ml"
)

type trainer interface {
	ml.RowPredictor
	Save(path string, featureNames []string) error
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service configuration")
	dataPath := flag.String("data", "", "training CSV with one column per predictor and a label column")
	labelColumn := flag.String("label", "Fire Alarm", "label column name")
	modelType := flag.String("model_type", ml.TypeRandomForest, "decision_tree or random_forest")
	maxDepth := flag.Int("max_depth", 10, "max tree depth")
	nTrees := flag.Int("trees", 100, "number of trees for random_forest")
	testRatio := flag.Float64("test_ratio", 0.2, "held-out fraction used for evaluation")
	seed := flag.Int64("seed", 42, "random seed for the split and the forest")
	modelPath := flag.String("model_path", "", "model output path, defaults to production_model_path from config")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("data is required")
	}

	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *modelPath == "" {
		*modelPath = cfg.ProductionModelPath
	}

	file, err := os.Open(*dataPath)
	if err != nil {
		log.Fatalf("failed to open training data: %v", err)
	}
	features, labels, err := ml.LoadCSV(file, cfg.Predictors, *labelColumn)
	file.Close()
	if err != nil {
		log.Fatalf("failed to load training data: %v", err)
	}

	trainX, trainY, testX, testY := ml.SplitDataset(features, labels, *testRatio, *seed)
	log.Printf("training %s on %d rows, evaluating on %d", *modelType, len(trainX), len(testX))

	var model trainer
	switch *modelType {
	case ml.TypeDecisionTree:
		tree := &ml.DecisionTree{}
		if err := tree.Train(trainX, trainY, *maxDepth); err != nil {
			log.Fatalf("failed to train model: %v", err)
		}
		model = tree
	case ml.TypeRandomForest:
		forest := &ml.RandomForest{}
		if err := forest.Train(trainX, trainY, ml.ForestOptions{
			NEstimators: *nTrees,
			MaxDepth:    *maxDepth,
			Seed:        *seed,
		}); err != nil {
			log.Fatalf("failed to train model: %v", err)
		}
		model = forest
	default:
		log.Fatalf("unknown model type %q", *modelType)
	}

	if len(testX) > 0 {
		predicted, err := ml.PredictRows(model, testX)
		if err != nil {
			log.Fatalf("failed to evaluate model: %v", err)
		}
		m := ml.Evaluate(testY, predicted)
		log.Printf("accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f support=%d",
			m.Accuracy, m.Precision, m.Recall, m.F1, m.Support)
	}

	if err := model.Save(*modelPath, cfg.Predictors); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	fmt.Printf("model saved to %s\n", *modelPath)
}
