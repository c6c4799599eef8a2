package ml

import "firedetect/sensor"

//go:generate mockgen -source=model.go -destination=../mocks/mock_classifier.go -package=mocks

// Class indices the fire model is trained on.
const (
	ClassNoFire = 0
	ClassFire   = 1
)

// Classifier is a pre-trained binary model over one feature row.
type Classifier interface {
	Predict(features sensor.FeatureVector) (int, error)
	PredictProba(features sensor.FeatureVector) ([2]float64, error)
}

// Model is a loaded artifact together with what it was trained on.
type Model struct {
	Classifier
	Type         string
	FeatureNames []string
}
