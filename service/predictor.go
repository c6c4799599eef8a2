// Package service turns validated sensor readings into fire predictions.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"firedetect/db"
	"firedetect/errs"
	"firedetect/logging"
	"firedetect/ml"
	"firedetect/sensor"

	"go.uber.org/zap"
)

const (
	LabelFire   = "Ada api."
	LabelNoFire = "Tidak ada api."
)

// LabelFor maps a model class index to its human-readable label.
func LabelFor(class int) (string, error) {
	switch class {
	case ml.ClassNoFire:
		return LabelNoFire, nil
	case ml.ClassFire:
		return LabelFire, nil
	default:
		return "", fmt.Errorf("%w: %d", errs.ErrUnknownClass, class)
	}
}

// Result carries either a label with probabilities or an error message.
type Result struct {
	Label         string
	Class         int
	Probabilities [2]float64
	ErrorMessage  string
}

func (r Result) Rejected() bool {
	return r.ErrorMessage != ""
}

//go:generate mockgen -source=predictor.go -destination=../mocks/mock_journal.go -package=mocks

// Journal persists prediction outcomes.
type Journal interface {
	SavePrediction(ctx context.Context, p db.Prediction) error
}

type Option func(*Predictor)

func WithJournal(j Journal) Option {
	return func(p *Predictor) { p.journal = j }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Predictor) { p.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Predictor) { p.logger = l }
}

// Predictor holds the state loaded at startup. It is never mutated after
// NewPredictor returns and is safe for concurrent use.
type Predictor struct {
	schema  sensor.Schema
	model   *ml.Model
	journal Journal
	metrics *Metrics
	logger  *zap.Logger
}

func NewPredictor(schema sensor.Schema, model *ml.Model, opts ...Option) (*Predictor, error) {
	if model == nil || model.Classifier == nil {
		return nil, fmt.Errorf("%w: no classifier", errs.ErrModelUnavailable)
	}
	if schema.Len() != sensor.Width {
		return nil, fmt.Errorf("%w: schema has %d predictors", errs.ErrInvalidConfig, schema.Len())
	}
	p := &Predictor{schema: schema, model: model, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Predictor) ModelType() string {
	return p.model.Type
}

// Predict shapes, validates and classifies one reading. A reading outside
// the configured ranges is a normal outcome reported through
// Result.ErrorMessage; the returned error is reserved for malformed
// readings (errs.ErrSchemaMismatch) and classifier faults.
func (p *Predictor) Predict(ctx context.Context, reading sensor.Reading) (Result, error) {
	start := time.Now()
	defer func() { p.metrics.observe(time.Since(start)) }()

	vector, err := sensor.Shape(reading, p.schema)
	if err != nil {
		p.metrics.count(outcomeInvalid)
		return Result{}, err
	}

	if violations := sensor.Check(vector, p.schema); !violations.Valid() {
		result := Result{ErrorMessage: violations.Message()}
		p.logger.Info("reading rejected",
			zap.String("request_id", logging.RequestID(ctx)),
			zap.Int("violations", len(violations)),
			zap.String("error_msg", result.ErrorMessage))
		p.metrics.count(outcomeRejected)
		p.record(ctx, vector, result)
		return result, nil
	}

	class, err := p.model.Predict(vector)
	if err != nil {
		p.metrics.count(outcomeError)
		return Result{}, fmt.Errorf("predict: %w", err)
	}
	proba, err := p.model.PredictProba(vector)
	if err != nil {
		p.metrics.count(outcomeError)
		return Result{}, fmt.Errorf("predict proba: %w", err)
	}
	label, err := LabelFor(class)
	if err != nil {
		p.metrics.count(outcomeError)
		return Result{}, err
	}

	result := Result{Label: label, Class: class, Probabilities: proba}
	p.logger.Debug("reading classified",
		zap.String("request_id", logging.RequestID(ctx)),
		zap.String("label", label),
		zap.Float64("proba_fire", proba[ml.ClassFire]))
	if class == ml.ClassFire {
		p.metrics.count(outcomeFire)
	} else {
		p.metrics.count(outcomeNoFire)
	}
	p.record(ctx, vector, result)
	return result, nil
}

// record journals the outcome. Failures are logged and never reach the caller.
func (p *Predictor) record(ctx context.Context, vector sensor.FeatureVector, result Result) {
	if p.journal == nil {
		return
	}
	inputs, err := json.Marshal(vector.Map())
	if err != nil {
		p.logger.Warn("encode journal inputs", zap.Error(err))
		return
	}
	entry := db.Prediction{
		RequestID:    logging.RequestID(ctx),
		Inputs:       inputs,
		ErrorMessage: result.ErrorMessage,
		ModelType:    p.model.Type,
	}
	if !result.Rejected() {
		class := result.Class
		entry.Label = result.Label
		entry.Class = &class
		entry.Probabilities = []float64{result.Probabilities[0], result.Probabilities[1]}
	}
	if err := p.journal.SavePrediction(ctx, entry); err != nil {
		p.logger.Warn("journal prediction", zap.String("request_id", entry.RequestID), zap.Error(err))
	}
}
