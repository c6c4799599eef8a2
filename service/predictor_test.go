package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"firedetect/db"
	"firedetect/errs"
	"firedetect/logging"
	"firedetect/ml"
	"firedetect/mocks"
	"firedetect/sensor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testPredictors = []string{
	"Temperature[C]", "Humidity[%]", "Pressure[hPa]", "PM1.0",
	"TVOC[ppb]", "eCO2[ppm]", "Raw H2", "Raw Ethanol",
}

var testRanges = map[string]sensor.RangeRule{
	"Temperature[C]": {Min: -22.01, Max: 59.93},
	"Humidity[%]":    {Min: 10.74, Max: 75.2},
	"Pressure[hPa]":  {Min: 900, Max: 1100},
	"PM1.0":          {Min: 0, Max: 14333.69},
	"TVOC[ppb]":      {Min: 0, Max: 60000},
	"eCO2[ppm]":      {Min: 400, Max: 60000},
	"Raw H2":         {Min: 0, Max: 15000},
	"Raw Ethanol":    {Min: 0, Max: 25000},
}

func testSchema(t *testing.T) sensor.Schema {
	t.Helper()
	s, err := sensor.NewSchema(testPredictors, testRanges)
	require.NoError(t, err)
	return s
}

func safeReading() sensor.Reading {
	return sensor.NewReading([sensor.Width]float64{25.0, 40.0, 1012.0, 5.0, 100, 400, 50, 30})
}

// fireTree predicts fire when TVOC is above 1000 ppb.
func fireTree() *ml.Model {
	return &ml.Model{
		Type:         ml.TypeDecisionTree,
		FeatureNames: testPredictors,
		Classifier: ml.NewDecisionTree([]ml.TreeNode{
			{FeatureIdx: 4, Threshold: 1000, LeftChild: 1, RightChild: 2},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, IsLeaf: true, Value: [2]float64{88, 12}},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, IsLeaf: true, ClassLabel: 1, Value: [2]float64{7, 93}},
		}),
	}
}

func TestLabelFor(t *testing.T) {
	label, err := LabelFor(0)
	require.NoError(t, err)
	assert.Equal(t, "Tidak ada api.", label)

	label, err = LabelFor(1)
	require.NoError(t, err)
	assert.Equal(t, "Ada api.", label)

	_, err = LabelFor(2)
	require.ErrorIs(t, err, errs.ErrUnknownClass)
}

func TestNewPredictorRequiresModel(t *testing.T) {
	_, err := NewPredictor(testSchema(t), nil)
	require.ErrorIs(t, err, errs.ErrModelUnavailable)

	_, err = NewPredictor(testSchema(t), &ml.Model{Type: "empty"})
	require.ErrorIs(t, err, errs.ErrModelUnavailable)

	_, err = NewPredictor(sensor.Schema{}, fireTree())
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestPredictSafeReading(t *testing.T) {
	p, err := NewPredictor(testSchema(t), fireTree())
	require.NoError(t, err)

	result, err := p.Predict(context.Background(), safeReading())
	require.NoError(t, err)
	assert.Equal(t, LabelNoFire, result.Label)
	assert.Empty(t, result.ErrorMessage)
	assert.False(t, result.Rejected())
	assert.Greater(t, result.Probabilities[0], result.Probabilities[1])
	assert.InDelta(t, 1.0, result.Probabilities[0]+result.Probabilities[1], 1e-9)
}

func TestPredictOutOfRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockClassifier(ctrl)
	classifier.EXPECT().Predict(gomock.Any()).Times(0)
	classifier.EXPECT().PredictProba(gomock.Any()).Times(0)

	p, err := NewPredictor(testSchema(t), &ml.Model{Type: "mock", Classifier: classifier})
	require.NoError(t, err)

	reading := safeReading()
	hot := 500.0
	reading.Temperature = &hot

	result, err := p.Predict(context.Background(), reading)
	require.NoError(t, err)
	assert.True(t, result.Rejected())
	assert.Contains(t, result.ErrorMessage, "Temperature[C] out of range")
	assert.Empty(t, result.Label)
	assert.Equal(t, [2]float64{}, result.Probabilities)
}

func TestPredictSchemaMismatch(t *testing.T) {
	p, err := NewPredictor(testSchema(t), fireTree())
	require.NoError(t, err)

	reading := safeReading()
	reading.H2 = nil
	_, err = p.Predict(context.Background(), reading)
	require.ErrorIs(t, err, errs.ErrSchemaMismatch)

	reading = safeReading()
	fractional := 400.5
	reading.ECO2 = &fractional
	_, err = p.Predict(context.Background(), reading)
	require.ErrorIs(t, err, errs.ErrSchemaMismatch)
}

func TestPredictPassesCoercedVector(t *testing.T) {
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockClassifier(ctrl)

	checkVector := func(v sensor.FeatureVector) {
		assert.Equal(t, sensor.Width, v.Len())
		assert.Equal(t, 1012.0, v.Float(2))
		assert.Equal(t, int64(400), v.Int(5))
		assert.Equal(t, sensor.Integral, v.Kind(5))
	}
	classifier.EXPECT().Predict(gomock.Any()).DoAndReturn(func(v sensor.FeatureVector) (int, error) {
		checkVector(v)
		return ml.ClassFire, nil
	})
	classifier.EXPECT().PredictProba(gomock.Any()).DoAndReturn(func(v sensor.FeatureVector) ([2]float64, error) {
		checkVector(v)
		return [2]float64{0.2, 0.8}, nil
	})

	p, err := NewPredictor(testSchema(t), &ml.Model{Type: "mock", Classifier: classifier})
	require.NoError(t, err)

	result, err := p.Predict(context.Background(), safeReading())
	require.NoError(t, err)
	assert.Equal(t, LabelFire, result.Label)
	assert.Equal(t, ml.ClassFire, result.Class)
	assert.Equal(t, [2]float64{0.2, 0.8}, result.Probabilities)
}

func TestPredictClassifierFaults(t *testing.T) {
	boom := errors.New("boom")

	t.Run("predict fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		classifier := mocks.NewMockClassifier(ctrl)
		classifier.EXPECT().Predict(gomock.Any()).Return(0, boom)

		p, err := NewPredictor(testSchema(t), &ml.Model{Type: "mock", Classifier: classifier})
		require.NoError(t, err)
		_, err = p.Predict(context.Background(), safeReading())
		require.ErrorIs(t, err, boom)
	})

	t.Run("unknown class", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		classifier := mocks.NewMockClassifier(ctrl)
		classifier.EXPECT().Predict(gomock.Any()).Return(3, nil)
		classifier.EXPECT().PredictProba(gomock.Any()).Return([2]float64{0.5, 0.5}, nil)

		p, err := NewPredictor(testSchema(t), &ml.Model{Type: "mock", Classifier: classifier})
		require.NoError(t, err)
		_, err = p.Predict(context.Background(), safeReading())
		require.ErrorIs(t, err, errs.ErrUnknownClass)
	})
}

func TestPredictIsIdempotent(t *testing.T) {
	p, err := NewPredictor(testSchema(t), fireTree())
	require.NoError(t, err)

	first, err := p.Predict(context.Background(), safeReading())
	require.NoError(t, err)
	second, err := p.Predict(context.Background(), safeReading())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPredictRandomReadings(t *testing.T) {
	p, err := NewPredictor(testSchema(t), fireTree())
	require.NoError(t, err)
	schema := testSchema(t)
	rnd := rand.New(rand.NewSource(3))

	for i := 0; i < 200; i++ {
		var values [sensor.Width]float64
		outside := false
		for c, col := range schema.Columns() {
			span := col.Range.Max - col.Range.Min
			v := col.Range.Min - span*0.1 + rnd.Float64()*span*1.2
			if col.Kind == sensor.Integral {
				v = float64(int64(v))
			}
			values[c] = v
			if !col.Range.Contains(v) {
				outside = true
			}
		}

		result, err := p.Predict(context.Background(), sensor.NewReading(values))
		require.NoError(t, err)
		if outside {
			assert.NotEmpty(t, result.ErrorMessage, "values %v", values)
			assert.Empty(t, result.Label)
			continue
		}
		assert.Empty(t, result.ErrorMessage, "values %v", values)
		assert.Contains(t, []string{LabelFire, LabelNoFire}, result.Label)
		assert.InDelta(t, 1.0, result.Probabilities[0]+result.Probabilities[1], 1e-9)
		expected := LabelNoFire
		if result.Class == ml.ClassFire {
			expected = LabelFire
		}
		assert.Equal(t, expected, result.Label)
	}
}

func TestPredictJournalsOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	journal := mocks.NewMockJournal(ctrl)

	var saved []db.Prediction
	journal.EXPECT().SavePrediction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p db.Prediction) error {
			saved = append(saved, p)
			return nil
		}).Times(2)

	p, err := NewPredictor(testSchema(t), fireTree(), WithJournal(journal))
	require.NoError(t, err)

	ctx := logging.WithRequestID(context.Background(), "req-42")
	_, err = p.Predict(ctx, safeReading())
	require.NoError(t, err)

	reading := safeReading()
	wet := 99.0
	reading.Humidity = &wet
	_, err = p.Predict(ctx, reading)
	require.NoError(t, err)

	require.Len(t, saved, 2)
	assert.Equal(t, "req-42", saved[0].RequestID)
	assert.Equal(t, LabelNoFire, saved[0].Label)
	require.NotNil(t, saved[0].Class)
	assert.Len(t, saved[0].Probabilities, 2)
	assert.JSONEq(t, `{"Temperature[C]":25,"Humidity[%]":40,"Pressure[hPa]":1012,"PM1.0":5,"TVOC[ppb]":100,"eCO2[ppm]":400,"Raw H2":50,"Raw Ethanol":30}`, string(saved[0].Inputs))

	assert.Empty(t, saved[1].Label)
	assert.Nil(t, saved[1].Class)
	assert.Contains(t, saved[1].ErrorMessage, "Humidity[%]")
}

func TestPredictIgnoresJournalFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	journal := mocks.NewMockJournal(ctrl)
	journal.EXPECT().SavePrediction(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	p, err := NewPredictor(testSchema(t), fireTree(), WithJournal(journal))
	require.NoError(t, err)

	result, err := p.Predict(context.Background(), safeReading())
	require.NoError(t, err)
	assert.Equal(t, LabelNoFire, result.Label)
}

func TestPredictMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	p, err := NewPredictor(testSchema(t), fireTree(), WithMetrics(metrics))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = p.Predict(ctx, safeReading())
	require.NoError(t, err)

	smoky := safeReading()
	tvoc := 5000.0
	smoky.TVOC = &tvoc
	result, err := p.Predict(ctx, smoky)
	require.NoError(t, err)
	assert.Equal(t, LabelFire, result.Label)

	cold := safeReading()
	temp := -40.0
	cold.Temperature = &temp
	_, err = p.Predict(ctx, cold)
	require.NoError(t, err)

	missing := safeReading()
	missing.PM1 = nil
	_, err = p.Predict(ctx, missing)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Predictions(outcomeNoFire)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Predictions(outcomeFire)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Predictions(outcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Predictions(outcomeInvalid)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.duration))
}
