package ml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `UTC,Temperature[C],Humidity[%],TVOC[ppb],eCO2[ppm],Raw H2,Raw Ethanol,Pressure[hPa],PM1.0,Fire Alarm
1654733331,20.0,57.36,0,400,12306,18520,939.735,0.00,0
1654733332,20.015,56.67,0,400,12345,18651,939.744,0.00,0
1654733333,20.029,55.96,1200,400,12374,18764,939.738,0.00,1
`

func TestLoadCSVPicksColumnsByName(t *testing.T) {
	features, labels, err := LoadCSV(strings.NewReader(sampleCSV), testPredictors, "Fire Alarm")
	require.NoError(t, err)
	require.Len(t, features, 3)
	assert.Equal(t, []int{0, 0, 1}, labels)
	assert.Equal(t, []float64{20.029, 55.96, 939.738, 0, 1200, 400, 12374, 18764}, features[2])
}

func TestLoadCSVErrors(t *testing.T) {
	_, _, err := LoadCSV(strings.NewReader(sampleCSV), testPredictors, "Alarm")
	require.ErrorContains(t, err, "label column")

	_, _, err = LoadCSV(strings.NewReader(sampleCSV), append(testPredictors[:7:7], "CNT"), "Fire Alarm")
	require.ErrorContains(t, err, "CNT")

	bad := strings.Replace(sampleCSV, "12306", "n/a", 1)
	_, _, err = LoadCSV(strings.NewReader(bad), testPredictors, "Fire Alarm")
	require.ErrorContains(t, err, "line 2")

	badLabel := strings.Replace(sampleCSV, "0.00,1\n", "0.00,3\n", 1)
	_, _, err = LoadCSV(strings.NewReader(badLabel), testPredictors, "Fire Alarm")
	require.ErrorContains(t, err, "label must be 0 or 1")

	header := strings.SplitN(sampleCSV, "\n", 2)[0] + "\n"
	_, _, err = LoadCSV(strings.NewReader(header), testPredictors, "Fire Alarm")
	require.ErrorContains(t, err, "empty")
}

func TestSplitDataset(t *testing.T) {
	features := make([][]float64, 10)
	labels := make([]int, 10)
	for i := range features {
		features[i] = []float64{float64(i)}
		labels[i] = i % 2
	}
	trainX, trainY, testX, testY := SplitDataset(features, labels, 0.3, 1)
	assert.Len(t, trainX, 7)
	assert.Len(t, trainY, 7)
	assert.Len(t, testX, 3)
	assert.Len(t, testY, 3)
	for i, row := range testX {
		assert.Equal(t, int(row[0])%2, testY[i])
	}
}

func TestEvaluate(t *testing.T) {
	m := Evaluate([]int{1, 1, 0, 0}, []int{1, 0, 1, 0})
	assert.Equal(t, 0.5, m.Accuracy)
	assert.Equal(t, 0.5, m.Precision)
	assert.Equal(t, 0.5, m.Recall)
	assert.Equal(t, 0.5, m.F1)
	assert.Equal(t, 4, m.Support)

	assert.Zero(t, Evaluate(nil, nil).Accuracy)
}
