package ml

import (
	"testing"

	"firedetect/sensor"

	"github.com/stretchr/testify/require"
)

var testPredictors = []string{
	"Temperature[C]", "Humidity[%]", "Pressure[hPa]", "PM1.0",
	"TVOC[ppb]", "eCO2[ppm]", "Raw H2", "Raw Ethanol",
}

func testSchema(t *testing.T) sensor.Schema {
	t.Helper()
	ranges := make(map[string]sensor.RangeRule, len(testPredictors))
	for _, name := range testPredictors {
		ranges[name] = sensor.RangeRule{Min: -100000, Max: 100000}
	}
	s, err := sensor.NewSchema(testPredictors, ranges)
	require.NoError(t, err)
	return s
}

func testVector(t *testing.T, values ...float64) sensor.FeatureVector {
	t.Helper()
	v, err := sensor.NewFeatureVector(testSchema(t), values)
	require.NoError(t, err)
	return v
}

// fireTree splits on TVOC (column 4) and then Humidity (column 1).
func fireTree() []TreeNode {
	return []TreeNode{
		{FeatureIdx: 4, Threshold: 1000, LeftChild: 1, RightChild: 4},
		{FeatureIdx: 1, Threshold: 45, LeftChild: 2, RightChild: 3},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, IsLeaf: true, ClassLabel: 0, Value: [2]float64{90, 10}},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, IsLeaf: true, ClassLabel: 1, Value: [2]float64{30, 70}},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, IsLeaf: true, ClassLabel: 1, Value: [2]float64{5, 95}},
	}
}
