package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// LoadCSV reads a labelled dataset whose header names the predictors and
// the label column. Columns are picked by name, so extra columns and any
// column order are accepted.
func LoadCSV(r io.Reader, predictors []string, labelColumn string) (features [][]float64, labels []int, err error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	columns := make([]int, len(predictors))
	for i, name := range predictors {
		col, ok := index[name]
		if !ok {
			return nil, nil, fmt.Errorf("column %q not found", name)
		}
		columns[i] = col
	}
	labelCol, ok := index[labelColumn]
	if !ok {
		return nil, nil, fmt.Errorf("label column %q not found", labelColumn)
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make([]float64, len(columns))
		for i, col := range columns {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d column %q: %w", line, predictors[i], err)
			}
			row[i] = value
		}
		label, err := strconv.Atoi(strings.TrimSpace(record[labelCol]))
		if err != nil || (label != ClassNoFire && label != ClassFire) {
			return nil, nil, fmt.Errorf("line %d: label must be 0 or 1, got %q", line, record[labelCol])
		}
		features = append(features, row)
		labels = append(labels, label)
	}
	if len(features) == 0 {
		return nil, nil, errors.New("dataset is empty")
	}
	return features, labels, nil
}

func SplitDataset(features [][]float64, labels []int, testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	split := int(math.Round(float64(len(features)) * (1 - testRatio)))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}
