package ml

// Metrics summarizes binary classification quality with fire as the positive class.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

func Evaluate(yTrue, yPred []int) Metrics {
	m := Metrics{Support: len(yTrue)}
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return m
	}
	correct, tp, fp, fn := 0, 0, 0, 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
		switch {
		case yPred[i] == ClassFire && yTrue[i] == ClassFire:
			tp++
		case yPred[i] == ClassFire && yTrue[i] == ClassNoFire:
			fp++
		case yPred[i] == ClassNoFire && yTrue[i] == ClassFire:
			fn++
		}
	}
	m.Accuracy = float64(correct) / float64(len(yTrue))
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// RowPredictor is satisfied by the tree models.
type RowPredictor interface {
	PredictRow(row []float64) ([2]float64, error)
}

func PredictRows(model RowPredictor, rows [][]float64) ([]int, error) {
	out := make([]int, len(rows))
	for i, row := range rows {
		proba, err := model.PredictRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = argmax(proba)
	}
	return out, nil
}
