package risk

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Logistic is a binary logistic regression model.
type Logistic struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func DecodeLogistic(payload []byte) (*Logistic, error) {
	var m Logistic
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("decode logistic model: %w", err)
	}
	if len(m.Weights) == 0 {
		return nil, errors.New("logistic model has no weights")
	}
	return &m, nil
}

func (m *Logistic) PredictProba(batch [][]float64) ([][2]float64, error) {
	out := make([][2]float64, len(batch))
	for i, row := range batch {
		if len(row) != len(m.Weights) {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), len(m.Weights))
		}
		sum := m.Bias
		for j, v := range row {
			sum += m.Weights[j] * v
		}
		p := sigmoid(sum)
		out[i] = [2]float64{1 - p, p}
	}
	return out, nil
}

func (m *Logistic) NumFeatures() int {
	return len(m.Weights)
}
