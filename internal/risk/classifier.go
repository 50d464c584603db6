package risk

import (
	"fmt"
	"math"
)

// Classifier is a trained binary model. PredictProba returns [P(class0),
// P(class1)] for every row of the batch.
type Classifier interface {
	PredictProba(batch [][]float64) ([][2]float64, error)
	// NumFeatures is the input width the model declares, or 0 if unknown.
	NumFeatures() int
}

const (
	FormatXGBoost  = "xgboost"
	FormatLogistic = "logistic"
)

// DecodeModel builds a Classifier from a serialized model artifact.
func DecodeModel(format string, payload []byte) (Classifier, error) {
	switch format {
	case FormatXGBoost:
		return DecodeBooster(payload)
	case FormatLogistic:
		return DecodeLogistic(payload)
	default:
		return nil, fmt.Errorf("unsupported model format %q", format)
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
