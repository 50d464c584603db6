package risk

import (
	"errors"
	"fmt"

	"github.com/Skufu/GlucoRisk/internal/features"
)

var ErrShapeMismatch = errors.New("vector length does not match schema")

// InferenceError reports a failed Score call. It wraps ErrShapeMismatch when
// the vector does not have one value per schema column.
type InferenceError struct {
	Expected int
	Got      int
	Err      error
}

func (e *InferenceError) Error() string {
	if errors.Is(e.Err, ErrShapeMismatch) {
		return fmt.Sprintf("inference: %v: got %d values, schema has %d", e.Err, e.Got, e.Expected)
	}
	return fmt.Sprintf("inference: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Adapter pairs a trained classifier with the schema its input must follow.
type Adapter struct {
	model  Classifier
	schema features.Schema
}

// NewAdapter fails when the model declares an input width or feature names
// that disagree with schema.
func NewAdapter(model Classifier, schema features.Schema) (*Adapter, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if schema.Len() == 0 {
		return nil, errors.New("schema is required")
	}
	if n := model.NumFeatures(); n > 0 && n != schema.Len() {
		return nil, fmt.Errorf("model expects %d features, schema has %d columns", n, schema.Len())
	}
	if named, ok := model.(interface{ FeatureNames() []string }); ok {
		if names := named.FeatureNames(); len(names) > 0 && !schema.Equal(names) {
			return nil, errors.New("model feature names differ from schema columns")
		}
	}
	return &Adapter{model: model, schema: schema}, nil
}

func (a *Adapter) Schema() features.Schema {
	return a.schema
}

// Score returns the positive-class probability for one encoded vector.
func (a *Adapter) Score(vector features.Vector) (float64, error) {
	if len(vector) != a.schema.Len() {
		return 0, &InferenceError{Expected: a.schema.Len(), Got: len(vector), Err: ErrShapeMismatch}
	}

	proba, err := a.model.PredictProba([][]float64{vector})
	if err != nil {
		return 0, &InferenceError{Expected: a.schema.Len(), Got: len(vector), Err: err}
	}
	if len(proba) != 1 {
		return 0, &InferenceError{
			Expected: a.schema.Len(),
			Got:      len(vector),
			Err:      fmt.Errorf("classifier returned %d rows for 1", len(proba)),
		}
	}
	return proba[0][1], nil
}
