package risk_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/risk"
)

type fakeModel struct {
	p1       float64
	features int
	names    []string
	err      error
	rows     int
}

func (f *fakeModel) PredictProba(batch [][]float64) ([][2]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := len(batch)
	if f.rows > 0 {
		n = f.rows
	}
	out := make([][2]float64, n)
	for i := range out {
		out[i] = [2]float64{1 - f.p1, f.p1}
	}
	return out, nil
}

func (f *fakeModel) NumFeatures() int { return f.features }

type namedModel struct {
	fakeModel
}

func (n *namedModel) FeatureNames() []string { return n.names }

func schemaOf(t *testing.T, cols ...string) features.Schema {
	t.Helper()
	s, err := features.NewSchema(cols)
	require.NoError(t, err)
	return s
}

func TestAdapterScore(t *testing.T) {
	a, err := risk.NewAdapter(&fakeModel{p1: 0.42}, schemaOf(t, "age", "bmi", "gender_Male"))
	require.NoError(t, err)

	p, err := a.Score(features.Vector{40, 25, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.42, p)
	assert.Equal(t, 3, a.Schema().Len())
}

func TestAdapterShapeMismatch(t *testing.T) {
	a, err := risk.NewAdapter(&fakeModel{p1: 0.9}, schemaOf(t, "age", "bmi", "gender_Male"))
	require.NoError(t, err)

	for _, v := range []features.Vector{{40, 25}, {40, 25, 1, 0}, nil} {
		p, err := a.Score(v)
		require.Error(t, err)
		assert.Zero(t, p)
		assert.True(t, errors.Is(err, risk.ErrShapeMismatch))

		var ie *risk.InferenceError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, 3, ie.Expected)
		assert.Equal(t, len(v), ie.Got)
	}
}

func TestAdapterWrapsClassifierFailure(t *testing.T) {
	cause := errors.New("boom")
	a, err := risk.NewAdapter(&fakeModel{err: cause}, schemaOf(t, "age"))
	require.NoError(t, err)

	_, err = a.Score(features.Vector{1})
	var ie *risk.InferenceError
	require.True(t, errors.As(err, &ie))
	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, risk.ErrShapeMismatch))
}

func TestAdapterRejectsWrongRowCount(t *testing.T) {
	a, err := risk.NewAdapter(&fakeModel{p1: 0.1, rows: 2}, schemaOf(t, "age"))
	require.NoError(t, err)

	_, err = a.Score(features.Vector{1})
	var ie *risk.InferenceError
	assert.True(t, errors.As(err, &ie))
}

func TestNewAdapterConsistency(t *testing.T) {
	schema := schemaOf(t, "age", "gender_Male")

	_, err := risk.NewAdapter(&fakeModel{features: 3}, schema)
	assert.Error(t, err)

	_, err = risk.NewAdapter(&fakeModel{features: 2}, schema)
	assert.NoError(t, err)

	_, err = risk.NewAdapter(&namedModel{fakeModel{names: []string{"gender_Male", "age"}}}, schema)
	assert.Error(t, err)

	_, err = risk.NewAdapter(&namedModel{fakeModel{names: []string{"age", "gender_Male"}}}, schema)
	assert.NoError(t, err)

	_, err = risk.NewAdapter(nil, schema)
	assert.Error(t, err)

	_, err = risk.NewAdapter(&fakeModel{}, features.Schema{})
	assert.Error(t, err)
}
