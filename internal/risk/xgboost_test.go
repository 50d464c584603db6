package risk

import (
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestBooster(t *testing.T) *Booster {
	t.Helper()
	payload, err := os.ReadFile("testdata/booster.json")
	require.NoError(t, err)
	b, err := DecodeBooster(payload)
	require.NoError(t, err)
	return b
}

func TestBoosterPredictProba(t *testing.T) {
	b := loadTestBooster(t)
	assert.Equal(t, 2, b.NumFeatures())
	assert.Equal(t, []string{"age", "gender_Male"}, b.FeatureNames())

	out, err := b.PredictProba([][]float64{
		{40, 1},
		{60, 0},
		{math.NaN(), 0},
		{50, 0.5},
	})
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.InDelta(t, 0.3775406687981454, out[0][1], 1e-12)
	assert.InDelta(t, 0.7310585786300049, out[1][1], 1e-12)
	// missing age follows default_left
	assert.InDelta(t, 0.2689414213699951, out[2][1], 1e-12)
	// a value equal to the split condition goes right
	assert.InDelta(t, 0.8175744761936437, out[3][1], 1e-12)

	for _, row := range out {
		assert.InDelta(t, 1.0, row[0]+row[1], 1e-12)
	}
}

func TestBoosterFeatureIndexOutOfRange(t *testing.T) {
	b := loadTestBooster(t)
	_, err := b.PredictProba([][]float64{{40}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestBoosterVersionVariants(t *testing.T) {
	payload, err := os.ReadFile("testdata/booster.json")
	require.NoError(t, err)

	doc := strings.Replace(string(payload), `"base_score": "5E-1"`, `"base_score": "[5E-1]"`, 1)
	doc = strings.Replace(doc, `"default_left": [1, 0, 0]`, `"default_left": [true, false, false]`, 1)

	b, err := DecodeBooster([]byte(doc))
	require.NoError(t, err)
	out, err := b.PredictProba([][]float64{{math.NaN(), 0}})
	require.NoError(t, err)
	assert.InDelta(t, 0.2689414213699951, out[0][1], 1e-12)
}

func TestBoosterBaseScoreShiftsMargin(t *testing.T) {
	payload, err := os.ReadFile("testdata/booster.json")
	require.NoError(t, err)
	doc := strings.Replace(string(payload), `"base_score": "5E-1"`, `"base_score": "2E-1"`, 1)

	b, err := DecodeBooster([]byte(doc))
	require.NoError(t, err)
	out, err := b.PredictProba([][]float64{{40, 1}})
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(math.Log(0.2/0.8)-0.5), out[0][1], 1e-12)
}

func TestDecodeBoosterRejects(t *testing.T) {
	payload, err := os.ReadFile("testdata/booster.json")
	require.NoError(t, err)
	base := string(payload)

	tests := map[string]string{
		"objective":     strings.Replace(base, `"binary:logistic"`, `"multi:softprob"`, 1),
		"booster":       strings.Replace(base, `"name": "gbtree"`, `"name": "gblinear"`, 1),
		"categorical":   strings.Replace(base, `"split_type": [0, 0, 0]`, `"split_type": [1, 0, 0]`, 1),
		"child range":   strings.Replace(base, `"right_children": [2, -1, -1]`, `"right_children": [7, -1, -1]`, 1),
		"self loop":     strings.Replace(base, `"left_children": [1, -1, -1]`, `"left_children": [0, -1, -1]`, 1),
		"array lengths": strings.Replace(base, `"split_indices": [0, 0, 0]`, `"split_indices": [0, 0]`, 1),
		"base score":    strings.Replace(base, `"base_score": "5E-1"`, `"base_score": "1.5"`, 1),
		"num class":     strings.Replace(base, `"num_class": "0"`, `"num_class": "3"`, 1),
		"not json":      "{",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBooster([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLogistic(t *testing.T) {
	m, err := DecodeLogistic([]byte(`{"weights":[0.5,-1],"bias":0.25}`))
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumFeatures())

	out, err := m.PredictProba([][]float64{{1, 1}})
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(-0.25), out[0][1], 1e-12)

	_, err = m.PredictProba([][]float64{{1}})
	assert.Error(t, err)

	_, err = DecodeLogistic([]byte(`{"weights":[]}`))
	assert.Error(t, err)
}

func TestDecodeModel(t *testing.T) {
	m, err := DecodeModel(FormatLogistic, []byte(`{"weights":[1],"bias":0}`))
	require.NoError(t, err)
	assert.Equal(t, 1, m.NumFeatures())

	_, err = DecodeModel("pickle", []byte(`{}`))
	assert.Error(t, err)
}
