package risk_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/GlucoRisk/internal/risk"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		expected    risk.Tier
	}{
		{name: "zero is Low", probability: 0, expected: risk.TierLow},
		{name: "0.329999 is Low", probability: 0.329999, expected: risk.TierLow},
		{name: "0.33 is Medium", probability: 0.33, expected: risk.TierMedium},
		{name: "0.5 is Medium", probability: 0.5, expected: risk.TierMedium},
		{name: "0.659999 is Medium", probability: 0.659999, expected: risk.TierMedium},
		{name: "0.66 is High", probability: 0.66, expected: risk.TierHigh},
		{name: "one is High", probability: 1, expected: risk.TierHigh},
		{name: "NaN falls through to High", probability: math.NaN(), expected: risk.TierHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := risk.Classify(tt.probability)
			assert.True(t, tt.expected.Equal(result),
				"expected %s for %v, got %s", tt.expected, tt.probability, result)
		})
	}
}

func TestTierSeverity(t *testing.T) {
	assert.Equal(t, "success", risk.TierLow.Severity())
	assert.Equal(t, "warning", risk.TierMedium.Severity())
	assert.Equal(t, "error", risk.TierHigh.Severity())
	assert.Equal(t, "", risk.Tier{}.Severity())
}

func TestTierFromString(t *testing.T) {
	for _, want := range []risk.Tier{risk.TierLow, risk.TierMedium, risk.TierHigh} {
		got, err := risk.TierFromString(want.String())
		require.NoError(t, err)
		assert.True(t, want.Equal(got))
	}

	_, err := risk.TierFromString("LOW")
	assert.Error(t, err)
}

func TestTierIsZero(t *testing.T) {
	var zero risk.Tier
	assert.True(t, zero.IsZero())
	assert.False(t, risk.TierLow.IsZero())
}

func TestTierMarshalText(t *testing.T) {
	b, err := risk.TierMedium.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Medium", string(b))
}
