package risk

import "fmt"

const (
	MediumThreshold = 0.33
	HighThreshold   = 0.66
)

// Tier is an immutable risk bucket derived from a probability.
type Tier struct {
	value string
}

var (
	TierLow    = Tier{value: "Low"}
	TierMedium = Tier{value: "Medium"}
	TierHigh   = Tier{value: "High"}
)

// Classify buckets a probability: below 0.33 is Low, below 0.66 Medium,
// everything else High.
func Classify(probability float64) Tier {
	if probability < MediumThreshold {
		return TierLow
	} else if probability < HighThreshold {
		return TierMedium
	}
	return TierHigh
}

func TierFromString(s string) (Tier, error) {
	switch s {
	case "Low":
		return TierLow, nil
	case "Medium":
		return TierMedium, nil
	case "High":
		return TierHigh, nil
	default:
		return Tier{}, fmt.Errorf("invalid risk tier: %s", s)
	}
}

func (t Tier) String() string {
	return t.value
}

// Severity maps the tier to the alert style the form renders it with.
func (t Tier) Severity() string {
	switch t.value {
	case "Low":
		return "success"
	case "Medium":
		return "warning"
	case "High":
		return "error"
	default:
		return ""
	}
}

func (t Tier) IsZero() bool {
	return t.value == ""
}

func (t Tier) Equal(other Tier) bool {
	return t.value == other.value
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.value), nil
}
