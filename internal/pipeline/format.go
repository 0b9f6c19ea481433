package pipeline

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	stringpool "github.com/ajitpratap0/nebula-ml/pkg/strings"
)

// ProbabilityPlaces is the number of decimals in formatted probabilities
const ProbabilityPlaces = 3

// FormatProbabilities renders one row of class probabilities as
// "class: 0.123, class: 0.877". Infinite log probabilities render as
// -inf.
func FormatProbabilities(classes []string, values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		label := ""
		if i < len(classes) {
			label = classes[i]
		}
		parts[i] = label + ": " + formatProbability(v)
	}
	return stringpool.JoinPooled(parts, ", ")
}

func formatProbability(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsNaN(v):
		return "nan"
	}
	d := exactDecimal(v).RoundBank(ProbabilityPlaces)
	if d.IsZero() && math.Signbit(v) {
		return "-" + d.StringFixed(ProbabilityPlaces)
	}
	return d.StringFixed(ProbabilityPlaces)
}

// exactDecimal returns the exact binary value of v. Rounding its shortest
// decimal form instead would misplace values that only print as ties.
func exactDecimal(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(frac * (1 << 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	pow := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, pow), int32(exp))
}

// FormatScore renders a test score with three decimals
func FormatScore(score float64) string {
	return formatProbability(score)
}
