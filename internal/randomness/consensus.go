package randomness

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

// Consensus is the finalized outcome of a Policy.
type Consensus struct {
	Value   string
	Warning string
}

// Policy reduces provider samples to a single committed value.
type Policy interface {
	Finalize(kind MetricKind, samples []Sample) Consensus
}

// MedianQuorum is used for price-like metrics: at least Min successes, median
// of the successful values (mean of the middle two for even counts), two
// decimals, and a warning when the spread exceeds TolerancePercent.
type MedianQuorum struct {
	Min              int
	TolerancePercent float64
}

func (p MedianQuorum) Finalize(kind MetricKind, samples []Sample) Consensus {
	values := successfulValues(samples)
	min := p.Min
	if min <= 0 {
		min = 2
	}

	var out Consensus
	if len(values) >= min {
		if median, err := stats.Median(stats.Float64Data(values)); err == nil {
			out.Value = FormatFixed(median, 2)
		}
	}
	if spread := SpreadPercent(values); spread > p.TolerancePercent {
		out.Warning = string(kind) + " spread " + FormatFixed(spread, 3) + "%"
	}
	return out
}

// FirstSuccess is used for beacon-like metrics. Beacons are independent and
// cannot be averaged, so the first ok sample in provider order wins and no
// deviation check is made.
type FirstSuccess struct{}

func (FirstSuccess) Finalize(_ MetricKind, samples []Sample) Consensus {
	values := successfulValues(samples)
	if len(values) == 0 {
		return Consensus{}
	}
	return Consensus{Value: strconv.FormatFloat(values[0], 'f', -1, 64)}
}

// SpreadPercent is (max-min)/midpoint*100, with a midpoint of zero treated as 1.
// Fewer than two values have no spread.
func SpreadPercent(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	data := stats.Float64Data(values)
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)
	baseline := (lo + hi) / 2
	if baseline == 0 {
		baseline = 1
	}
	return (hi - lo) / baseline * 100
}

// FormatFixed renders v with exactly digits decimals, rounding ties away from
// zero on the exact binary value. This matches the fixed-point rendering used
// by browser verifiers, which differs from strconv on exact ties.
func FormatFixed(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	neg := v < 0
	if neg {
		v = -v
	}

	scale := new(big.Float).SetPrec(256).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil))
	x := new(big.Float).SetPrec(256).SetFloat64(v)
	x.Mul(x, scale)
	x.Add(x, big.NewFloat(0.5))
	n, _ := x.Int(nil)

	s := n.String()
	if digits > 0 {
		if len(s) <= digits {
			s = strings.Repeat("0", digits-len(s)+1) + s
		}
		s = s[:len(s)-digits] + "." + s[len(s)-digits:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
