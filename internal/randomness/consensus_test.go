package randomness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ok(v float64) Sample {
	return Sample{OK: true, Value: &v}
}

func failed() Sample {
	return Sample{Error: "all attempts failed (1): x"}
}

func TestFormatFixed(t *testing.T) {
	assert.Equal(t, "97010.00", FormatFixed(97010, 2))
	assert.Equal(t, "100.13", FormatFixed(100.125, 2), "exact ties round away from zero")
	assert.Equal(t, "1.00", FormatFixed(1.005, 2), "1.005 is stored just below the tie")
	assert.Equal(t, "1.005", FormatFixed(1.0049999, 3))
	assert.Equal(t, "0.00", FormatFixed(0, 2))
	assert.Equal(t, "-2.50", FormatFixed(-2.5, 2))
	assert.Equal(t, "3", FormatFixed(2.5, 0))
	assert.Equal(t, "", FormatFixed(nan(), 2))
}

func TestSpreadPercent(t *testing.T) {
	assert.Equal(t, 0.0, SpreadPercent(nil))
	assert.Equal(t, 0.0, SpreadPercent([]float64{5}))
	assert.InDelta(t, 20.0, SpreadPercent([]float64{90, 110, 100}), 1e-9)
	assert.InDelta(t, 200.0, SpreadPercent([]float64{-1, 1}), 1e-9, "zero midpoint uses 1")
}

func TestMedianQuorum(t *testing.T) {
	p := MedianQuorum{Min: 2, TolerancePercent: 1}

	t.Run("odd count takes the middle value", func(t *testing.T) {
		c := p.Finalize(MetricBTC, []Sample{ok(97020), ok(97000), ok(97010)})
		assert.Equal(t, "97010.00", c.Value)
		assert.Empty(t, c.Warning)
	})

	t.Run("even count averages the middle pair", func(t *testing.T) {
		c := p.Finalize(MetricBTC, []Sample{ok(100.25), failed(), ok(100)})
		assert.Equal(t, "100.13", c.Value)
	})

	t.Run("below quorum yields no value", func(t *testing.T) {
		c := p.Finalize(MetricBTC, []Sample{ok(100), failed(), failed()})
		assert.Empty(t, c.Value)
	})

	t.Run("spread above tolerance warns", func(t *testing.T) {
		c := p.Finalize(MetricBTC, []Sample{ok(90), ok(110)})
		assert.Equal(t, "100.00", c.Value)
		assert.Equal(t, "BTC spread 20.000%", c.Warning)
	})
}

func TestFirstSuccess(t *testing.T) {
	c := FirstSuccess{}.Finalize(MetricNIST, []Sample{failed(), ok(4503599627370495), ok(7)})
	assert.Equal(t, "4503599627370495", c.Value)
	assert.Empty(t, c.Warning)

	assert.Empty(t, FirstSuccess{}.Finalize(MetricNIST, []Sample{failed()}).Value)
}

func TestResultHelpers(t *testing.T) {
	r := &Result{Metrics: []Metric{
		{Metric: MetricBTC, FinalValue: "97010.00"},
		{Metric: MetricNIST},
	}}
	assert.Equal(t, []MetricKind{MetricNIST}, r.Missing())
	assert.ErrorIs(t, r.Err(), ErrInsufficientRandomness)

	assert.Error(t, r.Override(MetricNIST, "not-a-number"))
	assert.NoError(t, r.Override(MetricNIST, " 12345 "))
	nist, found := r.Metric(MetricNIST)
	assert.True(t, found)
	assert.Equal(t, "12345", nist.FinalValue)
	assert.True(t, nist.ManualOverride)
	assert.NoError(t, r.Err())

	assert.Error(t, r.Override(MetricKind("ETH"), "1"))
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
