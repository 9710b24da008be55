package randomness_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"fairdraw/internal/randomness"
	"fairdraw/internal/randomness/mocks"
	"fairdraw/internal/randomness/providers"
	dErrors "fairdraw/pkg/domain-errors"
)

type AggregatorSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	fetcher *mocks.MockFetcher
	now     time.Time
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.fetcher = mocks.NewMockFetcher(s.ctrl)
	s.now = time.Date(2026, 3, 1, 9, 30, 0, 123_000_000, time.UTC)
}

func (s *AggregatorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AggregatorSuite) plans(tolerance float64) []randomness.Plan {
	return []randomness.Plan{
		{Metric: randomness.MetricBTC, Sources: providers.DefaultBTC(), Policy: randomness.MedianQuorum{Min: 2, TolerancePercent: tolerance}},
		{Metric: randomness.MetricNIST, Sources: providers.DefaultNIST(), Policy: randomness.FirstSuccess{}},
	}
}

func (s *AggregatorSuite) newAggregator(tolerance float64) *randomness.Aggregator {
	agg, err := randomness.New(s.fetcher, s.plans(tolerance),
		randomness.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		randomness.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	return agg
}

// respond makes the mock answer per provider name; missing names fail.
func (s *AggregatorSuite) respond(values map[string]float64) {
	s.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), "2026-03-01T09:30:00.123Z").
		DoAndReturn(func(_ context.Context, src randomness.Source, at string) randomness.Sample {
			sample := randomness.Sample{Provider: src.Name(), URL: src.URL(), RetrievedAt: at}
			if v, ok := values[src.Name()]; ok {
				sample.OK = true
				sample.Value = &v
				sample.RawSHA256 = "hash-" + src.Name()
				return sample
			}
			sample.Error = "all attempts failed (1): " + src.URL()
			return sample
		}).Times(5)
}

func (s *AggregatorSuite) TestNew() {
	s.Run("nil fetcher", func() {
		_, err := randomness.New(nil, s.plans(1))
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
	s.Run("no plans", func() {
		_, err := randomness.New(s.fetcher, nil)
		s.Error(err)
	})
	s.Run("duplicate metric", func() {
		plans := append(s.plans(1), s.plans(1)[0])
		_, err := randomness.New(s.fetcher, plans)
		s.Error(err)
	})
	s.Run("plan without policy", func() {
		_, err := randomness.New(s.fetcher, []randomness.Plan{{Metric: randomness.MetricBTC, Sources: providers.DefaultBTC()}})
		s.Error(err)
	})
}

func (s *AggregatorSuite) TestAllProvidersHealthy() {
	s.respond(map[string]float64{
		"coingecko": 97020, "coinbase": 97000, "binance": 97010,
		"nist_beacon": 111, "drand_cloudflare": 222,
	})

	res, err := s.newAggregator(1).Fetch(context.Background())
	s.Require().NoError(err)
	s.NoError(res.Err())
	s.Equal("2026-03-01T09:30:00.123Z", res.RetrievedAt)

	btc, _ := res.Metric(randomness.MetricBTC)
	s.Equal("97010.00", btc.FinalValue)
	s.Empty(btc.Warning)
	s.Len(btc.Samples, 3)
	s.Equal("coingecko", btc.Samples[0].Provider, "samples keep provider order")

	nist, _ := res.Metric(randomness.MetricNIST)
	s.Equal("111", nist.FinalValue)
}

func (s *AggregatorSuite) TestBeaconTakesFirstSuccessInPriorityOrder() {
	s.respond(map[string]float64{
		"coingecko": 100, "coinbase": 100,
		"drand_cloudflare": 222,
	})

	res, err := s.newAggregator(1).Fetch(context.Background())
	s.Require().NoError(err)

	nist, _ := res.Metric(randomness.MetricNIST)
	s.Equal("222", nist.FinalValue)
	s.False(nist.Samples[0].OK)
	s.Contains(nist.Samples[0].Error, "all attempts failed")
}

func (s *AggregatorSuite) TestPriceQuorumFailureIsRecoverable() {
	s.respond(map[string]float64{"binance": 97000, "nist_beacon": 5})

	res, err := s.newAggregator(1).Fetch(context.Background())
	s.Require().NoError(err)

	btc, _ := res.Metric(randomness.MetricBTC)
	s.Empty(btc.FinalValue)
	s.Equal([]randomness.MetricKind{randomness.MetricBTC}, res.Missing())
	s.ErrorIs(res.Err(), randomness.ErrInsufficientRandomness)
	s.True(dErrors.HasCode(res.Err(), dErrors.CodeInsufficientRandomness))

	s.Require().NoError(res.Override(randomness.MetricBTC, "97000.00"))
	s.NoError(res.Err())
}

func (s *AggregatorSuite) TestSpreadWarning() {
	s.respond(map[string]float64{
		"coingecko": 90, "coinbase": 110,
		"nist_beacon": 1,
	})

	res, err := s.newAggregator(5).Fetch(context.Background())
	s.Require().NoError(err)

	btc, _ := res.Metric(randomness.MetricBTC)
	s.Equal("100.00", btc.FinalValue)
	s.Equal("BTC spread 20.000%", btc.Warning)
}
