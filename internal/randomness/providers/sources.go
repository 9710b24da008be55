package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"fairdraw/internal/randomness"
)

// beaconHexDigits is how many trailing hex digits of a beacon output are read.
// Thirteen hex digits (52 bits) stay exact in a float64.
const beaconHexDigits = 13

var errMissingField = errors.New("missing field")

// source is a static provider definition.
type source struct {
	name   string
	metric randomness.MetricKind
	url    string
	parse  func(body []byte) (float64, error)
}

func (s source) Name() string { return s.name }

func (s source) Metric() randomness.MetricKind { return s.metric }

func (s source) URL() string { return s.url }

func (s source) Parse(body []byte) (float64, error) { return s.parse(body) }

// NewSource builds a Source from parts, mainly for tests and custom endpoints.
func NewSource(name string, metric randomness.MetricKind, url string, parse func([]byte) (float64, error)) randomness.Source {
	return source{name: name, metric: metric, url: url, parse: parse}
}

// Coingecko reads .bitcoin.usd.
func Coingecko() randomness.Source {
	return source{
		name:   "coingecko",
		metric: randomness.MetricBTC,
		url:    "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd",
		parse:  ParseCoingecko,
	}
}

// Coinbase reads .data.amount, a decimal string.
func Coinbase() randomness.Source {
	return source{
		name:   "coinbase",
		metric: randomness.MetricBTC,
		url:    "https://api.coinbase.com/v2/prices/spot?currency=USD",
		parse:  ParseCoinbase,
	}
}

// Binance reads .price, a decimal string.
func Binance() randomness.Source {
	return source{
		name:   "binance",
		metric: randomness.MetricBTC,
		url:    "https://api.binance.com/api/v3/ticker/price?symbol=BTCUSDT",
		parse:  ParseBinance,
	}
}

// NISTBeacon reads the trailing hex of .pulse.outputValue.
func NISTBeacon() randomness.Source {
	return source{
		name:   "nist_beacon",
		metric: randomness.MetricNIST,
		url:    "https://beacon.nist.gov/beacon/2.0/pulse/last",
		parse:  ParseNISTBeacon,
	}
}

// DrandCloudflare reads the trailing hex of .randomness.
func DrandCloudflare() randomness.Source {
	return source{
		name:   "drand_cloudflare",
		metric: randomness.MetricNIST,
		url:    "https://drand.cloudflare.com/public/latest",
		parse:  ParseDrand,
	}
}

// DefaultBTC lists price providers in priority order.
func DefaultBTC() []randomness.Source {
	return []randomness.Source{Coingecko(), Coinbase(), Binance()}
}

// DefaultNIST lists beacon providers in priority order.
func DefaultNIST() []randomness.Source {
	return []randomness.Source{NISTBeacon(), DrandCloudflare()}
}

func ParseCoingecko(body []byte) (float64, error) {
	var resp struct {
		Bitcoin *struct {
			USD *json.Number `json:"usd"`
		} `json:"bitcoin"`
	}
	if err := decode(body, &resp); err != nil {
		return 0, err
	}
	if resp.Bitcoin == nil || resp.Bitcoin.USD == nil {
		return 0, fmt.Errorf("bitcoin.usd: %w", errMissingField)
	}
	return resp.Bitcoin.USD.Float64()
}

func ParseCoinbase(body []byte) (float64, error) {
	var resp struct {
		Data *struct {
			Amount json.Number `json:"amount"`
		} `json:"data"`
	}
	if err := decode(body, &resp); err != nil {
		return 0, err
	}
	if resp.Data == nil || resp.Data.Amount == "" {
		return 0, fmt.Errorf("data.amount: %w", errMissingField)
	}
	return strconv.ParseFloat(string(resp.Data.Amount), 64)
}

func ParseBinance(body []byte) (float64, error) {
	var resp struct {
		Price json.Number `json:"price"`
	}
	if err := decode(body, &resp); err != nil {
		return 0, err
	}
	if resp.Price == "" {
		return 0, fmt.Errorf("price: %w", errMissingField)
	}
	return strconv.ParseFloat(string(resp.Price), 64)
}

func ParseNISTBeacon(body []byte) (float64, error) {
	var resp struct {
		Pulse *struct {
			OutputValue string `json:"outputValue"`
		} `json:"pulse"`
	}
	if err := decode(body, &resp); err != nil {
		return 0, err
	}
	if resp.Pulse == nil || resp.Pulse.OutputValue == "" {
		return 0, fmt.Errorf("pulse.outputValue: %w", errMissingField)
	}
	return trailingHex(resp.Pulse.OutputValue)
}

func ParseDrand(body []byte) (float64, error) {
	var resp struct {
		Randomness string `json:"randomness"`
	}
	if err := decode(body, &resp); err != nil {
		return 0, err
	}
	if resp.Randomness == "" {
		return 0, fmt.Errorf("randomness: %w", errMissingField)
	}
	return trailingHex(resp.Randomness)
}

func trailingHex(hex string) (float64, error) {
	if len(hex) > beaconHexDigits {
		hex = hex[len(hex)-beaconHexDigits:]
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse beacon hex: %w", err)
	}
	return float64(v), nil
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
