package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsers(t *testing.T) {
	t.Run("coingecko reads a json number", func(t *testing.T) {
		v, err := ParseCoingecko([]byte(`{"bitcoin":{"usd":97123.5}}`))
		require.NoError(t, err)
		assert.Equal(t, 97123.5, v)
	})

	t.Run("coinbase reads a decimal string", func(t *testing.T) {
		v, err := ParseCoinbase([]byte(`{"data":{"base":"BTC","currency":"USD","amount":"97120.01"}}`))
		require.NoError(t, err)
		assert.Equal(t, 97120.01, v)
	})

	t.Run("binance reads a decimal string", func(t *testing.T) {
		v, err := ParseBinance([]byte(`{"symbol":"BTCUSDT","price":"97130.00000000"}`))
		require.NoError(t, err)
		assert.Equal(t, 97130.0, v)
	})

	t.Run("beacons read the last 13 hex digits", func(t *testing.T) {
		v, err := ParseNISTBeacon([]byte(`{"pulse":{"outputValue":"AAAAFFFFFFFFFFFFF"}}`))
		require.NoError(t, err)
		assert.Equal(t, float64(0xFFFFFFFFFFFFF), v)

		v, err = ParseDrand([]byte(`{"round":1,"randomness":"00000000000000000000000000000001a"}`))
		require.NoError(t, err)
		assert.Equal(t, float64(0x1a), v)
	})

	t.Run("short beacon values are read whole", func(t *testing.T) {
		v, err := ParseDrand([]byte(`{"randomness":"ff"}`))
		require.NoError(t, err)
		assert.Equal(t, 255.0, v)
	})

	t.Run("missing or malformed fields fail", func(t *testing.T) {
		bad := map[string]func([]byte) (float64, error){
			`{"bitcoin":{}}`:                ParseCoingecko,
			`{"data":null}`:                 ParseCoinbase,
			`{"price":"abc"}`:               ParseBinance,
			`{"pulse":{}}`:                  ParseNISTBeacon,
			`{"randomness":"zz"}`:           ParseDrand,
			`<html>rate limited</html>`:     ParseBinance,
			`{"bitcoin":{"usd":"nan-ish"}}`: ParseCoingecko,
		}
		for body, parse := range bad {
			_, err := parse([]byte(body))
			assert.Error(t, err, body)
		}
	})
}

func TestDefaultsAreOrdered(t *testing.T) {
	var btc, nist []string
	for _, src := range DefaultBTC() {
		btc = append(btc, src.Name())
	}
	for _, src := range DefaultNIST() {
		nist = append(nist, src.Name())
	}
	assert.Equal(t, []string{"coingecko", "coinbase", "binance"}, btc)
	assert.Equal(t, []string{"nist_beacon", "drand_cloudflare"}, nist)
}
