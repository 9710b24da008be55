package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256Hex(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", SHA256Hex("abc"))
	assert.Equal(t, SHA256Hex("a\nb"), ConcatAndHashHex([]string{"a", "b"}))
}

func TestHexToBytes(t *testing.T) {
	b, err := HexToBytes("  0A0b ")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b}, b)

	_, err = HexToBytes("xyz")
	assert.Error(t, err)
}

func TestCanonicalJSON(t *testing.T) {
	t.Run("sorts keys recursively and keeps array order", func(t *testing.T) {
		out, err := CanonicalJSON(map[string]any{
			"b": []any{map[string]any{"z": 1, "a": 2}, "x"},
			"a": "<tag>&",
		})
		require.NoError(t, err)
		assert.Equal(t, `{"a":"<tag>&","b":[{"a":2,"z":1},"x"]}`, string(out))
	})

	t.Run("struct field order does not leak", func(t *testing.T) {
		type payload struct {
			Zeta  string `json:"zeta"`
			Alpha int    `json:"alpha"`
		}
		out, err := CanonicalJSON(payload{Zeta: "z", Alpha: 3})
		require.NoError(t, err)
		assert.Equal(t, `{"alpha":3,"zeta":"z"}`, string(out))
	})

	t.Run("raw number literals survive", func(t *testing.T) {
		out, err := CanonicalizeRaw([]byte(`{"v": 97123.50, "n": null, "ok": true}`))
		require.NoError(t, err)
		assert.Equal(t, `{"n":null,"ok":true,"v":97123.50}`, string(out))
	})

	t.Run("invalid json is an error", func(t *testing.T) {
		_, err := CanonicalizeRaw([]byte(`{"a":`))
		assert.Error(t, err)
	})
}

func TestMarshalKeepsHTMLCharacters(t *testing.T) {
	out, err := Marshal(map[string]string{"a": "x<y>&z"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x<y>&z"}`, string(out))

	out, err = MarshalIndent(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(out))
}
