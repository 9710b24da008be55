package lottery

import (
	"crypto/sha256"
	"encoding/binary"

	"fairdraw/pkg/digest"
)

// Generator is a counter-mode SHA-256 stream keyed by a seed hash. Each block
// is sha256(seed || counter) with an 8-byte big-endian counter starting at 0.
// A Generator is not safe for concurrent use.
type Generator struct {
	seed    []byte
	counter uint64
}

// NewGenerator builds a stream from a hex-encoded seed hash.
func NewGenerator(seedHex string) (*Generator, error) {
	seed, err := digest.HexToBytes(seedHex)
	if err != nil {
		return nil, err
	}
	return &Generator{seed: seed}, nil
}

func (g *Generator) block() [sha256.Size]byte {
	buf := make([]byte, len(g.seed)+8)
	copy(buf, g.seed)
	binary.BigEndian.PutUint64(buf[len(g.seed):], g.counter)
	g.counter++
	return sha256.Sum256(buf)
}

// NextUint32 returns the first four bytes of the next block, big-endian.
func (g *Generator) NextUint32() uint32 {
	b := g.block()
	return binary.BigEndian.Uint32(b[:4])
}

// RandomIndex draws uniformly from [0, n) by rejection sampling below
// floor(2^32/n)*n. It returns 0 when n <= 0.
func (g *Generator) RandomIndex(n int) int {
	if n <= 0 {
		return 0
	}
	bound := uint64(n)
	limit := ((uint64(1) << 32) / bound) * bound
	for {
		r := uint64(g.NextUint32())
		if r < limit {
			return int(r % bound)
		}
	}
}

// Shuffle returns a Fisher-Yates permutation of items driven by g. The input
// slice is not modified.
func Shuffle[T any](items []T, g *Generator) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := g.RandomIndex(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
