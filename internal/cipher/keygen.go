package cipher

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"math/bits"
)

// KeyGenerator produces keys from a cryptographically secure source.
type KeyGenerator struct {
	rand io.Reader
}

// NewKeyGenerator returns a generator backed by crypto/rand.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{rand: rand.Reader}
}

// NewKeyGeneratorFrom uses r as the entropy source. Tests use it for
// deterministic keys; production code should use NewKeyGenerator.
func NewKeyGeneratorFrom(r io.Reader) *KeyGenerator {
	return &KeyGenerator{rand: r}
}

// Shift returns a uniform shift in [0,255].
func (g *KeyGenerator) Shift() (int, error) {
	var b [1]byte
	if _, err := io.ReadFull(g.rand, b[:]); err != nil {
		return 0, fmt.Errorf("read random shift: %w", err)
	}
	return int(b[0]), nil
}

// SubstitutionKey returns a uniformly random permutation of the alphabet,
// built with a Fisher-Yates shuffle.
func (g *KeyGenerator) SubstitutionKey() (SubstitutionKey, error) {
	perm := []byte(Alphabet)
	for i := len(perm) - 1; i > 0; i-- {
		n, err := rand.Int(g.rand, big.NewInt(int64(i+1)))
		if err != nil {
			return SubstitutionKey{}, fmt.Errorf("shuffle alphabet: %w", err)
		}
		j := int(n.Int64())
		perm[i], perm[j] = perm[j], perm[i]
	}

	mapping := make(map[string]string, len(Alphabet))
	for i := 0; i < len(Alphabet); i++ {
		mapping[Alphabet[i:i+1]] = string(perm[i])
	}
	return NewSubstitutionKey(mapping)
}

// DESKey returns a random key whose bytes carry odd parity in the low bit.
func (g *KeyGenerator) DESKey() (DESKey, error) {
	var key DESKey
	if _, err := io.ReadFull(g.rand, key[:]); err != nil {
		return DESKey{}, fmt.Errorf("read random DES key: %w", err)
	}
	for i, b := range key {
		b &^= 1
		if bits.OnesCount8(b)%2 == 0 {
			b |= 1
		}
		key[i] = b
	}
	return key, nil
}
