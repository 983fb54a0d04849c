package cipher

import (
	"sort"
	"strings"
)

// Alphabet is the set of letters a substitution key may map. Keys are stored
// lowercase and applied case-insensitively.
const Alphabet = "abcdefghijklmnopqrstuvwxyz"

// SubstitutionKey is an injective letter mapping. The zero value is an empty
// key; build one with NewSubstitutionKey or KeyGenerator.SubstitutionKey so the
// invariant is checked once at construction.
type SubstitutionKey struct {
	forward [26]byte // 0 means unmapped
	inverse [26]byte
	size    int
}

// NewSubstitutionKey validates mapping and returns the key. Entries must be
// single ASCII letters on both sides. Two sources sharing a target, or the
// same letter given twice with different targets ("A" and "a"), are rejected.
func NewSubstitutionKey(mapping map[string]string) (SubstitutionKey, error) {
	var key SubstitutionKey
	if len(mapping) == 0 {
		return key, invalidKey("substitution key must not be empty")
	}

	// Deterministic order keeps error messages stable.
	sources := make([]string, 0, len(mapping))
	for src := range mapping {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	for _, src := range sources {
		dst := mapping[src]
		from, ok := letterIndex(src)
		if !ok {
			return SubstitutionKey{}, invalidKey("source %q is not a single letter", src)
		}
		to, ok := letterIndex(dst)
		if !ok {
			return SubstitutionKey{}, invalidKey("target %q for %q is not a single letter", dst, src)
		}
		if prev := key.forward[from]; prev != 0 {
			if prev-1 != to {
				return SubstitutionKey{}, invalidKey("letter %q is mapped twice", strings.ToLower(src))
			}
			continue
		}
		if owner := key.inverse[to]; owner != 0 {
			return SubstitutionKey{}, invalidKey("letters %q and %q both map to %q",
				string(rune('a'+owner-1)), string(rune('a'+from)), string(rune('a'+to)))
		}
		key.forward[from] = to + 1
		key.inverse[to] = from + 1
		key.size++
	}
	return key, nil
}

// ValidateSubstitutionKey reports whether mapping would form a valid key.
func ValidateSubstitutionKey(mapping map[string]string) error {
	_, err := NewSubstitutionKey(mapping)
	return err
}

// Len is the number of mapped letters.
func (k SubstitutionKey) Len() int { return k.size }

// IsFull reports whether all 26 letters are mapped.
func (k SubstitutionKey) IsFull() bool { return k.size == len(Alphabet) }

// Map returns the key as a lowercase source→target mapping, ready for JSON.
func (k SubstitutionKey) Map() map[string]string {
	out := make(map[string]string, k.size)
	for i, to := range k.forward {
		if to == 0 {
			continue
		}
		out[string(rune('a'+i))] = string(rune('a' + to - 1))
	}
	return out
}

// SubstitutionEncrypt replaces every mapped letter, keeping its case. Other
// bytes pass through unchanged.
func SubstitutionEncrypt(text []byte, key SubstitutionKey) ([]byte, error) {
	if key.size == 0 {
		return nil, invalidKey("substitution key must not be empty")
	}
	return substitute(text, &key.forward), nil
}

// SubstitutionDecrypt applies the inverse mapping built at construction.
func SubstitutionDecrypt(text []byte, key SubstitutionKey) ([]byte, error) {
	if key.size == 0 {
		return nil, invalidKey("substitution key must not be empty")
	}
	return substitute(text, &key.inverse), nil
}

func substitute(text []byte, table *[26]byte) []byte {
	out := make([]byte, len(text))
	for i, b := range text {
		switch {
		case b >= 'a' && b <= 'z':
			if to := table[b-'a']; to != 0 {
				b = 'a' + to - 1
			}
		case b >= 'A' && b <= 'Z':
			if to := table[b-'A']; to != 0 {
				b = 'A' + to - 1
			}
		}
		out[i] = b
	}
	return out
}

func letterIndex(s string) (byte, bool) {
	if len(s) != 1 {
		return 0, false
	}
	c := s[0]
	switch {
	case c >= 'a' && c <= 'z':
		return c - 'a', true
	case c >= 'A' && c <= 'Z':
		return c - 'A', true
	default:
		return 0, false
	}
}
