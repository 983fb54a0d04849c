package cipher

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// TextToBytes converts wire text into the bytes the ciphers operate on. Text
// made only of runes up to U+00FF is read as ISO-8859-1, one byte per rune,
// so every byte value can travel inside a JSON string. Anything else is taken
// as UTF-8.
func TextToBytes(s string) []byte {
	if b, err := charmap.ISO8859_1.NewEncoder().String(s); err == nil {
		return []byte(b)
	}
	return []byte(s)
}

// BytesToText is the inverse of TextToBytes: TextToBytes(BytesToText(b))
// returns b for every byte slice.
func BytesToText(b []byte) string {
	if utf8.Valid(b) && hasWideRune(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// ISO-8859-1 defines all 256 byte values.
		return string(b)
	}
	return string(out)
}

func hasWideRune(b []byte) bool {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r > 0xff {
			return true
		}
		b = b[size:]
	}
	return false
}

// EncodeHex renders b as lowercase hexadecimal.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex parses hexadecimal case-insensitively, ignoring whitespace, an
// optional 0x prefix and ':' or '-' separators.
func DecodeHex(s string) ([]byte, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(strings.TrimPrefix(cleaned, "0x"), "0X")
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':', '-':
			return -1
		}
		return r
	}, cleaned)
	decoded, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, malformedInput("invalid hex: %v", err)
	}
	return decoded, nil
}
