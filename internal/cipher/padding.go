package cipher

import "strings"

// Padding names a block padding scheme.
type Padding string

const (
	// PaddingPKCS7 always appends 1..blockSize bytes, each equal to the pad
	// length, so removal is unambiguous.
	PaddingPKCS7 Padding = "pkcs7"
	// PaddingZero fills the final partial block with zero bytes and strips
	// trailing zeros on removal. Plaintext that itself ends in 0x00 does not
	// survive a round trip.
	PaddingZero Padding = "zero"
)

// ParsePadding accepts a padding name case-insensitively. Empty selects PKCS#7.
func ParsePadding(name string) (Padding, error) {
	switch Padding(strings.ToLower(strings.TrimSpace(name))) {
	case "", PaddingPKCS7, "pkcs5":
		return PaddingPKCS7, nil
	case PaddingZero, "zeros":
		return PaddingZero, nil
	default:
		return "", invalidParameter("unknown padding %q (want pkcs7 or zero)", name)
	}
}

// Pad extends data to a multiple of blockSize.
func (p Padding) Pad(data []byte, blockSize int) ([]byte, error) {
	if blockSize <= 0 || blockSize > 255 {
		return nil, invalidParameter("block size %d out of range", blockSize)
	}
	switch p {
	case PaddingPKCS7, "":
		n := blockSize - len(data)%blockSize
		out := make([]byte, len(data), len(data)+n)
		copy(out, data)
		for i := 0; i < n; i++ {
			out = append(out, byte(n))
		}
		return out, nil
	case PaddingZero:
		n := 0
		if rem := len(data) % blockSize; rem != 0 {
			n = blockSize - rem
		}
		out := make([]byte, len(data)+n)
		copy(out, data)
		return out, nil
	default:
		return nil, invalidParameter("unknown padding %q", string(p))
	}
}

// Unpad removes padding added by Pad.
func (p Padding) Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, malformedInput("padded data length %d is not a multiple of %d", len(data), blockSize)
	}
	switch p {
	case PaddingPKCS7, "":
		n := int(data[len(data)-1])
		if n == 0 || n > blockSize {
			return nil, malformedInput("invalid padding (wrong key or corrupted ciphertext)")
		}
		for _, b := range data[len(data)-n:] {
			if int(b) != n {
				return nil, malformedInput("invalid padding (wrong key or corrupted ciphertext)")
			}
		}
		return data[:len(data)-n], nil
	case PaddingZero:
		end := len(data)
		for end > 0 && data[end-1] == 0 {
			end--
		}
		return data[:end], nil
	default:
		return nil, invalidParameter("unknown padding %q", string(p))
	}
}
