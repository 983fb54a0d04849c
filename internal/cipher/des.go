package cipher

import (
	stdcipher "crypto/cipher"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// DESBlockSize is the DES block size in bytes.
	DESBlockSize = 8
	// DESKeyBits is the textual key length: 64 binary digits.
	DESKeyBits = 64
	desRounds  = 16
)

// DESKey is a 64-bit DES key. The low bit of each byte is a parity bit that
// the key schedule ignores, leaving 56 effective bits.
type DESKey [8]byte

// ParseDESKey parses exactly 64 '0'/'1' characters, most significant first.
func ParseDESKey(bits string) (DESKey, error) {
	var key DESKey
	if len(bits) != DESKeyBits {
		return key, invalidKey("DES key must be exactly %d binary digits, got %d characters", DESKeyBits, len(bits))
	}
	var v uint64
	for i := 0; i < len(bits); i++ {
		switch bits[i] {
		case '0':
			v <<= 1
		case '1':
			v = v<<1 | 1
		default:
			return DESKey{}, invalidKey("DES key contains non-binary character %q at position %d", bits[i], i)
		}
	}
	binary.BigEndian.PutUint64(key[:], v)
	return key, nil
}

// String renders the key as 64 binary digits, the same form ParseDESKey
// accepts.
func (k DESKey) String() string {
	var sb strings.Builder
	sb.Grow(DESKeyBits)
	for _, b := range k {
		sb.WriteString(fmt.Sprintf("%08b", b))
	}
	return sb.String()
}

func (k DESKey) uint64() uint64 { return binary.BigEndian.Uint64(k[:]) }

// DESCipher is a keyed DES block cipher. It holds only the expanded round
// subkeys and is safe for concurrent use.
type DESCipher struct {
	subkeys [desRounds]uint64
}

var _ stdcipher.Block = (*DESCipher)(nil)

// NewDESCipher runs the key schedule for key.
func NewDESCipher(key DESKey) *DESCipher {
	c := &DESCipher{}
	c.subkeys = keySchedule(key.uint64())
	return c
}

// BlockSize implements crypto/cipher.Block.
func (c *DESCipher) BlockSize() int { return DESBlockSize }

// Encrypt encrypts one 8-byte block from src into dst.
func (c *DESCipher) Encrypt(dst, src []byte) {
	checkBlock(dst, src)
	out := c.cryptBlock(binary.BigEndian.Uint64(src), false)
	binary.BigEndian.PutUint64(dst, out)
}

// Decrypt runs the same network with the subkeys in reverse order.
func (c *DESCipher) Decrypt(dst, src []byte) {
	checkBlock(dst, src)
	out := c.cryptBlock(binary.BigEndian.Uint64(src), true)
	binary.BigEndian.PutUint64(dst, out)
}

func checkBlock(dst, src []byte) {
	if len(src) < DESBlockSize {
		panic("cipher/des: input not full block")
	}
	if len(dst) < DESBlockSize {
		panic("cipher/des: output not full block")
	}
}

func (c *DESCipher) cryptBlock(block uint64, decrypt bool) uint64 {
	permuted := permute(block, 64, initialPermutation[:])
	left := uint32(permuted >> 32)
	right := uint32(permuted)

	for round := 0; round < desRounds; round++ {
		k := c.subkeys[round]
		if decrypt {
			k = c.subkeys[desRounds-1-round]
		}
		left, right = right, left^feistel(right, k)
	}

	// The halves are swapped once more after the last round.
	preOutput := uint64(right)<<32 | uint64(left)
	return permute(preOutput, 64, finalPermutation[:])
}

// feistel is the DES round function f(R, K).
func feistel(right uint32, subkey uint64) uint32 {
	x := permute(uint64(right), 32, expansion[:]) ^ subkey

	var substituted uint32
	for i := 0; i < 8; i++ {
		six := uint8(x>>(42-6*i)) & 0x3f
		row := (six>>4)&0x2 | six&0x1
		col := (six >> 1) & 0xf
		substituted = substituted<<4 | uint32(sBoxes[i][row][col])
	}
	return uint32(permute(uint64(substituted), 32, roundPermutation[:]))
}

func keySchedule(key uint64) [desRounds]uint64 {
	var subkeys [desRounds]uint64
	cd := permute(key, 64, permutedChoice1[:])
	c := uint32(cd>>28) & 0x0fffffff
	d := uint32(cd) & 0x0fffffff
	for round := 0; round < desRounds; round++ {
		c = rotate28(c, keyRotations[round])
		d = rotate28(d, keyRotations[round])
		subkeys[round] = permute(uint64(c)<<28|uint64(d), 56, permutedChoice2[:])
	}
	return subkeys
}

func rotate28(v uint32, n uint8) uint32 {
	return (v<<n | v>>(28-n)) & 0x0fffffff
}

// permute selects bits of in (width inBits) in the order given by table.
func permute(in uint64, inBits uint, table []uint8) uint64 {
	var out uint64
	for _, pos := range table {
		out = out<<1 | (in>>(inBits-uint(pos)))&1
	}
	return out
}

// DESEncrypt pads plaintext and encrypts each 8-byte block independently
// (ECB). The result length is a multiple of DESBlockSize.
func DESEncrypt(plaintext []byte, key DESKey, padding Padding) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, invalidParameter("plaintext must not be empty")
	}
	padded, err := padding.Pad(plaintext, DESBlockSize)
	if err != nil {
		return nil, err
	}
	c := NewDESCipher(key)
	out := make([]byte, len(padded))
	for off := 0; off < len(padded); off += DESBlockSize {
		c.Encrypt(out[off:off+DESBlockSize], padded[off:off+DESBlockSize])
	}
	return out, nil
}

// DESDecrypt reverses DESEncrypt, removing the padding from the final block.
func DESDecrypt(ciphertext []byte, key DESKey, padding Padding) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, invalidParameter("ciphertext must not be empty")
	}
	if len(ciphertext)%DESBlockSize != 0 {
		return nil, malformedInput("ciphertext length %d is not a multiple of %d bytes", len(ciphertext), DESBlockSize)
	}
	c := NewDESCipher(key)
	out := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += DESBlockSize {
		c.Decrypt(out[off:off+DESBlockSize], ciphertext[off:off+DESBlockSize])
	}
	return padding.Unpad(out, DESBlockSize)
}
