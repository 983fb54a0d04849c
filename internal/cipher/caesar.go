package cipher

// Shift range accepted by the Caesar cipher. The key space is exactly 256.
const (
	MinShift   = 0
	MaxShift   = 255
	ShiftCount = MaxShift + 1
)

// ValidateShift rejects shifts outside [0,255].
func ValidateShift(shift int) error {
	if shift < MinShift || shift > MaxShift {
		return invalidParameter("shift must be between %d and %d, got %d", MinShift, MaxShift, shift)
	}
	return nil
}

// CaesarEncrypt adds shift to every byte modulo 256.
func CaesarEncrypt(text []byte, shift int) ([]byte, error) {
	if err := ValidateShift(shift); err != nil {
		return nil, err
	}
	return shiftBytes(text, byte(shift)), nil
}

// CaesarDecrypt subtracts shift from every byte modulo 256.
func CaesarDecrypt(text []byte, shift int) ([]byte, error) {
	if err := ValidateShift(shift); err != nil {
		return nil, err
	}
	return shiftBytes(text, byte(ShiftCount-shift)), nil
}

// shiftBytes relies on byte arithmetic wrapping at 256.
func shiftBytes(in []byte, delta byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = b + delta
	}
	return out
}
