package cipher

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every engine operation. Callers classify failures
// with errors.Is or KindOf; messages are safe to return to clients.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidKey       = errors.New("invalid key")
	ErrMalformedInput   = errors.New("malformed input")
)

// ErrorKind is the stable, wire-visible name of an error class.
type ErrorKind string

const (
	KindInvalidParameter ErrorKind = "invalid_parameter"
	KindInvalidKey       ErrorKind = "invalid_key"
	KindMalformedInput   ErrorKind = "malformed_input"
	KindInternal         ErrorKind = "internal"
)

// KindOf reports which taxonomy class err belongs to.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidParameter):
		return KindInvalidParameter
	case errors.Is(err, ErrInvalidKey):
		return KindInvalidKey
	case errors.Is(err, ErrMalformedInput):
		return KindMalformedInput
	default:
		return KindInternal
	}
}

func invalidParameter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func invalidKey(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidKey, fmt.Sprintf(format, args...))
}

func malformedInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

// InvalidParameter, InvalidKey and MalformedInput let boundary code outside
// this package report failures in the same taxonomy.
func InvalidParameter(format string, args ...any) error { return invalidParameter(format, args...) }

func InvalidKey(format string, args ...any) error { return invalidKey(format, args...) }

func MalformedInput(format string, args ...any) error { return malformedInput(format, args...) }
