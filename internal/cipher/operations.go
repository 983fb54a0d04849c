package cipher

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Caesar Operations

// CaesarEncryptOp shifts every byte forward; requires the "shift" parameter
type CaesarEncryptOp struct {
	BaseOperation
}

func (op *CaesarEncryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	shift, err := intParam(params, "shift")
	if err != nil {
		return nil, err
	}
	return CaesarEncrypt(input, shift)
}

// CaesarDecryptOp shifts every byte back; requires the "shift" parameter
type CaesarDecryptOp struct {
	BaseOperation
}

func (op *CaesarDecryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	shift, err := intParam(params, "shift")
	if err != nil {
		return nil, err
	}
	return CaesarDecrypt(input, shift)
}

// Substitution Operations

// SubstitutionEncryptOp applies a letter mapping given as the "key" parameter
type SubstitutionEncryptOp struct {
	BaseOperation
}

func (op *SubstitutionEncryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := substitutionKeyParam(params)
	if err != nil {
		return nil, err
	}
	return SubstitutionEncrypt(input, key)
}

// SubstitutionDecryptOp applies the inverse of the "key" mapping
type SubstitutionDecryptOp struct {
	BaseOperation
}

func (op *SubstitutionDecryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, err := substitutionKeyParam(params)
	if err != nil {
		return nil, err
	}
	return SubstitutionDecrypt(input, key)
}

// DES Operations

// DESEncryptOp encrypts with a 64-bit binary "key" and optional "padding";
// output is raw ciphertext bytes
type DESEncryptOp struct {
	BaseOperation
}

func (op *DESEncryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, padding, err := desParams(params)
	if err != nil {
		return nil, err
	}
	return DESEncrypt(input, key, padding)
}

// DESDecryptOp decrypts raw ciphertext bytes
type DESDecryptOp struct {
	BaseOperation
}

func (op *DESDecryptOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	key, padding, err := desParams(params)
	if err != nil {
		return nil, err
	}
	return DESDecrypt(input, key, padding)
}

// Hex Operations

// HexEncodeOp encodes bytes as hexadecimal string
type HexEncodeOp struct {
	BaseOperation
}

func (op *HexEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return []byte(EncodeHex(input)), nil
}

// HexDecodeOp decodes hexadecimal string to bytes
type HexDecodeOp struct {
	BaseOperation
}

func (op *HexDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	return DecodeHex(string(input))
}

// Parameter helpers. Parameters usually arrive from decoded JSON, so numbers
// may be float64 or json.Number.

func intParam(params map[string]interface{}, name string) (int, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return 0, invalidParameter("%s parameter is required", name)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, invalidParameter("%s must be an integer, got %v", name, v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, invalidParameter("%s must be an integer: %v", name, err)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, invalidParameter("%s must be an integer: %v", name, err)
		}
		return n, nil
	default:
		return 0, invalidParameter("%s must be an integer, got %T", name, raw)
	}
}

func stringParam(params map[string]interface{}, name string) (string, bool, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", true, invalidParameter("%s must be a string, got %T", name, raw)
	}
	return s, true, nil
}

func substitutionKeyParam(params map[string]interface{}) (SubstitutionKey, error) {
	raw, ok := params["key"]
	if !ok || raw == nil {
		return SubstitutionKey{}, invalidKey("key parameter is required")
	}
	mapping := make(map[string]string)
	switch v := raw.(type) {
	case map[string]string:
		mapping = v
	case map[string]interface{}:
		for src, dst := range v {
			s, ok := dst.(string)
			if !ok {
				return SubstitutionKey{}, invalidKey("target for %q must be a string, got %T", src, dst)
			}
			mapping[src] = s
		}
	case SubstitutionKey:
		return v, nil
	default:
		return SubstitutionKey{}, invalidKey("key must be a letter mapping, got %T", raw)
	}
	return NewSubstitutionKey(mapping)
}

func desParams(params map[string]interface{}) (DESKey, Padding, error) {
	bits, ok, err := stringParam(params, "key")
	if err != nil {
		return DESKey{}, "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if !ok {
		return DESKey{}, "", invalidKey("key parameter is required")
	}
	key, err := ParseDESKey(bits)
	if err != nil {
		return DESKey{}, "", err
	}
	name, _, err := stringParam(params, "padding")
	if err != nil {
		return DESKey{}, "", err
	}
	padding, err := ParsePadding(name)
	if err != nil {
		return DESKey{}, "", err
	}
	return key, padding, nil
}

// init registers the built-in cipher and codec operations
func init() {
	caesarEncrypt := &CaesarEncryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "caesar_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "Shift every byte forward by shift (0-255)",
		},
	}
	caesarDecrypt := &CaesarDecryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "caesar_decrypt",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "Shift every byte back by shift (0-255)",
		},
	}
	caesarEncrypt.ReverseOp = caesarDecrypt
	caesarDecrypt.ReverseOp = caesarEncrypt

	substitutionEncrypt := &SubstitutionEncryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "substitution_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "Monoalphabetic substitution with a letter mapping key",
		},
	}
	substitutionDecrypt := &SubstitutionDecryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "substitution_decrypt",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "Invert a monoalphabetic substitution",
		},
	}
	substitutionEncrypt.ReverseOp = substitutionDecrypt
	substitutionDecrypt.ReverseOp = substitutionEncrypt

	desEncrypt := &DESEncryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "des_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "DES-ECB encrypt with a 64-bit binary key",
		},
	}
	desDecrypt := &DESDecryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "des_decrypt",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "DES-ECB decrypt with a 64-bit binary key",
		},
	}
	desEncrypt.ReverseOp = desDecrypt
	desDecrypt.ReverseOp = desEncrypt

	hexEncode := &HexEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode bytes as hexadecimal string",
		},
	}
	hexDecode := &HexDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode hexadecimal string to bytes",
		},
	}
	hexEncode.ReverseOp = hexDecode
	hexDecode.ReverseOp = hexEncode

	for _, op := range []Operation{
		caesarEncrypt, caesarDecrypt,
		substitutionEncrypt, substitutionDecrypt,
		desEncrypt, desDecrypt,
		hexEncode, hexDecode,
	} {
		if err := RegisterOperation(op); err != nil {
			panic(err)
		}
	}
}
