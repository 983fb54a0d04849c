package service

import (
	"bytes"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/RowanDark/cipherlab/internal/cipher"
)

// Key fields arrive in several shapes: the bare key, a {type, key} envelope
// as displayed by the UI, or either of those pasted into a JSON string. The
// resolvers below are the only place those variants are told apart.

// decodeKey parses raw and reports whether a key was supplied at all. JSON
// null and an empty string count as absent.
func decodeKey(raw []byte) (gjson.Result, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return gjson.Result{}, false, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return gjson.Result{}, false, cipher.MalformedInput("key is not valid JSON")
	}
	res := gjson.ParseBytes(trimmed)
	switch res.Type {
	case gjson.Null:
		return res, false, nil
	case gjson.String:
		s := strings.TrimSpace(res.String())
		if s == "" {
			return res, false, nil
		}
		if strings.HasPrefix(s, "{") {
			if !gjson.Valid(s) {
				return gjson.Result{}, false, cipher.MalformedInput("key is not valid JSON")
			}
			return gjson.Parse(s), true, nil
		}
	}
	return res, true, nil
}

// unwrapEnvelope returns the envelope object when res is one, checking its
// type against accepted. A letter mapping never has "type" or "key" fields,
// so their presence identifies an envelope.
func unwrapEnvelope(res gjson.Result, accepted ...string) (gjson.Result, bool, error) {
	if !res.IsObject() {
		return res, false, nil
	}
	typ := res.Get("type")
	if !typ.Exists() && !res.Get("key").Exists() {
		return res, false, nil
	}
	if typ.Exists() {
		name := strings.ToLower(strings.TrimSpace(typ.String()))
		matched := false
		for _, a := range accepted {
			if name == a {
				matched = true
				break
			}
		}
		if !matched {
			return res, true, cipher.InvalidKey("key envelope is for %q, expected %s", typ.String(), accepted[0])
		}
	}
	return res, true, nil
}

// resolveSubstitutionKey builds a validated key from raw.
func resolveSubstitutionKey(raw []byte) (cipher.SubstitutionKey, bool, error) {
	res, ok, err := decodeKey(raw)
	if err != nil || !ok {
		return cipher.SubstitutionKey{}, ok, err
	}
	env, isEnvelope, err := unwrapEnvelope(res, KindMonoalphabetic, "mono", "substitution")
	if err != nil {
		return cipher.SubstitutionKey{}, true, err
	}
	if isEnvelope {
		res, ok, err = decodeKey([]byte(env.Get("key").Raw))
		if err != nil {
			return cipher.SubstitutionKey{}, true, err
		}
		if !ok {
			return cipher.SubstitutionKey{}, true, cipher.InvalidKey("key envelope has no key")
		}
	}
	if !res.IsObject() {
		return cipher.SubstitutionKey{}, true, cipher.InvalidKey("substitution key must be a letter mapping")
	}

	mapping := make(map[string]string)
	var fieldErr error
	res.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.String {
			fieldErr = cipher.InvalidKey("target for %q must be a letter", k.String())
			return false
		}
		mapping[k.String()] = v.String()
		return true
	})
	if fieldErr != nil {
		return cipher.SubstitutionKey{}, true, fieldErr
	}
	key, err := cipher.NewSubstitutionKey(mapping)
	return key, true, err
}

// resolveShiftKey reads a shift from a {type:"caesar", shift} envelope or a
// bare number.
func resolveShiftKey(raw []byte) (int, bool, error) {
	res, ok, err := decodeKey(raw)
	if err != nil || !ok {
		return 0, ok, err
	}
	env, isEnvelope, err := unwrapEnvelope(res, KindCaesar)
	if err != nil {
		return 0, true, err
	}
	if isEnvelope {
		res = env.Get("shift")
		if !res.Exists() {
			res = env.Get("key")
		}
	}
	if res.Type == gjson.String {
		res = gjson.Parse(strings.TrimSpace(res.String()))
	}
	if res.Type != gjson.Number {
		return 0, true, cipher.InvalidKey("caesar key must carry a numeric shift")
	}
	if res.Num != math.Trunc(res.Num) {
		return 0, true, cipher.InvalidParameter("shift must be an integer, got %v", res.Num)
	}
	if res.Num < math.MinInt32 || res.Num > math.MaxInt32 {
		return 0, true, cipher.InvalidParameter("shift must be between %d and %d", cipher.MinShift, cipher.MaxShift)
	}
	return int(res.Num), true, nil
}

// resolveDESKey extracts the 64-digit binary key text. Whitespace inside the
// digits is ignored so grouped keys ("0001 0011 ...") are accepted.
func resolveDESKey(raw []byte) (string, bool, error) {
	res, ok, err := decodeKey(raw)
	if err != nil || !ok {
		return "", ok, err
	}
	env, isEnvelope, err := unwrapEnvelope(res, KindDES)
	if err != nil {
		return "", true, err
	}
	if isEnvelope {
		res = env.Get("key")
	}
	if res.Type != gjson.String {
		return "", true, cipher.InvalidKey("DES key must be a string of %d binary digits", cipher.DESKeyBits)
	}
	bits := strings.Join(strings.Fields(res.String()), "")
	if bits == "" {
		return "", false, nil
	}
	return bits, true, nil
}
