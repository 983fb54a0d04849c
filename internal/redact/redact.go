package redact

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	neverPersistKey = "never_persist"
	redacted        = "[REDACTED]"
)

// sensitiveKeys name metadata fields that carry key material or message
// text. Their values are replaced outright regardless of content.
var sensitiveKeys = map[string]struct{}{
	"key":              {},
	"substitution_key": {},
	"shift":            {},
	"plaintext":        {},
	"ciphertext":       {},
	"text":             {},
	"input":            {},
	"decrypted":        {},
	"encrypted":        {},
	"result":           {},
}

var (
	desKeyRe    = regexp.MustCompile(`\b[01]{64}\b`)
	kvSecretRe  = regexp.MustCompile(`(?i)((?:key|shift|secret|password)\s*=\s*)(['\"]?)([^\s'\",}]+)(['\"]?)`)
	longHexRe   = regexp.MustCompile(`\b[0-9A-Fa-f]{16,}\b`)
	longTokenRe = regexp.MustCompile(`\b[A-Za-z0-9]{32,}\b`)
)

// String masks DES keys, key=value pairs and long hex or token runs.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := desKeyRe.ReplaceAllString(in, redacted)
	masked = kvSecretRe.ReplaceAllString(masked, `$1$2`+redacted+`$4`)
	masked = longHexRe.ReplaceAllString(masked, redacted)
	masked = longTokenRe.ReplaceAllString(masked, redacted)
	return masked
}

// IsSensitiveKey reports whether values stored under name are always masked.
func IsSensitiveKey(name string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Interface redacts recognised sensitive values within nested structures.
func Interface(value any) any {
	switch v := value.(type) {
	case string:
		return String(v)
	case fmt.Stringer:
		return String(v.String())
	case []string:
		return Slice(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Interface(elem)
		}
		return out
	case map[string]string:
		return MapString(v)
	case map[string]any:
		return Map(v)
	default:
		return value
	}
}

// Map redacts sensitive values within a map of arbitrary values. Keys listed
// under never_persist are masked along with the built-in sensitive keys.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	extra := map[string]struct{}{}
	if raw, ok := in[neverPersistKey]; ok {
		extra = keySet(collectNeverPersist(raw))
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch {
		case strings.EqualFold(k, neverPersistKey):
			continue
		case masked(k, extra):
			out[k] = redacted
		default:
			out[k] = Interface(v)
		}
	}
	return out
}

// MapString redacts sensitive values within a string map.
func MapString(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	extra := keySet(splitList(in[neverPersistKey]))
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch {
		case strings.EqualFold(k, neverPersistKey):
			continue
		case masked(k, extra):
			out[k] = redacted
		default:
			out[k] = String(v)
		}
	}
	return out
}

// Slice redacts sensitive values within a slice of strings.
func Slice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = String(v)
	}
	return out
}

func masked(key string, extra map[string]struct{}) bool {
	if IsSensitiveKey(key) {
		return true
	}
	_, ok := extra[key]
	return ok
}

func collectNeverPersist(value any) []string {
	switch v := value.(type) {
	case string:
		return splitList(v)
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			out = append(out, fmt.Sprint(elem))
		}
		return out
	default:
		return nil
	}
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.Split(value, ",")
}

func keySet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = struct{}{}
		}
	}
	return out
}
