package service

import (
	"encoding/json"

	"github.com/RowanDark/cipherlab/internal/cipher"
)

// CaesarRequest is the body of /caesar/encrypt and /caesar/decrypt. Shift
// falls back to Key (a {type:"caesar", shift} envelope) and then to the
// configured default.
type CaesarRequest struct {
	Text  string          `json:"text"`
	Shift *int            `json:"shift,omitempty"`
	Key   json.RawMessage `json:"key,omitempty"`
}

// TextResponse carries a single cipher result.
type TextResponse struct {
	Result string `json:"result"`
}

// AttackRequest is the body of both attack endpoints.
type AttackRequest struct {
	Text string `json:"text"`
}

// ShiftResult is one Caesar brute-force hypothesis.
type ShiftResult struct {
	Shift     int     `json:"shift"`
	Decrypted string  `json:"decrypted"`
	Score     float64 `json:"score"`
}

// CaesarAttackResponse lists all 256 hypotheses ordered by shift.
type CaesarAttackResponse struct {
	Results   []ShiftResult `json:"results"`
	BestShift int           `json:"best_shift"`
}

// SubstitutionRequest is the body of the monoalphabetic endpoints. Key is an
// alias of SubstitutionKey.
type SubstitutionRequest struct {
	Text            string          `json:"text"`
	SubstitutionKey json.RawMessage `json:"substitution_key,omitempty"`
	Key             json.RawMessage `json:"key,omitempty"`
}

// SubstitutionEncryptResponse echoes the key used, generated or supplied.
type SubstitutionEncryptResponse struct {
	Result string            `json:"result"`
	Key    map[string]string `json:"key"`
}

// FrequencyResult is one advisory frequency-analysis finding.
type FrequencyResult struct {
	Description string `json:"description"`
	Frequencies string `json:"frequencies"`
}

// SubstitutionAttackResponse is advisory only; no key is recovered.
type SubstitutionAttackResponse struct {
	Results      []FrequencyResult    `json:"results"`
	Counts       []cipher.LetterCount `json:"counts"`
	TotalLetters int                  `json:"total_letters"`
}

// DESEncryptRequest is the body of /encrypt. An empty key asks for a
// generated one.
type DESEncryptRequest struct {
	Plaintext string          `json:"plaintext"`
	Key       json.RawMessage `json:"key,omitempty"`
	Padding   string          `json:"padding,omitempty"`
}

// DESEncryptResponse carries hex ciphertext and the binary key used.
type DESEncryptResponse struct {
	Encrypted string `json:"encrypted"`
	Key       string `json:"key"`
}

// DESDecryptRequest is the body of /decrypt.
type DESDecryptRequest struct {
	Ciphertext string          `json:"ciphertext"`
	Key        json.RawMessage `json:"key"`
	Padding    string          `json:"padding,omitempty"`
}

// DESDecryptResponse carries the recovered plaintext.
type DESDecryptResponse struct {
	Decrypted string `json:"decrypted"`
}

// GenerateKeyRequest selects the cipher to draw a key for.
type GenerateKeyRequest struct {
	Cipher string `json:"cipher"`
}

// GenerateKeyResponse is a key envelope that the cipher endpoints accept
// back unchanged.
type GenerateKeyResponse struct {
	Type  string      `json:"type"`
	Shift *int        `json:"shift,omitempty"`
	Key   interface{} `json:"key,omitempty"`
}

// PipelineRequest chains registered operations over Input.
type PipelineRequest struct {
	Input      string                   `json:"input"`
	Operations []cipher.OperationConfig `json:"operations"`
	Reverse    bool                     `json:"reverse,omitempty"`
}

// PipelineResponse reports the output and the operations actually run.
type PipelineResponse struct {
	Output     string   `json:"output"`
	Operations []string `json:"operations"`
}

// OperationInfo describes one registered operation.
type OperationInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Reversible  bool   `json:"reversible"`
}

// Cipher kinds used in key envelopes.
const (
	KindCaesar         = "caesar"
	KindMonoalphabetic = "monoalphabetic"
	KindDES            = "des"
)
