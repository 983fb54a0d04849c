// Package service maps cipherlab requests onto the cipher engine. Both the
// HTTP and gRPC transports call it, so request validation, key
// normalisation and defaults live here and nowhere else.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/RowanDark/cipherlab/internal/cipher"
	"github.com/RowanDark/cipherlab/internal/observability/metrics"
)

// Options configures a Service.
type Options struct {
	// DefaultShift is used when a Caesar request carries no shift.
	DefaultShift int
	// Padding is the DES padding used when a request does not name one.
	Padding cipher.Padding
	// Workers bounds brute-force parallelism; 0 means GOMAXPROCS.
	Workers int
	// Keys draws generated keys. Defaults to crypto/rand.
	Keys *cipher.KeyGenerator
	// OnKeyGenerated, if set, is told whenever a key is drawn for a request.
	OnKeyGenerated func(ctx context.Context, kind string)
}

// Service is stateless apart from its options and safe for concurrent use.
type Service struct {
	defaultShift   int
	padding        cipher.Padding
	workers        int
	keys           *cipher.KeyGenerator
	onKeyGenerated func(ctx context.Context, kind string)
}

// New validates opts and returns a Service.
func New(opts Options) (*Service, error) {
	if err := cipher.ValidateShift(opts.DefaultShift); err != nil {
		return nil, fmt.Errorf("default shift: %w", err)
	}
	padding, err := cipher.ParsePadding(string(opts.Padding))
	if err != nil {
		return nil, fmt.Errorf("default padding: %w", err)
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", opts.Workers)
	}
	keys := opts.Keys
	if keys == nil {
		keys = cipher.NewKeyGenerator()
	}
	return &Service{
		defaultShift:   opts.DefaultShift,
		padding:        padding,
		workers:        opts.Workers,
		keys:           keys,
		onKeyGenerated: opts.OnKeyGenerated,
	}, nil
}

func requireText(field, value string) error {
	if value == "" {
		return cipher.InvalidParameter("%s must not be empty", field)
	}
	return nil
}

func (s *Service) keyGenerated(ctx context.Context, kind string) {
	metrics.RecordKeyGenerated(kind)
	if s.onKeyGenerated != nil {
		s.onKeyGenerated(ctx, kind)
	}
}

// shift resolves the shift of a Caesar request: explicit field, then key
// envelope, then the configured default.
func (s *Service) shift(req CaesarRequest) (int, error) {
	if req.Shift != nil {
		return *req.Shift, nil
	}
	shift, ok, err := resolveShiftKey(req.Key)
	if err != nil {
		return 0, err
	}
	if ok {
		return shift, nil
	}
	return s.defaultShift, nil
}

// CaesarEncrypt shifts every byte of req.Text forward.
func (s *Service) CaesarEncrypt(ctx context.Context, req CaesarRequest) (TextResponse, error) {
	return s.caesar(ctx, req, cipher.CaesarEncrypt)
}

// CaesarDecrypt shifts every byte of req.Text back.
func (s *Service) CaesarDecrypt(ctx context.Context, req CaesarRequest) (TextResponse, error) {
	return s.caesar(ctx, req, cipher.CaesarDecrypt)
}

func (s *Service) caesar(ctx context.Context, req CaesarRequest, fn func([]byte, int) ([]byte, error)) (TextResponse, error) {
	if err := ctx.Err(); err != nil {
		return TextResponse{}, err
	}
	if err := requireText("text", req.Text); err != nil {
		return TextResponse{}, err
	}
	shift, err := s.shift(req)
	if err != nil {
		return TextResponse{}, err
	}
	out, err := fn(cipher.TextToBytes(req.Text), shift)
	if err != nil {
		return TextResponse{}, err
	}
	return TextResponse{Result: cipher.BytesToText(out)}, nil
}

// CaesarAttack tries all 256 shifts. Results stay ordered by shift; the most
// English-like candidate is reported separately as BestShift.
func (s *Service) CaesarAttack(ctx context.Context, req AttackRequest) (CaesarAttackResponse, error) {
	if err := requireText("text", req.Text); err != nil {
		return CaesarAttackResponse{}, err
	}
	candidates, err := cipher.CaesarBruteForce(ctx, cipher.TextToBytes(req.Text), s.workers)
	if err != nil {
		return CaesarAttackResponse{}, err
	}
	metrics.RecordBruteForce(len(candidates))

	resp := CaesarAttackResponse{Results: make([]ShiftResult, len(candidates))}
	for i, c := range candidates {
		resp.Results[i] = ShiftResult{
			Shift:     c.Shift,
			Decrypted: cipher.BytesToText(c.Plaintext),
			Score:     c.Score,
		}
	}
	if best, ok := cipher.BestCandidate(candidates); ok {
		resp.BestShift = best.Shift
	}
	return resp, nil
}

func (r SubstitutionRequest) rawKey() []byte {
	if len(r.SubstitutionKey) > 0 {
		return r.SubstitutionKey
	}
	return r.Key
}

// SubstitutionEncrypt applies the supplied key, or a freshly generated full
// permutation when none is given, and echoes the key used.
func (s *Service) SubstitutionEncrypt(ctx context.Context, req SubstitutionRequest) (SubstitutionEncryptResponse, error) {
	if err := ctx.Err(); err != nil {
		return SubstitutionEncryptResponse{}, err
	}
	if err := requireText("text", req.Text); err != nil {
		return SubstitutionEncryptResponse{}, err
	}
	key, ok, err := resolveSubstitutionKey(req.rawKey())
	if err != nil {
		return SubstitutionEncryptResponse{}, err
	}
	if !ok {
		if key, err = s.keys.SubstitutionKey(); err != nil {
			return SubstitutionEncryptResponse{}, err
		}
		s.keyGenerated(ctx, KindMonoalphabetic)
	}
	out, err := cipher.SubstitutionEncrypt(cipher.TextToBytes(req.Text), key)
	if err != nil {
		return SubstitutionEncryptResponse{}, err
	}
	return SubstitutionEncryptResponse{Result: cipher.BytesToText(out), Key: key.Map()}, nil
}

// SubstitutionDecrypt requires a key.
func (s *Service) SubstitutionDecrypt(ctx context.Context, req SubstitutionRequest) (TextResponse, error) {
	if err := ctx.Err(); err != nil {
		return TextResponse{}, err
	}
	if err := requireText("text", req.Text); err != nil {
		return TextResponse{}, err
	}
	key, ok, err := resolveSubstitutionKey(req.rawKey())
	if err != nil {
		return TextResponse{}, err
	}
	if !ok {
		return TextResponse{}, cipher.InvalidKey("substitution_key is required for decryption")
	}
	out, err := cipher.SubstitutionDecrypt(cipher.TextToBytes(req.Text), key)
	if err != nil {
		return TextResponse{}, err
	}
	return TextResponse{Result: cipher.BytesToText(out)}, nil
}

const (
	letterGuidance = "Ciphertext letters ordered from most to least frequent. " +
		"English letters by frequency: " + cipher.EnglishLetterOrder + ". " +
		"Pairing the two orders is a starting point for manual analysis. " +
		"This is advisory only: no key has been recovered automatically."
	bigramGuidance = "Most common adjacent letter pairs in the ciphertext. " +
		"Common English pairs are th he in er an re. " +
		"This is advisory only: no key has been recovered automatically."
)

// SubstitutionAttack runs frequency analysis. It never claims a solve.
func (s *Service) SubstitutionAttack(ctx context.Context, req AttackRequest) (SubstitutionAttackResponse, error) {
	if err := ctx.Err(); err != nil {
		return SubstitutionAttackResponse{}, err
	}
	if err := requireText("text", req.Text); err != nil {
		return SubstitutionAttackResponse{}, err
	}
	report, err := cipher.AnalyzeFrequencies(cipher.TextToBytes(req.Text))
	if err != nil {
		return SubstitutionAttackResponse{}, err
	}
	return SubstitutionAttackResponse{
		Results: []FrequencyResult{
			{Description: letterGuidance, Frequencies: report.Ranking()},
			{Description: bigramGuidance, Frequencies: report.BigramRanking()},
		},
		Counts:       report.Letters,
		TotalLetters: report.TotalLetters,
	}, nil
}

func (s *Service) resolvePadding(name string) (cipher.Padding, error) {
	if strings.TrimSpace(name) == "" {
		return s.padding, nil
	}
	return cipher.ParsePadding(name)
}

// DESEncrypt encrypts req.Plaintext in ECB mode. An empty key is replaced
// by a generated one, returned in the response.
func (s *Service) DESEncrypt(ctx context.Context, req DESEncryptRequest) (DESEncryptResponse, error) {
	if err := ctx.Err(); err != nil {
		return DESEncryptResponse{}, err
	}
	if err := requireText("plaintext", req.Plaintext); err != nil {
		return DESEncryptResponse{}, err
	}
	padding, err := s.resolvePadding(req.Padding)
	if err != nil {
		return DESEncryptResponse{}, err
	}
	bits, ok, err := resolveDESKey(req.Key)
	if err != nil {
		return DESEncryptResponse{}, err
	}
	var key cipher.DESKey
	if ok {
		if key, err = cipher.ParseDESKey(bits); err != nil {
			return DESEncryptResponse{}, err
		}
	} else {
		if key, err = s.keys.DESKey(); err != nil {
			return DESEncryptResponse{}, err
		}
		s.keyGenerated(ctx, KindDES)
	}
	ct, err := cipher.DESEncrypt(cipher.TextToBytes(req.Plaintext), key, padding)
	if err != nil {
		return DESEncryptResponse{}, err
	}
	metrics.RecordDESBlocks("encrypt", len(ct)/cipher.DESBlockSize)
	return DESEncryptResponse{Encrypted: cipher.EncodeHex(ct), Key: key.String()}, nil
}

// DESDecrypt decrypts hex ciphertext.
func (s *Service) DESDecrypt(ctx context.Context, req DESDecryptRequest) (DESDecryptResponse, error) {
	if err := ctx.Err(); err != nil {
		return DESDecryptResponse{}, err
	}
	if err := requireText("ciphertext", strings.TrimSpace(req.Ciphertext)); err != nil {
		return DESDecryptResponse{}, err
	}
	padding, err := s.resolvePadding(req.Padding)
	if err != nil {
		return DESDecryptResponse{}, err
	}
	bits, ok, err := resolveDESKey(req.Key)
	if err != nil {
		return DESDecryptResponse{}, err
	}
	if !ok {
		return DESDecryptResponse{}, cipher.InvalidKey("key is required for decryption")
	}
	key, err := cipher.ParseDESKey(bits)
	if err != nil {
		return DESDecryptResponse{}, err
	}
	ct, err := cipher.DecodeHex(req.Ciphertext)
	if err != nil {
		return DESDecryptResponse{}, err
	}
	pt, err := cipher.DESDecrypt(ct, key, padding)
	if err != nil {
		return DESDecryptResponse{}, err
	}
	metrics.RecordDESBlocks("decrypt", len(ct)/cipher.DESBlockSize)
	return DESDecryptResponse{Decrypted: cipher.BytesToText(pt)}, nil
}

// cipherKind maps request spellings onto the envelope type names.
func cipherKind(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "caesar", "shift":
		return KindCaesar, true
	case "monoalphabetic", "mono", "substitution":
		return KindMonoalphabetic, true
	case "des":
		return KindDES, true
	default:
		return "", false
	}
}

// GenerateKey draws a key for req.Cipher from the secure random source.
func (s *Service) GenerateKey(ctx context.Context, req GenerateKeyRequest) (GenerateKeyResponse, error) {
	if err := ctx.Err(); err != nil {
		return GenerateKeyResponse{}, err
	}
	kind, ok := cipherKind(req.Cipher)
	if !ok {
		return GenerateKeyResponse{}, cipher.InvalidParameter("unknown cipher %q (want caesar, monoalphabetic or des)", req.Cipher)
	}

	resp := GenerateKeyResponse{Type: kind}
	switch kind {
	case KindCaesar:
		shift, err := s.keys.Shift()
		if err != nil {
			return GenerateKeyResponse{}, err
		}
		resp.Shift = &shift
	case KindMonoalphabetic:
		key, err := s.keys.SubstitutionKey()
		if err != nil {
			return GenerateKeyResponse{}, err
		}
		resp.Key = key.Map()
	case KindDES:
		key, err := s.keys.DESKey()
		if err != nil {
			return GenerateKeyResponse{}, err
		}
		resp.Key = key.String()
	}
	s.keyGenerated(ctx, kind)
	return resp, nil
}

// RunPipeline executes req.Operations over req.Input, or their inverse
// chain when req.Reverse is set.
func (s *Service) RunPipeline(ctx context.Context, req PipelineRequest) (PipelineResponse, error) {
	if err := requireText("input", req.Input); err != nil {
		return PipelineResponse{}, err
	}
	pipeline := &cipher.Pipeline{Operations: req.Operations}
	if req.Reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			return PipelineResponse{}, err
		}
		pipeline = reversed
	}
	out, err := pipeline.Execute(ctx, cipher.TextToBytes(req.Input))
	if err != nil {
		return PipelineResponse{}, err
	}
	names := make([]string, len(pipeline.Operations))
	for i, op := range pipeline.Operations {
		names[i] = op.Name
	}
	return PipelineResponse{Output: cipher.BytesToText(out), Operations: names}, nil
}

// Operations lists the registered pipeline operations.
func (s *Service) Operations() []OperationInfo {
	ops := cipher.ListOperations()
	infos := make([]OperationInfo, len(ops))
	for i, op := range ops {
		_, reversible := op.Reverse()
		infos[i] = OperationInfo{
			Name:        op.Name(),
			Type:        string(op.Type()),
			Description: op.Description(),
			Reversible:  reversible,
		}
	}
	return infos
}
