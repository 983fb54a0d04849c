package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RowanDark/cipherlab/internal/cipher"
)

const fipsKeyBits = "0001001100110100010101110111100110011011101111001101111111110001"

func newTestService(t *testing.T) (*Service, *[]string) {
	t.Helper()
	var generated []string
	svc, err := New(Options{
		DefaultShift: 3,
		Padding:      cipher.PaddingPKCS7,
		Workers:      2,
		Keys:         cipher.NewKeyGeneratorFrom(rand.New(rand.NewSource(1))),
		OnKeyGenerated: func(_ context.Context, kind string) {
			generated = append(generated, kind)
		},
	})
	require.NoError(t, err)
	return svc, &generated
}

func intPtr(v int) *int { return &v }

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{DefaultShift: 300})
	assert.Error(t, err)
	_, err = New(Options{Padding: "ansi"})
	assert.Error(t, err)
	_, err = New(Options{Workers: -1})
	assert.Error(t, err)
}

func TestCaesarShiftResolution(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CaesarRequest
		want string
	}{
		{name: "explicit shift", req: CaesarRequest{Text: "abc", Shift: intPtr(1)}, want: "bcd"},
		{name: "default shift", req: CaesarRequest{Text: "abc"}, want: "def"},
		{name: "envelope", req: CaesarRequest{Text: "abc", Key: json.RawMessage(`{"type":"caesar","shift":2}`)}, want: "cde"},
		{name: "pasted envelope", req: CaesarRequest{Text: "abc", Key: json.RawMessage(`"{\"type\":\"caesar\",\"shift\":4}"`)}, want: "efg"},
		{name: "bare number", req: CaesarRequest{Text: "abc", Key: json.RawMessage(`5`)}, want: "fgh"},
		{name: "null key uses default", req: CaesarRequest{Text: "abc", Key: json.RawMessage(`null`)}, want: "def"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.CaesarEncrypt(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Result)
		})
	}
}

func TestCaesarErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CaesarEncrypt(ctx, CaesarRequest{Text: "abc", Shift: intPtr(256)})
	assert.Equal(t, cipher.KindInvalidParameter, cipher.KindOf(err))

	_, err = svc.CaesarDecrypt(ctx, CaesarRequest{Text: ""})
	assert.Equal(t, cipher.KindInvalidParameter, cipher.KindOf(err))

	_, err = svc.CaesarDecrypt(ctx, CaesarRequest{Text: "abc", Key: json.RawMessage(`{"type":"des","key":"0"}`)})
	assert.Equal(t, cipher.KindInvalidKey, cipher.KindOf(err))

	_, err = svc.CaesarDecrypt(ctx, CaesarRequest{Text: "abc", Key: json.RawMessage(`"{not json"`)})
	assert.Equal(t, cipher.KindMalformedInput, cipher.KindOf(err))
}

func TestCaesarHighBytesRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	enc, err := svc.CaesarEncrypt(ctx, CaesarRequest{Text: "Hello, Wörld", Shift: intPtr(200)})
	require.NoError(t, err)

	// Simulate the client re-posting the JSON string it received.
	wire, err := json.Marshal(enc)
	require.NoError(t, err)
	var echoed TextResponse
	require.NoError(t, json.Unmarshal(wire, &echoed))

	dec, err := svc.CaesarDecrypt(ctx, CaesarRequest{Text: echoed.Result, Shift: intPtr(200)})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Wörld", dec.Result)
}

func TestCaesarAttack(t *testing.T) {
	svc, _ := newTestService(t)
	plain := "Defend the east wall of the castle against the attackers until the reinforcements arrive at dawn."
	enc, err := svc.CaesarEncrypt(context.Background(), CaesarRequest{Text: plain, Shift: intPtr(13)})
	require.NoError(t, err)

	resp, err := svc.CaesarAttack(context.Background(), AttackRequest{Text: enc.Result})
	require.NoError(t, err)
	require.Len(t, resp.Results, 256)
	for i, r := range resp.Results {
		require.Equal(t, i, r.Shift)
	}
	assert.Equal(t, 13, resp.BestShift)
	assert.Equal(t, plain, resp.Results[13].Decrypted)
}

func TestSubstitutionEncryptGeneratesKey(t *testing.T) {
	svc, generated := newTestService(t)
	ctx := context.Background()

	resp, err := svc.SubstitutionEncrypt(ctx, SubstitutionRequest{Text: "Attack at dawn!", SubstitutionKey: json.RawMessage(`null`)})
	require.NoError(t, err)
	assert.Len(t, resp.Key, 26)
	assert.Equal(t, []string{KindMonoalphabetic}, *generated)

	keyJSON, err := json.Marshal(resp.Key)
	require.NoError(t, err)
	dec, err := svc.SubstitutionDecrypt(ctx, SubstitutionRequest{Text: resp.Result, SubstitutionKey: keyJSON})
	require.NoError(t, err)
	assert.Equal(t, "Attack at dawn!", dec.Result)
}

func TestSubstitutionKeyVariants(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	variants := map[string]SubstitutionRequest{
		"mapping":         {Text: "abc", SubstitutionKey: json.RawMessage(`{"a":"x","b":"y"}`)},
		"alias field":     {Text: "abc", Key: json.RawMessage(`{"a":"x","b":"y"}`)},
		"envelope":        {Text: "abc", SubstitutionKey: json.RawMessage(`{"type":"monoalphabetic","key":{"a":"x","b":"y"}}`)},
		"pasted envelope": {Text: "abc", SubstitutionKey: json.RawMessage(`"{\"type\":\"monoalphabetic\",\"key\":{\"a\":\"x\",\"b\":\"y\"}}"`)},
		"pasted mapping":  {Text: "abc", SubstitutionKey: json.RawMessage(`"{\"a\":\"x\",\"b\":\"y\"}"`)},
	}
	for name, req := range variants {
		t.Run(name, func(t *testing.T) {
			resp, err := svc.SubstitutionEncrypt(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, "xyc", resp.Result)
			assert.Equal(t, map[string]string{"a": "x", "b": "y"}, resp.Key)
		})
	}
}

func TestSubstitutionKeyErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		want cipher.ErrorKind
	}{
		{"collision", `{"a":"x","b":"x"}`, cipher.KindInvalidKey},
		{"empty mapping", `{}`, cipher.KindInvalidKey},
		{"non-string target", `{"a":1}`, cipher.KindInvalidKey},
		{"array", `["a","b"]`, cipher.KindInvalidKey},
		{"wrong envelope", `{"type":"caesar","shift":3}`, cipher.KindInvalidKey},
		{"unparsable pasted key", `"{\"a\":"`, cipher.KindMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubstitutionEncrypt(ctx, SubstitutionRequest{Text: "abc", SubstitutionKey: json.RawMessage(tt.key)})
			assert.Equal(t, tt.want, cipher.KindOf(err))
		})
	}

	_, err := svc.SubstitutionDecrypt(ctx, SubstitutionRequest{Text: "abc"})
	assert.Equal(t, cipher.KindInvalidKey, cipher.KindOf(err))
}

func TestSubstitutionAttackIsAdvisory(t *testing.T) {
	svc, _ := newTestService(t)
	resp, err := svc.SubstitutionAttack(context.Background(), AttackRequest{Text: "Hello, hello!"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "leho", resp.Results[0].Frequencies)
	for _, r := range resp.Results {
		assert.Contains(t, r.Description, "no key has been recovered")
	}
	assert.Equal(t, 10, resp.TotalLetters)

	_, err = svc.SubstitutionAttack(context.Background(), AttackRequest{Text: "12345"})
	assert.Equal(t, cipher.KindInvalidParameter, cipher.KindOf(err))
}

func TestDESRoundTrip(t *testing.T) {
	svc, generated := newTestService(t)
	ctx := context.Background()

	enc, err := svc.DESEncrypt(ctx, DESEncryptRequest{Plaintext: "attack at dawn", Key: json.RawMessage(`""`)})
	require.NoError(t, err)
	assert.Len(t, enc.Key, 64)
	assert.Equal(t, []string{KindDES}, *generated)

	dec, err := svc.DESDecrypt(ctx, DESDecryptRequest{
		Ciphertext: strings.ToUpper(enc.Encrypted),
		Key:        json.RawMessage(`{"type":"des","key":"` + enc.Key + `"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "attack at dawn", dec.Decrypted)
}

func TestDESKnownKeyAndZeroPadding(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	key, err := json.Marshal(fipsKeyBits)
	require.NoError(t, err)
	enc, err := svc.DESEncrypt(ctx, DESEncryptRequest{Plaintext: "exactly8", Key: key, Padding: "zero"})
	require.NoError(t, err)
	assert.Len(t, enc.Encrypted, 16)
	assert.Equal(t, fipsKeyBits, enc.Key)

	dec, err := svc.DESDecrypt(ctx, DESDecryptRequest{Ciphertext: enc.Encrypted, Key: key, Padding: "zero"})
	require.NoError(t, err)
	assert.Equal(t, "exactly8", dec.Decrypted)
}

func TestDESErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	key, _ := json.Marshal(fipsKeyBits)

	_, err := svc.DESEncrypt(ctx, DESEncryptRequest{Plaintext: "", Key: key})
	assert.Equal(t, cipher.KindInvalidParameter, cipher.KindOf(err))

	_, err = svc.DESEncrypt(ctx, DESEncryptRequest{Plaintext: "x", Key: json.RawMessage(`"0101"`)})
	assert.Equal(t, cipher.KindInvalidKey, cipher.KindOf(err))

	_, err = svc.DESEncrypt(ctx, DESEncryptRequest{Plaintext: "x", Key: json.RawMessage(`42`)})
	assert.Equal(t, cipher.KindInvalidKey, cipher.KindOf(err))

	_, err = svc.DESDecrypt(ctx, DESDecryptRequest{Ciphertext: "00112233", Key: nil})
	assert.Equal(t, cipher.KindInvalidKey, cipher.KindOf(err))

	_, err = svc.DESDecrypt(ctx, DESDecryptRequest{Ciphertext: "zz", Key: key})
	assert.Equal(t, cipher.KindMalformedInput, cipher.KindOf(err))

	_, err = svc.DESDecrypt(ctx, DESDecryptRequest{Ciphertext: "0011223344", Key: key})
	assert.Equal(t, cipher.KindMalformedInput, cipher.KindOf(err))

	_, err = svc.DESDecrypt(ctx, DESDecryptRequest{Ciphertext: "0011223344556677", Key: key, Padding: "iso"})
	assert.Equal(t, cipher.KindInvalidParameter, cipher.KindOf(err))
}

func TestGenerateKey(t *testing.T) {
	svc, generated := newTestService(t)
	ctx := context.Background()

	caesar, err := svc.GenerateKey(ctx, GenerateKeyRequest{Cipher: "caesar"})
	require.NoError(t, err)
	require.NotNil(t, caesar.Shift)
	assert.GreaterOrEqual(t, *caesar.Shift, 0)
	assert.LessOrEqual(t, *caesar.Shift, 255)

	mono, err := svc.GenerateKey(ctx, GenerateKeyRequest{Cipher: "Substitution"})
	require.NoError(t, err)
	assert.Equal(t, KindMonoalphabetic, mono.Type)
	assert.Len(t, mono.Key, 26)

	des, err := svc.GenerateKey(ctx, GenerateKeyRequest{Cipher: "des"})
	require.NoError(t, err)
	bits, ok := des.Key.(string)
	require.True(t, ok)
	_, err = cipher.ParseDESKey(bits)
	require.NoError(t, err)

	assert.Equal(t, []string{KindCaesar, KindMonoalphabetic, KindDES}, *generated)

	_, err = svc.GenerateKey(ctx, GenerateKeyRequest{Cipher: "enigma"})
	assert.Equal(t, cipher.KindInvalidParameter, cipher.KindOf(err))
}

func TestGeneratedKeysRoundTripAsEnvelopes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	caesar, err := svc.GenerateKey(ctx, GenerateKeyRequest{Cipher: "caesar"})
	require.NoError(t, err)
	envelope, err := json.Marshal(caesar)
	require.NoError(t, err)
	enc, err := svc.CaesarEncrypt(ctx, CaesarRequest{Text: "hello", Key: envelope})
	require.NoError(t, err)
	dec, err := svc.CaesarDecrypt(ctx, CaesarRequest{Text: enc.Result, Key: envelope})
	require.NoError(t, err)
	assert.Equal(t, "hello", dec.Result)

	mono, err := svc.GenerateKey(ctx, GenerateKeyRequest{Cipher: "monoalphabetic"})
	require.NoError(t, err)
	envelope, err = json.Marshal(mono)
	require.NoError(t, err)
	monoEnc, err := svc.SubstitutionEncrypt(ctx, SubstitutionRequest{Text: "hello", SubstitutionKey: envelope})
	require.NoError(t, err)
	monoDec, err := svc.SubstitutionDecrypt(ctx, SubstitutionRequest{Text: monoEnc.Result, SubstitutionKey: envelope})
	require.NoError(t, err)
	assert.Equal(t, "hello", monoDec.Result)
}

func TestRunPipeline(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ops := []cipher.OperationConfig{
		{Name: "caesar_encrypt", Parameters: map[string]interface{}{"shift": float64(13)}},
		{Name: "des_encrypt", Parameters: map[string]interface{}{"key": fipsKeyBits}},
		{Name: "hex_encode"},
	}
	fwd, err := svc.RunPipeline(ctx, PipelineRequest{Input: "meet me later", Operations: ops})
	require.NoError(t, err)
	assert.Equal(t, []string{"caesar_encrypt", "des_encrypt", "hex_encode"}, fwd.Operations)

	back, err := svc.RunPipeline(ctx, PipelineRequest{Input: fwd.Output, Operations: ops, Reverse: true})
	require.NoError(t, err)
	assert.Equal(t, "meet me later", back.Output)
	assert.Equal(t, []string{"hex_decode", "des_decrypt", "caesar_decrypt"}, back.Operations)

	_, err = svc.RunPipeline(ctx, PipelineRequest{Input: "x"})
	assert.Equal(t, cipher.KindInvalidParameter, cipher.KindOf(err))
}

func TestOperations(t *testing.T) {
	svc, _ := newTestService(t)
	infos := svc.Operations()
	require.NotEmpty(t, infos)
	for _, info := range infos {
		assert.True(t, info.Reversible, info.Name)
	}
}

func TestCancelledContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CaesarAttack(ctx, AttackRequest{Text: "abc"})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.DESEncrypt(ctx, DESEncryptRequest{Plaintext: "abc"})
	assert.ErrorIs(t, err, context.Canceled)
}
