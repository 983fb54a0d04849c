// Package cipher implements the classical and block ciphers served by
// cipherlab, together with the cryptanalysis helpers used by the attack
// endpoints.
//
// # Ciphers
//
// Every cipher works on bytes:
//   - Caesar shifts each byte by a shift in 0..255, modulo 256.
//   - Substitution replaces letters through an injective SubstitutionKey,
//     keeping their case. Other bytes pass through.
//   - DES is FIPS 46-3 in ECB mode. Plaintext is padded with PKCS#7 unless
//     zero padding is requested.
//
// Basic use:
//
//	key, _ := cipher.ParseDESKey("0001001100110100010101110111100110011011101111001101111111110001")
//	ct, _ := cipher.DESEncrypt([]byte("attack at dawn"), key, cipher.PaddingPKCS7)
//	pt, _ := cipher.DESDecrypt(ct, key, cipher.PaddingPKCS7)
//
// # Cryptanalysis
//
// CaesarBruteForce tries all 256 shifts and scores each with ScoreEnglish;
// BestCandidate picks the most plausible. AnalyzeFrequencies produces the
// letter and bigram histogram used against substitution ciphertexts. It does
// not recover a key.
//
// # Keys
//
// KeyGenerator draws shifts, substitution permutations and odd-parity DES
// keys from crypto/rand.
//
// # Pipelines
//
// Operations are registered by name and can be chained:
//
//	pipeline := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: "caesar_encrypt", Parameters: map[string]interface{}{"shift": 3}},
//	        {Name: "hex_encode"},
//	    },
//	}
//	encoded, _ := pipeline.Execute(ctx, []byte("test"))
//	reversed, _ := pipeline.Reverse()
//	decoded, _ := reversed.Execute(ctx, encoded)
//
// # Errors
//
// Failures wrap ErrInvalidParameter, ErrInvalidKey or ErrMalformedInput;
// KindOf maps an error to its wire kind.
package cipher
