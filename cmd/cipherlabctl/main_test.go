package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/RowanDark/cipherlab/internal/api"
	"github.com/RowanDark/cipherlab/internal/service"
)

func startAPI(t *testing.T) string {
	t.Helper()
	svc, err := service.New(service.Options{DefaultShift: 3})
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}
	server, err := api.NewServer(api.Config{Addr: "127.0.0.1:0", Service: svc})
	if err != nil {
		t.Fatalf("api.NewServer: %v", err)
	}
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunRequiresCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "")
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(stderr, "usage") {
		t.Fatalf("expected usage on stderr, got %q", stderr)
	}
}

func TestUnknownCommand(t *testing.T) {
	if code, _, _ := runCLI(t, "", "rot13"); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestCaesarEncryptDecrypt(t *testing.T) {
	url := startAPI(t)

	code, out, stderr := runCLI(t, "", "-server", url, "caesar", "encrypt", "-shift", "1", "-text", "abc")
	if code != 0 {
		t.Fatalf("encrypt failed (%d): %s", code, stderr)
	}
	if strings.TrimSpace(out) != "bcd" {
		t.Fatalf("expected bcd, got %q", out)
	}

	code, out, stderr = runCLI(t, "bcd\n", "-server", url, "caesar", "decrypt", "-shift", "1")
	if code != 0 {
		t.Fatalf("decrypt failed (%d): %s", code, stderr)
	}
	if strings.TrimSpace(out) != "abc" {
		t.Fatalf("expected abc, got %q", out)
	}
}

func TestCaesarAttackPrintsBestFirst(t *testing.T) {
	url := startAPI(t)
	code, enc, stderr := runCLI(t, "", "-server", url, "caesar", "encrypt", "-shift", "13",
		"Defend the east wall of the castle and there was a great deal of money in the bank")
	if code != 0 {
		t.Fatalf("encrypt failed (%d): %s", code, stderr)
	}

	code, out, stderr := runCLI(t, strings.TrimRight(enc, "\n"), "-server", url, "caesar", "attack", "-top", "3")
	if code != 0 {
		t.Fatalf("attack failed (%d): %s", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 candidates, got %q", out)
	}
	if lines[0] != "best shift: 13" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[1]), "13 ") {
		t.Fatalf("expected shift 13 first, got %q", lines[1])
	}
}

func TestMonoRoundTripWithGeneratedKey(t *testing.T) {
	url := startAPI(t)

	code, out, stderr := runCLI(t, "", "-server", url, "-json", "mono", "encrypt", "-text", "hello there")
	if code != 0 {
		t.Fatalf("encrypt failed (%d): %s", code, stderr)
	}
	ciphertext := gjson.Get(out, "result").String()
	key := gjson.Get(out, "key").Raw
	if ciphertext == "" || key == "" {
		t.Fatalf("unexpected encrypt output %q", out)
	}

	code, out, stderr = runCLI(t, "", "-server", url, "mono", "decrypt", "-key", key, "-text", ciphertext)
	if code != 0 {
		t.Fatalf("decrypt failed (%d): %s", code, stderr)
	}
	if strings.TrimSpace(out) != "hello there" {
		t.Fatalf("expected round trip, got %q", out)
	}
}

func TestMonoRejectsInvalidKeyJSON(t *testing.T) {
	url := startAPI(t)
	if code, _, _ := runCLI(t, "", "-server", url, "mono", "decrypt", "-key", "{not json", "-text", "abc"); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestServerErrorIsReported(t *testing.T) {
	url := startAPI(t)
	code, _, stderr := runCLI(t, "", "-server", url, "mono", "decrypt", "-key", `{"a":"x","b":"x"}`, "-text", "abc")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, "invalid_key") || !strings.Contains(stderr, "HTTP 422") {
		t.Fatalf("expected kind and status in error, got %q", stderr)
	}
}

func TestDESGeneratedKeyRoundTrip(t *testing.T) {
	url := startAPI(t)

	code, out, stderr := runCLI(t, "", "-server", url, "des", "encrypt", "-text", "des via cli")
	if code != 0 {
		t.Fatalf("encrypt failed (%d): %s", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "key: ") {
		t.Fatalf("unexpected encrypt output %q", out)
	}
	key := strings.TrimPrefix(lines[1], "key: ")

	code, out, stderr = runCLI(t, "", "-server", url, "des", "decrypt", "-key", key, lines[0])
	if code != 0 {
		t.Fatalf("decrypt failed (%d): %s", code, stderr)
	}
	if strings.TrimSpace(out) != "des via cli" {
		t.Fatalf("expected round trip, got %q", out)
	}
}

func TestDESDecryptRequiresKey(t *testing.T) {
	if code, _, _ := runCLI(t, "", "des", "decrypt", "-text", "00"); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestKeysGenerate(t *testing.T) {
	url := startAPI(t)
	code, out, stderr := runCLI(t, "", "-server", url, "keys", "generate", "monoalphabetic")
	if code != 0 {
		t.Fatalf("keys generate failed (%d): %s", code, stderr)
	}
	if gjson.Get(out, "type").String() != "monoalphabetic" {
		t.Fatalf("unexpected envelope %q", out)
	}
	if n := len(gjson.Get(out, "key").Map()); n != 26 {
		t.Fatalf("expected 26 mappings, got %d", n)
	}
}

func TestOpsAndPipeline(t *testing.T) {
	url := startAPI(t)

	code, out, stderr := runCLI(t, "", "-server", url, "ops")
	if code != 0 {
		t.Fatalf("ops failed (%d): %s", code, stderr)
	}
	if !strings.Contains(out, "hex_encode") {
		t.Fatalf("expected hex_encode in list, got %q", out)
	}

	ops := `[{"name":"caesar_encrypt","parameters":{"shift":1}},{"name":"hex_encode"}]`
	code, out, stderr = runCLI(t, "", "-server", url, "pipeline", "-ops", ops, "-text", "abc")
	if code != 0 {
		t.Fatalf("pipeline failed (%d): %s", code, stderr)
	}
	if strings.TrimSpace(out) != "626364" {
		t.Fatalf("expected 626364, got %q", out)
	}

	code, out, stderr = runCLI(t, "", "-server", url, "pipeline", "-reverse", "-ops", ops, "-text", "626364")
	if code != 0 {
		t.Fatalf("reverse pipeline failed (%d): %s", code, stderr)
	}
	if strings.TrimSpace(out) != "abc" {
		t.Fatalf("expected abc, got %q", out)
	}
}
