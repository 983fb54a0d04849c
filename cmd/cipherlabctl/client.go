package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// apiError is a non-200 reply decoded from the {error, kind} body.
type apiError struct {
	status  int
	kind    string
	message string
}

func (e *apiError) Error() string {
	if e.kind != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.message, e.kind, e.status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.message, e.status)
}

func (g *globals) do(method, path, body string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.server+path, reader)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	out := string(data)
	if resp.StatusCode != http.StatusOK {
		msg := gjson.Get(out, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(out)
		}
		return "", &apiError{status: resp.StatusCode, kind: gjson.Get(out, "kind").String(), message: msg}
	}
	if !gjson.Valid(out) {
		return "", fmt.Errorf("server returned invalid JSON")
	}
	return out, nil
}

func (g *globals) post(path, body string) (string, error) {
	return g.do(http.MethodPost, path, body)
}

func (g *globals) get(path string) (string, error) {
	return g.do(http.MethodGet, path, "")
}

// emit prints the whole response when -json is set and reports whether it
// did so.
func (g *globals) emit(body string) bool {
	if !g.raw {
		return false
	}
	fmt.Fprint(g.stdout, gjson.Get(body, "@pretty").String())
	return true
}

func (g *globals) fail(err error) int {
	fmt.Fprintf(g.stderr, "error: %v\n", err)
	return 1
}
