package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/RowanDark/cipherlab/internal/cipher"
	"github.com/RowanDark/cipherlab/internal/observability/metrics"
)

// routes registers every endpoint. Monoalphabetic routes are also served
// under the shorter /mono prefix.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	s.handle(mux, "/", s.handleIndex)
	s.handle(mux, "/healthz", get(s, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	s.handle(mux, "/metrics", get(s, metrics.Handler().ServeHTTP))

	s.handle(mux, "/caesar/encrypt", post(s, s.svc.CaesarEncrypt))
	s.handle(mux, "/caesar/decrypt", post(s, s.svc.CaesarDecrypt))
	s.handle(mux, "/caesar/attack", post(s, s.svc.CaesarAttack))

	for _, prefix := range []string{"/monoalphabetic", "/mono"} {
		s.handle(mux, prefix+"/encrypt", post(s, s.svc.SubstitutionEncrypt))
		s.handle(mux, prefix+"/decrypt", post(s, s.svc.SubstitutionDecrypt))
		s.handle(mux, prefix+"/attack", post(s, s.svc.SubstitutionAttack))
	}

	s.handle(mux, "/encrypt", post(s, s.svc.DESEncrypt))
	s.handle(mux, "/decrypt", post(s, s.svc.DESDecrypt))

	s.handle(mux, "/keys/generate", post(s, s.svc.GenerateKey))
	s.handle(mux, "/operations", get(s, s.handleOperations))
	s.handle(mux, "/pipeline", post(s, s.svc.RunPipeline))
	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	s.endpoints[pattern] = struct{}{}
	mux.HandleFunc(pattern, h)
}

// post adapts a service call into a JSON POST handler.
func post[Req, Resp any](s *Server, call func(context.Context, Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var req Req
		if err := s.decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		resp, err := call(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, resp)
	}
}

func get(s *Server, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			s.methodNotAllowed(w, r, http.MethodGet)
			return
		}
		h(w, r)
	}
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, r, newStatusError(http.StatusMethodNotAllowed, kindMethodNotAllowed, "method %s not allowed, use %s", r.Method, allowed))
}

// decodeJSON reads one JSON object from the size-limited body.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooLarge):
			return newStatusError(http.StatusRequestEntityTooLarge, kindPayloadTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return cipher.MalformedInput("request body must be a JSON object")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return cipher.InvalidParameter("%s has the wrong type: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		default:
			return cipher.MalformedInput("invalid json: %v", err)
		}
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, r, newStatusError(http.StatusNotFound, kindNotFound, "no endpoint at %s", r.URL.Path))
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.methodNotAllowed(w, r, http.MethodGet)
		return
	}
	endpoints := make([]string, 0, len(s.endpoints))
	for p := range s.endpoints {
		if p != "/" {
			endpoints = append(endpoints, p)
		}
	}
	sort.Strings(endpoints)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":   "cipherlab cipher engine",
		"endpoints": endpoints,
	})
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"operations": s.svc.Operations()})
}
