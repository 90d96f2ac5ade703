// Package playground serves compile-and-run sessions over websockets and
// stores shared snippets.
package playground

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"koala/pkg/vm"
)

const maxSourceBytes = 1 << 20

// DefaultStepLimit bounds runs whose options set no step limit of their own.
const DefaultStepLimit = 5_000_000

type Server struct {
	mux    *http.ServeMux
	cache  *Cache
	store  *Store
	vmOpts []vm.Option
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithStore enables the snippet endpoints.
func WithStore(store *Store) ServerOption {
	return func(s *Server) { s.store = store }
}

// WithCache replaces the default compile cache.
func WithCache(cache *Cache) ServerOption {
	return func(s *Server) { s.cache = cache }
}

// WithVMOptions sets the options every run's machine is built with. They
// are applied after DefaultStepLimit, so a WithStepLimit here replaces it.
func WithVMOptions(opts ...vm.Option) ServerOption {
	return func(s *Server) { s.vmOpts = opts }
}

func New(opts ...ServerOption) *Server {
	s := &Server{mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewCache(256)
	}
	s.vmOpts = append([]vm.Option{vm.WithStepLimit(DefaultStepLimit)}, s.vmOpts...)

	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("POST /snippets", s.handleSaveSnippet)
	s.mux.HandleFunc("GET /snippets/{id}", s.handleGetSnippet)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	log.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rec.status).
		Dur("elapsed", time.Since(start)).
		Msg("request")
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("playground listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type sourceRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleSaveSnippet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "snippets are disabled")
		return
	}

	var req sourceRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSourceBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is empty")
		return
	}

	snip, err := s.store.Save(r.Context(), req.Source)
	if err != nil {
		log.Error().Err(err).Msg("save snippet")
		writeError(w, http.StatusInternalServerError, "could not save snippet")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":     snip.ID,
		"digest": snip.Digest,
	})
}

func (s *Server) handleGetSnippet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "snippets are disabled")
		return
	}

	snip, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, ErrSnippetNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("load snippet")
		writeError(w, http.StatusInternalServerError, "could not load snippet")
		return
	}

	writeJSON(w, http.StatusOK, snip)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("playground: %T cannot hijack", r.ResponseWriter)
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
