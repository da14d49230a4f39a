package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-order-verify/core"
)

const maxWebhookBodyBytes = 2 << 20 // 2 MiB

// Processor is the ingestion surface the webhook route dispatches into.
type Processor interface {
	Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

// Server exposes the webhook intake over HTTP. Routes are deliberately few:
// the intake endpoint, liveness, metrics, and a development-only prune
// trigger.
type Server struct {
	cfg       core.Config
	processor Processor
	store     core.VerificationStore
	logger    core.Logger
	gatherer  prometheus.Gatherer

	httpServer *http.Server
}

func New(cfg core.Config, processor Processor, store core.VerificationStore, logger core.Logger) *Server {
	return &Server{
		cfg:       cfg,
		processor: processor,
		store:     store,
		logger:    logger,
		gatherer:  prometheus.DefaultGatherer,
	}
}

// WithGatherer overrides the metrics gatherer, used with a private registry.
func (s *Server) WithGatherer(gatherer prometheus.Gatherer) *Server {
	if s != nil && gatherer != nil {
		s.gatherer = gatherer
	}
	return s
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/orders", s.handleOrderWebhook)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	if !s.cfg.IsProduction() {
		mux.HandleFunc("POST /internal/verifications/prune", s.handlePrune)
	}
	return mux
}

// Run serves until the context is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	if s == nil || s.processor == nil {
		return fmt.Errorf("server: processor is required")
	}
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleOrderWebhook(w http.ResponseWriter, r *http.Request) {
	// The raw bytes feed signature verification; no decoding happens here.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		s.writeError(w, core.MapError(fmt.Errorf("server: read request body: %w", err)))
		return
	}

	result, err := s.processor.Process(r.Context(), core.InboundRequest{
		Headers: flattenRequestHeaders(r.Header),
		Body:    body,
	})
	if err != nil {
		mapped := core.MapError(err)
		status := mapped.Code
		if result.StatusCode != 0 {
			status = result.StatusCode
		}
		s.writeJSON(w, status, map[string]any{
			"error": map[string]any{
				"message":   mapped.Message,
				"text_code": mapped.TextCode,
			},
		})
		return
	}

	response := map[string]any{"status": "ok"}
	if outcome, ok := result.Metadata["outcome"]; ok {
		response["outcome"] = outcome
	}
	s.writeJSON(w, result.StatusCode, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": s.cfg.ServiceName,
	})
}

// handlePrune triggers one retention sweep inline. Development only; the
// queue worker owns this in production.
func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, core.MapError(fmt.Errorf("server: verification store is not configured")))
		return
	}
	window := s.cfg.RetentionWindow()
	if window <= 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"message": "retention is disabled"},
		})
		return
	}
	cutoff := time.Now().UTC().Add(-window)
	pruned, err := s.store.PruneTerminal(r.Context(), cutoff)
	if err != nil {
		s.writeError(w, core.MapError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"pruned": pruned,
		"cutoff": cutoff.Format(time.RFC3339),
	})
}

func (s *Server) writeError(w http.ResponseWriter, mapped *goerrors.Error) {
	if mapped == nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"message": "internal error"},
		})
		return
	}
	s.writeJSON(w, mapped.Code, map[string]any{
		"error": map[string]any{
			"message":   mapped.Message,
			"text_code": mapped.TextCode,
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && s.logger != nil {
		s.logger.Error("write response", "error", err.Error())
	}
}

func flattenRequestHeaders(headers http.Header) map[string]string {
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return flat
}
