package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-order-verify/core"
)

type stubProcessor struct {
	result core.InboundResult
	err    error

	requests []core.InboundRequest
}

func (p *stubProcessor) Process(_ context.Context, req core.InboundRequest) (core.InboundResult, error) {
	p.requests = append(p.requests, req)
	return p.result, p.err
}

type stubPruneStore struct {
	pruned   int
	pruneErr error

	before time.Time
}

func (s *stubPruneStore) FindBySourceOrderID(context.Context, string) (core.VerificationRecord, bool, error) {
	return core.VerificationRecord{}, false, nil
}

func (s *stubPruneStore) CreateIfAbsent(context.Context, core.CreateVerificationInput) (core.VerificationRecord, bool, error) {
	return core.VerificationRecord{}, false, nil
}

func (s *stubPruneStore) UpdateStatus(context.Context, string, core.VerificationStatus) (core.VerificationRecord, error) {
	return core.VerificationRecord{}, core.ErrVerificationNotFound
}

func (s *stubPruneStore) PruneTerminal(_ context.Context, before time.Time) (int, error) {
	s.before = before
	return s.pruned, s.pruneErr
}

func devConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.Webhook.Secret = "shh"
	cfg.Notifier.URL = "https://wa.example.com/send"
	return cfg
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestServerWebhookAccepted(t *testing.T) {
	processor := &stubProcessor{result: core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Metadata:   map[string]any{"outcome": "notified"},
	}}
	srv := New(devConfig(), processor, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/orders", bytes.NewReader([]byte(`{"id": 1}`)))
	req.Header.Set("X-Shopify-Hmac-Sha256", "sig")
	res := httptest.NewRecorder()
	srv.Routes().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["status"] != "ok" || body["outcome"] != "notified" {
		t.Fatalf("unexpected body %v", body)
	}

	if len(processor.requests) != 1 {
		t.Fatalf("expected one processed request")
	}
	inbound := processor.requests[0]
	if inbound.Headers["X-Shopify-Hmac-Sha256"] != "sig" {
		t.Fatalf("headers must reach the processor, got %v", inbound.Headers)
	}
	if string(inbound.Body) != `{"id": 1}` {
		t.Fatalf("raw body must reach the processor, got %q", inbound.Body)
	}
}

func TestServerWebhookRejectedSignature(t *testing.T) {
	processor := &stubProcessor{
		result: core.InboundResult{StatusCode: http.StatusUnauthorized},
		err: goerrors.New("webhooks: signature mismatch", goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode(core.ErrorUnauthorized),
	}
	srv := New(devConfig(), processor, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/orders", bytes.NewReader([]byte("{}")))
	res := httptest.NewRecorder()
	srv.Routes().ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", res.Code)
	}
	body := decodeBody(t, res)
	errBody, ok := body["error"].(map[string]any)
	if !ok || errBody["text_code"] != core.ErrorUnauthorized {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestServerWebhookPersistenceFault(t *testing.T) {
	processor := &stubProcessor{
		result: core.InboundResult{StatusCode: http.StatusInternalServerError},
		err: goerrors.New("store: connection refused", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.ErrorPersistenceFailed),
	}
	srv := New(devConfig(), processor, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/orders", bytes.NewReader([]byte("{}")))
	res := httptest.NewRecorder()
	srv.Routes().ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", res.Code)
	}
}

func TestServerHealth(t *testing.T) {
	srv := New(devConfig(), &stubProcessor{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()
	srv.Routes().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestServerMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	srv := New(devConfig(), &stubProcessor{}, nil, nil).WithGatherer(registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	res := httptest.NewRecorder()
	srv.Routes().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", res.Code)
	}
}

func TestServerPruneRoute(t *testing.T) {
	store := &stubPruneStore{pruned: 4}
	srv := New(devConfig(), &stubProcessor{}, store, nil)

	req := httptest.NewRequest(http.MethodPost, "/internal/verifications/prune", nil)
	res := httptest.NewRecorder()
	srv.Routes().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["pruned"] != float64(4) {
		t.Fatalf("unexpected body %v", body)
	}
	if store.before.IsZero() {
		t.Fatalf("expected a prune cutoff")
	}
}

func TestServerPruneRouteAbsentInProduction(t *testing.T) {
	cfg := devConfig()
	cfg.Environment = core.EnvironmentProduction
	srv := New(cfg, &stubProcessor{}, &stubPruneStore{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/internal/verifications/prune", nil)
	res := httptest.NewRecorder()
	srv.Routes().ServeHTTP(res, req)

	if res.Code == http.StatusOK {
		t.Fatalf("prune route must not exist in production")
	}
}

func TestServerPruneRouteWithRetentionDisabled(t *testing.T) {
	cfg := devConfig()
	cfg.Retention.Days = 0
	srv := New(cfg, &stubProcessor{}, &stubPruneStore{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/internal/verifications/prune", nil)
	res := httptest.NewRecorder()
	srv.Routes().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for disabled retention, got %d", res.Code)
	}
}
