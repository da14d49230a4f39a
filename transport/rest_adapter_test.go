package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-order-verify/core"
)

func TestRESTAdapterDo(t *testing.T) {
	var gotMethod, gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("X-Request-Id", "abc123")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"queued"}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	res, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  "post",
		URL:     server.URL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(`{"phone":"+919876543210"}`),
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %q", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	if gotBody != `{"phone":"+919876543210"}` {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status %d", res.StatusCode)
	}
	if string(res.Body) != `{"status":"queued"}` {
		t.Fatalf("unexpected response body %q", res.Body)
	}
	if res.Headers["X-Request-Id"] != "abc123" {
		t.Fatalf("unexpected headers %v", res.Headers)
	}
	if res.Metadata["kind"] != KindREST {
		t.Fatalf("unexpected metadata %v", res.Metadata)
	}
}

func TestRESTAdapterDefaultsToGet(t *testing.T) {
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	if _, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL}); err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotMethod != http.MethodGet {
		t.Fatalf("expected GET default, got %q", gotMethod)
	}
}

func TestRESTAdapterAppliesDefaultHeaders(t *testing.T) {
	var gotAuth, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.DefaultHeaders = map[string]string{
		"Authorization": "Bearer default",
		"User-Agent":    "orderverify/1.0",
	}
	_, err := adapter.Do(context.Background(), core.TransportRequest{
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer override"},
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotAuth != "Bearer override" {
		t.Fatalf("request headers must override defaults, got %q", gotAuth)
	}
	if gotAgent != "orderverify/1.0" {
		t.Fatalf("expected default header, got %q", gotAgent)
	}
}

func TestRESTAdapterRejectsEmptyURL(t *testing.T) {
	adapter := NewRESTAdapter(nil)
	if _, err := adapter.Do(context.Background(), core.TransportRequest{URL: "   "}); err == nil {
		t.Fatalf("expected invalid url error")
	}
}

func TestRESTAdapterEnforcesBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("x", 512))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 128
	if _, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL}); err == nil {
		t.Fatalf("expected body limit error")
	}
}

func TestRESTAdapterHonorsRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	_, err := adapter.Do(context.Background(), core.TransportRequest{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestRESTAdapterRequiresClient(t *testing.T) {
	adapter := &RESTAdapter{}
	if _, err := adapter.Do(context.Background(), core.TransportRequest{URL: "https://example.com"}); err == nil {
		t.Fatalf("expected missing client error")
	}
}
