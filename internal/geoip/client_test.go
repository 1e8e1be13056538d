package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mainsite/internal/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.GeoIPConfig{Endpoint: serverURL, Timeout: time.Second})
}

func TestResolve_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/198.51.100.7" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","country":"United States","city":"Austin","zip":"73301","query":"198.51.100.7"}`))
	}))
	defer server.Close()

	data, err := newTestClient(server.URL).Resolve(context.Background(), "198.51.100.7")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if data.Country != "United States" || data.City != "Austin" || data.Zip != "73301" {
		t.Fatalf("unexpected data: %+v", data)
	}
	if data.Query != "198.51.100.7" {
		t.Fatalf("expected normalized query, got %q", data.Query)
	}
	if len(data.Raw) == 0 {
		t.Fatal("expected raw payload retained")
	}
}

func TestResolve_FailStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"private range","query":"10.0.0.1"}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Resolve(context.Background(), "10.0.0.1"); err == nil {
		t.Fatal("expected error for fail status")
	}
}

func TestResolve_HTTPErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Resolve(context.Background(), "198.51.100.7"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestResolve_UnreachableServiceIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	if _, err := newTestClient(server.URL).Resolve(context.Background(), "198.51.100.7"); err == nil {
		t.Fatal("expected error when service is down")
	}
}
