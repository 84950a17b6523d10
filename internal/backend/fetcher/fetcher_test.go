package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetch_Success(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("%PDF-1.4 body"))
	}))
	defer server.Close()

	body, err := NewFetcher(DefaultConfig()).Fetch(context.Background(), server.URL+"/doc.pdf")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(body) != "%PDF-1.4 body" {
		t.Errorf("Unexpected body %q", body)
	}
	if gotAgent != DefaultUserAgent {
		t.Errorf("Expected User-Agent %q, got %q", DefaultUserAgent, gotAgent)
	}
}

func TestFetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	body, err := NewFetcher(Config{}).Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(body) != "moved" {
		t.Errorf("Unexpected body %q", body)
	}
}

func TestFetch_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/large":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		}
	}))
	defer server.Close()

	tests := []struct {
		name       string
		url        string
		wantStatus int
		transient  bool
		wantErr    error
	}{
		{name: "not found", url: server.URL + "/missing", wantStatus: http.StatusNotFound},
		{name: "server error", url: server.URL + "/broken", wantStatus: http.StatusBadGateway, transient: true},
		{name: "too large", url: server.URL + "/large", wantErr: ErrBodyTooLarge},
		{name: "invalid url", url: "://nope"},
	}

	fetcher := NewFetcher(Config{MaxBytes: 16})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fetcher.Fetch(context.Background(), tt.url)
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("Expected *FetchError, got %v", err)
			}
			if fetchErr.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, fetchErr.StatusCode)
			}
			if fetchErr.IsTransient() != tt.transient {
				t.Errorf("Expected transient=%v", tt.transient)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if fetchErr.URL != tt.url {
				t.Errorf("Expected URL %s, got %s", tt.url, fetchErr.URL)
			}
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewFetcher(Config{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), server.URL)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %v", err)
	}
	if !fetchErr.IsTransient() {
		t.Errorf("Expected timeout to be transient, got %v", err)
	}
}

func TestFetch_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := NewFetcher(DefaultConfig()).Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single request, got %d", calls.Load())
	}
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := NewFetcher(Config{Retries: 2, RetryBackoff: time.Millisecond})
	body, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(body) != "ok" || calls.Load() != 3 {
		t.Errorf("Expected body ok after 3 calls, got %q after %d", body, calls.Load())
	}
}

func TestFetch_DoesNotRetryPermanentFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := NewFetcher(Config{Retries: 3, RetryBackoff: time.Millisecond})
	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single request for a permanent failure, got %d", calls.Load())
	}
}
