package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"earshot/internal/services"
)

func newTestClient(t *testing.T, tokenHandler, searchHandler http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", tokenHandler)
	mux.HandleFunc("/search", searchHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := New("id", "secret", "US", time.Second)
	client.tokenURL = server.URL + "/api/token"
	client.apiURL = server.URL
	return client
}

func tokenOK(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != "id" || pass != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Write([]byte(`{"access_token": "tok", "expires_in": 3600}`))
}

func TestSearchParsesTracks(t *testing.T) {
	client := newTestClient(t, tokenOK, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.URL.Query().Get("market"); got != "US" {
			t.Errorf("market = %q", got)
		}
		w.Write([]byte(`{"tracks": {"items": [
			{"id": "t1", "name": "Good News", "duration_ms": 342000,
			 "artists": [{"name": "Mac Miller"}],
			 "external_urls": {"spotify": "https://open.spotify.com/track/t1"}}
		]}}`))
	})

	candidates, err := client.Search(context.Background(), "Mac Miller Good News", 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	c := candidates[0]
	if c.SourceID != "t1" || c.ArtistGuess != "Mac Miller" || c.DurationSec != 342 {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if c.Retrievable() {
		t.Fatal("spotify candidates must be metadata-only")
	}
}

func TestSearchMissingCredentials(t *testing.T) {
	client := New("", "", "US", time.Second)
	_, err := client.Search(context.Background(), "anything", 5)
	if !services.IsCode(err, services.CodeAuthMissing) {
		t.Fatalf("expected AUTH_MISSING, got %v", err)
	}
}

func TestSearchAuthFailed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, func(http.ResponseWriter, *http.Request) {})
	_, err := client.Search(context.Background(), "anything", 5)
	if !services.IsCode(err, services.CodeAuthFailed) {
		t.Fatalf("expected AUTH_FAILED, got %v", err)
	}
}

func TestSearchRateLimited(t *testing.T) {
	client := newTestClient(t, tokenOK, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := client.Search(context.Background(), "anything", 5)
	if !services.IsCode(err, services.CodeRateLimited) {
		t.Fatalf("expected RATE_LIMITED, got %v", err)
	}
}

func TestTokenIsCachedAcrossSearches(t *testing.T) {
	var tokenCalls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		tokenOK(w, r)
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tracks": {"items": []}}`))
	})

	for i := 0; i < 3; i++ {
		if _, err := client.Search(context.Background(), "anything", 5); err != nil {
			t.Fatalf("Search %d returned error: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Fatalf("token endpoint called %d times, want 1", got)
	}
}
