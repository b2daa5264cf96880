package jamendo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"earshot/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := New("cid", time.Second)
	client.baseURL = server.URL
	return client
}

func TestSearchParsesTracks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("client_id"); got != "cid" {
			t.Errorf("client_id = %q", got)
		}
		w.Write([]byte(`{"results": [
			{"id": "j1", "name": "Good News", "artist_name": "Indie Band", "duration": 210,
			 "audio": "https://stream.example/j1", "audiodownload": "https://dl.example/j1.mp3"},
			{"id": "j2", "name": "Stream Only", "artist_name": "Indie Band", "duration": 190,
			 "audio": "https://stream.example/j2", "audiodownload": ""}
		]}`))
	})

	candidates, err := client.Search(context.Background(), "Good News", 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}
	if candidates[0].URL != "https://dl.example/j1.mp3" {
		t.Fatalf("download url preferred over stream: %q", candidates[0].URL)
	}
	if candidates[1].URL != "https://stream.example/j2" {
		t.Fatalf("stream url fallback: %q", candidates[1].URL)
	}
	if !candidates[0].Retrievable() {
		t.Fatal("jamendo candidates must be audio-retrievable")
	}
}

func TestSearchMissingClientID(t *testing.T) {
	client := New("", time.Second)
	_, err := client.Search(context.Background(), "anything", 5)
	if !services.IsCode(err, services.CodeAuthMissing) {
		t.Fatalf("expected AUTH_MISSING, got %v", err)
	}
}

func TestSearchStatusMapping(t *testing.T) {
	cases := []struct {
		status   int
		wantCode string
	}{
		{http.StatusUnauthorized, services.CodeAuthFailed},
		{http.StatusTooManyRequests, services.CodeRateLimited},
		{http.StatusBadGateway, services.CodeProviderQueryFailed},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := client.Search(context.Background(), "anything", 5)
		if !services.IsCode(err, tc.wantCode) {
			t.Fatalf("status %d: expected %s, got %v", tc.status, tc.wantCode, err)
		}
	}
}
