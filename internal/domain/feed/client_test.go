package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	platformerrors "retrocast-server-go/internal/platform/errors"
)

func TestClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("payload"))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(2 * time.Second)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		data, err := client.Fetch(ctx, server.URL+"/ok")
		if err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
		if string(data) != "payload" {
			t.Errorf("body = %q", data)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.Fetch(ctx, server.URL+"/missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if !platformerrors.IsKind(err, platformerrors.KindFetch) {
			t.Errorf("expected fetch kind, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		_, err := client.Fetch(ctx, server.URL+"/broken")
		if !errors.Is(err, ErrServer) {
			t.Errorf("expected ErrServer, got %v", err)
		}
	})

	t.Run("network error", func(t *testing.T) {
		_, err := client.Fetch(ctx, "http://127.0.0.1:1/unreachable")
		if !errors.Is(err, ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})
}

func TestClientFetchHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Fetch(ctx, server.URL)
	if err == nil {
		t.Fatal("expected error when context expires")
	}
}
