package httpfetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

func TestOpenStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "" {
			t.Errorf("unexpected Range header %q", r.Header.Get("Range"))
		}
		w.Write([]byte("track-bytes"))
	}))
	defer srv.Close()

	f := New(srv.Client())
	rc, err := f.Open(context.Background(), domain.Encoding{Itag: 22, URL: srv.URL})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if string(got) != "track-bytes" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestOpenRangeSetsHeader(t *testing.T) {
	var gotRange atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange.Store(r.Header.Get("Range"))
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("slice"))
	}))
	defer srv.Close()

	f := New(srv.Client())
	rc, err := f.OpenRange(context.Background(), domain.Encoding{URL: srv.URL}, 100, 199)
	if err != nil {
		t.Fatalf("OpenRange: %v", err)
	}
	rc.Close()

	if gotRange.Load() != "bytes=100-199" {
		t.Fatalf("expected bytes=100-199, got %v", gotRange.Load())
	}

	// Open-ended range.
	rc, err = f.OpenRange(context.Background(), domain.Encoding{URL: srv.URL}, 512, -1)
	if err != nil {
		t.Fatalf("OpenRange open-ended: %v", err)
	}
	rc.Close()
	if gotRange.Load() != "bytes=512-" {
		t.Fatalf("expected bytes=512-, got %v", gotRange.Load())
	}
}

func TestOpenExpiredURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := New(srv.Client())
	if _, err := f.Open(context.Background(), domain.Encoding{URL: srv.URL}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired url, got %v", err)
	}
}

func TestOpenDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(srv.Client())
	if _, err := f.Open(context.Background(), domain.Encoding{URL: srv.URL}); err == nil {
		t.Fatal("expected error for upstream 500")
	}
	if calls.Load() != 1 {
		t.Fatalf("open must make exactly one attempt, got %d", calls.Load())
	}
}
