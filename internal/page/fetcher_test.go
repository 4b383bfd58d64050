package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const loginHTML = `<!doctype html><html><head><title>Verify your account</title></head>
<body>
<form action="/do"><input name="user"><input type="password" name="pw"></form>
<form action="/search"><input name="q"></form>
</body></html>`

func TestFetch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "phishscan-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(loginHTML))
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"form":"<form>"}`))
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<form></form>" + strings.Repeat("x", 100)))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte(`<form><input type="password"></form>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := NewFetcher(srv.Client(), WithUserAgent("phishscan-test"))
	ctx := context.Background()

	t.Run("html page", func(t *testing.T) {
		t.Parallel()

		p, err := f.Fetch(ctx, srv.URL+"/login")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if p.StatusCode != http.StatusOK || p.Title != "Verify your account" {
			t.Errorf("page = %+v", p)
		}
		if p.FormCount != 2 || !p.HasPasswordInput {
			t.Errorf("signals = %+v", Signals(p))
		}
		if p.Hash == "" || p.Truncated {
			t.Errorf("hash = %q truncated = %v", p.Hash, p.Truncated)
		}
	})

	t.Run("redirect records final URL", func(t *testing.T) {
		t.Parallel()

		p, err := f.Fetch(ctx, srv.URL+"/redirect")
		if err != nil {
			t.Fatal(err)
		}
		if p.URL != srv.URL+"/redirect" || p.FinalURL != srv.URL+"/login" {
			t.Errorf("URL = %s FinalURL = %s", p.URL, p.FinalURL)
		}
	})

	t.Run("non-html is not parsed", func(t *testing.T) {
		t.Parallel()

		p, err := f.Fetch(ctx, srv.URL+"/json")
		if err != nil {
			t.Fatal(err)
		}
		if p.FormCount != 0 {
			t.Errorf("FormCount = %d, want 0 for JSON", p.FormCount)
		}
	})

	t.Run("body limit", func(t *testing.T) {
		t.Parallel()

		small := NewFetcher(srv.Client(), WithMaxBodySize(20))
		p, err := small.Fetch(ctx, srv.URL+"/big")
		if err != nil {
			t.Fatal(err)
		}
		if !p.Truncated || len(p.Raw) != 20 {
			t.Errorf("Truncated = %v len = %d, want true and 20", p.Truncated, len(p.Raw))
		}
		if p.FormCount != 1 {
			t.Errorf("FormCount = %d, want 1", p.FormCount)
		}
	})

	t.Run("error status is still a page", func(t *testing.T) {
		t.Parallel()

		p, err := f.Fetch(ctx, srv.URL+"/gone")
		if err != nil {
			t.Fatal(err)
		}
		if p.StatusCode != http.StatusGone || !p.HasPasswordInput {
			t.Errorf("page = %+v", p)
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		t.Parallel()

		if _, err := f.Fetch(ctx, "ftp://example.com/file"); !errors.Is(err, ErrUnsupportedScheme) {
			t.Errorf("Fetch() error = %v, want ErrUnsupportedScheme", err)
		}
	})
}

func TestFetchOnion(t *testing.T) {
	t.Parallel()

	const valid = "http://duckduckgogg42xjoc72x3sjasowoarfbgcmvfimaftt6twagswzczad.onion/"

	t.Run("requires Tor", func(t *testing.T) {
		t.Parallel()

		if _, err := NewFetcher(nil).Fetch(context.Background(), valid); !errors.Is(err, ErrOnionWithoutTor) {
			t.Errorf("Fetch() error = %v, want ErrOnionWithoutTor", err)
		}
	})

	t.Run("rejects bad checksum before dialing", func(t *testing.T) {
		t.Parallel()

		called := false
		client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("unexpected request")
		})}
		_, err := NewFetcher(client, WithTor(true)).Fetch(context.Background(),
			"http://duckduckgogg42xjoc72x3sjasowoarfbgcmvfimaftt6twagswzczae.onion/")
		if !errors.Is(err, ErrInvalidOnionAddress) {
			t.Errorf("Fetch() error = %v, want ErrInvalidOnionAddress", err)
		}
		if called {
			t.Error("request was sent for an invalid address")
		}
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestSignalsNil(t *testing.T) {
	t.Parallel()

	if s := Signals(nil); s.FormCount != 0 || s.HasPasswordInput {
		t.Errorf("Signals(nil) = %+v", s)
	}
}
