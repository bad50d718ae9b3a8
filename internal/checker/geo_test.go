package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/August26/tlsprobe-go/internal/logging"
	"github.com/August26/tlsprobe-go/internal/model"
)

func TestIPAPI_Country(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") != "zh-CN" {
			t.Errorf("missing lang query: %s", r.URL)
		}
		switch r.URL.Path {
		case "/json/1.1.1.1":
			w.Write([]byte(`{"status":"success","country":"澳大利亚"}`))
		case "/json/10.0.0.1":
			w.Write([]byte(`{"status":"fail","message":"private range"}`))
		case "/json/2.2.2.2":
			w.Write([]byte(`<html>rate limited</html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	g := NewIPAPI(srv.URL+"/json/%s?lang=zh-CN", 0, 0, logging.Discard())

	cases := map[string]string{
		"1.1.1.1":  "澳大利亚",
		"10.0.0.1": model.UnknownCountry, // non-success status
		"2.2.2.2":  model.UnknownCountry, // unparsable body
		"3.3.3.3":  model.UnknownCountry, // empty 404 body
	}
	for ip, want := range cases {
		if got := g.Country(context.Background(), ip); got != want {
			t.Fatalf("Country(%s) = %q, want %q", ip, got, want)
		}
	}
}

func TestIPAPI_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL + "/json/%s"
	srv.Close()

	g := NewIPAPI(url, 0, 0, logging.Discard())
	if got := g.Country(context.Background(), "1.1.1.1"); got != model.UnknownCountry {
		t.Fatalf("got %q, want unknown", got)
	}
}

func TestNewIPAPI_Limiter(t *testing.T) {
	if g := NewIPAPI("http://x/%s", 0, 0, logging.Discard()); g.Limiter != nil {
		t.Fatalf("limiter should be off by default")
	}
	if g := NewIPAPI("http://x/%s", 0, 45, logging.Discard()); g.Limiter == nil {
		t.Fatalf("limiter should be set")
	}
}

type countingEnricher struct {
	calls atomic.Int32
	label string
}

func (c *countingEnricher) Country(context.Context, string) string {
	c.calls.Add(1)
	return c.label
}

func TestCachedEnricher(t *testing.T) {
	inner := &countingEnricher{label: "日本"}
	c := NewCachedEnricher(inner, 0)

	for i := 0; i < 3; i++ {
		if got := c.Country(context.Background(), "1.0.0.1"); got != "日本" {
			t.Fatalf("got %q", got)
		}
	}
	if n := inner.calls.Load(); n != 1 {
		t.Fatalf("inner called %d times, want 1", n)
	}

	unknown := &countingEnricher{label: model.UnknownCountry}
	c = NewCachedEnricher(unknown, 0)
	c.Country(context.Background(), "1.0.0.1")
	c.Country(context.Background(), "1.0.0.1")
	if n := unknown.calls.Load(); n != 2 {
		t.Fatalf("unknown labels must not be cached, calls = %d", n)
	}
}

func TestOpenGeoIP2_Missing(t *testing.T) {
	if _, err := OpenGeoIP2(filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb"), "zh-CN"); err == nil {
		t.Fatalf("expected error for missing database")
	}
}
