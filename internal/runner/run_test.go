package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/August26/tlsprobe-go/internal/checker"
	"github.com/August26/tlsprobe-go/internal/logging"
	"github.com/August26/tlsprobe-go/internal/model"
)

type stubLookuper map[string][]string

func (s stubLookuper) LookupA(_ context.Context, host string) ([]string, error) {
	if ips, ok := s[host]; ok {
		return ips, nil
	}
	return nil, errors.New("no such host")
}

type stubProber struct {
	mu      sync.Mutex
	latency map[string]int64
	probes  map[string]int
}

func (s *stubProber) Probe(_ context.Context, t model.Target) model.ProbeOutcome {
	s.mu.Lock()
	s.probes[t.Key()]++
	s.mu.Unlock()
	if lat, ok := s.latency[t.Address]; ok {
		return model.ProbeOutcome{Success: true, LatencyMs: lat}
	}
	return model.ProbeOutcome{Success: false, Error: checker.TimeoutReason}
}

type stubEnricher map[string]string

func (s stubEnricher) Country(_ context.Context, ip string) string {
	if c, ok := s[ip]; ok {
		return c
	}
	return model.UnknownCountry
}

func setup(t *testing.T, input string) model.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.InputFile = filepath.Join(dir, "domain.txt")
	cfg.ResultFile = filepath.Join(dir, "result.txt")
	cfg.ProxyFile = filepath.Join(dir, "proxy.txt")
	cfg.GeoMaxDelayMs = 0
	if err := os.WriteFile(cfg.InputFile, []byte(input), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := setup(t, "1.1.1.1\n# comment\n\nbad..domain\na.example\nb.example\ndead.example\n")
	prober := &stubProber{
		latency: map[string]int64{"1.1.1.1": 150, "2.2.2.2": 20},
		probes:  map[string]int{},
	}
	deps := Deps{
		Lookuper: stubLookuper{
			"a.example":    {"2.2.2.2"},
			"b.example":    {"2.2.2.2"},
			"dead.example": {"9.9.9.9"},
		},
		Prober:   prober,
		Enricher: stubEnricher{"1.1.1.1": "澳大利亚"},
	}

	rep, err := Run(context.Background(), cfg, deps, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// a.example and b.example share an address: one probe only
	if n := prober.probes["2.2.2.2:443"]; n != 1 {
		t.Fatalf("2.2.2.2 probed %d times", n)
	}
	if len(prober.probes) != 3 {
		t.Fatalf("expected 3 unique probes, got %v", prober.probes)
	}

	a, _ := os.ReadFile(cfg.ResultFile)
	b, _ := os.ReadFile(cfg.ProxyFile)
	if want := "2.2.2.2#unknown 20ms\n1.1.1.1#澳大利亚 150ms"; string(a) != want {
		t.Fatalf("result.txt = %q want %q", a, want)
	}
	if want := "2.2.2.2\n1.1.1.1"; string(b) != want {
		t.Fatalf("proxy.txt = %q want %q", b, want)
	}

	s := rep.Stats
	if s.Entries != 5 || s.Targets != 4 || s.UniqueTargets != 3 || s.Alive != 2 {
		t.Fatalf("bad stats: %#v", s)
	}
}

func TestRun_MissingInputIsFatal(t *testing.T) {
	cfg := model.DefaultConfig()
	dir := t.TempDir()
	cfg.InputFile = filepath.Join(dir, "missing.txt")
	cfg.ResultFile = filepath.Join(dir, "result.txt")

	if _, err := Run(context.Background(), cfg, Deps{}, logging.Discard()); err == nil {
		t.Fatalf("expected error, got nil")
	}
	if _, err := os.Stat(cfg.ResultFile); !os.IsNotExist(err) {
		t.Fatalf("no output should be written")
	}
}

func TestRun_EmptyInputWritesNothing(t *testing.T) {
	cfg := setup(t, "# only comments\n\n")
	rep, err := Run(context.Background(), cfg, Deps{}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rep.Stats.Entries != 0 {
		t.Fatalf("expected empty report, got %#v", rep)
	}
	if _, err := os.Stat(cfg.ResultFile); !os.IsNotExist(err) {
		t.Fatalf("result file should not exist")
	}
}

func TestRun_WriteFailureKeepsResults(t *testing.T) {
	cfg := setup(t, "1.1.1.1\n")
	cfg.ResultFile = filepath.Join(t.TempDir(), "no", "such", "dir", "result.txt")
	deps := Deps{
		Lookuper: stubLookuper{},
		Prober:   &stubProber{latency: map[string]int64{"1.1.1.1": 5}, probes: map[string]int{}},
		Enricher: stubEnricher{},
	}

	rep, err := Run(context.Background(), cfg, deps, logging.Discard())
	if err != nil {
		t.Fatalf("write failure must not fail the run: %v", err)
	}
	if len(rep.Results) != 1 || rep.Results[0].Country != model.UnknownCountry {
		t.Fatalf("bad results: %#v", rep.Results)
	}
}

func TestNewDeps(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Nameservers = []string{"127.0.0.1:53"}
	deps, err := NewDeps(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	defer deps.Close()
	if deps.Lookuper == nil || deps.Prober == nil || deps.Enricher == nil {
		t.Fatalf("incomplete deps: %#v", deps)
	}

	cfg.GeoIPDB = filepath.Join(t.TempDir(), "missing.mmdb")
	if _, err := NewDeps(cfg, logging.Discard()); err == nil {
		t.Fatalf("expected error for missing geoip db")
	}
}
