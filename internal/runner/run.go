package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/August26/tlsprobe-go/internal/analytics"
	"github.com/August26/tlsprobe-go/internal/checker"
	"github.com/August26/tlsprobe-go/internal/model"
	"github.com/August26/tlsprobe-go/internal/output"
	"github.com/August26/tlsprobe-go/internal/parser"
	"github.com/August26/tlsprobe-go/internal/resolver"
)

// geoCacheTTL outlives any realistic run.
const geoCacheTTL = time.Hour

// Deps are the network-facing collaborators of a run.
type Deps struct {
	Lookuper resolver.Lookuper
	Prober   checker.Prober
	Enricher checker.Enricher
	closers  []io.Closer
}

// Close releases resources opened by NewDeps.
func (d Deps) Close() error {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}

// NewDeps builds the real resolver, prober and enricher from cfg.
func NewDeps(cfg model.Config, log *slog.Logger) (Deps, error) {
	dialer, err := checker.NewDialer(cfg.Via, cfg.ProbeTimeout())
	if err != nil {
		return Deps{}, err
	}

	deps := Deps{
		Lookuper: resolver.NewDNSResolver(cfg.Nameservers, 0),
		Prober: &checker.TLSProber{
			Dialer:     dialer,
			ServerName: cfg.ServerName,
			Timeout:    cfg.ProbeTimeout(),
		},
	}

	var inner checker.Enricher
	if cfg.GeoIPDB != "" {
		db, err := checker.OpenGeoIP2(cfg.GeoIPDB, cfg.GeoLang)
		if err != nil {
			return Deps{}, err
		}
		deps.closers = append(deps.closers, db)
		inner = db
	} else {
		inner = checker.NewIPAPI(cfg.GeoURL, cfg.GeoTimeout(), cfg.GeoRatePerMinute, log)
	}
	deps.Enricher = checker.NewCachedEnricher(inner, geoCacheTTL)

	return deps, nil
}

// Report is what a completed run produced.
type Report struct {
	Results []model.EnrichedResult // sorted by latency
	Stats   model.RunStats
}

// Run executes the whole pipeline: load, resolve, dedupe, probe, enrich,
// sort and write. Only an unreadable input file is returned as an error;
// a failed write is logged and the in-memory report is still returned.
func Run(ctx context.Context, cfg model.Config, deps Deps, log *slog.Logger) (Report, error) {
	start := time.Now()

	lines, err := parser.LoadFromFile(cfg.InputFile)
	if err != nil {
		return Report{}, fmt.Errorf("load %s: %w", cfg.InputFile, err)
	}
	if len(lines) == 0 {
		log.Info("no entries to check", "input", cfg.InputFile)
		return Report{}, nil
	}

	log.Info("resolving entries", "count", len(lines))
	entries := parser.ParseEntries(lines)
	targets := resolver.Expand(ctx, entries, deps.Lookuper, log)
	unique := resolver.Dedupe(targets)

	log.Info("targets ready", "targets", len(targets), "unique", len(unique))

	sched := &checker.Scheduler{
		Prober:    deps.Prober,
		Enricher:  deps.Enricher,
		BatchSize: cfg.Concurrency,
		MaxDelay:  cfg.GeoMaxDelay(),
		Logger:    log,
	}
	if cfg.GeoIPDB != "" {
		// local lookups have no remote rate limit to respect
		sched.MaxDelay = 0
	}

	var bar *pb.ProgressBar
	if cfg.Progress {
		bar = pb.StartNew(len(unique))
		sched.Progress = func() { bar.Increment() }
	}

	results := sched.RunBatch(ctx, unique)

	if bar != nil {
		bar.Finish()
	}

	output.SortByLatency(results)

	stats := analytics.Compute(analytics.Counts{
		Entries: len(lines),
		Targets: len(targets),
		Unique:  len(unique),
	}, results, time.Since(start))

	if err := output.WriteArtifacts(cfg.ResultFile, cfg.ProxyFile, results); err != nil {
		log.Error("failed to write results", "err", err)
	} else {
		log.Info("results written",
			"result_file", cfg.ResultFile,
			"proxy_file", cfg.ProxyFile,
			"alive", len(results),
		)
	}

	if cfg.ReportFile != "" {
		if err := output.WriteReport(cfg.ReportFile, cfg.ReportFormat, results, stats); err != nil {
			log.Error("failed to write report", "err", err, "path", cfg.ReportFile)
		}
	}

	return Report{Results: results, Stats: stats}, nil
}
