package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/August26/tlsprobe-go/internal/config"
	"github.com/August26/tlsprobe-go/internal/logging"
	"github.com/August26/tlsprobe-go/internal/model"
	"github.com/August26/tlsprobe-go/internal/output"
	"github.com/August26/tlsprobe-go/internal/runner"
)

func main() {
	cfg := model.DefaultConfig()

	flag.StringVar(&cfg.ConfigFile, "config", "", "optional YAML config file (flags override it)")
	flag.StringVar(&cfg.InputFile, "input", cfg.InputFile, "file with one ip, host or host:port per line")
	flag.StringVar(&cfg.ResultFile, "result", cfg.ResultFile, "output file for ip#country latency lines")
	flag.StringVar(&cfg.ProxyFile, "proxy", cfg.ProxyFile, "output file for bare ip lines")
	flag.StringVar(&cfg.ReportFile, "report", cfg.ReportFile, "optional path to write a full report (json/csv)")
	flag.StringVar(&cfg.ReportFormat, "format", cfg.ReportFormat, "report format: json | csv")
	flag.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "targets probed per batch")
	flag.IntVar(&cfg.TimeoutMs, "timeout", cfg.TimeoutMs, "connect + handshake timeout in milliseconds")
	flag.StringVar(&cfg.ServerName, "sni", cfg.ServerName, "server name sent in every ClientHello")
	flag.StringVar(&cfg.Via, "via", cfg.Via, "optional upstream for probes, e.g. socks5://127.0.0.1:1080")
	flag.Func("dns", "comma separated nameservers host:port (default: resolv.conf)", func(s string) error {
		cfg.Nameservers = splitList(s)
		return nil
	})
	flag.StringVar(&cfg.GeoURL, "geo-url", cfg.GeoURL, "geolocation endpoint template, %s = ip")
	flag.IntVar(&cfg.GeoMaxDelayMs, "geo-delay", cfg.GeoMaxDelayMs, "max random pause before each geo lookup in milliseconds")
	flag.IntVar(&cfg.GeoTimeoutMs, "geo-timeout", cfg.GeoTimeoutMs, "geo request timeout in milliseconds (0 = none)")
	flag.IntVar(&cfg.GeoRatePerMinute, "geo-rate", cfg.GeoRatePerMinute, "max geo requests per minute (0 = unlimited)")
	flag.StringVar(&cfg.GeoIPDB, "geoip-db", cfg.GeoIPDB, "use a local GeoLite2-Country.mmdb instead of the HTTP endpoint")
	flag.StringVar(&cfg.GeoLang, "geo-lang", cfg.GeoLang, "country name language for -geoip-db")
	flag.BoolVar(&cfg.Progress, "progress", cfg.Progress, "show a progress bar")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable debug logs")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: json | text")

	flag.Parse()

	if cfg.ConfigFile != "" {
		if err := config.Load(cfg.ConfigFile, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		// explicit flags win over the file
		_ = flag.CommandLine.Parse(os.Args[1:])
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.NewLogger(cfg.Verbose, cfg.LogFormat)

	log.Info("starting tlsprobe-go",
		"input", cfg.InputFile,
		"concurrency", cfg.Concurrency,
		"timeout_ms", cfg.TimeoutMs,
		"sni", cfg.ServerName,
		"via", cfg.Via,
	)

	deps, err := runner.NewDeps(cfg, log)
	if err != nil {
		log.Error("failed to set up", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := runner.Run(ctx, cfg, deps, log)
	if err != nil {
		log.Error("run aborted", "err", err)
		deps.Close()
		os.Exit(1)
	}

	log.Info("run finished",
		"total_ms", rep.Stats.TotalProcessingTimeMs,
		"alive", rep.Stats.Alive,
		"unique", rep.Stats.UniqueTargets,
	)

	// Print table and summary to stdout
	output.PrintResultsTable(os.Stdout, rep.Results)
	output.PrintSummary(os.Stdout, rep.Stats)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
