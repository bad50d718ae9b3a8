package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/August26/tlsprobe-go/internal/logging"
	"github.com/August26/tlsprobe-go/internal/lookup"
)

func main() {
	input := flag.String("input", "proxy.txt", "file with one ip per line")
	outPath := flag.String("output", "proxy.csv", "csv file to write")
	api := flag.String("api", lookup.DefaultAPI, "location api url")
	interval := flag.Duration("interval", 500*time.Millisecond, "pause between requests")
	verbose := flag.Bool("verbose", false, "enable debug logs")
	logFormat := flag.String("log-format", "json", "log format: json | text")

	flag.Parse()

	log := logging.NewLogger(*verbose, *logFormat)

	ips, err := lookup.ReadAddresses(*input)
	if err != nil {
		log.Error("cannot read input", "err", err)
		return
	}
	if len(ips) == 0 {
		log.Info("no addresses to look up", "input", *input)
		return
	}

	log.Info("looking up addresses", "count", len(ips))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := lookup.NewClient(*api, *interval, log)
	recs := client.LookupAll(ctx, ips)
	lookup.SortByCountry(recs)

	if err := lookup.WriteCSV(*outPath, recs); err != nil {
		log.Error("failed to write csv", "err", err, "path", *outPath)
		return
	}
	log.Info("results written", "path", *outPath, "records", len(recs))
}
