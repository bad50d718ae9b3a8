package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/August26/tlsprobe-go/internal/model"
)

// SortByLatency orders results fastest first. Ties keep their input order.
func SortByLatency(results []model.EnrichedResult) {
	slices.SortStableFunc(results, func(a, b model.EnrichedResult) int {
		switch {
		case a.LatencyMs < b.LatencyMs:
			return -1
		case a.LatencyMs > b.LatencyMs:
			return 1
		}
		return 0
	})
}

// FormatResultLines renders "ip#country 123ms" lines.
func FormatResultLines(results []model.EnrichedResult) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%s#%s %dms", r.Address, r.Country, r.LatencyMs))
	}
	return strings.Join(lines, "\n")
}

// FormatAddressLines renders one bare ip per line.
func FormatAddressLines(results []model.EnrichedResult) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, r.Address)
	}
	return strings.Join(lines, "\n")
}

// WriteArtifacts writes the annotated list to resultPath and the bare
// address list to proxyPath, both in the order given.
func WriteArtifacts(resultPath, proxyPath string, results []model.EnrichedResult) error {
	if err := os.WriteFile(resultPath, []byte(FormatResultLines(results)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", resultPath, err)
	}
	if err := os.WriteFile(proxyPath, []byte(FormatAddressLines(results)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", proxyPath, err)
	}
	return nil
}

// PrintResultsTable prints a human-readable table of alive targets.
func PrintResultsTable(w io.Writer, results []model.EnrichedResult) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)

	// header
	fmt.Fprintln(tw, "IP:PORT\tLAT(ms)\tCOUNTRY\tSOURCE")

	for _, r := range results {
		fmt.Fprintf(tw, "%s:%d\t%d\t%s\t%s\n",
			r.Address,
			r.Port,
			r.LatencyMs,
			dashIfEmpty(r.Country),
			dashIfEmpty(r.Host),
		)
	}

	tw.Flush()
}

// PrintSummary prints the aggregated run stats.
func PrintSummary(w io.Writer, stats model.RunStats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Input entries:            %d\n", stats.Entries)
	fmt.Fprintf(w, "  Resolved targets:         %d\n", stats.Targets)
	fmt.Fprintf(w, "  Unique targets:           %d\n", stats.UniqueTargets)
	fmt.Fprintf(w, "  Alive:                    %d (%.1f%%)\n", stats.Alive, stats.SuccessRatePct)
	fmt.Fprintf(w, "  Latency min/avg/max:      %d / %.1f / %d ms\n", stats.MinLatencyMs, stats.AvgLatencyMs, stats.MaxLatencyMs)
	fmt.Fprintf(w, "  Run time:                 %.2f s\n", float64(stats.TotalProcessingTimeMs)/1000.0)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// WriteReport writes all results + summary stats to a file in json or csv format.
func WriteReport(path string, format string, results []model.EnrichedResult, stats model.RunStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case "json":
		return writeJSON(f, results, stats)
	case "csv":
		return writeCSV(f, results)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// writeJSON writes an object with "results" and "summary".
func writeJSON(w io.Writer, results []model.EnrichedResult, stats model.RunStats) error {
	payload := struct {
		Results []model.EnrichedResult `json:"results"`
		Summary model.RunStats         `json:"summary"`
	}{
		Results: results,
		Summary: stats,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// writeCSV writes one row per result (summary is not included in CSV).
func writeCSV(w io.Writer, results []model.EnrichedResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"ip", "port", "country", "latency_ms", "source"}); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Address,
			strconv.Itoa(r.Port),
			r.Country,
			strconv.FormatInt(r.LatencyMs, 10),
			r.Host,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
