package analytics

import (
	"time"

	"github.com/August26/tlsprobe-go/internal/model"
)

// Counts carries the pipeline sizes measured before probing.
type Counts struct {
	Entries int
	Targets int
	Unique  int
}

func Compute(c Counts, results []model.EnrichedResult, duration time.Duration) model.RunStats {
	stats := model.RunStats{
		Entries:               c.Entries,
		Targets:               c.Targets,
		UniqueTargets:         c.Unique,
		Alive:                 len(results),
		TotalProcessingTimeMs: duration.Milliseconds(),
	}

	var latencySum int64
	for i, r := range results {
		latencySum += r.LatencyMs
		if i == 0 || r.LatencyMs < stats.MinLatencyMs {
			stats.MinLatencyMs = r.LatencyMs
		}
		if r.LatencyMs > stats.MaxLatencyMs {
			stats.MaxLatencyMs = r.LatencyMs
		}
	}

	if len(results) > 0 {
		stats.AvgLatencyMs = float64(latencySum) / float64(len(results))
	}
	if c.Unique > 0 {
		stats.SuccessRatePct = (float64(len(results)) / float64(c.Unique)) * 100.0
	}

	return stats
}
