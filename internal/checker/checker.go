package checker

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/August26/tlsprobe-go/internal/model"
)

// Scheduler probes targets in fixed-size batches and enriches the ones
// that answered.
type Scheduler struct {
	Prober    Prober
	Enricher  Enricher
	BatchSize int
	MaxDelay  time.Duration // upper bound of the random pause before each geo lookup
	Logger    *slog.Logger
	Progress  func() // optional, called once per settled target
}

// RunBatch processes targets batch by batch: every member of a batch is
// probed concurrently and the next batch starts only after all of them
// (including their geo lookups) have finished. Failed probes produce no
// result. Results come back in target order; callers sort them.
func (s *Scheduler) RunBatch(ctx context.Context, targets []model.Target) []model.EnrichedResult {
	size := s.BatchSize
	if size < 1 {
		size = 1
	}

	out := make([]model.EnrichedResult, 0, len(targets))

	for i := 0; i < len(targets); i += size {
		if ctx.Err() != nil {
			s.Logger.Warn("run cancelled", "remaining", len(targets)-i)
			break
		}

		chunk := targets[i:min(i+size, len(targets))]
		// each goroutine owns exactly one slot, so no locking is needed
		slots := make([]*model.EnrichedResult, len(chunk))

		var g errgroup.Group
		g.SetLimit(size)
		for j, t := range chunk {
			j, t := j, t
			g.Go(func() error {
				slots[j] = s.checkOne(ctx, t)
				if s.Progress != nil {
					s.Progress()
				}
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range slots {
			if r != nil {
				out = append(out, *r)
			}
		}
		s.Logger.Debug("batch done", "offset", i, "size", len(chunk), "alive_total", len(out))
	}

	return out
}

// checkOne runs probe-then-maybe-enrich for a single target.
func (s *Scheduler) checkOne(ctx context.Context, t model.Target) *model.EnrichedResult {
	res := s.Prober.Probe(ctx, t)
	if !res.Success {
		s.Logger.Debug("probe failed", "addr", t.Addr(), "host", t.OriginalHost, "err", res.Error)
		return nil
	}

	sleep(ctx, jitter(s.MaxDelay))
	country := s.Enricher.Country(ctx, t.Address)

	s.Logger.Info("alive",
		"ip", t.Address,
		"port", t.Port,
		"country", country,
		"latency_ms", res.LatencyMs,
	)

	return &model.EnrichedResult{
		Address:   t.Address,
		Port:      t.Port,
		Host:      t.OriginalHost,
		Country:   country,
		LatencyMs: res.LatencyMs,
	}
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(limit)))
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
