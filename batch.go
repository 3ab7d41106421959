package radiosync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DeviceFunc executes the chosen operation against one device and returns its
// result. Implementations must not share mutable state across devices.
type DeviceFunc func(ctx context.Context, serial string) OperationResult

// BatchConfig controls how a batch of serial numbers is processed.
type BatchConfig struct {
	// Parallel enables the bounded worker pool; otherwise devices are
	// processed sequentially in submission order.
	Parallel bool
	// MaxWorkers bounds concurrent device executions in parallel mode.
	MaxWorkers int
	Clock      func() time.Time
}

// BatchSummary accounts for every submitted serial number: each one lands in
// exactly one of Succeeded, Failed, or Skipped.
type BatchSummary struct {
	RunID      string
	Total      int
	Succeeded  []string
	Failed     map[string]string
	Skipped    []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// HasFailures reports whether any device ended in Failure.
func (s *BatchSummary) HasFailures() bool {
	return len(s.Failed) > 0
}

func (s *BatchSummary) fold(result OperationResult) {
	switch result.Outcome {
	case OutcomeSuccess:
		s.Succeeded = append(s.Succeeded, result.SerialNumber)
	case OutcomeSkipped:
		s.Skipped = append(s.Skipped, result.SerialNumber)
	default:
		s.Failed[result.SerialNumber] = result.Detail
	}
}

// RunBatch executes fn once per serial number and aggregates the outcomes.
// A failure on one device never aborts the others; a panic inside fn is
// converted into a Failure for that device only.
func RunBatch(ctx context.Context, cfg BatchConfig, serials []string, fn DeviceFunc) *BatchSummary {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 5
	}

	summary := &BatchSummary{
		RunID:     uuid.NewString(),
		Total:     len(serials),
		Failed:    make(map[string]string),
		StartedAt: clock(),
	}

	// Blank and repeated serials are skipped up front so every submitted
	// identifier is accounted for exactly once.
	queue := make([]string, 0, len(serials))
	seen := make(map[string]struct{}, len(serials))
	for _, raw := range serials {
		serial := strings.TrimSpace(raw)
		if serial == "" {
			summary.Skipped = append(summary.Skipped, raw)
			continue
		}
		if _, dup := seen[serial]; dup {
			summary.Skipped = append(summary.Skipped, serial)
			continue
		}
		seen[serial] = struct{}{}
		queue = append(queue, serial)
	}

	log.Info().
		Str("run_id", summary.RunID).
		Int("devices", len(queue)).
		Bool("parallel", cfg.Parallel).
		Int("max_workers", maxWorkers).
		Msg("batch started")

	if cfg.Parallel && len(queue) > 1 {
		runParallel(ctx, summary, queue, fn, maxWorkers)
	} else {
		for _, serial := range queue {
			result := runDevice(ctx, serial, fn)
			logDeviceOutcome(summary.RunID, result)
			summary.fold(result)
		}
	}

	summary.FinishedAt = clock()
	log.Info().
		Str("run_id", summary.RunID).
		Int("succeeded", len(summary.Succeeded)).
		Int("failed", len(summary.Failed)).
		Int("skipped", len(summary.Skipped)).
		Msg("batch finished")
	return summary
}

// runParallel drains a shared queue with a bounded pool of workers. Completed
// results fan in over a channel to the single collecting goroutine below, so
// the summary needs no lock.
func runParallel(ctx context.Context, summary *BatchSummary, queue []string, fn DeviceFunc, maxWorkers int) {
	workers := maxWorkers
	if workers > len(queue) {
		workers = len(queue)
	}
	jobs := make(chan string)
	results := make(chan OperationResult)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for serial := range jobs {
				results <- runDevice(ctx, serial, fn)
			}
		}()
	}
	go func() {
		for _, serial := range queue {
			jobs <- serial
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for result := range results {
		logDeviceOutcome(summary.RunID, result)
		summary.fold(result)
	}
}

// runDevice isolates one device execution: an unexpected panic becomes a
// Failure result instead of taking down the batch.
func runDevice(ctx context.Context, serial string, fn DeviceFunc) (result OperationResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("serial", serial).
				Interface("panic", rec).
				Msg("device execution panicked")
			result = OperationResult{
				SerialNumber: serial,
				Outcome:      OutcomeFailure,
				Detail:       fmt.Sprintf("unexpected fault: %v", rec),
				FinishedAt:   time.Now(),
			}
		}
	}()
	return fn(ctx, serial)
}

func logDeviceOutcome(runID string, result OperationResult) {
	event := log.Info()
	if result.Outcome == OutcomeFailure {
		event = log.Error()
	}
	event.
		Str("run_id", runID).
		Str("serial", result.SerialNumber).
		Str("operation", string(result.Kind)).
		Str("outcome", string(result.Outcome)).
		Str("detail", result.Detail).
		Msg("device finished")
}
