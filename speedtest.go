package radiosync

import (
	"context"
	"fmt"

	"github.com/azimuth-networks/radiosync/internal/tarana"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SpeedTestSummary aggregates the speed tests collected for one radio.
type SpeedTestSummary struct {
	SerialNumber string
	Requested    int
	Results      []*tarana.SpeedTestResult
	// Average holds the mean of the numeric figures over the completed
	// tests; nil when none completed.
	Average *SpeedTestAverage
}

// SpeedTestAverage is the mean of the measured figures across completed
// tests. Throughput stays in Kbps as delivered by the API.
type SpeedTestAverage struct {
	Tests              int
	DownlinkThroughput *float64
	UplinkThroughput   *float64
	LatencyMillis      *float64
	DownlinkSnr        *float64
	UplinkSnr          *float64
	Pathloss           *float64
	RFLinkDistance     *float64
}

// errSpeedTestTimeout marks an exhausted polling budget.
var errSpeedTestTimeout = errors.New(detailTimedOut)

// SpeedTest runs speed tests until NumTests have completed, polling each at
// CheckInterval for at most MaxAttempts polls. An exhausted polling budget
// fails the whole operation with a timeout detail.
func (e *Engine) SpeedTest(ctx context.Context, serial string) OperationResult {
	started := e.clock()
	summary := &SpeedTestSummary{SerialNumber: serial, Requested: e.numTests}

	for test := 1; test <= e.numTests; test++ {
		result, err := e.runOneSpeedTest(ctx, serial)
		if errors.Is(err, errSpeedTestTimeout) {
			return e.result(serial, OpSpeedTest, started, OutcomeFailure, detailTimedOut, summary)
		}
		if err != nil {
			return e.result(serial, OpSpeedTest, started, OutcomeFailure, err.Error(), summary)
		}
		summary.Results = append(summary.Results, result)
		if result.Succeeded() {
			log.Info().
				Str("serial", serial).
				Int("test", test).
				Float64("downlink_kbps", *result.DownlinkThroughput).
				Msg("speed test completed")
		} else {
			log.Warn().
				Str("serial", serial).
				Int("test", test).
				Str("status", result.Status).
				Str("reason", result.FailureReason).
				Msg("speed test did not complete")
		}
		if test < e.numTests {
			if err := e.sleep(ctx, e.checkInterval); err != nil {
				return e.result(serial, OpSpeedTest, started, OutcomeFailure, err.Error(), summary)
			}
		}
	}

	summary.Average = averageSpeedTests(summary.Results)
	if summary.Average == nil {
		return e.result(serial, OpSpeedTest, started, OutcomeFailure, "no speed test completed", summary)
	}
	return e.result(serial, OpSpeedTest, started, OutcomeSuccess,
		fmt.Sprintf("%d/%d tests completed", summary.Average.Tests, summary.Requested), summary)
}

// runOneSpeedTest starts a test and polls until a terminal result or the
// polling budget runs out.
func (e *Engine) runOneSpeedTest(ctx context.Context, serial string) (*tarana.SpeedTestResult, error) {
	operationID, err := e.client.StartSpeedTest(ctx, serial)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("serial", serial).Str("operation_id", operationID).Msg("speed test initiated")

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		result, err := e.client.GetSpeedTest(ctx, operationID, serial)
		if err != nil {
			// A transient poll failure burns an attempt but does not
			// abort the loop.
			log.Debug().
				Err(err).
				Str("serial", serial).
				Int("attempt", attempt).
				Msg("speed test poll failed")
		} else if result.Terminal() {
			return result, nil
		}
		if attempt < e.maxAttempts {
			if err := e.sleep(ctx, e.checkInterval); err != nil {
				return nil, err
			}
		}
	}
	return nil, errSpeedTestTimeout
}

func averageSpeedTests(results []*tarana.SpeedTestResult) *SpeedTestAverage {
	var completed []*tarana.SpeedTestResult
	for _, r := range results {
		if r.Succeeded() {
			completed = append(completed, r)
		}
	}
	if len(completed) == 0 {
		return nil
	}
	avg := &SpeedTestAverage{Tests: len(completed)}
	avg.DownlinkThroughput = meanOf(completed, func(r *tarana.SpeedTestResult) *float64 { return r.DownlinkThroughput })
	avg.UplinkThroughput = meanOf(completed, func(r *tarana.SpeedTestResult) *float64 { return r.UplinkThroughput })
	avg.LatencyMillis = meanOf(completed, func(r *tarana.SpeedTestResult) *float64 { return r.LatencyMillis })
	avg.DownlinkSnr = meanOf(completed, func(r *tarana.SpeedTestResult) *float64 { return r.DownlinkSnr })
	avg.UplinkSnr = meanOf(completed, func(r *tarana.SpeedTestResult) *float64 { return r.UplinkSnr })
	avg.Pathloss = meanOf(completed, func(r *tarana.SpeedTestResult) *float64 { return r.Pathloss })
	avg.RFLinkDistance = meanOf(completed, func(r *tarana.SpeedTestResult) *float64 { return r.RFLinkDistance })
	return avg
}

func meanOf(results []*tarana.SpeedTestResult, pick func(*tarana.SpeedTestResult) *float64) *float64 {
	var sum float64
	var n int
	for _, r := range results {
		if v := pick(r); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
