package radiosync

import (
	"context"
	"testing"
	"time"

	"github.com/azimuth-networks/radiosync/internal/tarana"
)

func TestSpeedTestTimesOutAfterMaxAttempts(t *testing.T) {
	polls := 0
	client := &stubClient{
		pollTest: func(operationID, serial string) (*tarana.SpeedTestResult, error) {
			polls++
			return &tarana.SpeedTestResult{Status: tarana.SpeedTestRunning}, nil
		},
	}
	engine := newTestEngine(t, client, nil)

	result := engine.SpeedTest(context.Background(), "RN001")
	if result.Outcome != OutcomeFailure {
		t.Fatalf("expected failure, got %s", result.Outcome)
	}
	if result.Detail != "timed out awaiting result" {
		t.Fatalf("expected timeout detail, got %q", result.Detail)
	}
	if polls != 3 {
		t.Fatalf("expected exactly 3 polls, got %d", polls)
	}
}

func TestSpeedTestAveragesCompletedTests(t *testing.T) {
	dl1, dl2 := 200000.0, 300000.0
	lat1, lat2 := 10.0, 20.0
	results := []*tarana.SpeedTestResult{
		{Status: tarana.SpeedTestCompleted, DownlinkThroughput: &dl1, LatencyMillis: &lat1},
		{Status: tarana.SpeedTestCompleted, DownlinkThroughput: &dl2, LatencyMillis: &lat2},
	}
	idx := 0
	client := &stubClient{
		pollTest: func(operationID, serial string) (*tarana.SpeedTestResult, error) {
			r := results[idx]
			idx++
			return r, nil
		},
	}
	engine, err := NewEngine(EngineConfig{
		Client:      client,
		MaxAttempts: 3,
		NumTests:    2,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	result := engine.SpeedTest(context.Background(), "RN001")
	if !result.Succeeded() {
		t.Fatalf("expected success, got %s (%s)", result.Outcome, result.Detail)
	}
	summary, ok := result.Payload.(*SpeedTestSummary)
	if !ok {
		t.Fatalf("expected speed test summary payload, got %#v", result.Payload)
	}
	if summary.Average == nil || summary.Average.Tests != 2 {
		t.Fatalf("expected average over 2 tests, got %#v", summary.Average)
	}
	if *summary.Average.DownlinkThroughput != 250000.0 {
		t.Fatalf("expected averaged downlink 250000, got %v", *summary.Average.DownlinkThroughput)
	}
	if *summary.Average.LatencyMillis != 15.0 {
		t.Fatalf("expected averaged latency 15, got %v", *summary.Average.LatencyMillis)
	}
}

func TestSpeedTestFailsWhenStartFails(t *testing.T) {
	client := &stubClient{
		startTest: func(serial string) (string, error) {
			return "", &tarana.APIError{Op: "start speed test", StatusCode: 500}
		},
	}
	engine := newTestEngine(t, client, nil)

	result := engine.SpeedTest(context.Background(), "RN001")
	if result.Outcome != OutcomeFailure {
		t.Fatalf("expected failure, got %s", result.Outcome)
	}
}

func TestSpeedTestNoCompletedTests(t *testing.T) {
	client := &stubClient{
		pollTest: func(operationID, serial string) (*tarana.SpeedTestResult, error) {
			return &tarana.SpeedTestResult{
				Status:        tarana.SpeedTestFailed,
				FailureReason: "link unstable",
			}, nil
		},
	}
	engine := newTestEngine(t, client, nil)

	result := engine.SpeedTest(context.Background(), "RN001")
	if result.Outcome != OutcomeFailure {
		t.Fatalf("expected failure, got %s", result.Outcome)
	}
	if result.Detail != "no speed test completed" {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}
