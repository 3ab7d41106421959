package radiosync

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WorkflowState names one stage of the refurbishment workflow.
type WorkflowState string

const (
	StatePending     WorkflowState = "pending"
	StateReclaiming  WorkflowState = "reclaiming"
	StateConfiguring WorkflowState = "configuring"
	StateVerifying   WorkflowState = "verifying"
	StateDone        WorkflowState = "done"
)

// Workflow step names as they appear in step records.
const (
	StepReclaim   = "reclaim"
	StepConfigure = "configure"
	StepVerify    = "verify"
)

// WorkflowStepRecord is one attempt of one workflow step. Attempt numbers
// strictly increase within a step and reset at the next step.
type WorkflowStepRecord struct {
	Step        string
	Attempt     int
	MaxAttempts int
	Result      OperationResult
}

// RefurbishmentReport is the full history of one device's refurbishment.
// Overall outcome is Success only when every step eventually succeeded within
// its retry budget; otherwise Failure with the failed step's detail.
type RefurbishmentReport struct {
	SerialNumber string
	Steps        []WorkflowStepRecord
	Outcome      Outcome
	Detail       string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// WorkflowConfig tunes the refurbishment workflow. Reclaim and configuration
// pushes hit a third-party API that fails transiently while the radio reboots,
// so each step retries a bounded number of times with a delay in between.
type WorkflowConfig struct {
	Engine *Engine
	// StepAttempts is the retry budget per step.
	StepAttempts int
	// StepDelay is the pause between attempts of the same step.
	StepDelay time.Duration
	// VerifySpeedTest additionally requires one completed speed test
	// during verification.
	VerifySpeedTest bool
	Sleep           func(ctx context.Context, d time.Duration) error
	Clock           func() time.Time
}

// Refurbisher drives one device at a time through the reclaim → configure →
// verify state machine. All state is per-invocation; a Refurbisher is safe
// for concurrent use across devices.
type Refurbisher struct {
	engine          *Engine
	stepAttempts    int
	stepDelay       time.Duration
	verifySpeedTest bool
	sleep           func(ctx context.Context, d time.Duration) error
	clock           func() time.Time
}

// NewRefurbisher validates the configuration and applies defaults.
func NewRefurbisher(cfg WorkflowConfig) (*Refurbisher, error) {
	if cfg.Engine == nil {
		return nil, errors.New("refurbisher: engine cannot be nil")
	}
	if cfg.StepAttempts <= 0 {
		cfg.StepAttempts = 3
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = 15 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Refurbisher{
		engine:          cfg.Engine,
		stepAttempts:    cfg.StepAttempts,
		stepDelay:       cfg.StepDelay,
		verifySpeedTest: cfg.VerifySpeedTest,
		sleep:           cfg.Sleep,
		clock:           cfg.Clock,
	}, nil
}

type workflowStep struct {
	name  string
	state WorkflowState
	run   func(ctx context.Context, serial string) OperationResult
}

func (r *Refurbisher) steps() []workflowStep {
	return []workflowStep{
		{
			name:  StepReclaim,
			state: StateReclaiming,
			run:   r.engine.Reclaim,
		},
		{
			name:  StepConfigure,
			state: StateConfiguring,
			run: func(ctx context.Context, serial string) OperationResult {
				started := r.engine.clock()
				cfg := r.engine.defaultConfig(hostnameRefurbished)
				if err := r.engine.client.PushConfig(ctx, serial, cfg); err != nil {
					return r.engine.result(serial, OpDefaultConfig, started, OutcomeFailure, err.Error(), nil)
				}
				// The new configuration takes effect on the next boot.
				if err := r.engine.client.Reboot(ctx, serial); err != nil {
					return r.engine.result(serial, OpDefaultConfig, started, OutcomeFailure,
						errors.Wrap(err, "reboot after configuration").Error(), nil)
				}
				return r.engine.result(serial, OpDefaultConfig, started, OutcomeSuccess,
					"refurbished configuration applied", nil)
			},
		},
		{
			name:  StepVerify,
			state: StateVerifying,
			run: func(ctx context.Context, serial string) OperationResult {
				return r.engine.Verify(ctx, serial, r.verifySpeedTest)
			},
		},
	}
}

// Refurbish runs the full workflow for one device. Steps execute strictly in
// order; a step must fully resolve before the next begins. Every attempt
// appends one step record.
func (r *Refurbisher) Refurbish(ctx context.Context, serial string) *RefurbishmentReport {
	report := &RefurbishmentReport{
		SerialNumber: serial,
		StartedAt:    r.clock(),
	}
	state := StatePending
	log.Info().Str("serial", serial).Msg("refurbishment started")

	for _, step := range r.steps() {
		state = step.state
		log.Debug().Str("serial", serial).Str("state", string(state)).Msg("workflow state entered")

		var last OperationResult
		succeeded := false
		for attempt := 1; attempt <= r.stepAttempts; attempt++ {
			last = step.run(ctx, serial)
			report.Steps = append(report.Steps, WorkflowStepRecord{
				Step:        step.name,
				Attempt:     attempt,
				MaxAttempts: r.stepAttempts,
				Result:      last,
			})
			if last.Succeeded() {
				if attempt > 1 {
					log.Info().
						Str("serial", serial).
						Str("step", step.name).
						Int("attempts", attempt).
						Msg("workflow step recovered after retry")
				}
				succeeded = true
				break
			}
			if attempt == r.stepAttempts {
				break
			}
			log.Warn().
				Str("serial", serial).
				Str("step", step.name).
				Int("attempt", attempt).
				Int("max_attempts", r.stepAttempts).
				Dur("delay", r.stepDelay).
				Str("detail", last.Detail).
				Msg("workflow step failed, scheduling retry")
			if err := r.sleep(ctx, r.stepDelay); err != nil {
				report.Outcome = OutcomeFailure
				report.Detail = fmt.Sprintf("%s: %s", step.name, err.Error())
				report.FinishedAt = r.clock()
				return report
			}
		}
		if !succeeded {
			report.Outcome = OutcomeFailure
			report.Detail = fmt.Sprintf("%s: %s", step.name, last.Detail)
			report.FinishedAt = r.clock()
			log.Error().
				Str("serial", serial).
				Str("step", step.name).
				Str("detail", last.Detail).
				Msg("refurbishment failed")
			return report
		}
	}

	report.Outcome = OutcomeSuccess
	report.Detail = "refurbishment complete"
	report.FinishedAt = r.clock()
	log.Info().Str("serial", serial).Msg("refurbishment complete")
	return report
}

// DeviceFunc adapts the workflow to the batch scheduler, folding the report
// into one operation result with the report as payload.
func (r *Refurbisher) DeviceFunc() DeviceFunc {
	return func(ctx context.Context, serial string) OperationResult {
		report := r.Refurbish(ctx, serial)
		return OperationResult{
			SerialNumber: serial,
			Kind:         OpRefurbish,
			Outcome:      report.Outcome,
			Detail:       report.Detail,
			StartedAt:    report.StartedAt,
			FinishedAt:   report.FinishedAt,
			Payload:      report,
		}
	}
}
