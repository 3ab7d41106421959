package radiosync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/azimuth-networks/radiosync/internal/store"
	"github.com/azimuth-networks/radiosync/internal/tarana"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Reserved hostnames marking a radio's lifecycle stage.
const (
	hostnameReclaimed   = "RECLAIMED"
	hostnameRefurbished = "REFURBISHED"
)

const detailTimedOut = "timed out awaiting result"

// EngineConfig wires the collaborators and tunables of the operation engine.
type EngineConfig struct {
	Client tarana.Client
	// Store resolves deployment records; required only for the deploy
	// operation.
	Store store.DeploymentSource
	CPIID string
	// CheckInterval is the delay between speed test polls.
	CheckInterval time.Duration
	// MaxAttempts bounds the speed test polling loop.
	MaxAttempts int
	// NumTests is how many completed speed tests the speedtest operation
	// collects before averaging.
	NumTests int
	// Sleep suspends between polls; tests inject a no-op.
	Sleep func(ctx context.Context, d time.Duration) error
	Clock func() time.Time
}

// Engine performs each single-device business operation as a fixed call
// sequence against the device client (and the deployment store for deploy).
// It keeps no local state; every call mutates remote device/database state
// only.
type Engine struct {
	client        tarana.Client
	store         store.DeploymentSource
	cpiID         string
	checkInterval time.Duration
	maxAttempts   int
	numTests      int
	sleep         func(ctx context.Context, d time.Duration) error
	clock         func() time.Time
}

// NewEngine validates the configuration and applies defaults.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Client == nil {
		return nil, errors.New("engine: device client cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 20 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 30
	}
	if cfg.NumTests <= 0 {
		cfg.NumTests = 3
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Engine{
		client:        cfg.Client,
		store:         cfg.Store,
		cpiID:         cfg.CPIID,
		checkInterval: cfg.CheckInterval,
		maxAttempts:   cfg.MaxAttempts,
		numTests:      cfg.NumTests,
		sleep:         cfg.Sleep,
		clock:         cfg.Clock,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute dispatches one operation against one device. The operation set is
// closed; unknown kinds report Failure. OpRefurbish is handled by the
// Refurbisher, not here.
func (e *Engine) Execute(ctx context.Context, op Operation, serial string) OperationResult {
	switch op.Kind {
	case OpStatus:
		return e.Status(ctx, serial)
	case OpDefaultConfig:
		return e.DefaultConfig(ctx, serial)
	case OpSpeedTest:
		return e.SpeedTest(ctx, serial)
	case OpDelete:
		return e.Delete(ctx, serial, op.Force)
	case OpReclaim:
		return e.Reclaim(ctx, serial)
	case OpDeploy:
		return e.Deploy(ctx, serial)
	case OpUpgrade:
		return e.Upgrade(ctx, serial)
	default:
		now := e.clock()
		return OperationResult{
			SerialNumber: serial,
			Kind:         op.Kind,
			Outcome:      OutcomeFailure,
			Detail:       fmt.Sprintf("unknown operation kind %q", op.Kind),
			StartedAt:    now,
			FinishedAt:   now,
		}
	}
}

func (e *Engine) result(serial string, kind OperationKind, started time.Time, outcome Outcome, detail string, payload any) OperationResult {
	return OperationResult{
		SerialNumber: serial,
		Kind:         kind,
		Outcome:      outcome,
		Detail:       detail,
		StartedAt:    started,
		FinishedAt:   e.clock(),
		Payload:      payload,
	}
}

// Status performs a single read of the radio's status record. No retry.
func (e *Engine) Status(ctx context.Context, serial string) OperationResult {
	started := e.clock()
	radio, err := e.client.GetRadio(ctx, serial)
	if err != nil {
		return e.result(serial, OpStatus, started, OutcomeFailure, err.Error(), nil)
	}
	return e.result(serial, OpStatus, started, OutcomeSuccess, fmt.Sprintf("hostname %s", radio.HostName), radio)
}

// defaultConfig is the canonical payload with location and primary BN cleared.
func (e *Engine) defaultConfig(hostname string) tarana.RadioConfig {
	return tarana.RadioConfig{
		HostName: hostname,
		CPIID:    e.cpiID,
	}
}

// DefaultConfig pushes the canonical default configuration, keeping the
// serial number as hostname. No retry; the caller decides.
func (e *Engine) DefaultConfig(ctx context.Context, serial string) OperationResult {
	started := e.clock()
	if err := e.client.PushConfig(ctx, serial, e.defaultConfig(serial)); err != nil {
		return e.result(serial, OpDefaultConfig, started, OutcomeFailure, err.Error(), nil)
	}
	return e.result(serial, OpDefaultConfig, started, OutcomeSuccess, "default configuration applied", nil)
}

// Reclaim factory-resets a radio: default configuration under the RECLAIMED
// hostname, then a forced reconnect. Success requires both acknowledgments.
func (e *Engine) Reclaim(ctx context.Context, serial string) OperationResult {
	started := e.clock()
	if err := e.client.PushConfig(ctx, serial, e.defaultConfig(hostnameReclaimed)); err != nil {
		return e.result(serial, OpReclaim, started, OutcomeFailure,
			errors.Wrap(err, "apply reclaim configuration").Error(), nil)
	}
	if err := e.client.Reconnect(ctx, serial); err != nil {
		return e.result(serial, OpReclaim, started, OutcomeFailure,
			errors.Wrap(err, "force reconnect").Error(), nil)
	}
	log.Debug().Str("serial", serial).Msg("radio reclaimed")
	return e.result(serial, OpReclaim, started, OutcomeSuccess, "radio reclaimed", nil)
}

// Delete removes the radio record. With force, a configuration reset runs
// first; the delete proceeds regardless of the reset outcome.
func (e *Engine) Delete(ctx context.Context, serial string, force bool) OperationResult {
	started := e.clock()
	if force {
		reset := e.Reclaim(ctx, serial)
		if !reset.Succeeded() {
			log.Warn().
				Str("serial", serial).
				Str("detail", reset.Detail).
				Msg("pre-delete reset failed, deleting anyway")
		}
	}
	if err := e.client.Delete(ctx, serial); err != nil {
		return e.result(serial, OpDelete, started, OutcomeFailure, err.Error(), nil)
	}
	return e.result(serial, OpDelete, started, OutcomeSuccess, "radio deleted", nil)
}

// Deploy configures a radio for a customer using the deployment record keyed
// by its serial number. The record must exist and carry coordinates; the
// connected BN supplies the azimuth target.
func (e *Engine) Deploy(ctx context.Context, serial string) OperationResult {
	started := e.clock()
	if e.store == nil {
		return e.result(serial, OpDeploy, started, OutcomeFailure, "deployment store not configured", nil)
	}
	record, err := e.store.LookupDeployment(ctx, serial)
	if errors.Is(err, store.ErrNoDeployment) {
		return e.result(serial, OpDeploy, started, OutcomeFailure, "no deployment record", nil)
	}
	if err != nil {
		return e.result(serial, OpDeploy, started, OutcomeFailure, err.Error(), nil)
	}
	if record.Latitude == nil || record.Longitude == nil {
		return e.result(serial, OpDeploy, started, OutcomeFailure, "deployment record has no coordinates", nil)
	}

	radio, err := e.client.GetRadio(ctx, serial)
	if err != nil {
		return e.result(serial, OpDeploy, started, OutcomeFailure, err.Error(), nil)
	}
	if strings.TrimSpace(radio.ConnectedBn) == "" {
		return e.result(serial, OpDeploy, started, OutcomeFailure, "radio has no connected BN", nil)
	}
	bn, err := e.client.GetRadio(ctx, radio.ConnectedBn)
	if err != nil {
		return e.result(serial, OpDeploy, started, OutcomeFailure,
			errors.Wrapf(err, "fetch connected BN %s", radio.ConnectedBn).Error(), nil)
	}

	azimuth := CalculateAzimuth(*record.Latitude, *record.Longitude, bn.Latitude, bn.Longitude)
	hostname := DeployHostname(record.CustomerName, record.CustomerID)
	cfg := tarana.RadioConfig{
		HostName:       hostname,
		Latitude:       *record.Latitude,
		Longitude:      *record.Longitude,
		PrimaryBn:      bn.SerialNumber,
		HeightAgl:      9,
		AntennaAzimuth: azimuth,
		CPIID:          e.cpiID,
	}
	if err := e.client.PushConfig(ctx, serial, cfg); err != nil {
		return e.result(serial, OpDeploy, started, OutcomeFailure, err.Error(), nil)
	}
	log.Info().
		Str("serial", serial).
		Str("hostname", hostname).
		Float64("azimuth", azimuth).
		Str("primary_bn", bn.SerialNumber).
		Msg("deployment configuration applied")
	return e.result(serial, OpDeploy, started, OutcomeSuccess,
		fmt.Sprintf("deployed as %s", hostname), nil)
}

// Verify confirms the radio is online and responsive: a status read must show
// it attached to a base node, and optionally one speed test must complete.
func (e *Engine) Verify(ctx context.Context, serial string, withSpeedTest bool) OperationResult {
	started := e.clock()
	radio, err := e.client.GetRadio(ctx, serial)
	if err != nil {
		return e.result(serial, OpStatus, started, OutcomeFailure, err.Error(), nil)
	}
	if !radio.Reachable() {
		return e.result(serial, OpStatus, started, OutcomeFailure, "radio is not connected", radio)
	}
	if withSpeedTest {
		result, err := e.runOneSpeedTest(ctx, serial)
		if err != nil {
			return e.result(serial, OpSpeedTest, started, OutcomeFailure, err.Error(), nil)
		}
		if !result.Succeeded() {
			detail := result.FailureReason
			if detail == "" {
				detail = fmt.Sprintf("speed test ended with status %s", result.Status)
			}
			return e.result(serial, OpSpeedTest, started, OutcomeFailure, detail, result)
		}
	}
	return e.result(serial, OpStatus, started, OutcomeSuccess, "radio online and responsive", radio)
}

// Upgrade installs the latest stable firmware, skipping radios that already
// run the target version.
func (e *Engine) Upgrade(ctx context.Context, serial string) OperationResult {
	started := e.clock()
	radio, err := e.client.GetRadio(ctx, serial)
	if err != nil {
		return e.result(serial, OpUpgrade, started, OutcomeFailure, err.Error(), nil)
	}
	packages, err := e.client.ListFirmwarePackages(ctx, true, false)
	if err != nil {
		return e.result(serial, OpUpgrade, started, OutcomeFailure, err.Error(), nil)
	}
	var target string
	for _, pkg := range packages {
		if pkg.Stable() {
			// Packages arrive newest first.
			target = pkg.ID
			break
		}
	}
	if target == "" {
		return e.result(serial, OpUpgrade, started, OutcomeFailure, "no stable firmware package available", nil)
	}
	if radio.SoftwareVersion != "" && strings.Contains(target, radio.SoftwareVersion) {
		return e.result(serial, OpUpgrade, started, OutcomeSkipped,
			fmt.Sprintf("already running %s", radio.SoftwareVersion), nil)
	}
	if err := e.client.UpgradeFirmware(ctx, serial, target, true, false); err != nil {
		var apiErr *tarana.APIError
		if errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "currently active") {
			return e.result(serial, OpUpgrade, started, OutcomeSkipped, "target firmware already active", nil)
		}
		return e.result(serial, OpUpgrade, started, OutcomeFailure, err.Error(), nil)
	}
	return e.result(serial, OpUpgrade, started, OutcomeSuccess,
		fmt.Sprintf("upgrade to %s initiated", target), nil)
}
