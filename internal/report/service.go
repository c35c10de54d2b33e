package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/family-rules-core/internal/directory"
	"github.com/nerrad567/family-rules-core/internal/policy"
)

// Request is one device check-in.
//
// ScreenTimeSeconds and PerAppSeconds are the day's running totals and must
// be supplied together or not at all. UTCOffsetSeconds, when set, replaces
// the device's stored offset.
type Request struct {
	DeviceID          string
	Secret            string
	ScreenTimeSeconds *int64
	PerAppSeconds     map[string]int64
	UTCOffsetSeconds  *int
}

// Response tells the device what state to be in.
type Response struct {
	State            policy.DeviceState `json:"state"`
	RemainingSeconds int64              `json:"countdown_seconds"`
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Recorder receives screen time and decision points (optional).
	Recorder UsageRecorder

	// Sinks receive every resolved decision (optional).
	Sinks []StatusSink

	// Logger instance (optional).
	Logger Logger
}

// Service handles device reports.
//
// Thread Safety: Report is safe for concurrent use.
type Service struct {
	creds    CredentialValidator
	store    Store
	engine   Evaluator
	recorder UsageRecorder
	sinks    []StatusSink
	logger   Logger
}

// NewService creates a report Service.
//
// Parameters:
//   - creds: Credential gate (the token cache)
//   - store: Directory for devices, usage and activity
//   - engine: Policy engine
//   - opts: Optional recorder, sinks and logger
func NewService(creds CredentialValidator, store Store, engine Evaluator, opts ServiceOptions) *Service {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Service{
		creds:    creds,
		store:    store,
		engine:   engine,
		recorder: opts.Recorder,
		sinks:    opts.Sinks,
		logger:   opts.Logger,
	}
}

// Report authenticates a device, stores its usage and returns its decision.
//
// Steps:
//  1. Reject absent credentials (ErrCredentialMissing) and mismatched ones
//     (ErrCredentialInvalid). Negative results are never cached.
//  2. Validate the usage pair and offset (ErrValidation).
//  3. Store the screen time for the device's local day, if supplied.
//  4. Record the device as seen, which marks its account for notification.
//  5. Evaluate and announce the decision.
func (s *Service) Report(ctx context.Context, req Request) (Response, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" || req.Secret == "" {
		return Response{}, ErrCredentialMissing
	}

	ok, err := s.creds.Validate(ctx, deviceID, req.Secret)
	if err != nil {
		return Response{}, fmt.Errorf("validating credentials: %w", err)
	}
	if !ok {
		return Response{}, ErrCredentialInvalid
	}

	if err := validateRequest(req); err != nil {
		return Response{}, err
	}

	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, directory.ErrDeviceNotFound) {
			// Removed after its credentials were cached.
			return Response{}, ErrCredentialInvalid
		}
		return Response{}, fmt.Errorf("loading device: %w", err)
	}

	now := s.engine.Now()
	offset := device.UTCOffsetSeconds
	if req.UTCOffsetSeconds != nil {
		offset = *req.UTCOffsetSeconds
	}

	if req.ScreenTimeSeconds != nil {
		usage := directory.ScreenTime{
			DeviceID:     deviceID,
			Day:          policy.LocalDate(now, offset),
			TotalSeconds: *req.ScreenTimeSeconds,
			PerApp:       req.PerAppSeconds,
			UpdatedAt:    now,
		}
		if err := s.store.RecordScreenTime(ctx, usage); err != nil {
			return Response{}, fmt.Errorf("recording screen time: %w", err)
		}
		if s.recorder != nil {
			s.recorder.WriteScreenTime(deviceID, device.AccountID, usage.TotalSeconds, usage.PerApp, now)
		}
	}

	if err := s.store.TouchDevice(ctx, deviceID, req.UTCOffsetSeconds, now); err != nil {
		return Response{}, fmt.Errorf("recording activity: %w", err)
	}

	decision, err := s.engine.Evaluate(ctx, deviceID, offset)
	if err != nil {
		return Response{}, fmt.Errorf("evaluating policy: %w", err)
	}

	if s.recorder != nil {
		s.recorder.WriteDecision(deviceID, string(decision.State), !decision.Overridden(), decision.RemainingSeconds, now)
	}
	fanOut(ctx, s.sinks, s.logger, newUpdate(device, decision, ReasonReport, now))

	s.logger.Debug("device report processed",
		"device_id", deviceID,
		"state", decision.State,
		"countdown_seconds", decision.RemainingSeconds,
	)

	return Response{State: decision.State, RemainingSeconds: decision.RemainingSeconds}, nil
}

// validateRequest checks the usage pair and offset.
func validateRequest(req Request) error {
	hasTotal := req.ScreenTimeSeconds != nil
	hasApps := req.PerAppSeconds != nil
	if hasTotal != hasApps {
		return fmt.Errorf("%w: screen_time_seconds and per_app_seconds must be supplied together", ErrValidation)
	}

	if hasTotal && *req.ScreenTimeSeconds < 0 {
		return fmt.Errorf("%w: screen_time_seconds must not be negative", ErrValidation)
	}
	for app, secs := range req.PerAppSeconds {
		if strings.TrimSpace(app) == "" {
			return fmt.Errorf("%w: per_app_seconds has an empty app name", ErrValidation)
		}
		if secs < 0 {
			return fmt.Errorf("%w: per_app_seconds[%q] must not be negative", ErrValidation, app)
		}
	}

	if req.UTCOffsetSeconds != nil {
		if err := policy.ValidateOffset(*req.UTCOffsetSeconds); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	return nil
}
