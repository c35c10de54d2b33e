package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultIdleWait is how long the dispatcher sleeps when the queue is empty.
const DefaultIdleWait = time.Second

// Sender delivers a serialised payload to a URL.
type Sender interface {
	Send(ctx context.Context, url string, payload []byte) error
}

// DeliveryRecorder observes delivery outcomes (InfluxDB in production).
type DeliveryRecorder interface {
	WriteWebhookDelivery(accountID string, success bool, duration time.Duration, at time.Time)
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// IdleWait is the sleep when the queue is empty (DefaultIdleWait when <= 0).
	IdleWait time.Duration

	// Recorder receives delivery outcomes (optional).
	Recorder DeliveryRecorder

	// Logger instance (optional).
	Logger Logger
}

// DispatchStats counts dispatcher outcomes since start.
type DispatchStats struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Skipped   uint64 `json:"skipped"`
}

// Dispatcher drains the queue on a single goroutine.
//
// For each account it composes a Payload and hands it to the Sender.
// Accounts without a webhook URL are skipped. Every failure, including a
// collaborator panic, is logged and the account is dropped; nothing is retried.
type Dispatcher struct {
	queue    *Queue
	dir      PayloadDirectory
	engine   Evaluator
	sender   Sender
	recorder DeliveryRecorder
	idleWait time.Duration
	logger   Logger

	delivered atomic.Uint64
	failed    atomic.Uint64
	skipped   atomic.Uint64
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(queue *Queue, dir PayloadDirectory, engine Evaluator, sender Sender, opts DispatcherOptions) *Dispatcher {
	if opts.IdleWait <= 0 {
		opts.IdleWait = DefaultIdleWait
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Dispatcher{
		queue:    queue,
		dir:      dir,
		engine:   engine,
		sender:   sender,
		recorder: opts.Recorder,
		idleWait: opts.IdleWait,
		logger:   opts.Logger,
	}
}

// Run drains the queue until ctx is cancelled.
//
// Cancellation is observed between iterations and during the idle wait. An
// in-flight delivery sees the same ctx and may abort.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("webhook dispatcher started", "idle_wait", d.idleWait)

	idle := time.NewTimer(d.idleWait)
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			d.logger.Info("webhook dispatcher stopped")
			return
		}

		if d.ProcessNext(ctx) {
			continue
		}

		idle.Reset(d.idleWait)
		select {
		case <-ctx.Done():
			d.logger.Info("webhook dispatcher stopped")
			return
		case <-idle.C:
		}
	}
}

// ProcessNext dispatches one queued account.
// Returns false if the queue was empty.
func (d *Dispatcher) ProcessNext(ctx context.Context) bool {
	accountID, ok := d.queue.Dequeue()
	if !ok {
		return false
	}

	if err := d.dispatchRecovering(ctx, accountID); err != nil {
		d.failed.Add(1)
		if errors.Is(err, ErrPanic) {
			d.logger.Error("webhook dispatch panicked",
				"account_id", accountID,
				"error", err,
			)
		} else {
			d.logger.Warn("webhook dispatch failed",
				"account_id", accountID,
				"error", err,
			)
		}
	}
	return true
}

// dispatchRecovering converts a panic raised by the directory, evaluator or
// sender into ErrPanic so the loop keeps draining.
func (d *Dispatcher) dispatchRecovering(ctx context.Context, accountID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return d.dispatch(ctx, accountID)
}

// Stats returns the outcome counters.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Skipped:   d.skipped.Load(),
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, accountID string) error {
	account, err := d.dir.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("loading account: %w", err)
	}

	target := strings.TrimSpace(account.WebhookURL)
	if target == "" {
		d.skipped.Add(1)
		d.logger.Debug("account has no webhook url, skipping", "account_id", accountID)
		return nil
	}

	payload, err := BuildPayload(ctx, d.dir, d.engine, account)
	if err != nil {
		return fmt.Errorf("building payload: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	start := time.Now()
	err = d.sender.Send(ctx, target, body)
	elapsed := time.Since(start)
	if d.recorder != nil {
		d.recorder.WriteWebhookDelivery(accountID, err == nil, elapsed, start)
	}
	if err != nil {
		return err
	}

	d.delivered.Add(1)
	d.logger.Debug("webhook delivered",
		"account_id", accountID,
		"devices", len(payload.Devices),
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}
