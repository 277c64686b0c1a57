package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DeliveryOutcome is the result of a best-effort code delivery.
type DeliveryOutcome int

const (
	DeliverySkipped DeliveryOutcome = iota
	DeliverySent
	DeliveryFailed
)

func (o DeliveryOutcome) String() string {
	switch o {
	case DeliverySent:
		return "sent"
	case DeliveryFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// DefaultDeliveryTimeout bounds a single Notifier call.
const DefaultDeliveryTimeout = 10 * time.Second

// Alerter is told about failed deliveries (the user cannot verify until a resend works).
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// Courier wraps a Notifier with the delivery policy: bounded time, never fatal,
// every outcome counted and failures logged and alerted.
type Courier struct {
	notifier Notifier
	timeout  time.Duration
	counter  metric.Int64Counter
	alerter  Alerter
	logger   *slog.Logger
}

func NewCourier(notifier Notifier, timeout time.Duration, meter metric.Meter, alerter Alerter, logger *slog.Logger) (*Courier, error) {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	counter, err := meter.Int64Counter("homesync.otp.deliveries",
		metric.WithDescription("Verification code deliveries by outcome"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, fmt.Errorf("delivery counter: %w", err)
	}
	return &Courier{
		notifier: notifier,
		timeout:  timeout,
		counter:  counter,
		alerter:  alerter,
		logger:   logger,
	}, nil
}

// Deliver detaches from the caller's cancellation so a client hang-up does not abort a
// send already in flight; the timeout still applies.
func (c *Courier) Deliver(ctx context.Context, userID, address, code string) DeliveryOutcome {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	err := c.notifier.Deliver(sendCtx, address, code)
	if err == nil {
		c.counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", DeliverySent.String()),
		))
		return DeliverySent
	}

	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	c.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", DeliveryFailed.String()),
		attribute.String("reason", reason),
	))
	c.logger.WarnContext(ctx, "verification code delivery failed",
		"user_id", userID, "reason", reason, "err", err)

	if c.alerter != nil {
		text := fmt.Sprintf("HomeSync: verification code delivery failed for user %s (%s)", userID, reason)
		if aerr := c.alerter.Alert(ctx, text); aerr != nil {
			c.logger.WarnContext(ctx, "delivery alert failed", "err", aerr)
		}
	}
	return DeliveryFailed
}
