package notify

import (
	"context"

	"github.com/podpay/fee-engine/internal/models"
	"github.com/podpay/fee-engine/internal/observability"
	"github.com/podpay/fee-engine/internal/resilience"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// FailureLog records delivery outcomes that must not be silently dropped.
type FailureLog interface {
	CreateNotificationLog(ctx context.Context, log *models.NotificationLog) error
}

// Dispatcher wraps a Notifier with retry, circuit breaking, and outcome
// logging. Delivery failures after exhausted retries are recorded as a
// notification log row and surfaced to the caller, never to an end user.
type Dispatcher struct {
	notifier Notifier
	breaker  *gobreaker.CircuitBreaker
	cfg      resilience.Config
	log      FailureLog
	logger   *zap.Logger
}

func NewDispatcher(notifier Notifier, log FailureLog, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		notifier: notifier,
		breaker:  resilience.NewCircuitBreaker(notifier.Channel()),
		cfg:      resilience.DefaultConfig(),
		log:      log,
		logger:   logger,
	}
}

// WithConfig overrides the retry parameters.
func (d *Dispatcher) WithConfig(cfg resilience.Config) *Dispatcher {
	d.cfg = cfg
	return d
}

// Dispatch delivers the message with retry and backoff, then records the
// final outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, recipient, message string, metadata map[string]string) (Result, error) {
	var result Result
	attempts, err := resilience.Retry(ctx, d.cfg, func(attemptCtx context.Context) error {
		out, cbErr := d.breaker.Execute(func() (interface{}, error) {
			return d.notifier.Send(attemptCtx, recipient, message, metadata)
		})
		if cbErr != nil {
			return cbErr
		}
		result = out.(Result)
		return nil
	})

	outcome := "delivered"
	if err != nil {
		outcome = "failed"
		d.logger.Warn("notification delivery failed",
			zap.String("channel", d.notifier.Channel()),
			zap.String("recipient", recipient),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
	}
	observability.IncrementNotification(d.notifier.Channel(), outcome)

	if d.log != nil {
		entry := &models.NotificationLog{
			Channel:    d.notifier.Channel(),
			Recipient:  recipient,
			Success:    err == nil,
			Attempts:   attempts,
			ProviderID: result.ProviderID,
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if logErr := d.log.CreateNotificationLog(ctx, entry); logErr != nil {
			d.logger.Error("record notification outcome", zap.Error(logErr))
		}
	}

	return result, err
}
