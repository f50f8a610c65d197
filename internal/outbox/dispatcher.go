// internal/outbox/dispatcher.go
package outbox

import (
	"context"
	"time"

	"cites-permits/internal/common/logger"
	"cites-permits/internal/common/metrics"
)

// Gateway renders and sends one notification.
type Gateway interface {
	Send(ctx context.Context, template Template, recipient string, payload map[string]interface{}) error
}

// Alerter carries the operational alert raised when a mandatory
// notification exhausts every retry.
type Alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

// DispatcherConfig tunes the delivery loop.
type DispatcherConfig struct {
	PollInterval time.Duration
	SendTimeout  time.Duration
	MaxAttempts  int
	InitialDelay time.Duration
	BatchSize    int
}

// Dispatcher polls the queue and delivers due notifications. Failed
// attempts back off exponentially; a mandatory message that runs out of
// attempts raises an alert instead of surfacing to any client.
type Dispatcher struct {
	queue   Queue
	gateway Gateway
	alerter Alerter
	config  DispatcherConfig
	logger  logger.Logger
	now     func() time.Time
}

func NewDispatcher(queue Queue, gateway Gateway, alerter Alerter, config DispatcherConfig, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		gateway: gateway,
		alerter: alerter,
		config:  config,
		logger:  log.WithFields(map[string]interface{}{"component": "outbox-dispatcher"}),
		now:     time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", map[string]interface{}{
		"pollInterval": d.config.PollInterval.String(),
		"maxAttempts":  d.config.MaxAttempts,
	})

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped", nil)
			return
		case <-ticker.C:
			d.DispatchDue(ctx)
		}
	}
}

// DispatchDue processes one batch of due messages.
func (d *Dispatcher) DispatchDue(ctx context.Context) {
	msgs, err := d.queue.ClaimDue(ctx, d.config.BatchSize)
	if err != nil {
		d.logger.Error("claim failed", map[string]interface{}{"error": err})
		return
	}

	for _, msg := range msgs {
		d.dispatch(ctx, msg)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, msg *Message) {
	sendCtx, cancel := context.WithTimeout(ctx, d.config.SendTimeout)
	err := d.gateway.Send(sendCtx, msg.Template, msg.Recipient, msg.Payload)
	cancel()

	if err == nil {
		if err := d.queue.MarkSent(ctx, msg.ID); err != nil {
			d.logger.Error("mark sent failed", map[string]interface{}{
				"error":     err,
				"messageId": msg.ID,
			})
			return
		}
		metrics.NotificationsSentTotal.WithLabelValues(string(msg.Template)).Inc()
		d.logger.Info("notification delivered", map[string]interface{}{
			"messageId":     msg.ID,
			"applicationId": msg.ApplicationID,
			"template":      string(msg.Template),
			"attempts":      msg.Attempts + 1,
		})
		return
	}

	metrics.NotificationsFailedTotal.WithLabelValues(string(msg.Template)).Inc()
	attempts := msg.Attempts + 1

	if attempts >= d.config.MaxAttempts {
		d.exhaust(ctx, msg, err)
		return
	}

	next := d.now().Add(d.backoff(attempts))
	if err := d.queue.Reschedule(ctx, msg.ID, attempts, next); err != nil {
		d.logger.Error("reschedule failed", map[string]interface{}{
			"error":     err,
			"messageId": msg.ID,
		})
		return
	}
	d.logger.Warn("notification send failed, rescheduled", map[string]interface{}{
		"error":         err,
		"messageId":     msg.ID,
		"applicationId": msg.ApplicationID,
		"template":      string(msg.Template),
		"attempts":      attempts,
		"nextAttemptAt": next.UTC().Format(time.RFC3339),
	})
}

func (d *Dispatcher) exhaust(ctx context.Context, msg *Message, sendErr error) {
	if err := d.queue.MarkExhausted(ctx, msg.ID, msg.Mandatory); err != nil {
		d.logger.Error("mark exhausted failed", map[string]interface{}{
			"error":     err,
			"messageId": msg.ID,
		})
		return
	}

	if !msg.Mandatory {
		d.logger.Warn("best-effort notification abandoned", map[string]interface{}{
			"messageId":     msg.ID,
			"applicationId": msg.ApplicationID,
			"template":      string(msg.Template),
			"error":         sendErr,
		})
		return
	}

	metrics.NotificationsExhaustedTotal.WithLabelValues(string(msg.Template)).Inc()
	d.logger.Error("mandatory notification undeliverable", map[string]interface{}{
		"messageId":     msg.ID,
		"applicationId": msg.ApplicationID,
		"template":      string(msg.Template),
		"error":         sendErr,
	})

	if d.alerter == nil {
		return
	}
	subject := "Undeliverable permit notification"
	body := "Mandatory notification " + msg.ID + " (" + string(msg.Template) +
		") for application " + msg.ApplicationID + " exhausted every retry: " + sendErr.Error()
	if err := d.alerter.Alert(ctx, subject, body); err != nil {
		d.logger.Error("operational alert failed", map[string]interface{}{
			"error":     err,
			"messageId": msg.ID,
		})
	}
}

// backoff doubles the initial delay per completed attempt.
func (d *Dispatcher) backoff(attempts int) time.Duration {
	delay := d.config.InitialDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}
