package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/pkg/logger"
	"github.com/chmc/wbms-api/pkg/messaging"
	"github.com/chmc/wbms-api/pkg/metrics"
	"github.com/chmc/wbms-api/pkg/repository"
)

type OutboxProcessorConfig struct {
	Channel       string
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// MaxRetries is the number of failed batches after which an event is
	// moved to the dead letter table.
	MaxRetries int
}

type OutboxProcessor struct {
	tx      repository.OutboxTransactor
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	tx repository.OutboxTransactor,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if config.Channel == "" {
		return nil, fmt.Errorf("channel must be set")
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		return nil, fmt.Errorf("retry attempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		return nil, fmt.Errorf("retry delay must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be greater than 0")
	}

	return &OutboxProcessor{
		tx:      tx,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch publishes one batch of pending events. The select and every
// status update share one transaction, so concurrent workers skip the rows
// this batch holds.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	return p.tx.WithOutboxTx(ctx, func(repo repository.OutboxRepository) error {
		events, err := repo.GetPendingEventsWithLock(ctx, p.config.BatchSize)
		if err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
			return fmt.Errorf("failed to get pending events: %w", err)
		}
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

		for _, event := range events {
			if err := p.processEvent(ctx, repo, event); err != nil {
				p.logger.Error(err, "Failed to process event",
					"event_id", event.ID.String(),
					"event_type", event.EventType)
			}
		}
		return nil
	})
}

func (p *OutboxProcessor) processEvent(ctx context.Context, repo repository.OutboxRepository, event *model.OutboxEvent) error {
	msg := messaging.Message{ID: event.ID.String(), Type: event.EventType, Payload: event.Payload}
	err := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.broker.Publish(ctx, p.config.Channel, msg)
	})
	if err == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		if err := repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
		return nil
	}

	p.metrics.OutboxEventsFailed.Inc()
	errStr := err.Error()
	if event.RetryCount+1 >= p.config.MaxRetries {
		if dlErr := repo.MoveToDeadLetter(ctx, event); dlErr != nil {
			return fmt.Errorf("failed to move event to dead letter: %w", dlErr)
		}
		if upErr := repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr, nil); upErr != nil {
			return fmt.Errorf("failed to mark event failed: %w", upErr)
		}
		return err
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := p.now().Add(backoff(p.config.RetryDelay, event.RetryCount))
	if upErr := repo.UpdateStatus(ctx, event.ID, model.OutboxStatusRetry, &errStr, &retryAt); upErr != nil {
		return fmt.Errorf("failed to schedule retry: %w", upErr)
	}
	return err
}

// backoff doubles base for every earlier failed batch, capped at one hour.
func backoff(base time.Duration, retries int) time.Duration {
	d := base
	for i := 0; i < retries && d < time.Hour; i++ {
		d *= 2
	}
	if d > time.Hour {
		d = time.Hour
	}
	return d
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
