package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chmc/wbms-api/internal/model"
)

// OutboxRepository is the part of the outbox store used by pkg/worker.
type OutboxRepository interface {
	GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
	MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// OutboxTransactor runs fn against an outbox repository bound to a single
// transaction. Locks taken by GetPendingEventsWithLock are held until fn
// returns, and the status updates made in fn commit with it.
type OutboxTransactor interface {
	WithOutboxTx(ctx context.Context, fn func(OutboxRepository) error) error
}
