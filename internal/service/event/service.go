package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository"
)

// Emit writes an event to the outbox. Pass the transaction-bound repository
// so the event commits with the change it describes.
func Emit(ctx context.Context, outbox repository.OutboxRepository, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
	}
	if err := outbox.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", eventType).
		Msg("event queued")
	return nil
}
