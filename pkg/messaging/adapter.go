package messaging

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Consume subscribes to channel and dispatches decoded messages to handler
// until ctx is cancelled or the subscription closes.
func Consume(ctx context.Context, broker Broker, channel string, handler Handler) error {
	msgChan, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	for raw := range msgChan {
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("Dropping undecodable message")
			continue
		}
		if err := handler(ctx, msg); err != nil {
			// the message is not redelivered; the outbox row stays processed
			log.Error().Err(err).Str("event_type", msg.Type).Str("event_id", msg.ID).Msg("Message handler failed")
		}
	}
	return ctx.Err()
}
