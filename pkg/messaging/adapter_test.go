package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanBroker struct {
	ch        chan []byte
	subscribe error
}

func (b *chanBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.ch <- raw
	return nil
}

func (b *chanBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	if b.subscribe != nil {
		return nil, b.subscribe
	}
	return b.ch, nil
}

func (b *chanBroker) Close() error { return nil }

func TestConsumeDispatchesDecodedMessages(t *testing.T) {
	b := &chanBroker{ch: make(chan []byte, 4)}
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, "wbms.events", Message{ID: "1", Type: "examination.created", Payload: json.RawMessage(`{"examination_id":3}`)}))
	b.ch <- []byte("not json")
	require.NoError(t, b.Publish(ctx, "wbms.events", Message{ID: "2", Type: "examination.document_edited", Payload: json.RawMessage(`{}`)}))
	close(b.ch)

	var got []string
	err := Consume(ctx, b, "wbms.events", func(ctx context.Context, msg Message) error {
		got = append(got, msg.Type)
		return errors.New("handler errors do not stop consumption")
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"examination.created", "examination.document_edited"}, got)
}

func TestConsumeReturnsSubscribeError(t *testing.T) {
	b := &chanBroker{subscribe: errors.New("no redis")}
	err := Consume(context.Background(), b, "wbms.events", func(context.Context, Message) error { return nil })
	assert.EqualError(t, err, "no redis")
}
