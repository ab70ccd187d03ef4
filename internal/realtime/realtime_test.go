package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisherRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	changes, err := Subscribe(ctx, client, "")
	require.NoError(t, err)

	pub := NewRedisPublisher(client, "")
	require.NoError(t, pub.Publish(ctx, Change{Table: TableOrders, Action: ActionUpdate, ID: "o-1"}))

	select {
	case got := <-changes:
		require.Equal(t, TableOrders, got.Table)
		require.Equal(t, "o-1", got.ID)
		require.False(t, got.At.IsZero())
	case <-ctx.Done():
		t.Fatal("change not delivered")
	}
}

type recordingWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysMessages(t *testing.T) {
	w := &recordingWriter{}
	pub := NewKafkaPublisher(w)
	require.NoError(t, pub.Publish(context.Background(), Change{Table: TableProducts, Action: ActionUpdate, ID: "p-9"}))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "products-update-p-9", string(w.msgs[0].Key))

	var decoded Change
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	require.Equal(t, TableProducts, decoded.Table)

	require.NoError(t, pub.Close())
	require.True(t, w.closed)
}
