package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisher_StoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "events.approved", map[string]string{"eventId": "ev-1"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)

	id2, err := pub.Publish(context.Background(), "events.approved", map[string]string{"eventId": "ev-2"})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "events.approved", msgs[0].Topic)

	msgs[0].Topic = "modified"
	require.Equal(t, "events.approved", pub.Messages()[0].Topic)
}

func TestPublisher_FailWith(t *testing.T) {
	t.Parallel()

	pub := New()
	pub.FailWith(errors.New("broker down"))
	_, err := pub.Publish(context.Background(), "events.approved", "payload")
	require.Error(t, err)
	require.Empty(t, pub.Messages())

	pub.FailWith(nil)
	_, err = pub.Publish(context.Background(), "events.approved", "payload")
	require.NoError(t, err)
	require.Len(t, pub.Messages(), 1)
}
