package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNilBus(t *testing.T) {
	var b *Bus

	require.Error(t, b.Publish(context.Background(), "afterseed.seeders.applied", map[string]string{}))
	require.Error(t, b.EnsureStream("AFTERSEED", "afterseed.>"))

	_, err := b.Subscribe(context.Background(), "afterseed.>", "watch", func(context.Context, []byte) error { return nil })
	require.Error(t, err)

	b.Close()
}

func TestNewFailsWithoutServer(t *testing.T) {
	_, err := New("nats://127.0.0.1:1")
	require.Error(t, err)
}
