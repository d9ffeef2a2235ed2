package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBus_PreservesPerKeyOrder(t *testing.T) {
	b := NewInMemoryBus(10)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var mu sync.Mutex
	var received []string

	go func() {
		_ = b.RunWithBatch(ctx, func(ctx context.Context, batch []Message) error {
			mu.Lock()
			for _, m := range batch {
				received = append(received, string(m.Value))
			}
			mu.Unlock()
			return nil
		}, 5, 20*time.Millisecond)
	}()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Send(ctx, Message{Key: "svc-a", Value: []byte{byte(i)}}))
	}

	time.Sleep(100 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 5)
	assert.Equal(t, []string{"\x00", "\x01", "\x02", "\x03", "\x04"}, received)
}

func TestInMemoryBus_SendAfterCloseFails(t *testing.T) {
	b := NewInMemoryBus(1)
	require.NoError(t, b.Close())

	err := b.Send(context.Background(), Message{Key: "svc-a", Value: []byte("x")})
	assert.ErrorIs(t, err, ErrBusClosed)
}
