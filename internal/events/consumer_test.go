package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace-api/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.Message(nil), r.committed...)
}

func orderMessage(t *testing.T, partition int, offset int64, orderID string) kafka.Message {
	t.Helper()
	env, err := NewOrderEvent("api", EventOrderCreated, domain.Order{ID: orderID})
	require.NoError(t, err)
	value, err := json.Marshal(env)
	require.NoError(t, err)
	return kafka.Message{Partition: partition, Offset: offset, Value: value}
}

func TestConsumerRetriesBeforeCommittingLaterOffsets(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{
		orderMessage(t, 0, 0, "o1"),
		orderMessage(t, 0, 1, "o2"),
		orderMessage(t, 1, 0, "o3"),
		{Partition: 1, Offset: 1, Value: []byte("not json")},
	}}
	c := newConsumer(reader, 2, nil)

	var (
		mu       sync.Mutex
		failures = map[string]int{"o1": 1}
		handled  []string
	)
	h := func(_ context.Context, env Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		if failures[env.CorrelationID] > 0 {
			failures[env.CorrelationID]--
			return errors.New("transient")
		}
		handled = append(handled, env.CorrelationID)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 4 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	var partition0 []int64
	for _, m := range reader.commits() {
		if m.Partition == 0 {
			partition0 = append(partition0, m.Offset)
		}
	}
	assert.Equal(t, []int64{0, 1}, partition0)
	assert.ElementsMatch(t, []string{"o1", "o2", "o3"}, handled)
}

func TestConsumerLeavesFailingMessageUncommittedOnShutdown(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{
		orderMessage(t, 0, 0, "o1"),
		orderMessage(t, 0, 1, "o2"),
	}}
	c := newConsumer(reader, 1, nil)

	attempts := make(chan struct{}, 16)
	h := func(_ context.Context, env Envelope) error {
		if env.CorrelationID == "o1" {
			attempts <- struct{}{}
			return errors.New("redis down")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	<-attempts
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, reader.commits())
}

func TestBackoffIsCapped(t *testing.T) {
	assert.Equal(t, retryBase, backoff(1))
	assert.Equal(t, retryMax, backoff(1000))
}
