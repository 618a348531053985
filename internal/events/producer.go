package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var (
	ErrProducerClosed = errors.New("producer closed")
	ErrBufferFull     = errors.New("producer buffer full")
)

// Producer publishes envelopes to one Kafka topic from a background
// goroutine. Publish never waits on the broker.
type Producer struct {
	w      *kafka.Writer
	inbox  chan kafka.Message
	done   chan struct{}
	logger *log.Logger

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int, logger *log.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:  make(chan kafka.Message, buf),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the writer loop. It exits once Close has drained the inbox.
func (p *Producer) Start() {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.logger.Printf("events: write key=%s error=%v", m.Key, err)
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.logger.Printf("events: close writer error=%v", err)
		}
	}()
}

func (p *Producer) Publish(ctx context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(env.CorrelationID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte(fmt.Sprint(env.EventVersion))},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.Printf("events: dropped %s for %s, buffer full", env.EventType, env.CorrelationID)
		return ErrBufferFull
	}
}

// Close stops accepting events, flushes what is buffered and waits for the
// writer loop to finish.
func (p *Producer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}
