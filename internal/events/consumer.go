package events

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one envelope. Returning nil commits the message offset.
type Handler func(ctx context.Context, env Envelope) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	retryBase = 200 * time.Millisecond
	retryMax  = 5 * time.Second
)

type Consumer struct {
	r       messageReader
	workers int
	logger  *log.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, logger *log.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	return newConsumer(r, workers, logger)
}

func newConsumer(r messageReader, workers int, logger *log.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Consumer{r: r, workers: workers, logger: logger}
}

// Start reads until ctx is cancelled. Each partition is handled by a single
// worker in offset order. A failing message is retried with backoff and
// blocks its partition, so no later offset is committed past it. Messages
// that fail to decode are committed and skipped.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				// after cancellation the rest of the lane is dropped
				// uncommitted and redelivered on restart
				if ctx.Err() != nil {
					continue
				}
				c.handle(ctx, h, m)
			}
		}(lanes[i])
	}
	defer wg.Wait()
	defer func() {
		for _, l := range lanes {
			close(l)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case lanes[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		c.logger.Printf("events: skip undecodable message partition=%d offset=%d error=%v", m.Partition, m.Offset, err)
		c.commit(ctx, m)
		return
	}
	for attempt := 1; ; attempt++ {
		err := h(ctx, env)
		if err == nil {
			c.commit(ctx, m)
			return
		}
		c.logger.Printf("events: handle %s id=%s attempt=%d error=%v", env.EventType, env.EventID, attempt, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff(attempt)):
		}
	}
}

func backoff(attempt int) time.Duration {
	d := retryBase * time.Duration(attempt)
	if d > retryMax {
		return retryMax
	}
	return d
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.r.CommitMessages(ctx, m); err != nil {
		c.logger.Printf("events: commit partition=%d offset=%d error=%v", m.Partition, m.Offset, err)
	}
}
