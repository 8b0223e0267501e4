package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
)

// Sink receives progress events on the consumer goroutine. Implementations do
// not need to be safe for concurrent use.
type Sink interface {
	Consume(event entity.ProgressEvent)
}

// Consumer drains the bus with a single worker so sinks observe events in
// publish order.
type Consumer struct {
	bus   *Bus
	sinks []Sink
	wg    sync.WaitGroup
}

func NewConsumer(bus *Bus, sinks ...Sink) *Consumer {
	return &Consumer{
		bus:   bus,
		sinks: sinks,
	}
}

func (c *Consumer) Start() {
	c.wg.Add(1)
	go c.worker()
}

func (c *Consumer) Stop(ctx context.Context) error {
	if c.bus != nil {
		c.bus.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()

	for event := range c.bus.Subscribe() {
		c.dispatch(event)
	}
}

func (c *Consumer) dispatch(event entity.ProgressEvent) {
	for _, sink := range c.sinks {
		c.consume(sink, event)
	}
}

// consume shields the worker from sink panics; one broken sink must not take
// the others down.
func (c *Consumer) consume(sink Sink, event entity.ProgressEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("progress sink panicked", "event_id", event.EventID, "run_id", event.RunID, "panic", r)
		}
	}()

	sink.Consume(event)
}
