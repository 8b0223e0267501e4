package event

import (
	"context"
	"errors"
	"sync"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
)

var (
	ErrBusClosed = errors.New("event bus is closed")
	ErrBusFull   = errors.New("event bus buffer is full")
)

type Bus struct {
	mu     sync.RWMutex
	closed bool
	ch     chan entity.ProgressEvent
}

func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}

	return &Bus{
		ch: make(chan entity.ProgressEvent, buffer),
	}
}

// Publish never blocks: a full buffer drops the event and reports ErrBusFull.
// Progress reporting must not be able to stall a transfer.
func (b *Bus) Publish(ctx context.Context, event entity.ProgressEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.ch <- event:
		return nil
	default:
		return ErrBusFull
	}
}

func (b *Bus) Subscribe() <-chan entity.ProgressEvent {
	return b.ch
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.ch)
}
