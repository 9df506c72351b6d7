package core

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const defaultEventBuffer = 100

// Broker fans collection changes out to listeners.
// Listeners run synchronously on the goroutine that mutated the collection.
type Broker struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Change)
	order     []int
	buffer    int
	logger    *zap.Logger
}

func newBroker(buffer int, logger *zap.Logger) *Broker {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &Broker{
		listeners: make(map[int]func(Change)),
		buffer:    buffer,
		logger:    logger,
	}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Broker) Subscribe(fn func(Change)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Watch returns a buffered stream of changes that is closed when ctx ends.
// A slow reader never blocks the Manager: when the buffer is full the
// oldest change is dropped, the newest always carries the full collection.
func (b *Broker) Watch(ctx context.Context) <-chan Change {
	ch := make(chan Change, b.buffer)

	var mu sync.Mutex
	closed := false

	unsubscribe := b.Subscribe(func(c Change) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		for {
			select {
			case ch <- c:
				return
			default:
			}
			select {
			case <-ch:
				b.logger.Debug("change buffer full, dropping oldest change")
			default:
			}
		}
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}

// Len returns the number of registered listeners.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Broker) publish(c Change) {
	b.mu.Lock()
	fns := make([]func(Change), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.listeners[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		delivered := c
		delivered.Notes = CloneNotes(c.Notes)
		b.deliver(fn, delivered)
	}
}

func (b *Broker) deliver(fn func(Change), c Change) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("change listener panicked",
				zap.String("change", c.String()),
				zap.Error(fmt.Errorf("%v", r)),
			)
		}
	}()
	fn(c)
}
