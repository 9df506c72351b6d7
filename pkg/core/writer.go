package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"go.uber.org/zap"
)

// Pending tracks a queued SaveAll. It resolves once the store answers.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolvedPending(err error) *Pending {
	p := newPending()
	p.resolve(err)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

// Done is closed when the save has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the save completes or ctx ends. A failed save is
// returned as *PersistenceError.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type saveJob struct {
	seq     uint64
	notes   []Note
	pending *Pending
}

type writerStats struct {
	Queued    int
	InFlight  bool
	Completed uint64
	Failed    uint64
	LastError string
}

// writer is the single goroutine allowed to call Store.SaveAll. Jobs run in
// submission order, one at a time.
type writer struct {
	store   Store
	logger  *zap.Logger
	onError func(error)
	timeout time.Duration

	mu       sync.Mutex
	queue    []saveJob
	seq      uint64
	closed   bool
	inFlight bool
	stats    writerStats

	wake    chan struct{}
	stopped chan struct{}
	cancel  context.CancelFunc
}

func newWriter(store Store, logger *zap.Logger, onError func(error), timeout time.Duration) *writer {
	return &writer{
		store:   store,
		logger:  logger,
		onError: onError,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

func (w *writer) start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		w.logger.Error("save writer panic", zap.Error(err))
	}))
}

// submit queues a save of notes. notes must already be a private copy.
func (w *writer) submit(notes []Note) (*Pending, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	w.seq++
	job := saveJob{seq: w.seq, notes: notes, pending: newPending()}
	w.queue = append(w.queue, job)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return job.pending, nil
}

// close stops accepting jobs and waits for the queue to drain. If ctx ends
// first, the in-flight save is cancelled and remaining jobs fail.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	alreadyClosed := w.closed
	w.closed = true
	w.mu.Unlock()

	if !alreadyClosed {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}

	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		w.cancel()
		<-w.stopped
		return ctx.Err()
	}
}

func (w *writer) next() (job saveJob, ok bool, closed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return saveJob{}, false, w.closed
	}
	job = w.queue[0]
	w.queue[0] = saveJob{}
	w.queue = w.queue[1:]
	w.inFlight = true
	return job, true, w.closed
}

func (w *writer) run(ctx context.Context) error {
	defer close(w.stopped)
	defer w.cancel()

	for {
		job, ok, closed := w.next()
		if ok {
			if err := ctx.Err(); err != nil {
				w.finish(job, err)
				w.abandon(err)
				return nil
			}
			w.save(ctx, job)
			continue
		}
		if closed {
			return nil
		}
		select {
		case <-w.wake:
		case <-ctx.Done():
			w.abandon(ctx.Err())
			return nil
		}
	}
}

func (w *writer) save(ctx context.Context, job saveJob) {
	saveCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	w.finish(job, w.callStore(saveCtx, job.notes))
}

// finish records the outcome of job and resolves its Pending.
func (w *writer) finish(job saveJob, err error) {
	w.mu.Lock()
	w.inFlight = false
	if err != nil {
		w.stats.Failed++
		w.stats.LastError = err.Error()
	} else {
		w.stats.Completed++
	}
	w.mu.Unlock()

	if err != nil {
		perr := &PersistenceError{Op: "save", Err: err}
		w.logger.Error("save failed",
			zap.Uint64("seq", job.seq),
			zap.Int("count", len(job.notes)),
			zap.Error(err),
		)
		if w.onError != nil {
			w.onError(perr)
		}
		job.pending.resolve(perr)
		return
	}

	w.logger.Debug("saved collection", zap.Uint64("seq", job.seq), zap.Int("count", len(job.notes)))
	job.pending.resolve(nil)
}

// callStore shields the writer goroutine from a panicking store.
func (w *writer) callStore(ctx context.Context, notes []Note) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store panic: %v", r)
		}
	}()
	return w.store.SaveAll(ctx, notes)
}

func (w *writer) abandon(cause error) {
	w.mu.Lock()
	queue := w.queue
	w.queue = nil
	w.mu.Unlock()

	for _, job := range queue {
		job.pending.resolve(&PersistenceError{Op: "save", Err: cause})
	}
}

func (w *writer) snapshot() writerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.stats
	s.Queued = len(w.queue)
	s.InFlight = w.inFlight
	return s
}
