package csp

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"

	"github.com/webriots/csp/logging"
)

// Loop is a single-threaded cooperative scheduler. One goroutine runs
// every task step, channel operation and promise callback in FIFO
// order, so no two steps ever interleave. Work from other goroutines
// enters through Post.
type Loop struct {
	id     uuid.UUID
	name   string
	log    logging.Logger
	ctx    context.Context
	cancel context.CancelFunc

	// run is owned by the loop goroutine.
	run *queue.Queue

	mu     sync.Mutex
	inbox  []func()
	posted atomic.Bool
	tasks  map[*Task]struct{}
	seq    uint64
	closed bool

	wakeup    chan struct{}
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewLoop starts a loop on its own goroutine. Call Close to stop it.
func NewLoop(opts ...LoopOption) *Loop {
	cfg := defaultLoopConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		id:      uuid.New(),
		name:    cfg.name,
		ctx:     ctx,
		cancel:  cancel,
		run:     queue.New(),
		tasks:   make(map[*Task]struct{}),
		wakeup:  make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	l.log = logging.With(cfg.logger, "loop", l.name, "loop_id", l.id.String())

	go l.serve()
	l.log.Info("loop started")
	return l
}

// ID returns the loop's unique id.
func (l *Loop) ID() uuid.UUID { return l.id }

// Name returns the loop's name.
func (l *Loop) Name() string { return l.name }

// Post queues fn to run on the loop goroutine. It is safe to call from
// any goroutine and reports false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.inbox = append(l.inbox, fn)
	l.posted.Store(true)
	l.mu.Unlock()

	select {
	case l.wakeup <- struct{}{}:
	default:
	}
	return true
}

// schedule queues fn behind everything already queued. Loop goroutine
// only.
func (l *Loop) schedule(fn func()) {
	l.run.Add(fn)
}

func (l *Loop) drain() {
	if !l.posted.Load() {
		return
	}
	l.mu.Lock()
	inbox := l.inbox
	l.inbox = nil
	l.posted.Store(false)
	l.mu.Unlock()

	for _, fn := range inbox {
		l.run.Add(fn)
	}
}

func (l *Loop) serve() {
	defer close(l.stopped)
	for {
		select {
		case <-l.quit:
			l.shutdown()
			return
		default:
		}

		l.drain()
		if l.run.Length() == 0 {
			select {
			case <-l.wakeup:
			case <-l.quit:
				l.shutdown()
				return
			}
			continue
		}
		l.run.Remove().(func())()
	}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	l.closed = true
	l.inbox = nil
	live := make([]*Task, 0, len(l.tasks))
	for t := range l.tasks {
		live = append(live, t)
	}
	l.mu.Unlock()

	l.cancel()
	sort.Slice(live, func(i, j int) bool { return live[i].seq < live[j].seq })
	for _, t := range live {
		t.abort(ErrCanceled)
	}
	l.log.Info("loop closed", "canceled", len(live))
}

// Close stops the loop after the step in progress. Every task that
// has not settled is unwound and fails with ErrCanceled. Close is
// idempotent and must not be called from the loop goroutine.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.quit) })
	<-l.stopped
}

// Live returns the number of spawned tasks that have not settled.
func (l *Loop) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

func (l *Loop) register(t *Task) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.seq++
	t.seq = l.seq
	l.tasks[t] = struct{}{}
	return true
}

func (l *Loop) unregister(t *Task) {
	l.mu.Lock()
	delete(l.tasks, t)
	l.mu.Unlock()
}

// Go spawns fn as a new task. The task's first step runs on the loop
// after the work already queued. Go is safe to call from any
// goroutine; on a closed loop the task fails with ErrLoopClosed.
func (l *Loop) Go(fn Func, opts ...TaskOption) *Task {
	return l.Start(NewTask(fn, opts...))
}

// Start spawns a task built with NewTask. Starting a task that is
// already running, or has been awaited, is a no-op.
func (l *Loop) Start(t *Task) *Task {
	if !t.claimed.CompareAndSwap(false, true) {
		return t
	}
	if !l.register(t) {
		t.settle(nil, ErrLoopClosed)
		return t
	}
	l.Post(func() { t.start(l) })
	return t
}

// Sleep returns a promise fulfilled with nil once d has elapsed.
func (l *Loop) Sleep(d time.Duration) *Promise {
	p := NewPromise()
	time.AfterFunc(d, func() {
		l.Post(func() { p.Resolve(nil) })
	})
	return p
}

// Async runs fn on its own goroutine and returns a promise settled on
// the loop with its outcome. ctx is canceled when the loop closes. A
// panic in fn rejects the promise with a *PanicError.
func (l *Loop) Async(fn func(ctx context.Context) (any, error)) *Promise {
	p := NewPromise()
	go func() {
		v, err := l.call(fn)
		l.Post(func() {
			if err != nil {
				p.Reject(err)
				return
			}
			p.Resolve(v)
		})
	}()
	return p
}

func (l *Loop) call(fn func(ctx context.Context) (any, error)) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()
	return fn(l.ctx)
}

// Run spawns fn as the root task of a fresh loop, waits for it to
// settle and closes the loop, canceling whatever is still parked.
func Run(ctx context.Context, fn Func, opts ...LoopOption) (any, error) {
	l := NewLoop(opts...)
	defer l.Close()
	v, err := l.Go(fn, Named("main")).Wait(ctx)
	if err != nil {
		return v, fmt.Errorf("csp: run %s: %w", l.name, err)
	}
	return v, nil
}
