package csp

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/webriots/csp/logging"
)

// Func is a task body. It runs on the task's own coroutine and
// suspends with t.Await. Returning settles the task; so does a panic,
// which fails it with a *PanicError.
type Func func(t *Task) (any, error)

// Task is one cooperatively scheduled computation. Its completion is
// a single-fire Promise, so a Task can be awaited, raced or observed
// with Then any number of times and always reports the same outcome.
type Task struct {
	id      uuid.UUID
	name    string
	fn      Func
	seq     uint64
	claimed atomic.Bool

	loop     *Loop
	log      logging.Logger
	co       *stepper
	await    func(Instruction) wake
	parked   bool
	finished bool
	done     *Promise

	settled chan struct{}
	value   any
	err     error
}

// NewTask returns a task that has not started. It starts when it is
// first awaited by another task or passed to Loop.Start. It panics if
// fn is nil.
func NewTask(fn Func, opts ...TaskOption) *Task {
	if fn == nil {
		panic("csp: NewTask requires a non-nil func")
	}
	id := uuid.New()
	cfg := taskConfig{name: "task-" + id.String()[:8]}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Task{
		id:      id,
		name:    cfg.name,
		fn:      fn,
		done:    NewPromise(),
		settled: make(chan struct{}),
	}
}

func (*Task) instruction() {}

// ID returns the task's unique id.
func (t *Task) ID() uuid.UUID { return t.id }

// Name returns the task's name.
func (t *Task) Name() string { return t.name }

// Loop returns the loop running t, or nil before t starts.
func (t *Task) Loop() *Loop { return t.loop }

// Finished reports whether t has settled. A finished task is a
// cancelled requester: channels drop its pending operations.
func (t *Task) Finished() bool { return t.finished }

// Claim reports whether t can still accept a completion.
func (t *Task) Claim() bool { return !t.finished }

// Then registers callbacks for t's outcome. Loop goroutine only.
func (t *Task) Then(onValue func(any), onError func(error)) {
	t.done.Then(onValue, onError)
}

// Done returns a channel closed once t settles.
func (t *Task) Done() <-chan struct{} { return t.settled }

// Wait blocks until t settles or ctx is done. It must not be called
// from a task body; use Await there.
func (t *Task) Wait(ctx context.Context) (any, error) {
	select {
	case <-t.settled:
		return t.value, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Await suspends t until in completes and returns its outcome. It may
// only be called from t's own body; elsewhere it panics with
// ErrForeignAwait.
func (t *Task) Await(in Instruction) (any, error) {
	if t.await == nil {
		panic(ErrForeignAwait)
	}
	w := t.await(in)
	return w.value, w.err
}

// Take takes the next value from ch.
func (t *Task) Take(ch *Chan) (any, error) {
	return t.Await(ch)
}

// Put hands v to ch and returns once it was taken or buffered.
func (t *Task) Put(ch *Chan, v any) error {
	_, err := t.Await(Put(ch, v))
	return err
}

// Select races ops and returns the winner.
func (t *Task) Select(ops ...Instruction) (Selected, error) {
	v, err := t.Await(Race(ops...))
	if err != nil {
		return Selected{}, err
	}
	return v.(Selected), nil
}

// Sleep suspends t for d.
func (t *Task) Sleep(d time.Duration) error {
	_, err := t.Await(t.loop.Sleep(d))
	return err
}

// Go spawns fn on t's loop.
func (t *Task) Go(fn Func, opts ...TaskOption) *Task {
	return t.loop.Go(fn, opts...)
}

// As awaits in and converts its value to T. A nil value converts to
// the zero T.
func As[T any](t *Task, in Instruction) (T, error) {
	var zero T
	v, err := t.Await(in)
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("csp: awaited %T, want %T", v, zero)
	}
	return out, nil
}

func (t *Task) start(l *Loop) {
	t.loop = l
	t.log = logging.With(l.log, "task", t.name)
	t.co = newStepper(func(await func(Instruction) wake) suspension {
		t.await = await
		v, err := t.fn(t)
		return suspension{value: v, err: err}
	})
	t.log.Debug("task started", "task_id", t.id.String())
	l.schedule(func() { t.step(wake{}) })
}

// startLazily starts a nested task on l the first time it is awaited.
func (t *Task) startLazily(l *Loop) {
	if !t.claimed.CompareAndSwap(false, true) {
		return
	}
	if !l.register(t) {
		t.settle(nil, ErrLoopClosed)
		return
	}
	t.start(l)
}

func (t *Task) step(in wake) {
	if t.finished {
		return
	}
	out, running := t.co.resume(in)
	if !running {
		t.settle(out.value, out.err)
		return
	}
	t.dispatch(out.instr)
}

// resumeLater queues the next step of a parked task. Completions that
// arrive while t is not parked are dropped.
func (t *Task) resumeLater(v any, err error) {
	if !t.parked || t.finished {
		return
	}
	t.parked = false
	t.loop.schedule(func() { t.step(wake{value: v, err: err}) })
}

func (t *Task) dispatch(in Instruction) {
	if err := validate(in, t, false); err != nil {
		t.log.Warn("invalid instruction", "error", err)
		t.fail(err)
		return
	}

	t.parked = true
	switch op := in.(type) {
	case *Chan:
		op.Take(t, func(v any, ok bool) {
			if ok {
				t.resumeLater(v, nil)
			}
		})
	case PutOp:
		op.Chan.Put(t, op.Value, func(ok bool) {
			if ok {
				t.resumeLater(nil, nil)
			}
		})
	case RaceOp:
		t.race(op)
	case *Task:
		op.startLazily(t.loop)
		op.Then(t.resolved, t.rejected)
	case *Promise:
		op.Then(t.resolved, t.rejected)
	case futureOp:
		op.f.Then(t.resolved, t.rejected)
	}
}

func (t *Task) resolved(v any)     { t.resumeLater(v, nil) }
func (t *Task) rejected(err error) { t.resumeLater(nil, err) }

// fail unwinds t's body and settles it with err without resuming it.
func (t *Task) fail(err error) {
	if perr := t.co.cancel(); perr != nil {
		t.log.Debug("panic while unwinding task", "error", perr)
	}
	t.settle(nil, err)
}

// abort is fail for a task that may never have started.
func (t *Task) abort(err error) {
	if t.finished {
		return
	}
	if t.co != nil {
		if perr := t.co.cancel(); perr != nil {
			t.log.Debug("panic while unwinding task", "error", perr)
		}
	}
	t.settle(nil, err)
}

func (t *Task) settle(v any, err error) {
	if t.finished {
		return
	}
	t.finished = true
	t.parked = false
	t.value, t.err = v, err
	if t.loop != nil {
		t.loop.unregister(t)
	}
	close(t.settled)

	if t.log != nil {
		if err != nil {
			t.log.Debug("task failed", "error", err)
		} else {
			t.log.Debug("task done")
		}
	}
	if err != nil {
		t.done.Reject(err)
		return
	}
	t.done.Resolve(v)
}
