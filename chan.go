package csp

import (
	"github.com/eapache/queue"
)

// pendingOp is a take or put that found no partner and is waiting in
// one of the channel's queues.
type pendingOp struct {
	req   Requester
	value any
	take  func(v any, ok bool)
	put   func(ok bool)
}

func (op *pendingOp) cancel() {
	if op.take != nil {
		op.take(nil, false)
	}
	if op.put != nil {
		op.put(false)
	}
}

// waitQueue is a FIFO of pending operations with removal of finished
// requesters.
type waitQueue struct {
	ops *queue.Queue
}

func newWaitQueue() waitQueue { return waitQueue{ops: queue.New()} }

func (w waitQueue) len() int { return w.ops.Length() }

func (w waitQueue) push(op *pendingOp) { w.ops.Add(op) }

// purge drops every operation whose requester is finished, in order,
// firing its cancellation callback once the queue is whole again.
func (w waitQueue) purge() {
	var stale []*pendingOp
	n := w.ops.Length()
	for i := 0; i < n; i++ {
		op := w.ops.Remove().(*pendingOp)
		if op.req.Finished() {
			stale = append(stale, op)
			continue
		}
		w.ops.Add(op)
	}
	cancelAll(stale)
}

// shift removes and returns the oldest operation that can be matched
// against an operation of self. Operations of self itself are skipped
// so a race never rendezvous with its own candidates; the Async
// requester is shared by all callers and is never skipped. Operations
// that can no longer be claimed are dropped on the way.
func (w waitQueue) shift(self Requester) *pendingOp {
	n := w.ops.Length()
	if n == 0 {
		return nil
	}
	if op := w.ops.Peek().(*pendingOp); !sameRequester(op.req, self) && op.req.Claim() {
		w.ops.Remove()
		return op
	}

	var (
		found *pendingOp
		stale []*pendingOp
	)
	for i := 0; i < n; i++ {
		op := w.ops.Remove().(*pendingOp)
		switch {
		case found != nil || sameRequester(op.req, self):
			w.ops.Add(op)
		case op.req.Claim():
			found = op
		default:
			stale = append(stale, op)
		}
	}
	cancelAll(stale)
	return found
}

// cancelAll fires the cancellation callbacks of ops. Callbacks may
// re-enter the channel, so the queue must be consistent first.
func cancelAll(ops []*pendingOp) {
	for _, op := range ops {
		op.cancel()
	}
}

func sameRequester(a, b Requester) bool {
	return a == b && a != Async
}

// Chan is a synchronization point between producer and consumer
// tasks. Values move through it in FIFO order, optionally decoupled by
// a Buffer. A Chan belongs to the loop whose tasks use it and must
// only be touched from that loop.
type Chan struct {
	takes waitQueue
	puts  waitQueue
	buf   Buffer
}

// NewChan returns a channel using buf to decouple puts from takes. A
// nil buf makes the channel a pure rendezvous.
func NewChan(buf Buffer) *Chan {
	if buf == nil {
		buf = Strict(0)
	}
	return &Chan{
		takes: newWaitQueue(),
		puts:  newWaitQueue(),
		buf:   buf,
	}
}

func (*Chan) instruction() {}

// Len is the number of buffered values.
func (c *Chan) Len() int { return c.buf.Len() }

// Cap is the capacity of the channel's buffer.
func (c *Chan) Cap() int { return c.buf.Cap() }

// Waiting returns the number of queued takes and puts. Operations of
// finished requesters are counted until the channel's next Take or
// Put purges them.
func (c *Chan) Waiting() (takes, puts int) {
	return c.takes.len(), c.puts.len()
}

func (c *Chan) purge() {
	c.takes.purge()
	c.puts.purge()
}

// Take asks for a value on behalf of req. done receives the value with
// ok set, or ok unset if req finished before a value arrived. done may
// run before Take returns.
func (c *Chan) Take(req Requester, done func(v any, ok bool)) {
	if req.Finished() {
		done(nil, false)
		return
	}
	c.purge()

	if v, ok := c.buf.Remove(); ok {
		if p := c.puts.shift(req); p != nil {
			c.buf.Add(p.value)
			p.put(true)
		}
		req.Claim()
		done(v, true)
		return
	}

	if p := c.puts.shift(req); p != nil {
		req.Claim()
		p.put(true)
		done(p.value, true)
		return
	}

	c.takes.push(&pendingOp{req: req, take: done})
}

// Put offers v on behalf of req. done receives ok set once a taker or
// the buffer accepted v, or ok unset if req finished first. done may
// run before Put returns.
func (c *Chan) Put(req Requester, v any, done func(ok bool)) {
	if req.Finished() {
		done(false)
		return
	}
	c.purge()

	if t := c.takes.shift(req); t != nil {
		req.Claim()
		t.take(v, true)
		done(true)
		return
	}

	if c.buf.Add(v) {
		req.Claim()
		done(true)
		return
	}

	c.puts.push(&pendingOp{req: req, value: v, put: done})
}

// TakeAsync takes a value without a task. fn, if not nil, receives the
// value now or whenever a put arrives.
func (c *Chan) TakeAsync(fn func(v any)) {
	c.Take(Async, func(v any, ok bool) {
		if ok && fn != nil {
			fn(v)
		}
	})
}

// PutAsync puts v without a task. fn, if not nil, runs once v has been
// taken or buffered.
func (c *Chan) PutAsync(v any, fn func()) {
	c.Put(Async, v, func(ok bool) {
		if ok && fn != nil {
			fn()
		}
	})
}
