package csp

// Future is an asynchronous value settled on the loop. Then registers
// callbacks run once it settles, in registration order; nil callbacks
// are skipped.
type Future interface {
	Then(onValue func(any), onError func(error))
}

type promiseState uint8

const (
	pending promiseState = iota
	fulfilled
	rejected
)

type callbacks struct {
	onValue func(any)
	onError func(error)
}

// Promise is a single-fire Future. It settles at most once, to a value
// or to an error. Promise methods must be called from the loop; other
// goroutines settle promises through Loop.Post.
type Promise struct {
	state   promiseState
	value   any
	err     error
	waiting []callbacks
}

// NewPromise returns an unsettled promise.
func NewPromise() *Promise { return &Promise{} }

// Resolved returns a promise fulfilled with v.
func Resolved(v any) *Promise {
	p := NewPromise()
	p.Resolve(v)
	return p
}

// Rejected returns a promise rejected with err.
func Rejected(err error) *Promise {
	p := NewPromise()
	p.Reject(err)
	return p
}

func (*Promise) instruction() {}

// Resolve fulfills p with v. It reports false if p already settled.
func (p *Promise) Resolve(v any) bool {
	return p.settle(fulfilled, v, nil)
}

// Reject fails p with err. It reports false if p already settled.
func (p *Promise) Reject(err error) bool {
	return p.settle(rejected, nil, err)
}

func (p *Promise) settle(state promiseState, v any, err error) bool {
	if p.state != pending {
		return false
	}
	p.state, p.value, p.err = state, v, err
	waiting := p.waiting
	p.waiting = nil
	for _, cb := range waiting {
		p.fire(cb)
	}
	return true
}

func (p *Promise) fire(cb callbacks) {
	switch p.state {
	case fulfilled:
		if cb.onValue != nil {
			cb.onValue(p.value)
		}
	case rejected:
		if cb.onError != nil {
			cb.onError(p.err)
		}
	}
}

// Then registers callbacks for p's settlement. If p already settled
// the matching callback runs before Then returns.
func (p *Promise) Then(onValue func(any), onError func(error)) {
	cb := callbacks{onValue: onValue, onError: onError}
	if p.state == pending {
		p.waiting = append(p.waiting, cb)
		return
	}
	p.fire(cb)
}

// Settled reports whether p has settled.
func (p *Promise) Settled() bool { return p.state != pending }

// Result returns p's value and error. Both are zero while p is
// pending.
func (p *Promise) Result() (any, error) { return p.value, p.err }
