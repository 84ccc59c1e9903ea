package csp

import (
	"errors"
	"unsafe"
)

// runtimeCoro is the runtime's coroutine handle. It is opaque and only
// ever passed back to the runtime.
type runtimeCoro struct{}

//go:linkname newcoro runtime.newcoro
func newcoro(func(*runtimeCoro)) *runtimeCoro

//go:linkname coroswitch runtime.coroswitch
func coroswitch(*runtimeCoro)

// wake is what the driver hands a parked body: the value it waited
// for or the error to raise at the suspension point.
type wake struct {
	value any
	err   error
}

// suspension is what a body hands back to the driver. While the body
// is running it carries the instruction to wait on; once the body has
// returned it carries the outcome.
type suspension struct {
	instr Instruction
	value any
	err   error
}

// stepper runs one task body as a runtime coroutine. Control moves
// between the loop goroutine and the body with coroswitch, so at most
// one of the two runs at any time. The race detector cannot see that
// handoff, so every switch releases racer on one side and acquires it
// on the other.
type stepper struct {
	c        *runtimeCoro
	in       wake
	out      suspension
	running  bool
	done     bool
	canceled bool
	perr     error
	racer    int
}

func newStepper(fn func(await func(Instruction) wake) suspension) *stepper {
	s := &stepper{}
	s.c = newcoro(func(*runtimeCoro) {
		raceAcquire(unsafe.Pointer(&s.racer))
		defer func() {
			if !s.done {
				if p := recover(); p != nil && !s.unwound(p) {
					s.perr = newPanicError(p)
				}
				s.done = true
			}
			raceRelease(unsafe.Pointer(&s.racer))
		}()

		if !s.canceled {
			s.out = fn(s.await)
		}
	})
	return s
}

// switchIn hands control to the body and returns once it awaits again
// or finishes.
func (s *stepper) switchIn() {
	s.running = true
	raceRelease(unsafe.Pointer(&s.racer))
	coroswitch(s.c)
	raceAcquire(unsafe.Pointer(&s.racer))
	s.running = false
}

// unwound reports whether p is the panic cancel used to unwind the
// body rather than a failure of the body itself.
func (s *stepper) unwound(p any) bool {
	err, ok := p.(error)
	return ok && s.canceled && errors.Is(err, ErrCanceled)
}

func (s *stepper) await(instr Instruction) wake {
	if s.done || s.canceled {
		panic(ErrCanceled)
	}
	if !s.running {
		panic(ErrForeignAwait)
	}
	s.out = suspension{instr: instr}
	raceRelease(unsafe.Pointer(&s.racer))
	coroswitch(s.c)
	raceAcquire(unsafe.Pointer(&s.racer))
	if s.canceled {
		panic(ErrCanceled)
	}
	return s.in
}

// resume runs the body until it awaits again or returns. The bool is
// false once the body is done; a panic in the body is reported as the
// final suspension's error.
func (s *stepper) resume(in wake) (suspension, bool) {
	if s.done {
		if s.perr != nil {
			return suspension{err: s.perr}, false
		}
		return suspension{err: ErrCanceled}, false
	}
	s.in = in
	s.switchIn()
	if s.perr != nil {
		return suspension{err: s.perr}, false
	}
	return s.out, !s.done
}

// cancel unwinds a parked body by panicking with ErrCanceled at its
// suspension point, running its deferred calls. It returns the panic
// raised while unwinding, if any.
func (s *stepper) cancel() error {
	if s.done {
		return nil
	}
	s.canceled = true
	s.switchIn()
	return s.perr
}
