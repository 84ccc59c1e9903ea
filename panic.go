package csp

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// PanicError is the failure of a task whose body panicked. It keeps
// the panic value and the stack of the task's coroutine at the point
// of the panic.
type PanicError struct {
	value any
	stack []byte
}

// Value returns the value passed to panic.
func (p *PanicError) Value() any { return p.value }

// Stack returns the stack captured when the panic was recovered.
func (p *PanicError) Stack() []byte { return p.stack }

func (p *PanicError) Error() string {
	return fmt.Sprintf("%v", p.value)
}

// ErrorWithStack returns the panic value followed by its stack.
func (p *PanicError) ErrorWithStack() string {
	return fmt.Sprintf("%v\n\n%s", p.value, p.stack)
}

// Unwrap returns the panic value if it is an error.
func (p *PanicError) Unwrap() error {
	err, ok := p.value.(error)
	if !ok {
		return nil
	}
	return err
}

// DebugString renders p and every error reachable from it, each
// *PanicError with its stack. A task that failed awaiting a panicking
// nested task therefore shows both stacks, outermost first.
func (p *PanicError) DebugString() string {
	var (
		sb      strings.Builder
		seen    = make(map[error]bool)
		pending = []error{p}
	)
	for len(pending) > 0 {
		e := pending[0]
		pending = pending[1:]
		if e == nil || seen[e] {
			continue
		}
		seen[e] = true

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if pe, ok := e.(*PanicError); ok {
			sb.WriteString(pe.ErrorWithStack())
		} else {
			sb.WriteString(e.Error())
		}

		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			pending = append(pending, u.Unwrap()...)
		case interface{ Unwrap() error }:
			pending = append(pending, u.Unwrap())
		}
	}
	return sb.String()
}

func newPanicError(v any) *PanicError {
	return &PanicError{
		value: v,
		stack: debug.Stack(),
	}
}
