package csp

import (
	"errors"
	"fmt"
)

var (
	// ErrCanceled is the failure of a task whose loop was closed before
	// it settled. It is also raised inside a task body that is being
	// unwound, and by Await once the task has finished.
	ErrCanceled = errors.New("csp: task canceled")

	// ErrForeignAwait is the panic raised by Task.Await when it is
	// called from anywhere but that task's own running body, such as
	// the body of a nested task closing over its parent.
	ErrForeignAwait = errors.New("csp: Await called outside the task's own body")

	// ErrInvalidInstruction is the failure of a task that awaited
	// something the driver cannot suspend on.
	ErrInvalidInstruction = errors.New("csp: invalid instruction")

	// ErrLoopClosed is the failure of a task spawned on a closed loop.
	ErrLoopClosed = errors.New("csp: loop closed")
)

func invalidInstruction(in any, why string) error {
	return fmt.Errorf("%w %T: %s", ErrInvalidInstruction, in, why)
}
