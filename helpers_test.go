package csp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testTimeout = 10 * time.Second

// runTask runs fn as the root task of a fresh loop.
func runTask(t *testing.T, fn Func) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	return Run(ctx, fn)
}

// newTestLoop returns a loop closed when the test ends.
func newTestLoop(t *testing.T, opts ...LoopOption) *Loop {
	t.Helper()
	l := NewLoop(opts...)
	t.Cleanup(l.Close)
	return l
}

func wait(t *testing.T, task *Task) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	return task.Wait(ctx)
}

// assertSettled checks the channel invariants that hold after every
// operation, ignoring stale entries that have not been purged yet.
func assertSettled(t *testing.T, ch *Chan) {
	t.Helper()
	assert.LessOrEqual(t, ch.Len(), ch.Cap())
	takes, puts := ch.Waiting()
	if takes > 0 {
		assert.Zero(t, ch.Len(), "takers wait only on an empty buffer")
		assert.Zero(t, puts, "takers and putters never wait together")
	}
	if puts > 0 {
		assert.Equal(t, ch.Cap(), ch.Len(), "putters wait only on a full buffer")
	}
}

// logRecorder collects entries appended from the loop goroutine.
type logRecorder struct {
	entries []string
}

func (r *logRecorder) add(s string) { r.entries = append(r.entries, s) }
