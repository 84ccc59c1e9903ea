package csp

import (
	"errors"
	"strings"
	"testing"
)

func TestStepperAwait(t *testing.T) {
	first, second := NewChan(nil), NewChan(nil)

	s := newStepper(func(await func(Instruction) wake) suspension {
		in := await(first)
		if in.value != 1 {
			t.Errorf("Expected input to be 1, got %v", in.value)
		}

		in = await(second)
		if in.value != 2 {
			t.Errorf("Expected input to be 2, got %v", in.value)
		}

		return suspension{value: "done"}
	})
	defer s.cancel()

	out, running := s.resume(wake{})
	if !running {
		t.Error("Expected coroutine to be running")
	}
	if out.instr != first {
		t.Errorf("Expected first instruction, got %v", out.instr)
	}

	out, running = s.resume(wake{value: 1})
	if !running {
		t.Error("Expected coroutine to be running")
	}
	if out.instr != second {
		t.Errorf("Expected second instruction, got %v", out.instr)
	}

	out, running = s.resume(wake{value: 2})
	if running {
		t.Error("Expected coroutine to be completed")
	}
	if out.value != "done" {
		t.Errorf("Expected output to be 'done', got '%v'", out.value)
	}

	_, running = s.resume(wake{value: 3})
	if running {
		t.Error("Expected coroutine to be completed")
	}
}

func TestStepperRaisesError(t *testing.T) {
	boom := errors.New("boom")

	s := newStepper(func(await func(Instruction) wake) suspension {
		in := await(NewChan(nil))
		return suspension{err: in.err}
	})

	if _, running := s.resume(wake{}); !running {
		t.Error("Expected coroutine to be running")
	}

	out, running := s.resume(wake{err: boom})
	if running {
		t.Error("Expected coroutine to be completed")
	}
	if !errors.Is(out.err, boom) {
		t.Errorf("Expected error to be boom, got '%v'", out.err)
	}
}

func TestStepperPanicRecovery(t *testing.T) {
	s := newStepper(func(await func(Instruction) wake) suspension {
		await(NewChan(nil))
		panic("test panic")
	})

	if _, running := s.resume(wake{}); !running {
		t.Error("Expected coroutine to be running")
	}

	for i := 0; i < 2; i++ {
		out, running := s.resume(wake{})
		if running {
			t.Error("Expected coroutine to be completed")
		}
		var perr *PanicError
		if !errors.As(out.err, &perr) {
			t.Fatalf("Expected *PanicError, got %T", out.err)
		}
		if perr.Error() != "test panic" {
			t.Errorf("Expected panic message 'test panic', got '%s'", perr.Error())
		}
	}
}

func TestStepperCancel(t *testing.T) {
	returned := false
	var recovered any

	s := newStepper(func(await func(Instruction) wake) suspension {
		defer func() {
			returned = true
			recovered = recover()
			panic(recovered)
		}()

		await(NewChan(nil))
		t.Error("coroutine should have been canceled")
		return suspension{}
	})

	if _, running := s.resume(wake{}); !running {
		t.Error("Expected coroutine to be running")
	}

	if err := s.cancel(); err != nil {
		t.Errorf("Expected clean cancel, got '%v'", err)
	}
	if !returned {
		t.Error("Expected returned to be true")
	}
	err, ok := recovered.(error)
	if !ok || !errors.Is(err, ErrCanceled) {
		t.Errorf("Expected body to unwind with ErrCanceled, got '%v'", recovered)
	}

	out, running := s.resume(wake{})
	if running {
		t.Error("Expected coroutine to be completed")
	}
	if !errors.Is(out.err, ErrCanceled) {
		t.Errorf("Expected ErrCanceled after cancel, got '%v'", out.err)
	}
}

func TestStepperMultipleCancels(t *testing.T) {
	s := newStepper(func(await func(Instruction) wake) suspension {
		await(NewChan(nil))
		t.Error("coroutine should have been canceled")
		return suspension{}
	})

	s.resume(wake{})
	for i := 0; i < 3; i++ {
		if err := s.cancel(); err != nil {
			t.Errorf("Expected clean cancel, got '%v'", err)
		}
	}
}

func TestStepperCancelBeforeResume(t *testing.T) {
	s := newStepper(func(await func(Instruction) wake) suspension {
		t.Error("coroutine should not start")
		return suspension{}
	})

	if err := s.cancel(); err != nil {
		t.Errorf("Expected clean cancel, got '%v'", err)
	}

	out, running := s.resume(wake{})
	if running {
		t.Error("Expected coroutine to be completed")
	}
	if !errors.Is(out.err, ErrCanceled) {
		t.Errorf("Expected ErrCanceled, got '%v'", out.err)
	}
}

func TestStepperBodyRecoversCancel(t *testing.T) {
	s := newStepper(func(await func(Instruction) wake) suspension {
		func() {
			defer func() {
				if recover() == nil {
					t.Error("Expected panic but got none")
				}
			}()
			await(NewChan(nil))
		}()
		return suspension{value: "cleaned up"}
	})

	s.resume(wake{})
	if err := s.cancel(); err != nil {
		t.Errorf("Expected clean cancel, got '%v'", err)
	}
	if s.out.value != "cleaned up" {
		t.Errorf("Expected body to return after recovering, got '%v'", s.out.value)
	}
}

func TestStepperCancelDuringDeferredPanic(t *testing.T) {
	s := newStepper(func(await func(Instruction) wake) suspension {
		defer func() {
			panic("deferred error")
		}()
		await(NewChan(nil))
		return suspension{}
	})

	s.resume(wake{})

	err := s.cancel()
	if err == nil {
		t.Fatal("Expected cancel to report the deferred panic")
	}
	if err.Error() != "deferred error" {
		t.Errorf("Expected panic message 'deferred error', got '%s'", err.Error())
	}
}

func TestStepperAwaitEscaped(t *testing.T) {
	var escaped func(Instruction) wake

	s := newStepper(func(await func(Instruction) wake) suspension {
		escaped = await
		await(NewChan(nil))
		return suspension{value: "done"}
	})

	s.resume(wake{})
	if _, running := s.resume(wake{}); running {
		t.Error("Expected coroutine to be completed")
	}

	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Error("Expected panic but got none")
			}
			err, ok := r.(error)
			if !ok {
				t.Errorf("Expected error type from panic, got %T", r)
			}
			if !errors.Is(err, ErrCanceled) {
				t.Errorf("Expected ErrCanceled, got '%v'", err)
			}
		}()
		escaped(NewChan(nil))
	}()
}

func TestStepperNestedPanicDebugString(t *testing.T) {
	s := newStepper(func(await func(Instruction) wake) suspension {
		inner := newStepper(func(await func(Instruction) wake) suspension {
			panic("test panic")
		})
		out, _ := inner.resume(wake{})
		panic(out.err)
	})

	out, running := s.resume(wake{})
	if running {
		t.Error("Expected coroutine to be completed")
	}

	var perr *PanicError
	if !errors.As(out.err, &perr) {
		t.Fatalf("Expected *PanicError, got %T", out.err)
	}
	msg := perr.DebugString()
	if strings.Count(msg, "test panic") < 2 {
		t.Errorf("Expected both panics in debug string, got:\n%s", msg)
	}
	if !strings.Contains(msg, "coroutine_test.go") {
		t.Errorf("Expected test file frames in debug string, got:\n%s", msg)
	}
}

func TestStepperAwaitWhileParked(t *testing.T) {
	var parkedAwait func(Instruction) wake

	s := newStepper(func(await func(Instruction) wake) suspension {
		parkedAwait = await
		await(NewChan(nil))
		return suspension{}
	})
	s.resume(wake{})

	func() {
		defer func() {
			err, _ := recover().(error)
			if !errors.Is(err, ErrForeignAwait) {
				t.Errorf("Expected ErrForeignAwait, got '%v'", err)
			}
		}()
		parkedAwait(NewChan(nil))
	}()

	if _, running := s.resume(wake{}); running {
		t.Error("Expected coroutine to complete after the failed await")
	}
}

func TestStepperHandoffOrdersMemory(t *testing.T) {
	// Both sides touch shared without locks; under -race this only
	// passes if every switch orders their accesses.
	shared := 0
	s := newStepper(func(await func(Instruction) wake) suspension {
		for i := 0; i < 3; i++ {
			shared++
			await(NewChan(nil))
		}
		shared++
		return suspension{}
	})

	for running := true; running; {
		_, running = s.resume(wake{})
		shared++
	}
	if shared != 8 {
		t.Errorf("Expected 8 increments, got %d", shared)
	}
}
