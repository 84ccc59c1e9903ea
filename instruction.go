package csp

// Instruction is something a task can suspend on with Task.Await. The
// set is closed:
//
//   - *Chan takes a value from the channel
//   - PutOp, built with Put, hands a value to a channel
//   - RaceOp, built with Race, waits for the first of its candidates
//   - *Task waits for a nested task, starting it if needed
//   - *Promise, or any Future wrapped with FromFuture, waits for it to settle
type Instruction interface {
	instruction()
}

// PutOp puts Value on Chan.
type PutOp struct {
	Chan  *Chan
	Value any
}

func (PutOp) instruction() {}

// Put returns the instruction that puts v on ch.
func Put(ch *Chan, v any) PutOp {
	return PutOp{Chan: ch, Value: v}
}

// RaceOp waits for the first of Ops to complete.
type RaceOp struct {
	Ops []Instruction
}

func (RaceOp) instruction() {}

// Race returns the instruction that waits for whichever of ops
// completes first. Awaiting it yields a Selected.
func Race(ops ...Instruction) RaceOp {
	return RaceOp{Ops: ops}
}

// Selected describes the winner of a race.
type Selected struct {
	// Index is the winner's position in the race.
	Index int
	// Op is the winning instruction.
	Op Instruction
	// Chan is the channel of a winning take or put, nil otherwise.
	Chan *Chan
	// Value is the taken value or the settled value of a future or
	// nested task. It is nil for a put.
	Value any
}

type futureOp struct {
	f Future
}

func (futureOp) instruction() {}

// FromFuture adapts any Future into an instruction.
func FromFuture(f Future) Instruction {
	if in, ok := f.(Instruction); ok {
		return in
	}
	return futureOp{f: f}
}

// validate reports why in cannot be awaited, or nil. Candidates of a
// race are checked with inRace set.
func validate(in Instruction, self *Task, inRace bool) error {
	switch op := in.(type) {
	case nil:
		return invalidInstruction(in, "nil instruction")
	case *Chan:
		if op == nil {
			return invalidInstruction(in, "nil channel")
		}
	case PutOp:
		if op.Chan == nil {
			return invalidInstruction(in, "put on nil channel")
		}
	case RaceOp:
		if inRace {
			return invalidInstruction(in, "race nested in race")
		}
		if len(op.Ops) == 0 {
			return invalidInstruction(in, "empty race")
		}
		for _, cand := range op.Ops {
			if err := validate(cand, self, true); err != nil {
				return err
			}
		}
	case *Task:
		if op == nil {
			return invalidInstruction(in, "nil task")
		}
		if op == self {
			return invalidInstruction(in, "task awaiting itself")
		}
	case *Promise:
		if op == nil {
			return invalidInstruction(in, "nil promise")
		}
	case futureOp:
		if op.f == nil {
			return invalidInstruction(in, "nil future")
		}
	default:
		return invalidInstruction(in, "unknown instruction")
	}
	return nil
}
