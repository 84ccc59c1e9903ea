package csp

// race registers every candidate of op with one shared token, in
// order. The first completion claims the token and resumes t; the
// rest see a finished token and do nothing. Channel candidates that
// never matched stay queued until their channel purges them.
func (t *Task) race(op RaceOp) {
	tok := NewRaceToken()
	for i, cand := range op.Ops {
		t.enter(tok, i, cand)
	}
}

func (t *Task) enter(tok *RaceToken, i int, cand Instruction) {
	switch c := cand.(type) {
	case *Chan:
		c.Take(tok, func(v any, ok bool) {
			if !ok {
				t.disqualified(i)
				return
			}
			t.resumeLater(Selected{Index: i, Op: c, Chan: c, Value: v}, nil)
		})
	case PutOp:
		c.Chan.Put(tok, c.Value, func(ok bool) {
			if !ok {
				t.disqualified(i)
				return
			}
			t.resumeLater(Selected{Index: i, Op: c, Chan: c.Chan}, nil)
		})
	case *Task:
		c.startLazily(t.loop)
		t.observe(tok, i, c, c)
	case *Promise:
		t.observe(tok, i, c, c)
	case futureOp:
		t.observe(tok, i, c, c.f)
	}
}

// observe arms a future candidate. Channels claim the token when they
// match; futures claim it here, when they settle.
func (t *Task) observe(tok *RaceToken, i int, op Instruction, f Future) {
	f.Then(func(v any) {
		if tok.Claim() {
			t.resumeLater(Selected{Index: i, Op: op, Value: v}, nil)
		}
	}, func(err error) {
		if tok.Claim() {
			t.resumeLater(nil, err)
		}
	})
}

func (t *Task) disqualified(i int) {
	if t.log != nil {
		t.log.Debug("race candidate disqualified", "index", i)
	}
}
