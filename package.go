// Package csp provides communicating sequential processes for Go on
// top of a single-threaded, cooperatively scheduled loop. Tasks are
// lightweight coroutines that talk to each other exclusively through
// channels, written as straight-line code that suspends at well
// defined points.
//
// A Loop owns one goroutine. Every task body, channel operation and
// promise settlement happens on it, one step at a time, so channel
// queues never need locking. Tasks are spawned with Loop.Go (or built
// lazily with NewTask and started the first time they are awaited).
//
// Inside a task body, Task.Await suspends on an Instruction:
//
//   - a *Chan takes the next value from the channel
//   - Put(ch, v) hands v to the channel
//   - Race(ops...) waits for the first of several instructions
//   - a *Promise, any Future wrapped with FromFuture, or another *Task
//     waits for that value to settle
//
// Channels are unbuffered by default. NewChan(Strict(n)) lets up to n
// puts complete without a taker, NewChan(Ring(n)) never blocks
// producers and keeps only the n most recent values.
//
// Race hands a RaceToken to every candidate as its requester identity.
// The first candidate to complete claims the token; channel
// registrations made by the losers stay queued and are purged the
// next time their channel is used.
//
// Failures stay local to the task that produced them. A failed task
// that nobody awaits is dropped silently; attach Then or Wait to
// observe it.
package csp
