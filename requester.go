package csp

import "sync/atomic"

// Requester identifies who asked for a channel operation. A requester
// that reports Finished is no longer interested: its pending
// operations are purged instead of matched.
type Requester interface {
	// Finished reports whether the requester's outcome is decided.
	Finished() bool
	// Claim is called when one of the requester's operations is about
	// to complete. It returns false if the requester can no longer
	// accept a completion.
	Claim() bool
}

// RaceToken is the requester shared by every candidate of one race.
// It starts unfinished and is claimed exactly once, by the first
// candidate to complete.
type RaceToken struct {
	finished atomic.Bool
}

// NewRaceToken returns an unclaimed token.
func NewRaceToken() *RaceToken { return &RaceToken{} }

// Finished reports whether a candidate has already won.
func (r *RaceToken) Finished() bool { return r.finished.Load() }

// Claim marks the race as decided. Only the first call returns true.
func (r *RaceToken) Claim() bool { return r.finished.CompareAndSwap(false, true) }

type asyncRequester struct{}

func (asyncRequester) Finished() bool { return false }
func (asyncRequester) Claim() bool    { return true }

// Async is the fire-and-forget requester used by Chan.TakeAsync and
// Chan.PutAsync. It never finishes, so its operations are never
// purged.
var Async Requester = asyncRequester{}
