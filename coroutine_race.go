//go:build race

package csp

import (
	"runtime"
	"unsafe"
)

func raceAcquire(addr unsafe.Pointer) { runtime.RaceAcquire(addr) }

func raceRelease(addr unsafe.Pointer) { runtime.RaceReleaseMerge(addr) }
