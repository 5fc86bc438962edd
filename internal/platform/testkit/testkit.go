// Package testkit holds helpers shared by package tests
package testkit

import (
	"sync"
	"testing"
)

var serial sync.Mutex

// Serial holds a process-wide lock until t finishes. Tests that Swap
// package variables take it so parallel tests never see the override
func Serial(t *testing.T) {
	t.Helper()
	serial.Lock()
	t.Cleanup(serial.Unlock)
}

// Swap sets *target to v and restores the old value when t finishes
func Swap[T any](t *testing.T, target *T, v T) {
	t.Helper()
	old := *target
	*target = v
	t.Cleanup(func() { *target = old })
}

// MustPanic fails t unless fn panics, and returns the recovered value
func MustPanic(t *testing.T, fn func()) (r any) {
	t.Helper()
	defer func() {
		if r = recover(); r == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
	return nil
}
