package cluster

import "fmt"

// UsageError reports a programmer mistake -- calling a master-only
// static method from a worker, or Worker-only statics from the
// master -- spec.md §7 kind 1. It is always a bug in the caller, never
// a transient condition, so it is distinguished from ordinary errors
// with errors.As.
type UsageError struct {
	Op  string
	Why string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("workerbus: misuse: %s: %s", e.Op, e.Why)
}

func usageErrorf(op, why string) error {
	return &UsageError{Op: op, Why: why}
}
