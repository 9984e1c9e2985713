package firefox

import (
	"context"
	"fmt"
)

// CheckFunc inspects the session after a navigation settles. A non-nil
// error aborts the wait that ran it.
type CheckFunc func(ctx context.Context, s *Session) error

// Checker is a registered CheckFunc. Its pointer identifies the
// registration for RemoveChecker.
type Checker struct {
	Name string
	fn   CheckFunc
}

// AddChecker registers fn to run after every successful wait, after the
// checkers registered before it.
func (s *Session) AddChecker(name string, fn CheckFunc) *Checker {
	c := &Checker{Name: name, fn: fn}
	s.checkers = append(s.checkers, c)
	return c
}

// RemoveChecker unregisters c. It reports whether c was registered.
func (s *Session) RemoveChecker(c *Checker) bool {
	for i, existing := range s.checkers {
		if existing == c {
			s.checkers = append(s.checkers[:i:i], s.checkers[i+1:]...)
			return true
		}
	}
	return false
}

// Checkers returns the registered checkers in invocation order.
func (s *Session) Checkers() []*Checker {
	return append([]*Checker(nil), s.checkers...)
}

// runCheckers invokes a snapshot of the registry in order. The first error
// stops the run.
func (s *Session) runCheckers(ctx context.Context) error {
	for _, c := range s.Checkers() {
		err := c.fn(ctx, s)
		s.metrics.RecordChecker(err)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCheckerFailed, c.Name, err)
		}
	}
	return nil
}
