package cterror

import (
	"fmt"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// FailContext carries the values a failure routine needs from the test that failed.
type FailContext struct {
	TestName  string
	Node      string
	Namespace string
	LogDir    string
	Values    map[string]string
}

// FailOn routes matching failures of a wrapped test step to Routine.
//
// The wrapped step returns nil when it succeeds, or when it fails with a matching error
// that Routine handles without error. Everything else that escapes, including errors of
// Resolve or Routine, panics, and errors that do not match, is returned wrapped in an
// Exception carrying FailOnError.
//
// A Routine that returns nil swallows the failure and the test step passes. Routines
// that only clean up must hand back the error they were given to keep the step failing.
type FailOn struct {
	Routine func(err error, fc FailContext) error
	// Match selects the errors routed to Routine, nil matches any Exception.
	Match func(err error) bool
	// Resolve supplies the context handed to Routine, nil hands over an empty context.
	Resolve func() (FailContext, error)
}

func isException(err error) bool {
	_, ok := AsException(err)
	return ok
}

func (f FailOn) matches(err error) bool {
	if f.Match == nil {
		return isException(err)
	}
	return f.Match(err)
}

func (f FailOn) handle(err error) error {
	var fc FailContext
	if f.Resolve != nil {
		var rerr error
		if fc, rerr = f.Resolve(); rerr != nil {
			return rerr
		}
	}
	if f.Routine == nil {
		return err
	}
	return f.Routine(err, fc)
}

// Wrap returns fn decorated with the failure routing.
func (f FailOn) Wrap(fn func() error) func() error {
	return func() (result error) {
		defer func() {
			if r := recover(); r != nil {
				result = NewException(FailOnError, "FailOn failed: panic: %v", r)
			}
			if result != nil {
				logf.Log.Info("FailOn", "error", result)
			}
		}()

		err := fn()
		if err == nil {
			return nil
		}
		if f.matches(err) {
			err = f.handle(err)
			if err == nil {
				return nil
			}
		}
		return WrapException(err, FailOnError, "FailOn failed")
	}
}

// Call runs fn through the failure routing once.
func (f FailOn) Call(fn func() error) error {
	return f.Wrap(fn)()
}

func (fc FailContext) String() string {
	return fmt.Sprintf("test=%s node=%s namespace=%s", fc.TestName, fc.Node, fc.Namespace)
}
