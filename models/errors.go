package models

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced to callers
var (
	ErrFeedUnavailable = errors.New("feed unavailable")
	ErrFeedFormat      = errors.New("feed format error")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrStoreIO         = errors.New("state store i/o error")
)

// Failure is a typed error carrying its kind and the underlying cause.
// errors.Is matches both the kind and anything in the cause chain.
type Failure struct {
	Kind error
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	switch {
	case f.Op != "" && f.Err != nil:
		return fmt.Sprintf("%s: %v: %v", f.Op, f.Kind, f.Err)
	case f.Err != nil:
		return fmt.Sprintf("%v: %v", f.Kind, f.Err)
	case f.Op != "":
		return fmt.Sprintf("%s: %v", f.Op, f.Kind)
	default:
		return f.Kind.Error()
	}
}

func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// Fail wraps err into a Failure of the given kind. An err that already
// carries a kind is returned as is so the original classification wins.
func Fail(kind error, op string, err error) error {
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	return &Failure{Kind: kind, Op: op, Err: err}
}

// KindOf returns the failure kind of err, or nil if it has none
func KindOf(err error) error {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return nil
}
