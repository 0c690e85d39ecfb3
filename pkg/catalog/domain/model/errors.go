package model

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrValidation        = errors.New("name and price are required")
	ErrNotFound          = errors.New("not found")
	ErrConnectionClosed  = errors.New("connection already closed")
	ErrStoreNotAvailable = errors.New("store unavailable")
)

type FailureKind int

const (
	Other FailureKind = iota
	Unavailable
	Rejected
)

func (k FailureKind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Rejected:
		return "rejected"
	default:
		return "other"
	}
}

// StoreError is a classified failure talking to the store.
type StoreError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStoreNotAvailable) match unavailable failures.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreNotAvailable && e.Kind == Unavailable
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreNotAvailable)
}
