package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMemoryPressure = errors.New("memory pressure, poll skipped")
	ErrBodyTooLarge   = errors.New("response body too large")
)

// NetworkError is a failed connection, a timeout, a non-200 status or an
// oversized body.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error (%s): %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError is a response that is not the expected JSON document.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
