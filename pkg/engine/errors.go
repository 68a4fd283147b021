package engine

import (
	"errors"
	"fmt"
)

type Code int

const (
	CodeUnknown Code = iota
	CodeNotReady
	CodeLoadFailed
	CodeInference
	CodeResourceExhausted
	CodeTimeout
)

func (c Code) String() string {
	switch c {
	case CodeNotReady:
		return "not_ready"
	case CodeLoadFailed:
		return "load_failed"
	case CodeInference:
		return "inference"
	case CodeResourceExhausted:
		return "resource_exhausted"
	case CodeTimeout:
		return "timeout"
	}

	return "unknown"
}

type engineErr struct {
	Code Code
	Err  error
}

func (e *engineErr) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *engineErr) Unwrap() error {
	return e.Err
}

// ErrCode classifies an error so HTTP status mapping can differ per
// failure mode.
func ErrCode(e error) Code {
	var err *engineErr
	if ok := errors.As(e, &err); ok {
		return err.Code
	}

	return CodeUnknown
}

// NewError wraps err with a classification code. Engine implementations
// outside this package report classified failures through it.
func NewError(code Code, err error) error {
	return &engineErr{
		Code: code,
		Err:  err,
	}
}
