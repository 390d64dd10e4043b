package kernel

import "errors"

// Status is the result code returned by kernel management calls.
//
// Non-zero values implement error, so callers can either compare codes or use
// errors.Is against the Err* constants.
type Status int8

const (
	NoError                    Status = 0
	ErrThreadLimitReached      Status = -1
	ErrNoThreadsScheduled      Status = -2
	ErrThreadsIncorrectlyAlive Status = -3
	ErrThreadDoesNotExist      Status = -4
	ErrCannotKillLastThread    Status = -5
	ErrIRQInvalid              Status = -6
	ErrHWIPriorityInvalid      Status = -7
	ErrFIFODoesNotExist        Status = -8
)

func (s Status) String() string {
	switch s {
	case NoError:
		return "no error"
	case ErrThreadLimitReached:
		return "thread limit reached"
	case ErrNoThreadsScheduled:
		return "no threads scheduled"
	case ErrThreadsIncorrectlyAlive:
		return "threads incorrectly alive"
	case ErrThreadDoesNotExist:
		return "thread does not exist"
	case ErrCannotKillLastThread:
		return "cannot kill last thread"
	case ErrIRQInvalid:
		return "irq invalid"
	case ErrHWIPriorityInvalid:
		return "hardware interrupt priority invalid"
	case ErrFIFODoesNotExist:
		return "fifo does not exist"
	default:
		return "unknown"
	}
}

func (s Status) Error() string { return "kernel: " + s.String() }

// StatusOf maps an error returned by the kernel back to its status code.
// A nil error is NoError; errors from outside the kernel are reported as -128.
func StatusOf(err error) Status {
	if err == nil {
		return NoError
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return -128
}

// result converts a status code into the error returned by the public API.
func (s Status) result() error {
	if s == NoError {
		return nil
	}
	return s
}
