package detector

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientHeight   = errors.New("insufficient height data")
	ErrTrendStartNotFound   = errors.New("can't find trend start")
	ErrNotEnoughData        = errors.New("not enough data")
	ErrMissingBreakoutPrice = errors.New("breakout price not established")
	ErrBreakoutNotFound     = errors.New("breakout date not found")
	ErrDegenerateRegression = errors.New("cannot compute regression")
	ErrWindowOutOfRange     = errors.New("pattern window outside series")
)

// DetectError records which detector failed.
type DetectError struct {
	Detector string
	Err      error
}

func (e *DetectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Detector, e.Err)
}

func (e *DetectError) Unwrap() error { return e.Err }

func fail(detector string, err error) error {
	return &DetectError{Detector: detector, Err: err}
}
