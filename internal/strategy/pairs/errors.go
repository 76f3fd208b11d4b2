package pairs

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory means the series is shorter than the rolling
	// window, so no hedge model could ever be fitted.
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrDegenerateRegression means a fitting window had no variance in the
	// regressor. The engine recovers by keeping the prior model.
	ErrDegenerateRegression = errors.New("degenerate regression window")

	// ErrMisaligned means the input violates the aligned, gap-free
	// precondition.
	ErrMisaligned = errors.New("misaligned price history")

	// ErrInvalidParams wraps every parameter validation failure.
	ErrInvalidParams = errors.New("invalid simulation parameters")
)

// InsufficientHistoryError reports how many observations were available.
type InsufficientHistoryError struct {
	Have int
	Need int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient price history: have %d observations, need at least %d", e.Have, e.Need)
}

func (e *InsufficientHistoryError) Unwrap() error { return ErrInsufficientHistory }
