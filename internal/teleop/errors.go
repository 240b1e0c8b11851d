package teleop

import (
	"errors"
	"fmt"
)

var (
	// ErrConnect indicates the engine could not be reached. The CLI treats
	// it as fatal.
	ErrConnect = errors.New("teleop: cannot connect to engine")

	// ErrSetup indicates the world could not be prepared after connecting.
	ErrSetup = errors.New("teleop: world setup failed")
)

// TickError wraps a collaborator failure with the tick and operation it
// happened in.
type TickError struct {
	Tick    int
	Op      string
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d: %s: %v", e.Tick, e.Op, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
