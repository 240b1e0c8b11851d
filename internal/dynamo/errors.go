package dynamo

import "errors"

// Domain errors for engine sessions.
var (
	// ErrNotConnected indicates an operation on a closed session.
	ErrNotConnected = errors.New("dynamo: session not connected")

	// ErrUnknownBody indicates a body handle the session does not own.
	ErrUnknownBody = errors.New("dynamo: unknown body")

	// ErrUnknownAsset indicates an asset reference missing from the catalog.
	ErrUnknownAsset = errors.New("dynamo: unknown asset")

	// ErrStaticBody indicates a velocity or pose write to a static surface.
	ErrStaticBody = errors.New("dynamo: body is static")

	// ErrInvalidState indicates a body state with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// BodyError wraps an error with the body it concerns.
type BodyError struct {
	Body    BodyID
	Op      string
	Wrapped error
}

func (e *BodyError) Error() string {
	return e.Op + " " + e.Body.String() + ": " + e.Wrapped.Error()
}

func (e *BodyError) Unwrap() error {
	return e.Wrapped
}
