package chat

import "errors"

var (
	// ErrGeneration marks a failed collaborator call. Histories are left untouched.
	ErrGeneration = errors.New("error generating response")
	// ErrInputTooLong rejects questions over MaxInputChars characters.
	ErrInputTooLong = errors.New("input exceeds maximum length")
)

// GenerationError carries the provider failure behind ErrGeneration.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return ErrGeneration.Error() + ": " + e.Err.Error()
}

// Is lets errors.Is(err, ErrGeneration) match without losing the cause chain.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Reason is the provider message shown to the user after "Error generating response: ".
func (e *GenerationError) Reason() string {
	return e.Err.Error()
}
