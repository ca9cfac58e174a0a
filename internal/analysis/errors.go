package analysis

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrFileTooLarge = errors.New("file too large")
	// ErrEnqueue indicates the document was recorded but could not be queued.
	// The row is already marked failed when this is returned.
	ErrEnqueue = errors.New("enqueue failed")
)
