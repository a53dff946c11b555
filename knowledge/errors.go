package knowledge

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("invalid document")
	ErrNotFound   = errors.New("not found")
	ErrParse      = errors.New("malformed input")
	ErrInternal   = errors.New("internal failure")
)

// recoverInternal turns a panic in the calling operation into ErrInternal.
// It must be deferred directly.
func recoverInternal(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrInternal, r)
	}
}
