package core

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotFound reports an unknown model id.
	ErrModelNotFound = errors.New("model not found")
	// ErrInvalidDocument reports an upload that is not a graph document.
	ErrInvalidDocument = errors.New("invalid graph document")
)

// ErrNotFound names the missing model.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is allows errors.Is(err, ErrModelNotFound).
func (e ErrNotFound) Is(target error) bool { return target == ErrModelNotFound }

func modelNotFound(id string) error { return ErrNotFound{Entity: "model", ID: id} }
