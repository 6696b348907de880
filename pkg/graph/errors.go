package graph

import (
	"errors"
	"fmt"
)

// ErrGraphIntegrity marks a graph whose relationships reference entities that
// do not exist or have the wrong variant. Answers computed over such a graph
// would be fabricated, so construction fails instead.
var ErrGraphIntegrity = errors.New("graph integrity failure")

// IntegrityError names the entity and relationship that broke integrity.
type IntegrityError struct {
	Entity   ID
	Relation RelationKind
	Target   ID
	Reason   string
}

func (e IntegrityError) Error() string {
	switch {
	case e.Relation != "" && e.Target != "":
		return fmt.Sprintf("graph integrity: %s %s -> %s: %s", e.Relation, e.Entity, e.Target, e.Reason)
	case e.Relation != "":
		return fmt.Sprintf("graph integrity: %s from %s: %s", e.Relation, e.Entity, e.Reason)
	default:
		return fmt.Sprintf("graph integrity: entity %s: %s", e.Entity, e.Reason)
	}
}

// Is allows errors.Is(err, ErrGraphIntegrity).
func (e IntegrityError) Is(target error) bool { return target == ErrGraphIntegrity }
