package queryapi

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuery marks a request naming an unknown query type or a
	// category that does not fit it.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrMissingParameter marks a request lacking a field its query type needs.
	ErrMissingParameter = errors.New("missing parameter")
)

// InvalidQueryError explains why a request cannot be executed.
type InvalidQueryError struct {
	QueryType QueryType
	Reason    string
}

func (e InvalidQueryError) Error() string {
	if e.QueryType == "" {
		return fmt.Sprintf("invalid query: %s", e.Reason)
	}
	return fmt.Sprintf("invalid query %q: %s", e.QueryType, e.Reason)
}

// Is allows errors.Is(err, ErrInvalidQuery).
func (e InvalidQueryError) Is(target error) bool { return target == ErrInvalidQuery }

// MissingParameterError lists the required parameters a request omitted.
type MissingParameterError struct {
	QueryType  QueryType
	Parameters []string
}

func (e MissingParameterError) Error() string {
	return fmt.Sprintf("query %q missing required parameter(s): %s", e.QueryType, strings.Join(e.Parameters, ", "))
}

// Is allows errors.Is(err, ErrMissingParameter).
func (e MissingParameterError) Is(target error) bool { return target == ErrMissingParameter }
