package roster

import (
	"errors"
	"fmt"
)

// ErrEmptyFeed is returned when a feed has a header but no data rows.
var ErrEmptyFeed = errors.New("roster feed has no rows")

// ValidationError reports a malformed feed. A feed with any malformed row is
// rejected as a whole.
type ValidationError struct {
	Line   int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Line > 0 && e.Field != "":
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Reason)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	default:
		return e.Reason
	}
}

// IsValidation returns true if err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
