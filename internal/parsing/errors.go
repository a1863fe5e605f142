package parsing

import (
	"fmt"
	"strings"
)

// SchemaValidationError is returned when model output is not a usable résumé.
// Fields lists the offending JSON paths when schema validation produced them.
type SchemaValidationError struct {
	Message string
	Fields  []string
	Cause   error
}

func (e *SchemaValidationError) Error() string {
	msg := "schema validation error: " + e.Message
	if len(e.Fields) > 0 {
		msg += fmt.Sprintf(" (fields: %s)", strings.Join(e.Fields, ", "))
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Cause
}
