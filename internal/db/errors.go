package db

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound matches every NotFoundError via errors.Is
var ErrNotFound = errors.New("not found")

// NotFoundError is returned when a candidate or result the pipeline depends on does not exist
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
	OrgID  uuid.UUID
}

func (e *NotFoundError) Error() string {
	if e.OrgID != uuid.Nil {
		return fmt.Sprintf("%s %s not found in org %s", e.Entity, e.ID, e.OrgID)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is lets callers test with errors.Is(err, ErrNotFound)
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
