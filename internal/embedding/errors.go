package embedding

import (
	"fmt"

	"github.com/google/uuid"
)

// NoParsedResumeError is returned when a candidate has no structured résumé to embed
type NoParsedResumeError struct {
	CandidateID uuid.UUID
	Cause       error
}

func (e *NoParsedResumeError) Error() string {
	return fmt.Sprintf("no parsed résumé for candidate %s", e.CandidateID)
}

func (e *NoParsedResumeError) Unwrap() error {
	return e.Cause
}
