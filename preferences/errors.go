package preferences

import (
	"errors"
)

var (
	ErrNoJSON           = errors.New("no JSON payload found")
	ErrMalformedJSON    = errors.New("malformed JSON")
	ErrNonNumericWeight = errors.New("non-numeric weight")
	ErrWeightOutOfRange = errors.New("weight out of range")
	ErrModelCall        = errors.New("model call failed")
)

// ExtractionError is returned by Extract for every failure. Kind is one of
// the Err* values above and matches with errors.Is; Err carries the cause.
// Reply holds the raw model output when there was one.
type ExtractionError struct {
	Kind  error
	Err   error
	Reply string
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "extraction error: " + e.Kind.Error()
	}

	return "extraction error: " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *ExtractionError) Is(target error) bool {
	return target == e.Kind
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func extractionError(kind, err error, reply string) *ExtractionError {
	return &ExtractionError{Kind: kind, Err: err, Reply: reply}
}
