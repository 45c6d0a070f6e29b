package transcribe

import (
	"errors"
	"fmt"
)

// Outcome classifies the result of one transcription call.
type Outcome int

const (
	Success Outcome = iota
	NoMatch
	ServiceError
	IOError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NoMatch:
		return "no-match"
	case ServiceError:
		return "service-error"
	case IOError:
		return "io-error"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Sentinels for errors.Is; every *Error matches exactly one of them.
var (
	ErrNoMatch      = errors.New("no match")
	ErrServiceError = errors.New("service error")
	ErrIO           = errors.New("io error")
)

// Error is returned by every failed Client call.
type Error struct {
	Op   string
	Path string
	Kind Outcome
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNoMatch:
		return e.Kind == NoMatch
	case ErrServiceError:
		return e.Kind == ServiceError
	case ErrIO:
		return e.Kind == IOError
	}
	return false
}

// OutcomeOf maps an error returned by a Client call to its Outcome.
// nil is Success; errors not produced by a Client count as ServiceError.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Success
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ServiceError
}
