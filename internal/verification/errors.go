package verification

import (
	"errors"
	"fmt"

	"altid/internal/verification/models"
)

// User-facing failure messages. They are surfaced verbatim.
const (
	MsgSignatureInvalid      = "Invalid digital signature. The document may not be signed or the signature is corrupted."
	MsgExtractionFailed      = "Could not extract required information from the PDF. Please use a clearer ID document."
	MsgAgeRequirementNotMet  = "Verification failed. User does not meet age requirement."
	MsgMissingReferencePhoto = "ID image data is missing. Please start over."
	MsgProviderUnavailable   = "Selfie verification could not be completed right now. Please try again."

	msgLivenessFailed = "Liveness check failed. Please ensure you are in a well-lit environment and not holding a photo. Liveness confidence: %.1f%%"
	msgFaceMismatch   = "Selfie does not match the ID photo. Match confidence: %.1f%%. Please try again."
)

var (
	// ErrInvalidTransition is returned when an event is not allowed in the
	// session's current state. The session is left untouched.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrStaleResult marks a pipeline result that belongs to an earlier
	// attempt or arrives after the session left the processing state.
	ErrStaleResult = errors.New("stale pipeline result")
)

// Error is a terminal verification failure. Message is shown to the user.
type Error struct {
	Kind    models.FailureKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind models.FailureKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the failure kind carried by err, if any.
func KindOf(err error) (models.FailureKind, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return "", false
}

// TransitionError describes a rejected event.
type TransitionError struct {
	From  models.State
	Event EventType
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %s not allowed in state %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
