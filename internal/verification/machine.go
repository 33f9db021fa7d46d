package verification

import (
	"time"

	"altid/internal/verification/models"
)

// DefaultRedirectDelay is how long the success screen waits before moving on.
const DefaultRedirectDelay = 8 * time.Second

// EventType names an input to the state machine.
type EventType string

const (
	EventStart            EventType = "start"
	EventBack             EventType = "back"
	EventDocumentReceived EventType = "document_received"
	EventDocumentVerified EventType = "document_verified"
	EventDocumentFailed   EventType = "document_failed"
	EventSelfieCaptured   EventType = "selfie_captured"
	EventSelfieVerified   EventType = "selfie_verified"
	EventSelfieFailed     EventType = "selfie_failed"
	EventReset            EventType = "reset"
)

// isResult reports whether the event carries the outcome of background work.
func (t EventType) isResult() bool {
	switch t {
	case EventDocumentVerified, EventDocumentFailed, EventSelfieVerified, EventSelfieFailed:
		return true
	}
	return false
}

// Event is an input to Transition. Only the fields relevant to Type are read.
type Event struct {
	Type EventType
	// Attempt is the session attempt a result event was produced for.
	Attempt int

	Document *models.DocumentHandle

	Identity    *models.ExtractedIdentity
	IDPhoto     *models.Image
	IDPhotoPage int

	Selfie        *models.Image
	CaptureDevice string

	FaceMatch *models.FaceMatchResult
	Failure   *Error
}

// EffectType names work the caller must perform after a transition.
type EffectType string

const (
	// EffectVerifyDocument runs the signature check and extraction.
	EffectVerifyDocument EffectType = "verify_document"
	// EffectCompareFaces runs the face comparison and liveness policy.
	EffectCompareFaces EffectType = "compare_faces"
	// EffectIssueToken mints the demo token. It must be applied in the same
	// store update as the transition so the token is computed exactly once.
	EffectIssueToken EffectType = "issue_token"
)

// Effect is a side-effect description produced by Transition.
type Effect struct {
	Type    EffectType
	Attempt int
}

// Machine is the pure verification state machine.
type Machine struct {
	redirectDelay time.Duration
}

// NewMachine builds a machine. Non-positive delays use DefaultRedirectDelay.
func NewMachine(redirectDelay time.Duration) *Machine {
	if redirectDelay <= 0 {
		redirectDelay = DefaultRedirectDelay
	}
	return &Machine{redirectDelay: redirectDelay}
}

// Transition applies ev to s and returns the next session plus the effects to
// run. On error the returned session equals s.
// Pure domain logic - no I/O, no side effects.
func (m *Machine) Transition(s models.Session, ev Event, now time.Time) (models.Session, []Effect, error) {
	if ev.Type.isResult() && (ev.Attempt != s.Attempt || !s.State.IsProcessing()) {
		return s, nil, ErrStaleResult
	}

	next := s
	var effects []Effect

	switch ev.Type {
	case EventReset:
		fresh := models.NewSession(s.ID, s.CreatedAt)
		fresh.Attempt = s.Attempt + 1
		fresh.UpdatedAt = now
		return *fresh, nil, nil

	case EventStart:
		if s.State != models.StateWelcome {
			return s, nil, rejected(s, ev)
		}
		next.State = models.StateUploadID

	case EventBack:
		if s.State != models.StateUploadID {
			return s, nil, rejected(s, ev)
		}
		next.State = models.StateWelcome

	case EventDocumentReceived:
		if s.State != models.StateUploadID || ev.Document == nil {
			return s, nil, rejected(s, ev)
		}
		next.State = models.StateProcessingID
		next.Progress = s.Progress.Advance(models.ProgressUpload)
		next.Document = ev.Document
		effects = append(effects, Effect{Type: EffectVerifyDocument, Attempt: s.Attempt})

	case EventDocumentVerified:
		if s.State != models.StateProcessingID {
			return s, nil, rejected(s, ev)
		}
		next.State = models.StateCaptureSelfie
		next.Progress = s.Progress.Advance(models.ProgressSelfie)
		next.Identity = ev.Identity
		next.IDPhoto = ev.IDPhoto
		next.IDPhotoPage = ev.IDPhotoPage

	case EventDocumentFailed:
		if s.State != models.StateProcessingID {
			return s, nil, rejected(s, ev)
		}
		fail(&next, ev.Failure, models.FailureExtractionFailed, MsgExtractionFailed)

	case EventSelfieCaptured:
		if s.State != models.StateCaptureSelfie || ev.Selfie.IsEmpty() {
			return s, nil, rejected(s, ev)
		}
		next.Selfie = ev.Selfie
		next.CaptureDevice = ev.CaptureDevice
		next.State = models.StateProcessingSelfie
		effects = append(effects, Effect{Type: EffectCompareFaces, Attempt: s.Attempt})

	case EventSelfieVerified:
		if s.State != models.StateProcessingSelfie || ev.FaceMatch == nil {
			return s, nil, rejected(s, ev)
		}
		next.State = models.StateSuccess
		next.Progress = s.Progress.Advance(models.ProgressVerified)
		next.FaceMatch = ev.FaceMatch
		redirectAt := now.Add(m.redirectDelay)
		next.RedirectAt = &redirectAt
		effects = append(effects, Effect{Type: EffectIssueToken, Attempt: s.Attempt})

	case EventSelfieFailed:
		if s.State != models.StateProcessingSelfie {
			return s, nil, rejected(s, ev)
		}
		if ev.FaceMatch != nil {
			next.FaceMatch = ev.FaceMatch
		}
		fail(&next, ev.Failure, models.FailureProviderUnavailable, MsgProviderUnavailable)

	default:
		return s, nil, rejected(s, ev)
	}

	next.UpdatedAt = now
	return next, effects, nil
}

func rejected(s models.Session, ev Event) error {
	return &TransitionError{From: s.State, Event: ev.Type}
}

// fail moves the session to the error state. Every failure carries a
// non-empty message; the fallbacks cover a result event with no detail.
func fail(s *models.Session, failure *Error, fallbackKind models.FailureKind, fallbackMsg string) {
	kind, msg := fallbackKind, fallbackMsg
	if failure != nil {
		if failure.Kind != "" {
			kind = failure.Kind
		}
		if failure.Message != "" {
			msg = failure.Message
		}
	}
	s.State = models.StateError
	s.ErrorKind = kind
	s.ErrorMessage = msg
}
