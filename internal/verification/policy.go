package verification

import (
	"fmt"

	"altid/internal/verification/models"
)

// MinMatchConfidence is the lowest face match confidence, in percent, that
// counts as the same person.
const MinMatchConfidence = 85.0

// AcceptIdentity is the per-page acceptance rule: a non-empty name plus a
// date of birth or an age.
func AcceptIdentity(identity *models.ExtractedIdentity) bool {
	return identity.IsComplete()
}

// EvaluateAge gates progression on the provider's ageVerified verdict. The
// age arithmetic itself belongs to the provider and is not redone here.
func EvaluateAge(identity *models.ExtractedIdentity) error {
	if identity == nil || !identity.AgeVerified {
		return newError(models.FailureAgeRequirementNotMet, MsgAgeRequirementNotMet, nil)
	}
	return nil
}

// EvaluateFaceMatch applies the selfie policy. Liveness is checked first; the
// match outcome is only considered for a live subject.
// Pure domain logic - no I/O, no side effects.
func EvaluateFaceMatch(result *models.FaceMatchResult) error {
	if result == nil {
		return newError(models.FailureFaceMismatch, fmt.Sprintf(msgFaceMismatch, 0.0), nil)
	}
	if !result.IsLive {
		return newError(models.FailureLivenessFailed, fmt.Sprintf(msgLivenessFailed, result.LivenessConfidence), nil)
	}
	if !result.IsMatch || result.MatchConfidence < MinMatchConfidence {
		return newError(models.FailureFaceMismatch, fmt.Sprintf(msgFaceMismatch, result.MatchConfidence), nil)
	}
	return nil
}
