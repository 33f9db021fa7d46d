package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altid/internal/verification/models"
	id "altid/pkg/domain"
	"altid/pkg/testutil"
)

var (
	t0        = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	testPhoto = &models.Image{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
)

func sessionIn(state models.State) models.Session {
	s := models.NewSession(id.NewSessionID(), t0)
	s.State = state
	return *s
}

func TestMachine_HappyPath(t *testing.T) {
	m := NewMachine(0)
	s := *models.NewSession(id.NewSessionID(), t0)

	s, effects, err := m.Transition(s, Event{Type: EventStart}, t0)
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, models.StateUploadID, s.State)

	handle := &models.DocumentHandle{Filename: "aadhaar.pdf", Size: 1025, Digest: "abc"}
	s, effects, err = m.Transition(s, Event{Type: EventDocumentReceived, Document: handle}, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StateProcessingID, s.State)
	assert.Equal(t, []Effect{{Type: EffectVerifyDocument, Attempt: 0}}, effects)

	identity := &models.ExtractedIdentity{Name: "Asha Rao", DateOfBirth: strPtr("1990-01-01"), AgeVerified: true}
	s, effects, err = m.Transition(s, Event{Type: EventDocumentVerified, Identity: identity, IDPhoto: testPhoto, IDPhotoPage: 2}, t0)
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, models.StateCaptureSelfie, s.State)
	assert.Equal(t, models.ProgressSelfie, s.Progress)
	assert.Equal(t, 2, s.IDPhotoPage)

	s, effects, err = m.Transition(s, Event{Type: EventSelfieCaptured, Selfie: testPhoto, CaptureDevice: "Chrome 120 on Android"}, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StateProcessingSelfie, s.State)
	assert.Equal(t, []Effect{{Type: EffectCompareFaces, Attempt: 0}}, effects)

	done := t0.Add(5 * time.Second)
	match := &models.FaceMatchResult{MatchConfidence: 93, IsMatch: true, IsLive: true, LivenessConfidence: 97}
	s, effects, err = m.Transition(s, Event{Type: EventSelfieVerified, FaceMatch: match}, done)
	require.NoError(t, err)
	assert.Equal(t, models.StateSuccess, s.State)
	assert.Equal(t, models.ProgressVerified, s.Progress)
	assert.Equal(t, []Effect{{Type: EffectIssueToken, Attempt: 0}}, effects)
	require.NotNil(t, s.RedirectAt)
	assert.Equal(t, done.Add(DefaultRedirectDelay), *s.RedirectAt)
	assert.Equal(t, done, s.UpdatedAt)
}

func TestMachine_RejectsEventsOutOfOrder(t *testing.T) {
	m := NewMachine(time.Second)
	selfie := testPhoto

	tests := []struct {
		name  string
		state models.State
		event Event
	}{
		{name: "start twice", state: models.StateUploadID, event: Event{Type: EventStart}},
		{name: "back from selfie capture", state: models.StateCaptureSelfie, event: Event{Type: EventBack}},
		{name: "document before start", state: models.StateWelcome, event: Event{Type: EventDocumentReceived, Document: &models.DocumentHandle{}}},
		{name: "document without handle", state: models.StateUploadID, event: Event{Type: EventDocumentReceived}},
		{name: "second document while processing", state: models.StateProcessingID, event: Event{Type: EventDocumentReceived, Document: &models.DocumentHandle{}}},
		{name: "selfie before document", state: models.StateUploadID, event: Event{Type: EventSelfieCaptured, Selfie: selfie}},
		{name: "empty selfie", state: models.StateCaptureSelfie, event: Event{Type: EventSelfieCaptured, Selfie: &models.Image{}}},
		{name: "start after success", state: models.StateSuccess, event: Event{Type: EventStart}},
		{name: "unknown event", state: models.StateWelcome, event: Event{Type: "teleport"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := sessionIn(tt.state)
			after, effects, err := m.Transition(before, tt.event, t0.Add(time.Minute))
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Nil(t, effects)
			assert.Equal(t, before, after, "rejected event must not mutate the session")

			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.state, te.From)
		})
	}
}

func TestMachine_Failures(t *testing.T) {
	m := NewMachine(0)

	testutil.Given(t, "a document under verification", func(t *testing.T) {
		testutil.When(t, "verification fails with a classified error", func(t *testing.T) {
			s := sessionIn(models.StateProcessingID)
			failure := newError(models.FailureSignatureInvalid, MsgSignatureInvalid, nil)
			s, _, err := m.Transition(s, Event{Type: EventDocumentFailed, Failure: failure}, t0)
			require.NoError(t, err)

			testutil.Then(t, "the session carries that kind and message", func(t *testing.T) {
				assert.Equal(t, models.StateError, s.State)
				assert.Equal(t, models.FailureSignatureInvalid, s.ErrorKind)
				assert.Equal(t, MsgSignatureInvalid, s.ErrorMessage)
			})
		})

		testutil.When(t, "verification fails without detail", func(t *testing.T) {
			s := sessionIn(models.StateProcessingID)
			s, _, err := m.Transition(s, Event{Type: EventDocumentFailed}, t0)
			require.NoError(t, err)

			testutil.Then(t, "the extraction failure message is used", func(t *testing.T) {
				assert.Equal(t, models.FailureExtractionFailed, s.ErrorKind)
				assert.Equal(t, MsgExtractionFailed, s.ErrorMessage)
			})
		})
	})

	testutil.Given(t, "a selfie capture without a reference photo", func(t *testing.T) {
		s := sessionIn(models.StateCaptureSelfie)
		s, effects, err := m.Transition(s, Event{Type: EventSelfieCaptured, Selfie: testPhoto}, t0)
		require.NoError(t, err)

		testutil.Then(t, "the selfie is processed before the failure is recorded", func(t *testing.T) {
			assert.Equal(t, models.StateProcessingSelfie, s.State)
			assert.Equal(t, []Effect{{Type: EffectCompareFaces, Attempt: s.Attempt}}, effects)
		})

		failure := newError(models.FailureMissingReferencePhoto, MsgMissingReferencePhoto, nil)
		s, _, err = m.Transition(s, Event{Type: EventSelfieFailed, Attempt: s.Attempt, Failure: failure}, t0)
		require.NoError(t, err)

		testutil.Then(t, "the session errors with the missing photo message", func(t *testing.T) {
			assert.Equal(t, models.StateError, s.State)
			assert.Equal(t, models.FailureMissingReferencePhoto, s.ErrorKind)
			assert.Equal(t, MsgMissingReferencePhoto, s.ErrorMessage)
		})
	})

	testutil.Given(t, "a selfie comparison that failed policy", func(t *testing.T) {
		s := sessionIn(models.StateProcessingSelfie)
		match := &models.FaceMatchResult{MatchConfidence: 84.9, IsMatch: true, IsLive: true}
		failure := newError(models.FailureFaceMismatch, "mismatch", nil)
		s, _, err := m.Transition(s, Event{Type: EventSelfieFailed, FaceMatch: match, Failure: failure}, t0)
		require.NoError(t, err)

		testutil.Then(t, "the scores are kept for display", func(t *testing.T) {
			assert.Equal(t, models.StateError, s.State)
			assert.Equal(t, match, s.FaceMatch)
			assert.Nil(t, s.Token)
		})
	})
}

func TestMachine_Reset(t *testing.T) {
	m := NewMachine(0)

	s := sessionIn(models.StateSuccess)
	s.Attempt = 2
	s.Identity = &models.ExtractedIdentity{Name: "Asha Rao"}
	s.IDPhoto = testPhoto
	s.Selfie = testPhoto
	s.Progress = models.ProgressVerified
	s.Token = &models.IssuedToken{TokenID: "altid_x"}
	s.ErrorMessage = "stale"
	later := t0.Add(time.Hour)

	once, effects, err := m.Transition(s, Event{Type: EventReset}, later)
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, s.ID, once.ID)
	assert.Equal(t, s.CreatedAt, once.CreatedAt)
	assert.Equal(t, later, once.UpdatedAt)
	assert.Equal(t, 3, once.Attempt)
	assert.Equal(t, models.StateWelcome, once.State)
	assert.Equal(t, models.ProgressUpload, once.Progress)
	assert.Nil(t, once.Identity)
	assert.Nil(t, once.IDPhoto)
	assert.Nil(t, once.Selfie)
	assert.Nil(t, once.Token)
	assert.Empty(t, once.ErrorMessage)

	twice, _, err := m.Transition(once, Event{Type: EventReset}, later)
	require.NoError(t, err)
	twice.Attempt = once.Attempt
	assert.Equal(t, once, twice, "reset is idempotent apart from the attempt counter")
}

func TestMachine_StaleResults(t *testing.T) {
	m := NewMachine(0)

	t.Run("result for an earlier attempt", func(t *testing.T) {
		s := sessionIn(models.StateProcessingID)
		s.Attempt = 1
		after, _, err := m.Transition(s, Event{Type: EventDocumentVerified, Attempt: 0}, t0)
		assert.ErrorIs(t, err, ErrStaleResult)
		assert.Equal(t, s, after)
	})

	t.Run("result after the session left processing", func(t *testing.T) {
		s := sessionIn(models.StateWelcome)
		_, _, err := m.Transition(s, Event{Type: EventSelfieVerified, FaceMatch: &models.FaceMatchResult{}}, t0)
		assert.ErrorIs(t, err, ErrStaleResult)
	})

	t.Run("selfie result while document is processing", func(t *testing.T) {
		s := sessionIn(models.StateProcessingID)
		_, _, err := m.Transition(s, Event{Type: EventSelfieVerified, FaceMatch: &models.FaceMatchResult{}}, t0)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestMachine_Back(t *testing.T) {
	m := NewMachine(0)
	s, _, err := m.Transition(sessionIn(models.StateUploadID), Event{Type: EventBack}, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StateWelcome, s.State)
}
