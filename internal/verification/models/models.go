// Package models holds the verification session and the values that flow
// through it.
package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	id "altid/pkg/domain"
)

// State is the position of a session in the verification pipeline.
type State string

const (
	StateWelcome          State = "welcome"
	StateUploadID         State = "upload_id"
	StateProcessingID     State = "processing_id"
	StateCaptureSelfie    State = "capture_selfie"
	StateProcessingSelfie State = "processing_selfie"
	StateSuccess          State = "success"
	StateError            State = "error"
)

// IsProcessing reports whether background work owns the session.
func (s State) IsProcessing() bool {
	return s == StateProcessingID || s == StateProcessingSelfie
}

// IsTerminal reports whether the attempt has finished.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateError
}

// Description is the user-facing status line for processing states.
func (s State) Description() string {
	switch s {
	case StateProcessingID:
		return "Verifying signature and extracting data from PDF..."
	case StateProcessingSelfie:
		return "Performing liveness check and comparing selfie with ID photo..."
	default:
		return ""
	}
}

// Progress is the coarse three-phase indicator. It only moves forward until
// the session is reset.
type Progress string

const (
	ProgressUpload   Progress = "upload"
	ProgressSelfie   Progress = "selfie"
	ProgressVerified Progress = "verified"
)

func (p Progress) rank() int {
	switch p {
	case ProgressSelfie:
		return 1
	case ProgressVerified:
		return 2
	default:
		return 0
	}
}

// Advance returns the later of p and next.
func (p Progress) Advance(next Progress) Progress {
	if next.rank() > p.rank() {
		return next
	}
	return p
}

// FailureKind classifies why an attempt ended in the error state.
type FailureKind string

const (
	FailureSignatureInvalid      FailureKind = "signature_invalid"
	FailureExtractionFailed      FailureKind = "extraction_failed"
	FailureAgeRequirementNotMet  FailureKind = "age_requirement_not_met"
	FailureLivenessFailed        FailureKind = "liveness_failed"
	FailureFaceMismatch          FailureKind = "face_mismatch"
	FailureMissingReferencePhoto FailureKind = "missing_reference_photo"
	FailureProviderUnavailable   FailureKind = "provider_unavailable"
)

// Image is an encoded picture with its MIME type.
type Image struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// DataURI renders the image as data:<mime>;base64,<payload>.
func (i Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// IsEmpty reports whether the image carries no bytes.
func (i *Image) IsEmpty() bool {
	return i == nil || len(i.Data) == 0
}

// ParseDataURI decodes a base64 image data URI.
func ParseDataURI(uri string) (*Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("data URI has no payload")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, fmt.Errorf("data URI must be base64 encoded")
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("unsupported media type %q", mime)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("data URI payload is empty")
	}
	return &Image{MIMEType: mime, Data: data}, nil
}

// Document is an uploaded ID document. Bytes live only as long as the
// pipeline run that consumes them.
type Document struct {
	Filename string
	Content  []byte
}

// Size is the byte length of the document.
func (d Document) Size() int {
	return len(d.Content)
}

// DocumentHandle is the opaque reference kept on the session in place of the
// document bytes.
type DocumentHandle struct {
	Filename string `json:"filename,omitempty"`
	Size     int    `json:"size"`
	Digest   string `json:"digest"`
}

// ExtractedIdentity is what the extraction provider read from one page.
type ExtractedIdentity struct {
	Name        string  `json:"name"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Age         *int    `json:"age,omitempty"`
	AgeVerified bool    `json:"ageVerified"`
}

// IsComplete reports whether the result is usable: a non-empty name and
// either a date of birth or a non-zero age.
func (e *ExtractedIdentity) IsComplete() bool {
	if e == nil || strings.TrimSpace(e.Name) == "" {
		return false
	}
	hasDOB := e.DateOfBirth != nil && strings.TrimSpace(*e.DateOfBirth) != ""
	hasAge := e.Age != nil && *e.Age != 0
	return hasDOB || hasAge
}

// FaceMatchResult is what the comparison provider returned for a selfie.
type FaceMatchResult struct {
	MatchConfidence    float64 `json:"matchConfidence"`
	IsMatch            bool    `json:"isMatch"`
	IsLive             bool    `json:"isLive"`
	LivenessConfidence float64 `json:"livenessConfidence"`
}

// IssuedToken is the demo token minted on success, kept so every read of
// the session returns the same value.
type IssuedToken struct {
	TokenID  string          `json:"token_id"`
	Encoded  string          `json:"encoded"`
	Claims   json.RawMessage `json:"claims"`
	IssuedAt time.Time       `json:"issued_at"`
}

// Session is one user's verification attempt.
type Session struct {
	ID       id.SessionID `json:"id"`
	State    State        `json:"state"`
	Progress Progress     `json:"progress"`
	// Attempt increments on every reset so late pipeline results can be
	// recognised and dropped.
	Attempt int `json:"attempt"`

	Document      *DocumentHandle    `json:"document,omitempty"`
	Identity      *ExtractedIdentity `json:"identity,omitempty"`
	IDPhoto       *Image             `json:"id_photo,omitempty"`
	IDPhotoPage   int                `json:"id_photo_page,omitempty"`
	Selfie        *Image             `json:"selfie,omitempty"`
	CaptureDevice string             `json:"capture_device,omitempty"`
	FaceMatch     *FaceMatchResult   `json:"face_match,omitempty"`
	Token         *IssuedToken       `json:"token,omitempty"`

	ErrorKind    FailureKind `json:"error_kind,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	RedirectAt   *time.Time  `json:"redirect_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns a session at the welcome screen.
func NewSession(sessionID id.SessionID, now time.Time) *Session {
	return &Session{
		ID:        sessionID,
		State:     StateWelcome,
		Progress:  ProgressUpload,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Document != nil {
		d := *s.Document
		c.Document = &d
	}
	if s.Identity != nil {
		ident := *s.Identity
		if s.Identity.DateOfBirth != nil {
			dob := *s.Identity.DateOfBirth
			ident.DateOfBirth = &dob
		}
		if s.Identity.Age != nil {
			age := *s.Identity.Age
			ident.Age = &age
		}
		c.Identity = &ident
	}
	c.IDPhoto = cloneImage(s.IDPhoto)
	c.Selfie = cloneImage(s.Selfie)
	if s.FaceMatch != nil {
		fm := *s.FaceMatch
		c.FaceMatch = &fm
	}
	if s.Token != nil {
		tok := *s.Token
		tok.Claims = append(json.RawMessage(nil), s.Token.Claims...)
		c.Token = &tok
	}
	if s.RedirectAt != nil {
		at := *s.RedirectAt
		c.RedirectAt = &at
	}
	return &c
}

func cloneImage(img *Image) *Image {
	if img == nil {
		return nil
	}
	return &Image{MIMEType: img.MIMEType, Data: append([]byte(nil), img.Data...)}
}
