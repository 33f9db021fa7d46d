package handler

import (
	"encoding/json"
	"time"

	"altid/internal/verification/models"
	dErrors "altid/pkg/domain-errors"
)

// SelfieRequest carries a captured frame as an image data URI.
type SelfieRequest struct {
	Image string `json:"image"`

	parsed *models.Image
}

// Validate decodes the data URI once so the handler can use the image.
func (r *SelfieRequest) Validate() error {
	if r.Image == "" {
		return dErrors.New(dErrors.CodeValidation, "image is required")
	}
	img, err := models.ParseDataURI(r.Image)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "image must be a base64 image data URI")
	}
	r.parsed = img
	return nil
}

// SessionResponse is the client view of a session. Image bytes are never
// included.
type SessionResponse struct {
	ID          string                    `json:"id"`
	State       string                    `json:"state"`
	Progress    string                    `json:"progress"`
	Description string                    `json:"description,omitempty"`
	Document    *DocumentView             `json:"document,omitempty"`
	Identity    *models.ExtractedIdentity `json:"identity,omitempty"`
	IDPhotoPage int                       `json:"id_photo_page,omitempty"`
	HasIDPhoto  bool                      `json:"has_id_photo"`
	HasSelfie   bool                      `json:"has_selfie"`

	CaptureDevice string                  `json:"capture_device,omitempty"`
	FaceMatch     *models.FaceMatchResult `json:"face_match,omitempty"`
	Error         *ErrorView              `json:"error,omitempty"`

	Token       string          `json:"token,omitempty"`
	Claims      json.RawMessage `json:"claims,omitempty"`
	RedirectAt  *time.Time      `json:"redirect_at,omitempty"`
	RedirectURL string          `json:"redirect_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentView describes the uploaded document without its content.
type DocumentView struct {
	Filename string `json:"filename,omitempty"`
	Size     int    `json:"size"`
	Digest   string `json:"digest"`
}

// ErrorView is the terminal failure of the attempt.
type ErrorView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func toSessionResponse(s *models.Session, redirectURL string) *SessionResponse {
	resp := &SessionResponse{
		ID:            s.ID.String(),
		State:         string(s.State),
		Progress:      string(s.Progress),
		Description:   s.State.Description(),
		Identity:      s.Identity,
		IDPhotoPage:   s.IDPhotoPage,
		HasIDPhoto:    !s.IDPhoto.IsEmpty(),
		HasSelfie:     !s.Selfie.IsEmpty(),
		CaptureDevice: s.CaptureDevice,
		FaceMatch:     s.FaceMatch,
		RedirectAt:    s.RedirectAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Document != nil {
		resp.Document = &DocumentView{Filename: s.Document.Filename, Size: s.Document.Size, Digest: s.Document.Digest}
	}
	if s.State == models.StateError {
		resp.Error = &ErrorView{Kind: string(s.ErrorKind), Message: s.ErrorMessage}
	}
	if s.Token != nil {
		resp.Token = s.Token.Encoded
		resp.Claims = s.Token.Claims
	}
	if s.State == models.StateSuccess {
		resp.RedirectURL = redirectURL
	}
	return resp
}
