// Package handler exposes the verification flow over HTTP.
package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"altid/internal/verification/models"
	id "altid/pkg/domain"
	dErrors "altid/pkg/domain-errors"
	"altid/pkg/platform/httputil"
	"altid/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service

const (
	documentField = "document"

	// DefaultMaxUploadBytes bounds document uploads.
	DefaultMaxUploadBytes = 10 << 20
)

var pdfMagic = []byte("%PDF-")

// Service defines the verification operations the handler drives.
type Service interface {
	CreateSession(ctx context.Context) (*models.Session, error)
	GetSession(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Start(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Back(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Reset(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	SubmitDocument(ctx context.Context, sessionID id.SessionID, doc models.Document) (*models.Session, error)
	SubmitSelfie(ctx context.Context, sessionID id.SessionID, selfie models.Image) (*models.Session, error)
}

// Handler handles verification session endpoints.
type Handler struct {
	service        Service
	logger         *slog.Logger
	redirectURL    string
	maxUploadBytes int64
}

// New creates a verification Handler. A non-positive maxUploadBytes uses
// DefaultMaxUploadBytes.
func New(service Service, logger *slog.Logger, redirectURL string, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		service:        service,
		logger:         logger,
		redirectURL:    redirectURL,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register registers the session routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Post("/start", h.handleStart)
			r.Post("/back", h.handleBack)
			r.Post("/document", h.handleDocument)
			r.Post("/selfie", h.handleSelfie)
			r.Post("/reset", h.handleReset)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.service.CreateSession(ctx)
	if err != nil {
		h.writeError(ctx, w, "create session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(session, h.redirectURL))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "get session", http.StatusOK, h.service.GetSession)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "start", http.StatusOK, h.service.Start)
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "back", http.StatusOK, h.service.Back)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, "reset", http.StatusOK, h.service.Reset)
}

// withSession runs a body-less session operation.
func (h *Handler) withSession(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	status int,
	op func(context.Context, id.SessionID) (*models.Session, error),
) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	session, err := op(ctx, sessionID)
	if err != nil {
		h.writeError(ctx, w, action, err)
		return
	}
	httputil.WriteJSON(w, status, toSessionResponse(session, h.redirectURL))
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	doc, err := h.readDocument(w, r)
	if err != nil {
		h.writeError(ctx, w, "read document", err)
		return
	}

	session, err := h.service.SubmitDocument(ctx, sessionID, doc)
	if err != nil {
		h.writeError(ctx, w, "submit document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, toSessionResponse(session, h.redirectURL))
}

func (h *Handler) handleSelfie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	req, ok := httputil.DecodeAndPrepare[SelfieRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.SubmitSelfie(ctx, sessionID, *req.parsed)
	if err != nil {
		h.writeError(ctx, w, "submit selfie", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, toSessionResponse(session, h.redirectURL))
}

// readDocument accepts either a multipart form with a "document" file or a
// raw application/pdf body.
func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) (models.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return models.Document{}, dErrors.New(dErrors.CodeUnsupportedMedia, "content type must be multipart/form-data or application/pdf")
	}

	var doc models.Document
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			return models.Document{}, uploadError(err, "invalid multipart form")
		}
		file, header, err := r.FormFile(documentField)
		if err != nil {
			return models.Document{}, dErrors.Wrap(err, dErrors.CodeValidation, "document file is required")
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return models.Document{}, uploadError(err, "failed to read document")
		}
		doc = models.Document{Filename: header.Filename, Content: content}
	case "application/pdf":
		content, err := io.ReadAll(r.Body)
		if err != nil {
			return models.Document{}, uploadError(err, "failed to read document")
		}
		doc = models.Document{Content: content}
	default:
		return models.Document{}, dErrors.New(dErrors.CodeUnsupportedMedia, "content type must be multipart/form-data or application/pdf")
	}

	if len(doc.Content) == 0 {
		return models.Document{}, dErrors.New(dErrors.CodeValidation, "document is empty")
	}
	if !bytes.HasPrefix(doc.Content, pdfMagic) {
		return models.Document{}, dErrors.New(dErrors.CodeUnsupportedMedia, "document must be a PDF")
	}
	return doc, nil
}

func uploadError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return dErrors.Wrap(err, dErrors.CodePayloadTooLarge, "document exceeds the upload limit")
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, message)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (id.SessionID, bool) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(r.Context(), w, "parse session id", err)
		return id.SessionID{}, false
	}
	return sessionID, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"action", action,
		"error", err,
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
