package verification

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"altid/internal/device"
	"altid/internal/token"
	"altid/internal/verification/metrics"
	"altid/internal/verification/models"
	"altid/internal/verification/ports"
	id "altid/pkg/domain"
	dErrors "altid/pkg/domain-errors"
	"altid/pkg/platform/sentinel"
	"altid/pkg/requestcontext"
)

const tracerName = "altid/internal/verification"

// Store keeps sessions between requests. Update must serialize concurrent
// writers for the same session and skip the write when fn returns an error.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Update(ctx context.Context, sessionID id.SessionID, fn func(*models.Session) error) (*models.Session, error)
}

// Service drives sessions through the state machine and runs the pipeline
// work the machine asks for.
type Service struct {
	store     Store
	machine   *Machine
	signature *SignatureChecker
	extractor *DocumentExtractor
	faces     ports.FaceComparator
	issuer    *token.Issuer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time

	background  errgroup.Group
	synchronous bool
}

// Config carries the flow timings.
type Config struct {
	SignatureDelay time.Duration
	RedirectDelay  time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the wall clock used for background results.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSynchronousPipeline runs pipeline work inline in the submitting call.
// Submissions then return the session as it was after entering processing.
func WithSynchronousPipeline() Option {
	return func(s *Service) { s.synchronous = true }
}

// WithSignatureSleep replaces the signature delay wait, for tests.
func WithSignatureSleep(sleep func(time.Duration)) Option {
	return func(s *Service) {
		if sleep != nil {
			s.signature.sleep = sleep
		}
	}
}

// NewService wires the verification service.
func NewService(
	store Store,
	renderer ports.DocumentRenderer,
	extractor ports.IdentityExtractor,
	faces ports.FaceComparator,
	issuer *token.Issuer,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:     store,
		machine:   NewMachine(cfg.RedirectDelay),
		signature: NewSignatureChecker(cfg.SignatureDelay, logger),
		faces:     faces,
		issuer:    issuer,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.extractor = NewDocumentExtractor(renderer, extractor, logger, s.metrics, s.tracer)
	return s
}

// CreateSession starts a new session at the welcome screen.
func (s *Service) CreateSession(ctx context.Context) (*models.Session, error) {
	session := models.NewSession(id.NewSessionID(), requestcontext.Now(ctx))
	if err := s.store.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	s.metrics.IncrementSessionsCreated()
	s.logger.InfoContext(ctx, "verification session created",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", session.ID,
	)
	return session, nil
}

// GetSession returns the current session state.
func (s *Service) GetSession(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return session, nil
}

// Start moves from the welcome screen to document upload.
func (s *Service) Start(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, _, err := s.apply(ctx, sessionID, Event{Type: EventStart}, requestcontext.Now(ctx))
	return session, err
}

// Back returns from document upload to the welcome screen.
func (s *Service) Back(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, _, err := s.apply(ctx, sessionID, Event{Type: EventBack}, requestcontext.Now(ctx))
	return session, err
}

// Reset clears the session back to the welcome screen. Any pipeline run still
// in flight will have its result discarded.
func (s *Service) Reset(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, _, err := s.apply(ctx, sessionID, Event{Type: EventReset}, requestcontext.Now(ctx))
	if err == nil {
		s.logger.InfoContext(ctx, "verification session reset",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"attempt", session.Attempt,
		)
	}
	return session, err
}

// SubmitDocument enters processing and starts signature check and extraction.
func (s *Service) SubmitDocument(ctx context.Context, sessionID id.SessionID, doc models.Document) (*models.Session, error) {
	if doc.Size() == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "document is empty")
	}
	handle := documentHandle(doc)
	session, effects, err := s.apply(ctx, sessionID, Event{Type: EventDocumentReceived, Document: &handle}, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "document received",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID,
		"size", handle.Size,
		"digest", handle.Digest,
	)
	for _, eff := range effects {
		if eff.Type == EffectVerifyDocument {
			attempt := eff.Attempt
			s.dispatch(ctx, func(bg context.Context) { s.runDocument(bg, sessionID, attempt, doc) })
		}
	}
	return session, nil
}

// SubmitSelfie enters processing and starts the face comparison.
func (s *Service) SubmitSelfie(ctx context.Context, sessionID id.SessionID, selfie models.Image) (*models.Session, error) {
	if selfie.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "selfie image is empty")
	}
	ev := Event{
		Type:          EventSelfieCaptured,
		Selfie:        &selfie,
		CaptureDevice: device.ParseUserAgent(requestcontext.UserAgent(ctx)),
	}
	session, effects, err := s.apply(ctx, sessionID, ev, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	for _, eff := range effects {
		if eff.Type == EffectCompareFaces {
			attempt := eff.Attempt
			idPhoto := session.IDPhoto
			s.dispatch(ctx, func(bg context.Context) { s.runSelfie(bg, sessionID, attempt, selfie, idPhoto) })
		}
	}
	return session, nil
}

// Wait blocks until background pipeline runs have finished.
func (s *Service) Wait() error {
	return s.background.Wait()
}

// dispatch runs fn detached from the request so an upload keeps processing
// after the HTTP response is written.
func (s *Service) dispatch(ctx context.Context, fn func(context.Context)) {
	bg := context.WithoutCancel(ctx)
	if s.synchronous {
		fn(bg)
		return
	}
	s.background.Go(func() error {
		fn(bg)
		return nil
	})
}

func (s *Service) runDocument(ctx context.Context, sessionID id.SessionID, attempt int, doc models.Document) {
	ctx, span := s.tracer.Start(ctx, "verification.VerifyDocument",
		trace.WithAttributes(attribute.String("session_id", sessionID.String())))
	defer span.End()

	start := time.Now()
	sig := s.signature.Check(ctx, doc)
	s.metrics.ObserveStage(metrics.StageSignature, time.Since(start))
	if err := sig.Err(); err != nil {
		s.applyResult(ctx, sessionID, Event{Type: EventDocumentFailed, Attempt: attempt, Failure: asVerificationError(err)})
		return
	}

	result, err := s.extractor.ExtractBestIdentity(ctx, doc)
	if err != nil {
		s.applyResult(ctx, sessionID, Event{Type: EventDocumentFailed, Attempt: attempt, Failure: asVerificationError(err)})
		return
	}

	photo := result.Photo
	s.applyResult(ctx, sessionID, Event{
		Type:        EventDocumentVerified,
		Attempt:     attempt,
		Identity:    result.Identity,
		IDPhoto:     &photo,
		IDPhotoPage: result.Page,
	})
}

func (s *Service) runSelfie(ctx context.Context, sessionID id.SessionID, attempt int, selfie models.Image, idPhoto *models.Image) {
	ctx, span := s.tracer.Start(ctx, "verification.CompareFaces",
		trace.WithAttributes(attribute.String("session_id", sessionID.String())))
	defer span.End()

	if idPhoto.IsEmpty() {
		s.logger.ErrorContext(ctx, "selfie submitted without reference photo", "session_id", sessionID)
		failure := newError(models.FailureMissingReferencePhoto, MsgMissingReferencePhoto, nil)
		s.applyResult(ctx, sessionID, Event{Type: EventSelfieFailed, Attempt: attempt, Failure: failure})
		return
	}

	start := time.Now()
	result, err := s.faces.CompareFaces(ctx, ports.ComparisonInput{Selfie: selfie, IDPhoto: *idPhoto})
	s.metrics.ObserveStage(metrics.StageCompare, time.Since(start))
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "face comparison failed", "session_id", sessionID, "error", err)
		failure := newError(models.FailureProviderUnavailable, MsgProviderUnavailable, err)
		s.applyResult(ctx, sessionID, Event{Type: EventSelfieFailed, Attempt: attempt, Failure: failure})
		return
	}

	span.SetAttributes(
		attribute.Bool("face.is_live", result.IsLive),
		attribute.Bool("face.is_match", result.IsMatch),
		attribute.Float64("face.match_confidence", result.MatchConfidence),
	)
	if err := EvaluateFaceMatch(result); err != nil {
		s.applyResult(ctx, sessionID, Event{Type: EventSelfieFailed, Attempt: attempt, FaceMatch: result, Failure: asVerificationError(err)})
		return
	}
	s.applyResult(ctx, sessionID, Event{Type: EventSelfieVerified, Attempt: attempt, FaceMatch: result})
}

// applyResult records a pipeline outcome. Results for a reset or expired
// session are dropped.
func (s *Service) applyResult(ctx context.Context, sessionID id.SessionID, ev Event) {
	session, _, err := s.apply(ctx, sessionID, ev, s.now())
	switch {
	case err == nil:
	case errors.Is(err, ErrStaleResult), dErrors.HasCode(err, dErrors.CodeNotFound):
		s.metrics.IncrementLateResults()
		s.logger.InfoContext(ctx, "discarding late pipeline result",
			"session_id", sessionID,
			"event", ev.Type,
			"attempt", ev.Attempt,
		)
		return
	default:
		s.logger.ErrorContext(ctx, "failed to record pipeline result",
			"session_id", sessionID,
			"event", ev.Type,
			"error", err,
		)
		return
	}

	stage := "document"
	if ev.Type == EventSelfieVerified || ev.Type == EventSelfieFailed {
		stage = "selfie"
	}
	outcome := "success"
	if session.State == models.StateError {
		outcome = string(session.ErrorKind)
		s.logger.WarnContext(ctx, "verification failed",
			"session_id", sessionID,
			"stage", stage,
			"error_kind", session.ErrorKind,
		)
	} else {
		s.logger.InfoContext(ctx, "verification stage passed",
			"session_id", sessionID,
			"stage", stage,
			"state", session.State,
		)
	}
	s.metrics.IncrementOutcome(stage, outcome)
}

// apply runs one transition inside a store update. Token issuance happens in
// the same update so a successful session gets exactly one token.
func (s *Service) apply(ctx context.Context, sessionID id.SessionID, ev Event, now time.Time) (*models.Session, []Effect, error) {
	var effects []Effect
	updated, err := s.store.Update(ctx, sessionID, func(current *models.Session) error {
		next, effs, err := s.machine.Transition(*current, ev, now)
		if err != nil {
			return err
		}
		for _, eff := range effs {
			if eff.Type != EffectIssueToken || next.Token != nil {
				continue
			}
			tok, err := s.issuer.Issue(&next, now)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			next.Token = tok
		}
		*current = next
		effects = effs
		return nil
	})
	if err != nil {
		var te *TransitionError
		switch {
		case errors.Is(err, ErrStaleResult):
			return nil, nil, err
		case errors.As(err, &te):
			return nil, nil, dErrors.Wrap(err, dErrors.CodeConflict,
				fmt.Sprintf("cannot %s while session is %s", humanEvent(ev.Type), te.From))
		default:
			return nil, nil, translateStoreError(err)
		}
	}
	return updated, effects, nil
}

func humanEvent(t EventType) string {
	switch t {
	case EventDocumentReceived:
		return "submit a document"
	case EventSelfieCaptured:
		return "submit a selfie"
	default:
		return string(t)
	}
}

func translateStoreError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "session was modified concurrently")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "session store failure")
	}
}

func asVerificationError(err error) *Error {
	var ve *Error
	if errors.As(err, &ve) {
		return ve
	}
	return newError(models.FailureExtractionFailed, MsgExtractionFailed, err)
}

// documentHandle replaces document bytes with a digest for the session.
func documentHandle(doc models.Document) models.DocumentHandle {
	sum := blake2b.Sum256(doc.Content)
	return models.DocumentHandle{
		Filename: doc.Filename,
		Size:     doc.Size(),
		Digest:   hex.EncodeToString(sum[:]),
	}
}
