package verification

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"altid/internal/verification/metrics"
	"altid/internal/verification/models"
	"altid/internal/verification/ports"
)

// ExtractionResult is the accepted page of a document.
type ExtractionResult struct {
	Identity *models.ExtractedIdentity
	Photo    models.Image
	// Page is the 1-indexed page the identity was read from.
	Page int
	// PagesEvaluated counts pages visited, including skipped ones.
	PagesEvaluated int
}

// DocumentExtractor walks document pages in order and keeps the first one the
// identity extractor reads completely.
type DocumentExtractor struct {
	renderer  ports.DocumentRenderer
	extractor ports.IdentityExtractor
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// NewDocumentExtractor wires the extraction adapter.
func NewDocumentExtractor(
	renderer ports.DocumentRenderer,
	extractor ports.IdentityExtractor,
	logger *slog.Logger,
	m *metrics.Metrics,
	tracer trace.Tracer,
) *DocumentExtractor {
	return &DocumentExtractor{
		renderer:  renderer,
		extractor: extractor,
		logger:    logger,
		metrics:   m,
		tracer:    tracer,
	}
}

// ExtractBestIdentity returns the first complete page, then applies the age
// gate. Per-page failures are logged and skipped; only exhausting every page
// fails the extraction.
func (x *DocumentExtractor) ExtractBestIdentity(ctx context.Context, doc models.Document) (*ExtractionResult, error) {
	ctx, span := x.tracer.Start(ctx, "verification.ExtractBestIdentity")
	defer span.End()

	rendered, err := x.renderer.Open(ctx, doc.Content)
	if err != nil {
		x.logger.WarnContext(ctx, "document could not be opened", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return nil, newError(models.FailureExtractionFailed, MsgExtractionFailed, err)
	}

	result, evaluated := x.firstCompletePage(ctx, rendered)
	x.metrics.ObservePagesEvaluated(evaluated)
	span.SetAttributes(
		attribute.Int("pages.total", rendered.PageCount()),
		attribute.Int("pages.evaluated", evaluated),
	)

	if result == nil {
		span.SetStatus(codes.Error, "no complete page")
		return nil, newError(models.FailureExtractionFailed, MsgExtractionFailed, nil)
	}
	result.PagesEvaluated = evaluated
	span.SetAttributes(attribute.Int("pages.accepted", result.Page))

	if err := EvaluateAge(result.Identity); err != nil {
		span.SetStatus(codes.Error, "age requirement not met")
		return nil, err
	}
	return result, nil
}

func (x *DocumentExtractor) firstCompletePage(ctx context.Context, rendered ports.RenderedDocument) (*ExtractionResult, int) {
	pages := rendered.PageCount()
	evaluated := 0
	for n := 1; n <= pages; n++ {
		evaluated++

		start := time.Now()
		page, err := rendered.RenderPage(ctx, n)
		x.metrics.ObserveStage(metrics.StageRenderPage, time.Since(start))
		if err != nil {
			x.logger.WarnContext(ctx, "could not render page", "page", n, "error", err)
			continue
		}

		start = time.Now()
		identity, err := x.extractor.ExtractIDInfo(ctx, ports.ExtractionInput{
			Photo:   page.Image,
			AgeHint: page.Text,
		})
		x.metrics.ObserveStage(metrics.StageExtractPage, time.Since(start))
		if err != nil {
			x.logger.WarnContext(ctx, "could not process page", "page", n, "error", err)
			continue
		}

		if AcceptIdentity(identity) {
			x.logger.InfoContext(ctx, "identity extracted", "page", n, "pages_total", pages)
			return &ExtractionResult{Identity: identity, Photo: page.Image, Page: n}, evaluated
		}
		x.logger.DebugContext(ctx, "page result incomplete", "page", n)
	}
	return nil, evaluated
}
