package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/mock/gomock"

	"altid/internal/verification/models"
	"altid/internal/verification/ports"
	"altid/internal/verification/ports/mocks"
)

func pageImage(n int) models.Image {
	return models.Image{MIMEType: "image/png", Data: []byte(fmt.Sprintf("page-%d", n))}
}

type extractionFixture struct {
	renderer  *mocks.MockDocumentRenderer
	rendered  *mocks.MockRenderedDocument
	extractor *mocks.MockIdentityExtractor
	subject   *DocumentExtractor
}

func newExtractionFixture(t *testing.T) *extractionFixture {
	ctrl := gomock.NewController(t)
	f := &extractionFixture{
		renderer:  mocks.NewMockDocumentRenderer(ctrl),
		rendered:  mocks.NewMockRenderedDocument(ctrl),
		extractor: mocks.NewMockIdentityExtractor(ctrl),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.subject = NewDocumentExtractor(f.renderer, f.extractor, logger, nil, noop.NewTracerProvider().Tracer("test"))
	return f
}

func (f *extractionFixture) withPages(n int) {
	f.renderer.EXPECT().Open(gomock.Any(), gomock.Any()).Return(f.rendered, nil)
	f.rendered.EXPECT().PageCount().Return(n).AnyTimes()
}

func (f *extractionFixture) expectPage(n int, identity *models.ExtractedIdentity, err error) {
	f.rendered.EXPECT().RenderPage(gomock.Any(), n).
		Return(&ports.Page{Number: n, Image: pageImage(n), Text: "page text"}, nil)
	f.extractor.EXPECT().
		ExtractIDInfo(gomock.Any(), ports.ExtractionInput{Photo: pageImage(n), AgeHint: "page text"}).
		Return(identity, err)
}

func TestExtractBestIdentity_FirstCompletePageWins(t *testing.T) {
	f := newExtractionFixture(t)
	f.withPages(3)
	f.expectPage(1, &models.ExtractedIdentity{Name: "Asha Rao"}, nil)
	f.expectPage(2, &models.ExtractedIdentity{Name: "Asha Rao", DateOfBirth: strPtr("1990-01-01"), AgeVerified: true}, nil)
	// page 3 is never rendered

	result, err := f.subject.ExtractBestIdentity(context.Background(), models.Document{Content: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 2, result.PagesEvaluated)
	assert.Equal(t, pageImage(2), result.Photo)
	assert.Equal(t, "Asha Rao", result.Identity.Name)
}

func TestExtractBestIdentity_SkipsFailingPages(t *testing.T) {
	f := newExtractionFixture(t)
	f.withPages(3)
	f.rendered.EXPECT().RenderPage(gomock.Any(), 1).Return(nil, errors.New("corrupt stream"))
	f.expectPage(2, nil, errors.New("provider returned garbage"))
	f.expectPage(3, &models.ExtractedIdentity{Name: "Asha Rao", Age: intPtr(34), AgeVerified: true}, nil)

	result, err := f.subject.ExtractBestIdentity(context.Background(), models.Document{Content: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Page)
	assert.Equal(t, 3, result.PagesEvaluated)
}

func TestExtractBestIdentity_Failures(t *testing.T) {
	t.Run("document cannot be opened", func(t *testing.T) {
		f := newExtractionFixture(t)
		f.renderer.EXPECT().Open(gomock.Any(), gomock.Any()).Return(nil, errors.New("not a pdf"))

		_, err := f.subject.ExtractBestIdentity(context.Background(), models.Document{Content: []byte("nope")})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, models.FailureExtractionFailed, kind)
	})

	t.Run("no page is complete", func(t *testing.T) {
		f := newExtractionFixture(t)
		f.withPages(2)
		f.expectPage(1, &models.ExtractedIdentity{}, nil)
		f.expectPage(2, &models.ExtractedIdentity{Name: "Asha Rao", Age: intPtr(0)}, nil)

		_, err := f.subject.ExtractBestIdentity(context.Background(), models.Document{Content: []byte("%PDF")})
		kind, _ := KindOf(err)
		assert.Equal(t, models.FailureExtractionFailed, kind)
		assert.Contains(t, err.Error(), MsgExtractionFailed)
	})

	t.Run("document without pages", func(t *testing.T) {
		f := newExtractionFixture(t)
		f.withPages(0)

		_, err := f.subject.ExtractBestIdentity(context.Background(), models.Document{Content: []byte("%PDF")})
		kind, _ := KindOf(err)
		assert.Equal(t, models.FailureExtractionFailed, kind)
	})

	t.Run("complete page below age requirement", func(t *testing.T) {
		f := newExtractionFixture(t)
		f.withPages(2)
		f.expectPage(1, &models.ExtractedIdentity{Name: "Kid", DateOfBirth: strPtr("2015-06-01"), AgeVerified: false}, nil)

		_, err := f.subject.ExtractBestIdentity(context.Background(), models.Document{Content: []byte("%PDF")})
		kind, _ := KindOf(err)
		assert.Equal(t, models.FailureAgeRequirementNotMet, kind)
	})
}
