// Package ports defines the collaborators the verification pipeline depends
// on. Adapters for AI providers and PDF rendering implement these so the
// pipeline can be exercised without network access.
package ports

import (
	"context"

	"altid/internal/verification/models"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports-mocks.go -package=mocks IdentityExtractor,FaceComparator,DocumentRenderer,RenderedDocument

// ExtractionInput is one page handed to the identity extractor.
type ExtractionInput struct {
	Photo models.Image
	// AgeHint is the page text, passed so the provider can prefer an explicit
	// age statement over date arithmetic. May be empty.
	AgeHint string
}

// IdentityExtractor reads name and date of birth from an ID page image.
type IdentityExtractor interface {
	ExtractIDInfo(ctx context.Context, in ExtractionInput) (*models.ExtractedIdentity, error)
}

// ComparisonInput pairs a live selfie with the reference ID photo.
type ComparisonInput struct {
	Selfie  models.Image
	IDPhoto models.Image
}

// FaceComparator scores a selfie against an ID photo and detects liveness.
type FaceComparator interface {
	CompareFaces(ctx context.Context, in ComparisonInput) (*models.FaceMatchResult, error)
}

// Page is one rendered document page. Number is 1-indexed.
type Page struct {
	Number int
	Image  models.Image
	Text   string
}

// DocumentRenderer opens an uploaded document for page-by-page rendering.
type DocumentRenderer interface {
	Open(ctx context.Context, content []byte) (RenderedDocument, error)
}

// RenderedDocument yields pages on demand so the extraction loop only pays
// for the pages it visits.
type RenderedDocument interface {
	PageCount() int
	RenderPage(ctx context.Context, number int) (*Page, error)
}
