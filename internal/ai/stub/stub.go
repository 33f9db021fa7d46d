// Package stub provides deterministic stand-ins for the AI providers so the
// service runs offline.
package stub

import (
	"bytes"
	"context"
	"log/slog"

	"altid/internal/verification/models"
	"altid/internal/verification/ports"
)

// DefaultIdentity is what Extractor reads from every page with an image.
func DefaultIdentity() models.ExtractedIdentity {
	dob := "1990-01-01"
	return models.ExtractedIdentity{Name: "Demo User", DateOfBirth: &dob, AgeVerified: true}
}

// DefaultFaceMatch is what Comparator reports for a distinct selfie.
func DefaultFaceMatch() models.FaceMatchResult {
	return models.FaceMatchResult{MatchConfidence: 92, IsMatch: true, IsLive: true, LivenessConfidence: 96}
}

// Extractor returns a fixed identity for any page that carries an image.
type Extractor struct {
	Identity models.ExtractedIdentity
	logger   *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{Identity: DefaultIdentity(), logger: logger}
}

func (e *Extractor) ExtractIDInfo(ctx context.Context, in ports.ExtractionInput) (*models.ExtractedIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Photo.IsEmpty() {
		return &models.ExtractedIdentity{}, nil
	}
	e.logger.DebugContext(ctx, "stub identity extraction", "age_hint_len", len(in.AgeHint))
	identity := e.Identity
	if identity.DateOfBirth != nil {
		dob := *identity.DateOfBirth
		identity.DateOfBirth = &dob
	}
	if identity.Age != nil {
		age := *identity.Age
		identity.Age = &age
	}
	return &identity, nil
}

// Comparator returns a fixed result. A selfie byte-identical to the ID photo
// is treated as a presentation attack.
type Comparator struct {
	Result models.FaceMatchResult
	logger *slog.Logger
}

func NewComparator(logger *slog.Logger) *Comparator {
	return &Comparator{Result: DefaultFaceMatch(), logger: logger}
}

func (c *Comparator) CompareFaces(ctx context.Context, in ports.ComparisonInput) (*models.FaceMatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := c.Result
	if bytes.Equal(in.Selfie.Data, in.IDPhoto.Data) {
		result.IsLive = false
		result.LivenessConfidence = 12
	}
	c.logger.DebugContext(ctx, "stub face comparison", "is_live", result.IsLive, "is_match", result.IsMatch)
	return &result, nil
}

var (
	_ ports.IdentityExtractor = (*Extractor)(nil)
	_ ports.FaceComparator    = (*Comparator)(nil)
)
