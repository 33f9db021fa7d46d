package verification

import (
	"context"
	"log/slog"
	"time"

	"altid/internal/verification/models"
)

// DefaultSignatureDelay models the latency of a remote signature service.
const DefaultSignatureDelay = 1500 * time.Millisecond

// demoPublicKeys stands in for a trust list. Only the index is ever reported.
var demoPublicKeys = []string{
	"-----BEGIN PUBLIC KEY-----\nDEMO_UIDAI_SIGNING_KEY_0\n-----END PUBLIC KEY-----",
	"-----BEGIN PUBLIC KEY-----\nDEMO_UIDAI_SIGNING_KEY_1\n-----END PUBLIC KEY-----",
	"-----BEGIN PUBLIC KEY-----\nDEMO_UIDAI_SIGNING_KEY_2\n-----END PUBLIC KEY-----",
}

// SignatureResult is the outcome of the simulated signature check.
type SignatureResult struct {
	Success bool
	Reason  string
	// KeyIndex is the demo key the document "was signed with". Only
	// meaningful on success.
	KeyIndex int
}

// Err converts a failed result into a terminal verification error.
func (r SignatureResult) Err() error {
	if r.Success {
		return nil
	}
	return newError(models.FailureSignatureInvalid, r.Reason, nil)
}

// CheckSignature is a demo-grade stand-in for signature verification. It is a
// pure function of the document length: even sizes fail, odd sizes pass.
// Pure domain logic - no I/O, no cryptography.
func CheckSignature(doc models.Document) SignatureResult {
	size := doc.Size()
	if size%2 == 0 {
		return SignatureResult{Reason: MsgSignatureInvalid}
	}
	return SignatureResult{Success: true, KeyIndex: size % len(demoPublicKeys)}
}

// SignatureChecker wraps CheckSignature with the simulated network delay.
type SignatureChecker struct {
	delay  time.Duration
	sleep  func(time.Duration)
	logger *slog.Logger
}

// NewSignatureChecker builds a checker. A negative delay means the default.
func NewSignatureChecker(delay time.Duration, logger *slog.Logger) *SignatureChecker {
	if delay < 0 {
		delay = DefaultSignatureDelay
	}
	return &SignatureChecker{delay: delay, sleep: time.Sleep, logger: logger}
}

// Check waits out the delay and then runs the check. The wait ignores
// cancellation: once started, a check always completes.
func (c *SignatureChecker) Check(ctx context.Context, doc models.Document) SignatureResult {
	if c.delay > 0 {
		c.sleep(c.delay)
	}
	res := CheckSignature(doc)
	if res.Success {
		c.logger.InfoContext(ctx, "document signature accepted",
			"filename", doc.Filename,
			"size", doc.Size(),
			"public_key_index", res.KeyIndex,
		)
	} else {
		c.logger.WarnContext(ctx, "document signature rejected",
			"filename", doc.Filename,
			"size", doc.Size(),
		)
	}
	return res
}
