// Package gemini implements the identity extraction and face comparison
// ports against the Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"altid/internal/ai/providers"
	"altid/internal/verification/models"
	"altid/internal/verification/ports"
	"altid/pkg/platform/circuit"
)

const (
	providerID = "gemini"

	opExtract = "extract_id_info"
	opCompare = "compare_faces"

	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 60 * time.Second

	apiKeyHeader = "x-goog-api-key"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// Config configures the client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls Gemini. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	breaker    *circuit.Breaker
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

// WithClock overrides the clock used for today's date in prompts.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a client. An API key is required.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		breaker:    circuit.New(providerID),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var (
	_ ports.IdentityExtractor = (*Client)(nil)
	_ ports.FaceComparator    = (*Client)(nil)
)

// ExtractIDInfo reads name, date of birth and the age verdict from one page
// image.
func (c *Client) ExtractIDInfo(ctx context.Context, in ports.ExtractionInput) (*models.ExtractedIdentity, error) {
	prompt, err := renderExtractPrompt(extractPromptData{
		Today:   c.now().Format(time.DateOnly),
		AgeText: in.AgeHint,
	})
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providerID, opExtract, "prompt", err)
	}

	text, err := c.generate(ctx, opExtract, []part{textPart(prompt), imagePart(in.Photo)}, identitySchema)
	if err != nil {
		return nil, err
	}
	return parseIdentity(text)
}

// CompareFaces scores the selfie against the ID photo and checks liveness.
func (c *Client) CompareFaces(ctx context.Context, in ports.ComparisonInput) (*models.FaceMatchResult, error) {
	parts := []part{textPart(comparePrompt), imagePart(in.Selfie), imagePart(in.IDPhoto)}
	text, err := c.generate(ctx, opCompare, parts, faceMatchSchema)
	if err != nil {
		return nil, err
	}
	result, err := parseFaceMatch(text)
	if err != nil {
		c.logger.WarnContext(ctx, "gemini face match rejected", "operation", opCompare, "error", err)
		return nil, err
	}
	if result.IsMatch && result.MatchConfidence <= 1 {
		c.logger.WarnContext(ctx, "gemini match confidence looks like a fraction",
			"match_confidence", result.MatchConfidence,
			"liveness_confidence", result.LivenessConfidence,
		)
	}
	return result, nil
}

func parseIdentity(text string) (*models.ExtractedIdentity, error) {
	if !gjson.Valid(text) || !gjson.Parse(text).IsObject() {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, opExtract, "response is not a JSON object", nil)
	}
	res := gjson.GetMany(text, "name", "dateOfBirth", "age", "ageVerified")
	identity := &models.ExtractedIdentity{
		Name:        strings.TrimSpace(res[0].String()),
		AgeVerified: res[3].Bool(),
	}
	if dob := strings.TrimSpace(res[1].String()); res[1].Type == gjson.String && dob != "" {
		identity.DateOfBirth = &dob
	}
	if res[2].Type == gjson.Number {
		age := int(math.Round(res[2].Float()))
		identity.Age = &age
	}
	return identity, nil
}

func parseFaceMatch(text string) (*models.FaceMatchResult, error) {
	if !gjson.Valid(text) {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, opCompare, "response is not JSON", nil)
	}
	res := gjson.GetMany(text, faceMatchFields...)
	for i, field := range faceMatchFields {
		if !res[i].Exists() {
			return nil, providers.NewProviderError(providers.ErrorBadData, providerID, opCompare, "response is missing "+field, nil)
		}
	}
	for _, i := range []int{0, 3} {
		if v := res[i].Float(); res[i].Type != gjson.Number || v < 0 || v > 100 {
			return nil, providers.NewProviderError(providers.ErrorBadData, providerID, opCompare,
				fmt.Sprintf("%s must be a percentage, got %s", faceMatchFields[i], res[i].Raw), nil)
		}
	}
	return &models.FaceMatchResult{
		MatchConfidence:    res[0].Float(),
		IsMatch:            res[1].Bool(),
		IsLive:             res[2].Bool(),
		LivenessConfidence: res[3].Float(),
	}, nil
}

var faceMatchFields = []string{"matchConfidence", "isMatch", "isLive", "livenessConfidence"}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
	Temperature      float64        `json:"temperature"`
}

func textPart(s string) part {
	return part{Text: s}
}

func imagePart(img models.Image) part {
	return part{InlineData: &inlineData{
		MimeType: img.MIMEType,
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}}
}

// generate posts one prompt and returns the model's JSON text.
func (c *Client) generate(ctx context.Context, op string, parts []part, schema map[string]any) (string, error) {
	if !c.breaker.Allow() {
		return "", providers.NewProviderError(providers.ErrorProviderOutage, providerID, op, "provider temporarily disabled", providers.ErrCircuitOpen)
	}

	start := time.Now()
	text, err := c.call(ctx, op, parts, schema)
	c.record(ctx, op, err)
	if err != nil {
		c.logger.WarnContext(ctx, "gemini call failed",
			"operation", op,
			"category", providers.GetCategory(err),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", err
	}
	c.logger.DebugContext(ctx, "gemini call succeeded",
		"operation", op,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (c *Client) record(ctx context.Context, op string, err error) {
	if providers.CountsAgainstCircuit(err) {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.ErrorContext(ctx, "gemini circuit opened", "operation", op)
		}
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "gemini circuit closed", "operation", op)
	}
}

func (c *Client) call(ctx context.Context, op string, parts []part, schema map[string]any) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	})
	if err != nil {
		return "", providers.NewProviderError(providers.ErrorInternal, providerID, op, "encode request", err)
	}

	// The key travels in a header so it never appears in a *url.Error.
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", providers.NewProviderError(providers.ErrorInternal, providerID, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", transportError(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(op, resp.StatusCode, raw)
	}

	if !gjson.ValidBytes(raw) {
		return "", providers.NewProviderError(providers.ErrorBadData, providerID, op, "response body is not JSON", nil)
	}
	if reason := gjson.GetBytes(raw, "promptFeedback.blockReason"); reason.Exists() {
		return "", providers.NewProviderError(providers.ErrorBadData, providerID, op, "prompt blocked: "+reason.String(), nil)
	}
	text := gjson.GetBytes(raw, "candidates.0.content.parts.0.text")
	if !text.Exists() || strings.TrimSpace(text.String()) == "" {
		finish := gjson.GetBytes(raw, "candidates.0.finishReason").String()
		return "", providers.NewProviderError(providers.ErrorBadData, providerID, op, "response has no candidate text (finish reason "+finish+")", nil)
	}
	return stripCodeFence(text.String()), nil
}

// stripCodeFence removes a ```json fence some models add despite the JSON
// response type.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func transportError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return providers.NewProviderError(providers.ErrorTimeout, providerID, op, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return providers.NewProviderError(providers.ErrorInternal, providerID, op, "request cancelled", err)
	}
	return providers.NewProviderError(providers.ErrorProviderOutage, providerID, op, "request failed", err)
}

func statusError(op string, status int, body []byte) error {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = http.StatusText(status)
	}
	msg = fmt.Sprintf("status %d: %s", status, msg)

	var category providers.ErrorCategory
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		category = providers.ErrorAuthentication
	case status == http.StatusTooManyRequests:
		category = providers.ErrorRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		category = providers.ErrorTimeout
	case status >= 500:
		category = providers.ErrorProviderOutage
	case status == http.StatusBadRequest:
		category = providers.ErrorBadData
	default:
		category = providers.ErrorInternal
	}
	return providers.NewProviderError(category, providerID, op, msg, nil)
}
