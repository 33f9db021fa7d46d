package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altid/internal/verification/models"
	id "altid/pkg/domain"
)

var issuedAt = time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)

func fixedIssuer() *Issuer {
	return NewIssuer(DefaultConfig(), WithIDGenerator(func() string {
		return "0f0e0d0c-0b0a-4908-8706-050403020100"
	}))
}

func verifiedSession() *models.Session {
	dob := "1990-05-01"
	s := models.NewSession(id.NewSessionID(), issuedAt)
	s.State = models.StateSuccess
	s.Identity = &models.ExtractedIdentity{Name: "Jane Doe", DateOfBirth: &dob, AgeVerified: true}
	s.FaceMatch = &models.FaceMatchResult{MatchConfidence: 92, IsMatch: true, IsLive: true, LivenessConfidence: 97}
	return s
}

func decodeSegment(t *testing.T, seg string) []byte {
	t.Helper()
	assert.NotContains(t, seg, "=")
	assert.NotContains(t, seg, "+")
	assert.NotContains(t, seg, "/")
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	require.NoError(t, err)
	return raw
}

func TestBuildClaims(t *testing.T) {
	claims := fixedIssuer().BuildClaims(verifiedSession(), issuedAt)

	assert.Equal(t, "altid_0f0e0d0c-0b0a-4908-8706-050403020100", claims.TokenID)
	assert.True(t, claims.Verified)
	assert.Equal(t, "Aadhaar", claims.GovIDType)
	assert.Equal(t, "AltID Demo", claims.Source)
	assert.Equal(t, "Jane Doe", claims.Name)
	require.NotNil(t, claims.Age)
	assert.Equal(t, 36, *claims.Age)
	assert.True(t, claims.AgeVerified)
	assert.InDelta(t, 0.92, claims.FaceMatchScore, 1e-9)
	assert.InDelta(t, 0.97, claims.LivenessScore, 1e-9)
	assert.Equal(t, "2026-05-01T10:30:00.000Z", claims.IssuedAt)
	assert.Equal(t, "2026-05-01T12:30:00.000Z", claims.ExpiresIn)
	assert.True(t, claims.Revocable)
	assert.Equal(t, "hackathon.io", claims.Audience)
	assert.Equal(t, "https://hackathon.io/form", claims.RedirectURL)
}

func TestBuildClaimsAge(t *testing.T) {
	issuer := fixedIssuer()

	t.Run("explicit age wins over date of birth", func(t *testing.T) {
		s := verifiedSession()
		age := 41
		s.Identity.Age = &age
		claims := issuer.BuildClaims(s, issuedAt)
		assert.Equal(t, 41, *claims.Age)
	})

	t.Run("birthday later in the year is not yet counted", func(t *testing.T) {
		s := verifiedSession()
		dob := "2000-12-31"
		s.Identity.DateOfBirth = &dob
		claims := issuer.BuildClaims(s, issuedAt)
		assert.Equal(t, 25, *claims.Age)
	})

	t.Run("unparseable date of birth yields null age", func(t *testing.T) {
		s := verifiedSession()
		dob := "01/05/1990"
		s.Identity.DateOfBirth = &dob
		claims := issuer.BuildClaims(s, issuedAt)
		assert.Nil(t, claims.Age)

		raw, err := json.Marshal(claims)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"age":null`)
	})
}

func TestBuildClaimsIsTotal(t *testing.T) {
	claims := fixedIssuer().BuildClaims(nil, issuedAt)
	assert.True(t, claims.Verified)
	assert.Empty(t, claims.Name)
	assert.Nil(t, claims.Age)
}

func TestEncodeTokenRoundTrip(t *testing.T) {
	claims := fixedIssuer().BuildClaims(verifiedSession(), issuedAt)

	encoded, err := EncodeToken(claims)
	require.NoError(t, err)

	parts := strings.Split(encoded, ".")
	require.Len(t, parts, 3)

	assert.JSONEq(t, `{"alg":"HS256","typ":"JWT"}`, string(decodeSegment(t, parts[0])))

	var payload Claims
	require.NoError(t, json.Unmarshal(decodeSegment(t, parts[1]), &payload))
	assert.Equal(t, claims, payload)

	assert.Equal(t, signaturePrefix+demoPrivateKey, string(decodeSegment(t, parts[2])))
}

func TestEncodeTokenKeyOrder(t *testing.T) {
	encoded, err := EncodeToken(fixedIssuer().BuildClaims(verifiedSession(), issuedAt))
	require.NoError(t, err)

	payload := string(decodeSegment(t, strings.Split(encoded, ".")[1]))
	keys := []string{
		"token_id", "verified", "gov_id_type", "source", "name", "age", "age_verified",
		"face_match_score", "liveness_score", "issued_at", "expires_in", "revocable",
		"aud", "redirect_url",
	}
	last := -1
	for _, k := range keys {
		idx := strings.Index(payload, `"`+k+`":`)
		require.GreaterOrEqual(t, idx, 0, "missing key %s", k)
		assert.Greater(t, idx, last, "key %s out of order", k)
		last = idx
	}
}

func TestDecodeToken(t *testing.T) {
	claims := fixedIssuer().BuildClaims(verifiedSession(), issuedAt)
	encoded, err := EncodeToken(claims)
	require.NoError(t, err)

	decoded, err := DecodeToken(encoded)
	require.NoError(t, err)
	assert.Equal(t, claims, *decoded)

	exp, err := decoded.GetExpirationTime()
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(2*time.Hour), exp.Time.UTC())

	_, err = DecodeToken("not-a-token")
	assert.Error(t, err)
}

func TestTokenIsNeverVerifiable(t *testing.T) {
	encoded, err := EncodeToken(fixedIssuer().BuildClaims(verifiedSession(), issuedAt))
	require.NoError(t, err)

	_, err = jwt.Parse(encoded, func(*jwt.Token) (interface{}, error) {
		return []byte(demoPrivateKey), nil
	}, jwt.WithoutClaimsValidation())
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	assert.ErrorIs(t, placeholderMethod{}.Verify("a.b", []byte("c"), nil), ErrNotVerifiable)
}

func TestIssue(t *testing.T) {
	tok, err := fixedIssuer().Issue(verifiedSession(), issuedAt)
	require.NoError(t, err)

	assert.Equal(t, "altid_0f0e0d0c-0b0a-4908-8706-050403020100", tok.TokenID)
	assert.Equal(t, issuedAt, tok.IssuedAt)

	decoded, err := DecodeToken(tok.Encoded)
	require.NoError(t, err)
	var fromPayload Claims
	require.NoError(t, json.Unmarshal(tok.Claims, &fromPayload))
	assert.Equal(t, *decoded, fromPayload)
}
