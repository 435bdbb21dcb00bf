package memoryclaim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/tutorguard-go/pkg/memoryclaim"
	"github.com/edustack/tutorguard-go/pkg/profile"
	"github.com/edustack/tutorguard-go/pkg/session"
)

// discussedSession builds a session where the topic crossed the validity
// threshold (two mentions: 0.7 then 0.85).
func discussedSession(topic string) *session.Context {
	sess := session.NewContext()
	sess.AddMessage(session.ChatMessage{ID: 1, Content: "Can you explain " + topic, Role: session.RoleUser})
	sess.AddMessage(session.ChatMessage{ID: 2, Content: "Sure, " + topic + " works like this.", Role: session.RoleAssistant})
	return sess
}

func TestValidateVerifiedClaim(t *testing.T) {
	validator := memoryclaim.NewValidator()
	sess := discussedSession("photosynthesis")

	result := validator.Validate("As we discussed photosynthesis, plants convert light.", sess, nil)

	assert.True(t, result.Valid)
	require.Len(t, result.Claims, 1)
	assert.True(t, result.Claims[0].IsValid)
	assert.InDelta(t, 0.8, result.Claims[0].Confidence, 1e-9)
	assert.NotEmpty(t, result.Claims[0].Evidence)
	assert.Empty(t, result.CorrectedResponse)
}

func TestValidateFalseClaim(t *testing.T) {
	validator := memoryclaim.NewValidator()
	sess := session.NewContext()
	sess.AddMessage(session.ChatMessage{ID: 1, Content: "Help me with algebra homework", Role: session.RoleUser})

	response := "We discussed photosynthesis earlier. The Calvin cycle fixes carbon."
	result := validator.Validate(response, sess, nil)

	assert.False(t, result.Valid)
	require.Len(t, result.Claims, 1)
	assert.False(t, result.Claims[0].IsValid)
	assert.Equal(t, "photosynthesis", result.Claims[0].Topic)
	assert.Zero(t, result.Claims[0].Confidence)

	// The offending sentence is replaced by the honest disclaimer; the
	// rest of the response survives.
	require.NotEmpty(t, result.CorrectedResponse)
	assert.NotContains(t, result.CorrectedResponse, "We discussed photosynthesis")
	assert.Contains(t, result.CorrectedResponse, "don't actually have a record")
	assert.Contains(t, result.CorrectedResponse, "photosynthesis")
	assert.Contains(t, result.CorrectedResponse, "The Calvin cycle fixes carbon.")
}

func TestValidateNilSession(t *testing.T) {
	validator := memoryclaim.NewValidator()

	result := validator.Validate("We discussed recursion before.", nil, nil)

	assert.False(t, result.Valid)
	require.Len(t, result.Claims, 1)
	assert.False(t, result.Claims[0].IsValid)
}

func TestValidateNoClaims(t *testing.T) {
	validator := memoryclaim.NewValidator()

	result := validator.Validate("Photosynthesis converts light into chemical energy.", nil, nil)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Claims)
	assert.Empty(t, result.CorrectedResponse)
}

func TestValidatePreferenceClaimAgainstProfile(t *testing.T) {
	validator := memoryclaim.NewValidator()

	prof := &profile.Profile{
		SchemaVersion: profile.SchemaVersion,
		UserID:        "user_001",
		OptIn:         true,
		LearningStyles: profile.StyleScores{
			Visual: 0.9,
		},
	}

	result := validator.Validate("Your learning style is visual, so here is a diagram.", nil, prof)

	assert.True(t, result.Valid)
	require.Len(t, result.Claims, 1)
	assert.True(t, result.Claims[0].IsValid)
	assert.InDelta(t, 0.9, result.Claims[0].Confidence, 1e-9)
	assert.Equal(t, "User profile data", result.Claims[0].Evidence)
}

func TestValidatePreferenceClaimWithoutProfile(t *testing.T) {
	validator := memoryclaim.NewValidator()

	result := validator.Validate("Your learning style is visual, so here is a diagram.", nil, nil)

	assert.False(t, result.Valid)
}

func TestValidateThresholdOption(t *testing.T) {
	// With a lowered threshold, a single mention (score 0.7) verifies.
	validator := memoryclaim.NewValidator(memoryclaim.WithThreshold(0.6))

	sess := session.NewContext()
	sess.AddMessage(session.ChatMessage{ID: 1, Content: "Can you explain photosynthesis", Role: session.RoleUser})

	result := validator.Validate("We discussed photosynthesis earlier.", sess, nil)
	assert.True(t, result.Valid)
}

func TestValidateMultipleClaimsMixed(t *testing.T) {
	validator := memoryclaim.NewValidator()
	sess := discussedSession("fractions")

	response := "We discussed fractions earlier. You said that you love calculus."
	result := validator.Validate(response, sess, nil)

	assert.False(t, result.Valid)
	require.Len(t, result.Claims, 2)

	byTopic := map[string]memoryclaim.Claim{}
	for _, claim := range result.Claims {
		byTopic[claim.Topic] = claim
	}
	assert.True(t, byTopic["fractions"].IsValid)
	assert.False(t, byTopic["you love calculus"].IsValid)

	assert.Contains(t, result.CorrectedResponse, "We discussed fractions earlier.")
	assert.NotContains(t, result.CorrectedResponse, "You said that you love calculus")
}

func TestGenerateHonestAlternative(t *testing.T) {
	text := memoryclaim.GenerateHonestAlternative("photosynthesis")

	assert.Contains(t, text, "photosynthesis")
	assert.Contains(t, text, "don't actually have a record")
}

type stubExtractor struct {
	claims []memoryclaim.Candidate
}

func (s *stubExtractor) ExtractClaims(string) []memoryclaim.Candidate {
	return s.claims
}

func TestValidateCustomExtractor(t *testing.T) {
	stub := &stubExtractor{claims: []memoryclaim.Candidate{
		{ClaimText: "we went over osmosis", Topic: "osmosis"},
	}}
	validator := memoryclaim.NewValidator(memoryclaim.WithExtractor(stub))

	result := validator.Validate("anything at all", nil, nil)

	require.Len(t, result.Claims, 1)
	assert.Equal(t, "osmosis", result.Claims[0].Topic)
}
