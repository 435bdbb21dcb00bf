package core_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/tutorguard-go/pkg/core"
	"github.com/edustack/tutorguard-go/pkg/session"
)

func TestProcessAIResponseClean(t *testing.T) {
	response := "Osmosis moves water across a membrane."
	result, err := core.ProcessAIResponse("What is osmosis?", response, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, response, result.FinalResponse)
	assert.NotNil(t, result.DetectedStyle)
	assert.Empty(t, result.MemoryClaims)
	assert.Empty(t, result.MathIssues)
}

func TestProcessAIResponsePrependsMemoryCorrections(t *testing.T) {
	response := "We discussed photosynthesis earlier. Chloroplasts absorb light."
	result, err := core.ProcessAIResponse("", response, nil, nil)
	require.NoError(t, err)

	require.Len(t, result.MemoryClaims, 1)
	assert.False(t, result.MemoryClaims[0].IsValid)

	// Corrections are prepended; the original response survives below them.
	assert.True(t, strings.HasPrefix(result.FinalResponse, "I don't actually have a record"))
	assert.Contains(t, result.FinalResponse, response)
}

func TestProcessAIResponseAppendsMathWarnings(t *testing.T) {
	response := "Quick check: 9 * 9 = 80."
	result, err := core.ProcessAIResponse("", response, nil, nil)
	require.NoError(t, err)

	require.NotEmpty(t, result.MathIssues)
	assert.Contains(t, result.MathIssues[0], "81")

	assert.True(t, strings.HasPrefix(result.FinalResponse, response))
	assert.Contains(t, result.FinalResponse, "Math Verification")
	assert.Contains(t, result.FinalResponse, "9 * 9 = 81")
}

func TestProcessAIResponseBothIssues(t *testing.T) {
	response := "We discussed calculus earlier. Also, 2 + 2 = 5."
	result, err := core.ProcessAIResponse("", response, nil, nil)
	require.NoError(t, err)

	// The stateless path assembles rather than falling back: corrections
	// up front, the untouched response, then the math block.
	assert.True(t, strings.HasPrefix(result.FinalResponse, "I don't actually have a record"))
	assert.Contains(t, result.FinalResponse, response)
	assert.Contains(t, result.FinalResponse, "Math Verification")
	assert.NotEqual(t, core.SafetyFallbackMessage, result.FinalResponse)
}

func TestProcessAIResponseVerifiedClaim(t *testing.T) {
	sess := session.NewContext()
	sess.AddMessage(session.ChatMessage{ID: 1, Content: "Explain photosynthesis please", Role: session.RoleUser})
	sess.AddMessage(session.ChatMessage{ID: 2, Content: "Photosynthesis converts light.", Role: session.RoleAssistant})

	response := "As we discussed photosynthesis, it happens in chloroplasts."
	result, err := core.ProcessAIResponse("more please", response, sess, nil)
	require.NoError(t, err)

	require.Len(t, result.MemoryClaims, 1)
	assert.True(t, result.MemoryClaims[0].IsValid)
	assert.Equal(t, response, result.FinalResponse)

	// The stateless path never grows the session.
	assert.Equal(t, 2, sess.MessageCount())
}

func TestProcessAIResponseEmptyResponse(t *testing.T) {
	_, err := core.ProcessAIResponse("query", "", nil, nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
