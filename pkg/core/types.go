package core

import (
	"time"

	"github.com/edustack/tutorguard-go/pkg/learningstyle"
	"github.com/edustack/tutorguard-go/pkg/memoryclaim"
	"github.com/edustack/tutorguard-go/pkg/profile"
	"github.com/edustack/tutorguard-go/pkg/session"
)

// PreProcessedContext is the output of the pre-process phase. The caller
// feeds SystemPrompt to the LLM and hands the model output back to
// PostProcessResponse.
type PreProcessedContext struct {
	// UserID is the user this turn belongs to.
	UserID string `json:"user_id"`

	// Session is the user's conversation context.
	Session *session.Context `json:"-"`

	// Profile is the user's stored profile (nil if absent or not opted in).
	Profile *profile.Profile `json:"profile,omitempty"`

	// DetectedStyle is the inferred learning style (nil if detection failed).
	DetectedStyle *learningstyle.DetectedStyle `json:"detected_style,omitempty"`

	// SystemPrompt is the grounded system prompt to send to the model.
	SystemPrompt string `json:"system_prompt"`

	// Metadata carries turn metadata (message length, session size,
	// style confidence).
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// PostProcessedResponse is the output of the post-process phase.
type PostProcessedResponse struct {
	// FinalResponse is the text to show the user, possibly corrected or
	// replaced by the safety fallback.
	FinalResponse string `json:"final_response"`

	// MemoryValidationPassed is false when the memory claim validator
	// found at least one unverifiable claim.
	MemoryValidationPassed bool `json:"memory_validation_passed"`

	// MathValidationPassed is false when the math engine found at least
	// one incorrect calculation.
	MathValidationPassed bool `json:"math_validation_passed"`

	// FallbackUsed is true when both validators failed and the response
	// was replaced with the safety fallback text.
	FallbackUsed bool `json:"fallback_used"`

	// Corrections describes each correction applied, in order.
	Corrections []string `json:"corrections,omitempty"`

	// Telemetry carries per-turn counters and error notes.
	Telemetry map[string]interface{} `json:"telemetry,omitempty"`
}

// ProcessedAIResponse is the result of the stateless processing entry point.
type ProcessedAIResponse struct {
	// FinalResponse is the assembled text: memory corrections prepended,
	// math warnings appended.
	FinalResponse string `json:"final_response"`

	// DetectedStyle is the style inferred from the session and query.
	DetectedStyle *learningstyle.DetectedStyle `json:"detected_style,omitempty"`

	// MemoryClaims lists every extracted memory claim with its outcome.
	MemoryClaims []memoryclaim.Claim `json:"memory_claims,omitempty"`

	// MathIssues lists incorrect calculations found in the response.
	MathIssues []string `json:"math_issues,omitempty"`

	// MathSteps carries the correction block when math issues were found.
	MathSteps string `json:"math_steps,omitempty"`
}

// SessionStats summarizes a user's session state.
type SessionStats struct {
	// Exists is false when the user has no live session.
	Exists bool `json:"exists"`

	// MessageCount is the number of stored messages.
	MessageCount int `json:"message_count"`

	// TopicCount is the number of tracked topics.
	TopicCount int `json:"topic_count"`

	// TopTopics are the highest-salience recent topics.
	TopTopics []session.ConversationTopic `json:"top_topics,omitempty"`

	// StartedAt is when the session began.
	StartedAt time.Time `json:"started_at,omitempty"`

	// Duration is how long the session has been running.
	Duration time.Duration `json:"duration,omitempty"`
}
