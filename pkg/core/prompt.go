package core

import (
	"fmt"
	"strings"

	"github.com/edustack/tutorguard-go/pkg/learningstyle"
	"github.com/edustack/tutorguard-go/pkg/profile"
	"github.com/edustack/tutorguard-go/pkg/session"
)

// SafetyFallbackMessage replaces the model output when both validators fail
// in the same turn. The text acknowledges uncertainty instead of shipping a
// response that is wrong on two independent axes.
const SafetyFallbackMessage = "I want to make sure I give you accurate information, and I'm not fully " +
	"confident in my last answer. Let's take a step back. I can:\n\n" +
	"1. Give you a short summary of what we can verify so far\n" +
	"2. Work through the problem again step by step\n" +
	"3. Explain the underlying concept in more detail\n\n" +
	"Which would be most helpful?"

// promptRules is the fixed instruction block appended to every system
// prompt. The never-assert rule is the prompt-side half of memory claim
// validation: the post-process validator catches what the instruction
// fails to prevent.
const promptRules = `Rules:
1. Never state that something was discussed, mentioned, or agreed earlier in this conversation unless it appears in the session summary above. If you are unsure, say so.
2. Structure answers in three parts: a short direct answer, an expanded explanation, and suggested next actions.
3. When doing arithmetic, show each step and double-check every calculation before presenting it.
4. Adapt your tone and format to the learner signals above: match the preferred learning style and answer depth, and respond to frustration with patience.`

// buildSystemPrompt assembles the grounded system prompt from the profile
// (only when the learner opted in), the session digest, and the detected
// style breakdown.
func buildSystemPrompt(prof *profile.Profile, sess *session.Context, style *learningstyle.DetectedStyle) string {
	var sb strings.Builder

	sb.WriteString("You are a patient, accurate tutor. Ground every answer in what you actually know about this learner and this conversation.\n\n")

	if summary := prof.Summary(); summary != "" {
		sb.WriteString(summary)
		sb.WriteString("\n")
	}

	if sess != nil && sess.MessageCount() > 0 {
		sb.WriteString("Current session:\n")
		sb.WriteString(sess.Summary(5))
		sb.WriteString("\n")
	}

	if style != nil {
		sb.WriteString(formatStyleBreakdown(style))
		sb.WriteString("\n")
	}

	sb.WriteString(promptRules)
	return sb.String()
}

// formatStyleBreakdown renders the detected style scores for the prompt.
func formatStyleBreakdown(style *learningstyle.DetectedStyle) string {
	var sb strings.Builder
	sb.WriteString("Detected learner signals:\n")

	dominant, score := style.Dominant()
	if score > 0 {
		fmt.Fprintf(&sb, "- Dominant learning style: %s (%.2f)\n", dominant, score)
	}
	fmt.Fprintf(&sb, "- Style scores: visual %.2f, auditory %.2f, kinesthetic %.2f, reading %.2f\n",
		style.Preferences.Visual, style.Preferences.Auditory,
		style.Preferences.Kinesthetic, style.Preferences.Reading)
	fmt.Fprintf(&sb, "- Preferred answer depth: %s\n", style.Preferences.PreferredDepth)
	fmt.Fprintf(&sb, "- Detection confidence: %.2f\n", style.Confidence)

	return sb.String()
}
