package learningstyle

import (
	"math"
	"strings"

	"github.com/edustack/tutorguard-go/pkg/session"
)

// evidenceLimit caps the number of example phrases collected per category.
const evidenceLimit = 3

// evidencePhraseLimit caps the length of each collected phrase.
const evidencePhraseLimit = 80

// Preferences is the inferred 4-axis style vector plus a depth preference.
//
// Preferences are recomputed each turn and never persisted by this package;
// persistence, if any, is the profile store's concern.
type Preferences struct {
	// Visual is the visual style score in [0, 1].
	Visual float64 `json:"visual"`

	// Auditory is the auditory style score in [0, 1].
	Auditory float64 `json:"auditory"`

	// Kinesthetic is the kinesthetic style score in [0, 1].
	Kinesthetic float64 `json:"kinesthetic"`

	// Reading is the reading/writing style score in [0, 1].
	Reading float64 `json:"reading"`

	// PreferredDepth is the inferred elaboration level.
	PreferredDepth Depth `json:"preferred_depth"`
}

// DetectedStyle is the result of a single estimation call.
type DetectedStyle struct {
	// Preferences is the inferred style vector.
	Preferences Preferences `json:"preferences"`

	// Confidence is how much signal backed the estimation, in [0, 1].
	// It grows with both message volume and text volume.
	Confidence float64 `json:"confidence"`

	// Evidence maps each style to up to three example phrases that
	// triggered its keywords.
	Evidence map[Style][]string `json:"evidence,omitempty"`
}

// Detector estimates learning styles from conversation text.
//
// Estimation is a pure function of its inputs: deterministic, no side
// effects, no external calls.
type Detector struct{}

// NewDetector creates a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Estimate infers the learning style from all prior user-authored messages
// in the session plus the current message (which may be empty).
//
// Scores use keyword density scaled 20x and capped at 1.0, reflecting that
// keyword hits are rare relative to total tokens. Confidence is
// (clamp(messages/5) + clamp(words/100)) / 2, saturating at five messages
// and one hundred words.
func (d *Detector) Estimate(ctx *session.Context, currentMessage string) *DetectedStyle {
	var parts []string
	messageCount := 0
	if ctx != nil {
		parts = ctx.UserMessages()
		messageCount = len(parts)
	}
	if currentMessage != "" {
		parts = append(parts, currentMessage)
		messageCount++
	}

	text := strings.ToLower(strings.Join(parts, " "))
	words := strings.Fields(text)
	wordCount := len(words)

	prefs := Preferences{
		Visual:      keywordScore(words, styleKeywords[StyleVisual]),
		Auditory:    keywordScore(words, styleKeywords[StyleAuditory]),
		Kinesthetic: keywordScore(words, styleKeywords[StyleKinesthetic]),
		Reading:     keywordScore(words, styleKeywords[StyleReading]),
	}

	briefScore := keywordScore(words, depthKeywords[DepthBrief])
	detailedScore := keywordScore(words, depthKeywords[DepthDetailed])
	switch {
	case briefScore > 1.5*detailedScore && briefScore > 0:
		prefs.PreferredDepth = DepthBrief
	case detailedScore > 1.5*briefScore && detailedScore > 0:
		prefs.PreferredDepth = DepthDetailed
	default:
		prefs.PreferredDepth = DepthMedium
	}

	confidence := (clamp01(float64(messageCount)/5.0) + clamp01(float64(wordCount)/100.0)) / 2

	return &DetectedStyle{
		Preferences: prefs,
		Confidence:  confidence,
		Evidence:    collectEvidence(text),
	}
}

// Dominant returns the style with the highest score and that score.
func (s *DetectedStyle) Dominant() (Style, float64) {
	best := StyleVisual
	bestScore := s.Preferences.Visual
	if s.Preferences.Auditory > bestScore {
		best, bestScore = StyleAuditory, s.Preferences.Auditory
	}
	if s.Preferences.Kinesthetic > bestScore {
		best, bestScore = StyleKinesthetic, s.Preferences.Kinesthetic
	}
	if s.Preferences.Reading > bestScore {
		best, bestScore = StyleReading, s.Preferences.Reading
	}
	return best, bestScore
}

// keywordScore computes clamp(matches / totalWords * 20, 0, 1).
func keywordScore(words []string, keywords []string) float64 {
	if len(words) == 0 {
		return 0
	}

	keywordSet := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		keywordSet[kw] = struct{}{}
	}

	matches := 0
	for _, word := range words {
		trimmed := strings.Trim(word, ".,!?;:\"'()")
		if _, ok := keywordSet[trimmed]; ok {
			matches++
		}
	}

	return clamp01(float64(matches) / float64(len(words)) * 20.0)
}

// collectEvidence scans sentences for keyword hits and gathers up to three
// example phrases per style, truncated to 80 characters.
func collectEvidence(text string) map[Style][]string {
	sentences := splitSentences(text)
	evidence := make(map[Style][]string)

	for style, keywords := range styleKeywords {
		for _, sentence := range sentences {
			if len(evidence[style]) >= evidenceLimit {
				break
			}
			if containsKeyword(sentence, keywords) {
				phrase := strings.TrimSpace(sentence)
				if len(phrase) > evidencePhraseLimit {
					phrase = phrase[:evidencePhraseLimit]
				}
				if phrase != "" {
					evidence[style] = append(evidence[style], phrase)
				}
			}
		}
	}

	return evidence
}

// splitSentences splits text on sentence terminators.
func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

// containsKeyword reports whether any keyword appears as a word in the sentence.
func containsKeyword(sentence string, keywords []string) bool {
	words := strings.Fields(sentence)
	for _, word := range words {
		trimmed := strings.Trim(word, ".,!?;:\"'()")
		for _, kw := range keywords {
			if trimmed == kw {
				return true
			}
		}
	}
	return false
}

// clamp01 clamps v into [0, 1].
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
