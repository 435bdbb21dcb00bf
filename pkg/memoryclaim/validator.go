package memoryclaim

import (
	"fmt"
	"strings"

	"github.com/edustack/tutorguard-go/pkg/profile"
	"github.com/edustack/tutorguard-go/pkg/session"
)

// DefaultThreshold is the confidence a claim needs to be considered valid.
// It is shared with the session topic-discussed check so both stay
// calibrated against the same scale.
const DefaultThreshold = 0.75

// Confidence levels assigned during verification.
const (
	sessionConfidence = 0.8
	profileConfidence = 0.9
)

// preferenceKeywords mark claims about the user's preferences, which may
// additionally be verified against the stored profile.
var preferenceKeywords = []string{
	"learning style", "prefer", "preference", "interest", "interested",
	"like", "favorite", "enjoy", "visual", "auditory", "kinesthetic",
	"reading",
}

// Claim is one verified memory claim.
type Claim struct {
	// ClaimText is the matched claim fragment from the response.
	ClaimText string `json:"claim_text"`

	// Topic is the topic phrase the claim asserts was discussed.
	Topic string `json:"topic"`

	// IsValid is true if the claim was verified against session state or
	// profile data.
	IsValid bool `json:"is_valid"`

	// Confidence is the verification confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Evidence names what backed a valid claim (empty if invalid).
	Evidence string `json:"evidence,omitempty"`
}

// Result is the outcome of validating a response.
type Result struct {
	// Valid is true iff every extracted claim was verified.
	Valid bool `json:"valid"`

	// Claims lists every extracted claim with its verification outcome.
	Claims []Claim `json:"claims,omitempty"`

	// CorrectedResponse is the rewritten response with invalid-claim
	// sentences replaced (empty when Valid).
	CorrectedResponse string `json:"corrected_response,omitempty"`
}

// Validator verifies memory claims against session state and the stored
// profile, and rewrites responses containing unverifiable claims.
type Validator struct {
	extractor ClaimExtractor
	threshold float64
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithExtractor swaps the claim extraction strategy.
func WithExtractor(e ClaimExtractor) ValidatorOption {
	return func(v *Validator) {
		if e != nil {
			v.extractor = e
		}
	}
}

// WithThreshold overrides the validity threshold (default 0.75).
func WithThreshold(t float64) ValidatorOption {
	return func(v *Validator) {
		if t > 0 && t <= 1 {
			v.threshold = t
		}
	}
}

// NewValidator creates a Validator with the regex extractor and default
// threshold.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		extractor: NewRegexExtractor(),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate extracts memory claims from the response and verifies each one.
//
// Verification starts at confidence zero. A session topic hit raises it to
// 0.8 with the tracked topic's sample context as evidence. Claims using
// preference language are additionally checked against the supplied profile
// (which may be nil); a profile hit raises confidence to 0.9 with evidence
// "User profile data". A claim is valid when its confidence reaches the
// threshold.
//
// When any claim is invalid, the sentence containing it is replaced with an
// honest disclaimer offering three next actions, and the rewritten text is
// returned as CorrectedResponse. Corrections for multiple invalid claims
// apply sequentially; only the first unresolved sentence per claim is
// replaced.
func (v *Validator) Validate(response string, sess *session.Context, prof *profile.Profile) *Result {
	result := &Result{Valid: true}

	for _, candidate := range v.extractor.ExtractClaims(response) {
		claim := Claim{
			ClaimText: candidate.ClaimText,
			Topic:     candidate.Topic,
		}

		if sess != nil && sess.HasDiscussedTopic(candidate.Topic, v.threshold) {
			claim.Confidence = sessionConfidence
			if sample, ok := sess.TopicSample(candidate.Topic); ok {
				claim.Evidence = sample
			}
		}

		if prof != nil && isPreferenceClaim(candidate.Topic) && prof.MatchesTopic(candidate.Topic) {
			if profileConfidence > claim.Confidence {
				claim.Confidence = profileConfidence
				claim.Evidence = "User profile data"
			}
		}

		claim.IsValid = claim.Confidence >= v.threshold
		if !claim.IsValid {
			claim.Evidence = ""
			result.Valid = false
		}
		result.Claims = append(result.Claims, claim)
	}

	if !result.Valid {
		result.CorrectedResponse = v.correctResponse(response, result.Claims)
	}
	return result
}

// GenerateHonestAlternative produces the disclaimer text used to replace an
// unverifiable claim about a topic.
func GenerateHonestAlternative(topic string) string {
	return fmt.Sprintf(
		"I don't actually have a record of us covering %s in this conversation, so I won't pretend otherwise. "+
			"We could do a quick summary of %s, continue from where you think we left off, or start with a fresh explanation - whichever works best for you.",
		topic, topic)
}

// correctResponse replaces the sentence containing each invalid claim with
// an honest disclaimer. Sentences already replaced are not replaced again.
func (v *Validator) correctResponse(response string, claims []Claim) string {
	sentences := splitSentencesKeepDelimiters(response)
	replaced := make([]bool, len(sentences))

	for _, claim := range claims {
		if claim.IsValid {
			continue
		}
		for i, sentence := range sentences {
			if replaced[i] {
				continue
			}
			if strings.Contains(sentence, claim.ClaimText) {
				sentences[i] = " " + GenerateHonestAlternative(claim.Topic)
				replaced[i] = true
				break
			}
		}
	}

	return strings.TrimSpace(strings.Join(sentences, ""))
}

// isPreferenceClaim reports whether the topic uses preference language.
func isPreferenceClaim(topic string) bool {
	lower := strings.ToLower(topic)
	for _, kw := range preferenceKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// splitSentencesKeepDelimiters splits text into sentences, keeping the
// terminating punctuation attached so the pieces can be rejoined.
func splitSentencesKeepDelimiters(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences = append(sentences, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}
