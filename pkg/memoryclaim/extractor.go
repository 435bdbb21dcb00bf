// Package memoryclaim detects and falsifies prior-conversation claims in
// generated tutor responses.
package memoryclaim

import (
	"regexp"
	"strings"
)

// Candidate is one extracted claim: the matched text and the topic phrase
// it asserts was discussed.
type Candidate struct {
	// ClaimText is the full matched claim fragment.
	ClaimText string

	// Topic is the captured topic phrase, normalized.
	Topic string
}

// ClaimExtractor produces candidate claims from generated text.
//
// The default implementation is regex-driven; the interface exists so the
// matching strategy can be swapped (for example, an embedding-based
// matcher) without touching validation or correction logic.
type ClaimExtractor interface {
	// ExtractClaims returns the candidate claims found in text.
	ExtractClaims(text string) []Candidate
}

// claimPatterns is the ordered battery of claim-trigger templates. Each
// pattern captures the topic phrase following the trigger.
var claimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwe (?:discussed|talked about|covered|went over)\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\byou (?:told|mentioned to) me\s+(?:that\s+)?([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\bearlier,?\s+we\s+(?:discussed|talked about|covered|went over|worked on)\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\bremember when\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\byour learning style is\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\bas i (?:mentioned|said|explained)(?:\s+(?:earlier|before))?,?\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\blast time,?\s+we\s+(?:discussed|talked about|covered|looked at)\s+([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\byou said\s+(?:that\s+)?([^,.!?\n]+)`),
	regexp.MustCompile(`(?i)\byou prefer\s+([^,.!?\n]+)`),
}

// temporalQualifiers are trailing words stripped from captured topics.
var temporalQualifiers = []string{
	"earlier", "before", "previously", "last time", "yesterday", "today",
	"already", "in our last session",
}

// RegexExtractor is the default regex-driven claim extractor.
type RegexExtractor struct{}

// NewRegexExtractor creates a RegexExtractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// ExtractClaims applies the pattern battery in order, producing one
// candidate per match. Duplicate and overlapping claim texts are collapsed:
// a match contained in (or containing) an already-kept match is the same
// claim seen by two patterns, not a second claim.
func (e *RegexExtractor) ExtractClaims(text string) []Candidate {
	var candidates []Candidate

	for _, pattern := range claimPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			claimText := strings.TrimSpace(match[0])
			lower := strings.ToLower(claimText)

			dup := false
			for _, kept := range candidates {
				keptLower := strings.ToLower(kept.ClaimText)
				if strings.Contains(keptLower, lower) || strings.Contains(lower, keptLower) {
					dup = true
					break
				}
			}
			if dup {
				continue
			}

			candidates = append(candidates, Candidate{
				ClaimText: claimText,
				Topic:     normalizeTopic(match[1]),
			})
		}
	}
	return candidates
}

// normalizeTopic lowercases the captured phrase and strips trailing
// temporal qualifiers.
func normalizeTopic(topic string) string {
	normalized := strings.ToLower(strings.TrimSpace(topic))
	for changed := true; changed; {
		changed = false
		for _, qualifier := range temporalQualifiers {
			if strings.HasSuffix(normalized, " "+qualifier) {
				normalized = strings.TrimSpace(strings.TrimSuffix(normalized, qualifier))
				changed = true
			}
		}
	}
	return normalized
}
