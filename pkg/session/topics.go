package session

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// initialTopicScore is the salience assigned to a topic on first mention.
const initialTopicScore = 0.7

// stopWords are common tokens excluded from topic extraction.
var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "because": {}, "been": {},
	"before": {}, "being": {}, "between": {}, "both": {}, "could": {},
	"does": {}, "doing": {}, "down": {}, "during": {}, "each": {},
	"from": {}, "have": {}, "having": {}, "here": {}, "into": {},
	"just": {}, "like": {}, "more": {}, "most": {}, "only": {},
	"other": {}, "over": {}, "please": {}, "really": {}, "same": {},
	"should": {}, "some": {}, "such": {}, "than": {}, "that": {},
	"their": {}, "them": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "those": {}, "through": {}, "under": {},
	"until": {}, "very": {}, "want": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "will": {}, "with": {},
	"would": {}, "your": {}, "yours": {}, "know": {}, "need": {},
	"tell": {}, "help": {}, "thanks": {}, "thank": {},
}

// extractTopics updates the topic index from message content.
//
// Tokens are lowercased, stripped of punctuation, and filtered: stop words
// and tokens of length <= 3 are dropped, surviving tokens deduplicated.
// A new topic starts at score 0.7; a repeat mention smooths the score toward
// 1.0 via score = (old + 1.0) / 2.
//
// Caller must hold the write lock.
func (c *Context) extractTopics(content string, at time.Time) {
	if content == "" {
		return
	}

	sample := content
	if len(sample) > sampleContextLimit {
		sample = sample[:sampleContextLimit]
	}

	seen := make(map[string]struct{})
	for _, raw := range strings.Fields(strings.ToLower(content)) {
		token := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len(token) <= 3 {
			continue
		}
		if _, skip := stopWords[token]; skip {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}

		if topic, ok := c.topics[token]; ok {
			topic.Score = (topic.Score + 1.0) / 2
			topic.MentionCount++
			if at.After(topic.LastMention) {
				topic.LastMention = at
			}
			topic.SampleContext = sample
		} else {
			c.topics[token] = &ConversationTopic{
				Topic:         token,
				Score:         initialTopicScore,
				LastMention:   at,
				MentionCount:  1,
				SampleContext: sample,
			}
		}
	}
}

// RecentTopics returns the top-k topics mentioned within the window,
// ranked by score weighted for recency.
//
// The recency weight is 1 / (1 + ageMinutes/30), a half-life of roughly
// thirty minutes. A zero window means "since session start".
func (c *Context) RecentTopics(window time.Duration, topK int) []ConversationTopic {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cutoff := c.startedAt
	if window > 0 {
		cutoff = time.Now().Add(-window)
	}

	type ranked struct {
		topic  ConversationTopic
		weight float64
	}

	var candidates []ranked
	for _, topic := range c.topics {
		if topic.LastMention.Before(cutoff) {
			continue
		}
		candidates = append(candidates, ranked{
			topic:  *topic,
			weight: topic.Score * recencyWeight(topic.LastMention),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].weight > candidates[j].weight
	})

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]ConversationTopic, len(candidates))
	for i, cand := range candidates {
		out[i] = cand.topic
	}
	return out
}

// HasDiscussedTopic reports whether a tracked topic matching the given text
// (exact key or substring overlap in either direction) has salience at or
// above the threshold.
func (c *Context) HasDiscussedTopic(topic string, threshold float64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(topic))
	if needle == "" {
		return false
	}

	for key, tracked := range c.topics {
		if tracked.Score < threshold {
			continue
		}
		if key == needle || strings.Contains(needle, key) || strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

// TopicSample returns the stored sample context for the best-matching
// tracked topic, using the same matching rule as HasDiscussedTopic.
func (c *Context) TopicSample(topic string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(topic))
	if needle == "" {
		return "", false
	}

	var best *ConversationTopic
	for key, tracked := range c.topics {
		if key == needle || strings.Contains(needle, key) || strings.Contains(key, needle) {
			if best == nil || tracked.Score > best.Score {
				best = tracked
			}
		}
	}
	if best == nil {
		return "", false
	}
	return best.SampleContext, true
}

// recencyWeight decays topic relevance with age in minutes.
func recencyWeight(lastMention time.Time) float64 {
	ageMinutes := time.Since(lastMention).Minutes()
	if ageMinutes < 0 {
		ageMinutes = 0
	}
	return 1.0 / (1.0 + ageMinutes/30.0)
}
