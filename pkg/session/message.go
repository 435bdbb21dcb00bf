// Package session provides per-user ephemeral conversation state: a bounded
// message history and a decaying topic-relevance index.
package session

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser marks a message authored by the user.
	RoleUser Role = "user"

	// RoleAssistant marks a message authored by the tutor.
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single message in a conversation.
//
// Messages are immutable once created and owned exclusively by the Context
// they were appended to.
type ChatMessage struct {
	// ID is the unique identifier of the message.
	ID int64 `json:"id"`

	// Content is the message text.
	Content string `json:"content"`

	// Role is the message author ("user" or "assistant").
	Role Role `json:"role"`

	// Format describes the content format (e.g. "text", "markdown").
	Format string `json:"format,omitempty"`

	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`
}

// ConversationTopic tracks how central a normalized keyword is to the
// conversation.
//
// Topics are mutated in place on repeat mention: the score is re-averaged
// toward 1.0, the mention count incremented, and the last-mention timestamp
// refreshed. LastMention is monotonically non-decreasing.
type ConversationTopic struct {
	// Topic is the normalized keyword.
	Topic string `json:"topic"`

	// Score is the topic salience in [0, 1].
	Score float64 `json:"score"`

	// LastMention is when the topic was most recently mentioned.
	LastMention time.Time `json:"last_mention"`

	// MentionCount is how many messages mentioned the topic.
	MentionCount int `json:"mention_count"`

	// SampleContext is the first 100 characters of the most recent message
	// that mentioned the topic.
	SampleContext string `json:"sample_context"`
}
