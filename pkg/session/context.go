package session

import (
	"sync"
	"time"
)

// DefaultMaxMessages is the default bound on stored messages per context.
const DefaultMaxMessages = 50

// sampleContextLimit caps the sample context stored per topic.
const sampleContextLimit = 100

// Context is the per-user ephemeral conversation state.
//
// It owns an ordered, size-bounded sequence of messages (oldest evicted
// first) and a topic salience index extracted from message content. One
// Context exists per user id; it lives for the process lifetime or until
// explicitly cleared, and is never persisted.
//
// A Context is safe for concurrent readers with a single writer; the
// caller is expected to serialize turns for the same user.
type Context struct {
	mu sync.RWMutex

	maxMessages int
	messages    []ChatMessage
	topics      map[string]*ConversationTopic
	startedAt   time.Time
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithMaxMessages overrides the message bound (default 50).
func WithMaxMessages(n int) ContextOption {
	return func(c *Context) {
		if n > 0 {
			c.maxMessages = n
		}
	}
}

// NewContext creates an empty conversation context.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		maxMessages: DefaultMaxMessages,
		topics:      make(map[string]*ConversationTopic),
		startedAt:   time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddMessage appends a message, evicting the oldest messages once the
// configured bound is exceeded, then extracts topics from the content.
//
// Empty content degrades to a no-op topic extraction; AddMessage never fails.
func (c *Context) AddMessage(msg ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	c.messages = append(c.messages, msg)
	if len(c.messages) > c.maxMessages {
		c.messages = c.messages[len(c.messages)-c.maxMessages:]
	}

	c.extractTopics(msg.Content, msg.Timestamp)
}

// Messages returns a copy of the stored messages, oldest first.
func (c *Context) Messages() []ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// MessageCount returns the number of stored messages.
func (c *Context) MessageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// UserMessages returns the content of user-authored messages, oldest first.
func (c *Context) UserMessages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for _, msg := range c.messages {
		if msg.Role == RoleUser {
			out = append(out, msg.Content)
		}
	}
	return out
}

// StartedAt returns when the context was created.
func (c *Context) StartedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.startedAt
}

// Duration returns how long the session has been running.
func (c *Context) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.startedAt)
}

// TopicCount returns the number of tracked topics.
func (c *Context) TopicCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.topics)
}

// Clear removes all messages and topics and resets the session start time.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = nil
	c.topics = make(map[string]*ConversationTopic)
	c.startedAt = time.Now()
}
