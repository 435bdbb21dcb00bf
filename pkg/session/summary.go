package session

import (
	"fmt"
	"strings"
	"time"
)

// Summary renders a human-readable digest of the session: duration, message
// count, top topics, and the tail of the conversation.
//
// The digest is intended for prompt construction, not for validation logic.
// Each included message is truncated to 100 characters.
func (c *Context) Summary(messageLimit int) string {
	c.mu.RLock()
	messages := make([]ChatMessage, len(c.messages))
	copy(messages, c.messages)
	duration := time.Since(c.startedAt)
	c.mu.RUnlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session duration: %d minutes\n", int(duration.Minutes()))
	fmt.Fprintf(&sb, "Messages exchanged: %d\n", len(messages))

	topics := c.RecentTopics(0, 5)
	if len(topics) > 0 {
		names := make([]string, len(topics))
		for i, topic := range topics {
			names[i] = topic.Topic
		}
		fmt.Fprintf(&sb, "Topics discussed: %s\n", strings.Join(names, ", "))
	}

	if messageLimit > 0 && len(messages) > 0 {
		if len(messages) > messageLimit {
			messages = messages[len(messages)-messageLimit:]
		}
		sb.WriteString("Recent messages:\n")
		for _, msg := range messages {
			content := msg.Content
			if len(content) > 100 {
				content = content[:100]
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", msg.Role, content)
		}
	}

	return sb.String()
}
