package session_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/tutorguard-go/pkg/session"
)

func addUserText(c *session.Context, id int64, content string) {
	c.AddMessage(session.ChatMessage{
		ID:      id,
		Content: content,
		Role:    session.RoleUser,
	})
}

func TestAddMessageBound(t *testing.T) {
	c := session.NewContext(session.WithMaxMessages(3))

	for i := int64(1); i <= 5; i++ {
		addUserText(c, i, fmt.Sprintf("message number %d", i))
	}

	messages := c.Messages()
	require.Len(t, messages, 3)
	// Oldest evicted first.
	assert.Equal(t, int64(3), messages[0].ID)
	assert.Equal(t, int64(5), messages[2].ID)
	assert.Equal(t, 3, c.MessageCount())
}

func TestAddMessageDefaultBound(t *testing.T) {
	c := session.NewContext()

	for i := int64(1); i <= 60; i++ {
		addUserText(c, i, "filler")
	}

	assert.Equal(t, session.DefaultMaxMessages, c.MessageCount())
}

func TestAddMessageSetsTimestamp(t *testing.T) {
	c := session.NewContext()
	addUserText(c, 1, "hello world")

	messages := c.Messages()
	require.Len(t, messages, 1)
	assert.False(t, messages[0].Timestamp.IsZero())
}

func TestTopicExtractionFiltering(t *testing.T) {
	c := session.NewContext()

	// "the", "is" are too short; "about" and "with" are stop words.
	addUserText(c, 1, "Tell me about photosynthesis, the process is done with chlorophyll!")

	topics := c.RecentTopics(0, 0)
	names := make(map[string]bool)
	for _, topic := range topics {
		names[topic.Topic] = true
	}

	assert.True(t, names["photosynthesis"])
	assert.True(t, names["chlorophyll"])
	assert.True(t, names["process"])
	assert.False(t, names["about"])
	assert.False(t, names["with"])
	assert.False(t, names["the"])
}

func TestTopicScoreProgression(t *testing.T) {
	c := session.NewContext()

	addUserText(c, 1, "Explain photosynthesis")
	topic := findTopic(t, c, "photosynthesis")
	assert.InDelta(t, 0.7, topic.Score, 1e-9)
	assert.Equal(t, 1, topic.MentionCount)

	addUserText(c, 2, "More on photosynthesis please")
	topic = findTopic(t, c, "photosynthesis")
	assert.InDelta(t, 0.85, topic.Score, 1e-9)
	assert.Equal(t, 2, topic.MentionCount)

	addUserText(c, 3, "Still photosynthesis")
	topic = findTopic(t, c, "photosynthesis")
	assert.InDelta(t, 0.925, topic.Score, 1e-9)
	assert.LessOrEqual(t, topic.Score, 1.0)
}

func TestTopicDedupedWithinMessage(t *testing.T) {
	c := session.NewContext()

	addUserText(c, 1, "recursion recursion recursion")

	topic := findTopic(t, c, "recursion")
	assert.Equal(t, 1, topic.MentionCount)
	assert.InDelta(t, 0.7, topic.Score, 1e-9)
}

func TestTopicLastMentionMonotonic(t *testing.T) {
	c := session.NewContext()

	later := time.Now()
	earlier := later.Add(-time.Hour)

	c.AddMessage(session.ChatMessage{ID: 1, Content: "gravity", Role: session.RoleUser, Timestamp: later})
	c.AddMessage(session.ChatMessage{ID: 2, Content: "gravity", Role: session.RoleUser, Timestamp: earlier})

	topic := findTopic(t, c, "gravity")
	// An out-of-order mention must not move LastMention backwards.
	assert.Equal(t, later.Unix(), topic.LastMention.Unix())
	assert.Equal(t, 2, topic.MentionCount)
}

func TestHasDiscussedTopic(t *testing.T) {
	c := session.NewContext()

	addUserText(c, 1, "Explain photosynthesis")
	// First mention scores 0.7, below the 0.75 bar.
	assert.False(t, c.HasDiscussedTopic("photosynthesis", 0.75))
	assert.True(t, c.HasDiscussedTopic("photosynthesis", 0.6))

	addUserText(c, 2, "More photosynthesis")
	assert.True(t, c.HasDiscussedTopic("photosynthesis", 0.75))

	// Substring overlap in either direction.
	assert.True(t, c.HasDiscussedTopic("the photosynthesis process", 0.75))
	assert.False(t, c.HasDiscussedTopic("calculus", 0.1))
	assert.False(t, c.HasDiscussedTopic("", 0))
}

func TestTopicSample(t *testing.T) {
	c := session.NewContext()

	addUserText(c, 1, "How does photosynthesis work in plants?")

	sample, ok := c.TopicSample("photosynthesis")
	require.True(t, ok)
	assert.Contains(t, sample, "photosynthesis")

	_, ok = c.TopicSample("calculus")
	assert.False(t, ok)
}

func TestRecentTopicsRanking(t *testing.T) {
	c := session.NewContext()

	addUserText(c, 1, "fractions")
	addUserText(c, 2, "fractions decimals")
	addUserText(c, 3, "fractions decimals percentages")

	topics := c.RecentTopics(0, 2)
	require.Len(t, topics, 2)
	// All mentioned just now, so recency weights are equal and score decides.
	assert.Equal(t, "fractions", topics[0].Topic)
	assert.Equal(t, "decimals", topics[1].Topic)
}

func TestRecentTopicsWindow(t *testing.T) {
	c := session.NewContext()

	old := time.Now().Add(-2 * time.Hour)
	c.AddMessage(session.ChatMessage{ID: 1, Content: "ancient history", Role: session.RoleUser, Timestamp: old})
	addUserText(c, 2, "fresh algebra")

	topics := c.RecentTopics(time.Hour, 0)
	for _, topic := range topics {
		assert.NotEqual(t, "ancient", topic.Topic)
		assert.NotEqual(t, "history", topic.Topic)
	}
	assert.NotEmpty(t, topics)
}

func TestUserMessages(t *testing.T) {
	c := session.NewContext()

	addUserText(c, 1, "question one")
	c.AddMessage(session.ChatMessage{ID: 2, Content: "answer one", Role: session.RoleAssistant})
	addUserText(c, 3, "question two")

	assert.Equal(t, []string{"question one", "question two"}, c.UserMessages())
}

func TestClear(t *testing.T) {
	c := session.NewContext()

	addUserText(c, 1, "something about quadratic equations")
	require.NotZero(t, c.MessageCount())
	require.NotZero(t, c.TopicCount())

	c.Clear()

	assert.Zero(t, c.MessageCount())
	assert.Zero(t, c.TopicCount())
	assert.Empty(t, c.RecentTopics(0, 0))
}

func TestSummary(t *testing.T) {
	c := session.NewContext()

	addUserText(c, 1, "Explain photosynthesis to me")
	c.AddMessage(session.ChatMessage{ID: 2, Content: "Photosynthesis converts light into chemical energy.", Role: session.RoleAssistant})

	summary := c.Summary(5)

	assert.Contains(t, summary, "Messages exchanged: 2")
	assert.Contains(t, summary, "photosynthesis")
	assert.Contains(t, summary, "[user]")
	assert.Contains(t, summary, "[assistant]")
}

func findTopic(t *testing.T, c *session.Context, name string) session.ConversationTopic {
	t.Helper()
	for _, topic := range c.RecentTopics(0, 0) {
		if topic.Topic == name {
			return topic
		}
	}
	t.Fatalf("topic %q not tracked", name)
	return session.ConversationTopic{}
}
