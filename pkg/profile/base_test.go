package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edustack/tutorguard-go/pkg/profile"
)

func sampleProfile() *profile.Profile {
	return &profile.Profile{
		SchemaVersion: profile.SchemaVersion,
		UserID:        "user_001",
		OptIn:         true,
		LearningStyles: profile.StyleScores{
			Visual:  0.8,
			Reading: 0.3,
		},
		PreferredDepth: "detailed",
		SubjectMastery: map[string]float64{
			"algebra": 0.6,
			"biology": 0.4,
		},
		Interests: []string{"chess", "astronomy"},
	}
}

func TestMatchesTopic(t *testing.T) {
	p := sampleProfile()

	tests := []struct {
		name     string
		topic    string
		expected bool
	}{
		{name: "style with positive score", topic: "visual", expected: true},
		{name: "style inside phrase", topic: "your visual preference", expected: true},
		{name: "style with zero score", topic: "auditory", expected: false},
		{name: "preferred depth", topic: "detailed answers", expected: true},
		{name: "subject", topic: "help with algebra", expected: true},
		{name: "interest", topic: "a game of chess", expected: true},
		{name: "case insensitive", topic: "ALGEBRA", expected: true},
		{name: "unknown", topic: "skydiving", expected: false},
		{name: "empty", topic: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.MatchesTopic(tt.topic))
		})
	}
}

func TestMatchesTopicNilProfile(t *testing.T) {
	var p *profile.Profile
	assert.False(t, p.MatchesTopic("anything"))
}

func TestSummaryOptedIn(t *testing.T) {
	summary := sampleProfile().Summary()

	assert.Contains(t, summary, "Known learner profile:")
	assert.Contains(t, summary, "visual")
	assert.Contains(t, summary, "detailed")
	// Subjects render sorted for stable prompts.
	assert.Contains(t, summary, "algebra, biology")
	assert.Contains(t, summary, "chess, astronomy")
}

func TestSummaryNotOptedIn(t *testing.T) {
	p := sampleProfile()
	p.OptIn = false

	assert.Empty(t, p.Summary())
}

func TestSummaryNilProfile(t *testing.T) {
	var p *profile.Profile
	assert.Empty(t, p.Summary())
}
