// Package profile defines the opt-in user profile record and the store
// interface for persisting it.
package profile

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrSchemaVersion indicates a stored record was written with a schema
// version this build does not understand.
var ErrSchemaVersion = errors.New("unsupported profile schema version")

// SchemaVersion is the current profile schema version. Stores reject
// records with an unknown version rather than guessing at field meanings.
const SchemaVersion = 1

// StyleScores holds per-style preference scores in [0, 1].
type StyleScores struct {
	// Visual is the visual learning preference score.
	Visual float64 `json:"visual"`

	// Auditory is the auditory learning preference score.
	Auditory float64 `json:"auditory"`

	// Kinesthetic is the kinesthetic learning preference score.
	Kinesthetic float64 `json:"kinesthetic"`

	// Reading is the reading/writing learning preference score.
	Reading float64 `json:"reading"`
}

// Profile is a user's opt-in stored profile.
//
// All fields are explicit and typed; unknown fields in stored data are
// dropped deterministically on load rather than carried as untyped maps.
type Profile struct {
	// SchemaVersion is the schema version the record was written with.
	SchemaVersion int `json:"schema_version"`

	// UserID identifies the user this profile belongs to.
	UserID string `json:"user_id"`

	// OptIn indicates the user consented to profile storage. Profiles with
	// OptIn false must never be embedded in prompts.
	OptIn bool `json:"opt_in"`

	// LearningStyles holds the stored learning style scores.
	LearningStyles StyleScores `json:"learning_styles"`

	// PreferredDepth is the stored elaboration preference
	// ("brief", "medium", or "detailed"; empty if unknown).
	PreferredDepth string `json:"preferred_depth,omitempty"`

	// SubjectMastery maps subject names to mastery scores in [0, 1].
	SubjectMastery map[string]float64 `json:"subject_mastery,omitempty"`

	// Interests lists free-form interest keywords.
	Interests []string `json:"interests,omitempty"`

	// CreatedAt is when the profile was first created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the profile was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the interface profile persistence backends implement.
//
// Implementations exist for SQLite, PostgreSQL, MySQL, and in-memory use.
type Store interface {
	// GetProfile retrieves a user's profile.
	//
	// Returns nil (and no error) if the user has not opted into storage.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// SaveProfile creates or updates a user's profile.
	SaveProfile(ctx context.Context, p *Profile) error

	// DeleteProfile removes a user's profile.
	DeleteProfile(ctx context.Context, userID string) error

	// Close releases store resources.
	Close() error
}

// MatchesTopic reports whether the given topic text refers to something
// this profile actually records: a learning style with a positive score,
// a tracked subject, or a stored interest.
//
// Matching is textual (case-insensitive substring), in keeping with the
// keyword heuristics used elsewhere in the pipeline.
func (p *Profile) MatchesTopic(topic string) bool {
	if p == nil {
		return false
	}
	needle := strings.ToLower(topic)

	styleNames := map[string]float64{
		"visual":      p.LearningStyles.Visual,
		"auditory":    p.LearningStyles.Auditory,
		"kinesthetic": p.LearningStyles.Kinesthetic,
		"reading":     p.LearningStyles.Reading,
	}
	for name, score := range styleNames {
		if score > 0 && strings.Contains(needle, name) {
			return true
		}
	}

	if p.PreferredDepth != "" && strings.Contains(needle, strings.ToLower(p.PreferredDepth)) {
		return true
	}

	for subject := range p.SubjectMastery {
		if subject != "" && strings.Contains(needle, strings.ToLower(subject)) {
			return true
		}
	}

	for _, interest := range p.Interests {
		if interest != "" && strings.Contains(needle, strings.ToLower(interest)) {
			return true
		}
	}

	return false
}

// Summary renders a short profile digest for prompt construction.
//
// Returns an empty string for nil or non-opted-in profiles.
func (p *Profile) Summary() string {
	if p == nil || !p.OptIn {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Known learner profile:\n")

	best, bestScore := "", 0.0
	for name, score := range map[string]float64{
		"visual":      p.LearningStyles.Visual,
		"auditory":    p.LearningStyles.Auditory,
		"kinesthetic": p.LearningStyles.Kinesthetic,
		"reading":     p.LearningStyles.Reading,
	} {
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if best != "" {
		sb.WriteString("- Preferred learning style: " + best + "\n")
	}
	if p.PreferredDepth != "" {
		sb.WriteString("- Preferred answer depth: " + p.PreferredDepth + "\n")
	}
	if len(p.SubjectMastery) > 0 {
		subjects := make([]string, 0, len(p.SubjectMastery))
		for subject := range p.SubjectMastery {
			subjects = append(subjects, subject)
		}
		sort.Strings(subjects)
		sb.WriteString("- Subjects studied: " + strings.Join(subjects, ", ") + "\n")
	}
	if len(p.Interests) > 0 {
		sb.WriteString("- Interests: " + strings.Join(p.Interests, ", ") + "\n")
	}

	return sb.String()
}
