// Package sqlite provides the SQLite profile store backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/edustack/tutorguard-go/pkg/profile"
)

// Store implements profile.Store using SQLite.
type Store struct {
	db        *sql.DB
	tableName string
}

// Config contains configuration for creating a SQLite profile store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the table to use (default: "learner_profiles").
	TableName string
}

// NewStore opens the database and creates the profile table if needed.
func NewStore(cfg *Config) (*Store, error) {
	if cfg.TableName == "" {
		cfg.TableName = "learner_profiles"
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, tableName: cfg.TableName}
	if err := store.initTable(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// initTable initializes the table structure.
func (s *Store) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			opt_in INTEGER NOT NULL DEFAULT 0,
			visual REAL NOT NULL DEFAULT 0,
			auditory REAL NOT NULL DEFAULT 0,
			kinesthetic REAL NOT NULL DEFAULT 0,
			reading REAL NOT NULL DEFAULT 0,
			preferred_depth TEXT,
			subject_mastery TEXT,
			interests TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by user ID.
//
// Returns nil if the user has no stored profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	query := fmt.Sprintf(`
		SELECT user_id, schema_version, opt_in, visual, auditory, kinesthetic, reading,
		       preferred_depth, subject_mastery, interests, created_at, updated_at
		FROM %s WHERE user_id = ?
	`, s.tableName)

	var p profile.Profile
	var optIn int
	var depth, masteryJSON, interestsJSON sql.NullString

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.SchemaVersion, &optIn,
		&p.LearningStyles.Visual, &p.LearningStyles.Auditory,
		&p.LearningStyles.Kinesthetic, &p.LearningStyles.Reading,
		&depth, &masteryJSON, &interestsJSON,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if p.SchemaVersion > profile.SchemaVersion {
		return nil, fmt.Errorf("profile for %s: %w", userID, profile.ErrSchemaVersion)
	}

	p.OptIn = optIn != 0
	if depth.Valid {
		p.PreferredDepth = depth.String
	}
	if masteryJSON.Valid && masteryJSON.String != "" {
		if err := json.Unmarshal([]byte(masteryJSON.String), &p.SubjectMastery); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subject mastery: %w", err)
		}
	}
	if interestsJSON.Valid && interestsJSON.String != "" {
		if err := json.Unmarshal([]byte(interestsJSON.String), &p.Interests); err != nil {
			return nil, fmt.Errorf("failed to unmarshal interests: %w", err)
		}
	}

	return &p, nil
}

// SaveProfile creates or updates a profile.
func (s *Store) SaveProfile(ctx context.Context, p *profile.Profile) error {
	masteryJSON, err := json.Marshal(p.SubjectMastery)
	if err != nil {
		return fmt.Errorf("failed to marshal subject mastery: %w", err)
	}
	interestsJSON, err := json.Marshal(p.Interests)
	if err != nil {
		return fmt.Errorf("failed to marshal interests: %w", err)
	}

	optIn := 0
	if p.OptIn {
		optIn = 1
	}
	now := time.Now()

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, schema_version, opt_in, visual, auditory, kinesthetic, reading,
			preferred_depth, subject_mastery, interests, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			opt_in = excluded.opt_in,
			visual = excluded.visual,
			auditory = excluded.auditory,
			kinesthetic = excluded.kinesthetic,
			reading = excluded.reading,
			preferred_depth = excluded.preferred_depth,
			subject_mastery = excluded.subject_mastery,
			interests = excluded.interests,
			updated_at = excluded.updated_at
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		p.UserID, profile.SchemaVersion, optIn,
		p.LearningStyles.Visual, p.LearningStyles.Auditory,
		p.LearningStyles.Kinesthetic, p.LearningStyles.Reading,
		p.PreferredDepth, string(masteryJSON), string(interestsJSON),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// DeleteProfile removes a profile by user ID.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("profile not found")
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
