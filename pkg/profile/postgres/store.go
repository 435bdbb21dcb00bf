// Package postgres provides the PostgreSQL profile store backend.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/edustack/tutorguard-go/pkg/profile"
)

// Store implements profile.Store using PostgreSQL.
type Store struct {
	db        *sql.DB
	tableName string
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
	SSLMode   string
}

// NewStore connects to PostgreSQL and creates the profile table if needed.
func NewStore(cfg *Config) (*Store, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	if cfg.TableName == "" {
		cfg.TableName = "learner_profiles"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresStore: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresStore: %w", err)
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
			user_id VARCHAR(255) PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			opt_in BOOLEAN NOT NULL DEFAULT FALSE,
			visual DOUBLE PRECISION NOT NULL DEFAULT 0,
			auditory DOUBLE PRECISION NOT NULL DEFAULT 0,
			kinesthetic DOUBLE PRECISION NOT NULL DEFAULT 0,
			reading DOUBLE PRECISION NOT NULL DEFAULT 0,
			preferred_depth VARCHAR(32),
			subject_mastery JSONB,
			interests JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTable: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by user ID, or nil if none is stored.
func (s *Store) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	query := fmt.Sprintf(`
		SELECT user_id, schema_version, opt_in, visual, auditory, kinesthetic, reading,
		       preferred_depth, subject_mastery, interests, created_at, updated_at
		FROM %s WHERE user_id = $1
	`, s.tableName)

	var p profile.Profile
	var depth, masteryJSON, interestsJSON sql.NullString

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.SchemaVersion, &p.OptIn,
		&p.LearningStyles.Visual, &p.LearningStyles.Auditory,
		&p.LearningStyles.Kinesthetic, &p.LearningStyles.Reading,
		&depth, &masteryJSON, &interestsJSON,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetProfile: %w", err)
	}
	if p.SchemaVersion > profile.SchemaVersion {
		return nil, fmt.Errorf("profile for %s: %w", userID, profile.ErrSchemaVersion)
	}

	if depth.Valid {
		p.PreferredDepth = depth.String
	}
	if masteryJSON.Valid && masteryJSON.String != "" {
		if err := json.Unmarshal([]byte(masteryJSON.String), &p.SubjectMastery); err != nil {
			return nil, fmt.Errorf("GetProfile: unmarshal subject mastery: %w", err)
		}
	}
	if interestsJSON.Valid && interestsJSON.String != "" {
		if err := json.Unmarshal([]byte(interestsJSON.String), &p.Interests); err != nil {
			return nil, fmt.Errorf("GetProfile: unmarshal interests: %w", err)
		}
	}

	return &p, nil
}

// SaveProfile creates or updates a profile.
func (s *Store) SaveProfile(ctx context.Context, p *profile.Profile) error {
	masteryJSON, err := json.Marshal(p.SubjectMastery)
	if err != nil {
		return fmt.Errorf("SaveProfile: marshal subject mastery: %w", err)
	}
	interestsJSON, err := json.Marshal(p.Interests)
	if err != nil {
		return fmt.Errorf("SaveProfile: marshal interests: %w", err)
	}
	now := time.Now()

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, schema_version, opt_in, visual, auditory, kinesthetic, reading,
			preferred_depth, subject_mastery, interests, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			opt_in = EXCLUDED.opt_in,
			visual = EXCLUDED.visual,
			auditory = EXCLUDED.auditory,
			kinesthetic = EXCLUDED.kinesthetic,
			reading = EXCLUDED.reading,
			preferred_depth = EXCLUDED.preferred_depth,
			subject_mastery = EXCLUDED.subject_mastery,
			interests = EXCLUDED.interests,
			updated_at = EXCLUDED.updated_at
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		p.UserID, profile.SchemaVersion, p.OptIn,
		p.LearningStyles.Visual, p.LearningStyles.Auditory,
		p.LearningStyles.Kinesthetic, p.LearningStyles.Reading,
		p.PreferredDepth, string(masteryJSON), string(interestsJSON),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("SaveProfile: %w", err)
	}
	return nil
}

// DeleteProfile removes a profile by user ID.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", s.tableName)
	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("DeleteProfile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteProfile: %w", err)
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
