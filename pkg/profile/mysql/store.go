// Package mysql provides the MySQL profile store backend.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/edustack/tutorguard-go/pkg/profile"
)

// Store implements profile.Store using MySQL.
type Store struct {
	db        *sql.DB
	tableName string
}

// Config contains MySQL configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
}

// NewStore connects to MySQL and creates the profile table if needed.
func NewStore(cfg *Config) (*Store, error) {
	if cfg.TableName == "" {
		cfg.TableName = "learner_profiles"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLStore: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLStore: %w", err)
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
			schema_version INT NOT NULL,
			opt_in TINYINT(1) NOT NULL DEFAULT 0,
			visual DOUBLE NOT NULL DEFAULT 0,
			auditory DOUBLE NOT NULL DEFAULT 0,
			kinesthetic DOUBLE NOT NULL DEFAULT 0,
			reading DOUBLE NOT NULL DEFAULT 0,
			preferred_depth VARCHAR(32),
			subject_mastery JSON,
			interests JSON,
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
		return nil, fmt.Errorf("GetProfile: %w", err)
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

	optIn := 0
	if p.OptIn {
		optIn = 1
	}
	now := time.Now()

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, schema_version, opt_in, visual, auditory, kinesthetic, reading,
			preferred_depth, subject_mastery, interests, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			schema_version = VALUES(schema_version),
			opt_in = VALUES(opt_in),
			visual = VALUES(visual),
			auditory = VALUES(auditory),
			kinesthetic = VALUES(kinesthetic),
			reading = VALUES(reading),
			preferred_depth = VALUES(preferred_depth),
			subject_mastery = VALUES(subject_mastery),
			interests = VALUES(interests),
			updated_at = VALUES(updated_at)
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		p.UserID, profile.SchemaVersion, optIn,
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
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = ?", s.tableName)
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
