package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for the tutor middleware.
//
// It includes settings for:
//   - LLM provider (used by callers that wire a provider from config)
//   - Profile store (for persistent learner profiles)
//   - Validation (memory claim and math checking behavior)
//   - Resilience (retry, timeout, and circuit breaker parameters)
//
// Example:
//
//	config := &core.Config{
//	    LLM: core.LLMConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	        Model:    "gpt-4",
//	    },
//	    ProfileStore: core.ProfileStoreConfig{
//	        Provider: "sqlite",
//	        Config: map[string]interface{}{
//	            "db_path": "./profiles.db",
//	        },
//	    },
//	}
type Config struct {
	// LLM contains LLM provider configuration.
	LLM LLMConfig `json:"llm"`

	// ProfileStore contains profile store configuration.
	ProfileStore ProfileStoreConfig `json:"profile_store"`

	// Validation contains response validation configuration (optional).
	Validation *ValidationConfig `json:"validation,omitempty"`

	// Resilience contains retry and circuit breaker configuration (optional).
	Resilience *ResilienceConfig `json:"resilience,omitempty"`

	// Session contains session context configuration (optional).
	Session *SessionConfig `json:"session,omitempty"`
}

// LLMConfig contains configuration for the LLM provider.
//
// Supported providers: openai, deepseek, ollama
type LLMConfig struct {
	// Provider is the LLM provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key"`

	// Model is the model name to use (e.g., "gpt-4").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`
}

// ProfileStoreConfig contains configuration for the learner profile store.
//
// Supported providers: memory, sqlite, postgres, mysql
//
// Example:
//
//	storeConfig := core.ProfileStoreConfig{
//	    Provider: "sqlite",
//	    Config: map[string]interface{}{
//	        "db_path":    "./profiles.db",
//	        "table_name": "learner_profiles",
//	    },
//	}
type ProfileStoreConfig struct {
	// Provider is the profile store provider name (memory, sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path, table_name
	// For PostgreSQL: host, port, user, password, db_name, table_name, ssl_mode
	// For MySQL: host, port, user, password, db_name, table_name
	Config map[string]interface{} `json:"config"`
}

// ValidationConfig controls response validation behavior.
type ValidationConfig struct {
	// MemoryEnabled enables memory claim validation. Default: true.
	MemoryEnabled bool `json:"memory_enabled"`

	// MathEnabled enables mathematical validation. Default: true.
	MathEnabled bool `json:"math_enabled"`

	// ClaimThreshold is the minimum confidence for a memory claim to be
	// considered verified. Default: 0.75.
	ClaimThreshold float64 `json:"claim_threshold,omitempty"`

	// MathTolerance is the allowed absolute error when comparing a stated
	// answer against the computed value. Default: 1e-4.
	MathTolerance float64 `json:"math_tolerance,omitempty"`
}

// ResilienceConfig controls retry and circuit breaker behavior for calls
// to external collaborators (profile store, LLM provider).
type ResilienceConfig struct {
	// MaxAttempts is the number of attempts per operation. Default: 3.
	MaxAttempts int `json:"max_attempts,omitempty"`

	// AttemptTimeoutSeconds is the per-attempt timeout. Default: 30.
	AttemptTimeoutSeconds int `json:"attempt_timeout_seconds,omitempty"`

	// BaseDelaySeconds is the backoff unit; the delay before attempt N+1
	// is BaseDelaySeconds * N. Default: 2.
	BaseDelaySeconds int `json:"base_delay_seconds,omitempty"`

	// BreakerThreshold is the consecutive failure count that opens the
	// circuit. Default: 5.
	BreakerThreshold int `json:"breaker_threshold,omitempty"`

	// BreakerCooldownSeconds is how long an open circuit rejects calls
	// before allowing a probe. Default: 300.
	BreakerCooldownSeconds int `json:"breaker_cooldown_seconds,omitempty"`
}

// SessionConfig controls session context behavior.
type SessionConfig struct {
	// MaxMessages is the per-user message history bound. Default: 50.
	MaxMessages int `json:"max_messages,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - PROFILE_PROVIDER (memory, sqlite, postgres, mysql)
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, etc.
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, etc.
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - MEMORY_VALIDATION_ENABLED, MATH_VALIDATION_ENABLED
//
// Returns a Config instance, or an error if loading fails.
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	// Use FindEnvFile to locate .env file (supports upward search)
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		// If not found, try loading from current directory (godotenv default behavior)
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("PROFILE_PROVIDER", "memory")

	storeConfig := make(map[string]interface{})
	switch provider {
	case "sqlite":
		storeConfig = map[string]interface{}{
			"db_path":    getEnvOrDefault("SQLITE_PATH", "./tutorguard.db"),
			"table_name": getEnvOrDefault("SQLITE_TABLE", "learner_profiles"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		storeConfig = map[string]interface{}{
			"host":       getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":   os.Getenv("POSTGRES_PASSWORD"),
			"db_name":    getEnvOrDefault("POSTGRES_DATABASE", "tutorguard"),
			"table_name": getEnvOrDefault("POSTGRES_TABLE", "learner_profiles"),
			"ssl_mode":   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		storeConfig = map[string]interface{}{
			"host":       getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":       port,
			"user":       getEnvOrDefault("MYSQL_USER", "root"),
			"password":   os.Getenv("MYSQL_PASSWORD"),
			"db_name":    getEnvOrDefault("MYSQL_DATABASE", "tutorguard"),
			"table_name": getEnvOrDefault("MYSQL_TABLE", "learner_profiles"),
		}
	}

	config := &Config{
		LLM: LLMConfig{
			Provider: getEnvOrDefault("LLM_PROVIDER", "openai"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    getEnvOrDefault("LLM_MODEL", "gpt-4"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		ProfileStore: ProfileStoreConfig{
			Provider: provider,
			Config:   storeConfig,
		},
		Validation: &ValidationConfig{
			MemoryEnabled: getEnvOrDefault("MEMORY_VALIDATION_ENABLED", "true") == "true",
			MathEnabled:   getEnvOrDefault("MATH_VALIDATION_ENABLED", "true") == "true",
		},
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewTutorError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewTutorError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that all required fields are set:
//   - Profile store provider must be specified
//   - A non-memory profile store must carry provider config
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.ProfileStore.Provider == "" {
		return NewTutorError("Validate", ErrInvalidConfig)
	}
	if c.ProfileStore.Provider != "memory" && len(c.ProfileStore.Config) == 0 {
		return NewTutorError("Validate", ErrInvalidConfig)
	}
	return nil
}

// ResilienceDurations returns the attempt timeout, base delay, and breaker
// cooldown as durations, applying defaults for unset fields.
func (c *ResilienceConfig) ResilienceDurations() (timeout, baseDelay, cooldown time.Duration) {
	timeout = 30 * time.Second
	baseDelay = 2 * time.Second
	cooldown = 5 * time.Minute
	if c == nil {
		return
	}
	if c.AttemptTimeoutSeconds > 0 {
		timeout = time.Duration(c.AttemptTimeoutSeconds) * time.Second
	}
	if c.BaseDelaySeconds > 0 {
		baseDelay = time.Duration(c.BaseDelaySeconds) * time.Second
	}
	if c.BreakerCooldownSeconds > 0 {
		cooldown = time.Duration(c.BreakerCooldownSeconds) * time.Second
	}
	return
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	// Check project root directory (search upward)
	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
