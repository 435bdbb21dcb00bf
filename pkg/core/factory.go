package core

import (
	"github.com/edustack/tutorguard-go/pkg/llm"
	deepseekLLM "github.com/edustack/tutorguard-go/pkg/llm/deepseek"
	ollamaLLM "github.com/edustack/tutorguard-go/pkg/llm/ollama"
	openaiLLM "github.com/edustack/tutorguard-go/pkg/llm/openai"
	"github.com/edustack/tutorguard-go/pkg/profile"
	memoryStore "github.com/edustack/tutorguard-go/pkg/profile/memory"
	mysqlStore "github.com/edustack/tutorguard-go/pkg/profile/mysql"
	postgresStore "github.com/edustack/tutorguard-go/pkg/profile/postgres"
	sqliteStore "github.com/edustack/tutorguard-go/pkg/profile/sqlite"
)

// NewProfileStore creates a profile store from configuration.
//
// Supported providers: memory, sqlite, postgres, mysql.
//
// Example:
//
//	store, err := core.NewProfileStore(core.ProfileStoreConfig{
//	    Provider: "sqlite",
//	    Config:   map[string]interface{}{"db_path": "./profiles.db"},
//	})
func NewProfileStore(cfg ProfileStoreConfig) (profile.Store, error) {
	switch cfg.Provider {
	case "memory":
		return memoryStore.NewStore(), nil
	case "sqlite":
		return sqliteStore.NewStore(&sqliteStore.Config{
			DBPath:    configString(cfg.Config, "db_path"),
			TableName: configString(cfg.Config, "table_name"),
		})
	case "postgres":
		return postgresStore.NewStore(&postgresStore.Config{
			Host:      configString(cfg.Config, "host"),
			Port:      configInt(cfg.Config, "port"),
			User:      configString(cfg.Config, "user"),
			Password:  configString(cfg.Config, "password"),
			DBName:    configString(cfg.Config, "db_name"),
			TableName: configString(cfg.Config, "table_name"),
			SSLMode:   configString(cfg.Config, "ssl_mode"),
		})
	case "mysql":
		return mysqlStore.NewStore(&mysqlStore.Config{
			Host:      configString(cfg.Config, "host"),
			Port:      configInt(cfg.Config, "port"),
			User:      configString(cfg.Config, "user"),
			Password:  configString(cfg.Config, "password"),
			DBName:    configString(cfg.Config, "db_name"),
			TableName: configString(cfg.Config, "table_name"),
		})
	default:
		return nil, NewTutorError("NewProfileStore", ErrInvalidConfig)
	}
}

// NewLLMProvider creates an LLM provider from configuration.
//
// Supported providers: openai, deepseek, ollama.
func NewLLMProvider(cfg LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiLLM.NewClient(&openaiLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "deepseek":
		return deepseekLLM.NewClient(&deepseekLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "ollama":
		return ollamaLLM.NewClient(&ollamaLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, NewTutorError("NewLLMProvider", ErrInvalidConfig)
	}
}

func configString(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// configInt accepts both int and float64 so JSON-decoded config maps work.
func configInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
