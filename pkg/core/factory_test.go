package core_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/tutorguard-go/pkg/core"
)

func TestNewProfileStoreMemory(t *testing.T) {
	store, err := core.NewProfileStore(core.ProfileStoreConfig{Provider: "memory"})
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()
}

func TestNewProfileStoreSQLite(t *testing.T) {
	store, err := core.NewProfileStore(core.ProfileStoreConfig{
		Provider: "sqlite",
		Config: map[string]interface{}{
			"db_path": filepath.Join(t.TempDir(), "profiles.db"),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()
}

func TestNewProfileStoreJSONNumericPort(t *testing.T) {
	// JSON decodes numbers as float64; the factory must still accept them.
	_, err := core.NewProfileStore(core.ProfileStoreConfig{
		Provider: "postgres",
		Config: map[string]interface{}{
			"host":     "localhost",
			"port":     float64(5432),
			"user":     "postgres",
			"password": "",
			"db_name":  "missing",
		},
	})
	// Connection may fail without a server; a panic or type error must not.
	_ = err
}

func TestNewProfileStoreUnknownProvider(t *testing.T) {
	_, err := core.NewProfileStore(core.ProfileStoreConfig{Provider: "redis"})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestNewLLMProviderOpenAI(t *testing.T) {
	provider, err := core.NewLLMProvider(core.LLMConfig{
		Provider: "openai",
		APIKey:   "sk-test",
	})
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NoError(t, provider.Close())
}

func TestNewLLMProviderOllama(t *testing.T) {
	// Local servers need no API key.
	provider, err := core.NewLLMProvider(core.LLMConfig{Provider: "ollama"})
	require.NoError(t, err)
	require.NotNil(t, provider)
}

func TestNewLLMProviderDeepSeekMissingKey(t *testing.T) {
	_, err := core.NewLLMProvider(core.LLMConfig{Provider: "deepseek"})
	assert.Error(t, err)
}

func TestNewLLMProviderMissingKey(t *testing.T) {
	_, err := core.NewLLMProvider(core.LLMConfig{Provider: "openai"})
	assert.Error(t, err)
}

func TestNewLLMProviderUnknown(t *testing.T) {
	_, err := core.NewLLMProvider(core.LLMConfig{Provider: "parrot"})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
