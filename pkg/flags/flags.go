// Package flags provides per-user feature flag gating for the validation
// pipeline.
package flags

import (
	"os"
	"strings"
	"sync"
)

// Flag names consumed by the middleware.
const (
	// FlagMemoryValidation gates the memory claim validator.
	FlagMemoryValidation = "memory_validation"

	// FlagMathValidation gates the math expression engine.
	FlagMathValidation = "math_validation"
)

// Provider answers whether a feature is enabled for a user.
type Provider interface {
	// IsEnabled reports whether the named flag is on for the user.
	IsEnabled(flag, userID string) bool
}

// StaticProvider is a fixed in-memory flag table with optional per-user
// overrides. The zero value disables everything; use NewStaticProvider to
// start with sensible defaults.
type StaticProvider struct {
	mu        sync.RWMutex
	defaults  map[string]bool
	overrides map[string]map[string]bool
}

// NewStaticProvider creates a provider with the given default flag states.
//
// A nil map enables both validators, the recommended default.
func NewStaticProvider(defaults map[string]bool) *StaticProvider {
	if defaults == nil {
		defaults = map[string]bool{
			FlagMemoryValidation: true,
			FlagMathValidation:   true,
		}
	}
	return &StaticProvider{
		defaults:  defaults,
		overrides: make(map[string]map[string]bool),
	}
}

// IsEnabled reports the flag state for a user, preferring a per-user
// override over the default.
func (p *StaticProvider) IsEnabled(flag, userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if userFlags, ok := p.overrides[userID]; ok {
		if enabled, ok := userFlags[flag]; ok {
			return enabled
		}
	}
	return p.defaults[flag]
}

// SetOverride sets a per-user flag override.
func (p *StaticProvider) SetOverride(flag, userID string, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.overrides[userID] == nil {
		p.overrides[userID] = make(map[string]bool)
	}
	p.overrides[userID][flag] = enabled
}

// EnvProvider reads flag states from environment variables of the form
// TUTORGUARD_FLAG_<NAME>=true|false. Unset flags default to enabled.
type EnvProvider struct{}

// NewEnvProvider creates an EnvProvider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// IsEnabled reports the flag state from the environment.
func (p *EnvProvider) IsEnabled(flag, _ string) bool {
	key := "TUTORGUARD_FLAG_" + strings.ToUpper(flag)
	value, ok := os.LookupEnv(key)
	if !ok {
		return true
	}
	return strings.EqualFold(value, "true") || value == "1"
}
