package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/edustack/tutorguard-go/pkg/flags"
	"github.com/edustack/tutorguard-go/pkg/learningstyle"
	"github.com/edustack/tutorguard-go/pkg/mathcheck"
	"github.com/edustack/tutorguard-go/pkg/memoryclaim"
	"github.com/edustack/tutorguard-go/pkg/profile"
	"github.com/edustack/tutorguard-go/pkg/resilience"
	"github.com/edustack/tutorguard-go/pkg/session"
	"github.com/edustack/tutorguard-go/pkg/telemetry"
)

// Middleware is the per-turn validation and grounding pipeline.
//
// It sits between a user's message, the caller's LLM invocation, and the
// text finally shown to the user:
//
//  1. PreProcessMessage builds a grounded system prompt from the session,
//     the stored profile (opt-in), and the detected learning style.
//  2. The caller invokes its LLM with that prompt.
//  3. PostProcessResponse validates the model output (memory claims,
//     arithmetic), corrects or falls back, and updates session state.
//
// The middleware owns no long-lived state beyond a map of per-user session
// contexts. Turns for different users may run in parallel; the session map
// and each session context are safe for concurrent use, but the design
// assumes one in-flight turn per user at a time, enforced by the caller.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	mw, _ := core.NewMiddleware(config)
//	defer mw.Close()
//
//	pre, _ := mw.PreProcessMessage(ctx, "user_001", "What is 15 * 8?")
//	answer := callLLM(pre.SystemPrompt, "What is 15 * 8?")
//	post, _ := mw.PostProcessResponse(ctx, "user_001", "What is 15 * 8?", answer, pre)
//	fmt.Println(post.FinalResponse)
type Middleware struct {
	// config contains the middleware configuration.
	config *Config

	// logger is the structured logger.
	logger *zap.Logger

	// store is the learner profile store (nil when profiles are disabled).
	store profile.Store

	// ownsStore is true when the middleware built the store from config
	// and must close it.
	ownsStore bool

	// flagProvider gates the validators per user.
	flagProvider flags.Provider

	// executor guards profile store reads with retry and circuit breaking.
	executor *resilience.Executor

	// queue records per-turn telemetry off the request path.
	queue *telemetry.Queue

	// ownsQueue is true when the middleware built the queue and must
	// close it.
	ownsQueue bool

	// detector estimates learning styles.
	detector *learningstyle.Detector

	// validator verifies memory claims.
	validator *memoryclaim.Validator

	// mathEngine checks arithmetic in responses.
	mathEngine *mathcheck.Engine

	// snowflakeNode generates unique IDs for chat messages.
	snowflakeNode *snowflake.Node

	// maxMessages bounds each session's message history.
	maxMessages int

	// mu protects the sessions map.
	mu sync.RWMutex

	// sessions maps user ID to that user's session context, created
	// lazily on first message.
	sessions map[string]*session.Context
}

// NewMiddleware creates a tutor middleware from configuration.
//
// The profile store, resilience executor, flag provider, and telemetry
// queue are built from the config and can each be overridden with options.
//
// Parameters:
//   - cfg: Configuration (nil uses defaults with an in-memory profile store)
//   - opts: Optional collaborator overrides
//
// Returns a new Middleware instance, or an error if initialization fails.
//
// Example:
//
//	mw, err := core.NewMiddleware(config,
//	    core.WithLogger(logger),
//	    core.WithProfileStore(store),
//	)
func NewMiddleware(cfg *Config, opts ...MiddlewareOption) (*Middleware, error) {
	if cfg == nil {
		cfg = &Config{
			ProfileStore: ProfileStoreConfig{Provider: "memory"},
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &middlewareOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := options.store
	ownsStore := false
	if store == nil {
		built, err := NewProfileStore(cfg.ProfileStore)
		if err != nil {
			return nil, err
		}
		store = built
		ownsStore = true
	}

	executor := options.executor
	if executor == nil {
		timeout, baseDelay, cooldown := cfg.Resilience.ResilienceDurations()
		execOpts := []resilience.Option{
			resilience.WithAttemptTimeout(timeout),
			resilience.WithBaseDelay(baseDelay),
			resilience.WithBreakerCooldown(cooldown),
		}
		if cfg.Resilience != nil {
			if cfg.Resilience.MaxAttempts > 0 {
				execOpts = append(execOpts, resilience.WithMaxAttempts(cfg.Resilience.MaxAttempts))
			}
			if cfg.Resilience.BreakerThreshold > 0 {
				execOpts = append(execOpts, resilience.WithBreakerThreshold(cfg.Resilience.BreakerThreshold))
			}
		}
		executor = resilience.NewExecutor(execOpts...)
	}

	flagProvider := options.flagProvider
	if flagProvider == nil {
		defaults := map[string]bool{
			flags.FlagMemoryValidation: true,
			flags.FlagMathValidation:   true,
		}
		if cfg.Validation != nil {
			defaults[flags.FlagMemoryValidation] = cfg.Validation.MemoryEnabled
			defaults[flags.FlagMathValidation] = cfg.Validation.MathEnabled
		}
		flagProvider = flags.NewStaticProvider(defaults)
	}

	queue := options.queue
	ownsQueue := false
	if queue == nil {
		queue = telemetry.NewQueue(logger)
		ownsQueue = true
	}

	var validatorOpts []memoryclaim.ValidatorOption
	var engineOpts []mathcheck.EngineOption
	if cfg.Validation != nil {
		if cfg.Validation.ClaimThreshold > 0 {
			validatorOpts = append(validatorOpts, memoryclaim.WithThreshold(cfg.Validation.ClaimThreshold))
		}
		if cfg.Validation.MathTolerance > 0 {
			engineOpts = append(engineOpts, mathcheck.WithTolerance(cfg.Validation.MathTolerance))
		}
	}
	if options.extractor != nil {
		validatorOpts = append(validatorOpts, memoryclaim.WithExtractor(options.extractor))
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewTutorError("NewMiddleware", err)
	}

	maxMessages := session.DefaultMaxMessages
	if cfg.Session != nil && cfg.Session.MaxMessages > 0 {
		maxMessages = cfg.Session.MaxMessages
	}

	return &Middleware{
		config:        cfg,
		logger:        logger,
		store:         store,
		ownsStore:     ownsStore,
		flagProvider:  flagProvider,
		executor:      executor,
		queue:         queue,
		ownsQueue:     ownsQueue,
		detector:      learningstyle.NewDetector(),
		validator:     memoryclaim.NewValidator(validatorOpts...),
		mathEngine:    mathcheck.NewEngine(engineOpts...),
		snowflakeNode: node,
		maxMessages:   maxMessages,
		sessions:      make(map[string]*session.Context),
	}, nil
}

// PreProcessMessage runs the pre-process phase for one turn.
//
// It resolves (or lazily creates) the user's session, fetches the stored
// profile best-effort, estimates the learning style best-effort, and builds
// the grounded system prompt. A failing profile store or detector never
// fails the turn; the prompt is simply built without that input.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: The user this turn belongs to (required)
//   - message: The user's message (required)
//
// Returns the pre-processed context, or an error for invalid input.
func (m *Middleware) PreProcessMessage(ctx context.Context, userID, message string) (*PreProcessedContext, error) {
	if userID == "" || message == "" {
		return nil, NewTutorError("PreProcessMessage", ErrInvalidInput)
	}

	sess := m.getOrCreateSession(userID)

	prof := m.fetchProfile(ctx, userID)

	style := m.detectStyle(sess, message)

	styleConfidence := 0.0
	if style != nil {
		styleConfidence = style.Confidence
	}

	return &PreProcessedContext{
		UserID:        userID,
		Session:       sess,
		Profile:       prof,
		DetectedStyle: style,
		SystemPrompt:  buildSystemPrompt(prof, sess, style),
		Metadata: map[string]interface{}{
			"message_length":   len(message),
			"session_size":     sess.MessageCount(),
			"style_confidence": styleConfidence,
		},
	}, nil
}

// PostProcessResponse runs the post-process phase for one turn.
//
// Behavior:
//  1. The session is reused from preCtx when provided, otherwise resolved
//     from the session map.
//  2. If memory validation is enabled for this user, the memory claim
//     validator runs; an invalid claim replaces the response with the
//     honest rewrite and records a correction note. Validator errors are
//     captured into telemetry and treated as passed.
//  3. If math validation is enabled, the math engine runs; issues append a
//     "Math Verification" block rather than replacing the response.
//  4. If BOTH validators failed in the same turn, all partial corrections
//     are discarded and the response is replaced with the safety fallback
//     message.
//  5. Regardless of outcome, the user message and the final assistant
//     response are appended to the session.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: The user this turn belongs to (required)
//   - message: The user's message for this turn (required)
//   - llmResponse: The raw model output to validate (required)
//   - preCtx: Output of PreProcessMessage for this turn (optional)
//
// Returns the post-processed response, or an error for invalid input.
func (m *Middleware) PostProcessResponse(ctx context.Context, userID, message, llmResponse string, preCtx *PreProcessedContext) (*PostProcessedResponse, error) {
	if userID == "" || llmResponse == "" {
		return nil, NewTutorError("PostProcessResponse", ErrInvalidInput)
	}

	var sess *session.Context
	if preCtx != nil && preCtx.Session != nil {
		sess = preCtx.Session
	} else {
		sess = m.getOrCreateSession(userID)
	}

	var prof *profile.Profile
	if preCtx != nil {
		prof = preCtx.Profile
	}

	finalResponse := llmResponse
	memoryPassed := true
	mathPassed := true
	var corrections []string
	tele := map[string]interface{}{}

	if m.flagProvider.IsEnabled(flags.FlagMemoryValidation, userID) {
		result, err := m.runMemoryValidation(llmResponse, sess, prof)
		if err != nil {
			// Fail open: a broken validator must not block the turn.
			tele["memory_validation_error"] = err.Error()
			m.logger.Warn("memory validation failed",
				zap.String("user_id", userID), zap.Error(err))
		} else {
			tele["memory_claims_checked"] = len(result.Claims)
			if !result.Valid {
				memoryPassed = false
				finalResponse = result.CorrectedResponse
				for _, claim := range result.Claims {
					if !claim.IsValid {
						corrections = append(corrections,
							fmt.Sprintf("removed unverified memory claim about %q", claim.Topic))
					}
				}
			}
		}
	}

	if m.flagProvider.IsEnabled(flags.FlagMathValidation, userID) {
		result, err := m.runMathValidation(finalResponse)
		if err != nil {
			tele["math_validation_error"] = err.Error()
			m.logger.Warn("math validation failed",
				zap.String("user_id", userID), zap.Error(err))
		} else {
			tele["math_expressions_checked"] = len(result.CalculatedValues)
			if !result.Valid {
				mathPassed = false
				finalResponse = finalResponse + "\n\n**Math Verification**\n" + result.CorrectedSteps
				corrections = append(corrections, "appended math verification block")
			}
		}
	}

	fallbackUsed := false
	if !memoryPassed && !mathPassed {
		// Content-level circuit breaker: two independent validators
		// failing in one turn means the response cannot be trusted.
		finalResponse = SafetyFallbackMessage
		corrections = []string{"replaced response with safety fallback (memory and math validation both failed)"}
		fallbackUsed = true
	}

	m.appendTurn(sess, message, finalResponse)

	tele["memory_validation_passed"] = memoryPassed
	tele["math_validation_passed"] = mathPassed
	tele["fallback_used"] = fallbackUsed
	m.queue.Emit(telemetry.Event{
		Name:   "turn_processed",
		UserID: userID,
		Fields: tele,
	})

	return &PostProcessedResponse{
		FinalResponse:          finalResponse,
		MemoryValidationPassed: memoryPassed,
		MathValidationPassed:   mathPassed,
		FallbackUsed:           fallbackUsed,
		Corrections:            corrections,
		Telemetry:              tele,
	}, nil
}

// ClearSession discards a user's session context.
//
// The next message from the user starts a fresh session.
func (m *Middleware) ClearSession(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// SessionStats returns a snapshot of a user's session state.
//
// Exists is false when the user has no live session; the remaining fields
// are then zero.
func (m *Middleware) SessionStats(userID string) SessionStats {
	m.mu.RLock()
	sess, ok := m.sessions[userID]
	m.mu.RUnlock()

	if !ok {
		return SessionStats{}
	}

	return SessionStats{
		Exists:       true,
		MessageCount: sess.MessageCount(),
		TopicCount:   sess.TopicCount(),
		TopTopics:    sess.RecentTopics(0, 5),
		StartedAt:    sess.StartedAt(),
		Duration:     sess.Duration(),
	}
}

// Close releases resources owned by the middleware: the profile store and
// telemetry queue it built from config. Injected collaborators are left
// open for their owners to close.
func (m *Middleware) Close() error {
	var firstErr error

	if m.ownsQueue && m.queue != nil {
		m.queue.Close()
	}

	if m.ownsStore && m.store != nil {
		if err := m.store.Close(); err != nil {
			firstErr = err
		}
	}

	return firstErr
}

// getOrCreateSession returns the user's session, creating it lazily.
func (m *Middleware) getOrCreateSession(userID string) *session.Context {
	m.mu.RLock()
	sess, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return sess
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok {
		return sess
	}
	sess = session.NewContext(session.WithMaxMessages(m.maxMessages))
	m.sessions[userID] = sess
	return sess
}

// fetchProfile reads the user's profile best-effort: store errors and open
// breakers yield a nil profile rather than a failed turn.
func (m *Middleware) fetchProfile(ctx context.Context, userID string) *profile.Profile {
	if m.store == nil {
		return nil
	}

	prof, _ := resilience.Execute(ctx, m.executor, "profile_fetch",
		func(ctx context.Context) (*profile.Profile, error) {
			return m.store.GetProfile(ctx, userID)
		},
		func() *profile.Profile { return nil },
	)
	return prof
}

// detectStyle estimates the learning style, treating a panicking detector
// as no detection.
func (m *Middleware) detectStyle(sess *session.Context, message string) (style *learningstyle.DetectedStyle) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("style detection failed", zap.Any("panic", r))
			style = nil
		}
	}()
	return m.detector.Estimate(sess, message)
}

// runMemoryValidation runs the claim validator, converting a panic into an
// error so the orchestrator can fail open.
func (m *Middleware) runMemoryValidation(response string, sess *session.Context, prof *profile.Profile) (result *memoryclaim.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("memory validator panic: %v", r)
		}
	}()
	return m.validator.Validate(response, sess, prof), nil
}

// runMathValidation runs the math engine, converting a panic into an error
// so the orchestrator can fail open.
func (m *Middleware) runMathValidation(response string) (result *mathcheck.ValidationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("math engine panic: %v", r)
		}
	}()
	return m.mathEngine.ValidateAndAnnotate(response), nil
}

// appendTurn appends the user message and final assistant response to the
// session as two new chat messages.
func (m *Middleware) appendTurn(sess *session.Context, message, response string) {
	now := time.Now()
	if strings.TrimSpace(message) != "" {
		sess.AddMessage(session.ChatMessage{
			ID:        m.snowflakeNode.Generate().Int64(),
			Content:   message,
			Role:      session.RoleUser,
			Format:    "text",
			Timestamp: now,
		})
	}
	sess.AddMessage(session.ChatMessage{
		ID:        m.snowflakeNode.Generate().Int64(),
		Content:   response,
		Role:      session.RoleAssistant,
		Format:    "text",
		Timestamp: now,
	})
}
