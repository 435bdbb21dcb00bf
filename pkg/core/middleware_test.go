package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/tutorguard-go/pkg/core"
	"github.com/edustack/tutorguard-go/pkg/flags"
	"github.com/edustack/tutorguard-go/pkg/profile"
	"github.com/edustack/tutorguard-go/pkg/profile/memory"
	"github.com/edustack/tutorguard-go/pkg/resilience"
)

// failingStore always errors, for exercising the best-effort profile path.
type failingStore struct{}

func (failingStore) GetProfile(context.Context, string) (*profile.Profile, error) {
	return nil, errors.New("store unavailable")
}
func (failingStore) SaveProfile(context.Context, *profile.Profile) error {
	return errors.New("store unavailable")
}
func (failingStore) DeleteProfile(context.Context, string) error {
	return errors.New("store unavailable")
}
func (failingStore) Close() error { return nil }

// fastExecutor avoids real backoff sleeps and long timeouts in tests.
func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithBaseDelay(0),
		resilience.WithAttemptTimeout(time.Second),
	)
}

func newTestMiddleware(t *testing.T, opts ...core.MiddlewareOption) *core.Middleware {
	t.Helper()

	opts = append([]core.MiddlewareOption{core.WithExecutor(fastExecutor())}, opts...)
	mw, err := core.NewMiddleware(nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mw.Close() })
	return mw
}

func TestPreProcessMessage(t *testing.T) {
	mw := newTestMiddleware(t)

	pre, err := mw.PreProcessMessage(context.Background(), "user_001", "Can you show me a diagram of photosynthesis?")
	require.NoError(t, err)
	require.NotNil(t, pre)

	assert.Equal(t, "user_001", pre.UserID)
	assert.NotNil(t, pre.Session)
	assert.Nil(t, pre.Profile)
	assert.NotNil(t, pre.DetectedStyle)

	// The fixed rule block is always present.
	assert.Contains(t, pre.SystemPrompt, "Rules:")
	assert.Contains(t, pre.SystemPrompt, "Never state that something was discussed")
	assert.Contains(t, pre.SystemPrompt, "short direct answer")
	assert.Contains(t, pre.SystemPrompt, "double-check every calculation")

	assert.Equal(t, 0, pre.Metadata["session_size"])
	assert.NotZero(t, pre.Metadata["message_length"])
}

func TestPreProcessMessageInvalidInput(t *testing.T) {
	mw := newTestMiddleware(t)

	_, err := mw.PreProcessMessage(context.Background(), "", "hello")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = mw.PreProcessMessage(context.Background(), "user_001", "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestPreProcessMessageEmbedsOptedInProfile(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.SaveProfile(context.Background(), &profile.Profile{
		UserID:         "user_001",
		OptIn:          true,
		LearningStyles: profile.StyleScores{Visual: 0.9},
		SubjectMastery: map[string]float64{"biology": 0.5},
	}))

	mw := newTestMiddleware(t, core.WithProfileStore(store))

	pre, err := mw.PreProcessMessage(context.Background(), "user_001", "What is osmosis?")
	require.NoError(t, err)

	require.NotNil(t, pre.Profile)
	assert.Contains(t, pre.SystemPrompt, "Known learner profile:")
	assert.Contains(t, pre.SystemPrompt, "biology")
}

func TestPreProcessMessageOmitsNonOptedInProfile(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.SaveProfile(context.Background(), &profile.Profile{
		UserID:         "user_001",
		OptIn:          false,
		SubjectMastery: map[string]float64{"biology": 0.5},
	}))

	mw := newTestMiddleware(t, core.WithProfileStore(store))

	pre, err := mw.PreProcessMessage(context.Background(), "user_001", "What is osmosis?")
	require.NoError(t, err)

	assert.NotContains(t, pre.SystemPrompt, "Known learner profile:")
	assert.NotContains(t, pre.SystemPrompt, "biology")
}

func TestPreProcessMessageSurvivesFailingStore(t *testing.T) {
	mw := newTestMiddleware(t, core.WithProfileStore(failingStore{}))

	pre, err := mw.PreProcessMessage(context.Background(), "user_001", "What is osmosis?")
	require.NoError(t, err)
	assert.Nil(t, pre.Profile)
	assert.NotEmpty(t, pre.SystemPrompt)
}

func TestPostProcessResponseCleanTurn(t *testing.T) {
	mw := newTestMiddleware(t)
	ctx := context.Background()

	response := "Osmosis is the movement of water across a membrane. For example, 2 + 2 = 4."
	post, err := mw.PostProcessResponse(ctx, "user_001", "What is osmosis?", response, nil)
	require.NoError(t, err)

	assert.Equal(t, response, post.FinalResponse)
	assert.True(t, post.MemoryValidationPassed)
	assert.True(t, post.MathValidationPassed)
	assert.False(t, post.FallbackUsed)
	assert.Empty(t, post.Corrections)

	// Both turn messages were appended to the session.
	stats := mw.SessionStats("user_001")
	assert.True(t, stats.Exists)
	assert.Equal(t, 2, stats.MessageCount)
}

func TestPostProcessResponseCorrectsFalseMemory(t *testing.T) {
	mw := newTestMiddleware(t)
	ctx := context.Background()

	response := "As we discussed photosynthesis earlier, plants convert light into energy."
	post, err := mw.PostProcessResponse(ctx, "user_001", "Tell me about plants", response, nil)
	require.NoError(t, err)

	assert.False(t, post.MemoryValidationPassed)
	assert.True(t, post.MathValidationPassed)
	assert.False(t, post.FallbackUsed)
	assert.NotContains(t, post.FinalResponse, "we discussed photosynthesis")
	assert.Contains(t, post.FinalResponse, "don't actually have a record")
	require.NotEmpty(t, post.Corrections)
	assert.Contains(t, post.Corrections[0], "photosynthesis")
}

func TestPostProcessResponseAppendsMathVerification(t *testing.T) {
	mw := newTestMiddleware(t)
	ctx := context.Background()

	response := "Multiply first: 3 * 4 = 13. Then add 2."
	post, err := mw.PostProcessResponse(ctx, "user_001", "What is 3 * 4 + 2?", response, nil)
	require.NoError(t, err)

	assert.True(t, post.MemoryValidationPassed)
	assert.False(t, post.MathValidationPassed)
	assert.False(t, post.FallbackUsed)
	// Math issues annotate rather than replace.
	assert.Contains(t, post.FinalResponse, "3 * 4 = 13")
	assert.Contains(t, post.FinalResponse, "Math Verification")
	assert.Contains(t, post.FinalResponse, "3 * 4 = 12")
}

func TestPostProcessResponseDoubleFailureFallback(t *testing.T) {
	mw := newTestMiddleware(t)
	ctx := context.Background()

	response := "We discussed photosynthesis earlier. And of course 2 + 2 = 5."
	post, err := mw.PostProcessResponse(ctx, "user_001", "Help me study", response, nil)
	require.NoError(t, err)

	assert.False(t, post.MemoryValidationPassed)
	assert.False(t, post.MathValidationPassed)
	assert.True(t, post.FallbackUsed)
	// All partial corrections are discarded for the fixed fallback text.
	assert.Equal(t, core.SafetyFallbackMessage, post.FinalResponse)
	require.Len(t, post.Corrections, 1)
	assert.Contains(t, post.Corrections[0], "safety fallback")

	// The fallback, not the raw response, lands in the session.
	stats := mw.SessionStats("user_001")
	assert.Equal(t, 2, stats.MessageCount)
}

func TestPostProcessResponseVerifiedMemoryClaim(t *testing.T) {
	mw := newTestMiddleware(t)
	ctx := context.Background()

	// Two turns mentioning the topic push its salience past the bar.
	_, err := mw.PostProcessResponse(ctx, "user_001", "Can you explain photosynthesis?",
		"Photosynthesis converts light into chemical energy.", nil)
	require.NoError(t, err)

	response := "As we discussed photosynthesis, the chloroplast absorbs light."
	post, err := mw.PostProcessResponse(ctx, "user_001", "Go deeper on photosynthesis", response, nil)
	require.NoError(t, err)

	assert.True(t, post.MemoryValidationPassed)
	assert.Equal(t, response, post.FinalResponse)
}

func TestPostProcessResponseFlagsDisabled(t *testing.T) {
	provider := flags.NewStaticProvider(map[string]bool{
		flags.FlagMemoryValidation: false,
		flags.FlagMathValidation:   false,
	})
	mw := newTestMiddleware(t, core.WithFlagProvider(provider))

	response := "We discussed photosynthesis earlier. And 2 + 2 = 5."
	post, err := mw.PostProcessResponse(context.Background(), "user_001", "Help", response, nil)
	require.NoError(t, err)

	// With both validators off, the response passes through untouched.
	assert.Equal(t, response, post.FinalResponse)
	assert.True(t, post.MemoryValidationPassed)
	assert.True(t, post.MathValidationPassed)
	assert.False(t, post.FallbackUsed)
}

func TestPostProcessResponseReusesPreProcessedSession(t *testing.T) {
	mw := newTestMiddleware(t)
	ctx := context.Background()

	pre, err := mw.PreProcessMessage(ctx, "user_001", "What is 15 * 8?")
	require.NoError(t, err)

	post, err := mw.PostProcessResponse(ctx, "user_001", "What is 15 * 8?", "15 * 8 = 120.", pre)
	require.NoError(t, err)
	assert.True(t, post.MathValidationPassed)

	stats := mw.SessionStats("user_001")
	assert.Equal(t, 2, stats.MessageCount)
}

func TestPostProcessResponseInvalidInput(t *testing.T) {
	mw := newTestMiddleware(t)

	_, err := mw.PostProcessResponse(context.Background(), "", "msg", "response", nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = mw.PostProcessResponse(context.Background(), "user_001", "msg", "", nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestClearSession(t *testing.T) {
	mw := newTestMiddleware(t)
	ctx := context.Background()

	_, err := mw.PostProcessResponse(ctx, "user_001", "hello there", "Hi! How can I help?", nil)
	require.NoError(t, err)
	require.True(t, mw.SessionStats("user_001").Exists)

	mw.ClearSession("user_001")

	stats := mw.SessionStats("user_001")
	assert.False(t, stats.Exists)
	assert.Zero(t, stats.MessageCount)
}

func TestSessionStatsUnknownUser(t *testing.T) {
	mw := newTestMiddleware(t)

	stats := mw.SessionStats("nobody")
	assert.False(t, stats.Exists)
}

func TestSessionsIsolatedPerUser(t *testing.T) {
	mw := newTestMiddleware(t)
	ctx := context.Background()

	_, err := mw.PostProcessResponse(ctx, "user_001", "about algebra", "Algebra is fun.", nil)
	require.NoError(t, err)
	_, err = mw.PostProcessResponse(ctx, "user_002", "about biology", "Biology is fun.", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, mw.SessionStats("user_001").MessageCount)
	assert.Equal(t, 2, mw.SessionStats("user_002").MessageCount)

	mw.ClearSession("user_001")
	assert.False(t, mw.SessionStats("user_001").Exists)
	assert.True(t, mw.SessionStats("user_002").Exists)
}

func TestAsyncMiddleware(t *testing.T) {
	async, err := core.NewAsyncMiddleware(nil, core.WithExecutor(fastExecutor()))
	require.NoError(t, err)
	defer async.Close()

	ctx := context.Background()

	pre := <-async.PreProcessAsync(ctx, "user_001", "What is 6 * 7?")
	require.NoError(t, pre.Error)
	require.NotNil(t, pre.Context)

	post := <-async.PostProcessAsync(ctx, "user_001", "What is 6 * 7?", "6 * 7 = 42.", pre.Context)
	require.NoError(t, post.Error)
	assert.True(t, post.Response.MathValidationPassed)

	async.Wait()
	assert.Equal(t, 2, async.SessionStats("user_001").MessageCount)
}
