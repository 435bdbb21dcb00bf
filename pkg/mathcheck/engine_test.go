package mathcheck_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/tutorguard-go/pkg/mathcheck"
)

func TestValidateAndAnnotateCorrectMath(t *testing.T) {
	engine := mathcheck.NewEngine()

	result := engine.ValidateAndAnnotate("Let's check: 2 + 2 = 4. Then 15 * 8 = 120.")

	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
	assert.Empty(t, result.CorrectedSteps)
	assert.Contains(t, result.CalculatedValues, "2 + 2")
	assert.InDelta(t, 4, result.CalculatedValues["2 + 2"], 1e-9)
	assert.Contains(t, result.CalculatedValues, "15 * 8")
	assert.InDelta(t, 120, result.CalculatedValues["15 * 8"], 1e-9)
}

func TestValidateAndAnnotateIncorrectMath(t *testing.T) {
	engine := mathcheck.NewEngine()

	result := engine.ValidateAndAnnotate("So 2 + 2 = 5, which completes the proof.")

	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "2 + 2")
	assert.Contains(t, result.Issues[0], "incorrect")
	assert.Contains(t, result.Issues[0], "4")
	assert.Contains(t, result.CorrectedSteps, "Corrected calculations:")
	assert.Contains(t, result.CorrectedSteps, "2 + 2 = 4 (stated: 5)")
}

func TestValidateAndAnnotateMixedResults(t *testing.T) {
	engine := mathcheck.NewEngine()

	result := engine.ValidateAndAnnotate("First, 3 * 3 = 9. But then 10 - 4 = 5.")

	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "10 - 4")
	assert.Contains(t, result.CalculatedValues, "3 * 3")
}

func TestValidateAndAnnotateNoStatedAnswer(t *testing.T) {
	engine := mathcheck.NewEngine()

	// An expression with no "= number" after it is recorded, not flagged.
	result := engine.ValidateAndAnnotate("Try computing 7 * 6 yourself.")

	assert.True(t, result.Valid)
	assert.Contains(t, result.CalculatedValues, "7 * 6")
}

func TestValidateAndAnnotateNoMath(t *testing.T) {
	engine := mathcheck.NewEngine()

	result := engine.ValidateAndAnnotate("Photosynthesis converts light into chemical energy.")

	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
	assert.Empty(t, result.CalculatedValues)
}

func TestValidateAndAnnotateTolerance(t *testing.T) {
	strict := mathcheck.NewEngine()
	loose := mathcheck.NewEngine(mathcheck.WithTolerance(0.5))

	text := "Roughly, 10 / 3 = 3.3."

	assert.False(t, strict.ValidateAndAnnotate(text).Valid)
	assert.True(t, loose.ValidateAndAnnotate(text).Valid)
}

func TestValidateAndAnnotateUnicodeOperators(t *testing.T) {
	engine := mathcheck.NewEngine()

	result := engine.ValidateAndAnnotate("We have 6 × 7 = 40 here.")

	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "42")
}

func TestSolveAndShowStepsSingleExpression(t *testing.T) {
	engine := mathcheck.NewEngine()

	steps := engine.SolveAndShowSteps("2 + 3 * 4")

	require.Len(t, steps, 1)
	assert.Equal(t, "Evaluate", steps[0].Description)
	assert.Equal(t, "14", steps[0].Result)
}

func TestSolveAndShowStepsEquationHolds(t *testing.T) {
	engine := mathcheck.NewEngine()

	steps := engine.SolveAndShowSteps("(2 + 3) * 4 = 20")

	require.Len(t, steps, 3)
	assert.Equal(t, "Evaluate left side", steps[0].Description)
	assert.Equal(t, "20", steps[0].Result)
	assert.Equal(t, "Evaluate right side", steps[1].Description)
	assert.Equal(t, "Verification", steps[2].Description)
	assert.Contains(t, steps[2].Explanation, "equal")
}

func TestSolveAndShowStepsEquationFails(t *testing.T) {
	engine := mathcheck.NewEngine()

	steps := engine.SolveAndShowSteps("2 + 2 = 5")

	require.Len(t, steps, 3)
	assert.Equal(t, "Verification", steps[2].Description)
	assert.Contains(t, steps[2].Explanation, "not equal")
}

func TestSolveAndShowStepsVariables(t *testing.T) {
	engine := mathcheck.NewEngine()

	steps := engine.SolveAndShowSteps("2x + 1 = 5")

	require.Len(t, steps, 1)
	assert.Equal(t, "Analysis", steps[0].Description)
	assert.Contains(t, steps[0].Explanation, "variables")
}

func TestSolveAndShowStepsEmpty(t *testing.T) {
	engine := mathcheck.NewEngine()

	assert.Nil(t, engine.SolveAndShowSteps("   "))
}
