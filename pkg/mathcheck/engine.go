package mathcheck

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTolerance is the numeric tolerance for comparing stated and
// computed answers.
const DefaultTolerance = 1e-4

// MathStep is one step in a step-by-step solution display.
//
// Steps are never mutated after creation.
type MathStep struct {
	// Description names the step (e.g. "Evaluate", "Verification").
	Description string `json:"description"`

	// Expression is the expression the step operates on.
	Expression string `json:"expression"`

	// Result is the computed value rendered as text (empty if none).
	Result string `json:"result,omitempty"`

	// Explanation is the human-readable explanation of the step.
	Explanation string `json:"explanation"`
}

// ValidationResult is the outcome of checking the arithmetic in a text.
type ValidationResult struct {
	// Valid is true iff no stated answer mismatched its computed value.
	Valid bool `json:"valid"`

	// Issues describes each mismatch (or an engine-level failure note).
	Issues []string `json:"issues,omitempty"`

	// CorrectedSteps is a human-readable correction block, present only
	// when Valid is false.
	CorrectedSteps string `json:"corrected_steps,omitempty"`

	// CalculatedValues maps each successfully evaluated expression to its
	// computed value.
	CalculatedValues map[string]float64 `json:"calculated_values,omitempty"`
}

// Extraction pattern families: binary arithmetic chains, parenthesized
// groups, and explicit exponent forms.
var (
	binaryPattern = regexp.MustCompile(`\d+(?:\.\d+)?(?:\s*[-+*/×÷]\s*\d+(?:\.\d+)?)+`)
	parenPattern  = regexp.MustCompile(`\([^()]+\)(?:\s*[-+*/×÷^]\s*(?:\d+(?:\.\d+)?|\([^()]+\)))*`)
	powerPattern  = regexp.MustCompile(`\d+(?:\.\d+)?\s*\^\s*\d+(?:\.\d+)?`)

	statedAnswerPattern = regexp.MustCompile(`^\s*=\s*(-?\d+(?:\.\d+)?)`)
)

// Engine validates arithmetic embedded in free text.
//
// The engine is stateless and safe for concurrent use. It never fails a
// validation outright because of an unparseable fragment: unparseable
// candidate expressions are skipped, and an engine-level failure returns
// Valid=true with an explanatory issue so a parser bug never blocks content.
type Engine struct {
	tolerance float64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTolerance overrides the numeric comparison tolerance.
func WithTolerance(t float64) EngineOption {
	return func(e *Engine) {
		if t > 0 {
			e.tolerance = t
		}
	}
}

// NewEngine creates an Engine with the default tolerance.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateAndAnnotate extracts every arithmetic expression in the text,
// evaluates it, and compares the computed value against any stated answer
// (an "= number" immediately following the expression).
//
// A mismatch produces an issue and a correction block entry; a match is
// recorded silently in CalculatedValues. Valid is true iff no mismatches
// were found.
func (e *Engine) ValidateAndAnnotate(text string) (result *ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = &ValidationResult{
				Valid:  true,
				Issues: []string{fmt.Sprintf("math validation skipped due to internal error: %v", r)},
			}
		}
	}()

	result = &ValidationResult{
		Valid:            true,
		CalculatedValues: make(map[string]float64),
	}

	var corrections []string
	for _, match := range e.extractExpressions(text) {
		computed, err := EvaluateExpression(match.expression)
		if err != nil {
			// Unparseable fragment, skip it.
			continue
		}

		stated, ok := e.findStatedAnswer(text, match.end)
		if !ok {
			result.CalculatedValues[match.expression] = computed
			continue
		}

		if math.Abs(stated-computed) < e.tolerance {
			result.CalculatedValues[match.expression] = computed
			continue
		}

		result.Valid = false
		result.Issues = append(result.Issues, fmt.Sprintf(
			"%s = %s is incorrect; the correct result is %s",
			match.expression, formatNumber(stated), formatNumber(computed)))
		corrections = append(corrections, fmt.Sprintf(
			"- %s = %s (stated: %s)",
			match.expression, formatNumber(computed), formatNumber(stated)))
	}

	if !result.Valid {
		result.CorrectedSteps = "Corrected calculations:\n" + strings.Join(corrections, "\n")
	}
	return result
}

// SolveAndShowSteps evaluates an equation and renders the work as ordered
// steps.
//
// The equation is split on a single "=": with one side, the expression is
// evaluated directly; with two sides, both are evaluated and a verification
// step notes equality or inequality. Expressions containing unknowns
// produce an "Analysis" step instead; symbolic solving is out of scope.
func (e *Engine) SolveAndShowSteps(equation string) []MathStep {
	equation = strings.TrimSpace(equation)
	if equation == "" {
		return nil
	}

	if containsVariables(equation) {
		return []MathStep{{
			Description: "Analysis",
			Expression:  equation,
			Explanation: "This expression contains variables. Solving for unknowns is not supported; only numeric evaluation is available.",
		}}
	}

	sides := strings.Split(equation, "=")
	switch len(sides) {
	case 1:
		value, err := EvaluateExpression(sides[0])
		if err != nil {
			return []MathStep{{
				Description: "Analysis",
				Expression:  equation,
				Explanation: fmt.Sprintf("Could not evaluate: %v", err),
			}}
		}
		return []MathStep{{
			Description: "Evaluate",
			Expression:  strings.TrimSpace(sides[0]),
			Result:      formatNumber(value),
			Explanation: fmt.Sprintf("%s evaluates to %s", strings.TrimSpace(sides[0]), formatNumber(value)),
		}}
	case 2:
		left, errLeft := EvaluateExpression(sides[0])
		right, errRight := EvaluateExpression(sides[1])
		if errLeft != nil || errRight != nil {
			return []MathStep{{
				Description: "Analysis",
				Expression:  equation,
				Explanation: "Could not evaluate one side of the equation numerically.",
			}}
		}

		steps := []MathStep{
			{
				Description: "Evaluate left side",
				Expression:  strings.TrimSpace(sides[0]),
				Result:      formatNumber(left),
				Explanation: fmt.Sprintf("Left side evaluates to %s", formatNumber(left)),
			},
			{
				Description: "Evaluate right side",
				Expression:  strings.TrimSpace(sides[1]),
				Result:      formatNumber(right),
				Explanation: fmt.Sprintf("Right side evaluates to %s", formatNumber(right)),
			},
		}

		if math.Abs(left-right) < e.tolerance {
			steps = append(steps, MathStep{
				Description: "Verification",
				Expression:  equation,
				Result:      formatNumber(left),
				Explanation: "Both sides are equal; the equation holds.",
			})
		} else {
			steps = append(steps, MathStep{
				Description: "Verification",
				Expression:  equation,
				Explanation: fmt.Sprintf("The sides are not equal: %s vs %s.", formatNumber(left), formatNumber(right)),
			})
		}
		return steps
	default:
		return []MathStep{{
			Description: "Analysis",
			Expression:  equation,
			Explanation: "Equations with multiple '=' signs are not supported.",
		}}
	}
}

// extractedExpression is one candidate expression with its location in the
// source text.
type extractedExpression struct {
	expression string
	start      int
	end        int
}

// extractExpressions runs all pattern families and returns de-duplicated
// candidates. Candidates fully contained inside an already-kept candidate
// are dropped.
func (e *Engine) extractExpressions(text string) []extractedExpression {
	var candidates []extractedExpression
	for _, pattern := range []*regexp.Regexp{parenPattern, binaryPattern, powerPattern} {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			candidates = append(candidates, extractedExpression{
				expression: strings.TrimSpace(text[loc[0]:loc[1]]),
				start:      loc[0],
				end:        loc[1],
			})
		}
	}

	var kept []extractedExpression
	seen := make(map[string]struct{})
	for _, cand := range candidates {
		if _, dup := seen[cand.expression]; dup {
			continue
		}
		contained := false
		for _, existing := range kept {
			if cand.start >= existing.start && cand.end <= existing.end {
				contained = true
				break
			}
		}
		if contained {
			continue
		}
		seen[cand.expression] = struct{}{}
		kept = append(kept, cand)
	}
	return kept
}

// findStatedAnswer looks for an "= number" immediately following the
// expression in the source text.
func (e *Engine) findStatedAnswer(text string, from int) (float64, bool) {
	if from >= len(text) {
		return 0, false
	}
	match := statedAnswerPattern.FindStringSubmatch(text[from:])
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// containsVariables reports whether the equation has letters beyond the
// supported function names.
func containsVariables(equation string) bool {
	stripped := strings.ToLower(equation)
	stripped = strings.ReplaceAll(stripped, "sqrt", "")
	stripped = strings.ReplaceAll(stripped, "pow", "")
	for _, r := range stripped {
		if r >= 'a' && r <= 'z' {
			return true
		}
	}
	return false
}

// formatNumber renders a float without trailing noise.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
