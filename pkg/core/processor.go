package core

import (
	"strings"

	"github.com/edustack/tutorguard-go/pkg/learningstyle"
	"github.com/edustack/tutorguard-go/pkg/mathcheck"
	"github.com/edustack/tutorguard-go/pkg/memoryclaim"
	"github.com/edustack/tutorguard-go/pkg/profile"
	"github.com/edustack/tutorguard-go/pkg/session"
)

// ProcessAIResponse runs the validation sequence without a live middleware:
// style detection, memory claim validation, and math validation over a
// single response.
//
// Unlike PostProcessResponse it never mutates session state, prepends
// memory corrections instead of rewriting sentences, and appends math
// warnings as a block. Useful for batch or offline scoring of stored
// responses.
//
// Parameters:
//   - query: The user message that produced the response (may be empty)
//   - response: The model output to validate (required)
//   - sess: Session context to verify claims against (may be nil)
//   - prof: Stored profile to verify preference claims against (may be nil)
//
// Returns the structured result, or an error for invalid input.
//
// Example:
//
//	result, err := core.ProcessAIResponse(query, response, sess, nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.FinalResponse)
func ProcessAIResponse(query, response string, sess *session.Context, prof *profile.Profile) (*ProcessedAIResponse, error) {
	if response == "" {
		return nil, NewTutorError("ProcessAIResponse", ErrInvalidInput)
	}

	result := &ProcessedAIResponse{FinalResponse: response}

	detector := learningstyle.NewDetector()
	result.DetectedStyle = detector.Estimate(sess, query)

	validator := memoryclaim.NewValidator()
	memResult := validator.Validate(response, sess, prof)
	result.MemoryClaims = memResult.Claims

	var preamble []string
	for _, claim := range memResult.Claims {
		if !claim.IsValid {
			preamble = append(preamble, memoryclaim.GenerateHonestAlternative(claim.Topic))
		}
	}

	engine := mathcheck.NewEngine()
	mathResult := engine.ValidateAndAnnotate(response)
	if !mathResult.Valid {
		result.MathIssues = mathResult.Issues
		result.MathSteps = mathResult.CorrectedSteps
	}

	var sb strings.Builder
	if len(preamble) > 0 {
		sb.WriteString(strings.Join(preamble, "\n\n"))
		sb.WriteString("\n\n")
	}
	sb.WriteString(response)
	if result.MathSteps != "" {
		sb.WriteString("\n\n**Math Verification**\n")
		sb.WriteString(result.MathSteps)
	}
	result.FinalResponse = sb.String()

	return result, nil
}
