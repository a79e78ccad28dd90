package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/54b3r/kassist-go/internal/calc"
	"github.com/54b3r/kassist-go/internal/dictionary"
)

// Messages shown when the tool input is empty after keyword stripping.
const (
	EmptyExpressionMessage = "Please provide a mathematical expression to calculate."
	EmptyTermMessage       = "Please provide a term to define."
)

// NormalizeTerm lower-cases and trims a term and drops trailing ? ! . so
// "Osmosis?" and "osmosis" look up the same entry.
func NormalizeTerm(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.ToLower(strings.TrimSpace(s)), "?!."))
}

// FailureMessage converts a tool error into the text shown to the user.
// Internal details never leak; unknown errors get the generic message.
func FailureMessage(toolName, input string, err error) string {
	switch toolName {
	case CalculatorName:
		switch {
		case errors.Is(err, calc.ErrDivisionByZero):
			return "Error in calculation: division by zero."
		case errors.Is(err, calc.ErrUnsupportedOperator):
			return "Error in calculation: unsupported operator."
		default:
			return "Error in calculation: invalid arithmetic expression."
		}
	case DictionaryName:
		var se *dictionary.ServiceError
		switch {
		case errors.Is(err, dictionary.ErrLookupNotFound):
			return fmt.Sprintf("Could not find a definition for '%s'.", input)
		case errors.As(err, &se):
			return fmt.Sprintf("Error fetching definition for '%s' (HTTP %d).", input, se.Status)
		default:
			return fmt.Sprintf("An error occurred while trying to define '%s'.", input)
		}
	default:
		return "The tool failed to produce a result."
	}
}
