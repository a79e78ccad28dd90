package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kassist-go/internal/calc"
)

// CalculatorName is the registered name of the Calculator tool.
const CalculatorName = "calculator"

// Calculator evaluates arithmetic expressions with the allow-list evaluator
// in package calc. It never executes arbitrary code.
type Calculator struct{}

// toolInput is the JSON argument schema shared by both tools.
type toolInput struct {
	// Input is the expression or term.
	Input string `json:"input"`
}

// NewCalculator returns a Calculator.
func NewCalculator() *Calculator { return &Calculator{} }

// Name returns the tool name.
func (c *Calculator) Name() string { return CalculatorName }

// Description returns the LLM-facing description of this tool.
func (c *Calculator) Description() string {
	return "Evaluates an arithmetic expression using + - * / and parentheses, " +
		"or a percentage of the form \"N% of M\". Returns the numeric result."
}

// Run evaluates input and returns the formatted result.
func (c *Calculator) Run(_ context.Context, input string) (string, error) {
	n, err := calc.Evaluate(input)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// Info returns the Eino tool metadata including the JSON input schema.
func (c *Calculator) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: c.Name(),
		Desc: c.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"input": {
				Type:     schema.String,
				Desc:     "The arithmetic expression, e.g. \"2 + 3 * 4\" or \"20% of 100\".",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun decodes {"input": "..."} and evaluates it. Evaluation
// failures are reported as the user-facing message, not as an error; only
// malformed arguments return an error.
func (c *Calculator) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var in toolInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
		return "", fmt.Errorf("calculator: invalid input: %w", err)
	}
	out, err := c.Run(ctx, in.Input)
	if err != nil {
		return FailureMessage(CalculatorName, in.Input, err), nil
	}
	return out, nil
}
