package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// DictionaryName is the registered name of the Dictionary tool.
const DictionaryName = "dictionary"

// Dictionary defines a single term using a Definer.
type Dictionary struct {
	definer Definer
}

// NewDictionary returns a Dictionary backed by d.
func NewDictionary(d Definer) (*Dictionary, error) {
	if d == nil {
		return nil, fmt.Errorf("tools: definer must not be nil")
	}
	return &Dictionary{definer: d}, nil
}

// Name returns the tool name.
func (d *Dictionary) Name() string { return DictionaryName }

// Description returns the LLM-facing description of this tool.
func (d *Dictionary) Description() string {
	return "Looks up the dictionary definition of a single English word or term."
}

// Run looks up input. The caller is expected to have normalised the term.
func (d *Dictionary) Run(ctx context.Context, input string) (string, error) {
	return d.definer.Define(ctx, input) //nolint:wrapcheck // sentinels are matched by FailureMessage
}

// Info returns the Eino tool metadata including the JSON input schema.
func (d *Dictionary) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: d.Name(),
		Desc: d.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"input": {
				Type:     schema.String,
				Desc:     "The term to define, e.g. \"osmosis\".",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun decodes {"input": "..."}, normalises the term and looks it
// up. Lookup failures come back as the user-facing message.
func (d *Dictionary) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var in toolInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
		return "", fmt.Errorf("dictionary: invalid input: %w", err)
	}
	term := NormalizeTerm(in.Input)
	if term == "" {
		return EmptyTermMessage, nil
	}
	out, err := d.Run(ctx, term)
	if err != nil {
		return FailureMessage(DictionaryName, term, err), nil
	}
	return out, nil
}
