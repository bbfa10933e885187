package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// Tool is a langchaingo tool that also describes its arguments as a JSON
// schema object.
type Tool interface {
	tools.Tool
	Parameters() map[string]any
}

// Param describes one argument of a Func tool.
type Param struct {
	Name        string
	Type        string // JSON schema type: "string", "number", ...
	Description string
	Required    bool
	Default     any
}

// Args holds decoded tool arguments.
type Args map[string]any

// String returns the argument as a string, or def when absent.
func (a Args) String(name, def string) string {
	v, ok := a[name]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Float returns the argument as a number.
func (a Args) Float(name string) (float64, error) {
	switch v := a[name].(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q is not a number: %v", name, v)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("missing required argument %q", name)
	default:
		return 0, fmt.Errorf("argument %q is not a number: %v", name, v)
	}
}

// Func is a Tool implemented by a Go function.
type Func struct {
	name        string
	description string
	params      []Param
	fn          func(ctx context.Context, args Args) (string, error)
}

// NewFunc creates a function tool.
func NewFunc(name, description string, params []Param, fn func(ctx context.Context, args Args) (string, error)) *Func {
	return &Func{name: name, description: description, params: params, fn: fn}
}

// Name implements tools.Tool.
func (f *Func) Name() string { return f.name }

// Description implements tools.Tool.
func (f *Func) Description() string { return f.description }

// Parameters implements Tool.
func (f *Func) Parameters() map[string]any {
	props := make(map[string]any, len(f.params))
	required := []string{}
	for _, p := range f.params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Call implements tools.Tool. The input is either a JSON object of named
// arguments or, for tools with parameters, the raw value of the first one.
func (f *Func) Call(ctx context.Context, input string) (string, error) {
	args, err := f.parse(input)
	if err != nil {
		return "", err
	}
	return f.fn(ctx, args)
}

func (f *Func) parse(input string) (Args, error) {
	args := Args{}
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &args); err == nil && !f.rawObject(args) {
			return f.withDefaults(args)
		}
		args = Args{}
	}
	if len(f.params) > 0 && input != "" {
		args[f.params[0].Name] = input
	}
	return f.withDefaults(args)
}

// rawObject reports whether a decoded object is really the raw value of a
// single-parameter tool, as with format_json given a JSON document.
func (f *Func) rawObject(args Args) bool {
	if len(f.params) != 1 {
		return false
	}
	_, named := args[f.params[0].Name]
	return !named
}

func (f *Func) withDefaults(args Args) (Args, error) {
	for _, p := range f.params {
		if _, ok := args[p.Name]; ok {
			continue
		}
		if p.Default != nil {
			args[p.Name] = p.Default
		} else if p.Required {
			return nil, fmt.Errorf("%s: missing required argument %q", f.name, p.Name)
		}
	}
	return args, nil
}

// DefaultParameters is the schema used for tools that do not describe
// their arguments: a single free-form string named "input".
func DefaultParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"type":        "string",
				"description": "The input to the tool",
			},
		},
		"required": []string{"input"},
	}
}

// ParametersOf returns the schema of t.
func ParametersOf(t tools.Tool) map[string]any {
	if pt, ok := t.(Tool); ok {
		return pt.Parameters()
	}
	return DefaultParameters()
}

// Definitions converts tools to function definitions for llms.WithTools.
func Definitions(ts []tools.Tool) []llms.Tool {
	defs := make([]llms.Tool, 0, len(ts))
	for _, t := range ts {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  ParametersOf(t),
			},
		})
	}
	return defs
}

// Input converts model-produced JSON arguments into the input string for t.
// Tools with a schema receive the JSON as is; others receive the "input"
// field.
func Input(t tools.Tool, arguments string) string {
	if _, ok := t.(Tool); ok {
		return arguments
	}
	var args struct {
		Input *string `json:"input"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err == nil && args.Input != nil {
		return *args.Input
	}
	return arguments
}
