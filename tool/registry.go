package tool

import (
	"github.com/tmc/langchaingo/tools"
)

var builtin = []Tool{
	Calculate,
	GetCurrentTime,
	ReadFile,
	WriteFile,
	ListDirectory,
	WebSearchMock,
	AnalyzeCode,
	FormatJSON,
	TextStats,
	ConvertUnits,
	GenerateUUID,
	EncodeBase64,
	DecodeBase64,
}

// All returns every built-in tool in registration order.
func All() []tools.Tool {
	out := make([]tools.Tool, 0, len(builtin))
	for _, t := range builtin {
		out = append(out, t)
	}
	return out
}

// Get returns the built-in tool with the given name.
func Get(name string) (Tool, bool) {
	for _, t := range builtin {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// ForAgent returns the named tools in the order given. With no names it
// returns All. Unknown names are skipped.
func ForAgent(names ...string) []tools.Tool {
	if names == nil {
		return All()
	}
	out := make([]tools.Tool, 0, len(names))
	for _, name := range names {
		if t, ok := Get(name); ok {
			out = append(out, t)
		}
	}
	return out
}

// Skills maps each built-in tool name to its description.
func Skills() map[string]string {
	skills := make(map[string]string, len(builtin))
	for _, t := range builtin {
		skills[t.Name()] = t.Description()
	}
	return skills
}

// Names returns the names of ts.
func Names(ts []tools.Tool) []string {
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.Name())
	}
	return names
}
