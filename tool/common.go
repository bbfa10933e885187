package tool

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/tools"
)

const (
	maxReadChars   = 5000
	maxDirEntries  = 50
	calculatorChar = "0123456789+-*/.() "
)

// Calculate evaluates arithmetic expressions.
var Calculate = NewFunc("calculate",
	"Calculate a mathematical expression, e.g. \"2 + 2 * 3\".",
	[]Param{{Name: "expression", Type: "string", Description: "Mathematical expression to calculate (e.g., \"2 + 2 * 3\")", Required: true}},
	func(ctx context.Context, args Args) (string, error) {
		expr := args.String("expression", "")
		for _, c := range expr {
			if !strings.ContainsRune(calculatorChar, c) {
				return "Error: invalid expression. Use only numbers and operators +-*/.", nil
			}
		}
		out, err := tools.Calculator{}.Call(ctx, expr)
		if err != nil {
			return fmt.Sprintf("Calculation error: %v", err), nil
		}
		if msg, failed := strings.CutPrefix(out, "error from evaluator: "); failed {
			return "Calculation error: " + msg, nil
		}
		return "Result: " + out, nil
	})

// GetCurrentTime reports the current date and time.
var GetCurrentTime = NewFunc("get_current_time",
	"Return the current date and time.",
	[]Param{{Name: "timezone", Type: "string", Description: "IANA timezone name, or 'local'", Default: "local"}},
	func(ctx context.Context, args Args) (string, error) {
		now := time.Now()
		if tz := args.String("timezone", "local"); tz != "" && !strings.EqualFold(tz, "local") {
			if loc, err := time.LoadLocation(tz); err == nil {
				now = now.In(loc)
			}
		}
		return "Current date and time: " + now.Format("2006-01-02 15:04:05"), nil
	})

// ReadFile returns the content of a text file.
var ReadFile = NewFunc("read_file",
	"Read the content of a text file.",
	[]Param{{Name: "file_path", Type: "string", Description: "Path to the file to read", Required: true}},
	func(ctx context.Context, args Args) (string, error) {
		path := args.String("file_path", "")
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Sprintf("Error: file '%s' not found", path), nil
		}
		if err != nil {
			return fmt.Sprintf("Read error: %v", err), nil
		}
		if !info.Mode().IsRegular() {
			return fmt.Sprintf("Error: '%s' is not a file", path), nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Sprintf("Read error: %v", err), nil
		}
		content := string(data)
		if utf8.RuneCountInString(content) > maxReadChars {
			content = string([]rune(content)[:maxReadChars]) + "\n... [truncated]"
		}
		return content, nil
	})

// WriteFile writes text to a file, creating parent directories.
var WriteFile = NewFunc("write_file",
	"Write content to a text file.",
	[]Param{
		{Name: "file_path", Type: "string", Description: "Path to the file to write", Required: true},
		{Name: "content", Type: "string", Description: "Content to write", Required: true},
	},
	func(ctx context.Context, args Args) (string, error) {
		path := args.String("file_path", "")
		content := args.String("content", "")
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Sprintf("Write error: %v", err), nil
			}
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Sprintf("Write error: %v", err), nil
		}
		return fmt.Sprintf("File '%s' written successfully (%d characters)", path, utf8.RuneCountInString(content)), nil
	})

// ListDirectory lists a directory.
var ListDirectory = NewFunc("list_directory",
	"List the contents of a directory.",
	[]Param{{Name: "directory_path", Type: "string", Description: "Path to the directory", Required: true}},
	func(ctx context.Context, args Args) (string, error) {
		path := args.String("directory_path", "")
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Sprintf("Error: directory '%s' not found", path), nil
		}
		if err != nil {
			return fmt.Sprintf("Error: %v", err), nil
		}
		if !info.IsDir() {
			return fmt.Sprintf("Error: '%s' is not a directory", path), nil
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return fmt.Sprintf("Error: %v", err), nil
		}
		if len(entries) == 0 {
			return "Empty directory", nil
		}

		items := make([]string, 0, min(len(entries), maxDirEntries))
		for _, e := range entries[:min(len(entries), maxDirEntries)] {
			prefix := "📄"
			if e.IsDir() {
				prefix = "📁"
			}
			items = append(items, prefix+" "+e.Name())
		}
		return strings.Join(items, "\n"), nil
	})

var mockKnowledge = []struct{ key, text string }{
	{"python", "Python is a high-level, interpreted, general-purpose programming language."},
	{"langgraph", "LangGraph is a framework for creating stateful agent graphs, developed by LangChain."},
	{"autogen", "AutoGen is a Microsoft framework for creating multi-party conversational agents."},
	{"ollama", "Ollama allows running LLMs locally like Llama, Mistral, and others."},
	{"gemini", "Google Gemini is a multimodal AI model family by Google DeepMind, capable of understanding text, images, audio, and video."},
}

// WebSearchMock answers from a small fixed knowledge base.
var WebSearchMock = NewFunc("web_search_mock",
	"Simulate a web search over a small built-in knowledge base.",
	[]Param{{Name: "query", Type: "string", Description: "Search query", Required: true}},
	func(ctx context.Context, args Args) (string, error) {
		query := args.String("query", "")
		lower := strings.ToLower(query)
		for _, k := range mockKnowledge {
			if strings.Contains(lower, k.key) {
				return fmt.Sprintf("Results for '%s':\n\n%s", query, k.text), nil
			}
		}
		return fmt.Sprintf("Results for '%s':\n\nNo results found in mock knowledge base. In production, connect a real search API.", query), nil
	})

var (
	reFunction = regexp.MustCompile(`def \w+\(`)
	reClass    = regexp.MustCompile(`class \w+`)
	reImport   = regexp.MustCompile(`(?m)^import |^from .+ import`)
	reSentence = regexp.MustCompile(`[.!?]+`)
)

// AnalyzeCode reports basic metrics and risky patterns in source code.
var AnalyzeCode = NewFunc("analyze_code",
	"Analyze code for basic metrics and potential issues.",
	[]Param{
		{Name: "code", Type: "string", Description: "Source code to analyze", Required: true},
		{Name: "language", Type: "string", Description: "Programming language", Default: "python"},
	},
	func(ctx context.Context, args Args) (string, error) {
		code := args.String("code", "")
		language := args.String("language", "python")

		lines := strings.Split(strings.TrimSpace(code), "\n")
		total := len(lines)
		blank, comments := 0, 0
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			switch {
			case trimmed == "":
				blank++
			case strings.HasPrefix(trimmed, "#"):
				comments++
			}
		}

		var issues []string
		if strings.Contains(code, "eval(") {
			issues = append(issues, "⚠️ Use of eval() detected - potential security risk")
		}
		if strings.Contains(code, "exec(") {
			issues = append(issues, "⚠️ Use of exec() detected - potential security risk")
		}
		if strings.Contains(strings.ToLower(code), "password") && strings.Contains(code, "=") {
			issues = append(issues, "⚠️ Possible hardcoded password detected")
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Code Analysis Report (%s):\n", language)
		sb.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString("📊 Metrics:\n")
		fmt.Fprintf(&sb, "   • Total lines: %d\n", total)
		fmt.Fprintf(&sb, "   • Blank lines: %d\n", blank)
		fmt.Fprintf(&sb, "   • Comment lines: %d\n", comments)
		fmt.Fprintf(&sb, "   • Code lines: %d\n\n", total-blank-comments)
		sb.WriteString("🏗️ Structure:\n")
		fmt.Fprintf(&sb, "   • Functions: %d\n", len(reFunction.FindAllString(code, -1)))
		fmt.Fprintf(&sb, "   • Classes: %d\n", len(reClass.FindAllString(code, -1)))
		fmt.Fprintf(&sb, "   • Imports: %d\n", len(reImport.FindAllString(code, -1)))

		if len(issues) > 0 {
			sb.WriteString("\n⚠️ Potential Issues:\n")
			for _, issue := range issues {
				sb.WriteString("   " + issue + "\n")
			}
		} else {
			sb.WriteString("\n✅ No obvious issues detected")
		}
		return sb.String(), nil
	})

// FormatJSON validates and pretty-prints JSON, keeping key order.
var FormatJSON = NewFunc("format_json",
	"Format and validate a JSON string.",
	[]Param{{Name: "json_string", Type: "string", Description: "JSON string to format", Required: true}},
	func(ctx context.Context, args Args) (string, error) {
		raw := args.String("json_string", "")
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return fmt.Sprintf("Invalid JSON: %v", err), nil
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(strings.TrimSpace(raw)), "", "  "); err != nil {
			return fmt.Sprintf("Invalid JSON: %v", err), nil
		}
		return "Formatted JSON:\n" + buf.String(), nil
	})

// TextStats counts characters, words, sentences and paragraphs.
var TextStats = NewFunc("text_stats",
	"Calculate statistics about a text.",
	[]Param{{Name: "text", Type: "string", Description: "Text to analyze", Required: true}},
	func(ctx context.Context, args Args) (string, error) {
		text := args.String("text", "")

		words := strings.Fields(text)
		sentences := 0
		for _, s := range reSentence.Split(text, -1) {
			if strings.TrimSpace(s) != "" {
				sentences++
			}
		}
		paragraphs := 0
		for _, p := range strings.Split(text, "\n\n") {
			if strings.TrimSpace(p) != "" {
				paragraphs++
			}
		}

		letters := 0
		for _, w := range words {
			letters += utf8.RuneCountInString(w)
		}
		avgWord := float64(letters) / float64(max(len(words), 1))
		avgSentence := float64(len(words)) / float64(max(sentences, 1))

		var sb strings.Builder
		sb.WriteString("Text Statistics:\n")
		sb.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString("📝 Counts:\n")
		fmt.Fprintf(&sb, "   • Characters: %d\n", utf8.RuneCountInString(text))
		fmt.Fprintf(&sb, "   • Words: %d\n", len(words))
		fmt.Fprintf(&sb, "   • Sentences: %d\n", sentences)
		fmt.Fprintf(&sb, "   • Paragraphs: %d\n\n", paragraphs)
		sb.WriteString("📊 Averages:\n")
		fmt.Fprintf(&sb, "   • Avg word length: %.1f chars\n", avgWord)
		fmt.Fprintf(&sb, "   • Avg sentence length: %.1f words\n", avgSentence)
		return sb.String(), nil
	})

type unitPair struct{ from, to string }

var conversions = map[unitPair]func(float64) float64{
	{"km", "miles"}:           func(x float64) float64 { return x * 0.621371 },
	{"miles", "km"}:           func(x float64) float64 { return x * 1.60934 },
	{"celsius", "fahrenheit"}: func(x float64) float64 { return x*9/5 + 32 },
	{"fahrenheit", "celsius"}: func(x float64) float64 { return (x - 32) * 5 / 9 },
	{"kg", "lbs"}:             func(x float64) float64 { return x * 2.20462 },
	{"lbs", "kg"}:             func(x float64) float64 { return x * 0.453592 },
	{"meters", "feet"}:        func(x float64) float64 { return x * 3.28084 },
	{"feet", "meters"}:        func(x float64) float64 { return x * 0.3048 },
	{"liters", "gallons"}:     func(x float64) float64 { return x * 0.264172 },
	{"gallons", "liters"}:     func(x float64) float64 { return x * 3.78541 },
}

// ConvertUnits converts between common units.
var ConvertUnits = NewFunc("convert_units",
	"Convert between common units (km/miles, celsius/fahrenheit, kg/lbs, meters/feet, liters/gallons).",
	[]Param{
		{Name: "value", Type: "number", Description: "Numeric value to convert", Required: true},
		{Name: "from_unit", Type: "string", Description: "Source unit (e.g., 'km', 'miles', 'celsius', 'fahrenheit')", Required: true},
		{Name: "to_unit", Type: "string", Description: "Target unit", Required: true},
	},
	func(ctx context.Context, args Args) (string, error) {
		value, err := args.Float("value")
		if err != nil {
			return "", err
		}
		from := args.String("from_unit", "")
		to := args.String("to_unit", "")

		convert, ok := conversions[unitPair{strings.ToLower(from), strings.ToLower(to)}]
		if !ok {
			return fmt.Sprintf("Conversion from '%s' to '%s' not supported. Supported: km/miles, celsius/fahrenheit, kg/lbs, meters/feet, liters/gallons", from, to), nil
		}
		return fmt.Sprintf("%s %s = %.4f %s", formatNumber(value), from, convert(value), to), nil
	})

// formatNumber prints a float the way it reads naturally: 10.0, 2.5, 1e-07.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// GenerateUUID returns a random UUID.
var GenerateUUID = NewFunc("generate_uuid",
	"Generate a random UUID.",
	nil,
	func(ctx context.Context, args Args) (string, error) {
		return "Generated UUID: " + uuid.NewString(), nil
	})

// EncodeBase64 encodes text to base64.
var EncodeBase64 = NewFunc("encode_base64",
	"Encode text to base64.",
	[]Param{{Name: "text", Type: "string", Description: "Text to encode", Required: true}},
	func(ctx context.Context, args Args) (string, error) {
		return "Base64 encoded: " + base64.StdEncoding.EncodeToString([]byte(args.String("text", ""))), nil
	})

// DecodeBase64 decodes base64 to text.
var DecodeBase64 = NewFunc("decode_base64",
	"Decode base64 to text.",
	[]Param{{Name: "encoded_text", Type: "string", Description: "Base64 string to decode", Required: true}},
	func(ctx context.Context, args Args) (string, error) {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(args.String("encoded_text", "")))
		if err != nil {
			return fmt.Sprintf("Decode error: %v", err), nil
		}
		if !utf8.Valid(data) {
			return "Decode error: decoded bytes are not valid UTF-8", nil
		}
		return "Decoded text: " + string(data), nil
	})
