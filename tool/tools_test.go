package tool

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallnest/multiagent/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, tl Tool, input string) string {
	t.Helper()
	out, err := tl.Call(context.Background(), input)
	require.NoError(t, err)
	return out
}

func TestCalculate(t *testing.T) {
	assert.Equal(t, "Result: 8", call(t, Calculate, "2 + 2 * 3"))
	assert.Equal(t, "Result: 8", call(t, Calculate, `{"expression": "2 + 2 * 3"}`))
	assert.Equal(t, "Result: 2.5", call(t, Calculate, "5 / 2"))

	// Only arithmetic characters are accepted
	assert.Equal(t, "Error: invalid expression. Use only numbers and operators +-*/.",
		call(t, Calculate, "__import__('os')"))

	out := call(t, Calculate, "1 / 0")
	assert.True(t, strings.HasPrefix(out, "Calculation error: "), out)

	_, err := Calculate.Call(context.Background(), "")
	assert.Error(t, err)
}

func TestGetCurrentTime(t *testing.T) {
	out := call(t, GetCurrentTime, "")
	assert.True(t, strings.HasPrefix(out, "Current date and time: "))
	assert.Len(t, strings.TrimPrefix(out, "Current date and time: "), len("2006-01-02 15:04:05"))

	// An unknown timezone falls back to local time
	out = call(t, GetCurrentTime, `{"timezone": "Mars/Olympus"}`)
	assert.True(t, strings.HasPrefix(out, "Current date and time: "))
}

func TestReadFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := "Hello, World!\nThis is a test file."
	require.NoError(t, os.WriteFile(testFile, []byte(testContent), 0644))

	assert.Equal(t, testContent, call(t, ReadFile, testFile))
	assert.Equal(t, testContent, call(t, ReadFile, `{"file_path": "`+testFile+`"}`))

	missing := filepath.Join(tmpDir, "nonexistent.txt")
	assert.Equal(t, "Error: file '"+missing+"' not found", call(t, ReadFile, missing))
	assert.Equal(t, "Error: '"+tmpDir+"' is not a file", call(t, ReadFile, tmpDir))

	// Long files are truncated by characters, not bytes
	long := filepath.Join(tmpDir, "long.txt")
	require.NoError(t, os.WriteFile(long, []byte(strings.Repeat("é", 6000)), 0644))
	out := call(t, ReadFile, long)
	assert.Equal(t, strings.Repeat("é", 5000)+"\n... [truncated]", out)
}

func TestWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "nested", "dir", "write_test.txt")

	out := call(t, WriteFile, `{"file_path": "`+testFile+`", "content": "héllo"}`)
	assert.Equal(t, "File '"+testFile+"' written successfully (5 characters)", out)

	content, err := os.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, "héllo", string(content))

	// Missing content is an argument error
	_, err = WriteFile.Call(context.Background(), `{"file_path": "`+testFile+`"}`)
	assert.Error(t, err)
}

func TestListDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	assert.Equal(t, "Empty directory", call(t, ListDirectory, tmpDir))

	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.txt"), nil, 0644))
	assert.Equal(t, "📄 a.txt\n📁 sub", call(t, ListDirectory, tmpDir))

	missing := filepath.Join(tmpDir, "missing")
	assert.Equal(t, "Error: directory '"+missing+"' not found", call(t, ListDirectory, missing))
	file := filepath.Join(tmpDir, "a.txt")
	assert.Equal(t, "Error: '"+file+"' is not a directory", call(t, ListDirectory, file))
}

func TestListDirectoryLimit(t *testing.T) {
	tmpDir := t.TempDir()
	for i := range 60 {
		name := filepath.Join(tmpDir, strings.Repeat("f", i+1))
		require.NoError(t, os.WriteFile(name, nil, 0644))
	}
	out := call(t, ListDirectory, tmpDir)
	assert.Len(t, strings.Split(out, "\n"), 50)
}

func TestWebSearchMock(t *testing.T) {
	out := call(t, WebSearchMock, "What is LangGraph?")
	assert.Equal(t, "Results for 'What is LangGraph?':\n\nLangGraph is a framework for creating stateful agent graphs, developed by LangChain.", out)

	out = call(t, WebSearchMock, "weather today")
	assert.Contains(t, out, "No results found in mock knowledge base")
}

func TestAnalyzeCode(t *testing.T) {
	code := "import os\nfrom sys import argv\n\n# entry\nclass App:\n    def run(self):\n        password = 'x'\n        eval('1')\n"
	out := call(t, AnalyzeCode, `{"code": `+quote(code)+`}`)

	assert.Contains(t, out, "Code Analysis Report (python):")
	assert.Contains(t, out, "• Total lines: 8")
	assert.Contains(t, out, "• Blank lines: 1")
	assert.Contains(t, out, "• Comment lines: 1")
	assert.Contains(t, out, "• Code lines: 6")
	assert.Contains(t, out, "• Functions: 1")
	assert.Contains(t, out, "• Classes: 1")
	assert.Contains(t, out, "• Imports: 2")
	assert.Contains(t, out, "Use of eval() detected")
	assert.Contains(t, out, "Possible hardcoded password detected")
	assert.NotContains(t, out, "exec()")

	out = call(t, AnalyzeCode, "x = 1")
	assert.Contains(t, out, "✅ No obvious issues detected")
}

func TestFormatJSON(t *testing.T) {
	out := call(t, FormatJSON, `{"json_string": "{\"b\":1,\"a\":[1,2]}"}`)
	assert.Equal(t, "Formatted JSON:\n{\n  \"b\": 1,\n  \"a\": [\n    1,\n    2\n  ]\n}", out)

	out = call(t, FormatJSON, `{"json_string": "{oops"}`)
	assert.True(t, strings.HasPrefix(out, "Invalid JSON: "), out)

	// A bare JSON object is the document itself.
	out = call(t, FormatJSON, `{"a": 1}`)
	assert.Equal(t, "Formatted JSON:\n{\n  \"a\": 1\n}", out)

	out = call(t, FormatJSON, `[1,2]`)
	assert.Equal(t, "Formatted JSON:\n[\n  1,\n  2\n]", out)
}

func TestTextStats(t *testing.T) {
	out := call(t, TextStats, "Hello world. How are you?\n\nFine!")
	assert.Contains(t, out, "• Characters: 32")
	assert.Contains(t, out, "• Words: 6")
	assert.Contains(t, out, "• Sentences: 3")
	assert.Contains(t, out, "• Paragraphs: 2")
	assert.Contains(t, out, "• Avg word length: 4.3 chars")
	assert.Contains(t, out, "• Avg sentence length: 2.0 words")
}

func TestConvertUnits(t *testing.T) {
	assert.Equal(t, "10.0 km = 6.2137 miles",
		call(t, ConvertUnits, `{"value": 10, "from_unit": "km", "to_unit": "miles"}`))
	assert.Equal(t, "100.0 Celsius = 212.0000 Fahrenheit",
		call(t, ConvertUnits, `{"value": 100, "from_unit": "Celsius", "to_unit": "Fahrenheit"}`))
	assert.Equal(t, "2.5 lbs = 1.1340 kg",
		call(t, ConvertUnits, `{"value": "2.5", "from_unit": "lbs", "to_unit": "kg"}`))

	out := call(t, ConvertUnits, `{"value": 1, "from_unit": "km", "to_unit": "parsecs"}`)
	assert.True(t, strings.HasPrefix(out, "Conversion from 'km' to 'parsecs' not supported."), out)

	_, err := ConvertUnits.Call(context.Background(), `{"value": "ten", "from_unit": "km", "to_unit": "miles"}`)
	assert.Error(t, err)
}

func TestUUIDAndBase64(t *testing.T) {
	out := call(t, GenerateUUID, "")
	assert.Len(t, strings.TrimPrefix(out, "Generated UUID: "), 36)

	assert.Equal(t, "Base64 encoded: aGVsbG8=", call(t, EncodeBase64, "hello"))
	assert.Equal(t, "Decoded text: hello", call(t, DecodeBase64, "aGVsbG8="))

	out = call(t, DecodeBase64, "not base64!")
	assert.True(t, strings.HasPrefix(out, "Decode error: "), out)

	binary := base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe})
	assert.True(t, strings.HasPrefix(call(t, DecodeBase64, binary), "Decode error: "))
}

func TestRegistry(t *testing.T) {
	all := All()
	assert.Equal(t, []string{
		"calculate", "get_current_time", "read_file", "write_file", "list_directory",
		"web_search_mock", "analyze_code", "format_json", "text_stats", "convert_units",
		"generate_uuid", "encode_base64", "decode_base64",
	}, Names(all))

	assert.Len(t, ForAgent(), 13)
	assert.Equal(t, []string{"format_json", "calculate"},
		Names(ForAgent("format_json", "unknown", "calculate")))
	assert.Empty(t, ForAgent([]string{}...))

	skills := Skills()
	assert.Len(t, skills, 13)
	assert.Equal(t, Calculate.Description(), skills["calculate"])

	tl, ok := Get("text_stats")
	require.True(t, ok)
	assert.Equal(t, "text_stats", tl.Name())
	_, ok = Get("nope")
	assert.False(t, ok)

	defs := Definitions(ForAgent("convert_units"))
	require.Len(t, defs, 1)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "convert_units", defs[0].Function.Name)
	params := defs[0].Function.Parameters.(map[string]any)
	assert.Equal(t, []string{"value", "from_unit", "to_unit"}, params["required"])
}

func TestInput(t *testing.T) {
	assert.Equal(t, `{"expression":"1+1"}`, Input(Calculate, `{"expression":"1+1"}`))
	assert.Equal(t, DefaultParameters(), ParametersOf(plainTool{}))
	assert.Equal(t, "raw", Input(plainTool{}, `{"input":"raw"}`))
	assert.Equal(t, "not json", Input(plainTool{}, "not json"))
}

type plainTool struct{}

func (plainTool) Name() string        { return "plain" }
func (plainTool) Description() string { return "plain tool" }
func (plainTool) Call(_ context.Context, input string) (string, error) {
	return input, nil
}

func TestBraveSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		assert.Equal(t, "zh", r.URL.Query().Get("search_lang"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web": {"results": [
			{"title": "The Go Programming Language", "url": "https://go.dev", "description": "Go is an open source language."}
		]}}`))
	}))
	defer server.Close()

	b, err := NewBraveSearch("test-key",
		WithBraveBaseURL(server.URL), WithBraveCount(5), WithBraveLang("zh"))
	require.NoError(t, err)
	assert.Equal(t, "web_search", b.Name())

	out, err := b.Call(context.Background(), `{"query": "golang"}`)
	require.NoError(t, err)
	assert.Equal(t, "1. Title: The Go Programming Language\nURL: https://go.dev\nDescription: Go is an open source language.\n\n", out)

	bad, err := NewBraveSearch("wrong-key", WithBraveBaseURL(server.URL))
	require.NoError(t, err)
	_, err = bad.Call(context.Background(), "golang")
	assert.ErrorContains(t, err, "status: 401")
}

func TestBraveSearchNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	b, err := NewBraveSearch("k", WithBraveBaseURL(server.URL), WithBraveCount(100))
	require.NoError(t, err)
	assert.Equal(t, 20, b.Count)

	out, err := b.Call(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "No results found", out)
}

func TestBraveSearchKeyFromConfig(t *testing.T) {
	t.Cleanup(config.Reset)

	s := config.Default()
	config.Set(s)
	_, err := NewBraveSearch("")
	assert.ErrorIs(t, err, ErrMissingBraveKey)

	s.BraveAPIKey = "from-config"
	b, err := NewBraveSearch("")
	require.NoError(t, err)
	assert.Equal(t, "from-config", b.APIKey)
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
