package usage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line builds one transcript record.
func line(t *testing.T, typ, ts string, content interface{}) string {
	t.Helper()
	rec := map[string]interface{}{"type": typ, "timestamp": ts}
	if content != nil {
		rec["message"] = map[string]interface{}{"role": typ, "model": "claude-sonnet-4", "content": content}
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	return string(b)
}

func toolUse(name string, input map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "tool_use", "id": "tu_" + name, "name": name, "input": input}
}

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func TestReadTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	writeFile(t, path,
		line(t, "user", "2025-03-01T10:00:00Z", "fix the login bug in auth.ts"),
		"",
		"{broken",
		line(t, "assistant", "2025-03-01T10:01:00Z", []interface{}{
			map[string]interface{}{"type": "thinking", "thinking": "hmm"},
			map[string]interface{}{"type": "text", "text": "Looking at it."},
			toolUse("Edit", map[string]interface{}{"file_path": "/src/auth.ts", "old_string": "a", "new_string": "b"}),
			map[string]interface{}{"type": "text", "text": "Done."},
		}),
		`{"type":"summary","summary":"Login fix"}`,
	)

	records, err := ReadTranscript(path)
	require.NoError(t, err)
	require.Len(t, records, 3, "blank and malformed lines are skipped")

	assert.Equal(t, "user", records[0].Role())
	assert.Equal(t, "fix the login bug in auth.ts", records[0].Message.Text())
	assert.Equal(t, "Looking at it.\nDone.", records[1].Message.Text())
	assert.Equal(t, "", records[2].Role())
	assert.Equal(t, "", records[2].Message.Text())

	calls := records[1].Message.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Edit", calls[0].Name)
	assert.Equal(t, "/src/auth.ts", calls[0].str("file_path"))

	missing, err := ReadTranscript(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestConversation(t *testing.T) {
	records := []Record{
		{Type: "user", Timestamp: "t1", Message: &Message{Role: "user", Content: json.RawMessage(`"héllo world"`)}},
		{Type: "progress"},
		{Message: &Message{Role: "assistant", Model: "m", Content: json.RawMessage(`[{"type":"tool_use","name":"Bash"}]`)}},
		{Message: &Message{Role: "assistant", Model: "m", Content: json.RawMessage(`[{"type":"text","text":"answer"}]`)}},
	}

	all := Conversation(records, 0)
	require.Len(t, all, 2, "turns without text are dropped")
	assert.Equal(t, ConversationMessage{Role: "user", Content: "héllo world", Timestamp: "t1"}, all[0])
	assert.Equal(t, ConversationMessage{Role: "assistant", Content: "answer", Model: "m"}, all[1])

	short := Conversation(records, 2)
	assert.Equal(t, "hé", short[0].Content)
}

func TestExtractCodeOperations(t *testing.T) {
	records := []Record{
		{Type: "user", Message: &Message{Role: "user", Content: json.RawMessage(`[{"type":"tool_use","name":"Write","input":{"file_path":"ignored.go"}}]`)}},
		{Type: "assistant", Timestamp: "t2", Message: &Message{Role: "assistant", Content: json.RawMessage(`[
			{"type":"tool_use","name":"Write","input":{"file_path":"/a/main.go","content":"package main"}},
			{"type":"tool_use","name":"Edit","input":{"file_path":"/a/style.SCSS","old_string":"x","new_string":"y"}},
			{"type":"tool_use","name":"Bash","input":{"command":"go test ./...","description":"run tests"}},
			{"type":"tool_use","name":"Read","input":{"file_path":"/a/README"}},
			{"type":"tool_use","name":"Grep","input":{"pattern":"TODO"}}
		]`)}},
	}

	ops := ExtractCodeOperations(records)
	require.Len(t, ops, 4, "user turns and unknown tools are ignored")
	assert.Equal(t, CodeOperation{Type: OpWrite, Timestamp: "t2", FilePath: "/a/main.go", Content: "package main", Language: "go"}, ops[0])
	assert.Equal(t, "scss", ops[1].Language)
	assert.Equal(t, "y", ops[1].NewString)
	assert.Equal(t, CodeOperation{Type: OpBash, Timestamp: "t2", Command: "go test ./...", Description: "run tests"}, ops[2])
	assert.Equal(t, OpRead, ops[3].Type)
	assert.Empty(t, ops[3].Language)
}

func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "typescript", LanguageFor("src/app.ts"))
	assert.Equal(t, "yaml", LanguageFor("ci.YML"))
	assert.Equal(t, "text", LanguageFor("Makefile"))
	assert.Equal(t, "text", LanguageFor(""))
}

func TestSummarize(t *testing.T) {
	records := []Record{
		{Type: "user", Timestamp: "2025-03-01T10:05:00Z", Message: &Message{Role: "user", Content: json.RawMessage(`"Fix the crash in the React checkout page"`)}},
		{Type: "assistant", Timestamp: "2025-03-01T10:00:00Z", Message: &Message{Role: "assistant", Content: json.RawMessage(`[{"type":"text","text":"I will add a docker healthcheck"}]`)}},
		{Type: "user", Timestamp: "2025-03-01T10:09:00Z", Message: &Message{Role: "user", Content: json.RawMessage(`"thanks"`)}},
		{Type: "user", Timestamp: "not a time"},
	}

	s := Summarize(records)
	assert.Equal(t, 3, s.MessageCount)
	assert.Equal(t, "2025-03-01T10:00:00Z", s.FirstTimestamp.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "2025-03-01T10:09:00Z", s.LastTimestamp.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, []string{"Bug Fix", "New Feature", "DevOps"}, s.Topics)
	assert.Equal(t, []string{"React", "Docker"}, s.Technologies)
	assert.Equal(t, []string{"Fix the crash in the React checkout page"}, s.Tasks, "only user requests become tasks")
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		raw  string
		ok   bool
		unix int64
	}{
		{raw: "2025-01-02T03:04:05.678Z", ok: true, unix: 1735787045},
		{raw: "1735787045678", ok: true, unix: 1735787045},
		{raw: "1735787045678.0", ok: true, unix: 1735787045},
		{raw: "", ok: false},
		{raw: "yesterday", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseTimestamp(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.unix, got.Unix())
			}
		})
	}
}
