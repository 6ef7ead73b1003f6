package usage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const maxTranscriptLine = 16 * 1024 * 1024

// Record is one line of a session transcript.
type Record struct {
	Type      string   `json:"type"`
	Timestamp string   `json:"timestamp"`
	Message   *Message `json:"message"`
}

type Message struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type  string                 `json:"type"`
	Text  string                 `json:"text"`
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// Role resolves the speaker from either the record type or the message role.
// Records that are neither user nor assistant return "".
func (r Record) Role() string {
	role := ""
	if r.Message != nil {
		role = r.Message.Role
	}
	switch {
	case r.Type == "user" || role == "user":
		return "user"
	case r.Type == "assistant" || role == "assistant":
		return "assistant"
	}
	return ""
}

// Time parses the record timestamp; the zero time means none.
func (r Record) Time() time.Time {
	t, _ := parseTimestamp(r.Timestamp)
	return t
}

func (r Record) Model() string {
	if r.Message == nil {
		return ""
	}
	return r.Message.Model
}

// Text returns plain string content, or the text blocks of a block list
// joined by newlines.
func (m *Message) Text() string {
	if m == nil || len(m.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}
	var texts []string
	for _, b := range m.blocks() {
		if b.Type == "text" {
			texts = append(texts, b.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func (m *Message) ToolCalls() []ToolCall {
	if m == nil {
		return nil
	}
	var calls []ToolCall
	for _, b := range m.blocks() {
		if b.Type != "tool_use" {
			continue
		}
		input := b.Input
		if input == nil {
			input = map[string]interface{}{}
		}
		calls = append(calls, ToolCall{ID: b.ID, Name: b.Name, Input: input})
	}
	return calls
}

func (m *Message) blocks() []contentBlock {
	var blocks []contentBlock
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return nil
	}
	return blocks
}

func (c ToolCall) str(key string) string {
	s, _ := c.Input[key].(string)
	return s
}

// ReadTranscript parses a JSONL file, skipping blank and malformed lines.
// A missing file yields no records and no error.
func ReadTranscript(path string) ([]Record, error) {
	var records []Record
	err := scanJSONL(path, func(line []byte) {
		var rec Record
		if json.Unmarshal(line, &rec) == nil {
			records = append(records, rec)
		}
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func scanJSONL(path string, each func(line []byte)) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTranscriptLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) > 0 {
			each(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ConversationMessage is a user or assistant turn with text content.
type ConversationMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
	Model     string `json:"model,omitempty"`
}

// Conversation keeps the user and assistant turns that carry text.
// maxContent truncates each turn when positive.
func Conversation(records []Record, maxContent int) []ConversationMessage {
	messages := []ConversationMessage{}
	for _, rec := range records {
		role := rec.Role()
		if role == "" {
			continue
		}
		content := rec.Message.Text()
		if content == "" {
			continue
		}
		if maxContent > 0 {
			content = truncateRunes(content, maxContent)
		}
		messages = append(messages, ConversationMessage{
			Role:      role,
			Content:   content,
			Timestamp: rec.Timestamp,
			Model:     rec.Model(),
		})
	}
	return messages
}

const (
	OpWrite = "write"
	OpEdit  = "edit"
	OpBash  = "bash"
	OpRead  = "read"
)

// CodeOperation is a file or shell action taken by the assistant.
type CodeOperation struct {
	Type        string `json:"type"`
	Timestamp   string `json:"timestamp,omitempty"`
	FilePath    string `json:"filePath,omitempty"`
	Content     string `json:"content,omitempty"`
	OldString   string `json:"oldString,omitempty"`
	NewString   string `json:"newString,omitempty"`
	Language    string `json:"language,omitempty"`
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
}

// ExtractCodeOperations collects Write, Edit, Bash and Read calls made by the
// assistant, in transcript order.
func ExtractCodeOperations(records []Record) []CodeOperation {
	ops := []CodeOperation{}
	for _, rec := range records {
		if rec.Role() != "assistant" {
			continue
		}
		for _, call := range rec.Message.ToolCalls() {
			path := call.str("file_path")
			switch call.Name {
			case "Write":
				ops = append(ops, CodeOperation{Type: OpWrite, Timestamp: rec.Timestamp, FilePath: path,
					Content: call.str("content"), Language: LanguageFor(path)})
			case "Edit":
				ops = append(ops, CodeOperation{Type: OpEdit, Timestamp: rec.Timestamp, FilePath: path,
					OldString: call.str("old_string"), NewString: call.str("new_string"), Language: LanguageFor(path)})
			case "Bash":
				ops = append(ops, CodeOperation{Type: OpBash, Timestamp: rec.Timestamp,
					Command: call.str("command"), Description: call.str("description")})
			case "Read":
				ops = append(ops, CodeOperation{Type: OpRead, Timestamp: rec.Timestamp, FilePath: path})
			}
		}
	}
	return ops
}

var languages = map[string]string{
	".js": "javascript", ".jsx": "jsx", ".ts": "typescript", ".tsx": "tsx",
	".py": "python", ".rb": "ruby", ".go": "go", ".rs": "rust", ".java": "java",
	".c": "c", ".cpp": "cpp", ".h": "c", ".css": "css", ".scss": "scss",
	".html": "html", ".json": "json", ".yaml": "yaml", ".yml": "yaml",
	".md": "markdown", ".sh": "bash", ".sql": "sql", ".xml": "xml",
}

// LanguageFor maps a file extension to a syntax highlighting language.
func LanguageFor(path string) string {
	if lang, ok := languages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "text"
}

type keyword struct {
	label string
	re    *regexp.Regexp
}

var topicKeywords = []keyword{
	{"Bug Fix", regexp.MustCompile(`(?i)\b(fix|bug|error|issue|broken|crash|fail)`)},
	{"New Feature", regexp.MustCompile(`(?i)\b(add|create|implement|build|new feature|feature)`)},
	{"Refactoring", regexp.MustCompile(`(?i)\b(refactor|clean|reorganize|restructure|improve)`)},
	{"Testing", regexp.MustCompile(`(?i)\b(test|spec|coverage|jest|pytest|unittest)`)},
	{"Documentation", regexp.MustCompile(`(?i)\b(doc|readme|comment|jsdoc|explain)`)},
	{"Styling", regexp.MustCompile(`(?i)\b(css|style|design|ui|layout|theme)`)},
	{"API Work", regexp.MustCompile(`(?i)\b(api|endpoint|route|rest|graphql|fetch)`)},
	{"Database", regexp.MustCompile(`(?i)\b(database|db|sql|mongo|postgres|query|migration)`)},
	{"DevOps", regexp.MustCompile(`(?i)\b(deploy|docker|ci|cd|build|pipeline|kubernetes)`)},
	{"Security", regexp.MustCompile(`(?i)\b(auth|security|permission|token|encrypt)`)},
	{"Performance", regexp.MustCompile(`(?i)\b(optimize|performance|speed|cache|lazy)`)},
}

var techKeywords = []keyword{
	{"React", regexp.MustCompile(`(?i)\breact\b`)},
	{"Node.js", regexp.MustCompile(`(?i)\b(node|express|npm)\b`)},
	{"TypeScript", regexp.MustCompile(`(?i)\btypescript|\.tsx?\b`)},
	{"Python", regexp.MustCompile(`(?i)\b(python|pip|django|flask)\b`)},
	{"SQL", regexp.MustCompile(`(?i)\b(sql|postgres|mysql|sqlite)\b`)},
	{"Docker", regexp.MustCompile(`(?i)\bdocker\b`)},
	{"Git", regexp.MustCompile(`(?i)\b(git|commit|branch|merge|pr)\b`)},
	{"CSS", regexp.MustCompile(`(?i)\b(css|scss|tailwind|styled)`)},
	{"Testing", regexp.MustCompile(`(?i)\b(jest|pytest|test|spec)\b`)},
}

var taskPattern = regexp.MustCompile(`(?i)^(add|create|fix|update|implement|build|make|write|refactor|test|debug|deploy|setup|configure|install|remove|delete|change|modify)\s+.{10,60}`)

func DetectTopics(content string) []string {
	return match(topicKeywords, content)
}

func DetectTechnologies(content string) []string {
	return match(techKeywords, content)
}

func match(keywords []keyword, content string) []string {
	var out []string
	for _, k := range keywords {
		if k.re.MatchString(content) {
			out = append(out, k.label)
		}
	}
	return out
}

// SessionSummary is what a quick pass over one transcript reveals.
type SessionSummary struct {
	Topics         []string
	Technologies   []string
	Tasks          []string
	MessageCount   int
	FirstTimestamp time.Time
	LastTimestamp  time.Time
}

const maxSummaryTasks = 5

// Summarize counts text-bearing messages, detects topics and technologies in
// first-seen order and picks up to five task-like user requests.
func Summarize(records []Record) SessionSummary {
	var s SessionSummary
	seenTopics := map[string]bool{}
	seenTech := map[string]bool{}

	for _, rec := range records {
		if t := rec.Time(); !t.IsZero() {
			if s.FirstTimestamp.IsZero() || t.Before(s.FirstTimestamp) {
				s.FirstTimestamp = t
			}
			if t.After(s.LastTimestamp) {
				s.LastTimestamp = t
			}
		}

		content := rec.Message.Text()
		if content == "" {
			continue
		}
		s.MessageCount++

		for _, topic := range DetectTopics(content) {
			if !seenTopics[topic] {
				seenTopics[topic] = true
				s.Topics = append(s.Topics, topic)
			}
		}
		for _, tech := range DetectTechnologies(content) {
			if !seenTech[tech] {
				seenTech[tech] = true
				s.Technologies = append(s.Technologies, tech)
			}
		}

		if rec.Role() == "user" && len(s.Tasks) < maxSummaryTasks {
			if m := taskPattern.FindString(content); m != "" {
				s.Tasks = append(s.Tasks, strings.TrimSpace(m))
			}
		}
	}
	return s
}

// parseTimestamp accepts RFC 3339 strings and Unix milliseconds, either as a
// JSON number or a numeric string.
func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	var ms float64
	if err := json.Unmarshal([]byte(raw), &ms); err == nil {
		return time.UnixMilli(int64(ms)), true
	}
	return time.Time{}, false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
