package usage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	transcriptExt = ".jsonl"

	projectSummarySessions = 3
	projectListedSessions  = 5
	projectTopics          = 5
	projectTechnologies    = 6
	projectRecentTasks     = 4

	sessionMessageLimit = 2000
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type SessionRef struct {
	ID           string    `json:"id"`
	File         string    `json:"file"`
	LastModified time.Time `json:"lastModified"`
}

type Project struct {
	ID            string       `json:"id"`
	Path          string       `json:"path"`
	Name          string       `json:"name"`
	SessionCount  int          `json:"sessionCount"`
	LastModified  time.Time    `json:"lastModified"`
	LastActivity  *time.Time   `json:"lastActivity"`
	TotalMessages int          `json:"totalMessages"`
	Topics        []string     `json:"topics"`
	Technologies  []string     `json:"technologies"`
	RecentTasks   []string     `json:"recentTasks"`
	Sessions      []SessionRef `json:"sessions"`
}

type OperationCounts struct {
	Writes   int `json:"writes"`
	Edits    int `json:"edits"`
	Commands int `json:"commands"`
	Reads    int `json:"reads"`
}

type SessionDetail struct {
	ID              string                `json:"id"`
	MessageCount    int                   `json:"messageCount"`
	StartTime       string                `json:"startTime,omitempty"`
	EndTime         string                `json:"endTime,omitempty"`
	Messages        []ConversationMessage `json:"messages"`
	CodeOperations  []CodeOperation       `json:"codeOperations"`
	OperationCounts OperationCounts       `json:"operationCounts"`
}

type FileChange struct {
	Path       string          `json:"path"`
	Language   string          `json:"language"`
	Operations []CodeOperation `json:"operations"`
}

type CommandRun struct {
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type CodeSummary struct {
	FilesModified int `json:"filesModified"`
	TotalEdits    int `json:"totalEdits"`
	TotalWrites   int `json:"totalWrites"`
	TotalCommands int `json:"totalCommands"`
}

type SessionCode struct {
	SessionID   string       `json:"sessionId"`
	FileChanges []FileChange `json:"fileChanges"`
	Commands    []CommandRun `json:"commands"`
	Summary     CodeSummary  `json:"summary"`
}

// ConversationLog is the full, untruncated conversation of a session found by
// id alone.
type ConversationLog struct {
	SessionID    string                `json:"sessionId"`
	Project      string                `json:"project"`
	MessageCount int                   `json:"messageCount"`
	Messages     []ConversationMessage `json:"messages"`
}

func (r *Reader) projectsDir() string {
	return filepath.Join(r.ClaudeDir, projectsDir)
}

// Projects lists every project folder, summarizing its three most recent
// sessions, most recently active first.
func (r *Reader) Projects() ([]Project, error) {
	entries, err := os.ReadDir(r.projectsDir())
	if errors.Is(err, os.ErrNotExist) {
		return []Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := []Project{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := r.project(entry)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].sortKey().After(projects[j].sortKey())
	})
	return projects, nil
}

func (p Project) sortKey() time.Time {
	if p.LastActivity != nil {
		return *p.LastActivity
	}
	return p.LastModified
}

func (r *Reader) project(entry os.DirEntry) (Project, error) {
	dir := filepath.Join(r.projectsDir(), entry.Name())
	sessions, err := transcripts(dir)
	if err != nil {
		return Project{}, err
	}

	decoded := DecodeProjectPath(entry.Name())
	name := filepath.Base(decoded)
	if name == "/" || name == "." || name == "" {
		name = "Unknown"
	}

	p := Project{
		ID:           entry.Name(),
		Path:         decoded,
		Name:         name,
		SessionCount: len(sessions),
		Topics:       []string{},
		Technologies: []string{},
		RecentTasks:  []string{},
		Sessions:     []SessionRef{},
	}
	if info, err := entry.Info(); err == nil {
		p.LastModified = info.ModTime()
	}

	seenTopics := map[string]bool{}
	seenTech := map[string]bool{}
	for i, ref := range sessions {
		if i < projectListedSessions {
			p.Sessions = append(p.Sessions, ref)
		}
		if i >= projectSummarySessions {
			continue
		}
		records, err := ReadTranscript(filepath.Join(dir, ref.File))
		if err != nil {
			return Project{}, err
		}
		summary := Summarize(records)
		p.TotalMessages += summary.MessageCount
		p.Topics = appendUnique(p.Topics, seenTopics, summary.Topics, projectTopics)
		p.Technologies = appendUnique(p.Technologies, seenTech, summary.Technologies, projectTechnologies)
		for _, task := range summary.Tasks {
			if len(p.RecentTasks) < projectRecentTasks {
				p.RecentTasks = append(p.RecentTasks, task)
			}
		}
		if last := summary.LastTimestamp; !last.IsZero() && (p.LastActivity == nil || last.After(*p.LastActivity)) {
			p.LastActivity = &last
		}
	}
	return p, nil
}

func appendUnique(dst []string, seen map[string]bool, values []string, limit int) []string {
	for _, v := range values {
		if len(dst) >= limit {
			break
		}
		if !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	return dst
}

// transcripts lists the session files of a project, newest first.
func transcripts(dir string) ([]SessionRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	refs := []SessionRef{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != transcriptExt {
			continue
		}
		ref := SessionRef{ID: strings.TrimSuffix(e.Name(), transcriptExt), File: e.Name()}
		if info, err := e.Info(); err == nil {
			ref.LastModified = info.ModTime()
		}
		refs = append(refs, ref)
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].LastModified.After(refs[j].LastModified) })
	return refs, nil
}

// Session returns a session's conversation, each turn capped at 2000
// characters, with its code operations.
func (r *Reader) Session(projectID, sessionID string) (*SessionDetail, error) {
	records, err := r.sessionRecords(projectID, sessionID)
	if err != nil {
		return nil, err
	}

	messages := Conversation(records, sessionMessageLimit)
	ops := ExtractCodeOperations(records)
	detail := &SessionDetail{
		ID:             sessionID,
		MessageCount:   len(messages),
		Messages:       messages,
		CodeOperations: ops,
	}
	for _, rec := range records {
		if rec.Timestamp != "" {
			detail.StartTime = rec.Timestamp
			break
		}
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Timestamp != "" {
			detail.EndTime = records[i].Timestamp
			break
		}
	}
	for _, op := range ops {
		switch op.Type {
		case OpWrite:
			detail.OperationCounts.Writes++
		case OpEdit:
			detail.OperationCounts.Edits++
		case OpBash:
			detail.OperationCounts.Commands++
		case OpRead:
			detail.OperationCounts.Reads++
		}
	}
	return detail, nil
}

// SessionCode groups a session's writes and edits by file, in first-touched
// order, and lists its shell commands.
func (r *Reader) SessionCode(projectID, sessionID string) (*SessionCode, error) {
	records, err := r.sessionRecords(projectID, sessionID)
	if err != nil {
		return nil, err
	}

	out := &SessionCode{SessionID: sessionID, FileChanges: []FileChange{}, Commands: []CommandRun{}}
	byPath := map[string]int{}
	for _, op := range ExtractCodeOperations(records) {
		switch op.Type {
		case OpWrite, OpEdit:
			if op.Type == OpWrite {
				out.Summary.TotalWrites++
			} else {
				out.Summary.TotalEdits++
			}
			path := op.FilePath
			if path == "" {
				path = "unknown"
			}
			idx, ok := byPath[path]
			if !ok {
				idx = len(out.FileChanges)
				byPath[path] = idx
				out.FileChanges = append(out.FileChanges, FileChange{Path: path, Language: op.Language})
			}
			out.FileChanges[idx].Operations = append(out.FileChanges[idx].Operations, op)
		case OpBash:
			out.Commands = append(out.Commands, CommandRun{Command: op.Command, Description: op.Description, Timestamp: op.Timestamp})
		}
	}
	out.Summary.FilesModified = len(out.FileChanges)
	out.Summary.TotalCommands = len(out.Commands)
	return out, nil
}

// FindConversation searches every project for the session and returns its
// complete conversation.
func (r *Reader) FindConversation(sessionID string) (*ConversationLog, error) {
	if err := checkID(sessionID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.projectsDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(r.projectsDir(), entry.Name(), sessionID+transcriptExt)
		if !isFile(path) {
			continue
		}
		records, err := ReadTranscript(path)
		if err != nil {
			return nil, err
		}
		messages := Conversation(records, 0)
		return &ConversationLog{
			SessionID:    sessionID,
			Project:      strings.ReplaceAll(entry.Name(), "-", "/"),
			MessageCount: len(messages),
			Messages:     messages,
		}, nil
	}
	return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
}

func (r *Reader) sessionRecords(projectID, sessionID string) ([]Record, error) {
	if err := checkID(projectID); err != nil {
		return nil, err
	}
	if err := checkID(sessionID); err != nil {
		return nil, err
	}
	path := filepath.Join(r.projectsDir(), projectID, sessionID+transcriptExt)
	if !isFile(path) {
		return nil, fmt.Errorf("session %s/%s: %w", projectID, sessionID, ErrNotFound)
	}
	return ReadTranscript(path)
}

// checkID rejects identifiers that could step outside the projects folder.
func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidInput, id)
	}
	return nil
}

// DecodeProjectPath rebuilds the filesystem path a project folder was named
// after. Separators and dots were both flattened to "-", so each step tries
// the longest run of parts joined by "-", "." or "_" that exists on disk and
// falls back to a single part.
func DecodeProjectPath(encoded string) string {
	parts := strings.Split(strings.TrimPrefix(encoded, "-"), "-")
	current := string(filepath.Separator)
	var segments []string

	for i := 0; i < len(parts); {
		found := false
		for j := len(parts); j > i && !found; j-- {
			run := parts[i:j]
			candidates := []string{run[0]}
			if len(run) > 1 {
				candidates = []string{strings.Join(run, "-"), strings.Join(run, "."), strings.Join(run, "_")}
			}
			for _, c := range candidates {
				next := filepath.Join(current, c)
				if _, err := os.Stat(next); err == nil {
					segments = append(segments, c)
					current = next
					i = j
					found = true
					break
				}
			}
		}
		if !found {
			segments = append(segments, parts[i])
			current = filepath.Join(current, parts[i])
			i++
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
