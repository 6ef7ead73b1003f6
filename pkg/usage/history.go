package usage

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	historyFile    = "history.jsonl"
	historyDayFmt  = "Mon, Jan 02, 2006"
	previewLength  = 100
	unknownProject = "Unknown Project"
	unknownSession = "unknown"
)

type historyEntry struct {
	Display   string          `json:"display"`
	Timestamp json.RawMessage `json:"timestamp"`
	Project   string          `json:"project"`
	SessionID string          `json:"sessionId"`
}

type Prompt struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type HistorySession struct {
	SessionID      string    `json:"sessionId"`
	Project        string    `json:"project"`
	ProjectName    string    `json:"projectName"`
	Prompts        []Prompt  `json:"prompts"`
	FirstTimestamp time.Time `json:"firstTimestamp"`
	LastTimestamp  time.Time `json:"lastTimestamp"`
	Topic          string    `json:"topic"`
	PromptCount    int       `json:"promptCount"`
	Preview        string    `json:"preview"`
}

type HistoryDay struct {
	Date     string           `json:"date"`
	Sessions []HistorySession `json:"sessions"`
}

// History groups the prompt history by local calendar day, newest day first,
// then by session. Entries without a usable timestamp are skipped.
func (r *Reader) History() ([]HistoryDay, error) {
	entries, err := r.historyEntries()
	if err != nil {
		return nil, err
	}

	type stamped struct {
		historyEntry
		at time.Time
	}
	var items []stamped
	for _, e := range entries {
		at, ok := parseTimestamp(rawTimestamp(e.Timestamp))
		if !ok {
			continue
		}
		items = append(items, stamped{historyEntry: e, at: at})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].at.After(items[j].at) })

	days := []HistoryDay{}
	dayIndex := map[string]int{}
	sessionIndex := map[string]map[string]int{}
	for _, item := range items {
		date := item.at.Local().Format(historyDayFmt)
		di, ok := dayIndex[date]
		if !ok {
			di = len(days)
			dayIndex[date] = di
			sessionIndex[date] = map[string]int{}
			days = append(days, HistoryDay{Date: date})
		}

		id := item.SessionID
		if id == "" {
			id = unknownSession
		}
		si, ok := sessionIndex[date][id]
		if !ok {
			si = len(days[di].Sessions)
			sessionIndex[date][id] = si
			name := unknownProject
			if item.Project != "" {
				name = item.Project[strings.LastIndex(item.Project, "/")+1:]
			}
			days[di].Sessions = append(days[di].Sessions, HistorySession{
				SessionID:      id,
				Project:        item.Project,
				ProjectName:    name,
				FirstTimestamp: item.at,
				LastTimestamp:  item.at,
			})
		}

		s := &days[di].Sessions[si]
		s.Prompts = append(s.Prompts, Prompt{Text: item.Display, Timestamp: item.at})
		if item.at.Before(s.FirstTimestamp) {
			s.FirstTimestamp = item.at
		}
		if item.at.After(s.LastTimestamp) {
			s.LastTimestamp = item.at
		}
	}

	for d := range days {
		sessions := days[d].Sessions
		for i := range sessions {
			s := &sessions[i]
			texts := make([]string, 0, len(s.Prompts))
			for _, p := range s.Prompts {
				texts = append(texts, p.Text)
			}
			s.Topic = DetectHistoryTopic(strings.ToLower(strings.Join(texts, " ")))
			s.PromptCount = len(s.Prompts)
			if len(s.Prompts) > 0 {
				s.Preview = truncateRunes(s.Prompts[0].Text, previewLength)
				if s.Preview != s.Prompts[0].Text {
					s.Preview += "..."
				}
			}
		}
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].LastTimestamp.After(sessions[j].LastTimestamp)
		})
	}
	return days, nil
}

func (r *Reader) historyEntries() ([]historyEntry, error) {
	var entries []historyEntry
	err := scanJSONL(filepath.Join(r.ClaudeDir, historyFile), func(line []byte) {
		var e historyEntry
		if json.Unmarshal(line, &e) == nil {
			entries = append(entries, e)
		}
	})
	return entries, err
}

// rawTimestamp unwraps a JSON string and leaves numbers as they are.
func rawTimestamp(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

var historyTopics = []struct {
	label string
	words []string
}{
	{"Debugging", []string{"bug", "fix", "error"}},
	{"Testing", []string{"test"}},
	{"Feature development", []string{"create", "new", "add"}},
	{"Refactoring", []string{"refactor", "clean"}},
	{"Learning/Questions", []string{"explain", "how", "what"}},
	{"Code review", []string{"review", "pr"}},
	{"Database work", []string{"database", "sql"}},
	{"DevOps", []string{"deploy", "docker"}},
}

// DetectHistoryTopic labels lower-cased prompt text with the first matching
// topic, checked in priority order.
func DetectHistoryTopic(text string) string {
	for _, t := range historyTopics {
		for _, w := range t.words {
			if strings.Contains(text, w) {
				return t.label
			}
		}
	}
	return "General coding"
}
