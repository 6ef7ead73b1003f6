package usage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"

	dailySessionCapMinutes = 180
	dailyTopicLimit        = 10

	struggleEditThreshold = 5
	struggleMediumEdits   = 7
	struggleHighEdits     = 10
	struggleFileLimit     = 20
	repeatRunThreshold    = 3
	repeatCommandLimit    = 10
	thrashMinOps          = 20
	thrashMaxFiles        = 3
	thrashMaxMinutes      = 30
	thrashSessionLimit    = 10

	taskLimit = 50

	productivityDays    = 30
	mostEditedLimit     = 10
	focusSessionMinutes = 30
)

// Operation is one tool call; Type is the lower-cased tool name.
type Operation struct {
	Type     string
	At       time.Time
	FilePath string
	Content  string
	Command  string
	Pattern  string
}

// SessionActivity is a session reduced to its time span and tool calls.
// Date is the UTC calendar day the session started.
type SessionActivity struct {
	ID         string
	Project    string
	Date       string
	Start      time.Time
	End        time.Time
	Operations []Operation
}

func (s SessionActivity) Minutes() float64 {
	return s.End.Sub(s.Start).Minutes()
}

// Activity scans every transcript of every project. Sessions without any
// timestamp are left out.
func (r *Reader) Activity(ctx context.Context) ([]SessionActivity, error) {
	projects, err := os.ReadDir(r.projectsDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var sessions []SessionActivity
	for _, project := range projects {
		if !project.IsDir() {
			continue
		}
		dir := filepath.Join(r.projectsDir(), project.Name())
		refs, err := transcripts(dir)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			records, err := ReadTranscript(filepath.Join(dir, ref.File))
			if err != nil {
				return nil, err
			}
			if s, ok := activityOf(ref.ID, project.Name(), records); ok {
				sessions = append(sessions, s)
			}
		}
	}
	return sessions, nil
}

func activityOf(id, project string, records []Record) (SessionActivity, bool) {
	s := SessionActivity{ID: id, Project: project}
	for _, rec := range records {
		at := rec.Time()
		if !at.IsZero() {
			if s.Start.IsZero() || at.Before(s.Start) {
				s.Start = at
			}
			if at.After(s.End) {
				s.End = at
			}
		}
		if rec.Role() != "assistant" {
			continue
		}
		for _, call := range rec.Message.ToolCalls() {
			op := Operation{Type: strings.ToLower(call.Name), At: at}
			switch op.Type {
			case OpWrite:
				op.FilePath, op.Content = call.str("file_path"), call.str("content")
			case OpEdit, OpRead:
				op.FilePath = call.str("file_path")
			case OpBash:
				op.Command = call.str("command")
			case "glob", "grep":
				op.Pattern = call.str("pattern")
			}
			s.Operations = append(s.Operations, op)
		}
	}
	if s.Start.IsZero() {
		return s, false
	}
	s.Date = s.Start.UTC().Format(DateLayout)
	return s, true
}

type DailyOperationCounts struct {
	Writes int `json:"writes"`
	Edits  int `json:"edits"`
	Bash   int `json:"bash"`
	Total  int `json:"total"`
}

type DailyTopic struct {
	Topic          string   `json:"topic"`
	OperationCount int      `json:"operationCount"`
	FilesInvolved  []string `json:"filesInvolved"`
}

type DailySummary struct {
	SessionCount    int                  `json:"sessionCount"`
	ActiveMinutes   int                  `json:"activeMinutes"`
	FilesModified   []string             `json:"filesModified"`
	OperationCounts DailyOperationCounts `json:"operationCounts"`
	Topics          []DailyTopic         `json:"topics"`
}

type DayNavigation struct {
	HasPrevious  bool    `json:"hasPrevious"`
	PreviousDate *string `json:"previousDate"`
	HasNext      bool    `json:"hasNext"`
	NextDate     *string `json:"nextDate"`
}

type DailyInsights struct {
	Date        string        `json:"date"`
	DisplayDate string        `json:"displayDate"`
	Summary     DailySummary  `json:"summary"`
	Navigation  DayNavigation `json:"navigation"`
}

// Daily summarizes one UTC day. An empty date means today. Each session
// contributes at most three hours of active time.
func Daily(sessions []SessionActivity, date string, now time.Time) (*DailyInsights, error) {
	now = now.UTC()
	if date == "" {
		date = now.Format(DateLayout)
	}
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", ErrInvalidInput, date)
	}

	out := &DailyInsights{
		Date:        date,
		DisplayDate: displayDate(day, now),
		Summary:     DailySummary{FilesModified: []string{}, Topics: []DailyTopic{}},
	}

	files := newOrderedSet()
	var activeMinutes float64
	for _, s := range sessions {
		if s.Date != date {
			continue
		}
		out.Summary.SessionCount++
		activeMinutes += math.Min(s.Minutes(), dailySessionCapMinutes)

		sessionFiles := newOrderedSet()
		codeOps := 0
		for _, op := range s.Operations {
			switch op.Type {
			case OpWrite:
				out.Summary.OperationCounts.Writes++
			case OpEdit:
				out.Summary.OperationCounts.Edits++
			case OpBash:
				out.Summary.OperationCounts.Bash++
			default:
				continue
			}
			out.Summary.OperationCounts.Total++
			codeOps++
			if op.Type != OpBash && op.FilePath != "" {
				files.add(baseName(op.FilePath))
				sessionFiles.add(baseName(op.FilePath))
			}
		}
		if codeOps > 0 && len(out.Summary.Topics) < dailyTopicLimit {
			out.Summary.Topics = append(out.Summary.Topics, DailyTopic{
				Topic:          "Session " + truncateRunes(s.ID, 8),
				OperationCount: codeOps,
				FilesInvolved:  sessionFiles.items,
			})
		}
	}
	out.Summary.ActiveMinutes = int(math.Round(activeMinutes))
	out.Summary.FilesModified = files.items
	out.Navigation = navigate(activeDates(sessions), date)
	return out, nil
}

func displayDate(day, now time.Time) string {
	today := now.Format(DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(DateLayout)
	switch day.Format(DateLayout) {
	case today:
		return "Today (" + day.Format("Jan 02") + ")"
	case yesterday:
		return "Yesterday (" + day.Format("Jan 02") + ")"
	}
	return day.Format("Mon, Jan 02")
}

// navigate links to the neighbouring active days. A date with no activity
// links back to the latest active day.
func navigate(dates []string, date string) DayNavigation {
	var nav DayNavigation
	idx := sort.SearchStrings(dates, date)
	if idx < len(dates) && dates[idx] == date {
		if idx > 0 {
			nav.HasPrevious, nav.PreviousDate = true, &dates[idx-1]
		}
		if idx < len(dates)-1 {
			nav.HasNext, nav.NextDate = true, &dates[idx+1]
		}
		return nav
	}
	if len(dates) > 0 {
		nav.HasPrevious, nav.PreviousDate = true, &dates[len(dates)-1]
	}
	return nav
}

// activeDates returns the distinct session dates in ascending order.
func activeDates(sessions []SessionActivity) []string {
	seen := map[string]bool{}
	var dates []string
	for _, s := range sessions {
		if !seen[s.Date] {
			seen[s.Date] = true
			dates = append(dates, s.Date)
		}
	}
	sort.Strings(dates)
	return dates
}

type StruggleFile struct {
	FileName  string `json:"fileName"`
	FilePath  string `json:"filePath"`
	EditCount int    `json:"editCount"`
	Severity  string `json:"severity"`
	Date      string `json:"date"`
	SessionID string `json:"sessionId"`
}

type RepeatedCommand struct {
	Command     string `json:"command"`
	Occurrences int    `json:"occurrences"`
	Note        string `json:"note"`
	Date        string `json:"date"`
}

type ThrashingSession struct {
	OperationCount   int      `json:"operationCount"`
	UniqueFilesCount int      `json:"uniqueFilesCount"`
	Duration         int      `json:"duration"`
	Date             string   `json:"date"`
	SessionID        string   `json:"sessionId"`
	Files            []string `json:"files"`
}

type ErrorPatterns struct {
	StruggleFiles     []StruggleFile     `json:"struggleFiles"`
	RepeatedCommands  []RepeatedCommand  `json:"repeatedCommands"`
	ThrashingSessions []ThrashingSession `json:"thrashingSessions"`
}

type ErrorInsights struct {
	Period   string        `json:"period"`
	Patterns ErrorPatterns `json:"patterns"`
}

// FindErrorPatterns looks for signs of struggle in the last days: files edited five or
// more times in one session, the same command run three or more times in a
// row, and short sessions churning through many edits on few files.
func FindErrorPatterns(sessions []SessionActivity, days int, now time.Time) *ErrorInsights {
	out := &ErrorInsights{
		Period: fmt.Sprintf("Last %d days", days),
		Patterns: ErrorPatterns{
			StruggleFiles:     []StruggleFile{},
			RepeatedCommands:  []RepeatedCommand{},
			ThrashingSessions: []ThrashingSession{},
		},
	}

	for _, s := range recent(sessions, days, now) {
		out.Patterns.StruggleFiles = append(out.Patterns.StruggleFiles, struggleFiles(s)...)
		out.Patterns.RepeatedCommands = append(out.Patterns.RepeatedCommands, repeatedCommands(s)...)
		if t, ok := thrashing(s); ok && len(out.Patterns.ThrashingSessions) < thrashSessionLimit {
			out.Patterns.ThrashingSessions = append(out.Patterns.ThrashingSessions, t)
		}
	}

	sort.SliceStable(out.Patterns.StruggleFiles, func(i, j int) bool {
		return out.Patterns.StruggleFiles[i].EditCount > out.Patterns.StruggleFiles[j].EditCount
	})
	sort.SliceStable(out.Patterns.RepeatedCommands, func(i, j int) bool {
		return out.Patterns.RepeatedCommands[i].Occurrences > out.Patterns.RepeatedCommands[j].Occurrences
	})
	if len(out.Patterns.StruggleFiles) > struggleFileLimit {
		out.Patterns.StruggleFiles = out.Patterns.StruggleFiles[:struggleFileLimit]
	}
	if len(out.Patterns.RepeatedCommands) > repeatCommandLimit {
		out.Patterns.RepeatedCommands = out.Patterns.RepeatedCommands[:repeatCommandLimit]
	}
	return out
}

func struggleFiles(s SessionActivity) []StruggleFile {
	counts := map[string]int{}
	paths := map[string]string{}
	var names []string
	for _, op := range s.Operations {
		if op.Type != OpEdit || op.FilePath == "" {
			continue
		}
		name := baseName(op.FilePath)
		if counts[name] == 0 {
			names = append(names, name)
		}
		counts[name]++
		paths[name] = op.FilePath
	}

	var out []StruggleFile
	for _, name := range names {
		n := counts[name]
		if n < struggleEditThreshold {
			continue
		}
		severity := "low"
		switch {
		case n >= struggleHighEdits:
			severity = "high"
		case n >= struggleMediumEdits:
			severity = "medium"
		}
		out = append(out, StruggleFile{
			FileName:  name,
			FilePath:  paths[name],
			EditCount: n,
			Severity:  severity,
			Date:      s.Date,
			SessionID: s.ID,
		})
	}
	return out
}

// repeatedCommands compares commands by their first word only.
func repeatedCommands(s SessionActivity) []RepeatedCommand {
	var out []RepeatedCommand
	current, count := "", 0
	flush := func() {
		if count >= repeatRunThreshold && current != "" {
			out = append(out, RepeatedCommand{
				Command:     current,
				Occurrences: count,
				Note:        fmt.Sprintf("Ran %d times in succession", count),
				Date:        s.Date,
			})
		}
	}
	for _, op := range s.Operations {
		if op.Type != OpBash || op.Command == "" {
			continue
		}
		cmd := ""
		if fields := strings.Fields(op.Command); len(fields) > 0 {
			cmd = fields[0]
		}
		if cmd == current {
			count++
			continue
		}
		flush()
		current, count = cmd, 1
	}
	flush()
	return out
}

func thrashing(s SessionActivity) (ThrashingSession, bool) {
	files := newOrderedSet()
	codeOps := 0
	for _, op := range s.Operations {
		if op.Type != OpWrite && op.Type != OpEdit {
			continue
		}
		codeOps++
		if op.FilePath != "" {
			files.add(op.FilePath)
		}
	}
	minutes := s.Minutes()
	if codeOps < thrashMinOps || len(files.items) > thrashMaxFiles || minutes >= thrashMaxMinutes {
		return ThrashingSession{}, false
	}
	names := make([]string, 0, len(files.items))
	for _, f := range files.items {
		names = append(names, baseName(f))
	}
	return ThrashingSession{
		OperationCount:   codeOps,
		UniqueFilesCount: len(files.items),
		Duration:         int(math.Round(minutes)),
		Date:             s.Date,
		SessionID:        s.ID,
		Files:            names,
	}, true
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Task struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	InferredFrom  string    `json:"inferredFrom"`
	SessionCount  int       `json:"sessionCount"`
	TotalMinutes  int       `json:"totalMinutes"`
	FilesInvolved []string  `json:"filesInvolved"`
	DateRange     DateRange `json:"dateRange"`
}

type TaskSummary struct {
	TotalTasks        int `json:"totalTasks"`
	TotalTimeMinutes  int `json:"totalTimeMinutes"`
	AvgMinutesPerTask int `json:"avgMinutesPerTask"`
}

type TaskInsights struct {
	Period  string      `json:"period"`
	Tasks   []Task      `json:"tasks"`
	Summary TaskSummary `json:"summary"`
}

// InferTasks treats each project worked on during a day as one task.
func InferTasks(sessions []SessionActivity, days int, now time.Time) *TaskInsights {
	type key struct{ date, project string }
	groups := map[key][]SessionActivity{}
	var order []key
	for _, s := range recent(sessions, days, now) {
		k := key{s.Date, s.Project}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], s)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].date != order[j].date {
			return order[i].date > order[j].date
		}
		return order[i].project < order[j].project
	})

	out := &TaskInsights{Period: fmt.Sprintf("Last %d days", days), Tasks: []Task{}}
	for _, k := range order {
		var minutes float64
		files := newOrderedSet()
		for _, s := range groups[k] {
			minutes += s.Minutes()
			for _, op := range s.Operations {
				if op.FilePath != "" {
					files.add(baseName(op.FilePath))
				}
			}
		}
		name := strings.ReplaceAll(k.project, "-", "/")
		name = name[strings.LastIndex(name, "/")+1:]

		task := Task{
			ID:            fmt.Sprintf("task-%s-%s", k.date, truncateRunes(k.project, 8)),
			Name:          "Work on " + name,
			InferredFrom:  "project",
			SessionCount:  len(groups[k]),
			TotalMinutes:  int(math.Round(minutes)),
			FilesInvolved: files.items,
			DateRange:     DateRange{Start: k.date, End: k.date},
		}
		out.Summary.TotalTimeMinutes += task.TotalMinutes
		out.Tasks = append(out.Tasks, task)
	}

	out.Summary.TotalTasks = len(out.Tasks)
	if out.Summary.TotalTasks > 0 {
		out.Summary.AvgMinutesPerTask = int(math.Round(float64(out.Summary.TotalTimeMinutes) / float64(out.Summary.TotalTasks)))
	}
	if len(out.Tasks) > taskLimit {
		out.Tasks = out.Tasks[:taskLimit]
	}
	return out
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type WeekdayCount struct {
	Day        string `json:"day"`
	Operations int    `json:"operations"`
}

type FileCount struct {
	File  string `json:"file"`
	Edits int    `json:"edits"`
}

type Velocity struct {
	FilesModifiedByDay   []DayCount `json:"filesModifiedByDay"`
	LinesChangedEstimate int        `json:"linesChangedEstimate"`
	TotalCodeOperations  int        `json:"totalCodeOperations"`
	TotalWrites          int        `json:"totalWrites"`
	TotalEdits           int        `json:"totalEdits"`
	AverageOpsPerDay     float64    `json:"averageOpsPerDay"`
}

type Efficiency struct {
	PeakHoursHeatmap [7][24]int     `json:"peakHoursHeatmap"`
	SessionDurations map[string]int `json:"sessionDurations"`
	OpsPerSession    float64        `json:"opsPerSession"`
}

type Patterns struct {
	ProductivityByDayOfWeek []WeekdayCount `json:"productivityByDayOfWeek"`
	CurrentStreak           int            `json:"currentStreak"`
	LongestStreak           int            `json:"longestStreak"`
	FocusSessions           int            `json:"focusSessions"`
	MostEditedFiles         []FileCount    `json:"mostEditedFiles"`
	TotalActiveDays         int            `json:"totalActiveDays"`
}

type ToolUsage struct {
	Distribution   map[string]int `json:"distribution"`
	ReadWriteRatio float64        `json:"readWriteRatio"`
}

type ProductivitySummary struct {
	TotalActiveDays    int    `json:"totalActiveDays"`
	MostProductiveDay  string `json:"mostProductiveDay"`
	MostProductiveHour string `json:"mostProductiveHour"`
}

type Productivity struct {
	Velocity   Velocity            `json:"velocity"`
	Efficiency Efficiency          `json:"efficiency"`
	Patterns   Patterns            `json:"patterns"`
	ToolUsage  ToolUsage           `json:"toolUsage"`
	Summary    ProductivitySummary `json:"summary"`
	ComputedAt time.Time           `json:"computedAt"`
	Message    string              `json:"message,omitempty"`
}

// ComputeProductivity measures code output over all sessions. Active days are days
// with at least one write or edit; the heatmap rows start on Monday and use
// UTC hours.
func ComputeProductivity(sessions []SessionActivity, now time.Time) *Productivity {
	now = now.UTC()
	out := &Productivity{
		Efficiency: Efficiency{SessionDurations: map[string]int{}},
		ToolUsage:  ToolUsage{Distribution: map[string]int{}},
		Summary:    ProductivitySummary{MostProductiveDay: "N/A", MostProductiveHour: "N/A"},
		ComputedAt: now,
	}

	filesByDay := map[string]map[string]bool{}
	edits := map[string]int{}
	var weekday [7]int
	reads := 0
	for _, s := range sessions {
		out.Efficiency.SessionDurations[durationBucket(s.Minutes())]++
		if s.Minutes() >= focusSessionMinutes {
			out.Patterns.FocusSessions++
		}
		for _, op := range s.Operations {
			if op.Type != "" {
				out.ToolUsage.Distribution[strings.ToUpper(op.Type[:1])+op.Type[1:]]++
			}
			if !op.At.IsZero() {
				day := mondayFirst(op.At.UTC().Weekday())
				out.Efficiency.PeakHoursHeatmap[day][op.At.UTC().Hour()]++
			}

			switch op.Type {
			case OpRead:
				reads++
				continue
			case OpWrite:
				out.Velocity.TotalWrites++
				if op.Content != "" {
					out.Velocity.LinesChangedEstimate += strings.Count(op.Content, "\n") + 1
				}
			case OpEdit:
				out.Velocity.TotalEdits++
				if op.FilePath != "" {
					edits[op.FilePath]++
				}
			default:
				continue
			}
			if filesByDay[s.Date] == nil {
				filesByDay[s.Date] = map[string]bool{}
			}
			if op.FilePath != "" {
				filesByDay[s.Date][op.FilePath] = true
			}
			if !op.At.IsZero() {
				weekday[mondayFirst(op.At.UTC().Weekday())]++
			}
		}
	}

	var dates []string
	for d := range filesByDay {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	out.Velocity.FilesModifiedByDay = []DayCount{}
	for _, d := range dates {
		out.Velocity.FilesModifiedByDay = append(out.Velocity.FilesModifiedByDay, DayCount{Date: d, Count: len(filesByDay[d])})
	}
	if len(out.Velocity.FilesModifiedByDay) > productivityDays {
		out.Velocity.FilesModifiedByDay = out.Velocity.FilesModifiedByDay[len(out.Velocity.FilesModifiedByDay)-productivityDays:]
	}

	codeOps := out.Velocity.TotalWrites + out.Velocity.TotalEdits
	out.Velocity.TotalCodeOperations = codeOps
	if len(dates) > 0 {
		out.Velocity.AverageOpsPerDay = round1(float64(codeOps) / float64(len(dates)))
	}
	if len(sessions) > 0 {
		out.Efficiency.OpsPerSession = round1(float64(codeOps) / float64(len(sessions)))
	}
	if codeOps > 0 {
		out.ToolUsage.ReadWriteRatio = round1(float64(reads) / float64(codeOps))
	}

	out.Patterns.ProductivityByDayOfWeek = make([]WeekdayCount, 0, 7)
	best := -1
	for i, n := range weekday {
		out.Patterns.ProductivityByDayOfWeek = append(out.Patterns.ProductivityByDayOfWeek, WeekdayCount{Day: weekdayName(i), Operations: n})
		if n > 0 && (best < 0 || n > weekday[best]) {
			best = i
		}
	}
	if best >= 0 {
		out.Summary.MostProductiveDay = weekdayName(best)
	}

	var hours [24]int
	total := 0
	for _, row := range out.Efficiency.PeakHoursHeatmap {
		for h, n := range row {
			hours[h] += n
			total += n
		}
	}
	if total > 0 {
		peak := 0
		for h, n := range hours {
			if n > hours[peak] {
				peak = h
			}
		}
		out.Summary.MostProductiveHour = fmt.Sprintf("%d:00", peak)
	}

	out.Patterns.MostEditedFiles = mostEdited(edits)
	out.Patterns.CurrentStreak, out.Patterns.LongestStreak = streaks(dates, now)
	out.Patterns.TotalActiveDays = len(dates)
	out.Summary.TotalActiveDays = len(dates)
	return out
}

func mostEdited(edits map[string]int) []FileCount {
	files := make([]FileCount, 0, len(edits))
	for path, n := range edits {
		files = append(files, FileCount{File: path, Edits: n})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Edits != files[j].Edits {
			return files[i].Edits > files[j].Edits
		}
		return files[i].File < files[j].File
	})
	if len(files) > mostEditedLimit {
		files = files[:mostEditedLimit]
	}
	return files
}

// streaks takes ascending dates. The current streak counts only when it
// reaches today or yesterday.
func streaks(dates []string, now time.Time) (current, longest int) {
	run := 0
	var prev time.Time
	for _, d := range dates {
		day, err := time.Parse(DateLayout, d)
		if err != nil {
			continue
		}
		if !prev.IsZero() && day.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		prev = day
		if run > longest {
			longest = run
		}
	}
	if prev.IsZero() {
		return 0, longest
	}
	today, _ := time.Parse(DateLayout, now.Format(DateLayout))
	if today.Sub(prev) <= 24*time.Hour {
		current = run
	}
	return current, longest
}

func durationBucket(minutes float64) string {
	switch {
	case minutes < 15:
		return "under15m"
	case minutes < 60:
		return "15to60m"
	case minutes < 180:
		return "1to3h"
	}
	return "over3h"
}

func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func weekdayName(mondayIndex int) string {
	return time.Weekday((mondayIndex + 1) % 7).String()
}

func recent(sessions []SessionActivity, days int, now time.Time) []SessionActivity {
	cutoff := now.UTC().AddDate(0, 0, -days).Format(DateLayout)
	var out []SessionActivity
	for _, s := range sessions {
		if s.Date >= cutoff {
			out = append(out, s)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func baseName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]bool{}, items: []string{}}
}

func (s *orderedSet) add(v string) {
	if !s.seen[v] {
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}
