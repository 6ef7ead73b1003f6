package usage

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func edits(path string, n int, when time.Time) []Operation {
	ops := make([]Operation, n)
	for i := range ops {
		ops[i] = Operation{Type: OpEdit, FilePath: path, At: when}
	}
	return ops
}

func bash(when time.Time, cmds ...string) []Operation {
	ops := make([]Operation, 0, len(cmds))
	for _, c := range cmds {
		ops = append(ops, Operation{Type: OpBash, Command: c, At: when})
	}
	return ops
}

func activity(id, project, start, end string, ops ...[]Operation) SessionActivity {
	s := SessionActivity{ID: id, Project: project, Start: at(start), End: at(end)}
	s.Date = s.Start.UTC().Format(DateLayout)
	for _, group := range ops {
		s.Operations = append(s.Operations, group...)
	}
	return s
}

func TestReader_Activity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "projects", "-p", "one.jsonl"),
		line(t, "user", "2025-07-01T23:50:00Z", "go"),
		line(t, "assistant", "2025-07-02T00:20:00Z", []interface{}{
			toolUse("Write", map[string]interface{}{"file_path": "/p/a.go", "content": "x\ny"}),
			toolUse("Glob", map[string]interface{}{"pattern": "**/*.go"}),
			toolUse("TodoWrite", map[string]interface{}{}),
		}),
	)
	writeFile(t, filepath.Join(dir, "projects", "-p", "untimed.jsonl"), `{"type":"summary"}`)

	sessions, err := NewReader(dir).Activity(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1, "sessions without timestamps are skipped")

	s := sessions[0]
	assert.Equal(t, "one", s.ID)
	assert.Equal(t, "-p", s.Project)
	assert.Equal(t, "2025-07-01", s.Date, "dated by start")
	assert.InDelta(t, 30, s.Minutes(), 1e-9)
	require.Len(t, s.Operations, 3)
	assert.Equal(t, Operation{Type: OpWrite, FilePath: "/p/a.go", Content: "x\ny", At: at("2025-07-02T00:20:00Z")}, s.Operations[0])
	assert.Equal(t, "**/*.go", s.Operations[1].Pattern)
	assert.Equal(t, "todowrite", s.Operations[2].Type)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewReader(dir).Activity(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	none, err := NewReader(t.TempDir()).Activity(context.Background())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDaily(t *testing.T) {
	now := at("2025-07-10T12:00:00Z")
	day := at("2025-07-09T09:00:00Z")
	sessions := []SessionActivity{
		activity("aaaaaaaa-1111", "-p", "2025-07-09T09:00:00Z", "2025-07-09T09:45:00Z",
			edits("/src/app.go", 2, day),
			[]Operation{{Type: OpWrite, FilePath: "/src/new.go", At: day}, {Type: OpRead, FilePath: "/src/x.go"}},
			bash(day, "go test"),
		),
		activity("bbbbbbbb-2222", "-p", "2025-07-09T10:00:00Z", "2025-07-09T15:00:00Z"),
		activity("cccccccc", "-q", "2025-07-01T10:00:00Z", "2025-07-01T10:10:00Z"),
		activity("dddddddd", "-q", "2025-07-10T08:00:00Z", "2025-07-10T08:10:00Z"),
	}

	d, err := Daily(sessions, "2025-07-09", now)
	require.NoError(t, err)
	assert.Equal(t, "Yesterday (Jul 09)", d.DisplayDate)
	assert.Equal(t, 2, d.Summary.SessionCount)
	assert.Equal(t, 45+180, d.Summary.ActiveMinutes, "long sessions are capped at three hours")
	assert.Equal(t, []string{"app.go", "new.go"}, d.Summary.FilesModified)
	assert.Equal(t, DailyOperationCounts{Writes: 1, Edits: 2, Bash: 1, Total: 4}, d.Summary.OperationCounts)
	require.Len(t, d.Summary.Topics, 1, "sessions without code operations have no topic")
	assert.Equal(t, DailyTopic{Topic: "Session aaaaaaaa", OperationCount: 4, FilesInvolved: []string{"app.go", "new.go"}}, d.Summary.Topics[0])
	require.NotNil(t, d.Navigation.PreviousDate)
	require.NotNil(t, d.Navigation.NextDate)
	assert.Equal(t, "2025-07-01", *d.Navigation.PreviousDate)
	assert.Equal(t, "2025-07-10", *d.Navigation.NextDate)

	today, err := Daily(sessions, "", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-10", today.Date)
	assert.Equal(t, "Today (Jul 10)", today.DisplayDate)
	assert.False(t, today.Navigation.HasNext)
	assert.Nil(t, today.Navigation.NextDate)

	quiet, err := Daily(sessions, "2025-06-15", now)
	require.NoError(t, err)
	assert.Equal(t, "Sun, Jun 15", quiet.DisplayDate)
	assert.Zero(t, quiet.Summary.SessionCount)
	assert.NotNil(t, quiet.Summary.FilesModified)
	assert.True(t, quiet.Navigation.HasPrevious, "inactive days link to the latest active day")
	assert.Equal(t, "2025-07-10", *quiet.Navigation.PreviousDate)

	_, err = Daily(sessions, "07/09/2025", now)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFindErrorPatterns(t *testing.T) {
	now := at("2025-07-10T12:00:00Z")
	when := at("2025-07-08T10:00:00Z")

	churn := activity("churn", "-p", "2025-07-08T10:00:00Z", "2025-07-08T10:20:00Z",
		edits("/src/a.go", 12, when),
		edits("/src/b.go", 7, when),
		edits("/src/c.go", 4, when),
		[]Operation{{Type: OpWrite, FilePath: "/src/a.go", At: when}},
	)
	runs := activity("runs", "-p", "2025-07-09T10:00:00Z", "2025-07-09T12:00:00Z",
		edits("/src/d.go", 5, when),
		bash(when, "npm test", "npm run lint", "npm test -- --watch", "go build", "go vet", "ls", "ls -la", "ls", "ls"),
	)
	old := activity("old", "-p", "2025-06-01T10:00:00Z", "2025-06-01T10:05:00Z", edits("/src/old.go", 20, when))

	res := FindErrorPatterns([]SessionActivity{churn, runs, old}, 7, now)
	assert.Equal(t, "Last 7 days", res.Period)

	files := res.Patterns.StruggleFiles
	require.Len(t, files, 3, "old sessions and files under five edits are ignored")
	assert.Equal(t, StruggleFile{FileName: "a.go", FilePath: "/src/a.go", EditCount: 12, Severity: "high", Date: "2025-07-08", SessionID: "churn"}, files[0])
	assert.Equal(t, "medium", files[1].Severity)
	assert.Equal(t, "d.go", files[2].FileName)
	assert.Equal(t, "low", files[2].Severity)

	cmds := res.Patterns.RepeatedCommands
	require.Len(t, cmds, 2)
	assert.Equal(t, RepeatedCommand{Command: "ls", Occurrences: 4, Note: "Ran 4 times in succession", Date: "2025-07-09"}, cmds[0])
	assert.Equal(t, "npm", cmds[1].Command)
	assert.Equal(t, 3, cmds[1].Occurrences)

	thrash := res.Patterns.ThrashingSessions
	require.Len(t, thrash, 1)
	assert.Equal(t, ThrashingSession{OperationCount: 24, UniqueFilesCount: 3, Duration: 20, Date: "2025-07-08", SessionID: "churn",
		Files: []string{"a.go", "b.go", "c.go"}}, thrash[0])

	empty := FindErrorPatterns(nil, 30, now)
	assert.NotNil(t, empty.Patterns.StruggleFiles)
	assert.NotNil(t, empty.Patterns.RepeatedCommands)
	assert.NotNil(t, empty.Patterns.ThrashingSessions)
}

func TestInferTasks(t *testing.T) {
	now := at("2025-07-10T12:00:00Z")
	when := at("2025-07-09T10:00:00Z")
	sessions := []SessionActivity{
		activity("s1", "-Users-me-shop", "2025-07-09T10:00:00Z", "2025-07-09T10:30:00Z", edits("/shop/cart.go", 1, when)),
		activity("s2", "-Users-me-shop", "2025-07-09T14:00:00Z", "2025-07-09T14:15:00Z",
			[]Operation{{Type: OpRead, FilePath: "/shop/cart.go"}, {Type: OpRead, FilePath: "/shop/api.go"}}),
		activity("s3", "-Users-me-blog", "2025-07-09T09:00:00Z", "2025-07-09T09:10:00Z"),
		activity("s4", "-Users-me-shop", "2025-07-05T09:00:00Z", "2025-07-05T09:20:00Z"),
		activity("s5", "-Users-me-shop", "2025-05-01T09:00:00Z", "2025-05-01T09:20:00Z"),
	}

	res := InferTasks(sessions, 30, now)
	assert.Equal(t, "Last 30 days", res.Period)
	require.Len(t, res.Tasks, 3)

	assert.Equal(t, Task{
		ID:            "task-2025-07-09--Users-m",
		Name:          "Work on blog",
		InferredFrom:  "project",
		SessionCount:  1,
		TotalMinutes:  10,
		FilesInvolved: []string{},
		DateRange:     DateRange{Start: "2025-07-09", End: "2025-07-09"},
	}, res.Tasks[0], "same day tasks are ordered by project")
	assert.Equal(t, "Work on shop", res.Tasks[1].Name)
	assert.Equal(t, 2, res.Tasks[1].SessionCount)
	assert.Equal(t, 45, res.Tasks[1].TotalMinutes)
	assert.Equal(t, []string{"cart.go", "api.go"}, res.Tasks[1].FilesInvolved)
	assert.Equal(t, "2025-07-05", res.Tasks[2].DateRange.Start)

	assert.Equal(t, TaskSummary{TotalTasks: 3, TotalTimeMinutes: 75, AvgMinutesPerTask: 25}, res.Summary)

	var many []SessionActivity
	for i := 0; i < 60; i++ {
		many = append(many, activity("m", "-proj-"+strconv.Itoa(i), "2025-07-09T09:00:00Z", "2025-07-09T09:01:00Z"))
	}
	capped := InferTasks(many, 30, now)
	assert.Len(t, capped.Tasks, 50)
	assert.Equal(t, 60, capped.Summary.TotalTasks)
}

func TestComputeProductivity(t *testing.T) {
	now := at("2025-07-10T12:00:00Z")
	mon := at("2025-07-07T09:15:00Z")
	tue := at("2025-07-08T14:30:00Z")
	wed := at("2025-07-09T14:45:00Z")

	sessions := []SessionActivity{
		activity("a", "-p", "2025-07-07T09:00:00Z", "2025-07-07T10:00:00Z",
			[]Operation{{Type: OpWrite, FilePath: "/p/a.go", Content: "1\n2\n3", At: mon}},
			edits("/p/a.go", 2, mon),
			[]Operation{{Type: OpRead, FilePath: "/p/b.go", At: mon}},
		),
		activity("b", "-p", "2025-07-08T14:00:00Z", "2025-07-08T14:10:00Z",
			edits("/p/b.go", 3, tue),
			bash(tue, "make"),
		),
		activity("c", "-p", "2025-07-09T14:00:00Z", "2025-07-09T18:00:00Z",
			[]Operation{{Type: OpWrite, FilePath: "/p/c.go", At: wed}},
		),
		activity("e", "-p", "2025-07-01T14:00:00Z", "2025-07-01T14:20:00Z",
			[]Operation{{Type: OpRead, FilePath: "/p/c.go", At: at("2025-07-01T14:05:00Z")}},
		),
	}

	p := ComputeProductivity(sessions, now)

	assert.Equal(t, 2, p.Velocity.TotalWrites)
	assert.Equal(t, 5, p.Velocity.TotalEdits)
	assert.Equal(t, 7, p.Velocity.TotalCodeOperations)
	assert.Equal(t, 3, p.Velocity.LinesChangedEstimate, "writes without content add no lines")
	assert.InDelta(t, 2.3, p.Velocity.AverageOpsPerDay, 1e-9)
	assert.Equal(t, []DayCount{{"2025-07-07", 1}, {"2025-07-08", 1}, {"2025-07-09", 1}}, p.Velocity.FilesModifiedByDay)

	assert.Equal(t, 4, p.Efficiency.PeakHoursHeatmap[0][9], "Monday row first")
	assert.Equal(t, 5, p.Efficiency.PeakHoursHeatmap[1][14], "reads and commands count toward the heatmap")
	assert.Equal(t, 1, p.Efficiency.PeakHoursHeatmap[2][14])
	assert.InDelta(t, 1.8, p.Efficiency.OpsPerSession, 1e-9)
	assert.Equal(t, map[string]int{"under15m": 1, "15to60m": 1, "1to3h": 1, "over3h": 1}, p.Efficiency.SessionDurations)

	assert.Equal(t, 3, p.Patterns.TotalActiveDays)
	assert.Equal(t, 3, p.Patterns.CurrentStreak, "streak reaching yesterday is still current")
	assert.Equal(t, 3, p.Patterns.LongestStreak)
	assert.Equal(t, 2, p.Patterns.FocusSessions)
	assert.Equal(t, []FileCount{{File: "/p/b.go", Edits: 3}, {File: "/p/a.go", Edits: 2}}, p.Patterns.MostEditedFiles)
	require.Len(t, p.Patterns.ProductivityByDayOfWeek, 7)
	assert.Equal(t, WeekdayCount{Day: "Monday", Operations: 3}, p.Patterns.ProductivityByDayOfWeek[0])
	assert.Equal(t, WeekdayCount{Day: "Sunday", Operations: 0}, p.Patterns.ProductivityByDayOfWeek[6])

	assert.Equal(t, map[string]int{"Write": 2, "Edit": 5, "Read": 2, "Bash": 1}, p.ToolUsage.Distribution)
	assert.InDelta(t, 0.3, p.ToolUsage.ReadWriteRatio, 1e-9)

	assert.Equal(t, "Monday", p.Summary.MostProductiveDay)
	assert.Equal(t, "14:00", p.Summary.MostProductiveHour)
	assert.Equal(t, now, p.ComputedAt)
}

func TestComputeProductivity_Empty(t *testing.T) {
	p := ComputeProductivity(nil, time.Now())
	assert.Equal(t, "N/A", p.Summary.MostProductiveDay)
	assert.Equal(t, "N/A", p.Summary.MostProductiveHour)
	assert.NotNil(t, p.Velocity.FilesModifiedByDay)
	assert.Zero(t, p.Velocity.AverageOpsPerDay)
	assert.Zero(t, p.Patterns.CurrentStreak)
	assert.Len(t, p.Patterns.ProductivityByDayOfWeek, 7)
}

func TestStreaks(t *testing.T) {
	now := at("2025-07-10T08:00:00Z")
	tests := []struct {
		name             string
		dates            []string
		current, longest int
	}{
		{name: "none", dates: nil},
		{name: "through today", dates: []string{"2025-07-08", "2025-07-09", "2025-07-10"}, current: 3, longest: 3},
		{name: "broken", dates: []string{"2025-07-01", "2025-07-02", "2025-07-03", "2025-07-09"}, current: 1, longest: 3},
		{name: "stale", dates: []string{"2025-07-01", "2025-07-02"}, current: 0, longest: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := streaks(tt.dates, now)
			assert.Equal(t, tt.current, current)
			assert.Equal(t, tt.longest, longest)
		})
	}
}
