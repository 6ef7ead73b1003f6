package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"claudebuddy-be/internal/config"
	"claudebuddy-be/internal/dto"
	"claudebuddy-be/internal/pkg/logger"
	"claudebuddy-be/internal/repository/contract"
	"claudebuddy-be/internal/repository/memory"
	"claudebuddy-be/internal/repository/specification"
	"claudebuddy-be/pkg/research"
)

const (
	researchLogModule = "RESEARCH_SERVICE"

	defaultReportLimit = 20
)

type IResearchService interface {
	Start(ctx context.Context, req *dto.StartResearchRequest) (*dto.StartResearchResponse, error)
	Status(ctx context.Context, taskID string) (*dto.ResearchStatusResponse, error)
	Result(ctx context.Context, taskID string) (*dto.ResearchResultResponse, error)
	Stream(ctx context.Context, taskID string, from int) (<-chan research.Event, error)
	Cancel(ctx context.Context, taskID string) (*dto.CancelResearchResponse, error)
	List(ctx context.Context) (*dto.ResearchTaskListResponse, error)
	Reports(ctx context.Context, req *dto.ListReportsRequest) (*dto.ResearchReportListResponse, error)
	Shutdown(ctx context.Context) error
}

type researchService struct {
	engine  *research.Engine
	tasks   *memory.TaskRepository
	reports contract.ResearchReportRepository // nil without a database
	cfg     config.ResearchConfig
	logger  logger.ILogger

	// Sessions run on this context, not the request's, so they outlive the
	// HTTP call that started them.
	runCtx  context.Context
	stopRun context.CancelFunc
	running sync.WaitGroup

	// serialises the active-count check with registration
	startMu sync.Mutex
}

func NewResearchService(
	engine *research.Engine,
	tasks *memory.TaskRepository,
	reports contract.ResearchReportRepository,
	cfg config.ResearchConfig,
	log logger.ILogger,
) IResearchService {
	ctx, cancel := context.WithCancel(context.Background())
	return &researchService{
		engine:  engine,
		tasks:   tasks,
		reports: reports,
		cfg:     cfg,
		logger:  log,
		runCtx:  ctx,
		stopRun: cancel,
	}
}

func (s *researchService) Start(ctx context.Context, req *dto.StartResearchRequest) (*dto.StartResearchResponse, error) {
	// Missing credentials are reported before anything is registered.
	if err := s.engine.Ready(); err != nil {
		return nil, err
	}

	params := research.SessionParams{
		Query:          req.Query,
		TargetLocation: req.TargetProject,
		RoundLimit:     req.MaxSearches,
		SearchDepth:    req.SearchDepth,
	}
	if params.RoundLimit == 0 {
		params.RoundLimit = s.cfg.DefaultMaxSearches
	}
	if params.SearchDepth == "" {
		params.SearchDepth = research.DepthAdvanced
	}

	session, err := research.NewSession(params)
	if err != nil {
		return nil, err
	}

	s.startMu.Lock()
	if limit := s.cfg.MaxActiveTasks; limit > 0 && s.tasks.ActiveCount() >= limit {
		s.startMu.Unlock()
		return nil, fmt.Errorf("%w: %d tasks already running", research.ErrTooManyTasks, limit)
	}
	s.tasks.Save(session)
	s.running.Add(1)
	s.startMu.Unlock()

	s.logger.Info(researchLogModule, "Research task registered", map[string]interface{}{
		"task_id":      session.ID(),
		"max_searches": session.RoundLimit(),
		"target":       req.TargetProject,
	})

	go func() {
		defer s.running.Done()
		s.engine.Run(s.runCtx, session)
		s.tasks.Expire(session.ID())
	}()

	return &dto.StartResearchResponse{
		TaskId:  session.ID(),
		Status:  string(research.PhasePending),
		Message: "Research task started",
	}, nil
}

func (s *researchService) lookup(taskID string) (*research.Session, error) {
	session, ok := s.tasks.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", research.ErrNotFound, taskID)
	}
	return session, nil
}

func (s *researchService) Status(ctx context.Context, taskID string) (*dto.ResearchStatusResponse, error) {
	session, err := s.lookup(taskID)
	if err != nil {
		return nil, err
	}
	res := dto.NewResearchStatusResponse(session.Snapshot())
	return &res, nil
}

func (s *researchService) Result(ctx context.Context, taskID string) (*dto.ResearchResultResponse, error) {
	session, ok := s.tasks.Get(taskID)
	if !ok {
		return s.archivedResult(ctx, taskID)
	}

	snap := session.Snapshot()
	if !snap.Phase.Terminal() {
		return nil, fmt.Errorf("%w: task is still %s", research.ErrInvalidState, snap.Phase)
	}

	return &dto.ResearchResultResponse{
		TaskId:      snap.ID,
		Status:      string(snap.Phase),
		Query:       snap.Query,
		Summary:     snap.Summary,
		Findings:    snap.Findings,
		SearchCount: snap.RoundCount,
		SavedPath:   snap.SavedLocation,
		Error:       snap.ErrorDetail,
		Notice:      snap.Notice,
		StartedAt:   snap.StartedAt,
		CompletedAt: snap.CompletedAt,
	}, nil
}

func (s *researchService) archivedResult(ctx context.Context, taskID string) (*dto.ResearchResultResponse, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("%w: %s", research.ErrNotFound, taskID)
	}

	report, err := s.reports.FindOne(ctx, specification.ByTaskID{TaskID: taskID})
	if err != nil {
		return nil, fmt.Errorf("load archived report: %w", err)
	}
	if report == nil {
		return nil, fmt.Errorf("%w: %s", research.ErrNotFound, taskID)
	}

	return &dto.ResearchResultResponse{
		TaskId:      report.TaskId,
		Status:      string(report.Status),
		Query:       report.Query,
		Summary:     report.Summary,
		Findings:    report.Findings,
		SearchCount: report.RoundCount,
		SavedPath:   report.SavedPath,
		Error:       report.ErrorDetail,
		Notice:      report.Notice,
		StartedAt:   report.StartedAt,
		CompletedAt: report.CompletedAt,
		Archived:    true,
	}, nil
}

// Stream delivers events from index from onwards. The channel is closed after
// the terminal event or when ctx ends.
func (s *researchService) Stream(ctx context.Context, taskID string, from int) (<-chan research.Event, error) {
	session, err := s.lookup(taskID)
	if err != nil {
		return nil, err
	}
	if from < 0 {
		from = 0
	}

	out := make(chan research.Event, 16)
	go func() {
		defer close(out)
		log := session.Events()
		cursor := from
		for {
			batch, closed, err := log.Wait(ctx, cursor)
			if err != nil {
				return
			}
			for _, evt := range batch {
				select {
				case out <- evt:
					cursor = evt.Index + 1
				case <-ctx.Done():
					return
				}
			}
			if closed {
				return
			}
		}
	}()
	return out, nil
}

func (s *researchService) Cancel(ctx context.Context, taskID string) (*dto.CancelResearchResponse, error) {
	session, err := s.lookup(taskID)
	if err != nil {
		return nil, err
	}
	if err := session.RequestCancel(); err != nil {
		return nil, err
	}

	s.logger.Info(researchLogModule, "Cancellation requested", map[string]interface{}{"task_id": taskID})
	return &dto.CancelResearchResponse{
		TaskId:  taskID,
		Message: "Cancellation requested; the task stops at the next round boundary or before its report is saved",
	}, nil
}

func (s *researchService) List(ctx context.Context) (*dto.ResearchTaskListResponse, error) {
	sessions := s.tasks.All()
	snaps := make([]research.Snapshot, 0, len(sessions))
	for _, session := range sessions {
		snaps = append(snaps, session.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].StartedAt.After(snaps[j].StartedAt)
	})

	res := &dto.ResearchTaskListResponse{Tasks: make([]dto.ResearchStatusResponse, 0, len(snaps))}
	for _, snap := range snaps {
		res.Tasks = append(res.Tasks, dto.NewResearchStatusResponse(snap))
	}
	return res, nil
}

// Reports pages through the archive, newest first.
func (s *researchService) Reports(ctx context.Context, req *dto.ListReportsRequest) (*dto.ResearchReportListResponse, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("%w: report archive is not configured", research.ErrConfiguration)
	}

	var filters []specification.Specification
	if req.Status != "" {
		filters = append(filters, specification.ByStatus{Status: req.Status})
	}

	total, err := s.reports.Count(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("count archived reports: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultReportLimit
	}
	specs := append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: req.Offset},
	)
	reports, err := s.reports.FindAll(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("list archived reports: %w", err)
	}

	res := &dto.ResearchReportListResponse{
		Reports: make([]dto.ResearchReportSummary, 0, len(reports)),
		Total:   total,
	}
	for _, r := range reports {
		res.Reports = append(res.Reports, dto.ResearchReportSummary{
			Id:            r.Id.String(),
			TaskId:        r.TaskId,
			Query:         r.Query,
			Status:        string(r.Status),
			SearchCount:   r.RoundCount,
			FindingsCount: len(r.Findings),
			SavedPath:     r.SavedPath,
			StartedAt:     r.StartedAt,
			CompletedAt:   r.CompletedAt,
		})
	}
	return res, nil
}

// Shutdown interrupts running sessions and waits for their goroutines.
func (s *researchService) Shutdown(ctx context.Context) error {
	s.stopRun()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
