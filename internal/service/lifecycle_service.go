package service

import (
	"context"
	"encoding/json"
	"time"

	"claudebuddy-be/internal/mapper"
	"claudebuddy-be/internal/pkg/logger"
	"claudebuddy-be/internal/repository/contract"
	"claudebuddy-be/internal/repository/memory"
	"claudebuddy-be/pkg/events"
	"claudebuddy-be/pkg/research"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	lifecycleLogModule = "LIFECYCLE"
	LifecycleTopic     = "research.lifecycle"

	publishTimeout = 5 * time.Second

	// events held back per task while waiting for a gap to fill
	maxPendingEvents = 256
)

// EventPublisher forwards lifecycle events to an external bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Notifier pushes lifecycle events to connected dashboards.
type Notifier interface {
	Notify(ctx context.Context, taskID string, payload interface{})
}

// ILifecycleService moves engine events off the engine goroutine. Hook
// publishes onto an in-process topic; Consume fans each message out to the
// dashboard notifier, the external publisher and the report archive.
type ILifecycleService interface {
	Hook() research.EventHook
	Consume(ctx context.Context) error
}

type lifecycleService struct {
	pubSub    *gochannel.GoChannel
	topic     string
	tasks     *memory.TaskRepository
	reports   contract.ResearchReportRepository
	publisher EventPublisher
	notifier  Notifier
	mapper    *mapper.ResearchReportMapper
	logger    logger.ILogger

	// Only touched by the consume goroutine.
	cursors    map[string]*taskCursor
	maxPending int
}

// taskCursor restores emission order for one task. The in-process bus hands
// each message to its own goroutine, so arrival order is not guaranteed.
type taskCursor struct {
	next    int
	pending map[int]events.ResearchEvent
}

// NewLifecycleService wires the consumers. reports, publisher and notifier are
// optional and skipped when nil.
func NewLifecycleService(
	pubSub *gochannel.GoChannel,
	tasks *memory.TaskRepository,
	reports contract.ResearchReportRepository,
	publisher EventPublisher,
	notifier Notifier,
	log logger.ILogger,
) ILifecycleService {
	return &lifecycleService{
		pubSub:     pubSub,
		topic:      LifecycleTopic,
		tasks:      tasks,
		reports:    reports,
		publisher:  publisher,
		notifier:   notifier,
		mapper:     mapper.NewResearchReportMapper(),
		logger:     log,
		cursors:    make(map[string]*taskCursor),
		maxPending: maxPendingEvents,
	}
}

func (ls *lifecycleService) Hook() research.EventHook {
	return func(snap research.Snapshot, evt research.Event) {
		payload, err := json.Marshal(events.ResearchEvent{
			TaskID:      snap.ID,
			Status:      string(snap.Phase),
			Query:       snap.Query,
			SearchCount: snap.RoundCount,
			Findings:    snap.FindingsCount,
			Index:       evt.Index,
			Kind:        string(evt.Kind),
			Data:        evt.Payload,
			EmittedAt:   evt.EmittedAt,
		})
		if err != nil {
			ls.logger.Error(lifecycleLogModule, "Failed to encode lifecycle event", map[string]interface{}{
				"task_id": snap.ID,
				"error":   err.Error(),
			})
			return
		}

		if err := ls.pubSub.Publish(ls.topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
			ls.logger.Warn(lifecycleLogModule, "Failed to publish lifecycle event", map[string]interface{}{
				"task_id": snap.ID,
				"error":   err.Error(),
			})
		}
	}
}

func (ls *lifecycleService) Consume(ctx context.Context) error {
	messages, err := ls.pubSub.Subscribe(ctx, ls.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ls.processMessage(ctx, msg)
		}
	}()
	return nil
}

func (ls *lifecycleService) processMessage(ctx context.Context, msg *message.Message) {
	// Every outcome is acked; downstream failures are logged, not retried.
	defer msg.Ack()

	var evt events.ResearchEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		ls.logger.Error(lifecycleLogModule, "Failed to decode lifecycle event", map[string]interface{}{"error": err.Error()})
		return
	}

	for _, ordered := range ls.sequence(evt) {
		ls.dispatch(ctx, ordered)
	}
}

// sequence buffers evt and returns every event that is now next in line for
// its task, in index order.
func (ls *lifecycleService) sequence(evt events.ResearchEvent) []events.ResearchEvent {
	cur, ok := ls.cursors[evt.TaskID]
	if !ok {
		cur = &taskCursor{pending: make(map[int]events.ResearchEvent)}
		ls.cursors[evt.TaskID] = cur
	}
	if evt.Index < cur.next {
		ls.logger.Debug(lifecycleLogModule, "Dropping duplicate lifecycle event", map[string]interface{}{
			"task_id": evt.TaskID,
			"index":   evt.Index,
		})
		return nil
	}
	cur.pending[evt.Index] = evt

	if len(cur.pending) > ls.maxPending {
		lowest := -1
		for idx := range cur.pending {
			if lowest < 0 || idx < lowest {
				lowest = idx
			}
		}
		ls.logger.Warn(lifecycleLogModule, "Skipping missing lifecycle events", map[string]interface{}{
			"task_id": evt.TaskID,
			"from":    cur.next,
			"to":      lowest,
		})
		cur.next = lowest
	}

	var ready []events.ResearchEvent
	for {
		next, ok := cur.pending[cur.next]
		if !ok {
			break
		}
		delete(cur.pending, cur.next)
		cur.next++
		ready = append(ready, next)
		if next.Terminal() {
			delete(ls.cursors, evt.TaskID)
			break
		}
	}
	return ready
}

func (ls *lifecycleService) dispatch(ctx context.Context, evt events.ResearchEvent) {
	details := map[string]interface{}{
		"task_id": evt.TaskID,
		"type":    evt.Kind,
		"status":  evt.Status,
		"index":   evt.Index,
	}
	if evt.Terminal() {
		ls.logger.Info(lifecycleLogModule, "Research task finished", details)
	} else {
		ls.logger.Debug(lifecycleLogModule, "Research task event", details)
	}

	if ls.notifier != nil {
		ls.notifier.Notify(ctx, evt.TaskID, map[string]interface{}{
			"type": "research_event",
			"data": evt,
		})
	}

	if ls.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := ls.publisher.Publish(pubCtx, evt)
		cancel()
		if err != nil {
			ls.logger.Warn(lifecycleLogModule, "Failed to forward lifecycle event", map[string]interface{}{
				"task_id": evt.TaskID,
				"error":   err.Error(),
			})
		}
	}

	if evt.Terminal() {
		ls.archive(ctx, evt.TaskID)
	}
}

func (ls *lifecycleService) archive(ctx context.Context, taskID string) {
	if ls.reports == nil {
		return
	}
	session, ok := ls.tasks.Get(taskID)
	if !ok {
		ls.logger.Warn(lifecycleLogModule, "Finished task left the registry before archiving", map[string]interface{}{"task_id": taskID})
		return
	}

	report := ls.mapper.FromSnapshot(session.Snapshot())
	if err := ls.reports.Create(ctx, report); err != nil {
		ls.logger.Error(lifecycleLogModule, "Failed to archive research report", map[string]interface{}{
			"task_id": taskID,
			"error":   err.Error(),
		})
		return
	}
	ls.logger.Info(lifecycleLogModule, "Research report archived", map[string]interface{}{
		"task_id":   taskID,
		"report_id": report.Id,
	})
}
