package memory

import (
	"time"

	"claudebuddy-be/pkg/research"

	"github.com/patrickmn/go-cache"
)

// TaskRepository is the registry of research sessions. Running sessions never
// expire; finished ones are kept for the configured TTL and then purged by
// the go-cache janitor.
type TaskRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewTaskRepository(ttl time.Duration) *TaskRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	cleanup := ttl / 6
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &TaskRepository{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func (r *TaskRepository) Save(session *research.Session) {
	r.cache.Set(session.ID(), session, cache.NoExpiration)
}

func (r *TaskRepository) Get(taskID string) (*research.Session, bool) {
	if x, found := r.cache.Get(taskID); found {
		return x.(*research.Session), true
	}
	return nil, false
}

// Expire starts the retention countdown for a finished session.
func (r *TaskRepository) Expire(taskID string) {
	if session, ok := r.Get(taskID); ok {
		r.cache.Set(taskID, session, r.ttl)
	}
}

func (r *TaskRepository) Delete(taskID string) {
	r.cache.Delete(taskID)
}

func (r *TaskRepository) All() []*research.Session {
	items := r.cache.Items()
	out := make([]*research.Session, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*research.Session))
	}
	return out
}

// ActiveCount counts sessions that have not reached a terminal phase.
func (r *TaskRepository) ActiveCount() int {
	n := 0
	for _, s := range r.All() {
		if !s.Phase().Terminal() {
			n++
		}
	}
	return n
}
