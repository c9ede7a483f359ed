package cache

import (
	"context"
	"strings"
	"sync"

	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/types"
	"github.com/littl3hero/studentio-backend/internal/utils"
)

// PreparedExams holds at most one pre-generated exam per student. Take is
// destructive: the first reader wins and later reads miss.
type PreparedExams interface {
	Put(ctx context.Context, studentID string, exam types.Exam) error
	Take(ctx context.Context, studentID string) (types.Exam, bool)
}

// NewPreparedExams picks the backend: redis when REDIS_ADDR is set (so pop
// semantics hold across replicas), otherwise in-process memory.
func NewPreparedExams(log *logger.Logger) PreparedExams {
	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr != "" {
		return newRedisPreparedExams(addr, log)
	}
	return NewMemoryPreparedExams()
}

type memoryPreparedExams struct {
	mu    sync.Mutex
	items map[string]types.Exam
}

func NewMemoryPreparedExams() PreparedExams {
	return &memoryPreparedExams{items: map[string]types.Exam{}}
}

func (c *memoryPreparedExams) Put(_ context.Context, studentID string, exam types.Exam) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[studentID] = exam
	return nil
}

func (c *memoryPreparedExams) Take(_ context.Context, studentID string) (types.Exam, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exam, ok := c.items[studentID]
	if ok {
		delete(c.items, studentID)
	}
	return exam, ok
}
