package agents

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// stubCompleter replays scripted responses in order. A nil error with an
// empty response list repeats the last response.
type stubCompleter struct {
	responses []string
	errs      []error
	calls     int

	lastSystem string
	lastUser   string
}

func (s *stubCompleter) Complete(_ context.Context, system, user string, _ float64, _ bool) (string, error) {
	idx := s.calls
	s.calls++
	s.lastSystem = system
	s.lastUser = user

	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	if len(s.responses) > 0 {
		return s.responses[len(s.responses)-1], nil
	}
	return "", nil
}

type savedRecord struct {
	StudentID string
	Text      string
	Meta      map[string]any
}

// stubMemory is an in-test MemoryService.
type stubMemory struct {
	snapshot  *types.StudentMemory
	retrieved []string
	recent    []*types.StudentMemory
	saved     []savedRecord
	saveErr   error
}

func (m *stubMemory) Save(_ context.Context, studentID, text string, meta map[string]any) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, savedRecord{StudentID: studentID, Text: text, Meta: meta})
	return nil
}

func (m *stubMemory) Retrieve(_ context.Context, _, _ string, k int) []string {
	if len(m.retrieved) > k {
		return m.retrieved[:k]
	}
	return m.retrieved
}

func (m *stubMemory) Recent(_ context.Context, _, _ string, limit int) ([]*types.StudentMemory, error) {
	if len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

func (m *stubMemory) LastCuratorSnapshot(_ context.Context, _ string) *types.StudentMemory {
	return m.snapshot
}

// stubMaterialRepo is an in-test MaterialRepo.
type stubMaterialRepo struct {
	existing  []*types.Material
	created   []*types.Material
	listErr   error
	createErr error
}

func (r *stubMaterialRepo) ListByStudent(_ context.Context, _ *gorm.DB, _ string) ([]*types.Material, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.existing, nil
}

func (r *stubMaterialRepo) CreateIfNew(_ context.Context, _ *gorm.DB, studentID string, materials []*types.Material) (int, error) {
	if r.createErr != nil {
		return 0, r.createErr
	}
	for _, m := range materials {
		m.StudentID = studentID
	}
	r.created = append(r.created, materials...)
	return len(materials), nil
}
