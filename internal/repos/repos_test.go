package repos

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repos.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&types.Material{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func materialSet() []*types.Material {
	notes := "Start with the definition of a limit and one worked example."
	url := "https://www.youtube.com/results?search_query=limits"
	return []*types.Material{
		{Title: "Limits notes", Type: types.MaterialTypeNotes, Content: &notes},
		{Title: "Search youtube: limits", Type: types.MaterialTypeLink, URL: &url},
	}
}

func TestCreateIfNewSkipsDuplicatesOnSecondCall(t *testing.T) {
	repo := NewMaterialRepo(openTestDB(t), testLogger())
	ctx := context.Background()

	inserted, err := repo.CreateIfNew(ctx, nil, "s1", materialSet())
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("first call inserted %d, want 2", inserted)
	}

	// Generation is additive: an identical second batch inserts nothing.
	inserted, err = repo.CreateIfNew(ctx, nil, "s1", materialSet())
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("second call inserted %d, want 0", inserted)
	}

	stored, err := repo.ListByStudent(ctx, nil, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d materials, want 2", len(stored))
	}
}

func TestCreateIfNewDedupsWithinBatchButNotAcrossStudents(t *testing.T) {
	repo := NewMaterialRepo(openTestDB(t), testLogger())
	ctx := context.Background()

	notes := "The same content twice."
	batch := []*types.Material{
		{Title: "Dup", Type: types.MaterialTypeNotes, Content: &notes},
		{Title: "Dup", Type: types.MaterialTypeNotes, Content: &notes},
	}
	inserted, err := repo.CreateIfNew(ctx, nil, "s1", batch)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("in-batch duplicate inserted %d, want 1", inserted)
	}

	// The same tuple for another student is a fresh row.
	other := []*types.Material{{Title: "Dup", Type: types.MaterialTypeNotes, Content: &notes}}
	inserted, err = repo.CreateIfNew(ctx, nil, "s2", other)
	if err != nil {
		t.Fatalf("create for s2: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("other student inserted %d, want 1", inserted)
	}
}

func TestReposWithoutDatabaseReturnErrInvalidDB(t *testing.T) {
	ctx := context.Background()

	memRepo := NewStudentMemoryRepo(nil, testLogger())
	if _, err := memRepo.Create(ctx, nil, &types.StudentMemory{StudentID: "s1", Text: "t", ID: uuid.New()}); !errors.Is(err, gorm.ErrInvalidDB) {
		t.Fatalf("Create err = %v, want gorm.ErrInvalidDB", err)
	}
	if _, err := memRepo.SimilarByEmbedding(ctx, nil, "s1", pgvector.NewVector([]float32{0.1}), 3); !errors.Is(err, gorm.ErrInvalidDB) {
		t.Fatalf("SimilarByEmbedding err = %v", err)
	}
	if _, err := memRepo.SimilarByTrigram(ctx, nil, "s1", "limits", 3); !errors.Is(err, gorm.ErrInvalidDB) {
		t.Fatalf("SimilarByTrigram err = %v", err)
	}
	if _, err := memRepo.RecentTexts(ctx, nil, "s1", 3); !errors.Is(err, gorm.ErrInvalidDB) {
		t.Fatalf("RecentTexts err = %v", err)
	}
	if _, err := memRepo.Recent(ctx, nil, "s1", "", 3); !errors.Is(err, gorm.ErrInvalidDB) {
		t.Fatalf("Recent err = %v", err)
	}

	matRepo := NewMaterialRepo(nil, testLogger())
	if _, err := matRepo.ListByStudent(ctx, nil, "s1"); !errors.Is(err, gorm.ErrInvalidDB) {
		t.Fatalf("ListByStudent err = %v", err)
	}
	if _, err := matRepo.CreateIfNew(ctx, nil, "s1", materialSet()); !errors.Is(err, gorm.ErrInvalidDB) {
		t.Fatalf("CreateIfNew err = %v", err)
	}
}
