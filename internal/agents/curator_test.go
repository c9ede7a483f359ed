package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/littl3hero/studentio-backend/internal/platform/openai"
	"github.com/littl3hero/studentio-backend/internal/services"
	"github.com/littl3hero/studentio-backend/internal/types"
)

func TestAssessWithoutProviderBuildsHeuristicProfile(t *testing.T) {
	mem := &stubMemory{}
	c := NewCurator(nil, mem, testLogger())

	profile := c.Assess(context.Background(), "s1", "algebra", []string{"sign mistake"}, "beginner")

	if profile.Level != types.LevelBeginner {
		t.Fatalf("level = %q", profile.Level)
	}
	if len(profile.Weaknesses) != 1 || profile.Weaknesses[0] != "sign mistake" {
		t.Fatalf("weaknesses = %v", profile.Weaknesses)
	}
	if len(profile.Topics) != 1 || profile.Topics[0] != "algebra" {
		t.Fatalf("topics = %v", profile.Topics)
	}
	if profile.Strengths == nil {
		t.Fatal("strengths should be backfilled to an empty list")
	}
	// The sign tip and the beginner tip must both appear.
	if !strings.Contains(profile.Advice, "Watch the signs") {
		t.Fatalf("advice missing sign tip: %q", profile.Advice)
	}
	if !strings.Contains(profile.Advice, "small steps") {
		t.Fatalf("advice missing beginner tip: %q", profile.Advice)
	}
}

func TestAssessProviderFailureUsesFallbackAndTagsNotes(t *testing.T) {
	llm := &stubCompleter{errs: []error{&openai.APIError{Kind: openai.KindRateLimit, StatusCode: 429, Body: "slow down"}}}
	mem := &stubMemory{}
	c := NewCurator(llm, mem, testLogger())

	profile := c.Assess(context.Background(), "s1", "", nil, "wizard")

	if profile.Level != types.LevelBeginner {
		t.Fatalf("level = %q, want unknown level normalized to beginner", profile.Level)
	}
	if !strings.Contains(profile.Notes, "LLM unavailable") {
		t.Fatalf("notes = %q", profile.Notes)
	}
	if len(profile.Weaknesses) != 1 || profile.Weaknesses[0] != "unspecified errors" {
		t.Fatalf("weaknesses = %v", profile.Weaknesses)
	}
	if len(profile.Topics) != 1 || profile.Topics[0] != "basics" {
		t.Fatalf("topics = %v", profile.Topics)
	}
}

func TestAssessMalformedModelOutputTagsNotes(t *testing.T) {
	llm := &stubCompleter{responses: []string{"the student seems fine to me"}}
	c := NewCurator(llm, &stubMemory{}, testLogger())

	profile := c.Assess(context.Background(), "s1", "geometry", nil, "intermediate")
	if !strings.Contains(profile.Notes, "could not be parsed") {
		t.Fatalf("notes = %q", profile.Notes)
	}
	if !strings.Contains(profile.Advice, "cheat sheet") {
		t.Fatalf("advice missing intermediate tip: %q", profile.Advice)
	}
}

func TestAssessParsesModelProfileAndBackfills(t *testing.T) {
	llm := &stubCompleter{responses: []string{
		`{"profile": {"level": "expert", "strengths": ["persistence"], "weaknesses": [], "topics": ["series"], "notes": "solid", "advice": ""}}`,
	}}
	c := NewCurator(llm, &stubMemory{}, testLogger())

	profile := c.Assess(context.Background(), "s1", "series convergence", []string{"bracket slips"}, "advanced")

	if profile.Level != types.LevelAdvanced {
		t.Fatalf("level = %q, want input level to win over model output", profile.Level)
	}
	if len(profile.Strengths) != 1 || profile.Strengths[0] != "persistence" {
		t.Fatalf("strengths = %v", profile.Strengths)
	}
	if len(profile.Weaknesses) != 1 || profile.Weaknesses[0] != "bracket slips" {
		t.Fatalf("empty model weaknesses should backfill from reported errors: %v", profile.Weaknesses)
	}
	if !strings.Contains(profile.Advice, "brackets") {
		t.Fatalf("advice = %q, want bracket tip for empty model advice", profile.Advice)
	}
}

func TestAssessSavesSnapshotWithMeta(t *testing.T) {
	mem := &stubMemory{}
	c := NewCurator(nil, mem, testLogger())

	c.Assess(context.Background(), "s42", "limits", []string{"sign mistake"}, "beginner")

	if len(mem.saved) != 1 {
		t.Fatalf("saved %d records, want 1", len(mem.saved))
	}
	rec := mem.saved[0]
	if rec.StudentID != "s42" {
		t.Fatalf("student_id = %q", rec.StudentID)
	}
	if !strings.HasPrefix(rec.Text, "=== CURATOR ASSESSMENT ===") {
		t.Fatalf("snapshot text = %q", rec.Text)
	}
	if !strings.Contains(rec.Text, "profile: {") {
		t.Fatalf("snapshot text missing embedded profile: %q", rec.Text)
	}
	if rec.Meta["kind"] != services.KindCuratorAssessment {
		t.Fatalf("meta kind = %v", rec.Meta["kind"])
	}
	if rec.Meta["level"] != types.LevelBeginner {
		t.Fatalf("meta level = %v", rec.Meta["level"])
	}
}

func TestAssessSnapshotSaveFailureIsSwallowed(t *testing.T) {
	mem := &stubMemory{saveErr: context.DeadlineExceeded}
	c := NewCurator(nil, mem, testLogger())

	profile := c.Assess(context.Background(), "s1", "limits", nil, "beginner")
	if profile.Level != types.LevelBeginner {
		t.Fatalf("assessment should survive snapshot failure, got %+v", profile)
	}
}
