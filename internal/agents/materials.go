package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/littl3hero/studentio-backend/internal/config"
	"github.com/littl3hero/studentio-backend/internal/llmjson"
	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/repos"
	"github.com/littl3hero/studentio-backend/internal/services"
	"github.com/littl3hero/studentio-backend/internal/types"
)

const materialsSystemPrompt = `You prepare study materials for a student. Propose 4 to 6 materials.
Each material is one of:
- {"title": "...", "type": "notes", "content": "..."}
- {"title": "...", "type": "cheat_sheet", "content": "..."}
- {"title": "...", "type": "link", "platform": "youtube|khanacademy|wikipedia", "query": "..."}
Never include a url field; links are built from platform and query.
Respond with a single JSON object: {"materials": [...]}. No other keys, no prose.`

// MaterialsAgent generates typed study materials from the latest curator
// snapshot and stores them additively. Link URLs are always built
// server-side from a platform template; model-provided URLs are discarded.
type MaterialsAgent struct {
	llm          Completer
	memory       services.MemoryService
	materialRepo repos.MaterialRepo
	cfg          *config.Config
	log          *logger.Logger
}

func NewMaterialsAgent(llm Completer, memory services.MemoryService, materialRepo repos.MaterialRepo, cfg *config.Config, baseLog *logger.Logger) *MaterialsAgent {
	return &MaterialsAgent{
		llm:          llm,
		memory:       memory,
		materialRepo: materialRepo,
		cfg:          cfg,
		log:          baseLog.With("agent", "MaterialsAgent"),
	}
}

// GenerateAndSave produces materials for the student and persists the new
// ones. It never fails; the worst case is the deterministic fallback set.
func (a *MaterialsAgent) GenerateAndSave(ctx context.Context, studentID string, focusTopics, weaknesses []string) []*types.Material {
	snapshot := a.memory.LastCuratorSnapshot(ctx, studentID)
	hints := services.ExtractSnapshotHints(snapshot)

	topics := dedupeStrings(focusTopics, 5)
	if len(topics) == 0 {
		topics = hints.Topics
	}
	weak := dedupeStrings(weaknesses, 5)
	if len(weak) == 0 {
		weak = hints.Weaknesses
	}
	if len(topics) == 0 {
		topics = []string{"basics"}
	}

	materials := a.generateWithLLM(ctx, topics, weak)
	if len(materials) == 0 {
		materials = a.fallbackMaterials(topics, weak)
	}

	inserted, err := a.materialRepo.CreateIfNew(ctx, nil, studentID, materials)
	if err != nil {
		a.log.Warn("Materials save failed", "student_id", studentID, "error", err)
	} else {
		a.log.Debug("Materials saved", "student_id", studentID, "generated", len(materials), "inserted", inserted)
	}
	return materials
}

// List returns the stored materials. Read paths never fail the caller: any
// store error yields an empty list.
func (a *MaterialsAgent) List(ctx context.Context, studentID string) []*types.Material {
	materials, err := a.materialRepo.ListByStudent(ctx, nil, studentID)
	if err != nil {
		a.log.Warn("Materials list failed", "student_id", studentID, "error", err)
		return []*types.Material{}
	}
	return materials
}

type rawMaterial struct {
	Title    string `json:"title"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Platform string `json:"platform"`
	Query    string `json:"query"`
}

func (a *MaterialsAgent) generateWithLLM(ctx context.Context, topics, weaknesses []string) []*types.Material {
	if a.llm == nil {
		return nil
	}

	user := fmt.Sprintf("Topics: %s\nWeaknesses: %s", strings.Join(topics, ", "), strings.Join(weaknesses, ", "))
	out, err := a.llm.Complete(ctx, materialsSystemPrompt, user, 0.5, true)
	if err != nil {
		a.log.Warn("Materials LLM call failed, using fallback set", "error", err)
		return nil
	}

	var parsed struct {
		Materials []rawMaterial `json:"materials"`
	}
	if err := llmjson.Decode(out, &parsed); err != nil {
		a.log.Warn("Materials LLM output not decodable, using fallback set", "error", err)
		return nil
	}

	return a.sanitizeMaterials(parsed.Materials)
}

// sanitizeMaterials enforces the per-type field rules and drops items that
// cannot be repaired.
func (a *MaterialsAgent) sanitizeMaterials(raw []rawMaterial) []*types.Material {
	out := make([]*types.Material, 0, len(raw))
	for _, m := range raw {
		title := strings.TrimSpace(m.Title)
		if title == "" {
			title = "Untitled"
		}
		title = truncateRunes(title, 100)

		typ := strings.TrimSpace(strings.ToLower(m.Type))
		switch typ {
		case types.MaterialTypeNotes, types.MaterialTypeCheatSheet, types.MaterialTypeLink:
		default:
			typ = types.MaterialTypeNotes
		}

		mat := &types.Material{Title: title, Type: typ}
		if typ == types.MaterialTypeLink {
			query := strings.TrimSpace(m.Query)
			if query == "" {
				query = title
			}
			url := a.cfg.SearchURL(m.Platform, query)
			mat.URL = &url
		} else {
			content := strings.TrimSpace(m.Content)
			if content == "" {
				continue
			}
			mat.Content = &content
		}
		out = append(out, mat)
	}
	return out
}

// fallbackMaterials is the deterministic set: general notes, a mistakes
// cheat sheet, and one search link per configured fallback platform.
func (a *MaterialsAgent) fallbackMaterials(topics, weaknesses []string) []*types.Material {
	topicsText := strings.Join(topics, ", ")
	mainTopic := topics[0]

	notes := fmt.Sprintf(
		"Start with the fundamentals of %s. Work through one solved example per idea, then reproduce it without looking. Finish each session by writing down what was hardest.",
		topicsText,
	)

	cheatLines := []string{"Common mistakes to watch for:"}
	for _, weak := range firstN(weaknesses, 3) {
		cheatLines = append(cheatLines, fmt.Sprintf("- %s: slow down and verify that exact step.", weak))
	}
	if len(cheatLines) == 1 {
		cheatLines = append(cheatLines, "- Re-read the problem statement before answering.")
	}
	cheat := strings.Join(cheatLines, "\n")

	out := []*types.Material{
		{Title: truncateRunes(fmt.Sprintf("Getting started with %s", topicsText), 100), Type: types.MaterialTypeNotes, Content: &notes},
		{Title: "Common mistakes cheat sheet", Type: types.MaterialTypeCheatSheet, Content: &cheat},
	}
	for _, platform := range a.cfg.Search.FallbackPlatforms {
		url := a.cfg.SearchURL(platform, mainTopic)
		out = append(out, &types.Material{
			Title: truncateRunes(fmt.Sprintf("Search %s: %s", platform, mainTopic), 100),
			Type:  types.MaterialTypeLink,
			URL:   &url,
		})
	}
	return out
}
