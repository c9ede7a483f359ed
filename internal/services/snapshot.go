package services

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/littl3hero/studentio-backend/internal/types"
)

// SnapshotHints is what the Examiner and Materials agents read out of a
// curator assessment.
type SnapshotHints struct {
	Level      string
	Topics     []string
	Weaknesses []string
}

// Older assessments carried the profile only inside the text body.
var embeddedProfileRe = regexp.MustCompile(`(?is)profile:\s*(\{.*\})`)

// ExtractSnapshotHints reads level, topics and weaknesses from a snapshot
// record: structured meta first, then the legacy embedded-profile text shim.
// It is best-effort and yields empty hints rather than failing.
func ExtractSnapshotHints(rec *types.StudentMemory) SnapshotHints {
	var hints SnapshotHints
	if rec == nil {
		return hints
	}

	if len(rec.Meta) > 0 {
		var meta map[string]any
		if err := json.Unmarshal(rec.Meta, &meta); err == nil {
			if level, ok := meta["level"].(string); ok {
				hints.Level = strings.TrimSpace(level)
			}
			hints.Topics = stringList(meta["topics"])
			hints.Weaknesses = stringList(meta["errors"])
		}
	}

	if len(hints.Topics) == 0 && len(hints.Weaknesses) == 0 {
		if m := embeddedProfileRe.FindStringSubmatch(rec.Text); m != nil {
			var profile struct {
				Level      string   `json:"level"`
				Topics     []string `json:"topics"`
				Weaknesses []string `json:"weaknesses"`
			}
			if err := json.Unmarshal([]byte(m[1]), &profile); err == nil {
				if hints.Level == "" {
					hints.Level = strings.TrimSpace(profile.Level)
				}
				hints.Topics = cleanStrings(profile.Topics)
				hints.Weaknesses = cleanStrings(profile.Weaknesses)
			}
		}
	}

	if len(hints.Topics) > 5 {
		hints.Topics = hints.Topics[:5]
	}
	if len(hints.Weaknesses) > 5 {
		hints.Weaknesses = hints.Weaknesses[:5]
	}
	return hints
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
