// Package agents implements the tutoring agents: profile extraction,
// curation, exam generation, materials generation and the orchestrator
// that plans across them. Every agent treats the LLM as optional and
// untrusted: provider failures and malformed output land on deterministic
// fallbacks, never on the caller.
package agents

import (
	"context"
	"strings"

	"github.com/littl3hero/studentio-backend/internal/types"
)

// Completer is the slice of the LLM client the agents need. A nil Completer
// means no provider is configured and every agent takes its fallback path.
type Completer interface {
	Complete(ctx context.Context, system string, user string, temperature float64, jsonOnly bool) (string, error)
}

// NormalizeLevel maps any spelling of a proficiency level onto the three
// canonical values. Unknown input becomes beginner. The mapping is total
// and idempotent.
func NormalizeLevel(level string) string {
	l := strings.ToLower(strings.TrimSpace(level))
	switch l {
	case types.LevelBeginner, types.LevelIntermediate, types.LevelAdvanced:
		return l
	}
	switch {
	case strings.HasPrefix(l, "нач"):
		return types.LevelBeginner
	case strings.HasPrefix(l, "сред"):
		return types.LevelIntermediate
	case strings.HasPrefix(l, "прод"):
		return types.LevelAdvanced
	}
	return types.LevelBeginner
}

func dedupeStrings(in []string, limit int) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func firstN(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	return in[:n]
}
