package agents

import (
	"reflect"
	"testing"

	"github.com/littl3hero/studentio-backend/internal/types"
)

func TestNormalizeLevel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"canonical beginner", "beginner", types.LevelBeginner},
		{"canonical intermediate", "intermediate", types.LevelIntermediate},
		{"canonical advanced", "advanced", types.LevelAdvanced},
		{"uppercase", "ADVANCED", types.LevelAdvanced},
		{"surrounding whitespace", "  intermediate  ", types.LevelIntermediate},
		{"russian beginner prefix", "начинающий", types.LevelBeginner},
		{"russian intermediate prefix", "средний", types.LevelIntermediate},
		{"russian advanced prefix", "продвинутый", types.LevelAdvanced},
		{"unknown word", "wizard", types.LevelBeginner},
		{"empty", "", types.LevelBeginner},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeLevel(tc.in)
			if got != tc.want {
				t.Fatalf("NormalizeLevel(%q) = %q, want %q", tc.in, got, tc.want)
			}
			// Idempotence: normalizing a normalized value is a no-op.
			if again := NormalizeLevel(got); again != got {
				t.Fatalf("NormalizeLevel not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestDedupeStrings(t *testing.T) {
	in := []string{"Sign", " sign ", "", "bracket", "SIGN", "formula", "logic", "speed", "units", "extra"}
	got := dedupeStrings(in, 6)
	want := []string{"Sign", "bracket", "formula", "logic", "speed", "units"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dedupeStrings = %v, want %v", got, want)
	}
}

func TestDedupeStringsNoLimit(t *testing.T) {
	got := dedupeStrings([]string{"a", "b", "a"}, 0)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("dedupeStrings = %v", got)
	}
}
