package generate

import (
	"strings"

	"github.com/vietddude/genflow/internal/core/domain"
)

// normalize collapses whitespace and case so trivial formatting differences
// do not hide a repeated response.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// duplicateIndex scans the most recent assistant turns for a match with the
// candidate content. window limits how far back the scan goes. Returns the
// history index of the matched turn.
func duplicateIndex(content string, history []domain.Message, window int) (int, bool) {
	norm := normalize(content)
	if norm == "" {
		return 0, false
	}

	seen := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != domain.RoleAssistant {
			continue
		}
		if normalize(history[i].Content) == norm {
			return i, true
		}
		seen++
		if window > 0 && seen >= window {
			break
		}
	}
	return 0, false
}
