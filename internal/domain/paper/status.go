package paper

import (
	"github.com/yungbote/paperforge-backend/internal/domain"
	"github.com/yungbote/paperforge-backend/internal/types"
)

// RequireStatus rejects an operation when the paper is not in one of the
// allowed statuses. Mirrors the lifecycle: structural mutations only in draft,
// publish only from finalized, unfinalize only from finalized.
func RequireStatus(op, current string, allowed ...string) error {
	for _, s := range allowed {
		if current == s {
			return nil
		}
	}
	return domain.Conflictf(op, "paper status is %q, operation requires %v; reload and retry", current, allowed)
}

// RequireVersion enforces optimistic concurrency when the caller supplied the
// version it last observed. A nil expected version skips the check.
func RequireVersion(op string, current int, expected *int) error {
	if expected == nil {
		return nil
	}
	if *expected != current {
		return domain.Conflictf(op, "stale version %d (stored %d); reload and retry", *expected, current)
	}
	return nil
}

// ValidateForFinalize requires every section to hold at least one placement.
func ValidateForFinalize(op string, sections []types.PaperSection) error {
	if len(sections) == 0 {
		return domain.Validationf(op, "paper has no sections")
	}
	for i, s := range sections {
		if len(s.Placements) == 0 {
			return domain.Validationf(op, "section %d (%q) has no questions", i+1, s.Name)
		}
	}
	return nil
}
