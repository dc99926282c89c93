package paper

import (
	"testing"

	"github.com/yungbote/paperforge-backend/internal/domain"
	"github.com/yungbote/paperforge-backend/internal/types"
)

func TestRequireStatus(t *testing.T) {
	if err := RequireStatus("op", types.PaperStatusDraft, types.PaperStatusDraft); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := RequireStatus("op", types.PaperStatusFinalized, types.PaperStatusDraft)
	if err == nil {
		t.Fatalf("expected conflict error")
	}
	if !domain.IsCode(err, domain.CodeConflict) {
		t.Fatalf("expected conflict code, got %v", domain.CodeOf(err))
	}
}

func TestRequireVersion(t *testing.T) {
	if err := RequireVersion("op", 3, nil); err != nil {
		t.Fatalf("nil expected version should skip the check: %v", err)
	}
	v := 3
	if err := RequireVersion("op", 3, &v); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	stale := 2
	err := RequireVersion("op", 3, &stale)
	if err == nil {
		t.Fatalf("expected conflict error")
	}
	if !domain.IsCode(err, domain.CodeConflict) {
		t.Fatalf("expected conflict code, got %v", domain.CodeOf(err))
	}
}

func TestValidateForFinalize(t *testing.T) {
	if err := ValidateForFinalize("op", nil); err == nil {
		t.Fatalf("expected validation error for empty paper")
	}
	sections := []types.PaperSection{
		{Name: "Section A", Placements: []types.PaperPlacement{{Number: 1, Marks: 2}}},
		{Name: "Section B"},
	}
	err := ValidateForFinalize("op", sections)
	if err == nil {
		t.Fatalf("expected validation error for empty section")
	}
	if !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("expected validation code, got %v", domain.CodeOf(err))
	}
	sections[1].Placements = []types.PaperPlacement{{Number: 1, Marks: 1}}
	if err := ValidateForFinalize("op", sections); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
