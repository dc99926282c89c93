package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/paperforge-backend/internal/domain"
	domblueprint "github.com/yungbote/paperforge-backend/internal/domain/blueprint"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type generationFixture struct {
	svc        PaperGenerationService
	papers     *fakePaperRepo
	questions  *fakeQuestionRepo
	blueprints *fakeBlueprintRepo
	tenantID   uuid.UUID
	orgID      uuid.UUID
}

func newGenerationFixture(t *testing.T) *generationFixture {
	t.Helper()
	f := &generationFixture{
		papers:     newFakePaperRepo(),
		questions:  newFakeQuestionRepo(),
		blueprints: newFakeBlueprintRepo(),
		tenantID:   uuid.New(),
		orgID:      uuid.New(),
	}
	f.svc = NewPaperGenerationService(nil, testLogger(t), f.papers, f.questions, f.blueprints)
	return f
}

func (f *generationFixture) storeBlueprint(t *testing.T, name string, sections []domblueprint.SectionPlan, constraints domblueprint.Constraints) *types.Blueprint {
	t.Helper()
	sectionsJSON, err := json.Marshal(sections)
	if err != nil {
		t.Fatalf("marshal sections: %v", err)
	}
	constraintsJSON, err := json.Marshal(constraints)
	if err != nil {
		t.Fatalf("marshal constraints: %v", err)
	}
	bp := &types.Blueprint{
		ID:             uuid.New(),
		OrganizationID: f.orgID,
		Name:           name,
		Sections:       datatypes.JSON(sectionsJSON),
		Constraints:    datatypes.JSON(constraintsJSON),
	}
	f.blueprints.Create(context.Background(), nil, []*types.Blueprint{bp})
	return bp
}

func (f *generationFixture) seedBank(t *testing.T, n int, topicID uuid.UUID, difficulty string, marks int) []*types.Question {
	t.Helper()
	out := make([]*types.Question, 0, n)
	for i := 0; i < n; i++ {
		q := &types.Question{
			ID:             uuid.New(),
			OrganizationID: f.orgID,
			Type:           types.QuestionTypeShortAnswer,
			TopicID:        topicID,
			Difficulty:     difficulty,
			DefaultMarks:   marks,
			ApprovalStatus: types.ApprovalStatusApproved,
			CreatedAt:      time.Now().Add(time.Duration(i) * time.Millisecond),
		}
		f.questions.add(q)
		out = append(out, q)
	}
	return out
}

func TestGenerateFillsAllSections(t *testing.T) {
	f := newGenerationFixture(t)
	topic := uuid.New()
	f.seedBank(t, 20, topic, types.DifficultyEasy, 2)
	bp := f.storeBlueprint(t, "Weekly Quiz", []domblueprint.SectionPlan{
		{Name: "Section A", QuestionCount: 5, MarksPerQuestion: 1, TimeLimitMinutes: 20},
		{Name: "Section B", QuestionCount: 3, MarksPerQuestion: 5, TimeLimitMinutes: 30},
	}, domblueprint.Constraints{})

	paper, err := f.svc.Generate(context.Background(), f.tenantID, f.orgID, GeneratePaperRequest{BlueprintID: bp.ID})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if paper.Status != types.PaperStatusDraft {
		t.Fatalf("status = %q, want draft", paper.Status)
	}
	if paper.Title != "Weekly Quiz" {
		t.Fatalf("title should default to blueprint name, got %q", paper.Title)
	}
	sections, err := paper.DecodeSections()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sections) != 2 || len(sections[0].Placements) != 5 || len(sections[1].Placements) != 3 {
		t.Fatalf("wrong section shape: %+v", sections)
	}
	if paper.TotalMarks != 5*1+3*5 {
		t.Fatalf("total marks = %d, want 20", paper.TotalMarks)
	}

	// No question may appear in both sections.
	seen := map[uuid.UUID]bool{}
	for _, s := range sections {
		for _, p := range s.Placements {
			if seen[p.QuestionID] {
				t.Fatalf("question %s placed twice", p.QuestionID)
			}
			seen[p.QuestionID] = true
			if f.questions.usage[p.QuestionID] != 1 {
				t.Fatalf("usage not incremented for %s", p.QuestionID)
			}
		}
	}
}

func TestGenerateMixedMarksUsesQuestionDefaults(t *testing.T) {
	f := newGenerationFixture(t)
	topic := uuid.New()
	f.seedBank(t, 4, topic, types.DifficultyMedium, 7)
	bp := f.storeBlueprint(t, "Mixed", []domblueprint.SectionPlan{
		{Name: "Section A", QuestionCount: 4, MixedMarks: true},
	}, domblueprint.Constraints{})

	paper, err := f.svc.Generate(context.Background(), f.tenantID, f.orgID, GeneratePaperRequest{BlueprintID: bp.ID})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if paper.TotalMarks != 28 {
		t.Fatalf("total marks = %d, want 28", paper.TotalMarks)
	}
}

func TestGenerateFailsWithoutCreatingPaper(t *testing.T) {
	f := newGenerationFixture(t)
	topic := uuid.New()
	f.seedBank(t, 2, topic, types.DifficultyEasy, 1)
	bp := f.storeBlueprint(t, "Too Big", []domblueprint.SectionPlan{
		{Name: "Section A", QuestionCount: 10, MarksPerQuestion: 1},
	}, domblueprint.Constraints{})

	_, err := f.svc.Generate(context.Background(), f.tenantID, f.orgID, GeneratePaperRequest{BlueprintID: bp.ID})
	if !domain.IsCode(err, domain.CodeInsufficientInventory) {
		t.Fatalf("expected insufficient_inventory, got %v", err)
	}
	if len(f.papers.papers) != 0 {
		t.Fatalf("no paper should be created on failure")
	}
	for id, n := range f.questions.usage {
		if n != 0 {
			t.Fatalf("usage leaked for %s: %d", id, n)
		}
	}
}

func TestGenerateUnknownBlueprint(t *testing.T) {
	f := newGenerationFixture(t)
	_, err := f.svc.Generate(context.Background(), f.tenantID, f.orgID, GeneratePaperRequest{BlueprintID: uuid.New()})
	if !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestGenerateRecencyExclusion(t *testing.T) {
	f := newGenerationFixture(t)
	topic := uuid.New()
	fresh := f.seedBank(t, 3, topic, types.DifficultyEasy, 1)
	stale := f.seedBank(t, 3, topic, types.DifficultyEasy, 1)
	recent := time.Now().Add(-24 * time.Hour)
	for _, q := range stale {
		ts := recent
		q.LastUsedAt = &ts
	}
	bp := f.storeBlueprint(t, "Fresh Only", []domblueprint.SectionPlan{
		{Name: "Section A", QuestionCount: 3, MarksPerQuestion: 1},
	}, domblueprint.Constraints{ExcludeRecentlyUsed: true, RecentWindowDays: 30})

	paper, err := f.svc.Generate(context.Background(), f.tenantID, f.orgID, GeneratePaperRequest{BlueprintID: bp.ID})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sections, _ := paper.DecodeSections()
	freshIDs := map[uuid.UUID]bool{}
	for _, q := range fresh {
		freshIDs[q.ID] = true
	}
	for _, p := range sections[0].Placements {
		if !freshIDs[p.QuestionID] {
			t.Fatalf("recently used question %s selected", p.QuestionID)
		}
	}
}

func TestGenerateExtraExcludeIDs(t *testing.T) {
	f := newGenerationFixture(t)
	topic := uuid.New()
	bank := f.seedBank(t, 4, topic, types.DifficultyEasy, 1)
	bp := f.storeBlueprint(t, "Excl", []domblueprint.SectionPlan{
		{Name: "Section A", QuestionCount: 2, MarksPerQuestion: 1},
	}, domblueprint.Constraints{})

	paper, err := f.svc.Generate(context.Background(), f.tenantID, f.orgID, GeneratePaperRequest{
		BlueprintID:     bp.ID,
		ExtraExcludeIDs: []uuid.UUID{bank[0].ID, bank[1].ID},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sections, _ := paper.DecodeSections()
	for _, p := range sections[0].Placements {
		if p.QuestionID == bank[0].ID || p.QuestionID == bank[1].ID {
			t.Fatalf("excluded question %s selected", p.QuestionID)
		}
	}
}
