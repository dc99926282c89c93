package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/paperforge-backend/internal/domain"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type renderFixture struct {
	pipeline  RenderPipeline
	papers    *fakePaperRepo
	questions *fakeQuestionRepo
	layouts   *fakeLayoutRepo
	artifacts *fakeArtifactRepo
	bucket    *fakeBucket
	renderer  *fakeRenderer
	orgID     uuid.UUID
}

func newRenderFixture(t *testing.T) *renderFixture {
	t.Helper()
	f := &renderFixture{
		papers:    newFakePaperRepo(),
		questions: newFakeQuestionRepo(),
		layouts:   newFakeLayoutRepo(),
		artifacts: newFakeArtifactRepo(),
		bucket:    newFakeBucket(),
		renderer:  &fakeRenderer{},
		orgID:     uuid.New(),
	}
	f.pipeline = NewRenderService(nil, testLogger(t), f.papers, f.questions, f.layouts, f.artifacts, f.bucket, f.renderer)
	return f
}

func (f *renderFixture) finalizedPaper(t *testing.T) *types.Paper {
	t.Helper()
	q := &types.Question{
		ID:             uuid.New(),
		OrganizationID: f.orgID,
		Type:           types.QuestionTypeShortAnswer,
		DefaultMarks:   2,
	}
	f.questions.add(q)
	sections := []types.PaperSection{
		{
			Name:             "Section A",
			TimeLimitMinutes: 30,
			Placements:       []types.PaperPlacement{{QuestionID: q.ID, Number: 1, Marks: 2}},
		},
	}
	paper := &types.Paper{
		ID:             uuid.New(),
		OrganizationID: f.orgID,
		Title:          "Render Test",
		Status:         types.PaperStatusFinalized,
		Sections:       types.MustEncodeSections(sections),
		TotalMarks:     2,
	}
	f.papers.Create(context.Background(), nil, []*types.Paper{paper})
	return paper
}

func TestGeneratePaperPDFsProducesAllThreeArtifacts(t *testing.T) {
	f := newRenderFixture(t)
	paper := f.finalizedPaper(t)

	result, err := f.pipeline.GeneratePaperPDFs(context.Background(), f.orgID, paper.ID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(result.Artifacts) != 3 {
		t.Fatalf("got %d artifacts, want 3", len(result.Artifacts))
	}
	if result.TotalBytes <= 0 {
		t.Fatalf("total bytes not accumulated")
	}
	wantTypes := map[string]bool{
		types.ArtifactTypeQuestionPaper: false,
		types.ArtifactTypeAnswerSheet:   false,
		types.ArtifactTypeSolutionPaper: false,
	}
	prefix := "papers/" + f.orgID.String() + "/" + paper.ID.String() + "/"
	for _, a := range result.Artifacts {
		if _, ok := wantTypes[a.Type]; !ok {
			t.Fatalf("unexpected artifact type %q", a.Type)
		}
		wantTypes[a.Type] = true
		if !strings.HasPrefix(a.StorageKey, prefix) {
			t.Fatalf("storage key %q missing prefix %q", a.StorageKey, prefix)
		}
		if !strings.HasSuffix(a.StorageKey, ".pdf") {
			t.Fatalf("storage key %q not a pdf", a.StorageKey)
		}
		if f.bucket.uploads[a.StorageKey] == 0 {
			t.Fatalf("artifact %q not uploaded", a.StorageKey)
		}
	}
	for typ, seen := range wantTypes {
		if !seen {
			t.Fatalf("artifact type %q missing", typ)
		}
	}
	stored, _ := f.artifacts.ListByPaper(context.Background(), nil, paper.ID)
	if len(stored) != 3 {
		t.Fatalf("artifact rows not replaced")
	}
}

func TestGeneratePaperPDFsFailureReplacesNothing(t *testing.T) {
	f := newRenderFixture(t)
	paper := f.finalizedPaper(t)
	f.artifacts.ReplaceForPaper(context.Background(), nil, paper.ID, []*types.PaperArtifact{
		{ID: uuid.New(), PaperID: paper.ID, Type: types.ArtifactTypeQuestionPaper, StorageKey: "papers/old.pdf"},
	})
	f.bucket.uploadErr = errors.New("gcs unavailable")

	_, err := f.pipeline.GeneratePaperPDFs(context.Background(), f.orgID, paper.ID)
	if err == nil {
		t.Fatalf("expected upload failure")
	}
	if !domain.IsCode(err, domain.CodeRetryable) {
		t.Fatalf("expected retryable code, got %v", domain.CodeOf(err))
	}
	stored, _ := f.artifacts.ListByPaper(context.Background(), nil, paper.ID)
	if len(stored) != 1 || stored[0].StorageKey != "papers/old.pdf" {
		t.Fatalf("partial run must leave existing artifacts untouched")
	}
}

func TestGeneratePaperPDFsUnknownPaper(t *testing.T) {
	f := newRenderFixture(t)
	_, err := f.pipeline.GeneratePaperPDFs(context.Background(), f.orgID, uuid.New())
	if !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestGeneratePaperPDFsWithoutBucket(t *testing.T) {
	f := newRenderFixture(t)
	paper := f.finalizedPaper(t)
	pipeline := NewRenderService(nil, testLogger(t), f.papers, f.questions, f.layouts, f.artifacts, nil, f.renderer)

	_, err := pipeline.GeneratePaperPDFs(context.Background(), f.orgID, paper.ID)
	if !domain.IsCode(err, domain.CodeRetryable) {
		t.Fatalf("expected retryable error with no storage configured, got %v", err)
	}
}
