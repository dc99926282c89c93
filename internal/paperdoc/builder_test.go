package paperdoc

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/paperforge-backend/internal/types"
)

func contentJSON(t *testing.T, content types.QuestionContent) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	return datatypes.JSON(raw)
}

func buildFixture(t *testing.T) BuildInput {
	t.Helper()
	mcq := &types.Question{
		ID:   uuid.New(),
		Type: types.QuestionTypeMultipleChoice,
		Content: contentJSON(t, types.QuestionContent{
			Text:          "What is 2 + 2?",
			Options:       []string{"3", "4", "5", "6"},
			CorrectAnswer: "4",
			Explanation:   "Basic addition.",
		}),
	}
	essay := &types.Question{
		ID:   uuid.New(),
		Type: types.QuestionTypeEssay,
		Content: contentJSON(t, types.QuestionContent{
			Text:          "Discuss the causes of the industrial revolution.",
			CorrectAnswer: "Open-ended",
		}),
	}
	comp := &types.Question{
		ID:   uuid.New(),
		Type: types.QuestionTypeComprehension,
		Content: contentJSON(t, types.QuestionContent{
			Text:    "Read the passage and answer the parts below.",
			Passage: "The fox crossed the river at dawn.",
			SubQuestions: []types.QuestionSubPart{
				{Text: "When did the fox cross?", Answer: "At dawn"},
				{Text: "What did it cross?", Answer: "A river"},
			},
		}),
	}

	sections := []types.PaperSection{
		{
			Name:             "Objective",
			Instructions:     "Choose one option.",
			TimeLimitMinutes: 20,
			Placements: []types.PaperPlacement{
				{QuestionID: mcq.ID, Number: 1, Marks: 1},
			},
		},
		{
			Name:             "Written",
			TimeLimitMinutes: 40,
			Placements: []types.PaperPlacement{
				{QuestionID: essay.ID, Number: 1, Marks: 10},
				{QuestionID: comp.ID, Number: 2, Marks: 5},
			},
		},
	}

	return BuildInput{
		Paper: &types.Paper{
			Title:            "Midterm Examination",
			TotalMarks:       16,
			TotalTimeMinutes: 60,
		},
		Sections: sections,
		Questions: map[uuid.UUID]*types.Question{
			mcq.ID:   mcq,
			essay.ID: essay,
			comp.ID:  comp,
		},
		Layout: DefaultLayout(),
	}
}

func TestBuildQuestionPaper(t *testing.T) {
	in := buildFixture(t)
	htmlDoc := BuildQuestionPaper(in)

	for _, want := range []string{
		"Midterm Examination",
		"Total Marks: 16",
		"What is 2 + 2?",
		`<span class="option-letter">B.</span>`,
		"The fox crossed the river at dawn.",
		"When did the fox cross?",
		"Section 1",
		"Choose one option.",
	} {
		if !strings.Contains(htmlDoc, want) {
			t.Fatalf("question paper missing %q", want)
		}
	}
	if strings.Contains(htmlDoc, "Basic addition.") {
		t.Fatalf("question paper must not leak explanations")
	}
	if strings.Contains(htmlDoc, "At dawn") {
		t.Fatalf("question paper must not leak sub-question answers")
	}
}

func TestBuildQuestionPaperEscapesHTML(t *testing.T) {
	in := buildFixture(t)
	q := &types.Question{
		ID:   uuid.New(),
		Type: types.QuestionTypeShortAnswer,
		Content: contentJSON(t, types.QuestionContent{
			Text: `Is <script>alert("x")</script> safe?`,
		}),
	}
	in.Questions[q.ID] = q
	in.Sections[0].Placements = append(in.Sections[0].Placements,
		types.PaperPlacement{QuestionID: q.ID, Number: 2, Marks: 1})

	htmlDoc := BuildQuestionPaper(in)
	if strings.Contains(htmlDoc, "<script>") {
		t.Fatalf("question text was not escaped")
	}
	if !strings.Contains(htmlDoc, "&lt;script&gt;") {
		t.Fatalf("escaped question text missing")
	}
}

func TestBuildAnswerSheet(t *testing.T) {
	in := buildFixture(t)
	htmlDoc := BuildAnswerSheet(in)

	if !strings.Contains(htmlDoc, "Answer Sheet") {
		t.Fatalf("missing document label")
	}
	// 4 MCQ options → bubbles A through D.
	for _, letter := range []string{">A<", ">B<", ">C<", ">D<"} {
		if !strings.Contains(htmlDoc, `<span class="bubble">`+strings.Trim(letter, "><")+`</span>`) {
			t.Fatalf("answer sheet missing bubble %s", letter)
		}
	}
	if !strings.Contains(htmlDoc, "writing-space tall") {
		t.Fatalf("essay should get a tall writing box")
	}
	if strings.Contains(htmlDoc, "What is 2 + 2?") {
		t.Fatalf("answer sheet must not contain question text")
	}
}

func TestBuildSolutionPaper(t *testing.T) {
	in := buildFixture(t)
	htmlDoc := BuildSolutionPaper(in)

	if !strings.Contains(htmlDoc, "Answer: 4") {
		t.Fatalf("solution paper missing correct answer")
	}
	if !strings.Contains(htmlDoc, "Basic addition.") {
		t.Fatalf("solution paper missing explanation")
	}
}

func TestSectionNumberingStyles(t *testing.T) {
	in := buildFixture(t)
	in.Layout.SectionNumbering = NumberingAlpha
	htmlDoc := BuildQuestionPaper(in)
	if !strings.Contains(htmlDoc, "Section A") || !strings.Contains(htmlDoc, "Section B") {
		t.Fatalf("alpha numbering not applied")
	}

	in.Layout.SectionNumbering = NumberingRoman
	htmlDoc = BuildQuestionPaper(in)
	if !strings.Contains(htmlDoc, "Section I") || !strings.Contains(htmlDoc, "Section II") {
		t.Fatalf("roman numbering not applied")
	}
}

func TestPageBreakBetweenSections(t *testing.T) {
	in := buildFixture(t)
	in.Layout.PageBreakBetweenSections = true
	htmlDoc := BuildQuestionPaper(in)
	if strings.Count(htmlDoc, "section page-break") != 1 {
		t.Fatalf("only sections after the first should page-break")
	}
}

func TestSectionLabel(t *testing.T) {
	cases := []struct {
		style string
		index int
		want  string
	}{
		{NumberingNumeric, 0, "1"},
		{NumberingNumeric, 4, "5"},
		{NumberingAlpha, 0, "A"},
		{NumberingAlpha, 25, "Z"},
		{NumberingAlpha, 26, "AA"},
		{NumberingRoman, 0, "I"},
		{NumberingRoman, 3, "IV"},
		{NumberingRoman, 8, "IX"},
	}
	for _, tc := range cases {
		if got := SectionLabel(tc.style, tc.index); got != tc.want {
			t.Fatalf("SectionLabel(%s, %d) = %q, want %q", tc.style, tc.index, got, tc.want)
		}
	}
}

func TestApplyBranding(t *testing.T) {
	in := buildFixture(t)
	htmlDoc := BuildQuestionPaper(in)
	branded := ApplyBranding(htmlDoc, "#ff0000")
	if !strings.Contains(branded, "--primary: #ff0000;") {
		t.Fatalf("primary color not rewritten")
	}
	if ApplyBranding(htmlDoc, "  ") != htmlDoc {
		t.Fatalf("blank color should be a no-op")
	}
}

func TestApplyWatermark(t *testing.T) {
	in := buildFixture(t)
	htmlDoc := BuildQuestionPaper(in)

	stamped := ApplyWatermark(htmlDoc, WatermarkSettings{Enabled: true, Text: "CONFIDENTIAL", Opacity: 0.1})
	if !strings.Contains(stamped, "background-image: url(\"data:image/png;base64,") {
		t.Fatalf("watermark background not injected")
	}
	if ApplyWatermark(htmlDoc, WatermarkSettings{Enabled: false, Text: "X"}) != htmlDoc {
		t.Fatalf("disabled watermark should be a no-op")
	}
	if ApplyWatermark(htmlDoc, WatermarkSettings{Enabled: true, Text: "  "}) != htmlDoc {
		t.Fatalf("blank watermark text should be a no-op")
	}
}
