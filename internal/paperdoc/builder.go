package paperdoc

import (
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/paperforge-backend/internal/types"
)

// BuildInput is everything the builders need. They never touch storage or the
// network; question content is resolved by the caller.
type BuildInput struct {
	Paper     *types.Paper
	Sections  []types.PaperSection
	Questions map[uuid.UUID]*types.Question
	Layout    LayoutSettings
}

const baseCSS = `
  :root { --primary: %s; }
  * { box-sizing: border-box; }
  body { font-family: %s; margin: 32px 40px; color: #1b1b1b; font-size: 13px; }
  .paper-header { text-align: center; border-bottom: 3px solid var(--primary); padding-bottom: 12px; margin-bottom: 18px; }
  .paper-header img.logo { max-height: 56px; margin-bottom: 6px; }
  .paper-header h1 { margin: 0; color: var(--primary); font-size: 22px; }
  .paper-header .subtitle { margin: 2px 0 0; color: #555; }
  .paper-meta { display: flex; justify-content: space-between; margin: 8px 0 0; font-size: 12px; }
  .student-info { display: flex; gap: 28px; margin: 10px 0; font-size: 12px; }
  .student-info span { border-bottom: 1px solid #999; min-width: 160px; display: inline-block; }
  .instructions { font-style: italic; background: #f6f6f6; padding: 8px 12px; margin-bottom: 16px; }
  .section { margin-bottom: 20px; }
  .section.page-break { page-break-before: always; }
  .section-header { background: var(--primary); color: #fff; padding: 5px 10px; font-weight: bold; }
  .section-instructions { font-style: italic; color: #444; margin: 6px 0; }
  .question { margin: 12px 0; }
  .question .stem { font-weight: 500; }
  .question .marks { float: right; color: var(--primary); font-weight: bold; }
  .options { list-style: none; padding-left: 22px; margin: 6px 0; }
  .option-letter { font-weight: bold; margin-right: 4px; }
  .passage { border-left: 3px solid var(--primary); padding: 6px 10px; margin: 6px 0; background: #fafafa; }
  .sub-questions { list-style: none; padding-left: 22px; }
  .match-columns { border-collapse: collapse; margin: 6px 0; }
  .match-columns th, .match-columns td { border: 1px solid #bbb; padding: 4px 14px; text-align: left; }
  .writing-space { border-bottom: 1px dotted #999; height: 64px; margin: 8px 0; }
  .writing-space.tall { height: 180px; }
  .bubble-row { margin: 4px 0; }
  .bubble { display: inline-block; width: 16px; height: 16px; border: 1.5px solid #333; border-radius: 50%%; margin: 0 6px; text-align: center; font-size: 9px; line-height: 15px; }
  .answer-number { display: inline-block; width: 34px; font-weight: bold; }
  .solution-answer { color: #15651f; font-weight: bold; }
  .solution-explanation { color: #444; margin-top: 3px; }
`

func pageOpen(b *strings.Builder, title string, layout LayoutSettings) {
	font := layout.FontFamily
	if font == "" {
		font = "Georgia, serif"
	}
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\">")
	fmt.Fprintf(b, "<title>%s</title>", html.EscapeString(title))
	b.WriteString("<style>")
	fmt.Fprintf(b, baseCSS, layout.PrimaryColor, font)
	b.WriteString("</style></head><body>")
}

func pageClose(b *strings.Builder) {
	b.WriteString("</body></html>")
}

func renderHeader(b *strings.Builder, in BuildInput, documentLabel string) {
	b.WriteString(`<div class="paper-header">`)
	if in.Layout.LogoURL != "" {
		fmt.Fprintf(b, `<img class="logo" src="%s" alt="">`, html.EscapeString(in.Layout.LogoURL))
	}
	fmt.Fprintf(b, "<h1>%s</h1>", html.EscapeString(in.Paper.Title))
	if in.Layout.Subtitle != "" {
		fmt.Fprintf(b, `<p class="subtitle">%s</p>`, html.EscapeString(in.Layout.Subtitle))
	}
	if documentLabel != "" {
		fmt.Fprintf(b, `<p class="subtitle">%s</p>`, html.EscapeString(documentLabel))
	}
	fmt.Fprintf(b, `<div class="paper-meta"><span>Total Marks: %d</span><span>Time: %d minutes</span></div>`,
		in.Paper.TotalMarks, in.Paper.TotalTimeMinutes)
	b.WriteString(`</div>`)
	if in.Layout.ShowStudentInfo {
		b.WriteString(`<div class="student-info"><div>Name: <span></span></div><div>Roll No: <span></span></div><div>Date: <span></span></div></div>`)
	}
}

func sectionOpen(b *strings.Builder, in BuildInput, index int, section types.PaperSection) {
	classes := "section"
	if in.Layout.PageBreakBetweenSections && index > 0 {
		classes += " page-break"
	}
	fmt.Fprintf(b, `<div class="%s">`, classes)
	label := SectionLabel(in.Layout.SectionNumbering, index)
	name := section.Name
	if name == "" {
		name = "Section " + label
	}
	fmt.Fprintf(b, `<div class="section-header">Section %s — %s (%d min)</div>`,
		label, html.EscapeString(name), section.TimeLimitMinutes)
	if section.Instructions != "" {
		fmt.Fprintf(b, `<div class="section-instructions">%s</div>`, html.EscapeString(section.Instructions))
	}
}

// BuildQuestionPaper renders the printable question paper.
func BuildQuestionPaper(in BuildInput) string {
	var b strings.Builder
	pageOpen(&b, in.Paper.Title, in.Layout)
	renderHeader(&b, in, "")
	if in.Layout.GlobalInstructions != "" {
		fmt.Fprintf(&b, `<div class="instructions">%s</div>`, html.EscapeString(in.Layout.GlobalInstructions))
	}
	for i, section := range in.Sections {
		sectionOpen(&b, in, i, section)
		for _, placement := range section.Placements {
			question := in.Questions[placement.QuestionID]
			if question == nil {
				continue
			}
			content, _ := question.DecodeContent()
			b.WriteString(`<div class="question">`)
			fmt.Fprintf(&b, `<span class="marks">[%d]</span>`, placement.Marks)
			fmt.Fprintf(&b, `<div class="stem">%d. %s</div>`, placement.Number, html.EscapeString(content.Text))
			renderQuestionBody(&b, question.Type, content)
			b.WriteString(`</div>`)
		}
		b.WriteString(`</div>`)
	}
	pageClose(&b)
	return b.String()
}

// BuildAnswerSheet renders one compact answer-capture element per question,
// with no question text.
func BuildAnswerSheet(in BuildInput) string {
	var b strings.Builder
	pageOpen(&b, in.Paper.Title+" — Answer Sheet", in.Layout)
	renderHeader(&b, in, "Answer Sheet")
	for i, section := range in.Sections {
		sectionOpen(&b, in, i, section)
		for _, placement := range section.Placements {
			question := in.Questions[placement.QuestionID]
			if question == nil {
				continue
			}
			if n := question.ObjectiveOptionCount(); n > 0 {
				fmt.Fprintf(&b, `<div class="bubble-row"><span class="answer-number">%d.</span>`, placement.Number)
				for j := 0; j < n; j++ {
					fmt.Fprintf(&b, `<span class="bubble">%s</span>`, OptionLetter(j))
				}
				b.WriteString(`</div>`)
				continue
			}
			boxClass := "writing-space"
			if question.Type == types.QuestionTypeLongAnswer || question.Type == types.QuestionTypeEssay {
				boxClass += " tall"
			}
			fmt.Fprintf(&b, `<div class="bubble-row"><span class="answer-number">%d.</span></div><div class="%s"></div>`,
				placement.Number, boxClass)
		}
		b.WriteString(`</div>`)
	}
	pageClose(&b)
	return b.String()
}

// BuildSolutionPaper renders a truncated stem, the correct answer, and the
// explanation when present, for every placement.
func BuildSolutionPaper(in BuildInput) string {
	var b strings.Builder
	pageOpen(&b, in.Paper.Title+" — Solutions", in.Layout)
	renderHeader(&b, in, "Solution Paper")
	for i, section := range in.Sections {
		sectionOpen(&b, in, i, section)
		for _, placement := range section.Placements {
			question := in.Questions[placement.QuestionID]
			if question == nil {
				continue
			}
			content, _ := question.DecodeContent()
			b.WriteString(`<div class="question">`)
			fmt.Fprintf(&b, `<span class="marks">[%d]</span>`, placement.Marks)
			fmt.Fprintf(&b, `<div class="stem">%d. %s</div>`, placement.Number, html.EscapeString(truncateStem(content.Text, 120)))
			if content.CorrectAnswer != "" {
				fmt.Fprintf(&b, `<div class="solution-answer">Answer: %s</div>`, html.EscapeString(content.CorrectAnswer))
			}
			if content.Explanation != "" {
				fmt.Fprintf(&b, `<div class="solution-explanation">%s</div>`, html.EscapeString(content.Explanation))
			}
			b.WriteString(`</div>`)
		}
		b.WriteString(`</div>`)
	}
	pageClose(&b)
	return b.String()
}
