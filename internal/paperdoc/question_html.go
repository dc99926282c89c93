package paperdoc

import (
	"fmt"
	"html"
	"strings"

	"github.com/yungbote/paperforge-backend/internal/types"
)

// questionRenderer emits the body markup for one question on the question
// paper. New question types register here; nothing else branches on type.
type questionRenderer func(b *strings.Builder, content types.QuestionContent)

var questionRenderers = map[string]questionRenderer{
	types.QuestionTypeMultipleChoice: renderMultipleChoice,
	types.QuestionTypeTrueFalse:      renderTrueFalse,
	types.QuestionTypeComprehension:  renderComprehension,
	types.QuestionTypeMatchColumn:    renderMatchColumn,
	types.QuestionTypeShortAnswer:    renderWritingLines,
	types.QuestionTypeLongAnswer:     renderWritingLines,
	types.QuestionTypeEssay:          renderWritingLines,
}

func renderQuestionBody(b *strings.Builder, questionType string, content types.QuestionContent) {
	render, ok := questionRenderers[questionType]
	if !ok {
		render = renderWritingLines
	}
	render(b, content)
}

func renderMultipleChoice(b *strings.Builder, content types.QuestionContent) {
	b.WriteString(`<ol class="options">`)
	for i, opt := range content.Options {
		fmt.Fprintf(b, `<li><span class="option-letter">%s.</span> %s</li>`, OptionLetter(i), html.EscapeString(opt))
	}
	b.WriteString(`</ol>`)
}

func renderTrueFalse(b *strings.Builder, content types.QuestionContent) {
	b.WriteString(`<ol class="options options-tf">`)
	b.WriteString(`<li><span class="option-letter">A.</span> True</li>`)
	b.WriteString(`<li><span class="option-letter">B.</span> False</li>`)
	b.WriteString(`</ol>`)
}

func renderComprehension(b *strings.Builder, content types.QuestionContent) {
	if content.Passage != "" {
		fmt.Fprintf(b, `<div class="passage">%s</div>`, html.EscapeString(content.Passage))
	}
	b.WriteString(`<ol class="sub-questions">`)
	for i, sub := range content.SubQuestions {
		fmt.Fprintf(b, `<li><span class="option-letter">%s.</span> %s</li>`, strings.ToLower(OptionLetter(i)), html.EscapeString(sub.Text))
	}
	b.WriteString(`</ol>`)
}

func renderMatchColumn(b *strings.Builder, content types.QuestionContent) {
	b.WriteString(`<table class="match-columns"><thead><tr><th>Column A</th><th>Column B</th></tr></thead><tbody>`)
	rows := len(content.LeftColumn)
	if len(content.RightColumn) > rows {
		rows = len(content.RightColumn)
	}
	for i := 0; i < rows; i++ {
		left, right := "", ""
		if i < len(content.LeftColumn) {
			left = fmt.Sprintf("%d. %s", i+1, html.EscapeString(content.LeftColumn[i]))
		}
		if i < len(content.RightColumn) {
			right = fmt.Sprintf("%s. %s", OptionLetter(i), html.EscapeString(content.RightColumn[i]))
		}
		fmt.Fprintf(b, `<tr><td>%s</td><td>%s</td></tr>`, left, right)
	}
	b.WriteString(`</tbody></table>`)
}

func renderWritingLines(b *strings.Builder, content types.QuestionContent) {
	b.WriteString(`<div class="writing-space"></div>`)
}

// truncateStem shortens a question stem for the solution paper.
func truncateStem(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
