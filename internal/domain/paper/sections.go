package paper

import (
	"github.com/google/uuid"

	"github.com/yungbote/paperforge-backend/internal/domain"
	"github.com/yungbote/paperforge-backend/internal/types"
)

// All operations here produce new slices instead of splicing in place, so the
// contiguous-numbering invariant holds by construction after every mutation.

// Totals recomputes derived totals from the source data.
func Totals(sections []types.PaperSection) (totalMarks int, totalTimeMinutes int) {
	for _, s := range sections {
		totalTimeMinutes += s.TimeLimitMinutes
		for _, p := range s.Placements {
			totalMarks += p.Marks
		}
	}
	return totalMarks, totalTimeMinutes
}

// PlacedQuestionIDs lists every question referenced anywhere in the paper.
func PlacedQuestionIDs(sections []types.PaperSection) []uuid.UUID {
	var ids []uuid.UUID
	for _, s := range sections {
		for _, p := range s.Placements {
			ids = append(ids, p.QuestionID)
		}
	}
	return ids
}

// ContainsQuestion reports whether the question is already placed in the paper.
func ContainsQuestion(sections []types.PaperSection, questionID uuid.UUID) bool {
	for _, s := range sections {
		for _, p := range s.Placements {
			if p.QuestionID == questionID {
				return true
			}
		}
	}
	return false
}

// FindPlacement resolves a placement by section index and question number.
func FindPlacement(sections []types.PaperSection, sectionIndex, questionNumber int) (*types.PaperPlacement, error) {
	const op = "paper.FindPlacement"
	if sectionIndex < 0 || sectionIndex >= len(sections) {
		return nil, domain.NotFoundf(op, "section index %d out of range (paper has %d sections)", sectionIndex, len(sections))
	}
	for i := range sections[sectionIndex].Placements {
		if sections[sectionIndex].Placements[i].Number == questionNumber {
			p := sections[sectionIndex].Placements[i]
			return &p, nil
		}
	}
	return nil, domain.NotFoundf(op, "question number %d not found in section %d", questionNumber, sectionIndex+1)
}

// AddPlacements appends placements to a section, numbering each contiguously
// from the section's current maximum.
func AddPlacements(sections []types.PaperSection, sectionIndex int, placements []types.PaperPlacement) ([]types.PaperSection, error) {
	const op = "paper.AddPlacements"
	if sectionIndex < 0 || sectionIndex >= len(sections) {
		return nil, domain.NotFoundf(op, "section index %d out of range (paper has %d sections)", sectionIndex, len(sections))
	}
	if len(placements) == 0 {
		return nil, domain.Validationf(op, "no questions supplied")
	}
	batch := make(map[uuid.UUID]bool, len(placements))
	for _, p := range placements {
		if ContainsQuestion(sections, p.QuestionID) || batch[p.QuestionID] {
			return nil, domain.Conflictf(op, "question %s is already placed in this paper", p.QuestionID)
		}
		batch[p.QuestionID] = true
	}
	out := cloneSections(sections)
	next := len(out[sectionIndex].Placements) + 1
	for _, p := range placements {
		p.Number = next
		next++
		out[sectionIndex].Placements = append(out[sectionIndex].Placements, p)
	}
	return out, nil
}

// RemovePlacement drops the placement at the given question number and
// renumbers the remaining placements in that section 1..N.
func RemovePlacement(sections []types.PaperSection, sectionIndex, questionNumber int) ([]types.PaperSection, uuid.UUID, error) {
	const op = "paper.RemovePlacement"
	if sectionIndex < 0 || sectionIndex >= len(sections) {
		return nil, uuid.Nil, domain.NotFoundf(op, "section index %d out of range (paper has %d sections)", sectionIndex, len(sections))
	}
	out := cloneSections(sections)
	removed := uuid.Nil
	kept := make([]types.PaperPlacement, 0, len(out[sectionIndex].Placements))
	for _, p := range out[sectionIndex].Placements {
		if p.Number == questionNumber {
			removed = p.QuestionID
			continue
		}
		kept = append(kept, p)
	}
	if removed == uuid.Nil {
		return nil, uuid.Nil, domain.NotFoundf(op, "question number %d not found in section %d", questionNumber, sectionIndex+1)
	}
	for i := range kept {
		kept[i].Number = i + 1
	}
	out[sectionIndex].Placements = kept
	return out, removed, nil
}

// Reorder reassigns question numbers 1..N following the supplied full ordering
// of question ids. The id set must match the section exactly.
func Reorder(sections []types.PaperSection, sectionIndex int, orderedQuestionIDs []uuid.UUID) ([]types.PaperSection, error) {
	const op = "paper.Reorder"
	if sectionIndex < 0 || sectionIndex >= len(sections) {
		return nil, domain.NotFoundf(op, "section index %d out of range (paper has %d sections)", sectionIndex, len(sections))
	}
	current := sections[sectionIndex].Placements
	if len(orderedQuestionIDs) != len(current) {
		return nil, domain.Validationf(op, "ordering has %d ids, section %d has %d placements", len(orderedQuestionIDs), sectionIndex+1, len(current))
	}
	byID := make(map[uuid.UUID]types.PaperPlacement, len(current))
	for _, p := range current {
		byID[p.QuestionID] = p
	}
	reordered := make([]types.PaperPlacement, 0, len(orderedQuestionIDs))
	seen := make(map[uuid.UUID]bool, len(orderedQuestionIDs))
	for i, id := range orderedQuestionIDs {
		if seen[id] {
			return nil, domain.Validationf(op, "question %s appears twice in the ordering", id)
		}
		seen[id] = true
		p, ok := byID[id]
		if !ok {
			return nil, domain.Validationf(op, "question %s is not in section %d", id, sectionIndex+1)
		}
		p.Number = i + 1
		reordered = append(reordered, p)
	}
	out := cloneSections(sections)
	out[sectionIndex].Placements = reordered
	return out, nil
}

// SwapPlacement replaces the question at a question number with a new one,
// keeping the position and required flag. Returns the outgoing question id.
func SwapPlacement(sections []types.PaperSection, sectionIndex, questionNumber int, newQuestionID uuid.UUID, marks int) ([]types.PaperSection, uuid.UUID, error) {
	const op = "paper.SwapPlacement"
	if sectionIndex < 0 || sectionIndex >= len(sections) {
		return nil, uuid.Nil, domain.NotFoundf(op, "section index %d out of range (paper has %d sections)", sectionIndex, len(sections))
	}
	if ContainsQuestion(sections, newQuestionID) {
		return nil, uuid.Nil, domain.Conflictf(op, "question %s is already placed in this paper", newQuestionID)
	}
	out := cloneSections(sections)
	for i := range out[sectionIndex].Placements {
		if out[sectionIndex].Placements[i].Number == questionNumber {
			old := out[sectionIndex].Placements[i].QuestionID
			out[sectionIndex].Placements[i].QuestionID = newQuestionID
			out[sectionIndex].Placements[i].Marks = marks
			return out, old, nil
		}
	}
	return nil, uuid.Nil, domain.NotFoundf(op, "question number %d not found in section %d", questionNumber, sectionIndex+1)
}

func cloneSections(sections []types.PaperSection) []types.PaperSection {
	out := make([]types.PaperSection, len(sections))
	for i, s := range sections {
		out[i] = s
		out[i].Placements = make([]types.PaperPlacement, len(s.Placements))
		copy(out[i].Placements, s.Placements)
	}
	return out
}
