package blueprint

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/paperforge-backend/internal/domain"
	"github.com/yungbote/paperforge-backend/internal/types"
)

func bankQuestion(topicID uuid.UUID, difficulty string) *types.Question {
	return &types.Question{
		ID:         uuid.New(),
		TopicID:    topicID,
		Difficulty: difficulty,
	}
}

func TestSelectForSectionTopicSplit(t *testing.T) {
	topicA := uuid.New()
	topicB := uuid.New()
	var pool []*types.Question
	for i := 0; i < 10; i++ {
		pool = append(pool, bankQuestion(topicA, types.DifficultyEasy))
	}
	for i := 0; i < 10; i++ {
		pool = append(pool, bankQuestion(topicB, types.DifficultyMedium))
	}

	plan := SectionPlan{
		Name:          "Section A",
		QuestionCount: 10,
		TopicDistribution: []TopicShare{
			{TopicID: topicA, Percent: 60},
			{TopicID: topicB, Percent: 40},
		},
	}
	selected, err := SelectForSection(plan, pool)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(selected) != 10 {
		t.Fatalf("selected %d, want 10", len(selected))
	}
	countA := 0
	for _, q := range selected {
		if q.TopicID == topicA {
			countA++
		}
	}
	if countA != 6 {
		t.Fatalf("topic A got %d questions, want 6", countA)
	}
}

func TestSelectForSectionBackfillsShortTopic(t *testing.T) {
	topicA := uuid.New()
	topicB := uuid.New()
	var pool []*types.Question
	// Topic A can only supply 4 of its 6-question target.
	for i := 0; i < 4; i++ {
		pool = append(pool, bankQuestion(topicA, types.DifficultyEasy))
	}
	for i := 0; i < 10; i++ {
		pool = append(pool, bankQuestion(topicB, types.DifficultyEasy))
	}

	plan := SectionPlan{
		Name:          "Section A",
		QuestionCount: 10,
		TopicDistribution: []TopicShare{
			{TopicID: topicA, Percent: 60},
			{TopicID: topicB, Percent: 40},
		},
	}
	selected, err := SelectForSection(plan, pool)
	if err != nil {
		t.Fatalf("backfill should cover the shortfall: %v", err)
	}
	if len(selected) != 10 {
		t.Fatalf("selected %d, want 10", len(selected))
	}
	seen := map[uuid.UUID]bool{}
	for _, q := range selected {
		if seen[q.ID] {
			t.Fatalf("question %s selected twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestSelectForSectionDifficultyMix(t *testing.T) {
	topic := uuid.New()
	var pool []*types.Question
	for i := 0; i < 10; i++ {
		pool = append(pool, bankQuestion(topic, types.DifficultyEasy))
	}
	for i := 0; i < 10; i++ {
		pool = append(pool, bankQuestion(topic, types.DifficultyHard))
	}

	plan := SectionPlan{
		Name:          "Section B",
		QuestionCount: 8,
		DifficultyMix: []DifficultyShare{
			{Difficulty: types.DifficultyEasy, Percent: 75},
			{Difficulty: types.DifficultyHard, Percent: 25},
		},
	}
	selected, err := SelectForSection(plan, pool)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	easy := 0
	for _, q := range selected {
		if q.Difficulty == types.DifficultyEasy {
			easy++
		}
	}
	if easy != 6 {
		t.Fatalf("easy count = %d, want 6", easy)
	}
}

func TestSelectForSectionInsufficientInventory(t *testing.T) {
	topic := uuid.New()
	pool := []*types.Question{
		bankQuestion(topic, types.DifficultyEasy),
		bankQuestion(topic, types.DifficultyEasy),
	}
	plan := SectionPlan{Name: "Section C", QuestionCount: 5}
	_, err := SelectForSection(plan, pool)
	if err == nil {
		t.Fatalf("expected insufficient inventory error")
	}
	if !domain.IsCode(err, domain.CodeInsufficientInventory) {
		t.Fatalf("expected insufficient_inventory code, got %v", domain.CodeOf(err))
	}
}

func TestSelectForSectionDeterministic(t *testing.T) {
	topic := uuid.New()
	var pool []*types.Question
	for i := 0; i < 6; i++ {
		pool = append(pool, bankQuestion(topic, types.DifficultyMedium))
	}
	plan := SectionPlan{Name: "Section D", QuestionCount: 4}
	first, err := SelectForSection(plan, pool)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, err := SelectForSection(plan, pool)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("selection not deterministic at index %d", i)
		}
	}
}

func TestValidateRejectsBadPercentages(t *testing.T) {
	topic := uuid.New()
	def := Definition{
		Name: "bad",
		Sections: []SectionPlan{{
			Name:             "Section A",
			QuestionCount:    5,
			MarksPerQuestion: 1,
			TopicDistribution: []TopicShare{
				{TopicID: topic, Percent: 70},
			},
		}},
	}
	if err := Validate(def); !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("expected validation error for shares not summing to 100, got %v", err)
	}
}

func TestValidateRejectsZeroCount(t *testing.T) {
	def := Definition{
		Name:     "bad",
		Sections: []SectionPlan{{Name: "Section A", QuestionCount: 0, MarksPerQuestion: 1}},
	}
	if err := Validate(def); !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
