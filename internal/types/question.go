package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeShortAnswer    = "short_answer"
	QuestionTypeLongAnswer     = "long_answer"
	QuestionTypeEssay          = "essay"
	QuestionTypeComprehension  = "comprehension"
	QuestionTypeMatchColumn    = "match_column"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyExpert = "expert"
)

const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

type QuestionSubPart struct {
	Text   string `json:"text"`
	Answer string `json:"answer,omitempty"`
}

// QuestionContent is the shape stored in the question's jsonb content column.
// Fields are populated per question type: Options for multiple choice, Passage
// plus SubQuestions for comprehension, LeftColumn/RightColumn for match-column.
type QuestionContent struct {
	Text          string            `json:"text"`
	Options       []string          `json:"options,omitempty"`
	Passage       string            `json:"passage,omitempty"`
	SubQuestions  []QuestionSubPart `json:"sub_questions,omitempty"`
	LeftColumn    []string          `json:"left_column,omitempty"`
	RightColumn   []string          `json:"right_column,omitempty"`
	CorrectAnswer string            `json:"correct_answer,omitempty"`
	Explanation   string            `json:"explanation,omitempty"`
}

type Question struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Type           string         `gorm:"column:type;not null;index" json:"type"`
	Content        datatypes.JSON `gorm:"column:content;type:jsonb" json:"content"`
	DefaultMarks   int            `gorm:"column:default_marks;not null;default:1" json:"default_marks"`
	TopicID        uuid.UUID      `gorm:"type:uuid;index" json:"topic_id"`
	Difficulty     string         `gorm:"column:difficulty;not null;index" json:"difficulty"`
	ApprovalStatus string         `gorm:"column:approval_status;not null;default:pending;index" json:"approval_status"`
	Archived       bool           `gorm:"column:archived;not null;default:false;index" json:"archived"`
	UsageCount     int            `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	LastUsedAt     *time.Time     `gorm:"column:last_used_at;index" json:"last_used_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Question) TableName() string { return "question" }

func (q *Question) DecodeContent() (QuestionContent, error) {
	var content QuestionContent
	if len(q.Content) == 0 {
		return content, nil
	}
	err := json.Unmarshal(q.Content, &content)
	return content, err
}

// ObjectiveOptionCount reports how many answer bubbles an answer sheet should
// draw for this question, or 0 when the type needs a writing box instead.
func (q *Question) ObjectiveOptionCount() int {
	switch q.Type {
	case QuestionTypeTrueFalse:
		return 2
	case QuestionTypeMultipleChoice:
		content, err := q.DecodeContent()
		if err != nil || len(content.Options) == 0 {
			return 4
		}
		return len(content.Options)
	default:
		return 0
	}
}
