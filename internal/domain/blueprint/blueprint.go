package blueprint

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/yungbote/paperforge-backend/internal/domain"
	"github.com/yungbote/paperforge-backend/internal/types"
)

type TopicShare struct {
	TopicID uuid.UUID `json:"topic_id"`
	Percent int       `json:"percent"`
}

type DifficultyShare struct {
	Difficulty string `json:"difficulty"`
	Percent    int    `json:"percent"`
}

// SectionPlan declares how one section of a generated paper is filled.
type SectionPlan struct {
	Name              string            `json:"name"`
	Instructions      string            `json:"instructions,omitempty"`
	TimeLimitMinutes  int               `json:"time_limit_minutes"`
	QuestionCount     int               `json:"question_count"`
	QuestionTypes     []string          `json:"question_types,omitempty"`
	MarksPerQuestion  int               `json:"marks_per_question"`
	MixedMarks        bool              `json:"mixed_marks"`
	TopicDistribution []TopicShare      `json:"topic_distribution,omitempty"`
	DifficultyMix     []DifficultyShare `json:"difficulty_mix,omitempty"`
}

type Constraints struct {
	ExcludeRecentlyUsed bool        `json:"exclude_recently_used"`
	RecentWindowDays    int         `json:"recent_window_days"`
	ExcludeQuestionIDs  []uuid.UUID `json:"exclude_question_ids,omitempty"`
	ApprovedOnly        bool        `json:"approved_only"`
}

type Definition struct {
	Name        string
	Sections    []SectionPlan
	Constraints Constraints
}

// FromModel decodes a persisted blueprint row into its definition.
func FromModel(b *types.Blueprint) (Definition, error) {
	const op = "blueprint.FromModel"
	def := Definition{Name: b.Name}
	if len(b.Sections) > 0 {
		if err := json.Unmarshal(b.Sections, &def.Sections); err != nil {
			return def, domain.Wrap(domain.CodeValidation, op, err)
		}
	}
	if len(b.Constraints) > 0 {
		if err := json.Unmarshal(b.Constraints, &def.Constraints); err != nil {
			return def, domain.Wrap(domain.CodeValidation, op, err)
		}
	}
	return def, nil
}

// Validate rejects malformed blueprints before any bank query runs.
func Validate(def Definition) error {
	const op = "blueprint.Validate"
	if len(def.Sections) == 0 {
		return domain.Validationf(op, "blueprint has no sections")
	}
	for i, s := range def.Sections {
		if s.QuestionCount <= 0 {
			return domain.Validationf(op, "section %d (%q): question count must be positive", i+1, s.Name)
		}
		if !s.MixedMarks && s.MarksPerQuestion <= 0 {
			return domain.Validationf(op, "section %d (%q): marks per question must be positive unless mixed marks is set", i+1, s.Name)
		}
		if len(s.TopicDistribution) > 0 {
			sum := 0
			for _, t := range s.TopicDistribution {
				if t.Percent < 0 {
					return domain.Validationf(op, "section %d (%q): negative topic percentage", i+1, s.Name)
				}
				sum += t.Percent
			}
			if sum != 100 {
				return domain.Validationf(op, "section %d (%q): topic distribution sums to %d, must sum to 100", i+1, s.Name, sum)
			}
		}
		if len(s.DifficultyMix) > 0 {
			sum := 0
			for _, d := range s.DifficultyMix {
				if d.Percent < 0 {
					return domain.Validationf(op, "section %d (%q): negative difficulty percentage", i+1, s.Name)
				}
				sum += d.Percent
			}
			if sum != 100 {
				return domain.Validationf(op, "section %d (%q): difficulty mix sums to %d, must sum to 100", i+1, s.Name, sum)
			}
		}
	}
	if def.Constraints.ExcludeRecentlyUsed && def.Constraints.RecentWindowDays <= 0 {
		return domain.Validationf(op, "recency exclusion requested without a positive day window")
	}
	return nil
}
