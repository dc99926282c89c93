package blueprint

import (
	"math"

	"github.com/google/uuid"

	"github.com/yungbote/paperforge-backend/internal/domain"
	"github.com/yungbote/paperforge-backend/internal/types"
)

// SelectForSection fills one section from an already-eligible pool.
//
// Per topic share the target is round-half-up of count*pct/100, with the
// difficulty mix applied by the same rule nested inside each topic bucket.
// Under-filled buckets are backfilled from the remaining pool without regard
// to topic or difficulty; a shortfall that survives backfill fails loudly
// rather than producing a smaller section. Pool order is preserved so results
// are deterministic for a given query.
func SelectForSection(plan SectionPlan, pool []*types.Question) ([]*types.Question, error) {
	const op = "blueprint.SelectForSection"
	taken := make(map[uuid.UUID]bool, plan.QuestionCount)
	selected := make([]*types.Question, 0, plan.QuestionCount)

	take := func(q *types.Question) {
		taken[q.ID] = true
		selected = append(selected, q)
	}

	if len(plan.TopicDistribution) > 0 {
		for _, share := range plan.TopicDistribution {
			topicTarget := roundShare(plan.QuestionCount, share.Percent)
			if topicTarget == 0 {
				continue
			}
			if len(plan.DifficultyMix) > 0 {
				for _, mix := range plan.DifficultyMix {
					diffTarget := roundShare(topicTarget, mix.Percent)
					drawn := 0
					for _, q := range pool {
						if drawn >= diffTarget || len(selected) >= plan.QuestionCount {
							break
						}
						if taken[q.ID] || q.TopicID != share.TopicID || q.Difficulty != mix.Difficulty {
							continue
						}
						take(q)
						drawn++
					}
				}
			}
			// Top the topic bucket up to its own target from any difficulty.
			topicCount := 0
			for _, q := range selected {
				if q.TopicID == share.TopicID {
					topicCount++
				}
			}
			for _, q := range pool {
				if topicCount >= topicTarget || len(selected) >= plan.QuestionCount {
					break
				}
				if taken[q.ID] || q.TopicID != share.TopicID {
					continue
				}
				take(q)
				topicCount++
			}
		}
	} else if len(plan.DifficultyMix) > 0 {
		for _, mix := range plan.DifficultyMix {
			diffTarget := roundShare(plan.QuestionCount, mix.Percent)
			drawn := 0
			for _, q := range pool {
				if drawn >= diffTarget || len(selected) >= plan.QuestionCount {
					break
				}
				if taken[q.ID] || q.Difficulty != mix.Difficulty {
					continue
				}
				take(q)
				drawn++
			}
		}
	}

	// Backfill from the general pool until the section target is reached.
	for _, q := range pool {
		if len(selected) >= plan.QuestionCount {
			break
		}
		if taken[q.ID] {
			continue
		}
		take(q)
	}

	if len(selected) < plan.QuestionCount {
		return nil, domain.InsufficientInventoryf(op, plan.Name, plan.QuestionCount-len(selected))
	}
	return selected, nil
}

// roundShare rounds half up, so 3 questions at 50% yields 2.
func roundShare(count, percent int) int {
	return int(math.Round(float64(count) * float64(percent) / 100.0))
}
