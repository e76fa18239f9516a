package classify

import (
	"strings"

	"github.com/nhle/notification-engine/internal/model"
)

// Score weights. The values are carried over unchanged; they have no
// documented rationale and must not be tuned without a product decision.
const (
	WeightUrgentSubject       = 4
	WeightProjectRelated      = 2
	WeightClientCommunication = 2
	WeightUrgentActionable    = 3
)

// Threshold maps a minimum score to a priority.
type Threshold struct {
	MinScore int
	Priority model.Priority
}

// ScoreTable is checked top to bottom; the first threshold the score
// reaches decides the priority.
var ScoreTable = []Threshold{
	{MinScore: 6, Priority: model.PriorityUrgent},
	{MinScore: 4, Priority: model.PriorityHigh},
	{MinScore: 2, Priority: model.PriorityMedium},
}

// Score computes the additive priority score for a lowercased subject and
// its category. Contributions are cumulative.
func Score(subject string, category Category) int {
	subject = strings.ToLower(subject)

	score := 0
	if containsAny(subject, urgentKeywords...) {
		score += WeightUrgentSubject
	}
	switch category {
	case CategoryProjectRelated:
		score += WeightProjectRelated
	case CategoryClientCommunication:
		score += WeightClientCommunication
	case CategoryUrgentActionable:
		score += WeightUrgentActionable
	}
	return score
}

// PriorityForScore maps a score through ScoreTable; anything below the
// lowest threshold is low.
func PriorityForScore(score int) model.Priority {
	for _, t := range ScoreTable {
		if score >= t.MinScore {
			return t.Priority
		}
	}
	return model.PriorityLow
}
