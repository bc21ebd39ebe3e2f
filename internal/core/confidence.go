package core

// Confidence rule weights.
const (
	ConfidenceBase          = 1.0
	RepairPenalty           = 0.2
	QueryFailurePenalty     = 0.3
	DocCoverageBonus        = 0.1
	DocCoverageScoreCeiling = 0.3
)

// CalculateConfidence scores a terminal state in [0, 1]:
// start at 1, lose 0.2 per repair, lose 0.3 if a query ran and failed,
// gain 0.1 if any retrieved doc scored above 0.3.
func CalculateConfidence(s WorkflowState) float64 {
	c := ConfidenceBase
	c -= RepairPenalty * float64(s.RepairCount)

	if s.QueryFailed() {
		c -= QueryFailurePenalty
	}

	for _, d := range s.RelevantDocs {
		if d.Score > DocCoverageScoreCeiling {
			c += DocCoverageBonus
			break
		}
	}

	return clamp01(c)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
