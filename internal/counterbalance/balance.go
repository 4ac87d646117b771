package counterbalance

import (
	"github.com/persistorai/depthcue/internal/models"
)

// BalanceReport tallies how often each set received each condition across a
// group of participants.
type BalanceReport struct {
	Participants map[string][]models.Condition    `json:"participants"`
	Counts       map[int]map[models.Condition]int `json:"counts"`
	Balanced     bool                             `json:"balanced"`
}

// VerifyBalance computes the set-by-condition tally for ids. The group is
// balanced when every set saw every condition equally often and every
// participant used each condition once.
func VerifyBalance(ids []string, method Method) *BalanceReport {
	rep := &BalanceReport{
		Participants: make(map[string][]models.Condition, len(ids)),
		Counts:       make(map[int]map[models.Condition]int, len(LatinSquare)),
		Balanced:     len(ids) > 0,
	}

	for set := 1; set <= len(LatinSquare); set++ {
		rep.Counts[set] = make(map[models.Condition]int, len(models.Conditions))
	}

	for _, id := range ids {
		pattern := Pattern(id, method)
		rep.Participants[id] = pattern

		seen := make(map[models.Condition]bool, len(pattern))
		for i, c := range pattern {
			rep.Counts[i+1][c]++

			if seen[c] {
				rep.Balanced = false
			}

			seen[c] = true
		}
	}

	for _, counts := range rep.Counts {
		first := counts[models.Conditions[0]]
		for _, c := range models.Conditions[1:] {
			if counts[c] != first {
				rep.Balanced = false
			}
		}
	}

	return rep
}
