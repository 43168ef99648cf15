package analytics

import (
	"sort"

	"finsurvey/entity"
)

// GroupCount is one bucket of a grouped count. Unanswered values are kept
// under the empty key.
type GroupCount struct {
	ID    string `json:"_id"`
	Count int    `json:"count"`
}

// groupBy counts surveys by the value returned from field, largest first
func groupBy(surveys []*entity.Survey, field func(*entity.Survey) string) []GroupCount {
	counts := make(map[string]int)
	for _, s := range surveys {
		counts[field(s)]++
	}
	return sorted(counts)
}

// groupByEach counts every element of a list field, like $unwind + $group
func groupByEach(surveys []*entity.Survey, field func(*entity.Survey) []string) []GroupCount {
	counts := make(map[string]int)
	for _, s := range surveys {
		for _, v := range field(s) {
			counts[v]++
		}
	}
	return sorted(counts)
}

func sorted(counts map[string]int) []GroupCount {
	groups := make([]GroupCount, 0, len(counts))
	for id, n := range counts {
		groups = append(groups, GroupCount{ID: id, Count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].ID < groups[j].ID
	})
	return groups
}

func countWhere(surveys []*entity.Survey, match func(*entity.Survey) bool) int {
	n := 0
	for _, s := range surveys {
		if match(s) {
			n++
		}
	}
	return n
}

// percent is 0 when total is 0
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func averageRisk(surveys []*entity.Survey) float64 {
	sum, n := 0, 0
	for _, s := range surveys {
		if s.RiskScale == nil {
			continue
		}
		sum += *s.RiskScale
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
