package history

import (
	"math"

	"github.com/ashureev/interviewer/internal/domain"
)

// Tier is a performance bucket over the combined score (0..200).
type Tier string

// Tiers. The thresholds sit above the reachable maximum for Senior and
// Expert; they are kept as product-defined values.
const (
	TierJunior Tier = "Junior"
	TierMiddle Tier = "Middle"
	TierSenior Tier = "Senior"
	TierExpert Tier = "Expert"
)

// TierFor returns the tier of a combined score. Thresholds reach past the
// 200 a single session can score; Expert is unreachable for one session.
func TierFor(score int) Tier {
	switch {
	case score < 100:
		return TierJunior
	case score < 250:
		return TierMiddle
	case score < 350:
		return TierSenior
	default:
		return TierExpert
	}
}

// DayBucket aggregates records by weekday.
type DayBucket struct {
	Day        string `json:"day"`
	Sessions   int    `json:"sessions"`
	Violations int    `json:"violations"`
}

// Stats summarises a history.
type Stats struct {
	Count   int          `json:"count"`
	Total   int          `json:"total"`
	Average int          `json:"average"`
	Best    int          `json:"best"`
	ByDay   []DayBucket  `json:"by_day"`
	ByTier  map[Tier]int `json:"by_tier"`
}

// Statistics computes aggregate statistics. It does not depend on record order.
func Statistics(records []domain.SessionRecord) Stats {
	st := Stats{
		ByDay: make([]DayBucket, len(domain.WeekdayLabels)),
		ByTier: map[Tier]int{
			TierJunior: 0,
			TierMiddle: 0,
			TierSenior: 0,
			TierExpert: 0,
		},
	}
	for i, label := range domain.WeekdayLabels {
		st.ByDay[i].Day = label
	}

	for _, r := range records {
		st.Count++
		st.Total += r.Score
		if st.Count == 1 || r.Score > st.Best {
			st.Best = r.Score
		}
		st.ByTier[TierFor(r.Score)]++

		day := dayIndex(r)
		st.ByDay[day].Sessions++
		st.ByDay[day].Violations += r.Violations
	}

	if st.Count > 0 {
		st.Average = int(math.Round(float64(st.Total) / float64(st.Count)))
	}
	return st
}

func dayIndex(r domain.SessionRecord) int {
	for i, label := range domain.WeekdayLabels {
		if label == r.DayOfWeek {
			return i
		}
	}
	return domain.WeekdayIndex(r.CreatedAt.Weekday())
}
