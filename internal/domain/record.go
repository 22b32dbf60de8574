package domain

import (
	"time"
)

// SessionRecord is a completed interview persisted in history.
type SessionRecord struct {
	ID             int64           `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	DayOfWeek      string          `json:"day_of_week"`
	TaskID         string          `json:"task_id,omitempty"`
	Score          int             `json:"score"`
	Theory         int             `json:"theory"`
	Practice       int             `json:"practice"`
	Verdict        string          `json:"verdict"`
	Violations     int             `json:"violations"`
	TranscriptHead []ChatTurn      `json:"transcript_head"`
	FullTranscript []ChatTurn      `json:"full_transcript"`
	Result         InterviewResult `json:"result"`
}

// WeekdayLabels are the day buckets in Monday-first order.
var WeekdayLabels = [7]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// WeekdayIndex maps a weekday onto a Monday-first index.
func WeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// WeekdayLabel returns the short Russian label for t's weekday.
func WeekdayLabel(t time.Time) string {
	return WeekdayLabels[WeekdayIndex(t.Weekday())]
}
