package domain

// InterviewResult is the structured form of a final interview report.
type InterviewResult struct {
	TheoryScore   int      `json:"theory_score"`
	PracticeScore int      `json:"practice_score"`
	Strengths     []string `json:"strengths"`
	GrowthAreas   []string `json:"growth_areas"`
	Verdict       string   `json:"verdict"`
	RawText       string   `json:"raw_text"`
}

// Total returns the combined theory and practice score.
func (r InterviewResult) Total() int {
	return r.TheoryScore + r.PracticeScore
}

// RunOutcome describes the latest code execution shown in the task panel.
type RunOutcome struct {
	Pending       bool     `json:"pending"`
	Passed        *bool    `json:"passed,omitempty"`
	CaseMessages  []string `json:"case_messages,omitempty"`
	ModelFeedback *string  `json:"model_feedback,omitempty"`
	FollowUpTask  *Task    `json:"follow_up_task,omitempty"`
	IsFinal       bool     `json:"is_final,omitempty"`
}
