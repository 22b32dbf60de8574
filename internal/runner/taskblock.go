package runner

import (
	"regexp"
	"strings"
)

var (
	taskIDPattern      = regexp.MustCompile(`(?i)task_id:\s*([\w\-]+)`)
	descriptionPattern = regexp.MustCompile("(?i)description:\\s*([\\s\\S]*?)(?:template:|```python)")
	pythonFence        = regexp.MustCompile("(?i)```python([\\s\\S]+?)```")
	anyFence           = regexp.MustCompile("```([\\s\\S]+?)```")
)

// ParseTaskBlock extracts a follow-up task from interviewer text of the form
//
//	task_id: two_sum
//	description: ...
//	template:
//	```python
//	...
//	```
//
// It returns nil when no task_id is present.
func ParseTaskBlock(text string) *NextTask {
	m := taskIDPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	next := &NextTask{TaskID: strings.TrimSpace(m[1])}
	if d := descriptionPattern.FindStringSubmatch(text); d != nil {
		next.Description = strings.TrimSpace(d[1])
	}
	if t := pythonFence.FindStringSubmatch(text); t != nil {
		next.Template = strings.TrimSpace(t[1])
	} else if t := anyFence.FindStringSubmatch(text); t != nil {
		next.Template = strings.TrimSpace(t[1])
	}
	return next
}
