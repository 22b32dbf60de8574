// Package report turns the free-text final interview report into a structured result.
package report

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ashureev/interviewer/internal/domain"
)

// Fixed phrases the dialogue service emits at stage boundaries.
const (
	ScoreMarker    = "Теория:"
	VerdictMarker  = "**Вердикт:**"
	LiveCodeMarker = "Можем переходить к секции live-code"
)

const maxScore = 100

type label int

const (
	labelTheory label = iota
	labelPractice
	labelStrengths
	labelGrowth
	labelVerdict
)

var labelPattern = regexp.MustCompile(`(?i)\*{0,2}(теория|практика|сильные стороны|зоны роста|вердикт)\*{0,2}[ \t]*(:?)[ \t]*\*{0,2}[ \t]*`)

// A score is the first digit run directly after its label, separated only by
// emphasis, a colon or whitespace.
var (
	theoryScore   = regexp.MustCompile(`(?i)теория[*:\s]*([0-9]+)`)
	practiceScore = regexp.MustCompile(`(?i)практика[*:\s]*([0-9]+)`)
)

var listSeparator = regexp.MustCompile(`[\n—•\-*]`)

func labelOf(word string) label {
	switch strings.ToLower(word) {
	case "теория":
		return labelTheory
	case "практика":
		return labelPractice
	case "сильные стороны":
		return labelStrengths
	case "зоны роста":
		return labelGrowth
	default:
		return labelVerdict
	}
}

// Parse extracts scores, strengths, growth areas and the verdict from text.
// It never fails: absent sections yield zero scores, empty lists and an
// empty verdict.
func Parse(text string) domain.InterviewResult {
	spans := sections(text)

	return domain.InterviewResult{
		TheoryScore:   score(theoryScore, text),
		PracticeScore: score(practiceScore, text),
		Strengths:     list(spans, labelStrengths),
		GrowthAreas:   list(spans, labelGrowth),
		Verdict:       verdict(spans),
		RawText:       text,
	}
}

// sections maps each label to the text following its first occurrence up
// to the next recognised label. Only a label followed by a colon or opening
// a line counts, so the same words in prose do not split sections.
func sections(text string) map[label]string {
	var heads [][]int
	for _, m := range labelPattern.FindAllStringSubmatchIndex(text, -1) {
		if !endsWord(text, m[3]) {
			continue
		}
		if m[5] > m[4] || opensLine(text, m[0]) {
			heads = append(heads, m)
		}
	}

	spans := make(map[label]string, len(heads))
	for i, m := range heads {
		l := labelOf(text[m[2]:m[3]])
		if _, seen := spans[l]; seen {
			continue
		}
		end := len(text)
		if i+1 < len(heads) {
			end = heads[i+1][0]
		}
		spans[l] = text[m[1]:end]
	}
	return spans
}

// opensLine reports whether only indentation or markdown markup precedes
// offset on its line.
func opensLine(text string, offset int) bool {
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	return strings.Trim(text[start:offset], " \t\r#>") == ""
}

func endsWord(text string, offset int) bool {
	r, _ := utf8.DecodeRuneInString(text[offset:])
	return offset == len(text) || !unicode.IsLetter(r)
}

func score(pattern *regexp.Regexp, text string) int {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > maxScore {
		return maxScore
	}
	return n
}

func list(spans map[label]string, l label) []string {
	items := []string{}
	span, ok := spans[l]
	if !ok {
		return items
	}
	for _, part := range listSeparator.Split(span, -1) {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) <= 2 {
			continue
		}
		items = append(items, part)
	}
	return items
}

func verdict(spans map[label]string) string {
	span, ok := spans[labelVerdict]
	if !ok {
		return ""
	}
	if i := strings.IndexByte(span, '\n'); i >= 0 {
		span = span[:i]
	}
	return strings.Trim(span, " \t\r*")
}

// HasScoreMarker reports whether text contains the theory score marker.
func HasScoreMarker(text string) bool {
	return strings.Contains(text, ScoreMarker)
}

// HasVerdictMarker reports whether text contains the bold verdict marker.
func HasVerdictMarker(text string) bool {
	return strings.Contains(text, VerdictMarker)
}

// IsFinalReport reports whether text looks like the final interview report.
func IsFinalReport(text string) bool {
	return HasScoreMarker(text) || HasVerdictMarker(text)
}

// HasLiveCodeMarker reports whether the dialogue signalled the move to live coding.
func HasLiveCodeMarker(text string) bool {
	return strings.Contains(text, LiveCodeMarker)
}
