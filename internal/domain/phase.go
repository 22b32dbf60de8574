package domain

import (
	"fmt"
	"strings"
)

// Phase is the coarse stage of an interview session.
type Phase string

// Interview phases in the order a session normally visits them.
const (
	PhaseIntro           Phase = "intro"
	PhaseLevelSelect     Phase = "level_select"
	PhaseLanguageSelect  Phase = "language_select"
	PhasePracticeConfirm Phase = "practice_confirm"
	PhaseCoding          Phase = "coding"
	PhaseResults         Phase = "results"
	PhaseAborted         Phase = "aborted"
)

// Guarded reports whether focus loss counts as a violation in this phase
// while the task panel is open.
func (p Phase) Guarded() bool {
	return p == PhaseCoding || p == PhasePracticeConfirm
}

// Level is the difficulty chosen by the candidate.
type Level int

// Supported difficulty levels.
const (
	LevelJunior Level = 1
	LevelMiddle Level = 2
	LevelSenior Level = 3
	LevelExpert Level = 4
)

var levelNames = map[Level]string{
	LevelJunior: "Junior",
	LevelMiddle: "Middle",
	LevelSenior: "Senior",
	LevelExpert: "Expert",
}

// Valid reports whether l is one of the four supported levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// Name returns the display name of the level.
func (l Level) Name() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Language is the programming language chosen for the practical section.
type Language string

// Supported languages.
const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
	LanguageCpp        Language = "cpp"
)

// ParseLanguage normalizes s and validates it against the supported set.
func ParseLanguage(s string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	switch lang {
	case LanguagePython, LanguageJavaScript, LanguageJava, LanguageCpp:
		return lang, nil
	default:
		return "", fmt.Errorf("unsupported language %q", s)
	}
}
