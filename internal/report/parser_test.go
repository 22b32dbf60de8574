package report

import (
	"reflect"
	"strings"
	"testing"
)

const sampleReport = "**Теория:** 72/100\n**Практика:** 65/100\n**Сильные стороны:**\n- Знание Python\n- Чистый код\n**Зоны роста:**\n- Алгоритмы\n**Вердикт:** Рекомендован к Middle"

func TestParseFullReport(t *testing.T) {
	t.Parallel()

	got := Parse(sampleReport)

	if got.TheoryScore != 72 || got.PracticeScore != 65 {
		t.Fatalf("scores = %d/%d, want 72/65", got.TheoryScore, got.PracticeScore)
	}
	if want := []string{"Знание Python", "Чистый код"}; !reflect.DeepEqual(got.Strengths, want) {
		t.Fatalf("Strengths = %q, want %q", got.Strengths, want)
	}
	if want := []string{"Алгоритмы"}; !reflect.DeepEqual(got.GrowthAreas, want) {
		t.Fatalf("GrowthAreas = %q, want %q", got.GrowthAreas, want)
	}
	if got.Verdict != "Рекомендован к Middle" {
		t.Fatalf("Verdict = %q", got.Verdict)
	}
	if got.RawText != sampleReport {
		t.Fatal("RawText does not preserve input")
	}
}

func TestParseScores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		theory   int
		practice int
	}{
		{name: "plain labels", text: "Теория: 40\nПрактика: 55", theory: 40, practice: 55},
		{name: "lowercase", text: "теория 12, практика 7", theory: 12, practice: 7},
		{name: "bold colon outside", text: "**Теория**: 90\n**Практика**: 10", theory: 90, practice: 10},
		{name: "clamped", text: "Теория: 150\nПрактика: 999999999999999999999", theory: 100, practice: 100},
		{name: "missing practice", text: "Теория: 30", theory: 30, practice: 0},
		{name: "label without digits", text: "Теория: нет данных\nПрактика: 20", theory: 0, practice: 20},
		{name: "no labels", text: "просто текст 42", theory: 0, practice: 0},
		{name: "labels mentioned in prose first", text: "Хорошая теория, слабее практика.\nТеория: 80\nПрактика: 60\nВердикт: Middle", theory: 80, practice: 60},
		{name: "bold prose mention", text: "Сильная **теория** и слабая практика\n**Теория:** 45\n**Практика:** 30", theory: 45, practice: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.text)
			if got.TheoryScore != tt.theory || got.PracticeScore != tt.practice {
				t.Fatalf("Parse(%q) scores = %d/%d, want %d/%d", tt.text, got.TheoryScore, got.PracticeScore, tt.theory, tt.practice)
			}
		})
	}
}

func TestParseListsDropShortFragments(t *testing.T) {
	t.Parallel()

	got := Parse("Сильные стороны: ок — хорошая структура • тесты * да\nЗоны роста:")
	want := []string{"хорошая структура", "тесты"}
	if !reflect.DeepEqual(got.Strengths, want) {
		t.Fatalf("Strengths = %q, want %q", got.Strengths, want)
	}
	if got.GrowthAreas == nil || len(got.GrowthAreas) != 0 {
		t.Fatalf("GrowthAreas = %#v, want empty non-nil", got.GrowthAreas)
	}
}

func TestParseListsIgnoreLabelWordsInProse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		strengths []string
		verdict   string
	}{
		{
			name:      "markdown list",
			text:      "**Теория:** 70\n**Сильные стороны:**\n- хорошая теория алгоритмов\n- чистый код\n**Зоны роста:**\n- практика на задачах\n**Вердикт:** Middle",
			strengths: []string{"хорошая теория алгоритмов", "чистый код"},
			verdict:   "Middle",
		},
		{
			name:      "label opening a line without colon",
			text:      "Сильные стороны\nтесты, структура\nВердикт\nJunior",
			strengths: []string{"тесты, структура"},
			verdict:   "",
		},
		{
			name:      "inflected word is not a label",
			text:      "Сильные стороны: близок к практикам команды\nВердикт: Senior",
			strengths: []string{"близок к практикам команды"},
			verdict:   "Senior",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.text)
			if !reflect.DeepEqual(got.Strengths, tt.strengths) {
				t.Fatalf("Strengths = %q, want %q", got.Strengths, tt.strengths)
			}
			if got.Verdict != tt.verdict {
				t.Fatalf("Verdict = %q, want %q", got.Verdict, tt.verdict)
			}
		})
	}
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()

	got := Parse("")
	if got.TheoryScore != 0 || got.PracticeScore != 0 || got.Verdict != "" {
		t.Fatalf("Parse(\"\") = %+v", got)
	}
	if got.Strengths == nil || got.GrowthAreas == nil {
		t.Fatal("lists must be non-nil")
	}
}

func TestParseVerdictStopsAtNewline(t *testing.T) {
	t.Parallel()

	got := Parse("Вердикт: **Не рекомендован**\nспасибо за интервью")
	if got.Verdict != "Не рекомендован" {
		t.Fatalf("Verdict = %q", got.Verdict)
	}
}

func TestMarkers(t *testing.T) {
	t.Parallel()

	if !IsFinalReport("итог\nТеория: 10") || !IsFinalReport("**Вердикт:** да") {
		t.Fatal("final report markers not detected")
	}
	if IsFinalReport("Вердикт: да") {
		t.Fatal("plain verdict must not count as the bold marker")
	}
	if !HasLiveCodeMarker("Отлично! Можем переходить к секции live-code.") {
		t.Fatal("live-code marker not detected")
	}
}

func FuzzParse(f *testing.F) {
	f.Add(sampleReport)
	f.Add("")
	f.Add("Теория:Практика:Вердикт:")
	f.Add("**Сильные стороны:**—•-*\n")

	f.Fuzz(func(t *testing.T, text string) {
		got := Parse(text)
		if got.RawText != text {
			t.Fatal("RawText changed")
		}
		if got.TheoryScore < 0 || got.TheoryScore > 100 || got.PracticeScore < 0 || got.PracticeScore > 100 {
			t.Fatalf("scores out of range: %d/%d", got.TheoryScore, got.PracticeScore)
		}
		for _, s := range append(got.Strengths, got.GrowthAreas...) {
			if len([]rune(s)) <= 2 || strings.TrimSpace(s) != s {
				t.Fatalf("bad list item %q", s)
			}
		}
		if strings.Contains(got.Verdict, "\n") {
			t.Fatalf("verdict spans lines: %q", got.Verdict)
		}
	})
}
