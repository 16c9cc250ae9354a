package services

import (
	"strings"
	"testing"

	"quizgen/internal/models"
)

func TestBuildPromptPerType(t *testing.T) {
	cases := []struct {
		qt   models.QuestionType
		want []string
	}{
		{models.MultipleChoice, []string{"exactly 4 distinct options", `"options": ["SMTP"`}},
		{models.FillInBlank, []string{"____", `"type": "fill_in_blank"`}},
		{models.TrueFalse, []string{`exactly "True" or "False"`, `"type": "true_false"`}},
	}

	for _, tc := range cases {
		t.Run(string(tc.qt), func(t *testing.T) {
			req := models.GenerationRequest{
				Text:         "Cells   contain\n\nmitochondria.",
				QuestionType: tc.qt,
				Difficulty:   models.Hard,
				Count:        7,
			}
			prompt := BuildPrompt(req, 0)

			for _, w := range tc.want {
				if !strings.Contains(prompt, w) {
					t.Errorf("prompt missing %q", w)
				}
			}
			if !strings.Contains(prompt, "exactly 7") || !strings.Contains(prompt, "hard difficulty") {
				t.Error("prompt must state count and difficulty")
			}
			if !strings.Contains(prompt, "ONLY with a JSON array") {
				t.Error("prompt must demand a bare JSON array")
			}
			if !strings.Contains(prompt, "Cells contain mitochondria.") {
				t.Error("source text should be whitespace-collapsed")
			}
		})
	}
}

func TestBuildPromptTruncatesText(t *testing.T) {
	req := models.GenerationRequest{
		Text:         strings.Repeat("a", 100),
		QuestionType: models.MultipleChoice,
		Difficulty:   models.Easy,
		Count:        1,
	}
	prompt := BuildPrompt(req, 20)
	if !strings.Contains(prompt, strings.Repeat("a", 17)+"...") {
		t.Error("expected truncated text with ellipsis")
	}
	if strings.Contains(prompt, strings.Repeat("a", 18)) {
		t.Error("text was not truncated")
	}
}
