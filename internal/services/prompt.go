package services

import (
	"fmt"
	"strings"

	"quizgen/internal/models"
)

const defaultMaxPromptChars = 12000

var shapeExamples = map[models.QuestionType]string{
	models.MultipleChoice: `[
  {
    "type": "mcq",
    "question": "Which protocol is used to send email?",
    "options": ["SMTP", "FTP", "SSH", "DNS"],
    "correct_answer": "SMTP"
  }
]`,
	models.FillInBlank: `[
  {
    "type": "fill_in_blank",
    "question": "The powerhouse of the cell is the ____.",
    "correct_answer": "mitochondria"
  }
]`,
	models.TrueFalse: `[
  {
    "type": "true_false",
    "question": "Water boils at 100 degrees Celsius at sea level.",
    "correct_answer": "True"
  }
]`,
}

var typeRules = map[models.QuestionType]string{
	models.MultipleChoice: `- Every item must have exactly 4 distinct options.
- "correct_answer" must be copied verbatim from one of the options (the text, not its number).`,
	models.FillInBlank: `- Every "question" must contain the blank marker ____ (four underscores) where the answer goes.
- "correct_answer" is the word or short phrase that fills the blank.
- Do not include an "options" field.`,
	models.TrueFalse: `- Every "question" must be a statement that is either true or false.
- "correct_answer" must be exactly "True" or "False".
- Do not include an "options" field.`,
}

var typeNames = map[models.QuestionType]string{
	models.MultipleChoice: "multiple-choice",
	models.FillInBlank:    "fill-in-the-blank",
	models.TrueFalse:      "true/false",
}

// BuildPrompt renders the model instruction for req. maxChars bounds the
// source text in runes; values <= 0 use the default.
func BuildPrompt(req models.GenerationRequest, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultMaxPromptChars
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate exactly %d %s questions of %s difficulty from the following text.\n\n",
		req.Count, typeNames[req.QuestionType], req.Difficulty))

	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Every item must have \"type\": %q.\n", string(req.QuestionType)))
	sb.WriteString("- Every item must have a non-empty \"question\" and \"correct_answer\".\n")
	sb.WriteString(typeRules[req.QuestionType])
	sb.WriteString("\n- Questions must be answerable from the text alone.\n\n")

	sb.WriteString("Use exactly this JSON shape:\n")
	sb.WriteString(shapeExamples[req.QuestionType])
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Respond ONLY with a JSON array of %d items. ", req.Count))
	sb.WriteString("Do not add any explanation, prose, or markdown code fences.\n\n")

	sb.WriteString("Text:\n")
	sb.WriteString(sanitizeForPrompt(req.Text, maxChars))
	sb.WriteString("\n")
	return sb.String()
}

func sanitizeForPrompt(input string, limit int) string {
	collapsed := strings.Join(strings.Fields(strings.TrimSpace(input)), " ")
	if limit <= 0 {
		return collapsed
	}
	runes := []rune(collapsed)
	if len(runes) <= limit {
		return collapsed
	}
	if limit > 3 {
		return string(runes[:limit-3]) + "..."
	}
	return string(runes[:limit])
}
