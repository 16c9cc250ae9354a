package services

import (
	"fmt"
	"slices"
	"strings"

	"quizgen/internal/models"
)

// NormalizeResult holds accepted questions, their paired flashcards (same
// index), and the per-item rejections.
type NormalizeResult struct {
	Questions  []models.Question
	Flashcards []models.Flashcard
	Rejections []ValidationRejection
}

// Normalize validates raw model items against req. It assigns no ids or
// timestamps, so equal inputs yield equal results. Fewer accepted items than
// req.Count fails the whole batch; extra items are dropped.
func Normalize(items []models.RawModelItem, req models.GenerationRequest) (NormalizeResult, error) {
	var result NormalizeResult

	for i, item := range items {
		q, reason := normalizeItem(item, req)
		if reason != "" {
			result.Rejections = append(result.Rejections, ValidationRejection{Index: i, Reason: reason})
			continue
		}
		result.Questions = append(result.Questions, q)
		result.Flashcards = append(result.Flashcards, models.Flashcard{
			Front:  q.QuestionText,
			Back:   q.CorrectAnswer,
			UserID: req.UserID,
			FileID: req.FileID,
		})
	}

	if len(result.Questions) < req.Count {
		return result, &InsufficientYieldError{Accepted: len(result.Questions), Requested: req.Count}
	}
	result.Questions = result.Questions[:req.Count]
	result.Flashcards = result.Flashcards[:req.Count]
	return result, nil
}

func normalizeItem(item models.RawModelItem, req models.GenerationRequest) (models.Question, string) {
	if item == nil {
		return models.Question{}, "item is not an object"
	}

	qt := req.QuestionType
	if raw, ok := item["type"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return models.Question{}, "type is not a string"
		}
		parsed, err := models.ParseQuestionType(s)
		if err != nil {
			return models.Question{}, err.Error()
		}
		qt = parsed
	}
	if qt != req.QuestionType {
		return models.Question{}, fmt.Sprintf("type %q does not match requested %q", qt, req.QuestionType)
	}

	text := strings.TrimSpace(stringField(item, "question"))
	if text == "" {
		return models.Question{}, "question is empty"
	}

	rawAnswer := stringField(item, "correct_answer")
	if strings.TrimSpace(rawAnswer) == "" {
		rawAnswer = stringField(item, "correctAnswer")
	}
	answer := strings.TrimSpace(rawAnswer)
	if answer == "" {
		return models.Question{}, "correct answer is empty"
	}

	q := models.Question{
		FileID:        req.FileID,
		UserID:        req.UserID,
		QuestionText:  text,
		Type:          qt,
		Difficulty:    req.Difficulty,
		CorrectAnswer: answer,
	}

	switch qt {
	case models.MultipleChoice:
		options, reason := multipleChoiceOptions(item["options"])
		if reason != "" {
			return models.Question{}, reason
		}
		if !slices.Contains(options, answer) {
			return models.Question{}, fmt.Sprintf("correct answer %q is not one of the options", answer)
		}
		q.Options = options
	case models.FillInBlank:
		if !strings.Contains(text, models.BlankMarker) {
			return models.Question{}, "question has no blank marker"
		}
	case models.TrueFalse:
		if rawAnswer != "True" && rawAnswer != "False" {
			return models.Question{}, fmt.Sprintf("correct answer %q is not True or False", rawAnswer)
		}
		q.Options = append([]string(nil), models.TrueFalseOptions...)
	}
	return q, ""
}

// multipleChoiceOptions trims each option the same way the answer is trimmed
// before checking distinctness.
func multipleChoiceOptions(raw any) ([]string, string) {
	list, ok := raw.([]any)
	if !ok {
		return nil, "options is not a list"
	}
	if len(list) != 4 {
		return nil, fmt.Sprintf("expected 4 options, got %d", len(list))
	}
	options := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, o := range list {
		s, ok := o.(string)
		s = strings.TrimSpace(s)
		if !ok || s == "" {
			return nil, "options must be non-empty strings"
		}
		if seen[s] {
			return nil, fmt.Sprintf("duplicate option %q", s)
		}
		seen[s] = true
		options = append(options, s)
	}
	return options, ""
}

func stringField(item models.RawModelItem, key string) string {
	s, _ := item[key].(string)
	return s
}

