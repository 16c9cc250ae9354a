package services

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"testing"

	"quizgen/internal/models"
)

func request(qt models.QuestionType, count int) models.GenerationRequest {
	return models.GenerationRequest{
		Text:         "source",
		UserID:       "u1",
		FileID:       "f1",
		QuestionType: qt,
		Difficulty:   models.Medium,
		Count:        count,
	}
}

func mcqItem(n int) models.RawModelItem {
	return models.RawModelItem{
		"type":           "mcq",
		"question":       fmt.Sprintf("  Question %d?  ", n),
		"options":        []any{"A", "B", "C", "D"},
		"correct_answer": "B",
	}
}

func TestNormalizeMultipleChoice(t *testing.T) {
	items := []models.RawModelItem{
		mcqItem(1),
		{"question": "No type field", "options": []any{"w", "x", "y", "z"}, "correctAnswer": "z"},
		{"question": "Three options", "options": []any{"A", "B", "C"}, "correct_answer": "A"},
		{"question": "Duplicate", "options": []any{"A", "A", "C", "D"}, "correct_answer": "A"},
		{"question": "Answer missing", "options": []any{"A", "B", "C", "D"}, "correct_answer": "E"},
		{"question": "Index answer", "options": []any{"A", "B", "C", "D"}, "correct_answer": 2},
		{"type": "true_false", "question": "Wrong type", "correct_answer": "True"},
		{"question": "   ", "options": []any{"A", "B", "C", "D"}, "correct_answer": "A"},
		nil,
		{"question": "Whitespace duplicate", "options": []any{"A", "A ", "B", "C"}, "correct_answer": "B"},
		{"question": "Which protocol sends mail?", "options": []any{"SMTP ", "FTP", "SSH", "DNS"}, "correct_answer": "SMTP "},
	}

	res, err := Normalize(items, request(models.MultipleChoice, 3))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(res.Questions) != 3 || len(res.Flashcards) != 3 {
		t.Fatalf("expected 3 accepted, got %d questions / %d flashcards", len(res.Questions), len(res.Flashcards))
	}
	if len(res.Rejections) != 8 {
		t.Errorf("expected 8 rejections, got %d: %+v", len(res.Rejections), res.Rejections)
	}
	if smtp := res.Questions[2]; smtp.CorrectAnswer != "SMTP" || smtp.Options[0] != "SMTP" || res.Flashcards[2].Back != "SMTP" {
		t.Errorf("options and answer should be trimmed alike, got %q in %q", smtp.CorrectAnswer, smtp.Options)
	}

	for _, q := range res.Questions {
		if q.Type != models.MultipleChoice {
			t.Errorf("unexpected type %q", q.Type)
		}
		if len(q.Options) != 4 || !slices.Contains(q.Options, q.CorrectAnswer) {
			t.Errorf("answer %q not among options %v", q.CorrectAnswer, q.Options)
		}
		if q.UserAnswer != "" || q.IsCorrect || q.AnsweredAt != nil {
			t.Error("answer-tracking fields must start empty")
		}
	}
	if res.Questions[0].QuestionText != "Question 1?" {
		t.Errorf("question text should be trimmed, got %q", res.Questions[0].QuestionText)
	}
	if res.Questions[1].CorrectAnswer != "z" {
		t.Errorf("camelCase correctAnswer should be read, got %q", res.Questions[1].CorrectAnswer)
	}
}

func TestNormalizeFillInBlank(t *testing.T) {
	items := []models.RawModelItem{
		{"type": "fill_in_blank", "question": "The capital of France is ____.", "correct_answer": "Paris", "options": []any{"x"}},
		{"type": "fill_in_blank", "question": "No blank here.", "correct_answer": "Paris"},
		{"type": "Fill in the blank", "question": "Go was created at ____.", "correct_answer": "Google"},
	}

	res, err := Normalize(items, request(models.FillInBlank, 2))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for i, q := range res.Questions {
		if !strings.Contains(q.QuestionText, models.BlankMarker) {
			t.Errorf("question %d lacks blank marker: %q", i, q.QuestionText)
		}
		if q.Options != nil {
			t.Errorf("fill-in-blank questions carry no options, got %v", q.Options)
		}
		if res.Flashcards[i].Front != q.QuestionText || res.Flashcards[i].Back != q.CorrectAnswer {
			t.Errorf("flashcard %d does not mirror its question", i)
		}
	}
}

func TestNormalizeTrueFalse(t *testing.T) {
	items := []models.RawModelItem{
		{"type": "true_false", "question": "The sky is blue.", "correct_answer": "True", "options": []any{"Yes", "No"}},
		{"type": "true_false", "question": "Fire is cold.", "correct_answer": "False"},
		{"type": "true_false", "question": "Lowercase answer.", "correct_answer": "true"},
		{"type": "true_false", "question": "Bool answer.", "correct_answer": true},
		{"type": "true_false", "question": "Padded answer.", "correct_answer": " True\n"},
	}

	res, err := Normalize(items, request(models.TrueFalse, 2))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(res.Rejections) != 3 {
		t.Errorf("expected 3 rejections, got %d", len(res.Rejections))
	}
	if res.Rejections[2].Index != 4 {
		t.Errorf("padded answer should be rejected, got rejections %+v", res.Rejections)
	}
	for _, q := range res.Questions {
		if !reflect.DeepEqual(q.Options, []string{"True", "False"}) {
			t.Errorf("options must be [True False], got %v", q.Options)
		}
		if !slices.Contains(q.Options, q.CorrectAnswer) {
			t.Errorf("answer %q not among options", q.CorrectAnswer)
		}
	}
}

func TestNormalizeInsufficientYield(t *testing.T) {
	var items []models.RawModelItem
	for i := 0; i < 7; i++ {
		items = append(items, mcqItem(i))
	}
	items = append(items, models.RawModelItem{"question": "bad", "options": []any{"A"}, "correct_answer": "A"})

	_, err := Normalize(items, request(models.MultipleChoice, 10))
	var yieldErr *InsufficientYieldError
	if !errors.As(err, &yieldErr) {
		t.Fatalf("expected InsufficientYieldError, got %v", err)
	}
	if yieldErr.Accepted != 7 || yieldErr.Requested != 10 {
		t.Errorf("expected 7/10, got %d/%d", yieldErr.Accepted, yieldErr.Requested)
	}
}

func TestNormalizeTruncatesSurplus(t *testing.T) {
	items := []models.RawModelItem{mcqItem(1), mcqItem(2), mcqItem(3)}
	res, err := Normalize(items, request(models.MultipleChoice, 2))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(res.Questions) != 2 || len(res.Flashcards) != 2 {
		t.Errorf("expected surplus dropped, got %d/%d", len(res.Questions), len(res.Flashcards))
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	items := []models.RawModelItem{mcqItem(1), mcqItem(2), {"question": "bad"}}
	req := request(models.MultipleChoice, 2)

	first, err := Normalize(items, req)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	second, err := Normalize(items, req)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Normalize should be deterministic for equal inputs")
	}
}
