package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"quizgen/internal/logger"
	"quizgen/internal/models"
)

func mcqReply(t *testing.T, n int) string {
	t.Helper()
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"type":           "mcq",
			"question":       fmt.Sprintf("Question %d?", i),
			"options":        []string{"A", "B", "C", "D"},
			"correct_answer": "C",
		})
	}
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatal(err)
	}
	return "Here you go:\n```json\n" + string(data) + "\n```"
}

func newGeneration(t *testing.T, text string, model *fakeModel) *GenerationService {
	t.Helper()
	sink := NewQuestionService(newTestStore(t), logger.Nop())
	return NewGenerationService(fakeExtractor{text: text}, model, sink, logger.Nop(), 0)
}

func genParams(count int) GenerationParams {
	return GenerationParams{
		UserID:       "u1",
		FileID:       "f1",
		QuestionType: models.MultipleChoice,
		Difficulty:   models.Medium,
		Count:        count,
	}
}

func TestGenerateFromFileSuccess(t *testing.T) {
	model := &fakeModel{reply: mcqReply(t, 3)}
	svc := newGeneration(t, "The cell is the unit of life.", model)

	var steps []string
	res, err := svc.GenerateFromFile(context.Background(), "doc.pdf", genParams(3), func(step, message string, current, total int) {
		steps = append(steps, step)
	})
	if err != nil {
		t.Fatalf("GenerateFromFile: %v", err)
	}
	if len(res.Questions) != 3 || len(res.Flashcards) != 3 {
		t.Fatalf("expected 3/3, got %d/%d", len(res.Questions), len(res.Flashcards))
	}
	for i, q := range res.Questions {
		if q.ID == "" || q.UserID != "u1" || q.FileID != "f1" {
			t.Errorf("question %d not tagged: %+v", i, q)
		}
		if res.Flashcards[i].Front != q.QuestionText || res.Flashcards[i].Back != "C" {
			t.Errorf("flashcard %d does not mirror question", i)
		}
	}
	if model.calls != 1 || !strings.Contains(model.last, "The cell is the unit of life.") {
		t.Error("model should be called once with the extracted text")
	}
	if steps[0] != "extract" || steps[len(steps)-1] != "complete" {
		t.Errorf("unexpected progress steps %v", steps)
	}
}

func TestGenerateEmptyTextSkipsModel(t *testing.T) {
	model := &fakeModel{reply: "[]"}
	svc := newGeneration(t, "  \n\t ", model)

	_, err := svc.GenerateFromFile(context.Background(), "doc.pdf", genParams(1), nil)
	var upErr *UploadError
	if !errors.As(err, &upErr) || !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected UploadError for empty text, got %v", err)
	}
	if model.calls != 0 {
		t.Errorf("model must not be invoked, got %d calls", model.calls)
	}
}

func TestGenerateExtractorFailure(t *testing.T) {
	model := &fakeModel{}
	sink := NewQuestionService(newTestStore(t), logger.Nop())
	svc := NewGenerationService(fakeExtractor{err: errors.New("corrupt")}, model, sink, logger.Nop(), 0)

	_, err := svc.GenerateFromFile(context.Background(), "doc.pdf", genParams(1), nil)
	var upErr *UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if model.calls != 0 {
		t.Error("model must not be invoked")
	}
}

func TestGenerateInvalidRequest(t *testing.T) {
	model := &fakeModel{}
	svc := newGeneration(t, "text", model)

	p := genParams(0)
	_, err := svc.GenerateFromFile(context.Background(), "doc.pdf", p, nil)
	var invErr *InvalidRequestError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvalidRequestError, got %v", err)
	}

	p = genParams(1)
	p.QuestionType = "essay"
	if _, err := svc.GenerateFromFile(context.Background(), "doc.pdf", p, nil); !errors.As(err, &invErr) {
		t.Fatalf("expected InvalidRequestError for unknown type, got %v", err)
	}
	if model.calls != 0 {
		t.Error("model must not be invoked for invalid requests")
	}
}

func TestGeneratePropagatesPipelineErrors(t *testing.T) {
	cases := []struct {
		name  string
		model *fakeModel
		check func(error) bool
	}{
		{"upstream", &fakeModel{err: &UpstreamError{StatusCode: 502, Err: errors.New("bad gateway")}}, func(err error) bool {
			var e *UpstreamError
			return errors.As(err, &e) && e.StatusCode == 502
		}},
		{"extraction", &fakeModel{reply: "I cannot help with that."}, func(err error) bool {
			var e *ExtractionError
			return errors.As(err, &e)
		}},
		{"parse", &fakeModel{reply: "[{'question': 'single quotes'}]"}, func(err error) bool {
			var e *ParseError
			return errors.As(err, &e)
		}},
		{"yield", &fakeModel{reply: mcqReply(t, 7)}, func(err error) bool {
			var e *InsufficientYieldError
			return errors.As(err, &e) && e.Accepted == 7 && e.Requested == 10
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newGeneration(t, "some text", tc.model)
			res, err := svc.GenerateFromFile(context.Background(), "doc.pdf", genParams(10), nil)
			if res != nil {
				t.Error("no partial results should be returned")
			}
			if !tc.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestGenerateYieldFailureWritesNothing(t *testing.T) {
	docs := newTestStore(t)
	sink := NewQuestionService(docs, logger.Nop())
	svc := NewGenerationService(fakeExtractor{text: "text"}, &fakeModel{reply: mcqReply(t, 2)}, sink, logger.Nop(), 0)

	if _, err := svc.GenerateFromFile(context.Background(), "doc.pdf", genParams(5), nil); err == nil {
		t.Fatal("expected error")
	}
	stored, err := sink.List(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("expected nothing stored, got %d", len(stored))
	}
}
