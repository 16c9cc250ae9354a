package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"quizgen/internal/logger"
	"quizgen/internal/models"
	"quizgen/internal/store"
)

var (
	// ErrQuestionNotFound is returned for unknown question ids.
	ErrQuestionNotFound = errors.New("question not found")
)

// PersistResult lists what was durably written, in input order.
type PersistResult struct {
	Questions  []models.Question
	Flashcards []models.Flashcard
	Failures   []PersistenceError
}

// QuestionService persists generated questions and tracks answers to them.
type QuestionService struct {
	docs DocumentStore
	log  *logger.Logger
	now  func() time.Time
}

func NewQuestionService(docs DocumentStore, log *logger.Logger) *QuestionService {
	return &QuestionService{docs: docs, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Persist writes each question under a fresh UUID and each paired flashcard
// under an auto id. Writes are independent: a failed document is logged and
// skipped, and a flashcard is only written once its question is. The call
// fails only when no question could be written.
func (s *QuestionService) Persist(ctx context.Context, userID, fileID string, questions []models.Question, flashcards []models.Flashcard) (PersistResult, error) {
	var result PersistResult
	now := s.now()

	for i, q := range questions {
		q.ID = uuid.NewString()
		q.UserID = userID
		q.FileID = fileID
		q.CreatedAt = now
		if err := s.docs.Set(ctx, store.Questions, q.ID, q); err != nil {
			s.fail(&result, store.Questions, i, err)
			continue
		}
		result.Questions = append(result.Questions, q)
		s.log.Debug("question stored", "questionId", q.ID, "userId", userID, "fileId", fileID)

		if i >= len(flashcards) {
			continue
		}
		fc := flashcards[i]
		fc.UserID = userID
		fc.FileID = fileID
		fc.CreatedAt = now
		fc.Due = now
		fc.State = int(fsrs.New)
		id, err := s.docs.Add(ctx, store.Flashcards, fc)
		if err != nil {
			s.fail(&result, store.Flashcards, i, err)
			continue
		}
		fc.ID = id
		result.Flashcards = append(result.Flashcards, fc)
	}

	if len(questions) > 0 && len(result.Questions) == 0 {
		errs := make([]error, 0, len(result.Failures))
		for i := range result.Failures {
			errs = append(errs, &result.Failures[i])
		}
		return result, &PersistenceError{Collection: store.Questions, Index: -1, Err: errors.Join(errs...)}
	}
	return result, nil
}

func (s *QuestionService) fail(result *PersistResult, collection string, index int, err error) {
	pe := PersistenceError{Collection: collection, Index: index, Err: err}
	result.Failures = append(result.Failures, pe)
	s.log.Warn("document write failed", "collection", collection, "index", index, "error", err)
}

// List returns the questions of a user, optionally narrowed to one file.
func (s *QuestionService) List(ctx context.Context, userID, fileID string) ([]models.Question, error) {
	filters := []store.Filter{{Field: "userId", Value: userID}}
	if fileID != "" {
		filters = append(filters, store.Filter{Field: "fileId", Value: fileID})
	}
	docs, err := s.docs.Find(ctx, store.Questions, filters, 0)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	out := make([]models.Question, 0, len(docs))
	for _, doc := range docs {
		var q models.Question
		if err := json.Unmarshal(doc.Data, &q); err != nil {
			return nil, fmt.Errorf("decode question %s: %w", doc.ID, err)
		}
		q.ID = doc.ID
		out = append(out, q)
	}
	return out, nil
}

// SubmitAnswer records a user's answer. Fill-in-blank answers compare
// case-insensitively; the other types must match exactly.
func (s *QuestionService) SubmitAnswer(ctx context.Context, questionID, answer string) (*models.Question, error) {
	var q models.Question
	if err := s.docs.Get(ctx, store.Questions, questionID, &q); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("load question %s: %w", questionID, err)
	}
	q.ID = questionID

	answer = strings.TrimSpace(answer)
	now := s.now()
	q.UserAnswer = answer
	q.AnsweredAt = &now
	if q.Type == models.FillInBlank {
		q.IsCorrect = strings.EqualFold(answer, q.CorrectAnswer)
	} else {
		q.IsCorrect = answer == q.CorrectAnswer
	}

	if err := s.docs.Update(ctx, store.Questions, questionID, q); err != nil {
		return nil, fmt.Errorf("update question %s: %w", questionID, err)
	}
	return &q, nil
}
