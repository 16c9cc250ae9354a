package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"quizgen/internal/logger"
	"quizgen/internal/models"
)

// ProgressCallback is called during generation to report progress.
type ProgressCallback func(step, message string, current, total int)

// Persister writes accepted questions and flashcards.
type Persister interface {
	Persist(ctx context.Context, userID, fileID string, questions []models.Question, flashcards []models.Flashcard) (PersistResult, error)
}

// GenerationParams are the caller-chosen settings of a generation request.
type GenerationParams struct {
	UserID       string
	FileID       string
	QuestionType models.QuestionType
	Difficulty   models.Difficulty
	Count        int
}

// GenerationResult is what a successful request returns.
type GenerationResult struct {
	Questions  []models.Question  `json:"questions"`
	Flashcards []models.Flashcard `json:"flashcards"`
}

// GenerationService runs extract -> prompt -> model -> parse -> normalize -> persist.
type GenerationService struct {
	pdf            TextExtractor
	model          Completer
	sink           Persister
	validate       *validator.Validate
	log            *logger.Logger
	maxPromptChars int
}

func NewGenerationService(pdf TextExtractor, model Completer, sink Persister, log *logger.Logger, maxPromptChars int) *GenerationService {
	return &GenerationService{
		pdf:            pdf,
		model:          model,
		sink:           sink,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		log:            log,
		maxPromptChars: maxPromptChars,
	}
}

// GenerateFromFile extracts the text of a stored PDF and generates from it.
func (s *GenerationService) GenerateFromFile(ctx context.Context, path string, params GenerationParams, progress ProgressCallback) (*GenerationResult, error) {
	report(progress, "extract", "Extracting text from PDF", 0)

	text, err := s.pdf.ExtractText(path)
	if err != nil {
		return nil, &UploadError{Reason: "could not read PDF", Err: err}
	}

	req := models.GenerationRequest{
		Text:         text,
		UserID:       params.UserID,
		FileID:       params.FileID,
		QuestionType: params.QuestionType,
		Difficulty:   params.Difficulty,
		Count:        params.Count,
	}
	return s.Generate(ctx, req, progress)
}

// Generate runs the pipeline for already extracted text. Whitespace-only text
// is rejected before the model is called.
func (s *GenerationService) Generate(ctx context.Context, req models.GenerationRequest, progress ProgressCallback) (*GenerationResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &UploadError{Reason: ErrEmptyText.Error(), Err: ErrEmptyText}
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, &InvalidRequestError{Err: err}
	}

	log := s.log.With("userId", req.UserID, "fileId", req.FileID, "questionType", req.QuestionType)

	report(progress, "prompt", "Requesting questions from model", 10)
	prompt := BuildPrompt(req, s.maxPromptChars)
	raw, err := s.model.Complete(ctx, prompt)
	if err != nil {
		log.Error("model call failed", "error", err)
		return nil, err
	}
	log.Debug("model response received", "chars", len(raw))

	report(progress, "parse", "Parsing model response", 60)
	arr, err := ExtractJSONArray(raw)
	if err != nil {
		log.Error("no JSON array in model response", "raw", raw)
		return nil, err
	}
	items, err := ParseItems(arr)
	if err != nil {
		log.Error("model JSON did not parse", "error", err)
		return nil, err
	}

	report(progress, "validate", "Validating questions", 70)
	normalized, err := Normalize(items, req)
	for _, rej := range normalized.Rejections {
		log.Warn("skipping invalid question", "index", rej.Index, "reason", rej.Reason)
	}
	if err != nil {
		log.Error("insufficient question yield", "error", err)
		return nil, err
	}

	report(progress, "save", "Saving questions and flashcards", 80)
	persisted, err := s.sink.Persist(ctx, req.UserID, req.FileID, normalized.Questions, normalized.Flashcards)
	if err != nil {
		return nil, fmt.Errorf("save generated questions: %w", err)
	}
	log.Info("questions generated",
		"requested", req.Count,
		"proposed", len(items),
		"stored", len(persisted.Questions),
		"failedWrites", len(persisted.Failures),
	)

	report(progress, "complete", "Generation complete", 100)
	return &GenerationResult{Questions: persisted.Questions, Flashcards: persisted.Flashcards}, nil
}

func report(progress ProgressCallback, step, message string, pct int) {
	if progress != nil {
		progress(step, message, pct, 100)
	}
}
