package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"quizgen/internal/logger"
	"quizgen/internal/models"
	"quizgen/internal/services"
)

const maxMultipartMemory = 8 << 20 // 8 MB

const (
	defaultUserID       = "dummy_user_id"
	defaultFileID       = "dummy_file_id"
	defaultQuestionType = "mcq"
	defaultDifficulty   = "medium"
	defaultCount        = 10
)

type Server struct {
	mux        *http.ServeMux
	log        *logger.Logger
	documents  *services.DocumentService
	generator  *services.GenerationService
	questions  *services.QuestionService
	flashcards *services.FlashcardService
	jobs       *JobManager

	// Background jobs run on jobCtx and are tracked by running so shutdown
	// can drain them before the database closes.
	jobCtx     context.Context
	cancelJobs context.CancelFunc
	running    sync.WaitGroup
}

func NewServer(
	log *logger.Logger,
	documents *services.DocumentService,
	generator *services.GenerationService,
	questions *services.QuestionService,
	flashcards *services.FlashcardService,
) *Server {
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	s := &Server{
		jobCtx:     jobCtx,
		cancelJobs: cancelJobs,
		mux:        http.NewServeMux(),
		log:        log,
		documents:  documents,
		generator:  generator,
		questions:  questions,
		flashcards: flashcards,
		jobs:       NewJobManager(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return withAccessLog(s.log, s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/generate-questions", s.handleGenerateQuestions)
	s.mux.HandleFunc("/upload", s.handleGenerateQuestions)
	s.mux.HandleFunc("/api/generate/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/generate/jobs/", s.handleJobStatus)
	s.mux.HandleFunc("/api/questions", s.handleListQuestions)
	s.mux.HandleFunc("/api/questions/", s.handleQuestionActions)
	s.mux.HandleFunc("/api/flashcards", s.handleListFlashcards)
	s.mux.HandleFunc("/api/flashcards/next", s.handleGetNextCard)
	s.mux.HandleFunc("/api/flashcards/", s.handleCardActions)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the Question Generation API. Use /generate-questions to generate questions from a PDF.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// upload is a received PDF and the generation settings that came with it.
type upload struct {
	record *models.FileRecord
	params services.GenerationParams
}

// receiveUpload parses the multipart form, validates the settings and stores the file.
func (s *Server) receiveUpload(r *http.Request) (*upload, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, &services.UploadError{Reason: "invalid multipart form", Err: err}
	}
	form := r.MultipartForm
	defer form.RemoveAll()

	params, err := parseGenerationParams(r)
	if err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			// A file part sent with an empty filename lands in the value map.
			if _, ok := form.Value["file"]; ok {
				return nil, &services.UploadError{Reason: "No selected file"}
			}
			return nil, &services.UploadError{Reason: "No file part"}
		}
		return nil, &services.UploadError{Reason: "could not read uploaded file", Err: err}
	}
	defer file.Close()

	record, err := s.documents.Create(r.Context(), params.UserID, params.FileID, header.Filename, file)
	if err != nil {
		return nil, err
	}
	return &upload{record: record, params: params}, nil
}

func parseGenerationParams(r *http.Request) (services.GenerationParams, error) {
	params := services.GenerationParams{
		UserID: formValue(r, "userId", defaultUserID),
		FileID: formValue(r, "fileId", defaultFileID),
		Count:  defaultCount,
	}

	qt, err := models.ParseQuestionType(formValue(r, "questionType", defaultQuestionType))
	if err != nil {
		return params, &services.InvalidRequestError{Err: err}
	}
	params.QuestionType = qt

	difficulty, err := models.ParseDifficulty(formValue(r, "difficulty", defaultDifficulty))
	if err != nil {
		return params, &services.InvalidRequestError{Err: err}
	}
	params.Difficulty = difficulty

	if raw := strings.TrimSpace(r.FormValue("count")); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return params, &services.InvalidRequestError{Err: fmt.Errorf("count must be an integer, got %q", raw)}
		}
		params.Count = count
	}
	return params, nil
}

func formValue(r *http.Request, key, fallback string) string {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		return v
	}
	return fallback
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	up, err := s.receiveUpload(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	result, err := s.generator.GenerateFromFile(r.Context(), up.record.StoredPath, up.params, nil)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	up, err := s.receiveUpload(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	jobID, snapshot := s.jobs.CreateJob(up.record.FileName)
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.runGenerationJob(s.jobCtx, jobID, up)
	}()

	writeJSON(w, http.StatusAccepted, snapshot)
}

// WaitForJobs blocks until running generation jobs finish. When ctx ends
// first the jobs are cancelled and WaitForJobs still waits for them to return.
func (s *Server) WaitForJobs(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.cancelJobs()
		<-done
		return ctx.Err()
	}
}

func (s *Server) runGenerationJob(ctx context.Context, jobID string, up *upload) {
	s.jobs.MarkProcessing(jobID)
	progress := func(step, message string, current, total int) {
		s.jobs.UpdateProgress(jobID, step, message, current, total)
	}

	result, err := s.generator.GenerateFromFile(ctx, up.record.StoredPath, up.params, progress)
	if err != nil {
		s.log.Warn("generation job failed", "jobId", jobID, "error", err)
		s.jobs.MarkFailed(jobID, err.Error())
		return
	}
	s.jobs.MarkComplete(jobID, result)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	jobID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/generate/jobs/"), "/")
	if jobID == "" {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, ok := s.jobs.GetJob(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	questions, err := s.questions.List(r.Context(), userID, strings.TrimSpace(r.URL.Query().Get("fileId")))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) handleQuestionActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/questions/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "answer" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var payload answerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(payload.Answer) == "" {
		writeError(w, http.StatusBadRequest, "answer is required")
		return
	}

	question, err := s.questions.SubmitAnswer(r.Context(), parts[0], payload.Answer)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"question": question})
}

func (s *Server) handleListFlashcards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	cards, err := s.flashcards.List(r.Context(), userID, strings.TrimSpace(r.URL.Query().Get("fileId")))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"flashcards": cards,
		"total":      len(cards),
	})
}

func (s *Server) handleGetNextCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	card, err := s.flashcards.NextCard(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNoDueCards) {
			writeJSON(w, http.StatusOK, map[string]any{
				"card":    nil,
				"message": "No cards due. Come back later!",
			})
			return
		}
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"card": card})
}

type reviewRequest struct {
	Rating string `json:"rating"`
}

func (s *Server) handleCardActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/flashcards/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "review" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var payload reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	rating, err := services.ParseRating(payload.Rating)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, logEntry, err := s.flashcards.ReviewCard(r.Context(), parts[0], rating)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"card": card,
		"log":  logEntry,
	})
}

// writeServiceError maps pipeline and service errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var upErr *services.UploadError
	var invErr *services.InvalidRequestError
	switch {
	case errors.As(err, &upErr), errors.As(err, &invErr):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrQuestionNotFound), errors.Is(err, services.ErrFlashcardNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
