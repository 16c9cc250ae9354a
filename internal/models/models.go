package models

import (
	"fmt"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "mcq"
	FillInBlank    QuestionType = "fill_in_blank"
	TrueFalse      QuestionType = "true_false"
)

// BlankMarker must appear verbatim in every fill-in-blank question.
const BlankMarker = "____"

var questionTypeAliases = map[string]QuestionType{
	"mcq":               MultipleChoice,
	"multiple_choice":   MultipleChoice,
	"multiple choice":   MultipleChoice,
	"multiplechoice":    MultipleChoice,
	"fill_in_blank":     FillInBlank,
	"fill_in_the_blank": FillInBlank,
	"fill in the blank": FillInBlank,
	"fill-in-the-blank": FillInBlank,
	"fillinblank":       FillInBlank,
	"fib":               FillInBlank,
	"true_false":        TrueFalse,
	"true/false":        TrueFalse,
	"true or false":     TrueFalse,
	"truefalse":         TrueFalse,
	"tf":                TrueFalse,
}

// ParseQuestionType accepts the canonical names and a few common aliases, case-insensitively.
func ParseQuestionType(raw string) (QuestionType, error) {
	if t, ok := questionTypeAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown question type %q", raw)
}

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case Easy, Medium, Hard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", raw)
}

// TrueFalseOptions is the fixed option list of every true/false question.
var TrueFalseOptions = []string{"True", "False"}

// GenerationRequest carries one call's extracted text and user-chosen parameters.
type GenerationRequest struct {
	Text         string       `validate:"required"`
	UserID       string       `validate:"required,max=128"`
	FileID       string       `validate:"required,max=128"`
	QuestionType QuestionType `validate:"required,oneof=mcq fill_in_blank true_false"`
	Difficulty   Difficulty   `validate:"required,oneof=easy medium hard"`
	Count        int          `validate:"min=1,max=50"`
}

// RawModelItem is one undecoded element of the model's JSON array. It is nil
// when the element was not a JSON object.
type RawModelItem map[string]any

type Question struct {
	ID            string       `json:"id"`
	FileID        string       `json:"fileId"`
	UserID        string       `json:"userId"`
	QuestionText  string       `json:"questionText"`
	Type          QuestionType `json:"type"`
	Difficulty    Difficulty   `json:"difficulty,omitempty"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	UserAnswer    string       `json:"userAnswer"`
	IsCorrect     bool         `json:"isCorrect"`
	AnsweredAt    *time.Time   `json:"answeredAt"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// Flashcard is derived from a question at generation time and carries its own
// FSRS scheduling state afterwards.
type Flashcard struct {
	ID            string     `json:"id"`
	Front         string     `json:"front"`
	Back          string     `json:"back"`
	UserID        string     `json:"userId"`
	FileID        string     `json:"fileId"`
	CreatedAt     time.Time  `json:"createdAt"`
	Due           time.Time  `json:"due"`
	Stability     float64    `json:"stability"`
	Difficulty    float64    `json:"difficulty"`
	ElapsedDays   int        `json:"elapsedDays"`
	ScheduledDays int        `json:"scheduledDays"`
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	State         int        `json:"state"`
	LastReview    *time.Time `json:"lastReview"`
}

type ReviewLog struct {
	FlashcardID   string    `json:"flashcardId"`
	UserID        string    `json:"userId"`
	Rating        int       `json:"rating"`
	ScheduledDays int       `json:"scheduledDays"`
	ElapsedDays   int       `json:"elapsedDays"`
	State         int       `json:"state"`
	ReviewedAt    time.Time `json:"reviewedAt"`
}

// FileRecord describes an uploaded PDF.
type FileRecord struct {
	UserID     string    `json:"userId"`
	FileID     string    `json:"fileId"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	StoredPath string    `json:"storedPath"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func (c *Flashcard) ToFSRSCard() fsrs.Card {
	card := fsrs.Card{
		Due:           c.Due,
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   uint64(max(c.ElapsedDays, 0)),
		ScheduledDays: uint64(max(c.ScheduledDays, 0)),
		Reps:          uint64(max(c.Reps, 0)),
		Lapses:        uint64(max(c.Lapses, 0)),
		State:         fsrs.State(max(c.State, 0)),
	}
	if c.LastReview != nil {
		card.LastReview = *c.LastReview
	}
	return card
}

func (c *Flashcard) ApplyFSRSCard(f fsrs.Card) {
	c.Due = f.Due
	c.Stability = f.Stability
	c.Difficulty = f.Difficulty
	c.ElapsedDays = int(f.ElapsedDays)
	c.ScheduledDays = int(f.ScheduledDays)
	c.Reps = int(f.Reps)
	c.Lapses = int(f.Lapses)
	c.State = int(f.State)
	if f.LastReview.IsZero() {
		c.LastReview = nil
	} else {
		last := f.LastReview
		c.LastReview = &last
	}
}
