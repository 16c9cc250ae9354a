package models

import (
	"testing"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

func TestParseQuestionType(t *testing.T) {
	cases := map[string]QuestionType{
		"mcq":               MultipleChoice,
		"Multiple Choice":   MultipleChoice,
		" fill_in_blank ":   FillInBlank,
		"Fill in the blank": FillInBlank,
		"TRUE_FALSE":        TrueFalse,
		"true/false":        TrueFalse,
	}
	for in, want := range cases {
		got, err := ParseQuestionType(in)
		if err != nil {
			t.Errorf("ParseQuestionType(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseQuestionType(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseQuestionType("essay"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty("HARD"); err != nil || d != Hard {
		t.Errorf("ParseDifficulty(HARD) = %q, %v", d, err)
	}
	if _, err := ParseDifficulty("extreme"); err == nil {
		t.Error("expected error for unknown difficulty")
	}
}

func TestFlashcardFSRSRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	card := &Flashcard{Due: now, State: int(fsrs.New)}

	params := fsrs.DefaultParam()
	scheduling := params.Repeat(card.ToFSRSCard(), now)
	info, ok := scheduling[fsrs.Good]
	if !ok {
		t.Fatal("expected scheduling info for Good")
	}
	card.ApplyFSRSCard(info.Card)

	if card.Reps != 1 {
		t.Errorf("expected 1 rep, got %d", card.Reps)
	}
	if card.LastReview == nil || !card.LastReview.Equal(now) {
		t.Errorf("expected last review %s, got %v", now, card.LastReview)
	}
	if !card.Due.After(now) {
		t.Errorf("expected due after %s, got %s", now, card.Due)
	}
}
