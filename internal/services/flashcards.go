package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"quizgen/internal/models"
	"quizgen/internal/store"
)

var (
	// ErrNoDueCards indicates that there are no cards ready to review.
	ErrNoDueCards = errors.New("no due cards")
	// ErrFlashcardNotFound is returned for unknown flashcard ids.
	ErrFlashcardNotFound = errors.New("flashcard not found")
)

// FlashcardService lists flashcards and schedules their reviews with FSRS.
type FlashcardService struct {
	docs   DocumentStore
	params fsrs.Parameters
	now    func() time.Time
}

func NewFlashcardService(docs DocumentStore) *FlashcardService {
	return &FlashcardService{
		docs:   docs,
		params: fsrs.DefaultParam(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *FlashcardService) List(ctx context.Context, userID, fileID string) ([]models.Flashcard, error) {
	filters := []store.Filter{{Field: "userId", Value: userID}}
	if fileID != "" {
		filters = append(filters, store.Filter{Field: "fileId", Value: fileID})
	}
	docs, err := s.docs.Find(ctx, store.Flashcards, filters, 0)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}

	cards := make([]models.Flashcard, 0, len(docs))
	for _, doc := range docs {
		var card models.Flashcard
		if err := json.Unmarshal(doc.Data, &card); err != nil {
			return nil, fmt.Errorf("decode flashcard %s: %w", doc.ID, err)
		}
		card.ID = doc.ID
		cards = append(cards, card)
	}
	return cards, nil
}

// NextCard returns the user's card with the earliest due time that is not in the future.
func (s *FlashcardService) NextCard(ctx context.Context, userID string) (*models.Flashcard, error) {
	cards, err := s.List(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	now := s.now()
	var next *models.Flashcard
	for i := range cards {
		card := &cards[i]
		if card.Due.After(now) {
			continue
		}
		if next == nil || card.Due.Before(next.Due) {
			next = card
		}
	}
	if next == nil {
		return nil, ErrNoDueCards
	}
	return next, nil
}

// ReviewCard applies an FSRS rating, stores the new schedule, and appends a review log.
func (s *FlashcardService) ReviewCard(ctx context.Context, cardID string, rating fsrs.Rating) (*models.Flashcard, *models.ReviewLog, error) {
	var card models.Flashcard
	if err := s.docs.Get(ctx, store.Flashcards, cardID, &card); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrFlashcardNotFound
		}
		return nil, nil, fmt.Errorf("load flashcard %s: %w", cardID, err)
	}
	card.ID = cardID

	now := s.now()
	scheduling := s.params.Repeat(card.ToFSRSCard(), now)
	info, ok := scheduling[rating]
	if !ok {
		return nil, nil, fmt.Errorf("rating %d not supported", rating)
	}
	card.ApplyFSRSCard(info.Card)

	if err := s.docs.Update(ctx, store.Flashcards, cardID, card); err != nil {
		return nil, nil, fmt.Errorf("update flashcard %s: %w", cardID, err)
	}

	entry := &models.ReviewLog{
		FlashcardID:   cardID,
		UserID:        card.UserID,
		Rating:        int(info.ReviewLog.Rating),
		ScheduledDays: int(info.ReviewLog.ScheduledDays),
		ElapsedDays:   int(info.ReviewLog.ElapsedDays),
		State:         int(info.ReviewLog.State),
		ReviewedAt:    now,
	}
	if _, err := s.docs.Add(ctx, store.ReviewLogs, entry); err != nil {
		return nil, nil, fmt.Errorf("insert review log: %w", err)
	}
	return &card, entry, nil
}

// ParseRating maps again/hard/good/easy to an FSRS rating.
func ParseRating(raw string) (fsrs.Rating, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "again":
		return fsrs.Again, nil
	case "hard":
		return fsrs.Hard, nil
	case "good":
		return fsrs.Good, nil
	case "easy":
		return fsrs.Easy, nil
	default:
		return 0, fmt.Errorf("unknown rating %q", raw)
	}
}
