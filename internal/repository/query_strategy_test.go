package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/aptify/chat-backend/internal/models"
)

func messagesAt(times ...int) []models.Message {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	out := make([]models.Message, 0, len(times))
	for i, offset := range times {
		out = append(out, models.Message{
			ID:        uint(i + 1),
			CreatedAt: base.Add(time.Duration(offset) * time.Second),
		})
	}
	return out
}

func TestStrategyPrimarySuccess(t *testing.T) {
	fallbackCalled := false
	s := MessageQueryStrategy{
		Primary:  func() ([]models.Message, error) { return messagesAt(0, 1, 2), nil },
		Fallback: func() ([]models.Message, error) { fallbackCalled = true; return nil, nil },
		Less:     ByCreationTime,
	}

	msgs, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("got %d messages", len(msgs))
	}
	if fallbackCalled {
		t.Errorf("fallback ran despite primary success")
	}
}

func TestStrategyFallsBackAndSorts(t *testing.T) {
	unsorted := messagesAt(5, 1, 3)
	s := MessageQueryStrategy{
		Primary:  func() ([]models.Message, error) { return nil, ErrOrderedQueryUnsupported },
		Fallback: func() ([]models.Message, error) { return unsorted, nil },
		Less:     ByCreationTime,
	}

	msgs, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Errorf("fallback result not sorted: %v", msgs)
		}
	}
}

func TestStrategyPropagatesOtherErrors(t *testing.T) {
	dbErr := errors.New("connection refused")
	fallbackCalled := false
	s := MessageQueryStrategy{
		Primary:  func() ([]models.Message, error) { return nil, dbErr },
		Fallback: func() ([]models.Message, error) { fallbackCalled = true; return nil, nil },
		Less:     ByCreationTime,
	}

	_, err := s.Load()
	if !errors.Is(err, dbErr) {
		t.Errorf("expected the primary error, got %v", err)
	}
	if fallbackCalled {
		t.Errorf("fallback ran for a non-index error")
	}
}

func TestStrategyFallbackFailure(t *testing.T) {
	fallbackErr := errors.New("scan failed")
	s := MessageQueryStrategy{
		Primary:  func() ([]models.Message, error) { return nil, ErrOrderedQueryUnsupported },
		Fallback: func() ([]models.Message, error) { return nil, fallbackErr },
		Less:     ByCreationTime,
	}

	if _, err := s.Load(); !errors.Is(err, fallbackErr) {
		t.Errorf("expected fallback error, got %v", err)
	}
}

func TestByCreationTimeTiebreak(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := models.Message{ID: 1, CreatedAt: at}
	b := models.Message{ID: 2, CreatedAt: at}

	if !ByCreationTime(a, b) {
		t.Errorf("equal timestamps should order by id")
	}
	if ByCreationTime(b, a) {
		t.Errorf("tiebreak not antisymmetric")
	}

	later := models.Message{ID: 0, CreatedAt: at.Add(time.Second)}
	if !ByCreationTime(a, later) || ByCreationTime(later, a) {
		t.Errorf("timestamp ordering broken")
	}
}
