package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
)

// ErrInvalidPayload запрос сохранения не прошёл проверку
var ErrInvalidPayload = errors.New("invalid survey payload")

// SurveyService серверная часть: сессии, сохранение и статистика
type SurveyService struct {
	repo     port.SurveyRepository
	notifier port.Notifier
	now      func() time.Time
}

// NewSurveyService создаёт сервис поверх хранилища
func NewSurveyService(repo port.SurveyRepository) *SurveyService {
	return &SurveyService{
		repo: repo,
		now:  time.Now,
	}
}

// SetNotifier подключает уведомления о завершённых опросах
func (s *SurveyService) SetNotifier(n port.Notifier) {
	s.notifier = n
}

// Start создаёт новую сессию
func (s *SurveyService) Start(ctx context.Context) (*entity.Session, error) {
	session, err := s.repo.CreateSession(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Save заменяет все данные сессии содержимым запроса.
// Повторное сохранение того же запроса не создаёт дубликатов.
func (s *SurveyService) Save(ctx context.Context, payload entity.SavePayload) error {
	if payload.SessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidPayload)
	}

	annotations, classifications, err := payload.Records()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := s.repo.Replace(ctx, payload.SessionID, annotations, classifications, payload.Completed, s.now()); err != nil {
		return fmt.Errorf("save survey: %w", err)
	}

	if payload.Completed && s.notifier != nil {
		s.notifyCompleted(ctx, payload.SessionID)
	}
	return nil
}

// Session возвращает сессию со всеми записями
func (s *SurveyService) Session(ctx context.Context, sessionID string) (*entity.SessionDetails, error) {
	details, err := s.repo.Session(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return details, nil
}

// Stats возвращает сводную статистику
func (s *SurveyService) Stats(ctx context.Context) (*entity.Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	stats.SortDistributions()
	return stats, nil
}

func (s *SurveyService) notifyCompleted(ctx context.Context, sessionID string) {
	details, err := s.repo.Session(ctx, sessionID)
	if err != nil {
		log.Printf("Error loading completed session %s: %v", sessionID, err)
		return
	}
	if err := s.notifier.SurveyCompleted(ctx, details); err != nil {
		log.Printf("Error sending completion notice: %v", err)
	}
}
