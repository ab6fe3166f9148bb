package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
)

var (
	// ErrSaveInFlight предыдущее сохранение ещё не завершилось
	ErrSaveInFlight = errors.New("save already in progress")
	// ErrRemoteDisabled удалённое хранилище не настроено
	ErrRemoteDisabled = errors.New("remote store is not configured")
)

const (
	msgSessionRejected = "Failed to create database session"
	msgSessionNetwork  = "Network error while creating session"
	msgSaveRejected    = "Failed to save survey data"
	msgSaveNetwork     = "Network error while saving data"
)

// SyncStatus состояние синхронизации для показа пользователю
type SyncStatus struct {
	Loading     bool      // идёт сетевой запрос
	Error       string    // последняя ошибка, только для информации
	LastSavedAt time.Time // время последнего успешного сохранения
}

// SyncService отправляет документ опроса в удалённое хранилище.
// Ошибки сети никогда не прерывают опрос, данные остаются в локальном хранилище.
type SyncService struct {
	survey *Survey
	api    port.SurveyAPI

	mu        sync.Mutex
	inFlight  int
	saving    bool
	lastErr   string
	lastSaved time.Time
}

// NewSyncService создаёт сервис синхронизации, api может быть nil
func NewSyncService(survey *Survey, api port.SurveyAPI) *SyncService {
	return &SyncService{
		survey: survey,
		api:    api,
	}
}

// Status возвращает текущее состояние синхронизации
func (s *SyncService) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SyncStatus{
		Loading:     s.inFlight > 0,
		Error:       s.lastErr,
		LastSavedAt: s.lastSaved,
	}
}

// StartSurvey начинает опрос. Новая сессия создаётся, только если локального прогресса ещё нет.
func (s *SyncService) StartSurvey(ctx context.Context) error {
	if s.survey.Progress().Overall == 0 {
		if err := s.survey.Dispatch(ctx, Initialize{}); err != nil {
			return err
		}
		if err := s.CreateSession(ctx); err != nil {
			log.Printf("Failed to create remote session, continuing with local storage only: %v", err)
		}
	}
	return s.survey.Dispatch(ctx, SetStep{Step: entity.StepAnnotation})
}

// CreateSession регистрирует сессию на сервере и подменяет локальный id
func (s *SyncService) CreateSession(ctx context.Context) error {
	s.begin()
	id, err := s.createSession(ctx)
	s.end()

	if err != nil {
		s.fail(err, msgSessionRejected, msgSessionNetwork)
		return err
	}

	log.Printf("Created remote session %s", id)
	return s.survey.Dispatch(ctx, SetSessionID{SessionID: id})
}

func (s *SyncService) createSession(ctx context.Context) (string, error) {
	if s.api == nil {
		return "", ErrRemoteDisabled
	}
	return s.api.CreateSession(ctx)
}

// SaveSurvey отправляет все данные опроса. Одновременно выполняется не больше одного сохранения.
func (s *SyncService) SaveSurvey(ctx context.Context, completed bool) error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	s.saving = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	payload := entity.NewSavePayload(s.survey.Document(), completed)

	s.begin()
	err := s.saveSurvey(ctx, payload)
	s.end()

	if err != nil {
		s.fail(err, msgSaveRejected, msgSaveNetwork)
		return err
	}

	s.mu.Lock()
	s.lastSaved = time.Now()
	s.mu.Unlock()

	log.Printf("Saved survey %s (completed=%t)", payload.SessionID, completed)
	return nil
}

func (s *SyncService) saveSurvey(ctx context.Context, payload entity.SavePayload) error {
	if s.api == nil {
		return ErrRemoteDisabled
	}
	return s.api.SaveSurvey(ctx, payload)
}

// Complete завершает опрос и пытается сохранить его на сервере.
// Ошибка сохранения видна только в Status, переход к завершению не блокируется.
func (s *SyncService) Complete(ctx context.Context) error {
	if err := s.survey.Dispatch(ctx, CompleteSurvey{}); err != nil {
		return err
	}
	if err := s.SaveSurvey(ctx, true); err != nil {
		log.Printf("Error saving survey data: %v", err)
	}
	return nil
}

// Stats запрашивает статистику сервера
func (s *SyncService) Stats(ctx context.Context) (*entity.Stats, error) {
	if s.api == nil {
		return nil, ErrRemoteDisabled
	}
	return s.api.Stats(ctx)
}

func (s *SyncService) begin() {
	s.mu.Lock()
	s.inFlight++
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *SyncService) end() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

func (s *SyncService) fail(err error, rejected, network string) {
	msg := network
	if errors.Is(err, port.ErrRemoteRejected) || errors.Is(err, ErrRemoteDisabled) {
		msg = rejected
	}
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}
