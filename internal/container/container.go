package container

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"annotation-survey/config"
	"annotation-survey/internal/api/rest"
	app "annotation-survey/internal/application"
	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
	"annotation-survey/internal/infrastructure/remote"
	"annotation-survey/internal/infrastructure/storage"
	"annotation-survey/internal/infrastructure/vision"
)

// previewMaxSide длинная сторона предпросмотра, который отправляет бот
const previewMaxSide = 1024

// Server сервисы удалённого хранилища опросов
type Server struct {
	SurveyService   *app.SurveyService
	OperatorService *app.OperatorService
	Handler         *rest.Handler
	Renderer        port.BoxRenderer
	Images          entity.ImageSet

	db *sql.DB
}

// NewServer собирает хранилище по STORE_DRIVER и сервисы поверх него
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	var (
		repo port.SurveyRepository
		db   *sql.DB
	)

	switch cfg.StoreDriver {
	case config.DriverMySQL:
		var err error
		db, err = storage.OpenMySQL(ctx, storage.MySQLConfig{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Database: cfg.DBName,
		})
		if err != nil {
			return nil, err
		}
		mysqlRepo := storage.NewMySQLSurveyRepository(db)
		if cfg.DBMigrate {
			if err := mysqlRepo.Migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		repo = mysqlRepo
		log.Printf("Using MySQL store at %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	default:
		repo = storage.NewMemorySurveyRepository()
		log.Printf("Using in-memory store, data is lost on restart")
	}

	surveyService := app.NewSurveyService(repo)

	return &Server{
		SurveyService:   surveyService,
		OperatorService: app.NewOperatorService(storage.NewMemoryOperatorRepository()),
		Handler:         rest.NewHandler(surveyService),
		Renderer:        vision.NewRenderer(previewMaxSide),
		Images:          entity.ImageSet(cfg.Images),
		db:              db,
	}, nil
}

// Close освобождает соединения с базой
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Client сервисы участника опроса
type Client struct {
	Survey *app.Survey
	Sync   *app.SyncService
}

// NewClient восстанавливает локальный документ и подключает удалённое хранилище.
// Пустой SERVER_URL оставляет опрос только локальным.
func NewClient(ctx context.Context, cfg *config.Config) *Client {
	images := entity.ImageSet(cfg.Images)
	survey := app.NewSurvey(
		app.NewReducer(images, images),
		storage.NewFileDocumentStorage(cfg.DataDir),
	)
	if survey.Restore(ctx) {
		log.Printf("Restored survey %s", survey.Document().SessionID)
	}

	var api port.SurveyAPI
	if cfg.ServerURL != "" {
		api = remote.NewClient(cfg.ServerURL, cfg.HTTPTimeout)
	}

	return &Client{
		Survey: survey,
		Sync:   app.NewSyncService(survey, api),
	}
}
