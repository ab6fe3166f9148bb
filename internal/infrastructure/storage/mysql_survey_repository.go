package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS survey_sessions (
		id VARCHAR(64) PRIMARY KEY,
		start_time DATETIME(3) NOT NULL,
		end_time DATETIME(3) NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS annotations (
		id INT AUTO_INCREMENT PRIMARY KEY,
		session_id VARCHAR(64) NOT NULL,
		image_index INT NOT NULL,
		image_path VARCHAR(255) NOT NULL,
		x DOUBLE NOT NULL,
		y DOUBLE NOT NULL,
		width DOUBLE NOT NULL,
		height DOUBLE NOT NULL,
		object_type VARCHAR(16) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_annotations_session (session_id),
		FOREIGN KEY (session_id) REFERENCES survey_sessions(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS classifications (
		id INT AUTO_INCREMENT PRIMARY KEY,
		session_id VARCHAR(64) NOT NULL,
		image_index INT NOT NULL,
		image_path VARCHAR(255) NOT NULL,
		rating VARCHAR(8) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_classifications_session (session_id),
		FOREIGN KEY (session_id) REFERENCES survey_sessions(id) ON DELETE CASCADE
	)`,
}

// MySQLConfig параметры подключения к MySQL
type MySQLConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// DSN собирает строку подключения с parseTime=true
func (c MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = c.Host + ":" + c.Port
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.DBName = c.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// OpenMySQL открывает пул соединений и проверяет подключение
func OpenMySQL(ctx context.Context, cfg MySQLConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// MySQLSurveyRepository хранилище опросов в MySQL
type MySQLSurveyRepository struct {
	db *sql.DB
}

// NewMySQLSurveyRepository создаёт хранилище поверх открытого пула
func NewMySQLSurveyRepository(db *sql.DB) *MySQLSurveyRepository {
	return &MySQLSurveyRepository{db: db}
}

// Migrate создаёт таблицы, если их ещё нет
func (r *MySQLSurveyRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// CreateSession создаёт сессию
func (r *MySQLSurveyRepository) CreateSession(ctx context.Context, startedAt time.Time) (*entity.Session, error) {
	session := &entity.Session{
		ID:        uuid.NewString(),
		StartTime: startedAt,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO survey_sessions (id, start_time, completed) VALUES (?, ?, FALSE)`,
		session.ID, session.StartTime)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return session, nil
}

// Replace в одной транзакции удаляет прежние записи, вставляет новые и обновляет сессию
func (r *MySQLSurveyRepository) Replace(ctx context.Context, sessionID string, annotations []entity.AnnotationRecord, classifications []entity.ClassificationRecord, completed bool, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM survey_sessions WHERE id = ? FOR UPDATE`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return port.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete annotations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM classifications WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete classifications: %w", err)
	}

	if len(annotations) > 0 {
		if err := insertAnnotations(ctx, tx, annotations); err != nil {
			return err
		}
	}
	if len(classifications) > 0 {
		if err := insertClassifications(ctx, tx, classifications); err != nil {
			return err
		}
	}

	var endTime sql.NullTime
	if completed {
		endTime = sql.NullTime{Time: at, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE survey_sessions SET completed = ?, end_time = ? WHERE id = ?`,
		completed, endTime, sessionID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertAnnotations(ctx context.Context, tx *sql.Tx, records []entity.AnnotationRecord) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO annotations (session_id, image_index, image_path, x, y, width, height, object_type) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare annotation insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range records {
		if _, err := stmt.ExecContext(ctx, a.SessionID, a.ImageIndex, a.ImagePath, a.X, a.Y, a.Width, a.Height, string(a.ObjectType)); err != nil {
			return fmt.Errorf("insert annotation: %w", err)
		}
	}
	return nil
}

func insertClassifications(ctx context.Context, tx *sql.Tx, records []entity.ClassificationRecord) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO classifications (session_id, image_index, image_path, rating) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare classification insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range records {
		if _, err := stmt.ExecContext(ctx, c.SessionID, c.ImageIndex, c.ImagePath, string(c.Rating)); err != nil {
			return fmt.Errorf("insert classification: %w", err)
		}
	}
	return nil
}

// Session возвращает сессию с записями, упорядоченными по индексу изображения
func (r *MySQLSurveyRepository) Session(ctx context.Context, sessionID string) (*entity.SessionDetails, error) {
	var (
		details entity.SessionDetails
		endTime sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, completed FROM survey_sessions WHERE id = ?`, sessionID).
		Scan(&details.ID, &details.StartTime, &endTime, &details.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	if endTime.Valid {
		t := endTime.Time
		details.EndTime = &t
	}

	details.Annotations, err = r.annotations(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	details.Classifications, err = r.classifications(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &details, nil
}

func (r *MySQLSurveyRepository) annotations(ctx context.Context, sessionID string) ([]entity.AnnotationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, image_index, image_path, x, y, width, height, object_type FROM annotations WHERE session_id = ? ORDER BY image_index, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("select annotations: %w", err)
	}
	defer rows.Close()

	out := make([]entity.AnnotationRecord, 0)
	for rows.Next() {
		var a entity.AnnotationRecord
		if err := rows.Scan(&a.SessionID, &a.ImageIndex, &a.ImagePath, &a.X, &a.Y, &a.Width, &a.Height, &a.ObjectType); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read annotations: %w", err)
	}
	return out, nil
}

func (r *MySQLSurveyRepository) classifications(ctx context.Context, sessionID string) ([]entity.ClassificationRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, image_index, image_path, rating FROM classifications WHERE session_id = ? ORDER BY image_index, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("select classifications: %w", err)
	}
	defer rows.Close()

	out := make([]entity.ClassificationRecord, 0)
	for rows.Next() {
		var c entity.ClassificationRecord
		if err := rows.Scan(&c.SessionID, &c.ImageIndex, &c.ImagePath, &c.Rating); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read classifications: %w", err)
	}
	return out, nil
}

// Stats считает количества и распределения по типам и оценкам
func (r *MySQLSurveyRepository) Stats(ctx context.Context) (*entity.Stats, error) {
	stats := &entity.Stats{}

	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM survey_sessions`, &stats.TotalSessions},
		{`SELECT COUNT(*) FROM survey_sessions WHERE completed = TRUE`, &stats.CompletedSessions},
		{`SELECT COUNT(*) FROM annotations`, &stats.TotalAnnotations},
		{`SELECT COUNT(*) FROM classifications`, &stats.TotalClassifications},
	}
	for _, c := range counts {
		if err := r.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}

	rows, err := r.db.QueryContext(ctx, `SELECT object_type, COUNT(*) FROM annotations GROUP BY object_type`)
	if err != nil {
		return nil, fmt.Errorf("group annotations: %w", err)
	}
	stats.ObjectTypeDistribution = make([]entity.CategoryCount, 0)
	for rows.Next() {
		var cc entity.CategoryCount
		if err := rows.Scan(&cc.ObjectType, &cc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan object type: %w", err)
		}
		stats.ObjectTypeDistribution = append(stats.ObjectTypeDistribution, cc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read object types: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT rating, COUNT(*) FROM classifications GROUP BY rating`)
	if err != nil {
		return nil, fmt.Errorf("group classifications: %w", err)
	}
	defer rows.Close()
	stats.RatingDistribution = make([]entity.RatingCount, 0)
	for rows.Next() {
		var rc entity.RatingCount
		if err := rows.Scan(&rc.Rating, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		stats.RatingDistribution = append(stats.RatingDistribution, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ratings: %w", err)
	}

	return stats, nil
}

// Проверка реализации интерфейса
var _ port.SurveyRepository = (*MySQLSurveyRepository)(nil)
