package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	app "annotation-survey/internal/application"
	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
)

// maxBodySize ограничение тела запроса сохранения
const maxBodySize = 10 << 20

type Handler struct {
	surveys *app.SurveyService
}

func NewHandler(surveys *app.SurveyService) *Handler {
	return &Handler{
		surveys: surveys,
	}
}

// Routes собирает маршруты API. Если imageDir не пуст, изображения опроса раздаются по /images/.
func (h *Handler) Routes(imageDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /survey/start", h.StartHandler)
	mux.HandleFunc("POST /survey/save", h.SaveHandler)
	mux.HandleFunc("GET /survey/stats", h.StatsHandler)
	mux.HandleFunc("GET /survey/{sessionId}", h.SessionHandler)
	mux.HandleFunc("GET /health", h.HealthHandler)

	if imageDir != "" {
		mux.Handle("GET /images/", http.StripPrefix("/images/", http.FileServer(http.Dir(imageDir))))
	}

	return corsMiddleware(mux)
}

// StartHandler обрабатывает POST /survey/start
func (h *Handler) StartHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.surveys.Start(r.Context())
	if err != nil {
		log.Printf("Error creating survey session: %v", err)
		respondError(w, "Failed to create survey session", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{
		"success":   true,
		"sessionId": session.ID,
	}, http.StatusOK)
}

// SaveHandler обрабатывает POST /survey/save
func (h *Handler) SaveHandler(w http.ResponseWriter, r *http.Request) {
	var payload entity.SavePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&payload); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.surveys.Save(r.Context(), payload)
	switch {
	case err == nil:
		respondJSON(w, map[string]any{"success": true}, http.StatusOK)
	case errors.Is(err, app.ErrInvalidPayload):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, port.ErrSessionNotFound):
		respondError(w, "Survey session not found", http.StatusNotFound)
	default:
		log.Printf("Error saving survey data: %v", err)
		respondError(w, "Failed to save survey data", http.StatusInternalServerError)
	}
}

// SessionHandler обрабатывает GET /survey/{sessionId}
func (h *Handler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	details, err := h.surveys.Session(r.Context(), r.PathValue("sessionId"))
	switch {
	case err == nil:
		respondJSON(w, map[string]any{
			"success": true,
			"session": details,
		}, http.StatusOK)
	case errors.Is(err, port.ErrSessionNotFound):
		respondError(w, "Survey session not found", http.StatusNotFound)
	default:
		log.Printf("Error fetching survey data: %v", err)
		respondError(w, "Failed to fetch survey data", http.StatusInternalServerError)
	}
}

// StatsHandler обрабатывает GET /survey/stats
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.surveys.Stats(r.Context())
	if err != nil {
		log.Printf("Error fetching survey stats: %v", err)
		respondError(w, "Failed to fetch survey stats", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{
		"success": true,
		"stats":   stats,
	}, http.StatusOK)
}

// HealthHandler проверка здоровья сервиса
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]any{"success": false, "error": message}, status)
}

// corsMiddleware добавляет CORS заголовки
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
