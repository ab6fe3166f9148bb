package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
)

// Client HTTP-клиент удалённого хранилища опросов
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// envelope общая обёртка ответов сервера
type envelope struct {
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	SessionID string        `json:"sessionId,omitempty"`
	Stats     *entity.Stats `json:"stats,omitempty"`
}

// NewClient создаёт клиент, timeout ограничивает каждый запрос
func NewClient(serverURL string, timeout time.Duration) *Client {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateSession POST /survey/start
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var resp envelope
	if err := c.do(ctx, http.MethodPost, "/survey/start", nil, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("%w: empty session id", port.ErrRemoteRejected)
	}
	return resp.SessionID, nil
}

// SaveSurvey POST /survey/save
func (c *Client) SaveSurvey(ctx context.Context, payload entity.SavePayload) error {
	var resp envelope
	return c.do(ctx, http.MethodPost, "/survey/save", payload, &resp)
}

// Stats GET /survey/stats
func (c *Client) Stats(ctx context.Context) (*entity.Stats, error) {
	var resp envelope
	if err := c.do(ctx, http.MethodGet, "/survey/stats", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Stats == nil {
		return nil, fmt.Errorf("%w: empty stats", port.ErrRemoteRejected)
	}
	return resp.Stats, nil
}

// do отправляет запрос и разбирает ответ. Транспортные ошибки возвращаются как есть,
// ответ сервера с ошибкой оборачивает port.ErrRemoteRejected.
func (c *Client) do(ctx context.Context, method, path string, body any, out *envelope) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	decodeErr := json.NewDecoder(resp.Body).Decode(out)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && out.Error != "" {
			return fmt.Errorf("%w: %s %s: %d %s", port.ErrRemoteRejected, method, path, resp.StatusCode, out.Error)
		}
		return fmt.Errorf("%w: %s %s: status %d", port.ErrRemoteRejected, method, path, resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decode response: %v", port.ErrRemoteRejected, decodeErr)
	}
	if !out.Success {
		return fmt.Errorf("%w: %s %s: %s", port.ErrRemoteRejected, method, path, out.Error)
	}

	return nil
}

// Проверка реализации интерфейса
var _ port.SurveyAPI = (*Client)(nil)
