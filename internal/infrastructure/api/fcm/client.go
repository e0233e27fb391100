// internal/infrastructure/api/fcm/client.go
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"telegram-fcm-signal-bridge/internal/core/domain/dispatch"
	"telegram-fcm-signal-bridge/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"

	// Сигнал живет одну минуту, просроченная доставка бессмысленна
	messageTTL       = "60s"
	androidChannelID = "trading_signals"
	priorityHigh     = "high"
)

// Client - клиент FCM HTTP v1 API
type Client struct {
	httpClient *http.Client
	projectID  string
	apiURL     string
}

// NewClient создает FCM клиент с авторизацией через сервисный аккаунт
func NewClient(ctx context.Context, projectID, credentialsFile, apiURL string, timeout time.Duration) (*Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read FCM credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, messagingScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FCM credentials: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, creds.TokenSource)
	httpClient.Timeout = timeout

	logger.Info("✅ FCM клиент инициализирован для проекта %s", projectID)

	return &Client{
		httpClient: httpClient,
		projectID:  projectID,
		apiURL:     apiURL,
	}, nil
}

// NewClientWithHTTP создает клиент с готовым HTTP клиентом
func NewClientWithHTTP(httpClient *http.Client, projectID, apiURL string) *Client {
	return &Client{
		httpClient: httpClient,
		projectID:  projectID,
		apiURL:     apiURL,
	}
}

// Send отправляет push-уведомление на одно устройство
func (c *Client) Send(ctx context.Context, token string, payload dispatch.Payload) error {
	request := sendRequest{
		Message: message{
			Token: token,
			Notification: notification{
				Title: payload.Title,
				Body:  payload.Body,
			},
			Data: payload.Data,
			Android: androidConfig{
				Priority: priorityHigh,
				TTL:      messageTTL,
				Notification: androidNotification{
					ChannelID: androidChannelID,
					Sound:     "default",
				},
			},
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return dispatch.NewInvalidTokenError("failed to marshal FCM request: %v", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.apiURL, c.projectID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return dispatch.NewTransientError(err, "failed to build FCM request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dispatch.NewTransientError(err, "FCM request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return dispatch.NewTransientError(err, "failed to read FCM response")
	}

	return c.classifyError(resp.StatusCode, body)
}

// classifyError разделяет мертвые токены и временные сбои доставки
func (c *Client) classifyError(statusCode int, body []byte) error {
	var fcmResp errorResponse
	if err := json.Unmarshal(body, &fcmResp); err != nil {
		return dispatch.NewTransientError(nil,
			"FCM error %d: %s", statusCode, truncate(string(body), 200))
	}

	errorCode := fcmResp.fcmErrorCode()

	switch errorCode {
	case "UNREGISTERED", "INVALID_ARGUMENT":
		return dispatch.NewInvalidTokenError("FCM token rejected (%s): %s",
			errorCode, fcmResp.Error.Message)
	}

	return dispatch.NewTransientError(nil, "FCM error %d (%s): %s",
		statusCode, errorCode, fcmResp.Error.Message)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
