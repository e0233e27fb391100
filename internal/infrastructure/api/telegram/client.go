// internal/infrastructure/api/telegram/client.go
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"telegram-fcm-signal-bridge/internal/stream"
)

// Client - клиент Telegram Bot API для long-poll чтения канала
type Client struct {
	httpClient  *http.Client
	baseURL     string
	pollTimeout time.Duration
}

// NewClient создает клиент Bot API.
// Таймаут HTTP клиента перекрывает длительность long-poll запроса.
func NewClient(apiURL, token string, pollTimeout time.Duration) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: pollTimeout + 5*time.Second},
		baseURL:     fmt.Sprintf("%s/bot%s", apiURL, token),
		pollTimeout: pollTimeout,
	}
}

// GetMe проверяет валидность токена и возвращает данные бота
func (c *Client) GetMe(ctx context.Context) (*botInfo, error) {
	body, err := c.call(ctx, "getMe", nil)
	if err != nil {
		return nil, err
	}

	var info botInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, stream.NewRetryableError(err, "failed to parse getMe result")
	}

	return &info, nil
}

// GetUpdates выполняет long-poll запрос новых постов канала
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]update, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(int(c.pollTimeout.Seconds())))
	params.Set("allowed_updates", `["channel_post"]`)
	if offset > 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}

	body, err := c.call(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []update
	if err := json.Unmarshal(body, &updates); err != nil {
		return nil, stream.NewRetryableError(err, "failed to parse updates")
	}

	return updates, nil
}

// call выполняет запрос к Bot API и разворачивает конверт ответа
func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	requestURL := c.baseURL + "/" + method
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, stream.NewRetryableError(err, "failed to build %s request", method)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, stream.NewRetryableError(err, "%s request failed", method)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, stream.NewRetryableError(err, "failed to read %s response", method)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, stream.NewRetryableError(err, "failed to parse %s response", method)
	}

	if !apiResp.OK {
		return nil, c.classifyError(method, &apiResp)
	}

	return apiResp.Result, nil
}

// classifyError переводит ошибки Bot API в ошибки потока
func (c *Client) classifyError(method string, apiResp *apiResponse) error {
	switch apiResp.ErrorCode {
	case http.StatusUnauthorized, http.StatusNotFound:
		// Невалидный токен, переподключение бессмысленно
		return stream.NewFatalError("telegram API %s rejected credentials (%d): %s",
			method, apiResp.ErrorCode, apiResp.Description)
	case http.StatusTooManyRequests:
		retryAfter := 5 * time.Second
		if apiResp.Parameters != nil && apiResp.Parameters.RetryAfter > 0 {
			retryAfter = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
		}
		return stream.NewRateLimitError(retryAfter, "telegram API rate limit on %s: %s",
			method, apiResp.Description)
	}

	return stream.NewRetryableError(nil, "telegram API %s error %d: %s",
		method, apiResp.ErrorCode, apiResp.Description)
}
