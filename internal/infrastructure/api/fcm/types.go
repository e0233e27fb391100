// internal/infrastructure/api/fcm/types.go
package fcm

// sendRequest - запрос к FCM HTTP v1 API
type sendRequest struct {
	Message message `json:"message"`
}

// message - push-сообщение для одного устройства
type message struct {
	Token        string            `json:"token"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      androidConfig     `json:"android"`
}

// notification - видимая часть уведомления
type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// androidConfig - платформенные настройки доставки
type androidConfig struct {
	Priority     string              `json:"priority"`
	TTL          string              `json:"ttl"`
	Notification androidNotification `json:"notification"`
}

type androidNotification struct {
	ChannelID string `json:"channel_id"`
	Sound     string `json:"sound,omitempty"`
}

// errorResponse - конверт ошибки FCM
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Status  string        `json:"status"`
	Details []errorDetail `json:"details"`
}

type errorDetail struct {
	Type      string `json:"@type"`
	ErrorCode string `json:"errorCode"`
}

// fcmErrorCode извлекает машинный код ошибки из деталей ответа
func (e *errorResponse) fcmErrorCode() string {
	for _, detail := range e.Error.Details {
		if detail.ErrorCode != "" {
			return detail.ErrorCode
		}
	}
	return e.Error.Status
}
