// internal/infrastructure/api/gateway/source.go
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"telegram-fcm-signal-bridge/internal/stream"
	"telegram-fcm-signal-bridge/pkg/logger"

	"github.com/coder/websocket"
)

const dialTimeout = 15 * time.Second

// frame - кадр сообщения от шлюза
type frame struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	SentAt string `json:"sent_at,omitempty"`
}

// Source - источник сообщений из WebSocket шлюза
type Source struct {
	url       string
	authToken string
}

// NewSource создает источник кадров шлюза
func NewSource(url, authToken string) *Source {
	return &Source{
		url:       url,
		authToken: authToken,
	}
}

// Name возвращает имя источника
func (s *Source) Name() string {
	return "gateway"
}

// Connect устанавливает WebSocket соединение со шлюзом
func (s *Source) Connect(ctx context.Context) (stream.Connection, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	opts := &websocket.DialOptions{}
	if s.authToken != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + s.authToken}}
	}

	conn, resp, err := websocket.Dial(dialCtx, s.url, opts)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, stream.NewFatalError("gateway rejected credentials (%d)", resp.StatusCode)
		}
		return nil, stream.NewRetryableError(err, "gateway dial failed")
	}

	logger.Info("🔌 Соединение со шлюзом установлено: %s", s.url)
	return &connection{conn: conn}, nil
}

// Subscribe начинает чтение кадров из установленного соединения
func (s *Source) Subscribe(ctx context.Context, conn stream.Connection) (stream.Subscription, error) {
	wsConn, ok := conn.(*connection)
	if !ok {
		return nil, stream.NewRetryableError(nil, "unexpected gateway connection type")
	}
	return &subscription{conn: wsConn.conn}, nil
}

type connection struct {
	conn *websocket.Conn
}

func (c *connection) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "shutting down")
}

type subscription struct {
	conn *websocket.Conn
}

// Next читает следующий кадр; нечитаемые кадры пропускаются
func (s *subscription) Next(ctx context.Context) (stream.InboundMessage, error) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return stream.InboundMessage{}, stream.NewRetryableError(err, "gateway stream read failed")
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			logger.Warn("⚠️ Шлюз прислал нечитаемый кадр: %v", err)
			continue
		}

		return stream.InboundMessage{
			ID:        f.ID,
			Text:      f.Text,
			ArrivedAt: time.Now(),
		}, nil
	}
}

// Close - соединение закрывается на уровне Connection
func (s *subscription) Close() error { return nil }
