// internal/infrastructure/api/telegram/source.go
package telegram

import (
	"context"
	"strconv"
	"time"

	"telegram-fcm-signal-bridge/internal/stream"
	"telegram-fcm-signal-bridge/pkg/logger"
)

// Source - источник сообщений из Telegram канала через long-poll.
// Смещение обновлений переживает переподключения.
type Source struct {
	client    *Client
	channelID int64
	offset    int64
}

// NewSource создает источник постов канала
func NewSource(client *Client, channelID int64) *Source {
	return &Source{
		client:    client,
		channelID: channelID,
	}
}

// Name возвращает имя источника
func (s *Source) Name() string {
	return "telegram"
}

// Connect проверяет учетные данные бота
func (s *Source) Connect(ctx context.Context) (stream.Connection, error) {
	info, err := s.client.GetMe(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("🤖 Бот @%s подключен, слушаем канал %d", info.Username, s.channelID)
	return &connection{}, nil
}

// Subscribe начинает чтение постов канала
func (s *Source) Subscribe(ctx context.Context, conn stream.Connection) (stream.Subscription, error) {
	return &subscription{source: s}, nil
}

// connection - long-poll не держит постоянного соединения
type connection struct{}

func (c *connection) Close() error { return nil }

// subscription вычитывает посты канала пачками
type subscription struct {
	source  *Source
	pending []stream.InboundMessage
}

// Next возвращает следующий пост канала
func (s *subscription) Next(ctx context.Context) (stream.InboundMessage, error) {
	for {
		if len(s.pending) > 0 {
			msg := s.pending[0]
			s.pending = s.pending[1:]
			return msg, nil
		}

		updates, err := s.source.client.GetUpdates(ctx, s.source.offset)
		if err != nil {
			return stream.InboundMessage{}, err
		}

		for _, u := range updates {
			s.source.offset = u.UpdateID + 1

			if u.ChannelPost == nil {
				continue
			}
			if s.source.channelID != 0 && u.ChannelPost.Chat.ID != s.source.channelID {
				logger.Debug("⏭️ Пост из чужого канала %d пропущен", u.ChannelPost.Chat.ID)
				continue
			}

			// Момент прихода берем из самого поста: long-poll мог
			// доставить его с опозданием
			arrivedAt := time.Now()
			if u.ChannelPost.Date > 0 {
				arrivedAt = time.Unix(u.ChannelPost.Date, 0)
			}

			s.pending = append(s.pending, stream.InboundMessage{
				ID:        strconv.FormatInt(u.ChannelPost.MessageID, 10),
				Text:      u.ChannelPost.Text,
				ArrivedAt: arrivedAt,
			})
		}
	}
}

func (s *subscription) Close() error { return nil }
