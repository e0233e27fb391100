// internal/stream/types.go
package stream

import (
	"context"
	"time"
)

// InboundMessage - входящее сообщение потока
type InboundMessage struct {
	ID        string
	Text      string
	ArrivedAt time.Time
}

// Connection - установленное соединение с потоком
type Connection interface {
	Close() error
}

// Subscription - подписка на канал сообщений. После обрыва соединения не
// возобновляется: на каждый цикл переподключения создается новая.
type Subscription interface {
	Next(ctx context.Context) (InboundMessage, error)
	Close() error
}

// Source - транспорт потока сообщений. Канал и учетные данные источник
// знает из своей конфигурации.
type Source interface {
	Name() string
	Connect(ctx context.Context) (Connection, error)
	Subscribe(ctx context.Context, conn Connection) (Subscription, error)
}

// Handler обрабатывает одно входящее сообщение
type Handler interface {
	HandleMessage(ctx context.Context, msg InboundMessage)
}
