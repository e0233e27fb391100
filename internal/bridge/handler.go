// internal/bridge/handler.go
package bridge

import (
	"context"
	"time"

	"telegram-fcm-signal-bridge/internal/core/domain/signal"
	events "telegram-fcm-signal-bridge/internal/infrastructure/transport/event_bus"
	"telegram-fcm-signal-bridge/internal/stream"
	"telegram-fcm-signal-bridge/pkg/logger"
)

// Повторная доставка того же сообщения в этом окне игнорируется
const dedupTTL = 10 * time.Minute

// Deduper отсекает повторную обработку одного и того же сообщения
type Deduper interface {
	SeenMessage(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
}

// Handler обрабатывает входящие сообщения потока:
// дедупликация, разбор текста и передача директивы на рассылку
type Handler struct {
	interpreter *signal.Interpreter
	dispatcher  *Dispatcher
	dedup       Deduper
	bus         *events.EventBus
}

// NewHandler создает обработчик сообщений потока
func NewHandler(interpreter *signal.Interpreter, dispatcher *Dispatcher, dedup Deduper, bus *events.EventBus) *Handler {
	return &Handler{
		interpreter: interpreter,
		dispatcher:  dispatcher,
		dedup:       dedup,
		bus:         bus,
	}
}

// HandleMessage обрабатывает одно сообщение потока
func (h *Handler) HandleMessage(ctx context.Context, msg stream.InboundMessage) {
	seen, err := h.dedup.SeenMessage(ctx, msg.ID, dedupTTL)
	if err != nil {
		// Без Redis дедупликации нет, сообщение все равно обрабатываем
		logger.Warn("⚠️ Дедупликация недоступна: %v", err)
	}
	if seen {
		logger.Debug("⏭️ Сообщение %s уже обработано, пропускаем", msg.ID)
		return
	}

	var arrivedAt *time.Time
	if !msg.ArrivedAt.IsZero() {
		arrivedAt = &msg.ArrivedAt
	}

	directive, rejection := h.interpreter.Interpret(msg.Text, arrivedAt)
	if rejection != nil {
		logger.Debug("🚫 Сообщение %s отклонено: %s (%q)", msg.ID, rejection.Reason, msg.Text)
		h.publish(events.EventSignalRejected, events.SignalRejected{
			Reason:    rejection.Reason,
			MessageID: msg.ID,
			RawText:   msg.Text,
		})
		return
	}

	h.publish(events.EventDirectiveParsed, events.DirectiveParsed{
		Directive: directive,
		MessageID: msg.ID,
		RawText:   msg.Text,
	})

	h.dispatcher.Dispatch(ctx, directive)
}

func (h *Handler) publish(eventType events.EventType, data interface{}) {
	if h.bus == nil {
		return
	}
	_ = h.bus.Publish(events.Event{
		Type:   eventType,
		Source: "bridge",
		Data:   data,
	})
}
