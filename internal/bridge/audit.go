// internal/bridge/audit.go
package bridge

import (
	"fmt"

	events "telegram-fcm-signal-bridge/internal/infrastructure/transport/event_bus"
	"telegram-fcm-signal-bridge/pkg/logger"
)

// AuditSubscriber пишет журнал событий моста: каждая директива, каждый
// отказ разбора и итог каждой рассылки остаются в логе
type AuditSubscriber struct{}

// NewAuditSubscriber создает подписчика аудита
func NewAuditSubscriber() *AuditSubscriber {
	return &AuditSubscriber{}
}

// GetName возвращает имя подписчика
func (s *AuditSubscriber) GetName() string {
	return "audit"
}

// GetSubscribedEvents возвращает список событий подписчика
func (s *AuditSubscriber) GetSubscribedEvents() []events.EventType {
	return []events.EventType{
		events.EventDirectiveParsed,
		events.EventSignalRejected,
		events.EventDispatchCompleted,
	}
}

// HandleEvent обрабатывает событие шины
func (s *AuditSubscriber) HandleEvent(event events.Event) error {
	switch event.Type {
	case events.EventDirectiveParsed:
		data, ok := event.Data.(events.DirectiveParsed)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", event.Type)
		}
		logger.Info("📋 Аудит: директива %s из сообщения %s",
			data.Directive.FormattedMessage(), data.MessageID)

	case events.EventSignalRejected:
		data, ok := event.Data.(events.SignalRejected)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", event.Type)
		}
		logger.Info("📋 Аудит: сообщение %s отклонено (%s)", data.MessageID, data.Reason)

	case events.EventDispatchCompleted:
		data, ok := event.Data.(events.DispatchCompleted)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", event.Type)
		}
		logger.Info("📋 Аудит: рассылка %s завершена, %d/%d доставлено",
			data.Directive.FormattedMessage(), data.Result.Succeeded, data.Result.Total)
	}

	return nil
}
