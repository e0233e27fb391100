// internal/infrastructure/transport/event_bus/event.go
package events

import (
	"sync"
	"time"

	"telegram-fcm-signal-bridge/internal/core/domain/dispatch"
	"telegram-fcm-signal-bridge/internal/core/domain/signal"
)

// EventType - тип события
type EventType string

// Константы типов событий
const (
	EventDirectiveParsed   EventType = "directive.parsed"
	EventSignalRejected    EventType = "signal.rejected"
	EventDispatchCompleted EventType = "dispatch.completed"
)

// Event - структура события
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// DirectiveParsed - полезная нагрузка события directive.parsed
type DirectiveParsed struct {
	Directive *signal.Directive `json:"directive"`
	MessageID string            `json:"message_id"`
	RawText   string            `json:"raw_text"`
}

// SignalRejected - полезная нагрузка события signal.rejected
type SignalRejected struct {
	Reason    string `json:"reason"`
	MessageID string `json:"message_id"`
	RawText   string `json:"raw_text"`
}

// DispatchCompleted - полезная нагрузка события dispatch.completed
type DispatchCompleted struct {
	Directive *signal.Directive     `json:"directive"`
	Result    dispatch.FanOutResult `json:"result"`
}

// Subscriber - интерфейс подписчика
type Subscriber interface {
	HandleEvent(event Event) error
	GetName() string
	GetSubscribedEvents() []EventType
}

// Metrics - метрики шины событий
type Metrics struct {
	Mu               sync.RWMutex
	EventsPublished  int64             `json:"events_published"`
	EventsProcessed  int64             `json:"events_processed"`
	EventsFailed     int64             `json:"events_failed"`
	EventsDropped    int64             `json:"events_dropped"`
	SubscribersCount map[EventType]int `json:"subscribers_count"`
	ProcessingTime   time.Duration     `json:"processing_time"`
}
