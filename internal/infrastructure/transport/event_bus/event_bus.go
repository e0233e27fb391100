// internal/infrastructure/transport/event_bus/event_bus.go
package events

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"telegram-fcm-signal-bridge/pkg/logger"

	"github.com/google/uuid"
)

// EventBus - центральная шина событий моста
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	eventBuffer chan Event
	metrics     *Metrics
	config      Config
	running     bool
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// Config - конфигурация шины событий
type Config struct {
	BufferSize    int  `json:"buffer_size"`
	WorkerCount   int  `json:"worker_count"`
	EnableLogging bool `json:"enable_logging"`
}

// DefaultConfig - конфигурация по умолчанию
var DefaultConfig = Config{
	BufferSize:    256,
	WorkerCount:   4,
	EnableLogging: true,
}

// NewEventBus создает новую шину событий
func NewEventBus(config ...Config) *EventBus {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		eventBuffer: make(chan Event, cfg.BufferSize),
		metrics: &Metrics{
			SubscribersCount: make(map[EventType]int),
		},
		config:   cfg,
		stopChan: make(chan struct{}),
	}
}

// Start запускает обработчиков событий
func (b *EventBus) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	for i := 0; i < b.config.WorkerCount; i++ {
		b.wg.Add(1)
		go b.eventWorker(i)
	}

	if b.config.EnableLogging {
		logger.Info("🚀 Шина событий запущена с %d обработчиками", b.config.WorkerCount)
	}
}

// Stop останавливает шину и дообрабатывает накопленные события
func (b *EventBus) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.mu.Unlock()

	close(b.stopChan)
	b.wg.Wait()

	// Буфер не закрываем, только вычитываем остаток
	for {
		select {
		case event := <-b.eventBuffer:
			b.processEvent(event)
		default:
			if b.config.EnableLogging {
				logger.Info("🛑 Шина событий остановлена")
			}
			return
		}
	}
}

// Subscribe подписывает обработчик на тип события
func (b *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	found := false
	for _, et := range subscriber.GetSubscribedEvents() {
		if et == eventType {
			found = true
			break
		}
	}
	if !found {
		logger.Warn("⚠️ Подписчик %s не заявил событие %s", subscriber.GetName(), eventType)
		return
	}

	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)

	b.metrics.Mu.Lock()
	b.metrics.SubscribersCount[eventType] = len(b.subscribers[eventType])
	b.metrics.Mu.Unlock()

	if b.config.EnableLogging {
		logger.Info("✅ %s подписался на %s", subscriber.GetName(), eventType)
	}
}

// Unsubscribe отписывает обработчик от типа события
func (b *EventBus) Unsubscribe(eventType EventType, subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, exists := b.subscribers[eventType]
	if !exists {
		return
	}

	for i, sub := range subscribers {
		if sub == subscriber {
			b.subscribers[eventType] = append(subscribers[:i], subscribers[i+1:]...)

			b.metrics.Mu.Lock()
			b.metrics.SubscribersCount[eventType] = len(b.subscribers[eventType])
			b.metrics.Mu.Unlock()

			if b.config.EnableLogging {
				logger.Info("❌ %s отписался от %s", subscriber.GetName(), eventType)
			}
			return
		}
	}
}

// Publish публикует событие; при переполненном буфере событие отбрасывается
func (b *EventBus) Publish(event Event) error {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()

	if !running {
		return fmt.Errorf("event bus is not running")
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventBuffer <- event:
		b.metrics.Mu.Lock()
		b.metrics.EventsPublished++
		b.metrics.Mu.Unlock()

		logger.Debug("📤 Опубликовано событие %s от %s", event.Type, event.Source)
		return nil
	default:
		b.metrics.Mu.Lock()
		b.metrics.EventsDropped++
		b.metrics.Mu.Unlock()

		logger.Warn("⚠️ Буфер событий переполнен, событие отброшено: %s", event.Type)
		return fmt.Errorf("event buffer is full")
	}
}

// PublishSync обрабатывает событие синхронно, минуя буфер
func (b *EventBus) PublishSync(event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return b.processEvent(event)
}

// eventWorker вычитывает события из буфера
func (b *EventBus) eventWorker(id int) {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.eventBuffer:
			b.processEvent(event)
		case <-b.stopChan:
			logger.Debug("🛑 Обработчик событий %d остановлен", id)
			return
		}
	}
}

// processEvent доставляет событие всем подписчикам его типа
func (b *EventBus) processEvent(event Event) error {
	startTime := time.Now()

	defer func() {
		b.metrics.Mu.Lock()
		b.metrics.ProcessingTime += time.Since(startTime)
		b.metrics.EventsProcessed++
		b.metrics.Mu.Unlock()
	}()

	b.mu.RLock()
	subscribers := make([]Subscriber, len(b.subscribers[event.Type]))
	copy(subscribers, b.subscribers[event.Type])
	b.mu.RUnlock()

	if len(subscribers) == 0 {
		logger.Debug("⚠️ Нет подписчиков для события %s", event.Type)
		return nil
	}

	var lastError error
	for _, subscriber := range subscribers {
		if err := b.handleEvent(event, subscriber); err != nil {
			lastError = err
			logger.Error("❌ Ошибка обработки %s подписчиком %s: %v",
				event.Type, subscriber.GetName(), err)
		}
	}
	return lastError
}

// handleEvent вызывает подписчика, изолируя панику
func (b *EventBus) handleEvent(event Event, subscriber Subscriber) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in subscriber %s: %v", subscriber.GetName(), r)
			logger.Error("⚠️ Паника в подписчике %s восстановлена: %v\n%s",
				subscriber.GetName(), r, debug.Stack())
		}
		if err != nil {
			b.metrics.Mu.Lock()
			b.metrics.EventsFailed++
			b.metrics.Mu.Unlock()
		}
	}()

	return subscriber.HandleEvent(event)
}

// GetMetrics возвращает снимок метрик
func (b *EventBus) GetMetrics() Metrics {
	b.metrics.Mu.RLock()
	defer b.metrics.Mu.RUnlock()

	snapshot := Metrics{
		EventsPublished:  b.metrics.EventsPublished,
		EventsProcessed:  b.metrics.EventsProcessed,
		EventsFailed:     b.metrics.EventsFailed,
		EventsDropped:    b.metrics.EventsDropped,
		ProcessingTime:   b.metrics.ProcessingTime,
		SubscribersCount: make(map[EventType]int, len(b.metrics.SubscribersCount)),
	}
	for eventType, count := range b.metrics.SubscribersCount {
		snapshot.SubscribersCount[eventType] = count
	}
	return snapshot
}

// GetSubscriberCount возвращает количество подписчиков на тип события
func (b *EventBus) GetSubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers[eventType])
}

// IsRunning возвращает true если шина запущена
func (b *EventBus) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.running
}

// GetMetricsMap возвращает метрики для диагностического вывода
func (b *EventBus) GetMetricsMap() map[string]interface{} {
	metrics := b.GetMetrics()
	return map[string]interface{}{
		"events_published": metrics.EventsPublished,
		"events_processed": metrics.EventsProcessed,
		"events_failed":    metrics.EventsFailed,
		"events_dropped":   metrics.EventsDropped,
		"processing_time":  metrics.ProcessingTime.String(),
	}
}
