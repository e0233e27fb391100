// internal/bridge/dispatcher.go
package bridge

import (
	"context"

	"telegram-fcm-signal-bridge/internal/config"
	"telegram-fcm-signal-bridge/internal/core/domain/dispatch"
	"telegram-fcm-signal-bridge/internal/core/domain/signal"
	"telegram-fcm-signal-bridge/internal/core/domain/stats"
	"telegram-fcm-signal-bridge/internal/infrastructure/cache/redis"
	events "telegram-fcm-signal-bridge/internal/infrastructure/transport/event_bus"
	"telegram-fcm-signal-bridge/pkg/logger"
)

// Dispatcher превращает директиву в веерную рассылку: свежая выборка
// получателей, фан-аут, отзыв мертвых токенов, снимок статистики
type Dispatcher struct {
	engine *dispatch.Engine
	store  dispatch.RecipientStore
	filter dispatch.RecipientFilter
	stats  *stats.SessionStatistics
	cache  *redis.Cache
	bus    *events.EventBus
}

// NewDispatcher создает диспетчер рассылок
func NewDispatcher(
	engine *dispatch.Engine,
	store dispatch.RecipientStore,
	filter dispatch.RecipientFilter,
	statistics *stats.SessionStatistics,
	cache *redis.Cache,
	bus *events.EventBus,
) *Dispatcher {
	return &Dispatcher{
		engine: engine,
		store:  store,
		filter: filter,
		stats:  statistics,
		cache:  cache,
		bus:    bus,
	}
}

// FilterFromConfig переводит режим доставки из конфигурации в фильтр выборки
func FilterFromConfig(mode, role string) dispatch.RecipientFilter {
	switch mode {
	case config.DeliveryModeEndUsers:
		return dispatch.RecipientFilter{Mode: dispatch.FilterEndUsers}
	case config.DeliveryModeOperators:
		return dispatch.RecipientFilter{Mode: dispatch.FilterOperators}
	case config.DeliveryModeOperatorsRole:
		return dispatch.RecipientFilter{Mode: dispatch.FilterOperatorsByRole, Role: role}
	default:
		return dispatch.RecipientFilter{Mode: dispatch.FilterAll}
	}
}

// Dispatch рассылает директиву активным получателям.
// Список запрашивается заново на каждую директиву.
func (d *Dispatcher) Dispatch(ctx context.Context, directive *signal.Directive) {
	recipients, err := d.store.ListActive(ctx, d.filter)
	if err != nil {
		logger.Error("❌ Не удалось получить список получателей: %v", err)
		return
	}

	result := d.engine.Dispatch(ctx, directive, recipients)

	for _, token := range result.InvalidTokens() {
		if err := d.store.MarkTokenInvalid(ctx, token); err != nil {
			logger.Warn("⚠️ Не удалось отозвать токен: %v", err)
		}
	}

	if err := d.cache.SnapshotStats(ctx, d.stats.Summary()); err != nil {
		logger.Debug("Снимок статистики не сохранен: %v", err)
	}

	d.publishCompleted(directive, result)
}

func (d *Dispatcher) publishCompleted(directive *signal.Directive, result dispatch.FanOutResult) {
	if d.bus == nil {
		return
	}
	_ = d.bus.Publish(events.Event{
		Type:   events.EventDispatchCompleted,
		Source: "bridge",
		Data: events.DispatchCompleted{
			Directive: directive,
			Result:    result,
		},
	})
}
