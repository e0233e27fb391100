// internal/core/domain/dispatch/fanout.go
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"telegram-fcm-signal-bridge/internal/core/domain/signal"
	"telegram-fcm-signal-bridge/internal/core/domain/stats"
	"telegram-fcm-signal-bridge/pkg/logger"
)

// Engine - движок веерной рассылки: одна директива, много независимых
// получателей. Отказ одного получателя никогда не прерывает остальных.
type Engine struct {
	pusher      Pusher
	stats       *stats.SessionStatistics
	sendTimeout time.Duration
}

// NewEngine создает движок рассылки
func NewEngine(pusher Pusher, statistics *stats.SessionStatistics, sendTimeout time.Duration) *Engine {
	return &Engine{
		pusher:      pusher,
		stats:       statistics,
		sendTimeout: sendTimeout,
	}
}

// Dispatch отправляет уведомление каждому получателю и возвращает агрегат.
// Отправки идут параллельно, агрегат собирается только после завершения
// всех попыток. Повторов внутри рассылки нет: неудача просто учитывается.
func (e *Engine) Dispatch(ctx context.Context, directive *signal.Directive, recipients []Recipient) FanOutResult {
	result := FanOutResult{
		SucceededByClass: make(map[RecipientClass]int),
	}

	// Защитный контракт: неполная директива или пустой список получателей
	// дают нулевой результат без отправок
	if !directive.IsComplete() {
		logger.Warn("⚠️ Рассылка пропущена: директива неполная")
		return result
	}
	if len(recipients) == 0 {
		logger.Warn("⚠️ Рассылка пропущена: получателей нет")
		return result
	}

	result.DispatchID = uuid.New().String()
	payload := BuildPayload(directive, time.Now())

	logger.Info("📤 Рассылка %s: %s -> %d получателей",
		shortID(result.DispatchID), directive.FormattedMessage(), len(recipients))

	outcomes := make([]DeliveryOutcome, len(recipients))

	var wg sync.WaitGroup
	for idx := range recipients {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			outcomes[idx] = e.sendOne(ctx, recipients[idx], payload)
		}(idx)
	}
	wg.Wait()

	for _, outcome := range outcomes {
		if outcome.Succeeded {
			result.Succeeded++
			result.SucceededByClass[outcome.Recipient.Class]++
			e.stats.RecordSuccess(outcome.Recipient.Identifier, outcome.Recipient.Class == ClassOperator)
		} else {
			result.Failed++
			e.stats.RecordFailure()
		}
	}
	result.Total = len(outcomes)
	result.Outcomes = outcomes

	e.stats.RecordDispatch(directive.Trend)

	logger.Info("✅ Рассылка %s завершена: %d/%d доставлено, %d отказов",
		shortID(result.DispatchID), result.Succeeded, result.Total, result.Failed)

	return result
}

// sendOne выполняет одну попытку доставки с изоляцией отказов
func (e *Engine) sendOne(ctx context.Context, recipient Recipient, payload Payload) (outcome DeliveryOutcome) {
	outcome = DeliveryOutcome{Recipient: recipient}

	// Паника одного получателя не должна валить всю рассылку
	defer func() {
		if r := recover(); r != nil {
			logger.Error("💥 Паника при доставке %s: %v", recipient.Identifier, r)
			outcome.Succeeded = false
			outcome.Failure = FailureTransient
		}
	}()

	sendCtx := ctx
	if e.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, e.sendTimeout)
		defer cancel()
	}

	err := e.pusher.Send(sendCtx, recipient.DeliveryToken, payload)
	if err == nil {
		logger.Debug("   ✅ %s (%s)", recipient.Identifier, recipient.Class)
		outcome.Succeeded = true
		outcome.Failure = FailureNone
		return outcome
	}

	outcome.Failure = Classify(err)
	if outcome.Failure == FailureInvalidToken {
		logger.Warn("   🚫 Токен отозван: %s", recipient.Identifier)
	} else {
		logger.Error("   ❌ Доставка %s не удалась: %v", recipient.Identifier, err)
	}
	return outcome
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
