// internal/core/domain/dispatch/types.go
package dispatch

import (
	"context"
	"strconv"
	"time"

	"telegram-fcm-signal-bridge/internal/core/domain/signal"
)

// RecipientClass - класс получателя
type RecipientClass string

const (
	ClassEndUser  RecipientClass = "end_user"
	ClassOperator RecipientClass = "operator"
)

// Recipient - получатель push-уведомлений. Identifier служит ключом для
// логов и статистики и не участвует в дедупликации: один адрес в двух
// классах получает две независимые отправки.
type Recipient struct {
	Identifier    string
	DeliveryToken string
	Class         RecipientClass
	Role          string
}

// FilterMode - режим выборки получателей
type FilterMode int

const (
	FilterAll FilterMode = iota
	FilterEndUsers
	FilterOperators
	FilterOperatorsByRole
)

// RecipientFilter - фильтр выборки из каталога получателей
type RecipientFilter struct {
	Mode FilterMode
	Role string
}

// RecipientStore - каталог получателей. Список запрашивается заново на
// каждую рассылку, кеширование между директивами не допускается.
type RecipientStore interface {
	ListActive(ctx context.Context, filter RecipientFilter) ([]Recipient, error)
	MarkTokenInvalid(ctx context.Context, token string) error
}

// Pusher - транспорт доставки одного уведомления
type Pusher interface {
	Send(ctx context.Context, token string, payload Payload) error
}

// Payload - содержимое уведомления в формате, совместимом с приложением
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// BuildPayload собирает данные уведомления из директивы.
// Все значения строковые, формат полей зафиксирован клиентским приложением.
func BuildPayload(d *signal.Directive, dispatchedAt time.Time) Payload {
	return Payload{
		Title: "🎯 New Trading Signal",
		Body:  d.FormattedMessage(),
		Data: map[string]string{
			"type":              "TRADING_SIGNAL",
			"trend":             string(d.Trend),
			"hour":              strconv.Itoa(d.ExecutionHour),
			"minute":            strconv.Itoa(d.ExecutionMinute),
			"second":            strconv.Itoa(d.ExecutionSecond),
			"original_message":  d.SourceText,
			"formatted_message": d.FormattedMessage(),
			"auto_time_added":   strconv.FormatBool(d.TimeWasInferred),
			"parsed_at":         d.ParsedAt.Format(time.RFC3339),
			"timestamp":         strconv.FormatInt(dispatchedAt.UnixMilli(), 10),
		},
	}
}

// DeliveryOutcome - исход доставки одному получателю
type DeliveryOutcome struct {
	Recipient Recipient
	Succeeded bool
	Failure   FailureKind
}

// FanOutResult - агрегат одной рассылки. Формируется заново на каждую
// директиву и после возврата не изменяется.
type FanOutResult struct {
	DispatchID       string
	Total            int
	Succeeded        int
	Failed           int
	SucceededByClass map[RecipientClass]int
	Outcomes         []DeliveryOutcome
}

// InvalidTokens возвращает токены, помеченные как безвозвратно негодные
func (r *FanOutResult) InvalidTokens() []string {
	var tokens []string
	for _, outcome := range r.Outcomes {
		if outcome.Failure == FailureInvalidToken {
			tokens = append(tokens, outcome.Recipient.DeliveryToken)
		}
	}
	return tokens
}
