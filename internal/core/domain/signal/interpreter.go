// internal/core/domain/signal/interpreter.go
package signal

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"telegram-fcm-signal-bridge/pkg/logger"
)

// Шаблоны распознавания сигналов
var (
	timeWithTrendPattern       = regexp.MustCompile(`(?i)(\d{1,2})[:.]\s*(\d{2})\s+([SB])`)
	timeWithTrendStrictPattern = regexp.MustCompile(`(?i)(\d{1,2})[:.](\d{2})\s+([SB])`)
	bareTrendPattern           = regexp.MustCompile(`(?i)^([SB])$`)
)

// Interpreter разбирает текст сообщения канала в торговую директиву
type Interpreter struct {
	clock Clock
}

// NewInterpreter создает интерпретатор сигналов
func NewInterpreter(clock Clock) *Interpreter {
	return &Interpreter{clock: clock}
}

// Interpret превращает текст в директиву либо отказ. Ровно один из
// результатов ненулевой. Функция тотальна: битый, неоднозначный или
// внедиапазонный ввод - это штатный отказ, а не ошибка.
func (i *Interpreter) Interpret(text string, arrivedAt *time.Time) (*Directive, *Rejection) {
	normalized := strings.ToUpper(strings.TrimSpace(text))

	logger.Debug("🔍 Разбор сигнала: '%s'", normalized)

	var arrival *time.Time
	if arrivedAt != nil {
		local := i.clock.ToVenue(*arrivedAt)
		arrival = &local
	}

	// Сообщение с несколькими сигналами игнорируется целиком, без попытки
	// разделить его на части
	if len(timeWithTrendPattern.FindAllString(normalized, -1)) > 1 {
		logger.Warn("⚠️ Несколько сигналов в одном сообщении - игнорируем")
		return nil, newRejection("multiple time+trend occurrences")
	}

	// Шаблон 1: время указано явно
	match := timeWithTrendPattern.FindStringSubmatch(normalized)
	if match == nil {
		match = timeWithTrendStrictPattern.FindStringSubmatch(normalized)
	}

	if match != nil {
		hour, _ := strconv.Atoi(match[1])
		minute, _ := strconv.Atoi(match[2])

		if hour > 23 || minute > 59 {
			logger.Warn("⚠️ Время вне диапазона: %d:%d", hour, minute)
			return nil, newRejection("time out of range: %d:%02d", hour, minute)
		}

		second := 0
		if arrival != nil {
			second = arrival.Second()
		}

		directive := &Directive{
			Trend:           trendFromLetter(match[3]),
			ExecutionHour:   hour,
			ExecutionMinute: minute,
			ExecutionSecond: second,
			TimeWasInferred: false,
			SourceText:      text,
			ParsedAt:        i.clock.Now(),
		}

		logger.Directive(string(directive.Trend), directive.ExecutionTime(), false)
		return directive, nil
	}

	// Шаблон 2: только направление, время рассчитывается планировщиком
	if match := bareTrendPattern.FindStringSubmatch(normalized); match != nil {
		if arrival == nil {
			// Без момента прихода планировать не от чего
			return nil, newRejection("bare trend without arrival instant")
		}

		hour, minute, second := ScheduleExecution(*arrival)

		directive := &Directive{
			Trend:           trendFromLetter(match[1]),
			ExecutionHour:   hour,
			ExecutionMinute: minute,
			ExecutionSecond: second,
			TimeWasInferred: true,
			SourceText:      text,
			ParsedAt:        i.clock.Now(),
		}

		logger.Info("🕐 Авто-время: %s (сигнал получен в %s)",
			directive.ExecutionTime(), arrival.Format("15:04:05"))
		logger.Directive(string(directive.Trend), directive.ExecutionTime(), true)
		return directive, nil
	}

	logger.Debug("❌ Текст не содержит сигнала")
	return nil, newRejection("no signal pattern matched")
}

func trendFromLetter(letter string) Trend {
	if strings.EqualFold(letter, "S") {
		return TrendPut
	}
	return TrendCall
}
