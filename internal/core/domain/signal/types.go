// internal/core/domain/signal/types.go
package signal

import (
	"fmt"
	"time"
)

// Trend - направление торговой директивы
type Trend string

const (
	TrendCall Trend = "call"
	TrendPut  Trend = "put"
)

// Letter возвращает букву сигнала в исходном формате канала
func (t Trend) Letter() string {
	if t == TrendCall {
		return "B"
	}
	return "S"
}

// Directive - разобранный сигнал, готовый к исполнению.
// Конструируется только с полным временем: состояния "время неизвестно" нет,
// вместо него интерпретатор возвращает Rejection.
type Directive struct {
	Trend           Trend     `json:"trend"`
	ExecutionHour   int       `json:"hour"`
	ExecutionMinute int       `json:"minute"`
	ExecutionSecond int       `json:"second"`
	TimeWasInferred bool      `json:"auto_time_added"`
	SourceText      string    `json:"original_message"`
	ParsedAt        time.Time `json:"parsed_at"`
}

// ExecutionTime форматирует время исполнения в виде HH:MM:SS
func (d *Directive) ExecutionTime() string {
	return fmt.Sprintf("%02d:%02d:%02d", d.ExecutionHour, d.ExecutionMinute, d.ExecutionSecond)
}

// FormattedMessage - каноничная форма сигнала "HH:MM:SS {B|S}"
func (d *Directive) FormattedMessage() string {
	return fmt.Sprintf("%s %s", d.ExecutionTime(), d.Trend.Letter())
}

// IsComplete проверяет, что директива полностью квалифицирована по времени
func (d *Directive) IsComplete() bool {
	if d == nil {
		return false
	}
	if d.Trend != TrendCall && d.Trend != TrendPut {
		return false
	}
	return d.ExecutionHour >= 0 && d.ExecutionHour <= 23 &&
		d.ExecutionMinute >= 0 && d.ExecutionMinute <= 59 &&
		d.ExecutionSecond >= 0 && d.ExecutionSecond <= 59
}

// Rejection - отказ интерпретации. Это не ошибка: неразборчивый или
// неоднозначный текст просто не является сигналом.
type Rejection struct {
	Reason string
}

func newRejection(format string, v ...interface{}) *Rejection {
	return &Rejection{Reason: fmt.Sprintf(format, v...)}
}

func (r *Rejection) String() string {
	return r.Reason
}
