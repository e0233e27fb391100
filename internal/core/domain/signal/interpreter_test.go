// internal/core/domain/signal/interpreter_test.go
package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Время прихода задается в UTC, площадка живет в WIB (UTC+7)
func wibArrival(hour, minute, second int) *time.Time {
	t := time.Date(2025, 1, 15, hour-7, minute, second, 0, time.UTC)
	return &t
}

func TestInterpretExplicitTime(t *testing.T) {
	interp := NewInterpreter(NewVenueClock(7))

	tests := []struct {
		name       string
		text       string
		arrival    *time.Time
		wantTrend  Trend
		wantHour   int
		wantMinute int
		wantSecond int
	}{
		{"базовый call", "9:05 B", wibArrival(9, 4, 10), TrendCall, 9, 5, 10},
		{"базовый put", "14:30 S", wibArrival(14, 29, 42), TrendPut, 14, 30, 42},
		{"нижний регистр", "9:05 b", wibArrival(9, 4, 0), TrendCall, 9, 5, 0},
		{"точка-разделитель", "9.05 S", wibArrival(9, 4, 7), TrendPut, 9, 5, 7},
		{"пробел после разделителя", "9: 05 B", wibArrival(9, 4, 3), TrendCall, 9, 5, 3},
		{"несколько пробелов перед буквой", "9:05   B", wibArrival(9, 4, 1), TrendCall, 9, 5, 1},
		{"сигнал внутри текста", "вход 21:15 S по рынку", wibArrival(21, 14, 30), TrendPut, 21, 15, 30},
		{"границы диапазона", "23:59 S", wibArrival(23, 58, 59), TrendPut, 23, 59, 59},
		{"полночь", "0:00 B", wibArrival(0, 0, 5), TrendCall, 0, 0, 5},
		{"без момента прихода секунды нулевые", "9:05 B", nil, TrendCall, 9, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directive, rejection := interp.Interpret(tt.text, tt.arrival)

			require.Nil(t, rejection)
			require.NotNil(t, directive)
			assert.Equal(t, tt.wantTrend, directive.Trend)
			assert.Equal(t, tt.wantHour, directive.ExecutionHour)
			assert.Equal(t, tt.wantMinute, directive.ExecutionMinute)
			assert.Equal(t, tt.wantSecond, directive.ExecutionSecond)
			assert.False(t, directive.TimeWasInferred)
			assert.Equal(t, tt.text, directive.SourceText)
			assert.True(t, directive.IsComplete())
		})
	}
}

func TestInterpretBareTrend(t *testing.T) {
	interp := NewInterpreter(NewVenueClock(7))

	tests := []struct {
		name       string
		text       string
		arrival    *time.Time
		wantTrend  Trend
		wantHour   int
		wantMinute int
	}{
		{"до порога - следующая минута", "B", wibArrival(14, 7, 10), TrendCall, 14, 8},
		{"после порога - через две минуты", "S", wibArrival(14, 7, 45), TrendPut, 14, 9},
		{"нижний регистр с пробелами", "  b  ", wibArrival(10, 20, 5), TrendCall, 10, 21},
		{"ровно на пороге", "S", wibArrival(14, 7, 30), TrendPut, 14, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directive, rejection := interp.Interpret(tt.text, tt.arrival)

			require.Nil(t, rejection)
			require.NotNil(t, directive)
			assert.Equal(t, tt.wantTrend, directive.Trend)
			assert.Equal(t, tt.wantHour, directive.ExecutionHour)
			assert.Equal(t, tt.wantMinute, directive.ExecutionMinute)
			assert.Equal(t, 0, directive.ExecutionSecond)
			assert.True(t, directive.TimeWasInferred)
		})
	}
}

func TestInterpretUsesVenueTimezone(t *testing.T) {
	interp := NewInterpreter(NewVenueClock(7))

	// 07:07:10 UTC = 14:07:10 WIB, расчет идет от времени площадки
	arrival := time.Date(2025, 1, 15, 7, 7, 10, 0, time.UTC)
	directive, rejection := interp.Interpret("B", &arrival)

	require.Nil(t, rejection)
	require.NotNil(t, directive)
	assert.Equal(t, 14, directive.ExecutionHour)
	assert.Equal(t, 8, directive.ExecutionMinute)
	assert.Equal(t, 0, directive.ExecutionSecond)
}

func TestInterpretRejections(t *testing.T) {
	interp := NewInterpreter(NewVenueClock(7))

	tests := []struct {
		name    string
		text    string
		arrival *time.Time
	}{
		{"два сигнала в сообщении", "9:05 B 10:20 S", wibArrival(9, 0, 0)},
		{"дубль одного сигнала", "9:05 B 9:05 B", wibArrival(9, 0, 0)},
		{"час вне диапазона", "25:00 S", wibArrival(9, 0, 0)},
		{"минута вне диапазона", "9:75 B", wibArrival(9, 0, 0)},
		{"все вне диапазона", "99:99 S", wibArrival(9, 0, 0)},
		{"голое направление без момента прихода", "B", nil},
		{"произвольный текст", "доброе утро", wibArrival(9, 0, 0)},
		{"пустая строка", "", wibArrival(9, 0, 0)},
		{"две буквы подряд", "SB", wibArrival(9, 0, 0)},
		{"буквы через пробел", "S B", wibArrival(9, 0, 0)},
		{"время без направления", "9:05", wibArrival(9, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directive, rejection := interp.Interpret(tt.text, tt.arrival)

			assert.Nil(t, directive)
			require.NotNil(t, rejection)
			assert.NotEmpty(t, rejection.Reason)
		})
	}
}

func TestDirectiveFormatting(t *testing.T) {
	directive := &Directive{
		Trend:           TrendCall,
		ExecutionHour:   9,
		ExecutionMinute: 5,
		ExecutionSecond: 3,
	}

	assert.Equal(t, "09:05:03", directive.ExecutionTime())
	assert.Equal(t, "09:05:03 B", directive.FormattedMessage())

	directive.Trend = TrendPut
	assert.Equal(t, "09:05:03 S", directive.FormattedMessage())
}

func TestDirectiveIsComplete(t *testing.T) {
	var nilDirective *Directive
	assert.False(t, nilDirective.IsComplete())

	assert.False(t, (&Directive{Trend: "sideways", ExecutionHour: 9}).IsComplete())
	assert.False(t, (&Directive{Trend: TrendCall, ExecutionHour: 24}).IsComplete())
	assert.True(t, (&Directive{Trend: TrendPut}).IsComplete())
}
