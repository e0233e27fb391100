// internal/core/domain/stats/statistics.go
package stats

import (
	"fmt"
	"sync"
	"time"

	"telegram-fcm-signal-bridge/internal/core/domain/signal"
)

// SessionStatistics - счетчики сессии вещания. Создается один раз на
// процесс, наполняется движком рассылки, читается диагностикой.
// Внедряется явно, глобального экземпляра нет.
type SessionStatistics struct {
	mu               sync.Mutex
	startTime        time.Time
	totalDirectives  int
	totalSucceeded   int
	totalFailed      int
	countByTrend     map[signal.Trend]int
	uniqueRecipients map[string]struct{}
	endUserSends     int
	operatorSends    int
}

// Summary - снимок статистики для диагностики
type Summary struct {
	UptimeSeconds    int    `json:"uptime_seconds"`
	TotalDirectives  int    `json:"total_directives"`
	Successful       int    `json:"successful"`
	Failed           int    `json:"failed"`
	SuccessRate      string `json:"success_rate"`
	Calls            int    `json:"calls"`
	Puts             int    `json:"puts"`
	UniqueRecipients int    `json:"unique_recipients"`
	EndUserSends     int    `json:"end_user_sends"`
	OperatorSends    int    `json:"operator_sends"`
}

// NewSessionStatistics создает чистый накопитель статистики
func NewSessionStatistics() *SessionStatistics {
	return &SessionStatistics{
		startTime:        time.Now(),
		countByTrend:     make(map[signal.Trend]int),
		uniqueRecipients: make(map[string]struct{}),
	}
}

// RecordDispatch учитывает одну завершенную рассылку директивы
func (s *SessionStatistics) RecordDispatch(trend signal.Trend) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalDirectives++
	s.countByTrend[trend]++
}

// RecordSuccess учитывает успешную доставку одному получателю
func (s *SessionStatistics) RecordSuccess(identifier string, operator bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalSucceeded++
	if identifier != "" {
		s.uniqueRecipients[identifier] = struct{}{}
	}
	if operator {
		s.operatorSends++
	} else {
		s.endUserSends++
	}
}

// RecordFailure учитывает неудачную доставку одному получателю
func (s *SessionStatistics) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalFailed++
}

// Summary возвращает снимок счетчиков на текущий момент
func (s *SessionStatistics) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempts := s.totalSucceeded + s.totalFailed
	if attempts == 0 {
		attempts = 1
	}
	rate := float64(s.totalSucceeded) / float64(attempts) * 100

	return Summary{
		UptimeSeconds:    int(time.Since(s.startTime).Seconds()),
		TotalDirectives:  s.totalDirectives,
		Successful:       s.totalSucceeded,
		Failed:           s.totalFailed,
		SuccessRate:      fmt.Sprintf("%.1f%%", rate),
		Calls:            s.countByTrend[signal.TrendCall],
		Puts:             s.countByTrend[signal.TrendPut],
		UniqueRecipients: len(s.uniqueRecipients),
		EndUserSends:     s.endUserSends,
		OperatorSends:    s.operatorSends,
	}
}

// Reset обнуляет счетчики по явной команде оператора
func (s *SessionStatistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startTime = time.Now()
	s.totalDirectives = 0
	s.totalSucceeded = 0
	s.totalFailed = 0
	s.countByTrend = make(map[signal.Trend]int)
	s.uniqueRecipients = make(map[string]struct{})
	s.endUserSends = 0
	s.operatorSends = 0
}

// ToMap разворачивает снимок в набор строк для статусного вывода
func (sum Summary) ToMap() map[string]string {
	return map[string]string{
		"uptime":            fmt.Sprintf("%dс", sum.UptimeSeconds),
		"директив":          fmt.Sprintf("%d", sum.TotalDirectives),
		"доставлено":        fmt.Sprintf("%d", sum.Successful),
		"не доставлено":     fmt.Sprintf("%d", sum.Failed),
		"успешность":        sum.SuccessRate,
		"call":              fmt.Sprintf("%d", sum.Calls),
		"put":               fmt.Sprintf("%d", sum.Puts),
		"устройств":         fmt.Sprintf("%d", sum.UniqueRecipients),
		"пользователям":     fmt.Sprintf("%d", sum.EndUserSends),
		"операторам":        fmt.Sprintf("%d", sum.OperatorSends),
	}
}
