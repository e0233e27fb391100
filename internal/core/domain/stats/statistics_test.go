// internal/core/domain/stats/statistics_test.go
package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"telegram-fcm-signal-bridge/internal/core/domain/signal"
)

func TestStatisticsCounters(t *testing.T) {
	s := NewSessionStatistics()

	s.RecordDispatch(signal.TrendCall)
	s.RecordSuccess("user@example.com", false)
	s.RecordSuccess("admin@example.com", true)
	s.RecordFailure()

	sum := s.Summary()
	assert.Equal(t, 1, sum.TotalDirectives)
	assert.Equal(t, 2, sum.Successful)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Calls)
	assert.Equal(t, 0, sum.Puts)
	assert.Equal(t, 2, sum.UniqueRecipients)
	assert.Equal(t, 1, sum.EndUserSends)
	assert.Equal(t, 1, sum.OperatorSends)
	assert.Equal(t, "66.7%", sum.SuccessRate)
}

func TestStatisticsUniqueRecipients(t *testing.T) {
	s := NewSessionStatistics()

	s.RecordSuccess("same@example.com", false)
	s.RecordSuccess("same@example.com", false)
	s.RecordSuccess("same@example.com", true)

	sum := s.Summary()
	assert.Equal(t, 1, sum.UniqueRecipients)
	assert.Equal(t, 3, sum.Successful)
}

func TestStatisticsEmptySummary(t *testing.T) {
	s := NewSessionStatistics()

	sum := s.Summary()
	assert.Equal(t, 0, sum.TotalDirectives)
	assert.Equal(t, "0.0%", sum.SuccessRate)
}

func TestStatisticsReset(t *testing.T) {
	s := NewSessionStatistics()

	s.RecordDispatch(signal.TrendPut)
	s.RecordSuccess("user@example.com", false)
	s.RecordFailure()
	s.Reset()

	sum := s.Summary()
	assert.Equal(t, 0, sum.TotalDirectives)
	assert.Equal(t, 0, sum.Successful)
	assert.Equal(t, 0, sum.Failed)
	assert.Equal(t, 0, sum.Puts)
	assert.Equal(t, 0, sum.UniqueRecipients)
}

// Конкурирующие рассылки не должны терять инкременты
func TestStatisticsConcurrentUpdates(t *testing.T) {
	s := NewSessionStatistics()

	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.RecordDispatch(signal.TrendCall)
				s.RecordSuccess("user@example.com", false)
				s.RecordFailure()
			}
		}(w)
	}
	wg.Wait()

	sum := s.Summary()
	assert.Equal(t, workers*perWorker, sum.TotalDirectives)
	assert.Equal(t, workers*perWorker, sum.Successful)
	assert.Equal(t, workers*perWorker, sum.Failed)
	assert.Equal(t, workers*perWorker, sum.Calls)
}
