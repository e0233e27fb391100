// internal/stream/supervisor.go
package stream

import (
	"context"
	"sync"
	"time"

	"telegram-fcm-signal-bridge/pkg/logger"
)

// State - состояние супервизора потока
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateListening
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateListening:
		return "listening"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TerminationCause - причина окончательной остановки
type TerminationCause int

const (
	TerminationNone TerminationCause = iota
	TerminationGraceful
	TerminationFatal
	TerminationRetriesExhausted
)

func (c TerminationCause) String() string {
	switch c {
	case TerminationGraceful:
		return "graceful"
	case TerminationFatal:
		return "fatal"
	case TerminationRetriesExhausted:
		return "retries_exhausted"
	default:
		return "none"
	}
}

// Параметры переподключения. Константы дизайна, не настройки.
const (
	backoffBase   = 5 * time.Second
	backoffFactor = 1.5
	backoffCap    = 60 * time.Second
	maxRetries    = 10
)

// backoff - нарастающая задержка переподключения
type backoff struct {
	delay time.Duration
}

func newBackoff() *backoff {
	return &backoff{delay: backoffBase}
}

// Next возвращает текущую задержку и наращивает следующую
func (b *backoff) Next() time.Duration {
	current := b.delay
	next := time.Duration(float64(b.delay) * backoffFactor)
	if next > backoffCap {
		next = backoffCap
	}
	b.delay = next
	return current
}

// Reset возвращает задержку к базовой после успешного подключения
func (b *backoff) Reset() {
	b.delay = backoffBase
}

// Supervisor владеет жизненным циклом соединения с потоком: подключение,
// подписка, прием сообщений, переподключение с нарастающей задержкой и
// дренаж при остановке.
type Supervisor struct {
	source  Source
	handler Handler

	mu    sync.Mutex
	state State
	cause TerminationCause

	retryCount int
	backoff    *backoff

	stopChan chan struct{}
	stopOnce sync.Once
	inflight sync.WaitGroup

	// подменяется в тестах
	wait func(ctx context.Context, d time.Duration) bool
}

// NewSupervisor создает супервизор потока
func NewSupervisor(source Source, handler Handler) *Supervisor {
	s := &Supervisor{
		source:   source,
		handler:  handler,
		state:    StateDisconnected,
		backoff:  newBackoff(),
		stopChan: make(chan struct{}),
	}
	s.wait = s.waitOrStop
	return s
}

// State возвращает текущее состояние
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cause возвращает причину остановки
func (s *Supervisor) Cause() TerminationCause {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// Stop запрашивает остановку: супервизор дождется незавершенных рассылок
// и отключится
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Run ведет цикл супервизора до окончательной остановки и возвращает ее
// причину. На временных сбоях процесс не завершается: выход возможен
// только по команде, по фатальной ошибке или по исчерпанию попыток.
func (s *Supervisor) Run(ctx context.Context) TerminationCause {
	logger.Info("🚀 Супервизор потока запущен (источник: %s)", s.source.Name())

	for {
		if s.stopRequested() || ctx.Err() != nil {
			s.terminate(TerminationGraceful)
			return s.Cause()
		}

		s.setState(StateConnecting)
		conn, sub, err := s.establish(ctx)

		if err == nil {
			s.mu.Lock()
			s.retryCount = 0
			s.backoff.Reset()
			s.mu.Unlock()
			s.setState(StateSubscribed)

			err = s.listen(ctx, sub)

			if err == nil {
				// Команда остановки: дренаж перед отключением
				s.setState(StateDraining)
				logger.Info("🧹 Дренаж: ждем завершения незавершенных рассылок...")
				s.inflight.Wait()
				sub.Close()
				conn.Close()
				s.terminate(TerminationGraceful)
				return s.Cause()
			}

			sub.Close()
			conn.Close()
		}

		// Сюда попадаем с ошибкой подключения, подписки или приема
		if IsFatal(err) {
			logger.Error("🛑 ФАТАЛЬНАЯ ОШИБКА ПОТОКА: %v", err)
			logger.Error("🛑 Автоматических повторов не будет, проверьте учетные данные")
			s.terminate(TerminationFatal)
			return s.Cause()
		}

		if delay, ok := RateLimitDelay(err); ok {
			// Сервер предписал паузу: выдерживаем ее целиком, попытка
			// переподключения при этом не расходуется
			logger.Warn("⏳ Rate limit: пауза %s по требованию сервера", delay)
			if !s.wait(ctx, delay) {
				s.terminate(TerminationGraceful)
				return s.Cause()
			}
			continue
		}

		s.mu.Lock()
		s.retryCount++
		attempt := s.retryCount
		s.mu.Unlock()

		if attempt > maxRetries {
			logger.Error("🛑 Исчерпан лимит переподключений (%d)", maxRetries)
			s.terminate(TerminationRetriesExhausted)
			return s.Cause()
		}

		delay := s.backoff.Next()
		s.setState(StateDisconnected)
		logger.Warn("🔄 Переподключение %d/%d через %s: %v", attempt, maxRetries, delay, err)

		if !s.wait(ctx, delay) {
			s.terminate(TerminationGraceful)
			return s.Cause()
		}
	}
}

// establish подключается к потоку и оформляет свежую подписку
func (s *Supervisor) establish(ctx context.Context) (Connection, Subscription, error) {
	logger.Info("🔌 Подключение к потоку...")

	conn, err := s.source.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}

	sub, err := s.source.Subscribe(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	logger.Info("✅ Подписка оформлена, соединение установлено")
	return conn, sub, nil
}

// listen принимает сообщения до обрыва или команды остановки.
// Возвращает nil при штатной остановке, иначе ошибку транспорта.
func (s *Supervisor) listen(ctx context.Context, sub Subscription) error {
	s.setState(StateListening)
	logger.Info("👂 Слушаем поток...")

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-listenCtx.Done():
		}
	}()

	for {
		msg, err := sub.Next(listenCtx)
		if err != nil {
			if s.stopRequested() || listenCtx.Err() != nil {
				return nil
			}
			return err
		}

		if msg.Text == "" {
			logger.Debug("⏭ Сообщение без текста пропущено")
			continue
		}

		// Обработка идет параллельно с приемом следующего сообщения,
		// дренаж дожидается всех незавершенных обработок
		s.inflight.Add(1)
		go func(msg InboundMessage) {
			defer s.inflight.Done()
			s.handler.HandleMessage(ctx, msg)
		}(msg)
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Supervisor) terminate(cause TerminationCause) {
	s.mu.Lock()
	s.state = StateTerminated
	s.cause = cause
	s.mu.Unlock()
	logger.Info("🏁 Супервизор остановлен: %s", cause)
}

func (s *Supervisor) stopRequested() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

func (s *Supervisor) waitOrStop(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}
