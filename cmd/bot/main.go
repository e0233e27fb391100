package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-fcm-signal-bridge/internal/bridge"
	"telegram-fcm-signal-bridge/internal/config"
	"telegram-fcm-signal-bridge/internal/core/domain/dispatch"
	signaldomain "telegram-fcm-signal-bridge/internal/core/domain/signal"
	"telegram-fcm-signal-bridge/internal/core/domain/stats"
	"telegram-fcm-signal-bridge/internal/infrastructure/api/fcm"
	"telegram-fcm-signal-bridge/internal/infrastructure/api/gateway"
	"telegram-fcm-signal-bridge/internal/infrastructure/api/telegram"
	"telegram-fcm-signal-bridge/internal/infrastructure/cache/redis"
	"telegram-fcm-signal-bridge/internal/infrastructure/persistence/postgres"
	"telegram-fcm-signal-bridge/internal/infrastructure/persistence/postgres/repository/recipients"
	events "telegram-fcm-signal-bridge/internal/infrastructure/transport/event_bus"
	"telegram-fcm-signal-bridge/internal/stream"
	"telegram-fcm-signal-bridge/pkg/logger"
	"telegram-fcm-signal-bridge/pkg/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Некорректная конфигурация: %v", err)
	}

	if err := logger.InitGlobal(cfg.LogFile, cfg.LogLevel, cfg.DebugMode); err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer logger.CloseGlobal()

	printHeader("МОСТ СИГНАЛОВ: КАНАЛ -> PUSH УВЕДОМЛЕНИЯ")
	printConfig(cfg)

	startTime := time.Now()
	ctx := context.Background()

	// База получателей
	db, err := postgres.Connect(&postgres.Config{
		Host:           cfg.DBHost,
		Port:           cfg.DBPort,
		User:           cfg.DBUser,
		Password:       cfg.DBPassword,
		Database:       cfg.DBName,
		SSLMode:        cfg.DBSSLMode,
		MaxConns:       cfg.DBMaxConns,
		MaxIdle:        cfg.DBMaxIdle,
		MigrationsPath: cfg.DBMigrationsPath,
	})
	if err != nil {
		log.Fatalf("Не удалось подключиться к PostgreSQL: %v", err)
	}
	defer db.Close()

	recipientRepo := recipients.NewRecipientRepository(db)

	if counts, err := recipientRepo.CountByClass(ctx); err != nil {
		logger.Warn("⚠️ Не удалось посчитать получателей: %v", err)
	} else {
		fmt.Printf("👥 Активные получатели: пользователей %d, операторов %d\n",
			counts["end_user"], counts["operator"])
	}

	// Redis опционален: без него мост живет, но без дедупликации
	var cache *redis.Cache
	if cfg.RedisEnabled {
		cache, err = redis.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("⚠️ Redis недоступен, работаем без дедупликации: %v", err)
			cache = nil
		}
	}
	defer cache.Close()

	// FCM
	pusher, err := fcm.NewClient(ctx, cfg.FCMProjectID, cfg.FCMCredentialsFile, cfg.FCMAPIURL, cfg.RequestTimeout)
	if err != nil {
		log.Fatalf("Не удалось инициализировать FCM: %v", err)
	}

	// Домен
	clock := signaldomain.NewVenueClock(cfg.TZOffsetHours)
	interpreter := signaldomain.NewInterpreter(clock)
	statistics := stats.NewSessionStatistics()
	engine := dispatch.NewEngine(pusher, statistics, cfg.RequestTimeout)

	// Шина событий
	bus := events.NewEventBus()
	bus.Start()
	audit := bridge.NewAuditSubscriber()
	for _, eventType := range audit.GetSubscribedEvents() {
		bus.Subscribe(eventType, audit)
	}

	filter := bridge.FilterFromConfig(cfg.DeliveryMode, cfg.OperatorRoleFilter)
	dispatcher := bridge.NewDispatcher(engine, recipientRepo, filter, statistics, cache, bus)
	handler := bridge.NewHandler(interpreter, dispatcher, cache, bus)

	source := buildSource(cfg)
	sup := stream.NewSupervisor(source, handler)

	// Периодический отчет статистики
	reportDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.StatsReportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logger.Status(statistics.Summary().ToMap())
			case <-reportDone:
				return
			}
		}
	}()

	fmt.Println("🎮 Управление:")
	fmt.Println("   Ctrl+C - Остановить мост")
	fmt.Println()
	printSeparator()

	done := make(chan stream.TerminationCause, 1)
	go func() {
		done <- sup.Run(ctx)
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	var cause stream.TerminationCause
	select {
	case sig := <-stopChan:
		fmt.Println()
		logger.Info("📴 Получен сигнал %s, останавливаемся...", sig)
		sup.Stop()
		cause = <-done
	case cause = <-done:
	}

	close(reportDone)
	bus.Stop()

	// Финальный отчет и снимок статистики на любом пути завершения
	printHeader("Завершение работы")
	fmt.Printf("⏱️  Время работы: %s\n", utils.FormatDuration(time.Since(startTime)))
	logger.Status(statistics.Summary().ToMap())
	printBusMetrics(bus)

	if err := cache.SnapshotStats(ctx, statistics.Summary()); err != nil {
		logger.Debug("Снимок статистики не сохранен: %v", err)
	}

	if cause != stream.TerminationGraceful {
		logger.Error("🛑 Мост остановлен аварийно: %s", cause)
		return 1
	}

	fmt.Println("✅ Мост остановлен корректно")
	return 0
}

// buildSource выбирает транспорт потока по конфигурации
func buildSource(cfg *config.Config) stream.Source {
	switch cfg.StreamSource {
	case config.StreamSourceGateway:
		return gateway.NewSource(cfg.GatewayURL, cfg.GatewayToken)
	default:
		client := telegram.NewClient(cfg.TelegramAPIURL, cfg.BotToken,
			time.Duration(cfg.PollTimeout)*time.Second)
		return telegram.NewSource(client, cfg.ChannelID)
	}
}

func printConfig(cfg *config.Config) {
	fmt.Printf("🔧 Конфигурация:\n")
	fmt.Printf("   Источник потока: %s\n", cfg.StreamSource)
	if cfg.StreamSource == config.StreamSourceTelegram {
		fmt.Printf("   Токен бота: %s\n", utils.MaskSecret(cfg.BotToken))
		fmt.Printf("   Канал: %d\n", cfg.ChannelID)
		fmt.Printf("   Long-poll таймаут: %d сек\n", cfg.PollTimeout)
	} else {
		fmt.Printf("   Шлюз: %s\n", cfg.GatewayURL)
	}
	fmt.Printf("   Режим доставки: %s\n", cfg.DeliveryMode)
	if cfg.DeliveryMode == config.DeliveryModeOperatorsRole {
		fmt.Printf("   Фильтр роли: %s\n", cfg.OperatorRoleFilter)
	}
	fmt.Printf("   FCM проект: %s\n", cfg.FCMProjectID)
	fmt.Printf("   Пояс площадки: UTC%+d\n", cfg.TZOffsetHours)
	fmt.Printf("   База данных: %s@%s:%d/%s\n", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if cfg.RedisEnabled {
		fmt.Printf("   Redis: %s\n", cfg.RedisAddr)
	} else {
		fmt.Printf("   Redis: ВЫКЛ\n")
	}
	fmt.Printf("   Отчет статистики: каждые %s\n", cfg.StatsReportInterval)
	fmt.Println()
}

func printBusMetrics(bus *events.EventBus) {
	metrics := bus.GetMetrics()
	fmt.Printf("📬 Шина событий: опубликовано %d, обработано %d, отброшено %d\n",
		metrics.EventsPublished, metrics.EventsProcessed, metrics.EventsDropped)
}

func printHeader(text string) {
	width := 80
	padding := (width - len(text)) / 2

	if padding < 0 {
		padding = 0
	}

	fmt.Println(strings.Repeat("═", width))
	fmt.Printf("%s%s%s\n",
		strings.Repeat(" ", padding),
		text,
		strings.Repeat(" ", width-len(text)-padding))
	fmt.Println(strings.Repeat("═", width))
}

func printSeparator() {
	fmt.Println(strings.Repeat("─", 80))
}
