// internal/bridge/bridge_test.go
package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-fcm-signal-bridge/internal/config"
	"telegram-fcm-signal-bridge/internal/core/domain/dispatch"
	"telegram-fcm-signal-bridge/internal/core/domain/signal"
	"telegram-fcm-signal-bridge/internal/core/domain/stats"
	events "telegram-fcm-signal-bridge/internal/infrastructure/transport/event_bus"
	"telegram-fcm-signal-bridge/internal/stream"
)

type fakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (f *fakeDeduper) SeenMessage(_ context.Context, messageID string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	was := f.seen[messageID]
	f.seen[messageID] = true
	return was, nil
}

type fakeStore struct {
	mu         sync.Mutex
	recipients []dispatch.Recipient
	listErr    error
	listCalls  int
	filters    []dispatch.RecipientFilter
	marked     []string
}

func (f *fakeStore) ListActive(_ context.Context, filter dispatch.RecipientFilter) ([]dispatch.Recipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.recipients, nil
}

func (f *fakeStore) MarkTokenInvalid(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.marked = append(f.marked, token)
	return nil
}

type fakePusher struct {
	mu        sync.Mutex
	sent      []string
	badTokens map[string]error
}

func (f *fakePusher) Send(_ context.Context, token string, _ dispatch.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, token)
	if err, ok := f.badTokens[token]; ok {
		return err
	}
	return nil
}

func (f *fakePusher) sentTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

// auditTrail копит события шины для проверок после bus.Stop()
type auditTrail struct {
	mu     sync.Mutex
	events []events.Event
}

func (a *auditTrail) HandleEvent(event events.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.events = append(a.events, event)
	return nil
}

func (a *auditTrail) GetName() string { return "trail" }

func (a *auditTrail) GetSubscribedEvents() []events.EventType {
	return []events.EventType{
		events.EventDirectiveParsed,
		events.EventSignalRejected,
		events.EventDispatchCompleted,
	}
}

func (a *auditTrail) byType(eventType events.EventType) []events.Event {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []events.Event
	for _, e := range a.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type bridgeFixture struct {
	handler *Handler
	store   *fakeStore
	pusher  *fakePusher
	dedup   *fakeDeduper
	bus     *events.EventBus
	trail   *auditTrail
	stats   *stats.SessionStatistics
}

// Шина без обработчиков: события копятся в буфере и вычитываются
// синхронно на Stop, так проверки детерминированы
func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()

	bus := events.NewEventBus(events.Config{BufferSize: 32, WorkerCount: 0, EnableLogging: false})
	bus.Start()
	t.Cleanup(bus.Stop)

	trail := &auditTrail{}
	bus.Subscribe(events.EventDirectiveParsed, trail)
	bus.Subscribe(events.EventSignalRejected, trail)
	bus.Subscribe(events.EventDispatchCompleted, trail)

	statistics := stats.NewSessionStatistics()
	pusher := &fakePusher{}
	store := &fakeStore{recipients: []dispatch.Recipient{
		{Identifier: "alice", DeliveryToken: "tok-alice", Class: dispatch.ClassEndUser},
		{Identifier: "ops", DeliveryToken: "tok-ops", Class: dispatch.ClassOperator, Role: "night_shift"},
	}}
	dedup := &fakeDeduper{}

	engine := dispatch.NewEngine(pusher, statistics, time.Second)
	dispatcher := NewDispatcher(engine, store, dispatch.RecipientFilter{Mode: dispatch.FilterAll}, statistics, nil, bus)
	interpreter := signal.NewInterpreter(signal.NewVenueClock(7))
	handler := NewHandler(interpreter, dispatcher, dedup, bus)

	return &bridgeFixture{
		handler: handler,
		store:   store,
		pusher:  pusher,
		dedup:   dedup,
		bus:     bus,
		trail:   trail,
		stats:   statistics,
	}
}

func messageOf(id, text string) stream.InboundMessage {
	return stream.InboundMessage{ID: id, Text: text, ArrivedAt: time.Now()}
}

func TestHandlerDispatchesParsedDirective(t *testing.T) {
	f := newBridgeFixture(t)

	f.handler.HandleMessage(context.Background(), messageOf("101", "9:05 B"))
	f.bus.Stop()

	assert.ElementsMatch(t, []string{"tok-alice", "tok-ops"}, f.pusher.sentTokens())
	assert.Equal(t, 1, f.store.listCalls)

	parsed := f.trail.byType(events.EventDirectiveParsed)
	require.Len(t, parsed, 1)
	payload, ok := parsed[0].Data.(events.DirectiveParsed)
	require.True(t, ok)
	assert.Equal(t, "101", payload.MessageID)
	assert.Equal(t, signal.TrendCall, payload.Directive.Trend)
	assert.Equal(t, 9, payload.Directive.ExecutionHour)
	assert.Equal(t, 5, payload.Directive.ExecutionMinute)

	completed := f.trail.byType(events.EventDispatchCompleted)
	require.Len(t, completed, 1)
	result, ok := completed[0].Data.(events.DispatchCompleted)
	require.True(t, ok)
	assert.Equal(t, 2, result.Result.Succeeded)
	assert.Equal(t, 0, result.Result.Failed)

	summary := f.stats.Summary()
	assert.Equal(t, 1, summary.TotalDirectives)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Calls)
}

func TestHandlerSkipsDuplicateMessage(t *testing.T) {
	f := newBridgeFixture(t)

	f.handler.HandleMessage(context.Background(), messageOf("55", "10:30 S"))
	f.handler.HandleMessage(context.Background(), messageOf("55", "10:30 S"))
	f.bus.Stop()

	assert.Equal(t, 1, f.store.listCalls)
	assert.Len(t, f.pusher.sentTokens(), 2)
	assert.Len(t, f.trail.byType(events.EventDirectiveParsed), 1)
}

func TestHandlerRejectsNonSignalText(t *testing.T) {
	f := newBridgeFixture(t)

	f.handler.HandleMessage(context.Background(), messageOf("7", "доброе утро"))
	f.bus.Stop()

	assert.Empty(t, f.pusher.sentTokens())
	assert.Zero(t, f.store.listCalls)

	rejected := f.trail.byType(events.EventSignalRejected)
	require.Len(t, rejected, 1)
	payload, ok := rejected[0].Data.(events.SignalRejected)
	require.True(t, ok)
	assert.Equal(t, "7", payload.MessageID)
	assert.Equal(t, "no signal pattern matched", payload.Reason)
	assert.Empty(t, f.trail.byType(events.EventDispatchCompleted))
}

func TestHandlerProcessesWhenDedupUnavailable(t *testing.T) {
	f := newBridgeFixture(t)
	f.dedup.err = errors.New("redis: connection refused")

	f.handler.HandleMessage(context.Background(), messageOf("9", "11:00 B"))
	f.bus.Stop()

	assert.Len(t, f.pusher.sentTokens(), 2)
	assert.Len(t, f.trail.byType(events.EventDispatchCompleted), 1)
}

func TestDispatcherRevokesInvalidTokens(t *testing.T) {
	f := newBridgeFixture(t)
	f.pusher.badTokens = map[string]error{
		"tok-ops": dispatch.NewInvalidTokenError("requested entity was not found"),
	}

	f.handler.HandleMessage(context.Background(), messageOf("3", "12:15 S"))
	f.bus.Stop()

	assert.Equal(t, []string{"tok-ops"}, f.store.marked)

	completed := f.trail.byType(events.EventDispatchCompleted)
	require.Len(t, completed, 1)
	payload := completed[0].Data.(events.DispatchCompleted)
	assert.Equal(t, 1, payload.Result.Succeeded)
	assert.Equal(t, 1, payload.Result.Failed)
}

func TestDispatcherTransientFailureKeepsToken(t *testing.T) {
	f := newBridgeFixture(t)
	f.pusher.badTokens = map[string]error{
		"tok-alice": dispatch.NewTransientError(errors.New("503"), "fcm unavailable"),
	}

	f.handler.HandleMessage(context.Background(), messageOf("4", "13:45 B"))
	f.bus.Stop()

	assert.Empty(t, f.store.marked)
	assert.Equal(t, 1, f.stats.Summary().Failed)
}

func TestDispatcherStoreFailureSkipsDispatch(t *testing.T) {
	f := newBridgeFixture(t)
	f.store.listErr = errors.New("pq: connection refused")

	f.handler.HandleMessage(context.Background(), messageOf("2", "14:00 B"))
	f.bus.Stop()

	assert.Empty(t, f.pusher.sentTokens())
	assert.Len(t, f.trail.byType(events.EventDirectiveParsed), 1)
	assert.Empty(t, f.trail.byType(events.EventDispatchCompleted))
}

func TestFilterFromConfig(t *testing.T) {
	tests := []struct {
		name string
		mode string
		role string
		want dispatch.RecipientFilter
	}{
		{"all", config.DeliveryModeAll, "", dispatch.RecipientFilter{Mode: dispatch.FilterAll}},
		{"users", config.DeliveryModeEndUsers, "", dispatch.RecipientFilter{Mode: dispatch.FilterEndUsers}},
		{"operators", config.DeliveryModeOperators, "", dispatch.RecipientFilter{Mode: dispatch.FilterOperators}},
		{"operators_role", config.DeliveryModeOperatorsRole, "night_shift", dispatch.RecipientFilter{Mode: dispatch.FilterOperatorsByRole, Role: "night_shift"}},
		{"unknown falls back to all", "broadcast", "", dispatch.RecipientFilter{Mode: dispatch.FilterAll}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterFromConfig(tt.mode, tt.role))
		})
	}
}

// Диспетчер без шины и без кеша тоже работает
func TestDispatcherAppliesConfiguredFilter(t *testing.T) {
	store := &fakeStore{recipients: []dispatch.Recipient{
		{Identifier: "ops", DeliveryToken: "tok-ops", Class: dispatch.ClassOperator, Role: "night_shift"},
	}}
	pusher := &fakePusher{}
	statistics := stats.NewSessionStatistics()

	engine := dispatch.NewEngine(pusher, statistics, time.Second)
	filter := FilterFromConfig(config.DeliveryModeOperatorsRole, "night_shift")
	dispatcher := NewDispatcher(engine, store, filter, statistics, nil, nil)
	interpreter := signal.NewInterpreter(signal.NewVenueClock(7))
	handler := NewHandler(interpreter, dispatcher, &fakeDeduper{}, nil)

	handler.HandleMessage(context.Background(), messageOf("8", "15:20 S"))

	require.Len(t, store.filters, 1)
	assert.Equal(t, dispatch.FilterOperatorsByRole, store.filters[0].Mode)
	assert.Equal(t, "night_shift", store.filters[0].Role)
	assert.Equal(t, []string{"tok-ops"}, pusher.sentTokens())
}

func TestAuditSubscriberHandlesAllEvents(t *testing.T) {
	sub := NewAuditSubscriber()
	directive := &signal.Directive{
		Trend:           signal.TrendCall,
		ExecutionHour:   9,
		ExecutionMinute: 5,
	}

	assert.NoError(t, sub.HandleEvent(events.Event{
		Type: events.EventDirectiveParsed,
		Data: events.DirectiveParsed{Directive: directive, MessageID: "1"},
	}))
	assert.NoError(t, sub.HandleEvent(events.Event{
		Type: events.EventSignalRejected,
		Data: events.SignalRejected{Reason: "no signal pattern matched", MessageID: "2"},
	}))
	assert.NoError(t, sub.HandleEvent(events.Event{
		Type: events.EventDispatchCompleted,
		Data: events.DispatchCompleted{Directive: directive, Result: dispatch.FanOutResult{Total: 2, Succeeded: 2}},
	}))

	err := sub.HandleEvent(events.Event{Type: events.EventDirectiveParsed, Data: "garbage"})
	assert.Error(t, err)
}
