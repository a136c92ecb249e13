package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockNotifier is a test implementation of Notifier
type mockNotifier struct {
	name      string
	typeName  string
	sendFunc  func(ctx context.Context, event Event) error
	sendCount int32
}

func (m *mockNotifier) Name() string {
	return m.name
}

func (m *mockNotifier) Type() string {
	return m.typeName
}

func (m *mockNotifier) Send(ctx context.Context, event Event) error {
	atomic.AddInt32(&m.sendCount, 1)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, event)
	}
	return nil
}

func (m *mockNotifier) getSendCount() int {
	return int(atomic.LoadInt32(&m.sendCount))
}

func TestManager_AddNotifier(t *testing.T) {
	mgr := NewManager()
	mgr.AddNotifier("test", &mockNotifier{name: "test", typeName: "mock"})

	assert.Equal(t, 1, mgr.NotifierCount())
}

func TestManager_AddNotifier_Replace(t *testing.T) {
	mgr := NewManager()

	mgr.AddNotifier("test", &mockNotifier{name: "test", typeName: "mock1"})
	mgr.AddNotifier("test", &mockNotifier{name: "test", typeName: "mock2"})

	assert.Equal(t, 1, mgr.NotifierCount(), "expected 1 notifier after replacement")

	notifiers := mgr.ListNotifiers()
	require.Len(t, notifiers, 1)
	assert.Equal(t, "mock2", notifiers[0].Type, "expected replacement notifier to be used")
}

func TestManager_Notify_MultipleProviders(t *testing.T) {
	mgr := NewManager()
	telegram := &mockNotifier{name: "telegram", typeName: "telegram"}
	discord := &mockNotifier{name: "discord", typeName: "discord"}

	mgr.AddNotifier("telegram", telegram)
	mgr.AddNotifier("discord", discord)

	event := Event{
		Type:        EventBackupCompleted,
		Environment: "prod_br",
		Database:    "app_production",
	}

	mgr.Notify(context.Background(), event, []string{"telegram", "discord"})

	assert.Equal(t, 1, telegram.getSendCount(), "expected 1 telegram send")
	assert.Equal(t, 1, discord.getSendCount(), "expected 1 discord send")
}

func TestManager_Notify_EmptyProviders(t *testing.T) {
	mgr := NewManager()
	notifier := &mockNotifier{name: "telegram", typeName: "telegram"}
	mgr.AddNotifier("telegram", notifier)

	event := Event{Type: EventBackupCompleted, Database: "app_production"}

	mgr.Notify(context.Background(), event, nil)
	mgr.Notify(context.Background(), event, []string{})

	assert.Equal(t, 0, notifier.getSendCount(), "expected no sends without providers")
}

func TestManager_Notify_UnknownProvider(t *testing.T) {
	mgr := NewManager()
	telegram := &mockNotifier{name: "telegram", typeName: "telegram"}
	mgr.AddNotifier("telegram", telegram)

	event := Event{Type: EventBackupCompleted, Database: "app_production"}

	// One exists, one doesn't; no panic, the known one still fires
	mgr.Notify(context.Background(), event, []string{"telegram", "unknown"})

	assert.Equal(t, 1, telegram.getSendCount())
}

func TestManager_Notify_SendError(t *testing.T) {
	mgr := NewManager()
	notifier := &mockNotifier{
		name:     "failing",
		typeName: "mock",
		sendFunc: func(ctx context.Context, event Event) error {
			return errors.New("send failed")
		},
	}
	mgr.AddNotifier("failing", notifier)

	event := Event{Type: EventBackupFailed, Database: "app_production"}

	// Logged, not fatal
	mgr.Notify(context.Background(), event, []string{"failing"})

	assert.Equal(t, 1, notifier.getSendCount(), "expected 1 send attempt")
}

func TestManager_Notify_Concurrent(t *testing.T) {
	mgr := NewManager()

	var sendCount int32
	notifier := &mockNotifier{
		name:     "test",
		typeName: "mock",
		sendFunc: func(ctx context.Context, event Event) error {
			atomic.AddInt32(&sendCount, 1)
			time.Sleep(10 * time.Millisecond)
			return nil
		},
	}
	mgr.AddNotifier("test", notifier)

	event := Event{Type: EventBackupCompleted, Database: "app_production"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mgr.Notify(context.Background(), event, []string{"test"})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), atomic.LoadInt32(&sendCount))
}

func TestEventTypes_Unique(t *testing.T) {
	types := []EventType{
		EventBackupCompleted,
		EventBackupFailed,
		EventRestoreCompleted,
		EventRestoreFailed,
		EventCloneCompleted,
		EventCloneFailed,
	}

	seen := make(map[EventType]bool)
	for _, et := range types {
		assert.NotEmpty(t, et, "event type should not be empty")
		assert.False(t, seen[et], "duplicate event type: %s", et)
		seen[et] = true
	}
}
