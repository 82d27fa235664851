package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func TestNewManager(t *testing.T) {
	m := NewManager(nil, nil)
	if m.State() != StateClosed {
		t.Errorf("initial state = %v, want StateClosed", m.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "Closed"},
		{StateConnected, "Connected"},
		{StateDisposing, "Disposing"},
		{StateDisposed, "Disposed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestManager_CompareAndSwap(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		old     State
		new     State
		swapped bool
		want    State
	}{
		{"closed to connected", StateClosed, StateClosed, StateConnected, true, StateConnected},
		{"disposing blocks connect", StateDisposing, StateClosed, StateConnected, false, StateDisposing},
		{"disposing to disposed", StateDisposing, StateDisposing, StateDisposed, true, StateDisposed},
		{"disposed stays disposed", StateDisposed, StateDisposing, StateDisposed, false, StateDisposed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emitter := &mockEmitter{}
			m := NewManager(nil, emitter)
			m.state.Store(int32(tt.from))

			if got := m.CompareAndSwap(tt.old, tt.new, "test"); got != tt.swapped {
				t.Errorf("CompareAndSwap() = %v, want %v", got, tt.swapped)
			}
			if m.State() != tt.want {
				t.Errorf("state = %v, want %v", m.State(), tt.want)
			}
			if wantEvents := map[bool]int{true: 1, false: 0}[tt.swapped]; len(emitter.Events()) != wantEvents {
				t.Errorf("events = %d, want %d", len(emitter.Events()), wantEvents)
			}
		})
	}
}

func TestManager_SwapReturnsPrevious(t *testing.T) {
	emitter := &mockEmitter{}
	m := NewManager(nil, emitter)

	if prev := m.Swap(StateDisposing, "dispose"); prev != StateClosed {
		t.Errorf("Swap() = %v, want StateClosed", prev)
	}
	if prev := m.Swap(StateDisposing, "dispose again"); prev != StateDisposing {
		t.Errorf("Swap() = %v, want StateDisposing", prev)
	}

	events := emitter.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event for a real change, got %d", len(events))
	}
	if events[0].previous != StateClosed || events[0].current != StateDisposing || events[0].reason != "dispose" {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestManager_SwapKeepsDisposed(t *testing.T) {
	emitter := &mockEmitter{}
	m := NewManager(nil, emitter)
	if !m.CompareAndSwap(StateClosed, StateDisposed, "done") {
		t.Fatal("CompareAndSwap() = false")
	}

	if prev := m.Swap(StateDisposing, "dispose again"); prev != StateDisposed {
		t.Errorf("Swap() = %v, want StateDisposed", prev)
	}
	if got := m.State(); got != StateDisposed {
		t.Errorf("State() = %v, want StateDisposed", got)
	}
	if events := emitter.Events(); len(events) != 1 {
		t.Errorf("expected only the first transition, got %+v", events)
	}
}

func TestManager_ConcurrentCompareAndSwapHasOneWinner(t *testing.T) {
	m := NewManager(nil, nil)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.CompareAndSwap(StateClosed, StateConnected, "race") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("winners = %d, want 1", wins.Load())
	}
}

func TestManager_WaitWithTimeout(t *testing.T) {
	m := NewManager(nil, nil)

	release := make(chan struct{})
	m.Go(func() { <-release })

	if err := m.WaitWithTimeout(20 * time.Millisecond); !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}

	close(release)
	if err := m.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout() = %v, want nil", err)
	}
}

func TestBackoff_Fixed(t *testing.T) {
	b := NewBackoff(2*time.Second, 0, 0)
	for i := 0; i < 3; i++ {
		if d := b.Next(); d != 2*time.Second {
			t.Errorf("attempt %d: Next() = %v, want 2s", i, d)
		}
	}
}

func TestBackoff_Exponential(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 350*time.Millisecond, 0)

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, w := range want {
		if d := b.Next(); d != w {
			t.Errorf("attempt %d: Next() = %v, want %v", i, d, w)
		}
	}

	b.Reset()
	if b.Current() != 100*time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 100ms", b.Current())
	}
}

func TestBackoff_Jitter(t *testing.T) {
	b := NewBackoff(time.Second, 0, 0.2)
	for i := 0; i < 50; i++ {
		d := b.Next()
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("Next() = %v outside ±20%% of 1s", d)
		}
	}
}

func TestBackoff_WaitCanceled(t *testing.T) {
	b := NewBackoff(time.Hour, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}
