package ui

import (
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// mockModel is a test UI model
type mockModel struct {
	shouldPanic bool
	panicOnView bool
	updateCount int32
	viewCount   int32
}

func (m *mockModel) Init() tea.Cmd {
	return nil
}

func (m *mockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	atomic.AddInt32(&m.updateCount, 1)
	if m.shouldPanic && atomic.LoadInt32(&m.updateCount) > 5 {
		panic("update panic test")
	}

	// Quit after some updates to end the test
	if atomic.LoadInt32(&m.updateCount) > 10 {
		return m, tea.Quit
	}

	return m, tea.Tick(10*time.Millisecond, func(t time.Time) tea.Msg {
		return nil
	})
}

func (m *mockModel) View() string {
	atomic.AddInt32(&m.viewCount, 1)
	if m.panicOnView && atomic.LoadInt32(&m.viewCount) > 3 {
		panic("view panic test")
	}
	return "Test UI"
}

func TestRecoveryHandlerRestartsAfterPanic(t *testing.T) {
	logger := zap.NewNop()

	// Panic on the first run, exit cleanly on the second
	runCount := int32(0)
	createUI := func() (tea.Model, []tea.ProgramOption) {
		count := atomic.AddInt32(&runCount, 1)
		return &mockModel{shouldPanic: count == 1}, []tea.ProgramOption{
			tea.WithoutSignalHandler(),
		}
	}

	handler := NewRecoveryHandler(logger, createUI)
	handler.restartDelay = 10 * time.Millisecond
	handler.maxRestarts = 5

	done := make(chan error)
	go func() {
		done <- handler.RunWithRecovery()
	}()

	select {
	case <-done:
		restarts := handler.GetRestartCount()
		if restarts < 1 {
			t.Error("Expected at least 1 restart")
		}
		t.Logf("UI restarted %d times", restarts)
	case <-time.After(2 * time.Second):
		handler.Stop()
	}
}

func TestRecoveryHandlerGivesUp(t *testing.T) {
	logger := zap.NewNop()

	createUI := func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{shouldPanic: true}, []tea.ProgramOption{
			tea.WithoutSignalHandler(),
		}
	}

	handler := NewRecoveryHandler(logger, createUI)
	handler.restartDelay = 10 * time.Millisecond
	handler.maxRestarts = 2

	done := make(chan error)
	go func() {
		done <- handler.RunWithRecovery()
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected error after exceeding max restarts")
		}
	case <-time.After(5 * time.Second):
		handler.Stop()
		t.Fatal("RunWithRecovery did not give up in time")
	}
}

func TestSafeUIWrapper(t *testing.T) {
	logger := zap.NewNop()
	model := &mockModel{panicOnView: true}
	wrapper := NewSafeUIWrapper(model, logger)

	cmd := wrapper.Init()
	if cmd != nil {
		t.Error("Expected nil command from Init")
	}

	_, cmd = wrapper.Update(nil)
	if cmd == nil {
		t.Error("Expected non-nil command from Update")
	}

	view := wrapper.View()
	if view != "Test UI" {
		t.Logf("Got view: %s", view)
	}

	// Trigger panic in view
	model.viewCount = 10
	view = wrapper.View()
	if view != "UI Error: View crashed. Press Ctrl+C to exit." {
		t.Errorf("Expected error message, got: %s", view)
	}
}

// A rendering crash must not take background services down.
func TestRecoveryIsolatesServices(t *testing.T) {
	logger := zap.NewNop()

	pollActive := int32(1)
	pollCount := int32(0)

	go func() {
		for atomic.LoadInt32(&pollActive) == 1 {
			atomic.AddInt32(&pollCount, 1)
			time.Sleep(10 * time.Millisecond)
		}
	}()

	createUI := func() (tea.Model, []tea.ProgramOption) {
		return &mockModel{shouldPanic: true}, []tea.ProgramOption{
			tea.WithoutSignalHandler(),
		}
	}

	handler := NewRecoveryHandler(logger, createUI)
	handler.restartDelay = 50 * time.Millisecond
	handler.maxRestarts = 2

	go handler.RunWithRecovery()

	time.Sleep(300 * time.Millisecond)

	atomic.StoreInt32(&pollActive, 0)
	time.Sleep(50 * time.Millisecond)

	polls := atomic.LoadInt32(&pollCount)
	t.Logf("Polls completed: %d, UI restarts: %d", polls, handler.GetRestartCount())

	if polls < 20 {
		t.Errorf("Expected at least 20 polls, got %d", polls)
	}

	if handler.GetRestartCount() < 1 {
		t.Error("Expected UI to restart at least once")
	}
}
