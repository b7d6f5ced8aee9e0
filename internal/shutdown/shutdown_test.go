package shutdown

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHandlerClosesInReverseOrder(t *testing.T) {
	h := New(zap.NewNop(), time.Second)

	var order []string
	h.Add("first", func() error {
		order = append(order, "first")
		return nil
	})
	h.Add("second", func() error {
		order = append(order, "second")
		return nil
	})
	h.Add("third", func() error {
		order = append(order, "third")
		return errors.New("close failed")
	})

	h.Run()

	if len(order) != 3 {
		t.Fatalf("Expected 3 closers run, got %d", len(order))
	}
	if order[0] != "third" || order[1] != "second" || order[2] != "first" {
		t.Errorf("Expected LIFO order, got %v", order)
	}
}

func TestHandlerAbandonsHungCloser(t *testing.T) {
	h := New(zap.NewNop(), 50*time.Millisecond)

	h.Add("hung", func() error {
		time.Sleep(10 * time.Second)
		return nil
	})

	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run blocked on a hung closer")
	}
}

func TestHandlerRunIsIdempotent(t *testing.T) {
	h := New(zap.NewNop(), time.Second)

	count := 0
	h.Add("once", func() error {
		count++
		return nil
	})

	h.Run()
	h.Run()

	if count != 1 {
		t.Errorf("Expected closer to run once, ran %d times", count)
	}
}
