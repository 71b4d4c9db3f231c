package dispatch

import (
	"testing"

	"github.com/feltworks/tablelink/internal/envelope"
)

func frame(t *testing.T, frameType string) envelope.Envelope {
	t.Helper()
	env, err := envelope.New(frameType, nil)
	if err != nil {
		t.Fatalf("envelope.New failed: %v", err)
	}
	return env
}

func TestDispatch_RegistrationOrder(t *testing.T) {
	d := NewDispatcher(nil)

	var order []int
	d.On("deal", func(envelope.Envelope) { order = append(order, 1) })
	d.On("deal", func(envelope.Envelope) { order = append(order, 2) })
	d.On("deal", func(envelope.Envelope) { order = append(order, 3) })

	d.Dispatch(frame(t, "deal"))

	if len(order) != 3 {
		t.Fatalf("got %d calls, want 3", len(order))
	}
	for i, got := range order {
		if got != i+1 {
			t.Errorf("call %d = handler %d, want handler %d", i, got, i+1)
		}
	}
}

func TestDispatch_TypeIsolation(t *testing.T) {
	d := NewDispatcher(nil)

	dealCalls := 0
	betCalls := 0
	d.On("deal", func(envelope.Envelope) { dealCalls++ })
	d.On("bet", func(envelope.Envelope) { betCalls++ })

	d.Dispatch(frame(t, "deal"))

	if dealCalls != 1 {
		t.Errorf("deal handler called %d times, want 1", dealCalls)
	}
	if betCalls != 0 {
		t.Errorf("bet handler called %d times, want 0", betCalls)
	}
}

func TestOff_RemovesOnlyThatHandler(t *testing.T) {
	d := NewDispatcher(nil)

	firstCalls := 0
	secondCalls := 0
	sub := d.On("deal", func(envelope.Envelope) { firstCalls++ })
	d.On("deal", func(envelope.Envelope) { secondCalls++ })

	d.Off(sub)
	d.Dispatch(frame(t, "deal"))

	if firstCalls != 0 {
		t.Errorf("removed handler called %d times, want 0", firstCalls)
	}
	if secondCalls != 1 {
		t.Errorf("remaining handler called %d times, want 1", secondCalls)
	}

	// Double-remove is a no-op.
	d.Off(sub)
	if got := d.HandlerCount("deal"); got != 1 {
		t.Errorf("HandlerCount = %d, want 1", got)
	}
}

func TestOffAll(t *testing.T) {
	d := NewDispatcher(nil)

	calls := 0
	d.On("deal", func(envelope.Envelope) { calls++ })
	d.On("deal", func(envelope.Envelope) { calls++ })

	d.OffAll("deal")
	d.Dispatch(frame(t, "deal"))

	if calls != 0 {
		t.Errorf("handlers called %d times after OffAll, want 0", calls)
	}
	if got := d.HandlerCount("deal"); got != 0 {
		t.Errorf("HandlerCount = %d, want 0", got)
	}
}

func TestDispatch_PanicIsolation(t *testing.T) {
	d := NewDispatcher(nil)

	afterCalls := 0
	d.On("deal", func(envelope.Envelope) { panic("handler bug") })
	d.On("deal", func(envelope.Envelope) { afterCalls++ })

	d.Dispatch(frame(t, "deal"))
	if afterCalls != 1 {
		t.Errorf("handler after panic called %d times, want 1", afterCalls)
	}

	// Subsequent frames still dispatch.
	d.Dispatch(frame(t, "deal"))
	if afterCalls != 2 {
		t.Errorf("handler called %d times after second frame, want 2", afterCalls)
	}
}

func TestDispatch_UnregisterDuringDispatch(t *testing.T) {
	d := NewDispatcher(nil)

	calls := 0
	var sub Subscription
	sub = d.On("deal", func(envelope.Envelope) {
		calls++
		d.Off(sub)
	})

	d.Dispatch(frame(t, "deal"))
	d.Dispatch(frame(t, "deal"))

	if calls != 1 {
		t.Errorf("self-removing handler called %d times, want 1", calls)
	}
}
