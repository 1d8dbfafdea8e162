package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/events"
	"mobilepro.local/hunt-gateway/internal/subscribers"
	"mobilepro.local/hunt-gateway/internal/subscribers/hub"
)

type fakeSubscriber struct {
	name      string
	failUntil int

	mu    sync.Mutex
	calls int
	ch    chan events.Envelope
}

func (f *fakeSubscriber) Name() string {
	return f.name
}

func (f *fakeSubscriber) Handle(_ context.Context, event events.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failUntil {
		return errors.New("forced failure")
	}
	if f.ch != nil {
		f.ch <- event
	}
	return nil
}

func (f *fakeSubscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDispatcherRetriesThenSucceeds(t *testing.T) {
	sub := &fakeSubscriber{name: "sub", failUntil: 2, ch: make(chan events.Envelope, 1)}
	d := New(zap.NewNop(), []subscribers.Subscriber{sub}, WithRetry(3, time.Millisecond))
	event := events.Envelope{EventID: "evt_1"}

	d.Dispatch(context.Background(), event)

	select {
	case got := <-sub.ch:
		if got.EventID != event.EventID {
			t.Fatalf("unexpected event id: %s", got.EventID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
	if sub.Calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", sub.Calls())
	}
}

func TestDispatcherGivesUpAfterRetryCount(t *testing.T) {
	sub := &fakeSubscriber{name: "sub", failUntil: 10}
	d := New(nil, []subscribers.Subscriber{sub}, WithRetry(4, time.Millisecond))

	d.Dispatch(context.Background(), events.Envelope{EventID: "evt_2"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if sub.Calls() != 4 {
		t.Fatalf("expected exactly 4 attempts, got %d", sub.Calls())
	}
}

func TestDrainWaitsForEverySubscriber(t *testing.T) {
	slow := &fakeSubscriber{name: "slow", failUntil: 1}
	fast := &fakeSubscriber{name: "fast"}
	d := New(nil, []subscribers.Subscriber{slow, fast}, WithRetry(2, 20*time.Millisecond))

	d.Dispatch(context.Background(), events.Envelope{EventID: "evt_4", EventType: events.TypeTranscriptSubmitted})
	if err := d.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if slow.Calls() != 2 || fast.Calls() != 1 {
		t.Fatalf("unexpected calls slow=%d fast=%d", slow.Calls(), fast.Calls())
	}
}

func TestDrainHonorsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	d := New(nil, []subscribers.Subscriber{blockingSubscriber(block)})
	d.Dispatch(context.Background(), events.Envelope{EventID: "evt_5"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

type blockingSubscriber chan struct{}

func (b blockingSubscriber) Name() string { return "blocking" }

func (b blockingSubscriber) Handle(context.Context, events.Envelope) error {
	<-b
	return nil
}

func TestDispatcherSurvivesCanceledContext(t *testing.T) {
	sub := &fakeSubscriber{name: "sub", ch: make(chan events.Envelope, 1)}
	d := New(nil, []subscribers.Subscriber{sub})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, events.Envelope{EventID: "evt_3"})

	select {
	case <-sub.ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected delivery despite canceled context")
	}
}

func TestNilDispatcherIsNoOp(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(context.Background(), events.Envelope{})
	if err := d.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func TestHubReceivesSessionEventsInOrder(t *testing.T) {
	h := hub.New(nil)
	watch, stop := h.Watch("ses_1")
	defer stop()
	slow := &fakeSubscriber{name: "slow", failUntil: 1}
	d := New(nil, []subscribers.Subscriber{slow, h}, WithRetry(2, time.Millisecond))

	const n = 30
	for i := 0; i < n; i++ {
		d.Dispatch(context.Background(), events.Envelope{
			EventID:   fmt.Sprintf("evt_%02d", i),
			EventType: events.TypeGridChanged,
			SessionID: "ses_1",
		})
	}

	for i := 0; i < n; i++ {
		select {
		case got := <-watch:
			if want := fmt.Sprintf("evt_%02d", i); got.EventID != want {
				t.Fatalf("event %d: got %s, want %s", i, got.EventID, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	if err := d.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if slow.Calls() != n+1 {
		t.Fatalf("expected %d calls to the async subscriber, got %d", n+1, slow.Calls())
	}
}

type failingOrdered struct{ fakeSubscriber }

func (f *failingOrdered) Ordered() {}

func TestOrderedSubscriberIsCalledInlineOnce(t *testing.T) {
	sub := &failingOrdered{fakeSubscriber{name: "ordered", failUntil: 5}}
	d := New(nil, []subscribers.Subscriber{sub}, WithRetry(3, time.Millisecond))

	d.Dispatch(context.Background(), events.Envelope{EventID: "evt_6"})

	if sub.Calls() != 1 {
		t.Fatalf("expected one inline call, got %d", sub.Calls())
	}
}
