package events

import (
	"testing"
	"time"

	"github.com/playadev/playa/internal/player/ipc"
	"github.com/playadev/playa/internal/player/ipc/ipctest"
)

// newPlayingServer returns a fake player with every polled property
// present. Leaving one unset would answer "property unavailable", which
// latches the client closed mid-test.
func newPlayingServer(t *testing.T) *ipctest.Server {
	t.Helper()
	srv := ipctest.NewServer(t)
	srv.SetProp("pause", false)
	srv.SetProp("time-pos", 0.0)
	srv.SetProp("percent-pos", 0.0)
	srv.SetProp("eof-reached", false)
	srv.SetProp("idle-active", false)
	return srv
}

func newTestListener(t *testing.T, srv *ipctest.Server) *Listener {
	t.Helper()
	cfg := ipc.DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.PollInterval = 10 * time.Millisecond
	client, err := ipc.Connect(srv.Path(), cfg, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)
	return NewListener(client, nil)
}

// collect registers a recording callback for a key.
func collect(t *testing.T, l *Listener, key string) *[]Event {
	t.Helper()
	var got []Event
	if err := l.Subscribe(key, func(ev Event) {
		got = append(got, ev)
	}); err != nil {
		t.Fatalf("subscribe %s: %v", key, err)
	}
	return &got
}

func countType(events []Event, typ Type) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestPauseResumeEdgeTriggered(t *testing.T) {
	srv := newPlayingServer(t)
	l := newTestListener(t, srv)
	got := collect(t, l, KeyPause)

	// First poll of an unpaused player must not look like a resume.
	l.poll()
	if len(*got) != 0 {
		t.Fatalf("initial poll emitted %v", *got)
	}

	srv.SetProp("pause", true)
	l.poll()
	l.poll()
	if len(*got) != 1 || (*got)[0].Type != TypePaused {
		t.Fatalf("after pausing got %v, want one TypePaused", *got)
	}

	srv.SetProp("pause", false)
	l.poll()
	l.poll()
	if len(*got) != 2 || (*got)[1].Type != TypeResumed {
		t.Fatalf("after resuming got %v, want TypePaused then TypeResumed", *got)
	}
}

func TestPositionThresholdCoalescing(t *testing.T) {
	srv := newPlayingServer(t)
	l := newTestListener(t, srv)
	got := collect(t, l, KeyTimePos)

	for _, pos := range []float64{10.0, 10.2, 10.3, 20.0} {
		srv.SetProp("time-pos", pos)
		l.poll()
	}

	if len(*got) != 2 {
		t.Fatalf("got %d position events, want 2: %v", len(*got), *got)
	}
	if (*got)[0].Position != 10.0 || (*got)[1].Position != 20.0 {
		t.Errorf("positions = [%v, %v], want [10, 20]",
			(*got)[0].Position, (*got)[1].Position)
	}
}

func TestPositionThresholdOverride(t *testing.T) {
	srv := newPlayingServer(t)
	l := newTestListener(t, srv)
	l.SetPositionThreshold(0.25)
	got := collect(t, l, KeyTimePos)

	for _, pos := range []float64{10.0, 10.1, 10.4} {
		srv.SetProp("time-pos", pos)
		l.poll()
	}

	if len(*got) != 2 {
		t.Fatalf("got %d position events, want 2: %v", len(*got), *got)
	}
	if (*got)[0].Position != 10.0 || (*got)[1].Position != 10.4 {
		t.Errorf("positions = [%v, %v], want [10, 10.4]",
			(*got)[0].Position, (*got)[1].Position)
	}
}

func TestCompletedEmittedOnce(t *testing.T) {
	srv := newPlayingServer(t)
	l := newTestListener(t, srv)
	got := collect(t, l, KeyEOF)

	l.poll()
	srv.SetProp("eof-reached", true)
	l.poll()
	l.poll()
	l.poll()

	if len(*got) != 1 || (*got)[0].Type != TypeCompleted {
		t.Fatalf("got %v, want exactly one TypeCompleted", *got)
	}
}

func TestClosedOnIdleEdge(t *testing.T) {
	srv := newPlayingServer(t)
	l := newTestListener(t, srv)
	got := collect(t, l, KeyIdle)

	l.poll()
	srv.SetProp("idle-active", true)
	l.poll()
	l.poll()

	if len(*got) != 1 || (*got)[0].Type != TypeClosed {
		t.Fatalf("got %v, want exactly one TypeClosed", *got)
	}
}

func TestAllGroupReceivesTransitions(t *testing.T) {
	srv := newPlayingServer(t)
	l := newTestListener(t, srv)
	all := collect(t, l, KeyAll)

	l.poll()
	srv.SetProp("pause", true)
	l.poll()
	l.poll()

	if n := countType(*all, TypePaused); n != 1 {
		t.Fatalf("all group saw %d TypePaused, want 1: %v", n, *all)
	}
}

func TestSubscribeObservesPropertyOnce(t *testing.T) {
	srv := newPlayingServer(t)
	l := newTestListener(t, srv)

	if err := l.Subscribe(KeyPause, func(Event) {}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := l.Subscribe(KeyPause, func(Event) {}); err != nil {
		t.Fatalf("subscribe again: %v", err)
	}

	if n := srv.CountCommand("observe_property"); n != 1 {
		t.Errorf("observe_property sent %d times, want 1", n)
	}
}

func TestStopUnobservesProperties(t *testing.T) {
	srv := newPlayingServer(t)
	l := newTestListener(t, srv)

	if err := l.Subscribe(KeyPause, func(Event) {}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	l.Stop()

	if l.IsRunning() {
		t.Error("listener still running after Stop")
	}
	if n := srv.CountCommand("unobserve_property"); n != 1 {
		t.Errorf("unobserve_property sent %d times, want 1", n)
	}
}

func TestProcessExitStopsListener(t *testing.T) {
	srv := newPlayingServer(t)
	l := newTestListener(t, srv)

	exited := make(chan Event, 1)
	if err := l.Subscribe(KeyProcess, func(ev Event) {
		select {
		case exited <- ev:
		default:
		}
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	l.client.MarkIntentionallyClosed()

	select {
	case ev := <-exited:
		if ev.Type != TypeProcessExited {
			t.Errorf("event type = %v, want TypeProcessExited", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no process exit notification")
	}

	deadline := time.Now().Add(time.Second)
	for l.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if l.IsRunning() {
		t.Error("listener still running after process exit")
	}
	l.Stop()
}

func TestProcessExitDeliveredOnce(t *testing.T) {
	srv := newPlayingServer(t)
	l := newTestListener(t, srv)

	exits := make(chan Event, 4)
	if err := l.Subscribe(KeyProcess, func(ev Event) {
		exits <- ev
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := l.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	l.client.MarkIntentionallyClosed()

	select {
	case <-exits:
	case <-time.After(2 * time.Second):
		t.Fatal("no process exit notification")
	}

	// An out-of-band exit report racing the poll loop's own detection
	// must not deliver a second notification.
	l.HandleProcessExit()

	select {
	case ev := <-exits:
		t.Fatalf("process exit delivered twice: %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
