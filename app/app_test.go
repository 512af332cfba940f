package app

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/gmkit/errors"
	transport "github.com/kochabx/gmkit/transport/http"
)

func newServer(addr string) *transport.Server {
	return transport.NewServer(addr, gin.New(), transport.WithHealthOptions(transport.HealthOption{Enabled: true}))
}

func TestNew(t *testing.T) {
	app := New(WithServer(newServer("")), WithServers(nil, newServer("")))

	info := app.Info()
	if info.ServerCount != 2 {
		t.Fatalf("expected 2 servers, got %d", info.ServerCount)
	}
	if info.Started {
		t.Fatal("expected application not to be started")
	}
}

func TestStartStop(t *testing.T) {
	var closed atomic.Bool
	app := New(
		WithServer(newServer("127.0.0.1:18941")),
		WithShutdownTimeout(5*time.Second),
		WithClose("engine", func(ctx context.Context) error {
			closed.Store(true)
			return nil
		}, time.Second),
	)

	done := make(chan error, 1)
	go func() { done <- app.Start() }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://127.0.0.1:18941/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	app.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error from Start: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	if !closed.Load() {
		t.Fatal("expected close function to run")
	}
	if err := app.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestNoServers(t *testing.T) {
	app := New()

	go func() {
		time.Sleep(100 * time.Millisecond)
		app.Stop()
	}()

	if err := app.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	app := New(WithContext(ctx), WithServer(newServer("127.0.0.1:18942")))
	cancel()

	done := make(chan error, 1)
	go func() { done <- app.Start() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start should return quickly on a canceled context")
	}
}

func TestBeforeStart(t *testing.T) {
	errKeyMissing := errors.NotFound("key missing")
	var closed atomic.Bool
	app := New(
		WithServer(newServer("127.0.0.1:18943")),
		WithBeforeStart(func(context.Context) error { return errKeyMissing }),
		WithClose("cleanup", func(context.Context) error {
			closed.Store(true)
			return nil
		}, 0),
	)

	if err := app.Start(); !errors.Is(err, errKeyMissing) {
		t.Fatalf("expected before-start error, got %v", err)
	}
	if !closed.Load() {
		t.Fatal("expected close functions to run after a failed start")
	}
}

func TestAddServer(t *testing.T) {
	app := New()

	if err := app.AddServer(newServer("")); err != nil {
		t.Fatalf("unexpected error adding server: %v", err)
	}
	if err := app.AddServer(nil); !errors.Is(err, ErrNilServer) {
		t.Fatalf("expected ErrNilServer, got %v", err)
	}

	app.state = stateRunning
	if err := app.AddServer(newServer("")); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if n := app.Info().ServerCount; n != 1 {
		t.Fatalf("expected 1 server, got %d", n)
	}
}

func TestRegisterClose(t *testing.T) {
	app := New()

	called := false
	if err := app.RegisterClose("test", func(ctx context.Context) error {
		called = true
		return nil
	}, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := app.RegisterClose("nil", nil, time.Second); !errors.Is(err, ErrNilClose) {
		t.Fatalf("expected ErrNilClose, got %v", err)
	}

	if err := app.close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !called {
		t.Fatal("expected close function to be called")
	}
}

func TestCloseFuncPanic(t *testing.T) {
	app := New()
	if err := app.runClose(CloseFunc{
		Name:    "panic",
		Fn:      func(context.Context) error { panic("test panic") },
		Timeout: time.Second,
	}); !errors.Is(err, ErrClosePanic) {
		t.Fatalf("expected ErrClosePanic, got %v", err)
	}
}

func TestCloseFuncTimeout(t *testing.T) {
	app := New(
		WithClose("slow", func(ctx context.Context) error {
			time.Sleep(2 * time.Second)
			return nil
		}, 100*time.Millisecond),
	)

	start := time.Now()
	if err := app.close(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if d := time.Since(start); d > 500*time.Millisecond {
		t.Fatalf("close tasks took too long: %v", d)
	}
}

func TestCloseOrder(t *testing.T) {
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	app := New(
		WithClose("engine", record("engine"), 0),
		WithClose("verifier", record("verifier"), 0),
	)
	if err := app.RegisterClose("redis", record("redis"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := app.close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	want := []string{"redis", "verifier", "engine"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestCloseErrorsJoined(t *testing.T) {
	errFlush := errors.Internal("flush failed")
	var ran atomic.Bool
	app := New(
		WithClose("last", func(context.Context) error {
			ran.Store(true)
			return nil
		}, 0),
		WithClose("first", func(context.Context) error { return errFlush }, 0),
	)

	go func() {
		time.Sleep(50 * time.Millisecond)
		app.Stop()
	}()

	err := app.Start()
	if !errors.Is(err, errFlush) {
		t.Fatalf("expected flush error, got %v", err)
	}
	if !ran.Load() {
		t.Fatal("expected remaining close functions to run after a failure")
	}
	if !app.Info().Started {
		t.Fatal("expected application to report started")
	}
}

func TestStopBeforeStart(t *testing.T) {
	app := New()
	app.Stop()

	done := make(chan error, 1)
	go func() { done <- app.Start() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start should return when stopped beforehand")
	}
}
