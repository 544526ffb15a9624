package corebus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vaneuver/corert"
)

func TestListenAndConnectOverUnixSocket(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "corebus.sock")

	server := NewServer(nil)
	server.RegisterHandler("ping", func(method string, params corert.Value) (corert.Value, error) {
		return corert.StrVal("pong"), nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Listen(sockPath) }()

	// Give the listener a moment to bind.
	var client *Client
	var err error
	for i := 0; i < 50; i++ {
		client, err = Connect(sockPath)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := client.Call(ctx, "ping", corert.Null())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Buf.String() != "pong" {
		t.Fatalf("expected pong, got %+v", result)
	}
}

func TestUnregisteredSubscribeMethodFails(t *testing.T) {
	server := NewServer(nil)
	client, closeFn := NewMockTransport(server)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub, err := client.Subscribe(ctx, "nope", corert.Null())
	if err != nil {
		t.Fatalf("subscribe call itself should not fail: %v", err)
	}
	_, ok := <-sub.Events()
	if ok {
		t.Fatal("expected events channel to close immediately")
	}
	if !corert.IsKind(sub.Err(), corert.KindUnsupported) {
		t.Fatalf("expected UNSUPPORTED, got %v", sub.Err())
	}
}

func TestObserverRecordsRequestsAndSubscriptions(t *testing.T) {
	server := NewServer(nil)
	metrics := corert.NewMetrics()
	server.SetObserver(metrics)
	server.RegisterHandler("ping", func(method string, params corert.Value) (corert.Value, error) {
		return corert.Null(), nil
	})
	server.RegisterSubscribeHandler("stream", func(method string, params corert.Value, emit func(corert.Value) error, unsubscribe <-chan struct{}) error {
		if err := emit(corert.I64(1)); err != nil {
			return err
		}
		<-unsubscribe
		return nil
	})

	client, closeFn := NewMockTransport(server)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := client.Call(ctx, "ping", corert.Null()); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if metrics.Requests.Load() != 1 {
		t.Fatalf("expected 1 recorded request, got %d", metrics.Requests.Load())
	}

	sub, err := client.Subscribe(ctx, "stream", corert.Null())
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	<-sub.Events()
	if metrics.ActiveSubscriptions.Load() != 1 {
		t.Fatalf("expected 1 active subscription, got %d", metrics.ActiveSubscriptions.Load())
	}
	if metrics.Deliveries.Load() != 1 {
		t.Fatalf("expected 1 recorded delivery, got %d", metrics.Deliveries.Load())
	}
	sub.Close()
}

func TestMockHandlerSetTracksCalls(t *testing.T) {
	server := NewServer(nil)
	mocks := NewMockHandlerSet()
	mocks.SetResult("thing", corert.I64(42), nil)
	server.RegisterHandler("thing", mocks.Handler())

	client, closeFn := NewMockTransport(server)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := client.Call(ctx, "thing", corert.Null()); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if mocks.CallCount("thing") != 3 {
		t.Fatalf("expected 3 recorded calls, got %d", mocks.CallCount("thing"))
	}
}
