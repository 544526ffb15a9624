package corebus

import (
	"context"
	"testing"
	"time"

	"github.com/vaneuver/corert"
)

func TestCallRoundTrip(t *testing.T) {
	server := NewServer(nil)
	server.RegisterHandler("echo", func(method string, params corert.Value) (corert.Value, error) {
		return params, nil
	})

	client, closeFn := NewMockTransport(server)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := client.Call(ctx, "echo", corert.StrVal("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Buf.String() != "hello" {
		t.Fatalf("expected echoed value, got %+v", result)
	}
}

func TestCallUnknownMethod(t *testing.T) {
	server := NewServer(nil)
	client, closeFn := NewMockTransport(server)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Call(ctx, "nope", corert.Null())
	if !corert.IsKind(err, corert.KindUnsupported) {
		t.Fatalf("expected UNSUPPORTED, got %v", err)
	}
}

func TestCallPropagatesHandlerError(t *testing.T) {
	server := NewServer(nil)
	server.RegisterHandler("fail", func(method string, params corert.Value) (corert.Value, error) {
		return corert.Null(), corert.NewErr("fail", corert.KindNoEntry, "not found")
	})
	client, closeFn := NewMockTransport(server)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Call(ctx, "fail", corert.Null())
	if !corert.IsKind(err, corert.KindNoEntry) {
		t.Fatalf("expected NOENTRY, got %v", err)
	}
}

func TestCallContextCancellation(t *testing.T) {
	server := NewServer(nil)
	block := make(chan struct{})
	server.RegisterHandler("slow", func(method string, params corert.Value) (corert.Value, error) {
		<-block
		return corert.Null(), nil
	})
	defer close(block)

	client, closeFn := NewMockTransport(server)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Call(ctx, "slow", corert.Null())
	if !corert.IsKind(err, corert.KindRetry) {
		t.Fatalf("expected RETRY on cancellation, got %v", err)
	}
}

func TestNotifyGetsNoResponse(t *testing.T) {
	server := NewServer(nil)
	received := make(chan corert.Value, 1)
	server.RegisterHandler("event", func(method string, params corert.Value) (corert.Value, error) {
		received <- params
		return corert.Null(), nil
	})
	client, closeFn := NewMockTransport(server)
	defer closeFn()

	if err := client.Notify("event", corert.I64(7)); err != nil {
		t.Fatalf("unexpected notify error: %v", err)
	}

	select {
	case v := <-received:
		if v.I != 7 {
			t.Fatalf("expected 7, got %+v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notify delivery")
	}
}

func TestSubscribeFanOut(t *testing.T) {
	server := NewServer(nil)
	server.RegisterSubscribeHandler("updates", func(method string, params corert.Value, emit func(corert.Value) error, unsubscribe <-chan struct{}) error {
		for i := int64(0); i < 3; i++ {
			if err := emit(corert.I64(i)); err != nil {
				return err
			}
		}
		<-unsubscribe
		return nil
	})

	client, closeFn := NewMockTransport(server)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub, err := client.Subscribe(ctx, "updates", corert.Null())
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	var got []int64
	for v := range sub.Events() {
		got = append(got, v.I)
		if len(got) == 3 {
			_ = sub.Close()
		}
	}
	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Fatalf("unexpected events: %+v", got)
	}
}
