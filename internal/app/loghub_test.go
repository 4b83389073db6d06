package app

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogHubDeliversToSubscriber(t *testing.T) {
	hub := NewLogHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish("hello")

	select {
	case line := <-ch:
		if line != "hello" {
			t.Errorf("line = %q, want %q", line, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for line")
	}
}

func TestLogHubReplaysBacklog(t *testing.T) {
	hub := NewLogHub()
	hub.Publish("first")
	hub.Publish("second")

	ch, cancel := hub.Subscribe()
	defer cancel()

	got := []string{<-ch, <-ch}
	if got[0] != "first" || got[1] != "second" {
		t.Errorf("backlog = %v, want [first second]", got)
	}
}

func TestLogHubBacklogCapped(t *testing.T) {
	hub := NewLogHub()
	for i := 0; i < logHubBacklog+50; i++ {
		hub.Publish("line")
	}

	hub.mu.Lock()
	n := len(hub.backlog)
	hub.mu.Unlock()
	if n != logHubBacklog {
		t.Errorf("backlog size = %d, want %d", n, logHubBacklog)
	}
}

func TestLogHubCancelStopsDelivery(t *testing.T) {
	hub := NewLogHub()
	ch, cancel := hub.Subscribe()
	cancel()

	hub.Publish("after cancel")

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after cancel")
	}
}

func TestLogHubCancelTwiceIsSafe(t *testing.T) {
	hub := NewLogHub()
	_, cancel := hub.Subscribe()
	cancel()
	cancel()
}

func TestLogHubCorePublishesEntries(t *testing.T) {
	hub := NewLogHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	enc := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
	logger := zap.New(hub.Core(enc, zapcore.InfoLevel))

	logger.Info("market round complete", zap.String("account", "acc1"))

	select {
	case line := <-ch:
		if !strings.Contains(line, "market round complete") {
			t.Errorf("line %q missing message", line)
		}
		if !strings.Contains(line, "acc1") {
			t.Errorf("line %q missing field value", line)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for log line")
	}
}

func TestLogHubCoreRespectsLevel(t *testing.T) {
	hub := NewLogHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	enc := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
	logger := zap.New(hub.Core(enc, zapcore.WarnLevel))

	logger.Info("should be filtered")

	select {
	case line := <-ch:
		t.Errorf("unexpected line %q for below-level entry", line)
	case <-time.After(50 * time.Millisecond):
	}
}
