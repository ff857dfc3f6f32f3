package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashwinyue/chatbot-admin/internal/config"
)

func newTestLauncher(portStart, portRange int) *Launcher {
	return New(&config.Config{
		Chat: config.ChatConfig{
			BinPath:   "./chatbot-chat",
			PortStart: portStart,
			PortRange: portRange,
		},
	})
}

func TestProbePortSkipsBusyPort(t *testing.T) {
	// 占用起始端口，探测应跳到下一个
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	l := newTestLauncher(busy, 10)
	port, err := l.probePort()
	if err != nil {
		t.Fatalf("probePort() unexpected error: %v", err)
	}
	if port == busy {
		t.Errorf("probePort() = %d, should skip busy port", port)
	}
	if port < busy || port >= busy+10 {
		t.Errorf("probePort() = %d, outside range [%d, %d)", port, busy, busy+10)
	}
}

func TestProbePortExhausted(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	l := newTestLauncher(busy, 1)
	if _, err := l.probePort(); !errors.Is(err, ErrNoFreePort) {
		t.Errorf("probePort() error = %v, want ErrNoFreePort", err)
	}
}

func TestWaitReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"status":"ok"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := newTestLauncher(8502, 10)
	if err := l.waitReady(context.Background(), srv.URL); err != nil {
		t.Errorf("waitReady() unexpected error: %v", err)
	}
}

func TestWaitReadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := newTestLauncher(8502, 10)
	err := l.waitReady(ctx, "http://127.0.0.1:1")
	if err == nil {
		t.Fatal("waitReady() expected error on cancelled context")
	}
	if !errors.Is(err, context.Canceled) && !strings.Contains(err.Error(), "not ready") {
		t.Errorf("waitReady() error = %v", err)
	}
}

func TestRunningTracking(t *testing.T) {
	l := newTestLauncher(8502, 10)

	if got := len(l.Running()); got != 0 {
		t.Errorf("Running() count = %d, want 0", got)
	}

	l.running["bot"] = &Instance{Name: "bot", Port: 8502, PID: 123}

	if got := len(l.Running()); got != 1 {
		t.Errorf("Running() count = %d, want 1", got)
	}
	inst, ok := l.Get("bot")
	if !ok || inst.Port != 8502 {
		t.Errorf("Get() = %v, %v", inst, ok)
	}
	if _, ok := l.Get("other"); ok {
		t.Error("Get() should miss unknown chatbot")
	}
}

func TestStopUnknownChatbot(t *testing.T) {
	l := newTestLauncher(8502, 10)
	if err := l.Stop("ghost"); err == nil {
		t.Error("Stop() expected error for unknown chatbot")
	}
}
