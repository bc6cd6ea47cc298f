package sketchroom

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/sketchroom/internal/appconfig"
)

func testConfig(t *testing.T) appconfig.Config {
	t.Helper()
	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Database.Path = filepath.Join(t.TempDir(), "server.db")
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Socket.Addr = "127.0.0.1:0"
	cfg.Auth.TokenSecret = "test-secret"
	return cfg
}

func TestNewRequiresAService(t *testing.T) {
	if _, err := New(testConfig(t), nil); err == nil {
		t.Fatal("expected error with no services enabled")
	}
}

func TestNewRequiresTokenSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.TokenSecret = ""
	if _, err := New(cfg, nil, WithHTTP()); err == nil {
		t.Fatal("expected error without token secret")
	}
}

func TestServerStartStop(t *testing.T) {
	server, err := New(testConfig(t), nil, WithHTTP(), WithSocket())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := server.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := server.Start(ctx); err == nil {
		t.Fatal("second start accepted")
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := server.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
