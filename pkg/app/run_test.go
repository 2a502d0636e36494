package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/coffee/internal/cron"
	"github.com/flemzord/coffee/internal/gateway"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coffee.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

const serverConfig = `version: "1"
modules:
  store.memory: {}
  gateway:
    bind: 127.0.0.1:0
    allow_anonymous: true
`

func TestResolveConfigPath_XDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "coffee")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfgPath := filepath.Join(cfgDir, "coffee.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: \"1\""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cfgPath {
		t.Errorf("got %q, want %q", got, cfgPath)
	}
}

func TestResolveConfigPath_NotFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent/path")
	t.Chdir(t.TempDir())

	_, err := ResolveConfigPath()
	if !errors.Is(err, ErrNoConfig) {
		t.Errorf("err = %v, want ErrNoConfig", err)
	}
}

func TestDefaultDataDir_XDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	got := DefaultDataDir()
	want := "/custom/data/coffee"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefaultDataDir_Fallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")

	got := DefaultDataDir()
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".local", "share", "coffee")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestServe_InvalidConfigPath(t *testing.T) {
	err := Serve(context.Background(), RunParams{ConfigPath: "/nonexistent/config.yaml"})
	if err == nil {
		t.Error("expected error for invalid config path")
	}
}

func TestServe_InvalidConfigContent(t *testing.T) {
	path := writeConfig(t, "not: valid: yaml: [")
	if err := Serve(context.Background(), RunParams{ConfigPath: path}); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestServe_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "modules:\n  gateway: {}")
	if err := Serve(context.Background(), RunParams{ConfigPath: path}); err == nil {
		t.Error("expected validation error")
	}
}

func TestServe_RequiresStore(t *testing.T) {
	path := writeConfig(t, "version: \"1\"\nmodules:\n  gateway:\n    allow_anonymous: true\n")
	err := Serve(context.Background(), RunParams{ConfigPath: path})
	if err == nil || !strings.Contains(err.Error(), "store module") {
		t.Errorf("err = %v, want store module error", err)
	}
}

// startServer runs the server from serverConfig and returns the gateway
// base URL.
func startServer(t *testing.T) string {
	t.Helper()
	_, base := runServer(t, writeConfig(t, serverConfig))
	return base
}

func runServer(t *testing.T, path string) (*Server, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := NewServer(ctx, RunParams{
		ConfigPath: path,
		DataDir:    t.TempDir(),
		LogWriter:  io.Discard,
	})
	if err != nil {
		cancel()
		t.Fatalf("NewServer: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	})

	mod, ok := srv.App.Module("gateway")
	if !ok {
		t.Fatal("gateway module not loaded")
	}
	gw := mod.(*gateway.Gateway)

	deadline := time.Now().Add(5 * time.Second)
	for gw.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("gateway did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return srv, "http://" + gw.Addr().String()
}

func TestServer_RunAndStop(t *testing.T) {
	base := startServer(t)
	if !strings.HasPrefix(base, "http://127.0.0.1:") {
		t.Errorf("base = %q", base)
	}
}

func TestServer_ReloadsChangedSchedule(t *testing.T) {
	content := serverConfig + `  cron.rematch:
    schedule: "0 * * * *"
reload:
  poll_interval: 20ms
`
	path := writeConfig(t, content)
	srv, _ := runServer(t, path)

	mod, ok := srv.App.Module("cron.rematch")
	if !ok {
		t.Fatal("cron.rematch not loaded")
	}
	rematch := mod.(*cron.Module)

	time.Sleep(50 * time.Millisecond)
	updated := strings.Replace(content, `"0 * * * *"`, `"*/30 * * * *"`, 1)
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for rematch.Config().Schedule != "*/30 * * * *" {
		if time.Now().After(deadline) {
			t.Fatalf("schedule = %q, reload not applied", rematch.Config().Schedule)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
