package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `version: "1"
client:
  backend_url: ${COFFEE_TEST_BACKEND:-http://localhost:8080}
  token: ${COFFEE_TEST_TOKEN}
  send_timeout: 3s
  resubscribe:
    initial: 250ms
    max: 10s
    stale_after: 4
tools:
  policy:
    deny: [trigger_matching]
  rate_limits:
    tool_calls_per_min: 30
telemetry:
  otlp_endpoint: ""
modules:
  store.sqlite:
    path: /tmp/coffee.db
  gateway:
    bind: 127.0.0.1:8080
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Full(t *testing.T) {
	t.Setenv("COFFEE_TEST_TOKEN", "secret-token")

	path := writeFile(t, t.TempDir(), "coffee.yaml", sampleConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Client.BackendURL != "http://localhost:8080" {
		t.Errorf("backend_url = %q", cfg.Client.BackendURL)
	}
	if cfg.Client.Token != "secret-token" {
		t.Errorf("token = %q", cfg.Client.Token)
	}
	if cfg.Client.SendTimeout != 3*time.Second || cfg.Client.Resubscribe.Initial != 250*time.Millisecond {
		t.Errorf("durations = %+v", cfg.Client)
	}
	if cfg.Client.Resubscribe.StaleAfter != 4 {
		t.Errorf("stale_after = %d", cfg.Client.Resubscribe.StaleAfter)
	}
	if len(cfg.Tools.Policy.Deny) != 1 || cfg.Tools.RateLimits.ToolCallsPerMin != 30 {
		t.Errorf("tools = %+v", cfg.Tools)
	}
	if got := Resolve(cfg); strings.Join(got, ",") != "gateway,store.sqlite" {
		t.Errorf("Resolve = %v", got)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "coffee.yaml", "version: \"1\"\nclient:\n  token: ${COFFEE_TEST_UNSET_VAR}\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "COFFEE_TEST_UNSET_VAR") {
		t.Fatalf("err = %v, want unresolved variable", err)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	// godotenv writes to the process environment; restore it afterwards.
	t.Setenv("COFFEE_TEST_DOTENV", "")
	if err := os.Unsetenv("COFFEE_TEST_DOTENV"); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	writeFile(t, dir, EnvFileName, "COFFEE_TEST_DOTENV=from-dotenv\n")
	path := writeFile(t, dir, "coffee.yaml", "version: \"1\"\nclient:\n  token: ${COFFEE_TEST_DOTENV}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.Token != "from-dotenv" {
		t.Errorf("token = %q, want value from .env", cfg.Client.Token)
	}
}

func TestLoad_EnvWinsOverDotenv(t *testing.T) {
	t.Setenv("COFFEE_TEST_DOTENV_PRIO", "from-env")

	dir := t.TempDir()
	writeFile(t, dir, EnvFileName, "COFFEE_TEST_DOTENV_PRIO=from-dotenv\n")
	path := writeFile(t, dir, "coffee.yaml", "version: \"1\"\nclient:\n  token: ${COFFEE_TEST_DOTENV_PRIO}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.Token != "from-env" {
		t.Errorf("token = %q, want process env value", cfg.Client.Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestExpandEnv_Default(t *testing.T) {
	out, err := expandEnv([]byte("a: ${COFFEE_TEST_NOT_SET:-fallback}"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "a: fallback" {
		t.Errorf("out = %q", out)
	}
}
