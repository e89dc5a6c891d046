package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/quill/internal/retry"
	pkgconfig "github.com/starford/quill/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Content.WorkerCount() < 1 {
		t.Error("worker count should fall back to GOMAXPROCS")
	}
	if p := cfg.Content.Retry.Policy(); p.Attempts() != 3 || p.Mode != retry.ModeLinear {
		t.Errorf("policy = %+v", p)
	}
}

func TestContentConfig_InvalidPattern(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Content.Exclude = []string{"drafts/[unclosed"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "exclude: (0: invalid glob pattern.)") {
		t.Errorf("err = %v, want exclude pattern error", err)
	}
}

func TestConfig_ErrorsUseFileKeys(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Content.Retry.MaxRetries = 50
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "retry: (max_retries:") {
		t.Errorf("err = %v, want yaml key names", err)
	}
	cfg = NewDefaultConfig()
	cfg.Reload.Debounce = time.Hour
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "debounce:") {
		t.Errorf("err = %v, want yaml key names", err)
	}
}

func TestContentConfig_Rules(t *testing.T) {
	cases := map[string]func(*Config){
		"empty root":       func(c *Config) { c.Content.Root = "" },
		"negative workers": func(c *Config) { c.Content.Workers = -1 },
		"bad retry mode":   func(c *Config) { c.Content.Retry.Mode = "random" },
		"too many retries": func(c *Config) { c.Content.Retry.MaxRetries = 50 },
		"short interval":   func(c *Config) { c.Reload.Interval = 10 * time.Millisecond },
		"bad port":         func(c *Config) { c.App.HTTP.Port = 70000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Setenv("QUILL_TEST_TOKEN", "abc")
	p := filepath.Join(t.TempDir(), "config.yaml")
	body := "app:\n  log_level: debug\n" +
		"content:\n  root: ./site\n  workers: 3\n  exclude: [\"**/_*\"]\n  retry:\n    mode: exponential\n    initial: 50ms\n" +
		"auth:\n  mode: token\n  token: ${QUILL_TEST_TOKEN}\n" +
		"reload:\n  interval: 1m\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Content.Root != "./site" || cfg.Content.WorkerCount() != 3 || len(cfg.Content.Exclude) != 1 {
		t.Errorf("content = %+v", cfg.Content)
	}
	if cfg.Content.Retry.Mode != retry.ModeExponential || cfg.Content.Retry.Initial != 50*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Content.Retry)
	}
	if !cfg.Auth.AuthEnabled() || cfg.Auth.Token != "abc" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Reload.Interval != time.Minute || !cfg.Reload.Enabled {
		t.Errorf("reload = %+v", cfg.Reload)
	}
	if cfg.App.LogLevel.String() != "DEBUG" || cfg.App.HTTP.Port != 8080 {
		t.Errorf("app = %+v", cfg.App)
	}
}
