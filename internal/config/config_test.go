package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Processing.DefaultQuality != "standard" {
		t.Errorf("expected standard default quality, got %s", cfg.Processing.DefaultQuality)
	}
	if cfg.Processing.WindowPages != 10 {
		t.Errorf("expected 10-page windows, got %d", cfg.Processing.WindowPages)
	}
	if cfg.OCR.Binary != "tesseract" {
		t.Errorf("expected tesseract binary, got %s", cfg.OCR.Binary)
	}
	if cfg.TextGen.Enabled {
		t.Error("textgen must be disabled by default")
	}
	if cfg.TextGen.APIKey != "${OPENAI_API_KEY}" {
		t.Error("expected openai API key placeholder")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestNewManager(t *testing.T) {
	configFile := writeTestConfig(t, `
processing:
  default_quality: "draft"
ocr:
  language: "deu"
`)

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Processing.DefaultQuality != "draft" {
		t.Errorf("expected draft, got %s", cfg.Processing.DefaultQuality)
	}
	if cfg.OCR.Language != "deu" {
		t.Errorf("expected deu, got %s", cfg.OCR.Language)
	}
}

func TestManagerOnChange(t *testing.T) {
	configFile := writeTestConfig(t, `
processing:
  default_quality: "standard"
`)

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 2 {
		t.Errorf("expected 2 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManagerWatchConfig(t *testing.T) {
	configFile := writeTestConfig(t, `
processing:
  default_quality: "standard"
`)

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().Processing.DefaultQuality; got != "standard" {
		t.Fatalf("initial value mismatch: %s", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Processing.DefaultQuality)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher.
	time.Sleep(100 * time.Millisecond)

	newContent := `
processing:
  default_quality: "high"
`
	if err := os.WriteFile(configFile, []byte(newContent), 0o644); err != nil {
		t.Fatalf("failed to update config file: %v", err)
	}

	// The watcher delivers asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Processing.DefaultQuality; got != "high" {
		t.Errorf("config not reloaded: %s", got)
	}
	if v := lastValue.Load(); v != "high" {
		t.Errorf("callback received wrong value: %v", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# Lectern configuration") {
		t.Error("expected header comment")
	}
	for _, key := range []string{"vault:", "processing:", "ocr:", "textgen:"} {
		if !strings.Contains(content, key) {
			t.Errorf("expected %q section in written config", key)
		}
	}
}
