package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"kiosk-voice/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("webhook:\n  url: http://n8n.local/webhook/kiosk\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if cfg.Mode != "streaming" {
		t.Errorf("mode: got %q", cfg.Mode)
	}
	if cfg.Recognizer.URL != "ws://localhost:8011" {
		t.Errorf("recognizer url: got %q", cfg.Recognizer.URL)
	}
	if cfg.Supervisor.Interval != "5s" {
		t.Errorf("supervisor interval: got %q", cfg.Supervisor.Interval)
	}
	if cfg.Display.MessageTTL != "5s" || cfg.Display.StatusTTL != "3s" {
		t.Errorf("display ttls: got %+v", cfg.Display)
	}
	if cfg.Audio.ChunkSize != 1024 || cfg.Audio.SampleRate != 16000 {
		t.Errorf("audio: got %+v", cfg.Audio)
	}
	if cfg.Ingress.Addr != ":8080" || cfg.Ingress.RateLimit != 30 {
		t.Errorf("ingress: got %+v", cfg.Ingress)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("KIOSK_WEBHOOK_URL", "https://hooks.example.com/order")
	t.Setenv("KIOSK_TOKEN", "s3cret")

	cfg, err := config.Parse([]byte(`
mode: batch
webhook:
  url: ${KIOSK_WEBHOOK_URL}
ingress:
  auth_token: $KIOSK_TOKEN
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if cfg.Webhook.URL != "https://hooks.example.com/order" {
		t.Errorf("webhook url: got %q", cfg.Webhook.URL)
	}
	if cfg.Ingress.AuthToken != "s3cret" {
		t.Errorf("auth token: got %q", cfg.Ingress.AuthToken)
	}
	if cfg.Mode != "batch" {
		t.Errorf("mode: got %q", cfg.Mode)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown mode":       "mode: telepathy",
		"unknown source":     "audio:\n  source: tape",
		"file without path":  "audio:\n  source: file",
		"malformed document": "mode: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := config.Parse([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mode: speech\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Mode != "speech" {
		t.Errorf("mode: got %q", cfg.Mode)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
