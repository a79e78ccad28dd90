package audit

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/54b3r/kassist-go/internal/config"
)

func TestSanitiseKey_Secret(t *testing.T) {
	t.Parallel()
	if got := SanitiseKey("MODEL_API_KEY", "sk-abc123"); got != "set" {
		t.Errorf("expected 'set', got %q", got)
	}
	if got := SanitiseKey("KASSIST_API_KEY", ""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
}

func TestSanitiseKey_NonSecret(t *testing.T) {
	t.Parallel()
	if got := SanitiseKey("MODEL_PROVIDER", "azure"); got != "azure" {
		t.Errorf("expected 'azure', got %q", got)
	}
	if got := SanitiseKey("MODEL_PROVIDER", ""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
}

func TestPresence(t *testing.T) {
	t.Parallel()
	if got := presence("something"); got != "set" {
		t.Errorf("expected 'set', got %q", got)
	}
	if got := presence(""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()
	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/config.yaml"); got != "/tmp/config.yaml" {
		t.Errorf("expected '/tmp/config.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		p := home + "/.kassist/config.yaml"
		if got := sanitiseConfigPath(p); got != "~/.kassist/config.yaml" {
			t.Errorf("expected '~/.kassist/config.yaml', got %q", got)
		}
	}
}

func TestLogCommandStart_RedactsSecrets(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Model.APIKey = "sk-very-secret"
	cfg.Server.APIKey = "server-secret"

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	LogCommandStart(log, "ask", "", cfg)

	out := buf.String()
	if strings.Contains(out, "sk-very-secret") || strings.Contains(out, "server-secret") {
		t.Fatalf("secret leaked into audit log: %s", out)
	}
	for _, want := range []string{"command=ask", "config_file=none", "model.api_key=set", "qdrant.api_key=unset", "model.provider=ollama"} {
		if !strings.Contains(out, want) {
			t.Errorf("audit log missing %q: %s", want, out)
		}
	}
}
