// Package audit provides a structured audit logger for CLI command invocations.
// It logs command name, resolved configuration, and sanitised secret state
// so operators can trace what happened without exposing secret values.
//
// Secrets are logged as presence/absence only, never their values.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/54b3r/kassist-go/internal/config"
)

// secretEnvKeys lists environment variable names whose values must never be
// logged. Only presence ("set") or absence ("unset") is recorded.
var secretEnvKeys = map[string]bool{
	"MODEL_API_KEY":       true,
	"EMBEDDING_API_KEY":   true,
	"QDRANT_API_KEY":      true,
	"KASSIST_API_KEY":     true,
	"LANGFUSE_PUBLIC_KEY": true,
	"LANGFUSE_SECRET_KEY": true,
}

// auditEntry defines a resolved config value to include in the audit log.
type auditEntry struct {
	// key is the dotted config key.
	key string
	// secret indicates the value should be redacted to presence/absence.
	secret bool
	// value reads the field from the resolved config.
	value func(*config.Config) string
}

// auditKeys is the ordered list of config values included in every audit log entry.
var auditKeys = []auditEntry{
	{"model.provider", false, func(c *config.Config) string { return c.Model.Provider }},
	{"model.name", false, func(c *config.Config) string { return c.Model.Name }},
	{"model.base_url", false, func(c *config.Config) string { return c.Model.BaseURL }},
	{"model.api_key", true, func(c *config.Config) string { return c.Model.APIKey }},
	{"embedding.provider", false, func(c *config.Config) string { return c.Embedding.Provider }},
	{"embedding.model", false, func(c *config.Config) string { return c.Embedding.Model }},
	{"embedding.api_key", true, func(c *config.Config) string { return c.Embedding.APIKey }},
	{"index.backend", false, func(c *config.Config) string { return c.Index.Backend }},
	{"index.path", false, func(c *config.Config) string { return c.Index.Path }},
	{"index.top_k", false, func(c *config.Config) string { return strconv.Itoa(c.Index.TopK) }},
	{"qdrant.host", false, func(c *config.Config) string { return c.Qdrant.Host }},
	{"qdrant.collection", false, func(c *config.Config) string { return c.Qdrant.Collection }},
	{"qdrant.api_key", true, func(c *config.Config) string { return c.Qdrant.APIKey }},
	{"dictionary.base_url", false, func(c *config.Config) string { return c.Dictionary.BaseURL }},
	{"server.api_key", true, func(c *config.Config) string { return c.Server.APIKey }},
	{"history.db_path", false, func(c *config.Config) string { return c.History.DBPath }},
	{"logging.level", false, func(c *config.Config) string { return c.Logging.Level }},
	{"tracing.public_key", true, func(c *config.Config) string { return c.Tracing.PublicKey }},
	{"tracing.secret_key", true, func(c *config.Config) string { return c.Tracing.SecretKey }},
}

// LogCommandStart emits a structured audit log entry when a CLI command begins.
// It records the command name, config file source, and sanitised configuration.
func LogCommandStart(log *slog.Logger, command string, configPath string, cfg *config.Config) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	}

	if cfg != nil {
		for _, entry := range auditKeys {
			val := entry.value(cfg)
			if entry.secret {
				attrs = append(attrs, slog.String(entry.key, presence(val)))
			} else {
				attrs = append(attrs, slog.String(entry.key, valOrUnset(val)))
			}
		}
	}

	log.LogAttrs(context.TODO(), slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey returns "set" or "unset" for known secret keys, or the actual
// value for non-secret keys. This is safe to use in log messages.
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	return valOrUnset(value)
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	// Redact home directory for privacy in logs.
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
