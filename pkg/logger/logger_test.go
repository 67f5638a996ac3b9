package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(func() {
		Replace(nil)
	})

	if err := Init("debug", "json"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	logger := Logger()
	if logger == nil {
		t.Fatal("expected Logger to return non-nil logger")
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected logger to enable debug level")
	}
}

func TestInitFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() {
		Replace(nil)
	})

	if err := Init("chatty", "console"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if Logger().Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected unknown level to fall back to info")
	}
}

func TestLoggingHelpersEmitEntries(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	prev := Replace(zap.New(core))
	t.Cleanup(func() {
		Replace(prev)
	})

	Info("info message", zap.String("k", "v"))
	Error("error message")
	Warn("warn message")
	Debug("debug message")

	if recorded.Len() != 4 {
		t.Fatalf("expected 4 log entries, got %d", recorded.Len())
	}

	messages := recorded.All()
	want := []string{"info message", "error message", "warn message", "debug message"}
	for i, entry := range messages {
		if entry.Message != want[i] {
			t.Fatalf("entry %d message = %q, want %q", i, entry.Message, want[i])
		}
	}
	if field := messages[0].ContextMap()["k"]; field != "v" {
		t.Fatalf("expected field \"k\" to equal \"v\", got %v", field)
	}
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	prev := Replace(zap.New(core))
	t.Cleanup(func() {
		Replace(prev)
	})

	WithModule("api").Info("module test")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if module := entries[0].ContextMap()["module"]; module != "api" {
		t.Fatalf("expected module field to be \"api\", got %v", module)
	}
}

func TestRedactedMasksSensitiveFields(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	prev := Replace(zap.New(core))
	t.Cleanup(func() {
		Replace(prev)
	})

	Info("payload", Redacted("body", map[string]any{
		"username": "ann",
		"password": "hunter22",
		"secret":   "x",
	}, "secret"))

	body, ok := recorded.All()[0].ContextMap()["body"].(map[string]any)
	if !ok {
		t.Fatalf("expected body to be a map, got %T", recorded.All()[0].ContextMap()["body"])
	}
	if body["password"] != "****" || body["secret"] != "****" {
		t.Fatalf("expected sensitive fields to be masked, got %v", body)
	}
	if body["username"] != "ann" {
		t.Fatalf("expected username to be kept, got %v", body["username"])
	}
}
