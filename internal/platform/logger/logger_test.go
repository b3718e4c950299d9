package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   Debug,
		"":        Info,
		"INFO":    Info,
		"warning": Warn,
		"error":   Error,
		"bogus":   Info,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestStdLogger_JSON_MergesFieldsAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Info, Format: FormatJSON, App: "bounty-webhooks", Output: &buf})
	l.(*StdLogger).now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	l.Debug("hidden", nil)
	l.With(map[string]any{"component": "poller"}).Warn("fetch failed", map[string]any{
		"error": errors.New("boom"),
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "fetch failed" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry["app"] != "bounty-webhooks" || entry["component"] != "poller" {
		t.Fatalf("missing base fields: %#v", entry)
	}
	if entry["error"] != "boom" {
		t.Fatalf("expected error string, got %#v", entry["error"])
	}
	if entry["ts"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected ts %v", entry["ts"])
	}
}

func TestStdLogger_Text_SortedKeys(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Debug, Output: &buf})
	l.Info("hello", map[string]any{"b": 2, "a": 1})

	line := strings.TrimSpace(buf.String())
	ai := strings.Index(line, "a=1")
	bi := strings.Index(line, "b=2")
	if ai < 0 || bi < 0 || ai > bi {
		t.Fatalf("expected sorted keys, got %q", line)
	}
}

func TestStdLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Debug, Format: FormatJSON, Output: &buf})
	l.With(map[string]any{"webhook_secret": "s3cret"}).Info("storage ready", map[string]any{
		"dsn":           "postgres://app:hunter2@db/bounties",
		"admin_api_key": "",
		"driver":        "postgres",
	})

	line := buf.String()
	if strings.Contains(line, "s3cret") || strings.Contains(line, "hunter2") {
		t.Fatalf("sensitive value leaked: %s", line)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["dsn"] != "[redacted]" || entry["webhook_secret"] != "[redacted]" {
		t.Fatalf("expected redacted values, got %#v", entry)
	}
	if entry["admin_api_key"] != "" || entry["driver"] != "postgres" {
		t.Fatalf("empty or non-sensitive values must pass through, got %#v", entry)
	}
}

func TestStdLogger_Text_QuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Debug, Output: &buf})
	l.Warn("webhook attempt failed", map[string]any{
		"error":   errors.New("httpclient: do request: connection refused"),
		"attempt": 2,
	})

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, `error="httpclient: do request: connection refused"`) {
		t.Fatalf("expected quoted error, got %q", line)
	}
	if !strings.Contains(line, "attempt=2") || !strings.Contains(line, `msg="webhook attempt failed"`) {
		t.Fatalf("unexpected line %q", line)
	}
}
