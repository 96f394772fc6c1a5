package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, cfg Config) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg.Writer = &buf
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return logger, &buf
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", Format: "json"})
	if err == nil {
		t.Fatal("New() should fail for an invalid level")
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "xml"})
	if err == nil {
		t.Fatal("New() should fail for an invalid format")
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	logger.Info("request served", "host", "www.example.com", "status", 200)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "request served" {
		t.Errorf("msg = %v, want request served", record["msg"])
	}
	if record["host"] != "www.example.com" {
		t.Errorf("host = %v, want www.example.com", record["host"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "warn", Format: "json"})

	logger.Info("too quiet")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("loud enough")
	if buf.Len() == 0 {
		t.Error("warn record should be emitted at warn level")
	}
}

func TestLogger_SetLevel(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	logger.Debug("before")
	if buf.Len() != 0 {
		t.Fatal("debug record should be filtered at info level")
	}

	if err := logger.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug) failed: %v", err)
	}
	if logger.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", logger.Level())
	}

	logger.Debug("after")
	if buf.Len() == 0 {
		t.Error("debug record should be emitted after SetLevel(debug)")
	}

	if err := logger.SetLevel("shouty"); err == nil {
		t.Error("SetLevel should reject unknown levels")
	}
}

func TestLogger_RedactsCredentials(t *testing.T) {
	logger, buf := newTestLogger(t, Config{
		Level:             "info",
		Format:            "json",
		RedactCredentials: true,
	})

	logger.Info("login attempt",
		"username", "ada",
		"password", "hunter2",
		"header", "Basic YWRhOmh1bnRlcjI=",
	)

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked into log output: %q", out)
	}
	if strings.Contains(out, "YWRhOmh1bnRlcjI=") {
		t.Errorf("authorization value leaked into log output: %q", out)
	}
	if !strings.Contains(out, "ada") {
		t.Errorf("non-secret field should survive redaction: %q", out)
	}
}

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		in    string
		leaks string
	}{
		{"basic header", "Authorization: Basic dXNlcjpwYXNz", "dXNlcjpwYXNz"},
		{"bearer header", "got Bearer abc.def.ghi from client", "abc.def.ghi"},
		{"bare jwt", "token eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJhZGEifQ.c2ln seen", "eyJhbGciOiJIUzI1NiJ9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactString(tt.in)
			if strings.Contains(got, tt.leaks) {
				t.Errorf("RedactString(%q) = %q, still contains %q", tt.in, got, tt.leaks)
			}
		})
	}
}

func TestContextFields(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	ctx := WithRequestID(WithSite(context.Background(), "www"), "req-1")
	logger.InfoContext(ctx, "handled")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", record["request_id"])
	}
	if record["site"] != "www" {
		t.Errorf("site = %v, want www", record["site"])
	}
}
