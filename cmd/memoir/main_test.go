package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDotEnv(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string
		wantErr bool
	}{
		{"empty", "", map[string]string{}, false},
		{"simple", "HTTP=:9090\nLOG_LEVEL=debug\n", map[string]string{"HTTP": ":9090", "LOG_LEVEL": "debug"}, false},
		{"comments and blanks", "# comment\n\n  HTTP = :1 \n", map[string]string{"HTTP": ":1"}, false},
		{"export", "export HTTP=:2", map[string]string{"HTTP": ":2"}, false},
		{"double quoted", `LOG_LEVEL="warn"`, map[string]string{"LOG_LEVEL": "warn"}, false},
		{"no equal", "garbage\nHTTP=:3", map[string]string{"HTTP": ":3"}, false},
		{"single quoted", "HTTP=':4'", nil, true},
		{"bad quote", `HTTP=":5`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			got, err := loadDotEnv(dir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadDotEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("loadDotEnv() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
	t.Run("missing", func(t *testing.T) {
		got, err := loadDotEnv(t.TempDir())
		if err != nil || len(got) != 0 {
			t.Errorf("loadDotEnv() = %v, %v", got, err)
		}
	})
}

func TestSetLogLevel(t *testing.T) {
	ll := &slog.LevelVar{}
	for level, want := range map[string]slog.Level{"debug": slog.LevelDebug, "info": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError} {
		if err := setLogLevel(ll, level); err != nil {
			t.Fatal(err)
		}
		if ll.Level() != want {
			t.Errorf("%s: level = %v", level, ll.Level())
		}
	}
	if err := setLogLevel(ll, "verbose"); err == nil {
		t.Error("expected error")
	}
}

func TestReplaceAttr(t *testing.T) {
	keep := func(a slog.Attr) bool { return !replaceAttr(false)(nil, a).Equal(slog.Attr{}) }
	tests := []struct {
		attr slog.Attr
		want bool
	}{
		{slog.String("user", "bob"), true},
		{slog.String("user", ""), false},
		{slog.Int64("count", 0), false},
		{slog.Int("count", 3), true},
		{slog.Bool("created", false), false},
		{slog.Duration("dur", 0), false},
		{slog.Time("t", time.Time{}), false},
		{slog.String("ip", "127.0.0.1"), false},
		{slog.String("ip", "203.0.113.9"), true},
	}
	for _, tt := range tests {
		if got := keep(tt.attr); got != tt.want {
			t.Errorf("%v kept = %v, want %v", tt.attr, got, tt.want)
		}
	}
	now := slog.Time(slog.TimeKey, time.Now())
	if !replaceAttr(true)(nil, now).Equal(slog.Attr{}) {
		t.Error("time kept under systemd")
	}
	if replaceAttr(false)(nil, now).Equal(slog.Attr{}) {
		t.Error("time dropped outside systemd")
	}
}
