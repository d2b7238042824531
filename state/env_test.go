package state

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"cssinv/common"
	"cssinv/config"
)

func TestEnvFromContext(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	if env == nil || env.start.IsZero() {
		t.Fatalf("EnvFromContext() = %+v, want started environment", env)
	}
	if again := EnvFromContext(ctx); again != env {
		t.Error("EnvFromContext() returned a different environment for the same context")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for context without environment")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := &LocalEnv{start: time.Now().Add(-time.Minute)}
	if up := env.Uptime(); up < time.Minute || up > time.Minute+10*time.Second {
		t.Errorf("Uptime() = %v, want about a minute", up)
	}
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	env := &LocalEnv{Log: zap.New(core)}

	env.RedirectStdLog()
	log.Print("from standard logger")
	env.RestoreStdLog()

	out := log.Writer()
	t.Cleanup(func() { log.SetOutput(out) })
	log.SetOutput(io.Discard)
	log.Print("after restore")

	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "from standard logger" {
		t.Errorf("captured %v, want only the redirected message", entries)
	}
}

func TestLocalEnv_StdLogWithoutLogger(t *testing.T) {
	env := &LocalEnv{}
	env.RedirectStdLog()
	if env.restoreStdLog != nil {
		t.Error("redirect installed without a logger")
	}
	env.RestoreStdLog()
}

func TestLocalEnv_ApplyConfig(t *testing.T) {
	defaults, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	tests := []struct {
		name   string
		cfg    *config.Config
		quirks common.QuirksMode
		medium string
	}{
		{"defaults", defaults, common.QuirksModeNoQuirks, "screen"},
		{
			name: "print in quirks mode",
			cfg: &config.Config{
				Version:  1,
				Document: config.DocumentConfig{QuirksMode: common.QuirksModeQuirks, Media: "print", Charset: "utf-8"},
			},
			quirks: common.QuirksModeQuirks,
			medium: "print",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := EnvFromContext(ContextWithEnv(context.Background()))
			env.ApplyConfig(tt.cfg)
			if env.Cfg != tt.cfg || env.Quirks != tt.quirks || env.Medium != tt.medium {
				t.Errorf("ApplyConfig() gave quirks=%v medium=%q, want %v %q", env.Quirks, env.Medium, tt.quirks, tt.medium)
			}
		})
	}
}
