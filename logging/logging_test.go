package logging

import "testing"

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{Level: "debug", Format: "json", Output: "stdout"}
	cfg.ApplyDefaults()

	if cfg.Level != "debug" || cfg.Format != "json" || cfg.Output != "stdout" {
		t.Fatalf("explicit values should survive, got %+v", cfg)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", "stdout")
	t.Setenv("LOG_NO_COLOR", "true")

	cfg := FromEnv()
	if cfg.Level != "warn" || cfg.Format != "json" || cfg.Output != "stdout" || !cfg.NoColor {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestComponentTagsLogger(t *testing.T) {
	Init(Config{Level: "error", Format: "json"})
	defer Init(Config{})

	logger := Component("engine")
	if logger.GetLevel().String() != "error" {
		t.Fatalf("component logger should inherit the configured level, got %s", logger.GetLevel())
	}

	// Level methods must chain on the returned logger without binding it
	// to an addressable local first.
	Component("engine").Debug().Str("key", "value").Msg("suppressed at error level")
}
