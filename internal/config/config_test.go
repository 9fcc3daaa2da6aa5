package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("wrong addr: %q", cfg.Addr)
	}
	if cfg.AuthFile != ".sblpy/auth_config.json" {
		t.Errorf("wrong auth file: %q", cfg.AuthFile)
	}
	if !cfg.AuthRequired {
		t.Error("auth must default to required")
	}
	if cfg.CooldownMs != 7_200_000 {
		t.Errorf("wrong cooldown: %d", cfg.CooldownMs)
	}
	if cfg.MaxWait != 60*time.Second {
		t.Errorf("wrong max wait: %s", cfg.MaxWait)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sblp.yaml")
	content := `
addr: ":9999"
authRequired: false
cooldownMs: 60000
maxWait: 10s
logLevel: debug
rateRPS: 2.5
slugs:
  - a.bot.discord.one
  - b.bot.discord.one
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("wrong addr: %q", cfg.Addr)
	}
	if cfg.AuthRequired {
		t.Error("yaml must override authRequired")
	}
	if cfg.CooldownMs != 60_000 {
		t.Errorf("wrong cooldown: %d", cfg.CooldownMs)
	}
	if cfg.MaxWait != 10*time.Second {
		t.Errorf("wrong max wait: %s", cfg.MaxWait)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("wrong log level: %q", cfg.LogLevel)
	}
	if cfg.RateRPS != 2.5 {
		t.Errorf("wrong rate: %f", cfg.RateRPS)
	}
	if len(cfg.Slugs) != 2 || cfg.Slugs[0] != "a.bot.discord.one" {
		t.Errorf("wrong slugs: %v", cfg.Slugs)
	}
	// Unset fields keep their defaults.
	if cfg.AuthFile != ".sblpy/auth_config.json" {
		t.Errorf("auth file must keep its default: %q", cfg.AuthFile)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("an explicitly named missing file must error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SBLP_ADDR", ":7070")
	t.Setenv("SBLP_AUTH_REQUIRED", "false")
	t.Setenv("SBLP_COOLDOWN_MS", "30000")
	t.Setenv("SBLP_MAXWAIT", "90s")
	t.Setenv("SBLP_DB", "/tmp/bumps.db")
	t.Setenv("SBLP_SLUGS", "x.bot.discord.one, y.bot.discord.one,")
	t.Setenv("SBLP_USER_AGENT", "DiscordBot custom#1 SBLP HTTP")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("wrong addr: %q", cfg.Addr)
	}
	if cfg.AuthRequired {
		t.Error("env must override authRequired")
	}
	if cfg.CooldownMs != 30_000 {
		t.Errorf("wrong cooldown: %d", cfg.CooldownMs)
	}
	if cfg.MaxWait != 90*time.Second {
		t.Errorf("wrong max wait: %s", cfg.MaxWait)
	}
	if cfg.DBPath != "/tmp/bumps.db" {
		t.Errorf("wrong db path: %q", cfg.DBPath)
	}
	if len(cfg.Slugs) != 2 || cfg.Slugs[1] != "y.bot.discord.one" {
		t.Errorf("wrong slugs: %v", cfg.Slugs)
	}
	if cfg.UserAgent != "DiscordBot custom#1 SBLP HTTP" {
		t.Errorf("wrong user agent: %q", cfg.UserAgent)
	}
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sblp.yaml")
	if err := os.WriteFile(path, []byte(`addr: ":9999"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SBLP_ADDR", ":7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("env must win over yaml: %q", cfg.Addr)
	}
}

func TestPortFallback(t *testing.T) {
	t.Setenv("PORT", "3000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Errorf("PORT must apply when no addr is set: %q", cfg.Addr)
	}

	t.Setenv("SBLP_ADDR", ":7070")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("an explicit addr must beat PORT: %q", cfg.Addr)
	}
}

func TestBadEnvValuesIgnored(t *testing.T) {
	t.Setenv("SBLP_COOLDOWN_MS", "not-a-number")
	t.Setenv("SBLP_MAXWAIT", "eleventy")
	t.Setenv("SBLP_AUTH_REQUIRED", "maybe")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CooldownMs != 7_200_000 || cfg.MaxWait != 60*time.Second || !cfg.AuthRequired {
		t.Errorf("unparseable env values must fall back to defaults: %+v", cfg)
	}
}
