package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PowerPoint.SuccessorsPerSlide != 3 {
		t.Errorf("expected SuccessorsPerSlide=3, got %d", cfg.PowerPoint.SuccessorsPerSlide)
	}
	if cfg.PowerPoint.RepairMethod != RepairStandard {
		t.Errorf("expected RepairMethod=standard, got %s", cfg.PowerPoint.RepairMethod)
	}
	if !cfg.PowerPoint.AutoRepair {
		t.Error("expected AutoRepair=true by default")
	}
	if cfg.PowerPoint.Markers.Detail != "<This area you can add text>" {
		t.Errorf("unexpected detail marker %q", cfg.PowerPoint.Markers.Detail)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("SUCCESSION_TEMPLATE", "")
	t.Setenv("SUCCESSION_DB", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.PowerPoint.SuccessorsPerSlide = 4
	cfg.PowerPoint.RepairMethod = RepairDeepClean
	cfg.Avatar.Parallelism = 1

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.PowerPoint.SuccessorsPerSlide != 4 {
		t.Errorf("expected SuccessorsPerSlide=4, got %d", loaded.PowerPoint.SuccessorsPerSlide)
	}
	if loaded.PowerPoint.RepairMethod != RepairDeepClean {
		t.Errorf("expected RepairMethod=deep_clean, got %s", loaded.PowerPoint.RepairMethod)
	}
	if loaded.Avatar.Parallelism != 1 {
		t.Errorf("expected Parallelism=1, got %d", loaded.Avatar.Parallelism)
	}
}

func TestConfig_LoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("SUCCESSION_TEMPLATE", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PowerPoint.TemplateFile != DefaultConfig().PowerPoint.TemplateFile {
		t.Errorf("expected default template path, got %s", cfg.PowerPoint.TemplateFile)
	}
}

func TestConfig_LoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "powerpoint:\n  successors_per_slide: 2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PowerPoint.SuccessorsPerSlide != 2 {
		t.Errorf("expected 2, got %d", cfg.PowerPoint.SuccessorsPerSlide)
	}
	if cfg.PowerPoint.Markers.Name != "NAME" {
		t.Errorf("expected default name marker to survive, got %q", cfg.PowerPoint.Markers.Name)
	}
}

func TestConfig_LoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("powerpoint: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SUCCESSION_TEMPLATE", "/srv/template.pptx")
	t.Setenv("SUCCESSION_DB", "/srv/db.sqlite")
	t.Setenv("SUCCESSION_AVATAR_URL", "http://photos/{employee_id}")
	t.Setenv("SUCCESSION_LOG_LEVEL", "debug")
	t.Setenv("SUCCESSION_ADDR", "127.0.0.1:9000")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.PowerPoint.TemplateFile != "/srv/template.pptx" {
		t.Errorf("template override not applied: %s", cfg.PowerPoint.TemplateFile)
	}
	if cfg.Database.Path != "/srv/db.sqlite" {
		t.Errorf("db override not applied: %s", cfg.Database.Path)
	}
	if cfg.Avatar.URLTemplate != "http://photos/{employee_id}" {
		t.Errorf("avatar override not applied: %s", cfg.Avatar.URLTemplate)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level override not applied: %s", cfg.Logging.Level)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("addr override not applied: %s", cfg.Server.Addr)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capacity", func(c *Config) { c.PowerPoint.SuccessorsPerSlide = 0 }},
		{"negative max slides", func(c *Config) { c.PowerPoint.MaxSlides = -1 }},
		{"unknown repair method", func(c *Config) { c.PowerPoint.RepairMethod = "magic" }},
		{"empty template", func(c *Config) { c.PowerPoint.TemplateFile = " " }},
		{"url without token", func(c *Config) { c.Avatar.URLTemplate = "http://photos/static.png" }},
		{"zero parallelism", func(c *Config) { c.Avatar.Parallelism = 0 }},
		{"empty marker", func(c *Config) { c.PowerPoint.Markers.Detail = "" }},
		{"negative source pixel cap", func(c *Config) { c.Avatar.MaxSourcePixels = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GetPhotoTimeout() != 10*time.Second {
		t.Errorf("expected 10s, got %s", cfg.GetPhotoTimeout())
	}
	cfg.Avatar.Timeout = "garbage"
	if cfg.GetPhotoTimeout() != 10*time.Second {
		t.Error("GetPhotoTimeout should fall back on parse errors")
	}
	cfg.Server.BuildTimeout = "45s"
	if cfg.GetBuildTimeout() != 45*time.Second {
		t.Errorf("expected 45s, got %s", cfg.GetBuildTimeout())
	}
}
