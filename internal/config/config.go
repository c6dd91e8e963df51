package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all succession tool configuration.
type Config struct {
	// Deck generation
	PowerPoint PowerPointConfig `yaml:"powerpoint"`

	// Photo service used for circular faces
	Avatar AvatarConfig `yaml:"avatar"`

	// Person/plan store
	Database DatabaseConfig `yaml:"database"`

	// HTTP surface
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Choices offered by the entry form
	FormOptions FormOptions `yaml:"form_options"`
}

// PowerPointConfig configures template handling and deck assembly.
type PowerPointConfig struct {
	TemplateFile       string `yaml:"template_file"`
	SuccessorsPerSlide int    `yaml:"successors_per_slide"`
	MaxSlides          int    `yaml:"max_slides"` // 0 = unlimited
	AutoRepair         bool   `yaml:"auto_repair"`
	RepairMethod       string `yaml:"repair_method"` // standard, temp_file, deep_clean
	PhotoShapePrefix   string `yaml:"photo_shape_prefix"`
	TableRows          int    `yaml:"table_rows"`

	Markers MarkerConfig `yaml:"markers"`
}

// MarkerConfig lists the literal placeholder texts of the template.
type MarkerConfig struct {
	Name             string `yaml:"name"`
	Position         string `yaml:"position"`
	Summary          string `yaml:"summary"`
	Responsibilities string `yaml:"responsibilities"`
	Detail           string `yaml:"detail"`
}

// AvatarConfig configures the remote photo service.
type AvatarConfig struct {
	URLTemplate string `yaml:"url_template"` // must contain {employee_id}
	Timeout     string `yaml:"timeout"`
	Parallelism int    `yaml:"parallelism"`
	MaxBytes    int64  `yaml:"max_bytes"`
	MaxPixels   int    `yaml:"max_pixels"` // 0 = keep full resolution

	// Source images declaring more than width x height pixels are rejected
	// before decoding
	MaxSourcePixels int `yaml:"max_source_pixels"`
}

// DatabaseConfig configures the sqlite store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	SearchLimit int    `yaml:"search_limit"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxConns     int    `yaml:"max_conns"`
	BuildTimeout string `yaml:"build_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // console, json
	File       string          `yaml:"file"`
	AuditFile  string          `yaml:"audit_file"` // JSON lines of builds and saves
	Categories map[string]bool `yaml:"categories"`
}

// FormOptions are the dropdown and multiselect choices of the entry form.
type FormOptions struct {
	Skills                []string `yaml:"skills" json:"skills"`
	PLEOptions            []string `yaml:"ple_options" json:"ple_options"`
	SourcingStrategy      []string `yaml:"sourcing_strategy" json:"sourcing_strategy"`
	ScenarioPlan          []string `yaml:"scenario_plan" json:"scenario_plan"`
	RoleType              []string `yaml:"role_type" json:"role_type"`
	ReadinessLevel        []string `yaml:"readiness_level" json:"readiness_level"`
	FutureReadinessTiming []string `yaml:"future_readiness_timing" json:"future_readiness_timing"`
}

// Repair method names.
const (
	RepairStandard  = "standard"
	RepairTempFile  = "temp_file"
	RepairDeepClean = "deep_clean"
)

// EmployeeIDToken is substituted in AvatarConfig.URLTemplate.
const EmployeeIDToken = "{employee_id}"

// ValidRepairMethods lists the accepted repair_method values.
var ValidRepairMethods = []string{RepairStandard, RepairTempFile, RepairDeepClean}

// DefaultMarkers returns the literal placeholder texts of the stock template.
func DefaultMarkers() MarkerConfig {
	return MarkerConfig{
		Name:             "NAME",
		Position:         "POSITION",
		Summary:          "Insert role information summary",
		Responsibilities: `<you can edit this too> Focus on "make or break" descriptors (responsibilities, typical challenges, unique capabilities, qualities, and track record required for success in the role)`,
		Detail:           "<This area you can add text>",
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PowerPoint: PowerPointConfig{
			TemplateFile:       "templates/succession_template.pptx",
			SuccessorsPerSlide: 3,
			MaxSlides:          0,
			AutoRepair:         true,
			RepairMethod:       RepairStandard,
			PhotoShapePrefix:   "Photo",
			TableRows:          4,
			Markers:            DefaultMarkers(),
		},

		Avatar: AvatarConfig{
			URLTemplate: "https://photos.example.com/people/{employee_id}/avatar",
			Timeout:     "10s",
			Parallelism: 4,
			MaxBytes:    10 << 20,
			MaxPixels:   0,

			MaxSourcePixels: 25_000_000,
		},

		Database: DatabaseConfig{
			Path:        "data/succession.db",
			SearchLimit: 50,
		},

		Server: ServerConfig{
			Addr:         ":8080",
			MaxConns:     64,
			BuildTimeout: "2m",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},

		FormOptions: FormOptions{
			Skills: []string{
				"Thinks Strategically", "Plans and Prioritizes", "Ensures Accountability",
				"Collaborates", "Instills Trust", "Drives Engagement", "Values Differences",
				"Business Insight", "Courage", "Change Adaptability",
			},
			PLEOptions: []string{
				"-- Select an Option --",
				"Inspire Individual and Business Success",
				"Define Strategies, Priorities, and Expectations",
				"Provide Continuous Coaching and Feedback",
				"Develop Self and Others and Support Career Aspirations",
				"Demonstrate Care and Compassion",
				"Create an Environment Where Values are Experienced",
			},
			SourcingStrategy:      []string{"Build (Internal hire)", "External"},
			ScenarioPlan:          []string{"-- Select an Option --", "Direct Backfill", "Split Position/New Position"},
			RoleType:              []string{"Not Applicable", "Succession Plan", "External"},
			ReadinessLevel:        []string{"-- Select an Option --", "Ready Now", "Ready Future"},
			FutureReadinessTiming: []string{"-- Select an Option --", "+1 to < 2 years", "+2 to < 3 years", "+3 to < 5 years"},
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("SUCCESSION_TEMPLATE"); path != "" {
		c.PowerPoint.TemplateFile = path
	}
	if path := os.Getenv("SUCCESSION_DB"); path != "" {
		c.Database.Path = path
	}
	if url := os.Getenv("SUCCESSION_AVATAR_URL"); url != "" {
		c.Avatar.URLTemplate = url
	}
	if level := os.Getenv("SUCCESSION_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("SUCCESSION_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// GetPhotoTimeout returns the per-photo fetch timeout as a duration.
func (c *Config) GetPhotoTimeout() time.Duration {
	d, err := time.ParseDuration(c.Avatar.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetBuildTimeout returns the HTTP deck build timeout as a duration.
func (c *Config) GetBuildTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.BuildTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	pp := c.PowerPoint
	if strings.TrimSpace(pp.TemplateFile) == "" {
		return fmt.Errorf("powerpoint.template_file is required")
	}
	if pp.SuccessorsPerSlide < 1 {
		return fmt.Errorf("powerpoint.successors_per_slide must be >= 1, got %d", pp.SuccessorsPerSlide)
	}
	if pp.MaxSlides < 0 {
		return fmt.Errorf("powerpoint.max_slides must be >= 0, got %d", pp.MaxSlides)
	}
	if pp.TableRows < 1 {
		return fmt.Errorf("powerpoint.table_rows must be >= 1, got %d", pp.TableRows)
	}

	validMethod := false
	for _, m := range ValidRepairMethods {
		if pp.RepairMethod == m {
			validMethod = true
			break
		}
	}
	if !validMethod {
		return fmt.Errorf("invalid powerpoint.repair_method: %s (valid: %v)", pp.RepairMethod, ValidRepairMethods)
	}

	m := pp.Markers
	if m.Name == "" || m.Position == "" || m.Summary == "" || m.Responsibilities == "" || m.Detail == "" {
		return fmt.Errorf("powerpoint.markers: every marker must be non-empty")
	}

	if !strings.Contains(c.Avatar.URLTemplate, EmployeeIDToken) {
		return fmt.Errorf("avatar.url_template must contain %s", EmployeeIDToken)
	}
	if c.Avatar.Parallelism < 1 {
		return fmt.Errorf("avatar.parallelism must be >= 1, got %d", c.Avatar.Parallelism)
	}
	if c.Avatar.MaxPixels < 0 {
		return fmt.Errorf("avatar.max_pixels must be >= 0, got %d", c.Avatar.MaxPixels)
	}
	if c.Avatar.MaxSourcePixels < 0 {
		return fmt.Errorf("avatar.max_source_pixels must be >= 0, got %d", c.Avatar.MaxSourcePixels)
	}

	return nil
}

// RepairEnabled reports whether generated decks go through the repair pass.
func (c *Config) RepairEnabled() bool {
	return c.PowerPoint.AutoRepair
}
