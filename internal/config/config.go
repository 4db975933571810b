// Package config loads the service configuration from a YAML file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Template modes.
const (
	ModeImage    = "image"
	ModePDF      = "pdf"
	ModePDFMerge = "pdf-merge"
)

// PDF page renderers.
const (
	RendererGofpdf = "gofpdf"
	RendererChrome = "chrome"
)

type Config struct {
	Server struct {
		Host      string `yaml:"host"`
		Port      string `yaml:"port"`
		Prefork   bool   `yaml:"prefork"`
		BodyLimit int    `yaml:"body_limit"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		RedisHost            string        `yaml:"redis_host"`
		RateLimitDB          int           `yaml:"redis_rate_db"`
		ArtifactDB           int           `yaml:"redis_artifact_db"`
		ArtifactCacheEnabled bool          `yaml:"artifact_cache_enabled"`
		ArtifactCacheTTL     time.Duration `yaml:"artifact_cache_ttl"`
	} `yaml:"cache"`

	Auth struct {
		Enabled        bool           `yaml:"enabled"`
		ReloadInterval time.Duration  `yaml:"reload_interval"`
		Postgres       PostgresConfig `yaml:"postgres"`
	} `yaml:"auth"`

	RateLimiter struct {
		Interval               time.Duration `yaml:"interval"`
		EnableUserLimiter      bool          `yaml:"enable_user_limiter"`
		UserLimit              int           `yaml:"user_limit"`
		EnableTokenRateLimiter bool          `yaml:"enable_token_rate_limiter"`
	} `yaml:"rate_limiter"`

	Assets AssetsConfig `yaml:"assets"`
	Text   TextConfig   `yaml:"text"`
	PDF    PDFConfig    `yaml:"pdf"`

	DefaultTemplate string              `yaml:"default_template"`
	Templates       map[string]Template `yaml:"templates"`
}

// PostgresConfig describes the API token database.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// AssetsConfig bounds remote asset fetching.
type AssetsConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxBytes     int           `yaml:"max_bytes"`
}

// TextConfig controls how names are rasterized.
type TextConfig struct {
	FontPath      string  `yaml:"font_path"`
	Color         string  `yaml:"color"`
	MinFontSize   float64 `yaml:"min_font_size"`
	Margin        float64 `yaml:"margin"`
	FirstBaseline float64 `yaml:"first_baseline"`
	LineGap       float64 `yaml:"line_gap"`
}

// PDFConfig controls PDF page rendering.
type PDFConfig struct {
	Renderer        string  `yaml:"renderer"`
	PageWidth       float64 `yaml:"page_width"`
	TimeoutSecs     int     `yaml:"timeout_secs"`
	ChromePath      string  `yaml:"chrome_path"`
	ChromeNoSandbox bool    `yaml:"chrome_no_sandbox"`
	ChromePoolSize  int     `yaml:"chrome_pool_size"`
	UserDataDir     string  `yaml:"user_data_dir"`
}

// Point is a placement offset in background pixels.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Placement picks Short for texts up to Threshold runes and Long beyond it.
type Placement struct {
	Threshold int   `yaml:"threshold"`
	Short     Point `yaml:"short"`
	Long      Point `yaml:"long"`
}

// Canvas is the size of the text raster.
type Canvas struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Template is one invitation layout.
type Template struct {
	Mode        string     `yaml:"mode"`
	Background  string     `yaml:"background"`
	Attachment  string     `yaml:"attachment"`
	MaxFontSize float64    `yaml:"max_font_size"`
	Emphasis    bool       `yaml:"emphasis"`
	Canvas      Canvas     `yaml:"canvas"`
	Name        Placement  `yaml:"name"`
	Role        *Placement `yaml:"role"`
}

// Default returns the built-in configuration. Its templates reproduce the four
// iterations of the tool: image export, PDF export, PDF merged with a
// programme, and the two-field name/role variant.
func Default() Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = ":8080"
	cfg.Server.BodyLimit = 4 * 1024 * 1024

	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 7

	cfg.Cache.RateLimitDB = 0
	cfg.Cache.ArtifactDB = 1
	cfg.Cache.ArtifactCacheTTL = 10 * time.Minute

	cfg.Auth.ReloadInterval = time.Minute
	cfg.Auth.Postgres.Port = 5432
	cfg.Auth.Postgres.SSLMode = "disable"

	cfg.RateLimiter.Interval = time.Minute
	cfg.RateLimiter.EnableTokenRateLimiter = true

	cfg.Assets = AssetsConfig{FetchTimeout: 10 * time.Second, MaxBytes: 20 * 1024 * 1024}
	cfg.Text = TextConfig{Color: "#b40000", MinFontSize: 14, Margin: 10, FirstBaseline: 40, LineGap: 10}
	cfg.PDF = PDFConfig{Renderer: RendererGofpdf, PageWidth: 595, TimeoutSecs: 30, ChromeNoSandbox: true, ChromePoolSize: 2}

	cfg.DefaultTemplate = "image"
	cfg.Templates = defaultTemplates()
	return cfg
}

func defaultTemplates() map[string]Template {
	canvas := Canvas{Width: 500, Height: 400}
	return map[string]Template{
		"image": {
			Mode:        ModeImage,
			Background:  "builtin:invitation",
			MaxFontSize: 20,
			Canvas:      canvas,
			Name:        Placement{Threshold: 33, Short: Point{X: 293, Y: 495}, Long: Point{X: 253, Y: 495}},
		},
		"pdf": {
			Mode:        ModePDF,
			Background:  "builtin:invitation",
			MaxFontSize: 18,
			Canvas:      canvas,
			Name:        Placement{Threshold: 35, Short: Point{X: 293, Y: 495}, Long: Point{X: 253, Y: 495}},
		},
		"pdf-merge": {
			Mode:        ModePDFMerge,
			Background:  "builtin:invitation",
			Attachment:  "builtin:programme",
			MaxFontSize: 18,
			Canvas:      canvas,
			Name:        Placement{Threshold: 35, Short: Point{X: 293, Y: 495}, Long: Point{X: 253, Y: 495}},
		},
		"pdf-role": {
			Mode:        ModePDFMerge,
			Background:  "builtin:invitation",
			Attachment:  "builtin:programme",
			MaxFontSize: 15,
			Emphasis:    true,
			Canvas:      canvas,
			Name:        Placement{Threshold: 35, Short: Point{X: 293, Y: 480}, Long: Point{X: 253, Y: 480}},
			Role:        &Placement{Threshold: 35, Short: Point{X: 293, Y: 560}, Long: Point{X: 253, Y: 560}},
		},
	}
}

// Load reads the configuration from CONFIG_PATH (default "config.yaml"). A
// missing default file yields the built-in configuration.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat("config.yaml"); err != nil {
			cfg := Default()
			cfg.applyEnv()
			cfg.mustValidate()
			return cfg
		}
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration file at path on top of the defaults. It
// panics when the file cannot be read or holds invalid values.
func LoadFrom(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: reading %s: %v", path, err))
	}

	defaults := Default()
	cfg := defaults
	cfg.Templates = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		panic(fmt.Sprintf("config: parsing %s: %v", path, err))
	}
	if len(cfg.Templates) == 0 {
		cfg.Templates = defaults.Templates
	}

	cfg.applyEnv()
	cfg.mustValidate()
	return cfg
}

func (cfg *Config) applyEnv() {
	if cfg.PDF.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.PDF.ChromePath = v
		}
	}
	for name, tpl := range cfg.Templates {
		if tpl.Canvas.Width == 0 && tpl.Canvas.Height == 0 {
			tpl.Canvas = Canvas{Width: 500, Height: 400}
		}
		if tpl.MaxFontSize == 0 {
			tpl.MaxFontSize = 20
		}
		cfg.Templates[name] = tpl
	}
}

func (cfg Config) mustValidate() {
	if err := cfg.Validate(); err != nil {
		panic("config: " + err.Error())
	}
}

// Validate reports the first invalid value in cfg.
func (cfg Config) Validate() error {
	if cfg.RateLimiter.Interval <= 0 {
		return fmt.Errorf("rate_limiter.interval must be positive")
	}
	if cfg.RateLimiter.UserLimit < 0 {
		return fmt.Errorf("rate_limiter.user_limit must not be negative")
	}
	if cfg.Auth.Enabled {
		if cfg.Auth.ReloadInterval <= 0 {
			return fmt.Errorf("auth.reload_interval must be positive")
		}
		if _, err := cfg.Auth.Postgres.DSN(); err != nil {
			return fmt.Errorf("auth.postgres: %w", err)
		}
	}
	if cfg.Assets.MaxBytes <= 0 {
		return fmt.Errorf("assets.max_bytes must be positive")
	}
	if cfg.Assets.FetchTimeout <= 0 {
		return fmt.Errorf("assets.fetch_timeout must be positive")
	}
	if cfg.Text.MinFontSize <= 0 {
		return fmt.Errorf("text.min_font_size must be positive")
	}
	switch cfg.PDF.Renderer {
	case RendererGofpdf, RendererChrome:
	default:
		return fmt.Errorf("pdf.renderer %q is not supported", cfg.PDF.Renderer)
	}
	if cfg.PDF.PageWidth <= 0 {
		return fmt.Errorf("pdf.page_width must be positive")
	}
	if cfg.PDF.Renderer == RendererChrome {
		if cfg.PDF.ChromePoolSize <= 0 {
			return fmt.Errorf("pdf.chrome_pool_size must be positive for the chrome renderer")
		}
		if cfg.PDF.TimeoutSecs <= 0 {
			return fmt.Errorf("pdf.timeout_secs must be positive for the chrome renderer")
		}
	}
	if len(cfg.Templates) == 0 {
		return fmt.Errorf("no templates configured")
	}
	if _, ok := cfg.Templates[cfg.DefaultTemplate]; !ok {
		return fmt.Errorf("default_template %q is not configured", cfg.DefaultTemplate)
	}
	for _, name := range cfg.TemplateNames() {
		if err := cfg.Templates[name].validate(cfg.Text.MinFontSize); err != nil {
			return fmt.Errorf("templates.%s: %w", name, err)
		}
	}
	return nil
}

func (t Template) validate(minFontSize float64) error {
	switch t.Mode {
	case ModeImage, ModePDF:
	case ModePDFMerge:
		if t.Attachment == "" {
			return fmt.Errorf("mode %s requires an attachment", t.Mode)
		}
	default:
		return fmt.Errorf("mode %q is not supported", t.Mode)
	}
	if t.Canvas.Width <= 0 || t.Canvas.Height <= 0 {
		return fmt.Errorf("canvas must be positive, got %dx%d", t.Canvas.Width, t.Canvas.Height)
	}
	if t.MaxFontSize < minFontSize {
		return fmt.Errorf("max_font_size %.0f is below min_font_size %.0f", t.MaxFontSize, minFontSize)
	}
	if t.Name.Threshold <= 0 {
		return fmt.Errorf("name.threshold must be positive")
	}
	if t.Role != nil && t.Role.Threshold <= 0 {
		return fmt.Errorf("role.threshold must be positive")
	}
	return nil
}

// TemplateNames returns the configured template names in sorted order.
func (cfg Config) TemplateNames() []string {
	names := make([]string, 0, len(cfg.Templates))
	for name := range cfg.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CoincidingPlacements lists "template.field" entries whose short and long
// placements are identical, which leaves the length threshold without effect.
func (cfg Config) CoincidingPlacements() []string {
	var out []string
	for _, name := range cfg.TemplateNames() {
		tpl := cfg.Templates[name]
		if tpl.Name.Short == tpl.Name.Long {
			out = append(out, name+".name")
		}
		if tpl.Role != nil && tpl.Role.Short == tpl.Role.Long {
			out = append(out, name+".role")
		}
	}
	return out
}

func (p PostgresConfig) port() int {
	if p.Port != 0 {
		return p.Port
	}
	return 5432
}

// DSN builds a postgres:// connection URL. A Host that already is a URL is
// passed through unchanged.
func (p PostgresConfig) DSN() (string, error) {
	if strings.HasPrefix(p.Host, "postgres://") || strings.HasPrefix(p.Host, "postgresql://") {
		return p.Host, nil
	}
	if p.Host == "" {
		return "", fmt.Errorf("postgres host is empty")
	}
	if p.Database == "" {
		return "", fmt.Errorf("postgres database is empty")
	}
	if p.User == "" {
		return "", fmt.Errorf("postgres user is empty")
	}

	hostPort := p.Host
	port := p.port()
	// Handle IPv6 or explicit host:port strings.
	if strings.HasPrefix(hostPort, "[") {
		if !strings.Contains(hostPort, "]:") {
			hostPort = fmt.Sprintf("%s:%d", hostPort, port)
		}
	} else if strings.Count(hostPort, ":") >= 2 {
		hostPort = fmt.Sprintf("[%s]:%d", hostPort, port)
	} else if !strings.Contains(hostPort, ":") {
		hostPort = fmt.Sprintf("%s:%d", hostPort, port)
	}

	u := &url.URL{Scheme: "postgres", Host: hostPort, Path: "/" + p.Database}
	if p.Password != "" {
		u.User = url.UserPassword(p.User, p.Password)
	} else {
		u.User = url.User(p.User)
	}
	q := u.Query()
	if p.SSLMode != "" {
		q.Set("sslmode", p.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
