package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/export"
	"github.com/vango-dev/suspense/pkg/render"
)

const (
	// ConfigFileName is the name written by SaveTo when no path is given.
	ConfigFileName = "suspense.yaml"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultMode is the default render mode for pages.
	DefaultMode = "ooo"

	// DefaultOutput is the default export target.
	DefaultOutput = "dist"
)

// fileNames are tried in order by Load.
var fileNames = []string{"suspense.yaml", "suspense.yml", "suspense.json"}

// Config represents the complete suspense.yaml configuration.
type Config struct {
	// Name is the project name, used as the page title.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	Server  ServerConfig  `yaml:"server" json:"server"`
	Render  RenderConfig  `yaml:"render" json:"render"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Export  ExportConfig  `yaml:"export" json:"export"`
	Live    LiveConfig    `yaml:"live" json:"live"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Demo    DemoConfig    `yaml:"demo" json:"demo"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host,omitempty" json:"host,omitempty"`
	Port int    `yaml:"port,omitempty" json:"port,omitempty"`

	// ReadTimeout bounds reading a request. Writes are not bounded so
	// streamed pages and live channels can stay open.
	ReadTimeout Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`

	// ShutdownTimeout is how long graceful shutdown waits.
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// RenderConfig contains page rendering settings.
type RenderConfig struct {
	// Mode is the default render mode: ssr, ooo or inorder.
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`

	// ClientScript is the URL of the client bundle, if any.
	ClientScript string `yaml:"clientScript,omitempty" json:"clientScript,omitempty"`

	// Timeout bounds a whole page render.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// Format is text or json.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// ExportConfig contains static export settings.
type ExportConfig struct {
	// Target is a directory or s3://bucket/prefix.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`

	// Region and Endpoint configure the S3 client.
	Region   string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// Routes lists the pages to prerender.
	Routes []string `yaml:"routes,omitempty" json:"routes,omitempty"`
}

// LiveConfig contains live channel settings.
type LiveConfig struct {
	// Buffer is the per-subscriber buffer size.
	Buffer int `yaml:"buffer,omitempty" json:"buffer,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// DemoConfig tunes the demo application.
type DemoConfig struct {
	// Latency delays the demo's resources.
	Latency Duration `yaml:"latency,omitempty" json:"latency,omitempty"`

	// InitialCount is the starting server count.
	InitialCount int `yaml:"initialCount,omitempty" json:"initialCount,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Name: "suspense",
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     Duration(10 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Render: RenderConfig{
			Mode:    DefaultMode,
			Timeout: Duration(30 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Export: ExportConfig{
			Target: DefaultOutput,
			Routes: []string{"/"},
		},
		Live: LiveConfig{
			Buffer: 16,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "suspense",
		},
		Demo: DemoConfig{
			Latency: Duration(500 * time.Millisecond),
		},
	}
}

// Load reads configuration from the specified directory, trying
// suspense.yaml, suspense.yml and suspense.json in that order.
func Load(dir string) (*Config, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E140").
		WithDetail("No suspense.yaml or suspense.json found in " + dir).
		WithSuggestion("Create suspense.yaml or pass --config")
}

// LoadFile reads configuration from the specified file path. The format
// follows the extension; anything but .json is read as YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E140").WithDetail("No config file at " + path)
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg, err := Parse(data, isJSON(path))
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Parse decodes configuration over the defaults.
func Parse(data []byte, asJSON bool) (*Config, error) {
	cfg := New()
	if asJSON {
		if err := sonic.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse JSON: " + err.Error()).
				WithSuggestion("Check that suspense.json is valid JSON")
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse YAML: " + err.Error()).
				WithSuggestion("Check the indentation and that durations are strings like \"500ms\"")
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path in the format its
// extension names.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = sonic.ConfigStd.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Render.Mode == "" {
		c.Render.Mode = d.Render.Mode
	}
	if c.Render.Timeout == 0 {
		c.Render.Timeout = d.Render.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Export.Target == "" {
		c.Export.Target = d.Export.Target
	}
	if len(c.Export.Routes) == 0 {
		c.Export.Routes = d.Export.Routes
	}
	if c.Live.Buffer <= 0 {
		c.Live.Buffer = d.Live.Buffer
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E122").
			WithDetailf("Port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E120").
			WithDetailf("log.format must be text or json, got %q", c.Log.Format)
	}
	if _, err := export.ParseTarget(c.Export.Target); err != nil {
		return err
	}
	if c.Demo.Latency < 0 {
		return errors.New("E120").WithDetail("demo.latency must not be negative")
	}
	return nil
}

// Mode returns the configured render mode. The client mode is not a page
// mode and is rejected.
func (c *Config) Mode() (render.Mode, error) {
	mode, err := render.ParseMode(c.Render.Mode)
	if err != nil {
		return 0, err
	}
	if mode == render.ModeClient {
		return 0, errors.New("E123").
			WithDetail("render.mode must be ssr, ooo or inorder for pages")
	}
	return mode, nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the server's base URL.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// NewLogger builds the slog logger log.level and log.format describe.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.New("E120").
			WithDetailf("log.level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}

// Exists reports whether a config file exists in dir.
func Exists(dir string) bool {
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E140").
				WithDetail("No suspense.yaml found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest project root,
// falling back to the defaults when there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		if errors.HasCode(err, "E140") {
			return New(), nil
		}
		return nil, err
	}

	return Load(root)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Duration is a time.Duration written as a string like "500ms".
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalJSON accepts a quoted duration string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.Newf(errors.CategoryConfig, "duration must be a string, got %s", data)
	}
	return d.parse(s)
}

// MarshalJSON writes the duration as a quoted string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Duration) parse(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Newf(errors.CategoryConfig, "invalid duration %q: %v", s, err)
	}
	*d = Duration(parsed)
	return nil
}
