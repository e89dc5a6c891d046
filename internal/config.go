package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quill/internal/loader"
	"github.com/starford/quill/internal/reload"
	"github.com/starford/quill/internal/retry"
	"github.com/starford/quill/internal/storage"
)

func init() {
	// Validation errors name fields as the config file does.
	validation.ErrorTag = "yaml"
}

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Reload  ReloadConfig      `yaml:"reload"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Reload.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig selects and reads the content files.
type ContentConfig struct {
	Root        string        `yaml:"root"`
	Include     []string      `yaml:"include"`
	Exclude     []string      `yaml:"exclude"`
	Workers     int           `yaml:"workers"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	Retry       RetryConfig   `yaml:"retry"`
	// Output is where the build command writes the static site.
	Output string `yaml:"output"`
}

// RetryConfig configures backoff for transient read failures.
type RetryConfig struct {
	Mode       retry.Mode    `yaml:"mode"`
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	MaxRetries int           `yaml:"max_retries"`
}

// Policy converts the configuration into a retry policy.
func (c RetryConfig) Policy() retry.Policy {
	return retry.NewPolicy(c.Mode, c.Initial, c.Max, c.MaxRetries)
}

var validPattern = validation.By(func(v any) error {
	if p, _ := v.(string); !doublestar.ValidatePattern(p) {
		return errors.New("invalid glob pattern")
	}
	return nil
})

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Include, validation.Each(validation.Required, validPattern)),
		validation.Field(&c.Exclude, validation.Each(validation.Required, validPattern)),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(1024)),
		validation.Field(&c.ReadTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Retry),
	)
}

// Validate validates the retry configuration.
func (c RetryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Mode, validation.In(retry.ModeFixed, retry.ModeLinear, retry.ModeExponential)),
		validation.Field(&c.Initial, validation.Min(time.Duration(0))),
		validation.Field(&c.Max, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
	)
}

// FSOptions returns the storage options selected by the configuration.
func (c *ContentConfig) FSOptions() []storage.FSOption {
	var opts []storage.FSOption
	if len(c.Include) > 0 {
		opts = append(opts, storage.WithInclude(c.Include...))
	}
	if len(c.Exclude) > 0 {
		opts = append(opts, storage.WithExclude(c.Exclude...))
	}
	return opts
}

// WorkerCount returns the configured worker count, GOMAXPROCS when unset.
func (c *ContentConfig) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ReloadConfig controls rebuilds while serving. Interval 0 disables the
// periodic rebuild; the file watcher runs whenever Enabled is set.
type ReloadConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
	Interval time.Duration `yaml:"interval"`
}

// Validate validates the reload configuration.
func (c *ReloadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0)), validation.Max(time.Minute)),
		validation.Field(&c.Interval, validation.When(c.Interval != 0, validation.Min(time.Second))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Root:        "./content",
			Include:     slices.Clone(storage.DefaultInclude),
			ReadTimeout: loader.DefaultReadTimeout,
			Retry: RetryConfig{
				Mode:       retry.ModeLinear,
				Initial:    100 * time.Millisecond,
				Max:        time.Second,
				MaxRetries: 2,
			},
			Output: "./public",
		},
		SQLite: SQLiteConfig{
			Path: "./quill.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Reload: ReloadConfig{
			Enabled:  true,
			Debounce: reload.DefaultDebounce,
		},
	}
}
