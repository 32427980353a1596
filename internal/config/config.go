package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/extracto-dev/extracto/internal/model"
)

// FileName is the config file created by `extracto init`.
const FileName = "extracto.yaml"

// EnvPrefix prefixes environment overrides, e.g. EXTRACTO_SERVER_ADDR.
const EnvPrefix = "EXTRACTO"

// Config represents the top-level extracto.yaml configuration.
type Config struct {
	User    UserConfig    `yaml:"user" mapstructure:"user"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Import  ImportConfig  `yaml:"import" mapstructure:"import"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Savings SavingsConfig `yaml:"savings" mapstructure:"savings"`

	// Root is the directory holding the config file. Relative paths resolve
	// against it.
	Root string `yaml:"-" mapstructure:"-"`
}

// UserConfig names the ledger owner used when a request carries no user.
type UserConfig struct {
	ID string `yaml:"id" mapstructure:"id"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ImportConfig controls statement imports.
type ImportConfig struct {
	InboxDir             string `yaml:"inbox_dir" mapstructure:"inbox_dir"`
	DefaultPaymentMethod string `yaml:"default_payment_method" mapstructure:"default_payment_method"`
	MaxUploadMB          int    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// ServerConfig controls `extracto serve`.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// SavingsConfig holds the goals reported by `extracto summary`.
type SavingsConfig struct {
	// Goal is the share of income to save each month, between 0 and 1.
	Goal             float64 `yaml:"goal" mapstructure:"goal"`
	EmergencyTarget  float64 `yaml:"emergency_target" mapstructure:"emergency_target"`
	EmergencyCurrent float64 `yaml:"emergency_current" mapstructure:"emergency_current"`
}

// Load reads an extracto.yaml file from disk. Every key can be overridden
// by an EXTRACTO_* environment variable with dots replaced by underscores.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default(""))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	cfg.Root = abs
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("user.id", d.User.ID)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("import.inbox_dir", d.Import.InboxDir)
	v.SetDefault("import.default_payment_method", d.Import.DefaultPaymentMethod)
	v.SetDefault("import.max_upload_mb", d.Import.MaxUploadMB)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("savings.goal", d.Savings.Goal)
	v.SetDefault("savings.emergency_target", d.Savings.EmergencyTarget)
	v.SetDefault("savings.emergency_current", d.Savings.EmergencyCurrent)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(userID string) *Config {
	return &Config{
		User:    UserConfig{ID: userID},
		Storage: StorageConfig{Path: "data/extracto.db"},
		Import: ImportConfig{
			InboxDir:             "inbox",
			DefaultPaymentMethod: string(model.PaymentCard),
			MaxUploadMB:          10,
		},
		Server:  ServerConfig{Addr: "127.0.0.1:8080"},
		Log:     LogConfig{Level: "info"},
		Savings: SavingsConfig{Goal: 0.20},
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.User.ID == "" {
		return fmt.Errorf("config: user.id is required")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("config: storage.path is required")
	}
	if !model.PaymentMethod(c.Import.DefaultPaymentMethod).Valid() {
		return fmt.Errorf("config: unknown import.default_payment_method %q", c.Import.DefaultPaymentMethod)
	}
	if c.Import.MaxUploadMB <= 0 {
		return fmt.Errorf("config: import.max_upload_mb must be positive, got %d", c.Import.MaxUploadMB)
	}
	if c.Savings.Goal < 0 || c.Savings.Goal > 1 {
		return fmt.Errorf("config: savings.goal must be between 0 and 1, got %g", c.Savings.Goal)
	}
	if c.Savings.EmergencyTarget < 0 || c.Savings.EmergencyCurrent < 0 {
		return fmt.Errorf("config: savings emergency amounts cannot be negative")
	}
	return nil
}

// DBPath returns the absolute database path.
func (c *Config) DBPath() string { return c.resolve(c.Storage.Path) }

// InboxPath returns the absolute inbox directory.
func (c *Config) InboxPath() string { return c.resolve(c.Import.InboxDir) }

// DataDir returns the directory holding the database and logs.
func (c *Config) DataDir() string { return filepath.Dir(c.DBPath()) }

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 { return int64(c.Import.MaxUploadMB) << 20 }

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}
