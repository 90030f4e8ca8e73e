package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/quotemaker-dev/quotemaker/internal/model"
)

// FileName is the default config file name.
const FileName = "quotemaker.yaml"

// EnvPrefix prefixes environment overrides, e.g. QUOTEMAKER_LOGGER_LEVEL.
const EnvPrefix = "QUOTEMAKER"

// Config represents the top-level quotemaker.yaml configuration.
type Config struct {
	Data         DataConfig         `yaml:"data" mapstructure:"data"`
	Export       ExportConfig       `yaml:"export" mapstructure:"export"`
	SaveEndpoint SaveEndpointConfig `yaml:"save_endpoint" mapstructure:"save_endpoint"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Render       RenderConfig       `yaml:"render" mapstructure:"render"`
	Logger       LoggerConfig       `yaml:"logger" mapstructure:"logger"`
	Defaults     DefaultsConfig     `yaml:"defaults" mapstructure:"defaults"`
}

// DataConfig locates the local state.
type DataConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	StoreFile string `yaml:"store_file" mapstructure:"store_file"`
	ExportLog string `yaml:"export_log" mapstructure:"export_log"`
}

// ExportConfig controls where exports land when the document has no save path.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// SaveEndpointConfig points at the save-to-path endpoint. An empty URL means
// documents with a save path are written directly to disk.
type SaveEndpointConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"` // 0 = no timeout
}

// ServerConfig is used by `quotemaker serve`.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// RenderConfig tunes PDF/PNG output.
type RenderConfig struct {
	FontPath string `yaml:"font_path" mapstructure:"font_path"` // UTF-8 TTF for non-Latin text
	DPI      int    `yaml:"dpi" mapstructure:"dpi"`
}

// LoggerConfig configures zap.
type LoggerConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"` // json or console
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`
}

// DefaultsConfig seeds new documents. Empty strings, an invalid template or
// font, and an unnamed sender keep the built-in defaults. Rates always apply,
// so tax_rate: 0 means no tax; an absent key falls back to Default's rates.
type DefaultsConfig struct {
	Template     int               `yaml:"template" mapstructure:"template"`
	FontFamily   string            `yaml:"font_family" mapstructure:"font_family"`
	TaxRate      float64           `yaml:"tax_rate" mapstructure:"tax_rate"`
	DiscountRate float64           `yaml:"discount_rate" mapstructure:"discount_rate"`
	Terms        string            `yaml:"terms,omitempty" mapstructure:"terms"`
	Sender       model.Party       `yaml:"sender,omitempty" mapstructure:"sender"`
	PaymentInfo  model.PaymentInfo `yaml:"payment_info,omitempty" mapstructure:"payment_info"`
}

// StorePath returns the full path of the state database.
func (c *Config) StorePath() string {
	return joinDir(c.Data.Dir, c.Data.StoreFile)
}

// ExportLogPath returns the full path of the export history CSV.
func (c *Config) ExportLogPath() string {
	return joinDir(c.Data.Dir, c.Data.ExportLog)
}

// Resolve makes the relative data and export directories relative to base,
// normally the directory holding the config file.
func (c *Config) Resolve(base string) {
	c.Data.Dir = joinDir(base, c.Data.Dir)
	c.Export.OutputDir = joinDir(base, c.Export.OutputDir)
	if c.Render.FontPath != "" {
		c.Render.FontPath = joinDir(base, c.Render.FontPath)
	}
}

func joinDir(dir, file string) string {
	if dir == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// Default returns a Config with sensible defaults for a new workspace.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:       ".quotemaker",
			StoreFile: "state.db",
			ExportLog: "exports.csv",
		},
		Export: ExportConfig{
			OutputDir: "exports",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Render: RenderConfig{
			DPI: 150,
		},
		Logger: LoggerConfig{
			Level:      "warn",
			Format:     "console",
			OutputPath: "stderr",
		},
		Defaults: DefaultsConfig{
			Template:   int(model.TemplateClassic),
			FontFamily: string(model.FontSystem),
			TaxRate:    0.1,
		},
	}
}

// Load reads a quotemaker.yaml file from disk. Environment variables with the
// QUOTEMAKER_ prefix override file values.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return unmarshal(v)
}

// LoadOrDefault is Load, falling back to Default (plus environment
// overrides) when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return unmarshal(newViper())
	}
	return Load(path)
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

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	return v
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data.dir", d.Data.Dir)
	v.SetDefault("data.store_file", d.Data.StoreFile)
	v.SetDefault("data.export_log", d.Data.ExportLog)

	v.SetDefault("export.output_dir", d.Export.OutputDir)

	v.SetDefault("save_endpoint.url", d.SaveEndpoint.URL)
	v.SetDefault("save_endpoint.timeout", d.SaveEndpoint.Timeout)

	v.SetDefault("server.addr", d.Server.Addr)

	v.SetDefault("render.font_path", d.Render.FontPath)
	v.SetDefault("render.dpi", d.Render.DPI)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.output_path", d.Logger.OutputPath)

	v.SetDefault("defaults.template", d.Defaults.Template)
	v.SetDefault("defaults.font_family", d.Defaults.FontFamily)
	v.SetDefault("defaults.tax_rate", d.Defaults.TaxRate)
	v.SetDefault("defaults.discount_rate", d.Defaults.DiscountRate)
	v.SetDefault("defaults.terms", "")
	for _, key := range []string{"name", "address", "email", "phone", "businessnumber"} {
		v.SetDefault("defaults.sender."+key, "")
	}
	for _, key := range []string{"bankname", "accountnumber", "accountholder"} {
		v.SetDefault("defaults.payment_info."+key, "")
	}
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
