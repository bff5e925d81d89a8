package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gomanifold/manifold/pkg/endpoint"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// FileName is the config file base name; .yml and .yaml are both accepted.
const FileName = "manifold"

// EnvPrefix prefixes environment overrides (MANIFOLD_CODEGEN_COMMAND, ...).
const EnvPrefix = "MANIFOLD"

// Config represents the manifold configuration
type Config struct {
	ProjectName string        `mapstructure:"project_name"`
	Version     string        `mapstructure:"version"`
	Registry    string        `mapstructure:"registry"`
	Aliases     [][]string    `mapstructure:"aliases"`
	Sources     SourcesConfig `mapstructure:"sources"`
	Codegen     CodegenConfig `mapstructure:"codegen"`
	Build       BuildConfig   `mapstructure:"build"`
	API         APIConfig     `mapstructure:"api"`
	Server      ServerConfig  `mapstructure:"server"`
	Watch       WatchConfig   `mapstructure:"watch"`
}

// SourcesConfig locates the documentation and schema tree, and where to
// fetch them from.
type SourcesConfig struct {
	Docs      string   `mapstructure:"docs"`
	Schemas   string   `mapstructure:"schemas"`
	Extension string   `mapstructure:"extension"`
	Exclude   []string `mapstructure:"exclude"`
	// Repository is a git URL; empty disables `manifold fetch`.
	Repository string        `mapstructure:"repository"`
	Ref        string        `mapstructure:"ref"`
	Checkout   string        `mapstructure:"checkout"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CodegenConfig configures the external model generator
type CodegenConfig struct {
	Command   string        `mapstructure:"command"`
	Args      []string      `mapstructure:"args"`
	ModelsDir string        `mapstructure:"models_dir"`
	Package   string        `mapstructure:"package"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// BuildConfig represents build configuration
type BuildConfig struct {
	Parallel bool        `mapstructure:"parallel"`
	MaxJobs  int         `mapstructure:"max_jobs"`
	Cache    CacheConfig `mapstructure:"cache"`
}

// CacheConfig selects the build cache backend
type CacheConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Backend string      `mapstructure:"backend"`
	Dir     string      `mapstructure:"dir"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig represents the shared cache server
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// APIConfig configures calls to the live API
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	KeyEnv  string        `mapstructure:"key_env"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig represents the introspection server
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	// CORSOrigins lists browser origins allowed to read the API.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// WatchConfig represents watch mode settings
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", endpoint.SupportedVersion)
	v.SetDefault("registry", "endpoints.json")
	v.SetDefault("aliases", endpoint.DefaultAliases())

	v.SetDefault("sources.docs", "api.md")
	v.SetDefault("sources.schemas", "schema")
	v.SetDefault("sources.extension", ".json")
	v.SetDefault("sources.ref", "main")
	v.SetDefault("sources.checkout", ".manifold/sources")
	v.SetDefault("sources.timeout", 5*time.Minute)

	v.SetDefault("codegen.command", "go-jsonschema")
	// go-jsonschema names types after the schema title; see build.DefaultGeneratorArgs.
	v.SetDefault("codegen.args", []string{"-p", "{{.Package}}", "-o", "{{.Output}}", "{{.Input}}"})
	v.SetDefault("codegen.models_dir", "models")
	v.SetDefault("codegen.package", "models")
	v.SetDefault("codegen.timeout", 2*time.Minute)

	v.SetDefault("build.parallel", false)
	v.SetDefault("build.max_jobs", runtime.NumCPU())
	v.SetDefault("build.cache.enabled", true)
	v.SetDefault("build.cache.backend", CacheBackendFile)
	v.SetDefault("build.cache.dir", ".manifold/cache")
	v.SetDefault("build.cache.redis.addr", "localhost:6379")
	v.SetDefault("build.cache.redis.prefix", "manifold:build:")
	v.SetDefault("build.cache.redis.ttl", 7*24*time.Hour)

	v.SetDefault("api.base_url", "https://api.manifold.markets")
	v.SetDefault("api.key_env", "MANIFOLD_API_KEY")
	v.SetDefault("api.timeout", 30*time.Second)

	v.SetDefault("server.port", 4100)
	v.SetDefault("server.host", "localhost")

	v.SetDefault("watch.debounce", 300*time.Millisecond)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load loads the configuration from manifold.yml or manifold.yaml in the
// working directory, falling back to defaults when neither exists.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFile loads an explicit config file, which must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// AliasSet builds the configured alias table
func (c *Config) AliasSet() (*endpoint.AliasSet, error) {
	set, err := endpoint.NewAliasSet(c.Aliases)
	if err != nil {
		return nil, mferrors.NewInvalidConfig("aliases: " + err.Error())
	}
	return set, nil
}

// APIKey returns the credential from the configured environment variable.
func (c *Config) APIKey() string {
	if c.API.KeyEnv == "" {
		return ""
	}
	return os.Getenv(c.API.KeyEnv)
}

// DocsPath returns the documentation path. With a repository configured,
// sources live inside the checkout.
func (c *Config) DocsPath() string {
	return c.sourcePath(c.Sources.Docs)
}

// SchemasPath returns the schema tree root.
func (c *Config) SchemasPath() string {
	return c.sourcePath(c.Sources.Schemas)
}

func (c *Config) sourcePath(p string) string {
	if c.Sources.Repository == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Sources.Checkout, p)
}

// InProject checks if the current directory holds a manifold.yml
func InProject() bool {
	for _, name := range []string{FileName + ".yml", FileName + ".yaml"} {
		if _, err := os.Stat(name); err == nil {
			return true
		}
	}
	return false
}

// GetProjectRoot tries to find the project root by looking for manifold.yml
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{FileName + ".yml", FileName + ".yaml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a manifold project (no %s.yml found)", FileName)
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Version != endpoint.SupportedVersion {
		return mferrors.NewInvalidConfig(fmt.Sprintf("version must be %s, got: %s", endpoint.SupportedVersion, cfg.Version))
	}
	if strings.TrimSpace(cfg.Registry) == "" {
		return mferrors.NewInvalidConfig("registry must not be empty")
	}
	if strings.TrimSpace(cfg.Codegen.Command) == "" {
		return mferrors.NewInvalidConfig("codegen.command must not be empty")
	}
	if cfg.Codegen.Timeout <= 0 {
		return mferrors.NewInvalidConfig(fmt.Sprintf("codegen.timeout must be positive, got: %s", cfg.Codegen.Timeout))
	}
	if !strings.HasPrefix(cfg.Sources.Extension, ".") {
		return mferrors.NewInvalidConfig(fmt.Sprintf("sources.extension must start with '.', got: %s", cfg.Sources.Extension))
	}
	switch cfg.Build.Cache.Backend {
	case CacheBackendFile, CacheBackendRedis:
	default:
		return mferrors.NewInvalidConfig(fmt.Sprintf("build.cache.backend must be %q or %q, got: %s",
			CacheBackendFile, CacheBackendRedis, cfg.Build.Cache.Backend))
	}
	if cfg.Build.MaxJobs < 1 {
		cfg.Build.MaxJobs = 1
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return mferrors.NewInvalidConfig(fmt.Sprintf("server.port out of range: %d", cfg.Server.Port))
	}
	if _, err := endpoint.NewAliasSet(cfg.Aliases); err != nil {
		return mferrors.NewInvalidConfig("aliases: " + err.Error())
	}
	return nil
}

// Init writes a config file holding the defaults plus overrides, keyed by
// their dotted names ("sources.repository"). An existing file is only
// replaced when force is set.
func Init(path string, overrides map[string]any, force bool) error {
	v := newViper()
	for key, value := range overrides {
		v.Set(key, value)
	}
	if _, err := decode(v); err != nil {
		return err
	}
	// Durations would otherwise be written as nanosecond counts.
	for _, key := range v.AllKeys() {
		if d, ok := v.Get(key).(time.Duration); ok {
			v.Set(key, d.String())
		}
	}

	if force {
		return v.WriteConfigAs(path)
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
