package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	cerrors "github.com/Aman-CERP/classindex/internal/errors"
)

// ProjectFileName is the per-project configuration file looked up in the scan root.
const ProjectFileName = ".classindex.yaml"

// DataDirName is the directory under the scan root holding the index and diagnostics.
const DataDirName = ".classindex"

// Known extractor strategies.
const (
	ExtractorParser  = "parser"
	ExtractorPattern = "pattern"
)

// Known content hash algorithms.
const (
	HashSHA256 = "sha256"
	HashXXH3   = "xxh3"
)

// Config represents the complete classindex configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Scan    ScanConfig    `yaml:"scan" json:"scan"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScanConfig controls discovery and the scan coordinator.
type ScanConfig struct {
	// Extensions accepted by discovery, compared case-insensitively.
	Extensions []string `yaml:"extensions" json:"extensions"`
	// Exclude holds doublestar patterns relative to the scan root.
	Exclude []string `yaml:"exclude" json:"exclude"`
	// Extractor selects the extraction strategy: "parser" or "pattern".
	Extractor string `yaml:"extractor" json:"extractor"`
	// ReducedFidelity renders array properties as the "[array]" placeholder.
	ReducedFidelity bool `yaml:"reduced_fidelity" json:"reduced_fidelity"`
	// VerboseErrors adds location and file content to parse error logs.
	VerboseErrors bool `yaml:"verbose_errors" json:"verbose_errors"`
	// MaxFiles caps the number of files scanned. 0 means no cap.
	MaxFiles int `yaml:"max_files" json:"max_files"`
	// ParseTimeoutSeconds is the per-file extraction deadline.
	ParseTimeoutSeconds int `yaml:"parse_timeout_seconds" json:"parse_timeout_seconds"`
	// ParallelThreads is the worker count. 0 means logical cores minus one.
	ParallelThreads int `yaml:"parallel_threads" json:"parallel_threads"`
	// MaxAbandoned caps timed-out extractions still running. 0 means twice the worker count.
	MaxAbandoned int `yaml:"max_abandoned" json:"max_abandoned"`
	// OutputDir receives parse_error_*.log and timeout_files.log.
	OutputDir string `yaml:"output_dir" json:"output_dir"`
}

// IndexConfig controls the persisted class index.
type IndexConfig struct {
	// Path of the JSON index document. Relative paths resolve against the scan root.
	Path string `yaml:"path" json:"path"`
	// HashAlgorithm is "sha256" or "xxh3".
	HashAlgorithm string `yaml:"hash_algorithm" json:"hash_algorithm"`
	// HashCacheSize bounds the per-path content hash cache.
	HashCacheSize int `yaml:"hash_cache_size" json:"hash_cache_size"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// defaultExcludePatterns are always excluded.
var defaultExcludePatterns = []string{
	"**/.git/**",
	"**/" + DataDirName + "/**",
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Scan: ScanConfig{
			Extensions:          []string{"cpp", "hpp"},
			Exclude:             append([]string(nil), defaultExcludePatterns...),
			Extractor:           ExtractorParser,
			ParseTimeoutSeconds: 10,
			OutputDir:           filepath.Join(DataDirName, "diagnostics"),
		},
		Index: IndexConfig{
			Path:          filepath.Join(DataDirName, "index.json"),
			HashAlgorithm: HashSHA256,
			HashCacheSize: 4096,
		},
		Watch: WatchConfig{
			Debounce: "200ms",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file.
//   - $XDG_CONFIG_HOME/classindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/classindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "classindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "classindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "classindex", "config.yaml")
}

// Load loads configuration for the scan root dir.
// Precedence, lowest first:
//  1. Hardcoded defaults
//  2. User config (~/.config/classindex/config.yaml)
//  3. Project config (.classindex.yaml in dir)
//  4. Environment variables (CLASSINDEX_*)
func Load(dir string) (*Config, error) {
	return load(filepath.Join(dir, ProjectFileName), false)
}

// LoadFile is Load with an explicit project config path, which must exist.
func LoadFile(path string) (*Config, error) {
	return load(path, true)
}

func load(projectPath string, required bool) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}

	switch {
	case fileExists(projectPath):
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	case required:
		return nil, cerrors.New(cerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("config file not found: %s", projectPath), nil)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML parses path and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return cerrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return cerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithSuggestion("Check the YAML syntax or regenerate it with 'classindex config init --force'")
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
// Exclude patterns accumulate; every other list replaces.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Scan.Extensions) > 0 {
		c.Scan.Extensions = other.Scan.Extensions
	}
	if len(other.Scan.Exclude) > 0 {
		c.Scan.Exclude = append(c.Scan.Exclude, other.Scan.Exclude...)
	}
	if other.Scan.Extractor != "" {
		c.Scan.Extractor = other.Scan.Extractor
	}
	if other.Scan.ReducedFidelity {
		c.Scan.ReducedFidelity = true
	}
	if other.Scan.VerboseErrors {
		c.Scan.VerboseErrors = true
	}
	if other.Scan.MaxFiles != 0 {
		c.Scan.MaxFiles = other.Scan.MaxFiles
	}
	if other.Scan.ParseTimeoutSeconds != 0 {
		c.Scan.ParseTimeoutSeconds = other.Scan.ParseTimeoutSeconds
	}
	if other.Scan.ParallelThreads != 0 {
		c.Scan.ParallelThreads = other.Scan.ParallelThreads
	}
	if other.Scan.MaxAbandoned != 0 {
		c.Scan.MaxAbandoned = other.Scan.MaxAbandoned
	}
	if other.Scan.OutputDir != "" {
		c.Scan.OutputDir = other.Scan.OutputDir
	}

	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if other.Index.HashAlgorithm != "" {
		c.Index.HashAlgorithm = other.Index.HashAlgorithm
	}
	if other.Index.HashCacheSize != 0 {
		c.Index.HashCacheSize = other.Index.HashCacheSize
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies CLASSINDEX_* environment variable overrides.
// Unparseable numeric values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CLASSINDEX_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Scan.ParallelThreads = n
		}
	}
	if v := os.Getenv("CLASSINDEX_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scan.ParseTimeoutSeconds = n
		}
	}
	if v := os.Getenv("CLASSINDEX_MAX_FILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Scan.MaxFiles = n
		}
	}
	if v := os.Getenv("CLASSINDEX_VERBOSE_ERRORS"); v != "" {
		c.Scan.VerboseErrors = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("CLASSINDEX_EXTRACTOR"); v != "" {
		c.Scan.Extractor = v
	}
	if v := os.Getenv("CLASSINDEX_OUTPUT_DIR"); v != "" {
		c.Scan.OutputDir = v
	}
	if v := os.Getenv("CLASSINDEX_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("CLASSINDEX_HASH"); v != "" {
		c.Index.HashAlgorithm = v
	}
	if v := os.Getenv("CLASSINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if len(c.Scan.Extensions) == 0 {
		return cerrors.ConfigError("scan.extensions must not be empty", nil)
	}
	for _, ext := range c.Scan.Extensions {
		if strings.TrimPrefix(strings.TrimSpace(ext), ".") == "" {
			return cerrors.ConfigError("scan.extensions contains an empty extension", nil)
		}
	}
	if c.Scan.ParseTimeoutSeconds <= 0 {
		return cerrors.ConfigError(fmt.Sprintf("scan.parse_timeout_seconds must be positive, got %d", c.Scan.ParseTimeoutSeconds), nil)
	}
	if c.Scan.ParallelThreads < 0 {
		return cerrors.ConfigError(fmt.Sprintf("scan.parallel_threads must be non-negative, got %d", c.Scan.ParallelThreads), nil)
	}
	if c.Scan.MaxFiles < 0 {
		return cerrors.ConfigError(fmt.Sprintf("scan.max_files must be non-negative, got %d", c.Scan.MaxFiles), nil)
	}
	if c.Scan.MaxAbandoned < 0 {
		return cerrors.ConfigError(fmt.Sprintf("scan.max_abandoned must be non-negative, got %d", c.Scan.MaxAbandoned), nil)
	}

	switch strings.ToLower(c.Scan.Extractor) {
	case ExtractorParser, ExtractorPattern:
	default:
		return cerrors.ConfigError(fmt.Sprintf("scan.extractor must be 'parser' or 'pattern', got %s", c.Scan.Extractor), nil)
	}

	switch strings.ToLower(c.Index.HashAlgorithm) {
	case HashSHA256, HashXXH3:
	default:
		return cerrors.ConfigError(fmt.Sprintf("index.hash_algorithm must be 'sha256' or 'xxh3', got %s", c.Index.HashAlgorithm), nil)
	}
	if c.Index.Path == "" {
		return cerrors.ConfigError("index.path must not be empty", nil)
	}

	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return cerrors.ConfigError(fmt.Sprintf("watch.debounce is not a duration: %s", c.Watch.Debounce), err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return cerrors.ConfigError(fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}

	return nil
}

// ParseTimeout returns the per-file deadline as a duration.
func (c *Config) ParseTimeout() time.Duration {
	return time.Duration(c.Scan.ParseTimeoutSeconds) * time.Second
}

// DebounceWindow returns the watch debounce window, falling back to 200ms.
func (c *Config) DebounceWindow() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 200 * time.Millisecond
	}
	return d
}

// ResolvePath resolves p against root unless it is already absolute.
func ResolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// WriteYAML writes the configuration to a YAML file. Each line of header
// is written above the document as a comment.
func (c *Config) WriteYAML(path, header string) error {
	body, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	var data []byte
	if header != "" {
		for _, line := range strings.Split(strings.TrimRight(header, "\n"), "\n") {
			data = append(data, strings.TrimRight("# "+line, " ")...)
			data = append(data, '\n')
		}
		data = append(data, '\n')
	}
	data = append(data, body...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
