package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for vestige.
type Config struct {
	// Walk controls file discovery
	Walk WalkConfig `koanf:"walk"`

	// Liveness controls call-graph classification inputs
	Liveness LivenessConfig `koanf:"liveness"`

	// Quality thresholds
	Quality QualityConfig `koanf:"quality"`

	// Graph settings
	Graph GraphConfig `koanf:"graph"`

	// Simulate settings
	Simulate SimulateConfig `koanf:"simulate"`

	// Cache settings
	Cache CacheConfig `koanf:"cache"`

	// Snapshot settings
	Snapshots SnapshotConfig `koanf:"snapshots"`

	// Watch settings
	Watch WatchConfig `koanf:"watch"`

	// Output settings
	Output OutputConfig `koanf:"output"`
}

// WalkConfig defines file discovery rules.
type WalkConfig struct {
	Patterns   []string `koanf:"patterns"`
	Extensions []string `koanf:"extensions"`
	Dirs       []string `koanf:"dirs"`
	Gitignore  bool     `koanf:"gitignore"`
	ShowHidden bool     `koanf:"show_hidden"`
}

// LivenessConfig supplies the call-graph root set.
type LivenessConfig struct {
	Seeds     []string `koanf:"seeds"`
	TraceFile string   `koanf:"trace_file"`
}

// QualityConfig defines quality thresholds.
type QualityConfig struct {
	ComplexityWarn         int `koanf:"complexity_warn"`
	DuplicateMinStatements int `koanf:"duplicate_min_statements"`
}

// GraphConfig controls dependency-graph presentation.
type GraphConfig struct {
	MinWeight      int `koanf:"min_weight"`
	DirectoryDepth int `koanf:"directory_depth"`
}

// SimulateConfig controls removal simulation.
type SimulateConfig struct {
	MaxDepth int  `koanf:"max_depth"`
	Strict   bool `koanf:"strict"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// SnapshotConfig controls snapshot persistence.
type SnapshotConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	DebounceMS int `koanf:"debounce_ms"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, markdown
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Walk: WalkConfig{
			Patterns: []string{
				"*.min.js",
				"*.min.css",
			},
			Extensions: []string{
				".py", ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".vestige",
				"dist",
				"build",
				"__pycache__",
			},
			Gitignore:  true,
			ShowHidden: false,
		},
		Liveness: LivenessConfig{
			Seeds: []string{},
		},
		Quality: QualityConfig{
			ComplexityWarn:         10,
			DuplicateMinStatements: 3,
		},
		Graph: GraphConfig{
			MinWeight:      0,
			DirectoryDepth: 0,
		},
		Simulate: SimulateConfig{
			MaxDepth: 3,
			Strict:   false,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".vestige/cache",
		},
		Snapshots: SnapshotConfig{
			Enabled: true,
			Dir:     ".vestige/snapshots",
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	// Load the config file
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"vestige.toml",
		"vestige.yaml",
		"vestige.yml",
		"vestige.json",
		".vestige.toml",
		".vestige.yaml",
		".vestige.yml",
		".vestige.json",
	}

	searchDirs := []string{".", ".vestige"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := Load(path)
				if err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}

// SupportsExtension reports whether the walker should hand a file with
// this extension to an analyzer.
func (c *Config) SupportsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.Walk.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	// Check directory exclusions
	for _, dir := range c.Walk.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	// Check pattern exclusions
	base := filepath.Base(path)
	for _, pattern := range c.Walk.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
