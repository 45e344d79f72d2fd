package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file configuration.
const (
	EnvGistToken   = "HARBOR_GIST_TOKEN"
	EnvDatabaseURL = "HARBOR_DATABASE_URL"
	EnvGistAPIURL  = "HARBOR_GIST_API_URL"
	EnvWebPort     = "HARBOR_WEB_PORT"
)

// Config holds application configuration.
type Config struct {
	// GistAPIURL is the base URL of the Gist REST API. Point it at a GitHub
	// Enterprise host or a test server.
	GistAPIURL string `json:"gist_api_url,omitempty" yaml:"gist_api_url,omitempty"`

	// GistToken comes from the environment only; it is never read from or
	// written to config files.
	GistToken string `json:"-" yaml:"-"`

	// DatabaseURL selects the Postgres store when set. Empty means the local
	// SQLite database under the base directory.
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`

	// WebBind and WebPort are the listen address for `harbor serve`.
	WebBind string `json:"web_bind,omitempty" yaml:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty" yaml:"web_port,omitempty"`

	// AllowedPaths is an allowlist of directories for archive export.
	// Paths outside ~/.harbor/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty" yaml:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use the driver default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" yaml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" yaml:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "workspace", "file", "folder", "node", "preview", "archive", "gist".
	DisabledTypes []string `json:"disabled_types,omitempty" yaml:"disabled_types,omitempty"`

	// MaxPreviewHandles bounds the number of live preview documents.
	MaxPreviewHandles int `json:"max_preview_handles,omitempty" yaml:"max_preview_handles,omitempty"`

	// EditorDefaults overrides the built-in editor settings used for a new
	// workspace and for fields missing from a stored one.
	EditorDefaults map[string]any `json:"editor_defaults,omitempty" yaml:"editor_defaults,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		GistAPIURL:        "https://api.github.com",
		WebBind:           "127.0.0.1",
		WebPort:           7777,
		MaxPreviewHandles: 16,
	}
}

// Load loads configuration from baseDir/config.json, falling back to
// baseDir/config.yaml. Returns default config if neither exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.harbor.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadDirRaw(baseDir)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// LoadWithRepo loads configuration from both global (~/.harbor) and repo (.harbor) directories.
// Repo config is found by walking upward from startDir to find the nearest .harbor/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadDirRaw(globalDir)
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest
// .harbor/config.json or .harbor/config.yaml.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		for _, name := range []string{"config.json", "config.yaml"} {
			configPath := filepath.Join(dir, ".harbor", name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadDotEnv loads baseDir/.env into the process environment. Variables
// already set are kept. A missing file is not an error.
func LoadDotEnv(baseDir string) error {
	path := filepath.Join(baseDir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. getenv is os.Getenv in
// production.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvGistToken)); v != "" {
		cfg.GistToken = v
	}
	if v := strings.TrimSpace(getenv(EnvDatabaseURL)); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvGistAPIURL)); v != "" {
		cfg.GistAPIURL = v
	}
	if v := strings.TrimSpace(getenv(EnvWebPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s: invalid port %q", EnvWebPort, v)
		}
		cfg.WebPort = port
	}
	return nil
}

func loadDirRaw(dir string) (*Config, error) {
	jsonPath := filepath.Join(dir, "config.json")
	if _, err := os.Stat(jsonPath); err == nil {
		return loadFileRaw(jsonPath)
	}
	return loadFileRaw(filepath.Join(dir, "config.yaml"))
}

// loadFileRaw loads configuration from a specific file path, decoding YAML
// for .yaml/.yml files and JSON otherwise.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}
	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated;
// editor defaults are merged key by key.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.GistAPIURL = firstString(overlay.GistAPIURL, base.GistAPIURL)
	result.GistToken = firstString(overlay.GistToken, base.GistToken)
	result.DatabaseURL = firstString(overlay.DatabaseURL, base.DatabaseURL)
	result.WebBind = firstString(overlay.WebBind, base.WebBind)
	result.WebPort = firstInt(overlay.WebPort, base.WebPort)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.MaxPreviewHandles = firstInt(overlay.MaxPreviewHandles, base.MaxPreviewHandles)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	if len(base.EditorDefaults)+len(overlay.EditorDefaults) > 0 {
		result.EditorDefaults = make(map[string]any, len(base.EditorDefaults)+len(overlay.EditorDefaults))
		for k, v := range base.EditorDefaults {
			result.EditorDefaults[k] = v
		}
		for k, v := range overlay.EditorDefaults {
			result.EditorDefaults[k] = v
		}
	}

	return result
}

func firstString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// mergeStringSlice appends b to a, trimming entries and dropping blanks and
// repeats. It returns nil when nothing is left.
func mergeStringSlice(a, b []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range append(append([]string(nil), a...), b...) {
		if s = strings.TrimSpace(s); s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
