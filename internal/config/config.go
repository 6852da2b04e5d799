package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Config struct {
	StateFormat    string `json:"state_format"` // xml, json or sqlite
	StatePath      string `json:"state_path"`
	JumpCapacity   int    `json:"jump_capacity"`
	SavedFileCount int    `json:"saved_file_count"`
	IdeaMarks      bool   `json:"ideamarks"`
	Verbosity      int    `json:"verbosity"`
}

var defaultConfig = Config{
	StateFormat:    "xml",
	JumpCapacity:   100,
	SavedFileCount: 20,
	Verbosity:      1,
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return defaultConfig
}

func Load(v any) (Config, error) {
	return defaultConfig.Merge(v)
}

// Merge returns c with the fields present in v overwritten. v is any value
// that marshals to a JSON object, such as LSP initialization options.
func (c Config) Merge(v any) (Config, error) {
	cfg := c
	if v == nil {
		return cfg, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	return cfg, nil
}

// LoadFromJSON reads JSON from r into a Config.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := defaultConfig

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile reads the JSON file at path into a Config.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return LoadFromJSON(f)
}

// ResolveStatePath returns StatePath, or a file under the XDG state
// directory named after StateFormat.
func (c Config) ResolveStatePath() (string, error) {
	if c.StatePath != "" {
		return c.StatePath, nil
	}
	dir, err := StateHome("waymark")
	if err != nil {
		return "", err
	}
	name := "marks.xml"
	switch c.StateFormat {
	case "json":
		name = "marks.json"
	case "sqlite":
		name = "marks.db"
	}
	return filepath.Join(dir, name), nil
}

// StateHome returns the XDG state directory for appName, creating it.
func StateHome(appName string) (string, error) {
	xdgStateHome := os.Getenv("XDG_STATE_HOME")
	if xdgStateHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		xdgStateHome = filepath.Join(homeDir, ".local", "state")
	}

	appStateDir := filepath.Join(xdgStateHome, appName)
	if err := os.MkdirAll(appStateDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}

	return appStateDir, nil
}
