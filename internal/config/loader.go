package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the default configuration file name.
	FileName = "emotewall.yaml"

	// DotEnvFile sits next to the config file and supplies values for
	// variables missing from the process environment.
	DotEnvFile = ".env"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// parses it into a Config struct and applies defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	dotenv, err := readDotEnv(filepath.Join(filepath.Dir(path), DotEnvFile))
	if err != nil {
		return nil, err
	}

	expanded, err := expandEnv(raw, dotenv)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Defaults()

	return &cfg, nil
}

// PathEnv names the environment variable that overrides config discovery.
const PathEnv = "EMOTEWALL_CONFIG"

// ErrNotFound is returned by ResolvePath when no candidate exists.
var ErrNotFound = errors.New("config: no configuration file found")

// ResolvePath finds the config file: $EMOTEWALL_CONFIG if set, otherwise
// the first existing of <user config dir>/emotewall/emotewall.yaml and
// ./emotewall.yaml. On Linux the user config dir is $XDG_CONFIG_HOME or
// ~/.config.
func ResolvePath() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}

	var candidates []string
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "emotewall", FileName))
	}
	candidates = append(candidates, FileName)

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (searched %s)", ErrNotFound, strings.Join(candidates, ", "))
}

// ModuleIDs returns the configured module ids, sorted.
func ModuleIDs(cfg *Config) []string {
	return slices.Sorted(maps.Keys(cfg.Modules))
}

// readDotEnv parses an optional dotenv file. A missing file yields nil.
func readDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return vars, nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} in raw YAML. A variable is
// looked up in the process environment, then in fallback, then its default
// applies. Every variable left unresolved is reported.
func expandEnv(raw []byte, fallback map[string]string) ([]byte, error) {
	lookup := func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		v, ok := fallback[name]
		return v, ok
	}

	var errs []error
	out := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		m := envPattern.FindSubmatch(match)
		name := string(m[1])
		if v, ok := lookup(name); ok {
			return []byte(v)
		}
		if m[2] != nil {
			return m[2]
		}
		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})
	return out, errors.Join(errs...)
}
