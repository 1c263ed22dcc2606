package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the name searched for in the working and home
// directories.
const DefaultConfigFile = ".wsspider"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFile is returned when the file parses but its
	// defaults or sites are unusable.
	ErrInvalidConfigFile = errors.New("invalid configuration file")
)

// LoadConfigFile reads and validates a .wsspider file. A missing file
// yields ErrConfigNotFound; every other error names the path.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cf := &File{}
	if err := yaml.Unmarshal(data, cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf, nil
}

// Validate checks the defaults and every site entry. Site keys are bare
// hosts as they appear in the base URL, e.g. "fofa.info".
func (cf *File) Validate() error {
	if err := cf.Defaults.validate(); err != nil {
		return fmt.Errorf("%w: defaults: %w", ErrInvalidConfigFile, err)
	}
	for host, site := range cf.Sites {
		if host == "" || strings.Contains(host, "/") {
			return fmt.Errorf("%w: site %q: key must be a host name", ErrInvalidConfigFile, host)
		}
		if err := site.validate(); err != nil {
			return fmt.Errorf("%w: site %q: %w", ErrInvalidConfigFile, host, err)
		}
	}
	return nil
}

func (s SiteConfig) validate() error {
	if s.Pages < 0 {
		return ErrInvalidPages
	}
	if s.PageSize < 0 {
		return ErrInvalidPageSize
	}
	for name := range s.Headers {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " :\r\n") {
			return fmt.Errorf("bad header name %q", name)
		}
	}
	return nil
}

// FindConfigFile returns the file to load: configPath when given and
// present, else .wsspider in the working directory, else in the home
// directory. It returns "" when none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	for _, dir := range dirs {
		if p := filepath.Join(dir, DefaultConfigFile); fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
