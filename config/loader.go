package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/fs"
)

// LoadOptions configures the behavior of configuration loading operations.
type LoadOptions struct {
	// SkipValidation disables automatic validation after loading.
	SkipValidation bool
}

// Load reads the configuration at path and validates it. Fields missing from
// the file keep their defaults.
func Load(fsys fs.Filesystem, path string) (*Config, error) {
	return LoadWithOptions(fsys, path, LoadOptions{})
}

// LoadWithOptions is Load with custom options.
func LoadWithOptions(fsys fs.Filesystem, path string, opts LoadOptions) (*Config, error) {
	exists, err := fsys.Exists(path)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInternal, "failed to check configuration file",
			map[string]interface{}{"path": path})
	}
	if !exists {
		return nil, errors.Newf(errors.CodeNotFound, "configuration file %s does not exist", path).
			WithOp("config.Load")
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInternal, "failed to read configuration",
			map[string]interface{}{"path": path})
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig, "failed to parse configuration",
			map[string]interface{}{"path": path})
	}

	if !opts.SkipValidation {
		if err := cfg.Validate(); err != nil {
			return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig, "invalid configuration",
				map[string]interface{}{"path": path})
		}
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults. Unknown keys are an error.
// An empty document yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// SearchPaths returns the candidate configuration files in priority order:
// the XDG config home first, then each XDG config dir.
func SearchPaths() []string {
	dirs := append([]string{xdg.ConfigHome}, xdg.ConfigDirs...)
	paths := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		paths = append(paths, filepath.Join(dir, AppName, FileName))
	}
	return paths
}

// DefaultPath is where a new configuration file is written.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, FileName)
}

// Discover returns the first of paths that exists on fsys, or "" when none
// does. Without paths SearchPaths is used.
func Discover(fsys fs.Filesystem, paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = SearchPaths()
	}
	for _, p := range paths {
		ok, err := fsys.Exists(p)
		if err != nil {
			return "", errors.WrapWithContext(err, errors.CodeInternal, "failed to search configuration",
				map[string]interface{}{"path": p})
		}
		if ok {
			return p, nil
		}
	}
	return "", nil
}

// LoadDefault loads the first configuration file found by Discover, or
// returns Default when there is none.
func LoadDefault(fsys fs.Filesystem, paths ...string) (*Config, error) {
	path, err := Discover(fsys, paths...)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}
	return Load(fsys, path)
}

// Save writes cfg as YAML to path, creating the parent directory.
func Save(fsys fs.Filesystem, path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode configuration")
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithContext(err, errors.CodeInternal, "failed to create configuration directory",
			map[string]interface{}{"path": path})
	}
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithContext(err, errors.CodeInternal, "failed to write configuration",
			map[string]interface{}{"path": path})
	}
	return nil
}
