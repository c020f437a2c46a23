// Package config provides loading, validation and defaults for the
// imagetools configuration file.
//
// The configuration is a YAML document. Every field is optional; missing
// fields keep their default value.
//
// # Basic Usage
//
//	fsys := billy.NewOSFS("/")
//
//	// Find the file in the XDG config directories, fall back to defaults.
//	cfg, err := config.LoadDefault(fsys)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	policy, _ := cfg.Metadata.StripPolicy()
//
// A minimal file:
//
//	version: 1.0.0
//	convert:
//	  format: jpeg
//	  quality: 80
//	metadata:
//	  policy: [location, camera]
//	output:
//	  dir: ./out
package config

import (
	"log/slog"

	"github.com/eliasnau/imagetools/codec"
	"github.com/eliasnau/imagetools/corners"
	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/pipeline"
	"github.com/eliasnau/imagetools/segments"
)

// SupportedVersion is the configuration format version this package reads.
// Files declaring a version outside ^SupportedVersion are rejected.
const SupportedVersion = "1.0.0"

const (
	// AppName is the directory name under the XDG config directories.
	AppName = "imagetools"

	// FileName is the configuration file name inside AppName.
	FileName = "config.yaml"
)

// Config is the root of the configuration file.
type Config struct {
	Version  string         `yaml:"version"`
	Convert  ConvertConfig  `yaml:"convert"`
	Round    RoundConfig    `yaml:"round"`
	Metadata MetadataConfig `yaml:"metadata"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ConvertConfig holds defaults for the convert tool.
type ConvertConfig struct {
	// Format is the target format as MIME type, extension or name.
	Format  string `yaml:"format"`
	Quality int    `yaml:"quality"`
}

// RoundConfig holds defaults for the round-corners tool.
type RoundConfig struct {
	Radius     int    `yaml:"radius"`
	Background string `yaml:"background"`

	// Format is the target format. Empty keeps the input format.
	Format  string `yaml:"format,omitempty"`
	Quality int    `yaml:"quality"`
}

// MetadataConfig holds defaults for the metadata tool.
type MetadataConfig struct {
	// FallbackQuality is used when a malformed image is re-encoded.
	FallbackQuality int  `yaml:"fallback_quality"`
	Strict          bool `yaml:"strict"`

	// Policy lists the categories removed by default, or ["all"].
	Policy []string `yaml:"policy,omitempty"`

	// Jobs is the number of files stripped concurrently.
	Jobs int `yaml:"jobs"`
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Overwrite bool   `yaml:"overwrite"`
}

// LoggingConfig controls the command line logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: SupportedVersion,
		Convert: ConvertConfig{
			Format:  formats.MIMEPNG,
			Quality: pipeline.DefaultConvertQuality,
		},
		Round: RoundConfig{
			Radius:     corners.DefaultRadius,
			Background: string(corners.BackgroundTransparent),
			Quality:    pipeline.DefaultConvertQuality,
		},
		Metadata: MetadataConfig{
			FallbackQuality: codec.DefaultQuality,
			Jobs:            1,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// StripPolicy resolves Policy to a segments.Policy.
func (m MetadataConfig) StripPolicy() (segments.Policy, error) {
	var p segments.Policy
	for _, name := range m.Policy {
		next, err := segments.ParsePolicyList(name)
		if err != nil {
			return 0, err
		}
		p |= next
	}
	return p, nil
}

// LogLevel resolves Level, defaulting to info.
func (l LoggingConfig) LogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}
