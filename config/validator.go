package config

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/eliasnau/imagetools/corners"
	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/formats"
)

// IsCompatible checks if a declared configuration version is compatible
// with SupportedVersion using a caret constraint.
//
// Returns false (with no error) if versions are incompatible and an error
// if the version string is invalid.
func IsCompatible(version string) (bool, error) {
	constraint, err := semver.NewConstraint("^" + SupportedVersion)
	if err != nil {
		return false, fmt.Errorf("invalid supported version: %w", err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", version, err)
	}
	return constraint.Check(v), nil
}

// Validate checks every field and reports all problems in one error.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New(errors.CodeInvalidInput, "configuration is nil")
	}

	var problems []string
	add := func(err error) {
		if err != nil {
			problems = append(problems, err.Error())
		}
	}

	add(validateVersion(c.Version))
	add(validateFormat("convert.format", c.Convert.Format, false))
	add(validateQuality("convert.quality", c.Convert.Quality))
	add(validateFormat("round.format", c.Round.Format, true))
	add(validateQuality("round.quality", c.Round.Quality))
	if c.Round.Radius < 0 {
		problems = append(problems, fmt.Sprintf("round.radius must not be negative, got %d", c.Round.Radius))
	}
	if _, err := corners.ParseBackground(c.Round.Background); err != nil {
		problems = append(problems, "round.background: "+err.Error())
	}
	add(validateQuality("metadata.fallback_quality", c.Metadata.FallbackQuality))
	if _, err := c.Metadata.StripPolicy(); err != nil {
		problems = append(problems, "metadata.policy: "+err.Error())
	}
	if c.Metadata.Jobs < 1 {
		problems = append(problems, fmt.Sprintf("metadata.jobs must be at least 1, got %d", c.Metadata.Jobs))
	}
	if _, err := c.Logging.LogLevel(); err != nil {
		problems = append(problems, "logging.level: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(
			errors.CodeInvalidConfig,
			fmt.Sprintf("configuration validation failed: %s", strings.Join(problems, "; ")),
		)
	}
	return nil
}

func validateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version is required")
	}
	ok, err := IsCompatible(version)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("version %s is not compatible with %s", version, SupportedVersion)
	}
	return nil
}

func validateFormat(field, value string, optional bool) error {
	if value == "" {
		if optional {
			return nil
		}
		return fmt.Errorf("%s is required", field)
	}
	if _, err := formats.ParseOutput(value); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

func validateQuality(field string, q int) error {
	if q < 1 || q > 100 {
		return fmt.Errorf("%s must be within 1..100, got %d", field, q)
	}
	return nil
}
