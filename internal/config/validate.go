package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate ensures the configuration is usable. Structural problems such as
// unknown provider names or an unknown default mode fail fast here rather
// than per request.
func (c *Config) Validate() error {
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateListen(); err != nil {
		return err
	}
	if err := c.validateDescriptors(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProviders() error {
	if len(c.Discovery.Providers) == 0 {
		return errors.New("discovery.providers must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Discovery.Providers))
	for _, name := range c.Discovery.Providers {
		if !slices.Contains(KnownProviders, name) {
			return fmt.Errorf("discovery.providers: unknown provider %q (known: %v)", name, KnownProviders)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("discovery.providers: duplicate provider %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateListen() error {
	if !slices.Contains(KnownModes, c.Listen.DefaultMode) {
		return fmt.Errorf("listen.default_mode: unknown mode %q (known: %v)", c.Listen.DefaultMode, KnownModes)
	}
	return nil
}

func (c *Config) validateDescriptors() error {
	if c.Descriptors.MinConfidence < 0 || c.Descriptors.MinConfidence > 1 {
		return errors.New("descriptors.min_confidence must be between 0 and 1")
	}
	return nil
}
