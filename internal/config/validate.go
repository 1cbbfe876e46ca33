package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
//
// Missing API keys are not validation errors: the catalogue works without an
// LLM (descriptions fall back to a fixed string) and `atelier check` reports
// absent credentials separately.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateStylist(); err != nil {
		return err
	}
	if err := c.validateForge(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider must be one of openai, anthropic, gemini (got %q)", c.LLM.Provider)
	}
	if c.LLM.Provider == ProviderOpenAI && strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url must be set for the openai provider")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

func (c *Config) validateStylist() error {
	if c.Stylist.Temperature < 0 || c.Stylist.Temperature > 2 {
		return errors.New("stylist.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateForge() error {
	if c.Forge.MaxIterations < 1 {
		return errors.New("forge.max_iterations must be >= 1")
	}
	if c.Forge.Variants < 1 {
		return errors.New("forge.variants must be >= 1")
	}
	if c.Forge.GeneratorTemperature < 0 || c.Forge.GeneratorTemperature > 2 {
		return errors.New("forge.generator_temperature must be between 0 and 2")
	}
	if c.Forge.ReviewerTemperature < 0 || c.Forge.ReviewerTemperature > 2 {
		return errors.New("forge.reviewer_temperature must be between 0 and 2")
	}
	if c.Forge.ConvergenceSimilarity <= 0 || c.Forge.ConvergenceSimilarity > 1 {
		return errors.New("forge.convergence_similarity must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}
