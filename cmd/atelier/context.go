package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"atelier/internal/config"
	"atelier/internal/llm"
	"atelier/internal/logging"
	"atelier/internal/store"
	"atelier/internal/stylist"
	"atelier/internal/uploads"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withStore opens the catalogue database for the duration of fn.
func (c *commandContext) withStore(fn func(cfg *config.Config, st *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalogue: %w", err)
	}
	defer st.Close()
	return fn(cfg, st)
}

// logger writes to the command's stderr so stdout stays parseable.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	cfg := c.configValue()
	if cfg == nil {
		return logging.NewWriter(cmd.ErrOrStderr(), "info", "console")
	}
	return logging.NewWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
}

func (c *commandContext) completer(ctx context.Context, cmd *cobra.Command, llmCfg config.LLMConfig) (llm.Completer, error) {
	client, err := llm.New(ctx, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}
	return client.WithLogger(c.logger(cmd)), nil
}

func (c *commandContext) stylistService(cmd *cobra.Command, cfg *config.Config, st *store.Store) (*stylist.Service, error) {
	ctx := cmd.Context()
	describer, err := c.completer(ctx, cmd, cfg.AnalyzeLLM())
	if err != nil {
		return nil, err
	}
	recommender, err := c.completer(ctx, cmd, cfg.StylistLLM())
	if err != nil {
		return nil, err
	}
	return stylist.New(stylist.Options{
		Store:       st,
		Uploads:     uploads.New(cfg.Paths.UploadDir, cfg.Uploads),
		Describer:   describer,
		Recommender: recommender,
		Temperature: cfg.Stylist.Temperature,

		PublicBaseURL: cfg.Paths.PublicBaseURL,
		Logger:        c.logger(cmd),
	}), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
