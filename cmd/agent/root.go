package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/videostack/storyboard-agent/internal/api"
	"github.com/videostack/storyboard-agent/internal/cloud"
	"github.com/videostack/storyboard-agent/internal/config"
	"github.com/videostack/storyboard-agent/internal/db"
	"github.com/videostack/storyboard-agent/internal/logging"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	serve := newServeCommand(ctx)

	rootCmd := &cobra.Command{
		Use:           "storyboard-agent",
		Short:         "Local storyboard editing agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newConceptsCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.EnvConfig
	configErr  error
	logger     *slog.Logger
}

func (c *commandContext) ensureConfig() (*config.EnvConfig, error) {
	c.configOnce.Do(func() {
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			if err := os.Setenv(config.EnvConfigFile, path); err != nil {
				c.configErr = err
				return
			}
		}
		cfg, err := config.New()
		if err != nil {
			c.configErr = fmt.Errorf("failed to load config: %w", err)
			return
		}
		if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
			c.configErr = fmt.Errorf("failed to create data dir: %w", err)
			return
		}
		c.config = cfg
		c.logger = logging.NewLoggerTo(os.Stderr, cfg.LogLevel())
	})
	return c.config, c.configErr
}

func (c *commandContext) openDB() (*db.DB, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	database, err := db.New(cfg.DBPath(), c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return database, nil
}

// remote returns the HTTP client, or the in-memory remote when offline or
// when no API token is configured.
func (c *commandContext) remote() (cloud.Client, bool, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, false, err
	}
	if cfg.Offline() || cfg.APIToken() == "" {
		return cloud.NewMemoryClient(c.logger), true, nil
	}
	return cloud.NewHTTPClient(cfg.APIBaseURL(), cfg.APIToken(), cfg.RequestTimeout(), c.logger), false, nil
}

func ensureAuthToken(ctx context.Context, database *db.DB) (string, error) {
	existing, err := database.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := database.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}
	return token, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agent version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "storyboard-agent", Version)
			return nil
		},
	}
}
