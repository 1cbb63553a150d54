package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iudanet/gennotes/internal/crypto"
	"github.com/iudanet/gennotes/internal/logging"
	"github.com/iudanet/gennotes/internal/server"
	"github.com/iudanet/gennotes/internal/server/config"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gennotes-server",
		Short:         "GenNotes sync server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("GenNotes Server\nVersion:    %s\nBuild Date: %s\nGit Commit: %s\n", Version, BuildDate, GitCommit))

	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Output: os.Stderr,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	// Без секрета токены не переживут перезапуск
	if cfg.JWTSecret == "" {
		secret, err := crypto.GenerateSecretBase64()
		if err != nil {
			return fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		cfg.JWTSecret = secret
		logger.Warn("No JWT secret configured, using a random one; issued tokens expire on restart",
			"env", config.EnvPrefix+"_JWT_SECRET")
	}

	srv, err := server.New(ctx, *cfg, logger, Version)
	if err != nil {
		logger.Error("Failed to initialize server", "error", err)
		return err
	}

	logger.Info("GenNotes server starting", "version", Version, "addr", cfg.Addr, "db", cfg.DBPath)
	return srv.Run(ctx)
}
