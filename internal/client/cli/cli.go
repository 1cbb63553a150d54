// Package cli команды клиента GenNotes
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iudanet/gennotes/internal/client/api"
	"github.com/iudanet/gennotes/internal/client/auth"
	"github.com/iudanet/gennotes/internal/client/config"
	"github.com/iudanet/gennotes/internal/client/conflict"
	"github.com/iudanet/gennotes/internal/client/iocli"
	"github.com/iudanet/gennotes/internal/client/notes"
	"github.com/iudanet/gennotes/internal/client/queue"
	"github.com/iudanet/gennotes/internal/client/storage/boltdb"
	syncpkg "github.com/iudanet/gennotes/internal/client/sync"
	"github.com/iudanet/gennotes/internal/client/worker"
	"github.com/iudanet/gennotes/internal/logging"
)

// Cli состояние одного запуска клиента.
// Хранилище и сервисы создаются в PersistentPreRunE и закрываются после команды.
type Cli struct {
	io       iocli.IO
	stderr   io.Writer
	cfg      *config.Config
	logger   *slog.Logger
	closer   io.Closer
	store    *boltdb.Storage
	client   *api.Client
	auth     *auth.Service
	notes    *notes.Service
	executor *syncpkg.Executor
	resolver *conflict.Resolver
	signal   *worker.SignalFile
	version  string
}

// New создает CLI; stderr получает журнал команд
func New(cio iocli.IO, stderr io.Writer, version string) *Cli {
	return &Cli{io: cio, stderr: stderr, version: version}
}

// NewRootCommand собирает дерево команд
func (c *Cli) NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gennotes",
		Short:         "Offline-first notes client",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context(), cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.Close()
		},
	}
	root.SetOut(c.io)
	root.SetErr(c.stderr)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		c.newRegisterCommand(),
		c.newLoginCommand(),
		c.newLogoutCommand(),
		c.newStatusCommand(),
		c.newNoteCommand(),
		c.newSyncCommand(),
		c.newConflictsCommand(),
		c.newDaemonCommand(),
	)
	return root
}

// Execute запускает команду и печатает ошибку в stderr
func (c *Cli) Execute(ctx context.Context, args []string) error {
	root := c.NewRootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "Error: %v\n", err)
		// PersistentPostRunE не вызывается после ошибки команды
		_ = c.Close()
	}
	return err
}

func (c *Cli) open(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}
	c.cfg = cfg

	opts := logging.Options{Level: commandLogLevel(cfg.LogLevel), Output: c.stderr}
	if cmd.Name() == daemonCommandName {
		opts.Level = cfg.LogLevel
		opts.File = cfg.LogFile
	}
	logger, closer, err := logging.New(opts)
	if err != nil {
		return err
	}
	c.logger = logger
	c.closer = closer

	store, err := boltdb.New(ctx, cfg.DBPath, boltdb.Options{})
	if err != nil {
		return fmt.Errorf("failed to open local database: %w", err)
	}
	c.store = store

	c.client = api.NewClient(cfg.ServerURL)
	c.auth = auth.NewService(c.client, store, logger)
	c.notes = notes.NewService(store, queue.NewWriter(store, logger), c.client, logger)
	c.executor = syncpkg.NewExecutor(c.client, store, logger)
	c.resolver = conflict.NewResolver(c.client, store, logger)
	c.signal = worker.NewSignalFile(cfg.DataDir)
	return nil
}

// Close releases the local database and the log file
func (c *Cli) Close() error {
	var errs []error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close local database: %w", err))
		}
		c.store = nil
	}
	if c.closer != nil {
		if err := c.closer.Close(); err != nil {
			errs = append(errs, err)
		}
		c.closer = nil
	}
	return errors.Join(errs...)
}

// commandLogLevel для интерактивных команд журнал тише: info сообщения сервисов дублируют вывод
func commandLogLevel(level string) string {
	if level == "info" {
		return "warn"
	}
	return level
}

// Main точка входа бинарника клиента
func Main(ctx context.Context, version string) int {
	c := New(iocli.NewStdio(), os.Stderr, version)
	if err := c.Execute(ctx, os.Args[1:]); err != nil {
		return 1
	}
	return 0
}
