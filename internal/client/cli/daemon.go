package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/iudanet/gennotes/internal/client/connectivity"
	"github.com/iudanet/gennotes/internal/client/push"
	"github.com/iudanet/gennotes/internal/client/trigger"
	"github.com/iudanet/gennotes/internal/client/worker"
)

const (
	daemonCommandName = "daemon"

	// Теги фоновых регистраций
	OneOffSyncTag   = "sync-notes"
	PeriodicSyncTag = "periodic-sync-notes"
)

func (c *Cli) newDaemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   daemonCommandName,
		Short: "Keep syncing in the background until interrupted",
		Long: "Watches connectivity, listens for push messages and scheduled triggers, " +
			"and replays the sync queue whenever one of them fires. " +
			"'gennotes sync' run from another terminal wakes the daemon as well.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDaemon(cmd.Context())
		},
	}
}

func (c *Cli) runDaemon(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := c.logger.With("component", "daemon")

	monitor := connectivity.NewMonitor(c.client, c.cfg.OnlineCheckInterval, logger)
	listener := push.NewListener(c.client, c.store, logger)
	defer listener.Close()

	registrar := trigger.NewRegistrar(trigger.Options{
		Online:  monitor.Online,
		Push:    listener,
		Enabled: c.cfg.Background,
	}, logger)
	registrar.Start()
	defer registrar.Stop()

	signals, err := c.signal.Watch(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to watch sync requests: %w", err)
	}

	forward := make(chan struct{}, 1)
	foreground := worker.NewForeground(c.executor, worker.ForegroundOptions{
		Changes:  monitor.Subscribe(),
		Signals:  signals,
		Forward:  forward,
		OnOnline: registrar.ConnectivityRegained,
	}, logger)
	background := worker.NewBackground(c.executor, worker.BackgroundOptions{
		Events:   registrar.Events(),
		Pushes:   listener.Messages(),
		SyncNow:  forward,
		Notifier: worker.NewWriterNotifier(c.io),
	}, logger)

	// Первая проверка связи до регистрации: one-off срабатывает сразу только online
	monitor.Check(ctx)

	c.registerTriggers(ctx, registrar)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(3)
	go func() {
		defer wg.Done()
		monitor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		errs <- foreground.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		errs <- background.Run(ctx)
	}()

	c.io.Printf("%s Daemon started, server %s\n", okMark(), c.cfg.ServerURL)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	c.io.Println("Daemon stopped")
	return nil
}

// registerTriggers регистрирует фоновые триггеры; при отказе остается синхронизация
// по восстановлению связи
func (c *Cli) registerTriggers(ctx context.Context, registrar *trigger.Registrar) {
	periodic := c.cfg.PeriodicSync > 0 && registrar.RegisterPeriodic(PeriodicSyncTag, c.cfg.PeriodicSync)
	oneOff := registrar.RegisterOneOff(OneOffSyncTag)
	pushed := registrar.EnsurePushSubscription(ctx)

	c.logger.Info("Background triggers registered",
		"periodic", periodic,
		"one_off", oneOff,
		"push", pushed)

	if !periodic && !oneOff {
		c.io.Println(yellow("Background sync unavailable, syncing on reconnect only"))
	}
}
