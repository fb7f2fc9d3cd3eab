package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// notificationServer is the webhook server the serve command runs.
type notificationServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// cycleScheduler fires periodic sync cycles while serving.
type cycleScheduler interface {
	Start(ctx context.Context)
	Stop()
}

var (
	webhookServer notificationServer
	syncScheduler cycleScheduler
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and periodic sync",
	Long: `Starts the change-notification webhook server and the periodic
sync scheduler. Runs until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if webhookServer == nil {
		return errors.New("webhook server not configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if syncScheduler != nil {
		syncScheduler.Start(ctx)
		defer syncScheduler.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- webhookServer.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		cmd.Printf("Received %s, shutting down...\n", sig)
	}

	cancel()
	if err := webhookServer.Shutdown(context.Background()); err != nil {
		return err
	}
	return <-errCh
}
