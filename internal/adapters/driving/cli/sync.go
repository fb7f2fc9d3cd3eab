package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/northgate-labs/docsync/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync [collection-id]",
	Short: "Synchronise documents from watched collections",
	Long: `Triggers a delta-sync cycle against the watched collections.
If a collection ID is provided, only that collection is synchronised.
Otherwise, all collections are synchronised.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	ctx := context.Background()

	if len(args) > 0 {
		collectionID := args[0]
		cmd.Printf("Synchronising collection: %s...\n", collectionID)

		if err := syncWithProgress(ctx, cmd, syncOrchestrator, collectionID); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		cmd.Printf("Collection %s synchronised successfully.\n", collectionID)
	} else {
		cmd.Println("Synchronising all collections...")

		if err := syncOrchestrator.SyncAll(ctx); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		cmd.Println("All collections synchronised successfully.")
	}

	return nil
}

// syncWithProgress runs sync while displaying progress updates.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	collectionID string,
) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- syncOrch.Sync(ctx, collectionID)
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case err := <-errCh:
			// Print final status (ignore status error - best effort)
			status, statusErr := syncOrch.Status(ctx, collectionID)
			if statusErr == nil && status != nil && status.ItemsProcessed > 0 {
				cmd.Printf("\rProcessed %d items (%d errors)\n",
					status.ItemsProcessed, status.ErrorCount)
			}
			return err
		case <-ticker.C:
			// Check progress (ignore status error - best effort)
			status, statusErr := syncOrch.Status(ctx, collectionID)
			if statusErr == nil && status != nil && status.ItemsProcessed > lastCount {
				cmd.Printf("\rProcessing... %d items", status.ItemsProcessed)
				lastCount = status.ItemsProcessed
			}
		}
	}
}
