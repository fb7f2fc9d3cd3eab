package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/northgate-labs/docsync/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `Reprocess or purge individual documents in the search index.`,
}

var documentProcessCmd = &cobra.Command{
	Use:   "process [site-id] [drive-id] [item-id]",
	Short: "Run the full pipeline for a single item",
	Args:  cobra.ExactArgs(3),
	RunE:  runDocumentProcess,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Purge a document's chunks from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentCmd.AddCommand(documentProcessCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentProcess(cmd *cobra.Command, args []string) error {
	if documentPipeline == nil {
		return errors.New("document pipeline not configured")
	}

	ref := domain.ItemRef{SiteID: args[0], DriveID: args[1], ItemID: args[2]}
	ctx := context.Background()

	cmd.Printf("Processing document %s...\n", ref.DocumentID())

	if err := documentPipeline.Process(ctx, ref); err != nil {
		return fmt.Errorf("failed to process document: %w", err)
	}

	cmd.Printf("Document %s processed successfully.\n", ref.DocumentID())
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentPipeline == nil {
		return errors.New("document pipeline not configured")
	}

	documentID := args[0]
	ctx := context.Background()

	if err := documentPipeline.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s removed from index.\n", documentID)
	return nil
}
