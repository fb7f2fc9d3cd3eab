// Package cli provides the command-line interface.
//
// Commands run against package-level service handles injected via
// Initialize before Execute is called. Commands fail with a clear
// error when their service is not configured.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/northgate-labs/docsync/internal/core/ports/driving"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	syncOrchestrator driving.SyncOrchestrator
	documentPipeline driving.DocumentPipeline
)

var rootCmd = &cobra.Command{
	Use:   "docsync",
	Short: "Sync documents into a permission-aware search index",
	Long: `docsync keeps a search index in step with document libraries.
It downloads changed documents, extracts and chunks their text, resolves
access permissions, generates embeddings and reconciles the index.`,
	SilenceUsage: true,
}

// Services carries the wired application services the commands run
// against.
type Services struct {
	Sync      driving.SyncOrchestrator
	Pipeline  driving.DocumentPipeline
	ACL       aclService
	Server    notificationServer
	Scheduler cycleScheduler
}

// Initialize injects the application services into the command tree.
func Initialize(svcs Services) {
	syncOrchestrator = svcs.Sync
	documentPipeline = svcs.Pipeline
	aclResolver = svcs.ACL
	webhookServer = svcs.Server
	syncScheduler = svcs.Scheduler
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
