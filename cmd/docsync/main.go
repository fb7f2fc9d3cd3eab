package main

import (
	"context"
	"fmt"
	"os"

	"github.com/northgate-labs/docsync/internal/adapters/driven/embedding/azopenai"
	"github.com/northgate-labs/docsync/internal/adapters/driven/extraction"
	"github.com/northgate-labs/docsync/internal/adapters/driven/extraction/docintel"
	"github.com/northgate-labs/docsync/internal/adapters/driven/graph"
	"github.com/northgate-labs/docsync/internal/adapters/driven/index/azsearch"
	"github.com/northgate-labs/docsync/internal/adapters/driven/storage/sqlite"
	"github.com/northgate-labs/docsync/internal/adapters/driven/tokenizer"
	"github.com/northgate-labs/docsync/internal/adapters/driving/cli"
	"github.com/northgate-labs/docsync/internal/adapters/driving/webhook"
	"github.com/northgate-labs/docsync/internal/chunker"
	"github.com/northgate-labs/docsync/internal/config"
	"github.com/northgate-labs/docsync/internal/core/services"
	"github.com/northgate-labs/docsync/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "docsync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer store.Close()

	graphClient, err := graph.NewClient(ctx, graph.Config{
		TenantID:          cfg.Graph.TenantID,
		ClientID:          cfg.Graph.ClientID,
		ClientSecret:      cfg.Graph.ClientSecret,
		RequestsPerSecond: cfg.Graph.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("create graph client: %w", err)
	}
	source := graph.NewContentSource(graphClient)
	permissions := graph.NewPermissionService(graphClient)

	tok, err := tokenizer.New(tokenizer.DefaultEncoding)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	ck := chunker.New(tok,
		chunker.WithChunkTokens(cfg.Chunking.ChunkTokens),
		chunker.WithOverlapTokens(cfg.Chunking.OverlapTokens),
	)

	var extractorOpts []extraction.Option
	if cfg.OCR.Endpoint != "" {
		ocr, err := docintel.NewClient(docintel.Config{
			Endpoint: cfg.OCR.Endpoint,
			APIKey:   cfg.OCR.APIKey,
		})
		if err != nil {
			return fmt.Errorf("create ocr client: %w", err)
		}
		extractorOpts = append(extractorOpts, extraction.WithOCR(ocr))
	}
	extractor := extraction.New(log, extractorOpts...)

	embedder, err := azopenai.NewEmbeddingService(azopenai.Config{
		Endpoint:   cfg.Embedding.Endpoint,
		APIKey:     cfg.Embedding.APIKey,
		Deployment: cfg.Embedding.Deployment,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("create embedding service: %w", err)
	}

	index, err := azsearch.NewStore(azsearch.Config{
		Endpoint:  cfg.Search.Endpoint,
		APIKey:    cfg.Search.APIKey,
		IndexName: cfg.Search.IndexName,
	})
	if err != nil {
		return fmt.Errorf("create index store: %w", err)
	}

	reconciler := services.NewChunkReconciler(index, log)
	acl := services.NewACLResolver(permissions, log)
	pipeline := services.NewDocumentPipeline(source, extractor, ck, acl, embedder, reconciler, log)
	syncOrch := services.NewDeltaSyncOrchestrator(cfg.Collections, source, store.CursorStore(), pipeline, log)
	scheduler := services.NewScheduler(cfg.SyncInterval, syncOrch, log)

	handler := webhook.NewHandler(pipeline, syncOrch, cfg.WebhookClientState, log)
	server := webhook.NewServer(cfg.ListenAddr, handler, log)

	cli.Initialize(cli.Services{
		Sync:      syncOrch,
		Pipeline:  pipeline,
		ACL:       acl,
		Server:    server,
		Scheduler: scheduler,
	})

	return cli.Execute()
}
