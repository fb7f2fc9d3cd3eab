package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/northgate-labs/docsync/internal/chunker"
	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
	"github.com/northgate-labs/docsync/internal/core/ports/driving"
	"github.com/northgate-labs/docsync/internal/logger"
)

// docLock is a refcounted per-document mutex so concurrent triggers for
// the same document serialize while distinct documents proceed in
// parallel.
type docLock struct {
	mu   sync.Mutex
	refs int
}

// DocumentPipeline runs one document end to end: fetch metadata,
// download, extract, resolve ACLs, chunk, embed, reconcile the index.
type DocumentPipeline struct {
	source     driven.ContentSource
	extractor  driven.TextExtractor
	chunker    *chunker.Chunker
	acl        *ACLResolver
	embedder   driven.EmbeddingService
	reconciler *ChunkReconciler
	log        *logger.Logger

	mu    sync.Mutex
	locks map[string]*docLock
}

var _ driving.DocumentPipeline = (*DocumentPipeline)(nil)

// NewDocumentPipeline wires the pipeline from its collaborators.
func NewDocumentPipeline(
	source driven.ContentSource,
	extractor driven.TextExtractor,
	ck *chunker.Chunker,
	acl *ACLResolver,
	embedder driven.EmbeddingService,
	reconciler *ChunkReconciler,
	log *logger.Logger,
) *DocumentPipeline {
	return &DocumentPipeline{
		source:     source,
		extractor:  extractor,
		chunker:    ck,
		acl:        acl,
		embedder:   embedder,
		reconciler: reconciler,
		log:        log.With("service", "pipeline"),
		locks:      make(map[string]*docLock),
	}
}

// Process runs the full pipeline for one item.
//
// Skips are silent successes: folders, unsupported file types, and
// documents yielding no text all return nil so the change feed keeps
// moving. Concurrent calls for the same document serialize; the last
// writer wins and the index converges on the final state.
func (p *DocumentPipeline) Process(ctx context.Context, ref domain.ItemRef) error {
	docID := ref.DocumentID()
	unlock := p.acquire(docID)
	defer unlock()

	log := p.log.With("document_id", docID)

	meta, err := p.source.GetItem(ctx, ref)
	if err != nil {
		return fmt.Errorf("fetch item metadata: %w", err)
	}
	if !meta.IsFile {
		log.Debug("skipping non-file item")
		return nil
	}
	if !supportedFilename(meta.Name) {
		log.Info("skipping unsupported file type", "filename", meta.Name)
		return nil
	}

	content, err := p.source.GetContent(ctx, ref)
	if err != nil {
		return fmt.Errorf("download content: %w", err)
	}

	text, err := p.extractor.Extract(ctx, content, meta.Name)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("no text extracted, nothing to index", "filename", meta.Name)
		return nil
	}

	groups := p.acl.AllowedGroups(ctx, ref)

	title := meta.Title
	if title == "" {
		title = meta.Name
	}

	metadata := map[string]any{
		"document_id": docID,
		"site_id":     ref.SiteID,
		"drive_id":    ref.DriveID,
		"item_id":     ref.ItemID,
		"filename":    meta.Name,
		"web_url":     meta.WebURL,
		"created_by":  meta.CreatedBy,
	}
	if !meta.LastModified.IsZero() {
		metadata["last_modified"] = meta.LastModified.Format(time.RFC3339)
	}

	chunks := p.chunker.Chunk(text, title, metadata)
	if len(chunks) == 0 {
		log.Warn("chunker produced no chunks", "filename", meta.Name)
		return nil
	}
	for i := range chunks {
		chunks[i].DocumentID = docID
		chunks[i].AllowedGroups = groups
	}

	// Capture the live chunk set before upserting so reconciliation can
	// tell stale records from the ones just written.
	previous, err := p.reconciler.PreviousIDs(ctx, docID)
	if err != nil {
		return fmt.Errorf("list previous chunks: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	if err := p.reconciler.Reconcile(ctx, docID, previous, chunks); err != nil {
		return fmt.Errorf("reconcile index: %w", err)
	}

	log.Info("document indexed",
		"filename", meta.Name,
		"chunks", len(chunks),
		"groups", len(groups),
	)
	return nil
}

// Delete purges every index record belonging to the document. It takes
// the same per-document lock as Process so a deletion cannot interleave
// with a reprocess of the same item.
func (p *DocumentPipeline) Delete(ctx context.Context, documentID string) error {
	unlock := p.acquire(documentID)
	defer unlock()

	return p.reconciler.DeleteDocument(ctx, documentID)
}

// acquire locks the document's mutex, creating it on first use and
// dropping it once the last holder releases.
func (p *DocumentPipeline) acquire(documentID string) func() {
	p.mu.Lock()
	lock, ok := p.locks[documentID]
	if !ok {
		lock = &docLock{}
		p.locks[documentID] = lock
	}
	lock.refs++
	p.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		p.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(p.locks, documentID)
		}
		p.mu.Unlock()
	}
}

// supportedFilename reports whether the extraction layer can handle the
// file. Everything else is skipped rather than indexed as garbage.
func supportedFilename(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx", ".txt", ".md":
		return true
	}
	return false
}
