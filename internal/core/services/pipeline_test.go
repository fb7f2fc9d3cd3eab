package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northgate-labs/docsync/internal/chunker"
	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
	"github.com/northgate-labs/docsync/internal/logger"
)

// splitTokenizer treats each whitespace-separated word as one token.
type splitTokenizer struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

var _ driven.Tokenizer = (*splitTokenizer)(nil)

func newSplitTokenizer() *splitTokenizer {
	return &splitTokenizer{ids: make(map[string]int)}
}

func (t *splitTokenizer) Encode(text string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	fields := strings.Fields(text)
	out := make([]int, 0, len(fields))
	for _, w := range fields {
		id, ok := t.ids[w]
		if !ok {
			id = len(t.words)
			t.ids[w] = id
			t.words = append(t.words, w)
		}
		out = append(out, id)
	}
	return out
}

func (t *splitTokenizer) Decode(tokens []int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	parts := make([]string, len(tokens))
	for i, id := range tokens {
		parts[i] = t.words[id]
	}
	return strings.Join(parts, " ")
}

// fakeItemSource serves one scripted item.
type fakeItemSource struct {
	meta       *domain.ItemMetadata
	metaErr    error
	content    []byte
	contentErr error

	mu        sync.Mutex
	downloads int
}

var _ driven.ContentSource = (*fakeItemSource)(nil)

func (f *fakeItemSource) GetItem(context.Context, domain.ItemRef) (*domain.ItemMetadata, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeItemSource) GetContent(context.Context, domain.ItemRef) ([]byte, error) {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	return f.content, nil
}

func (f *fakeItemSource) Changes(context.Context, domain.Collection, string) (*domain.ChangePage, error) {
	return &domain.ChangePage{}, nil
}

func (f *fakeItemSource) Close() error { return nil }

// fakeExtractor returns its content as-is, optionally failing.
type fakeExtractor struct {
	text string
	err  error
}

var _ driven.TextExtractor = (*fakeExtractor)(nil)

func (f *fakeExtractor) Extract(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

// fakeEmbedder returns fixed-size zero vectors, preserving order.
type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

var _ driven.EmbeddingService = (*fakeEmbedder)(nil)

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, 3)
		vectors[i][0] = float32(i)
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }
func (f *fakeEmbedder) Close() error    { return nil }

type pipelineFixture struct {
	source   *fakeItemSource
	extract  *fakeExtractor
	perms    *fakePermissions
	embedder *fakeEmbedder
	index    *fakeIndex
	pipeline *DocumentPipeline
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		source: &fakeItemSource{
			meta: &domain.ItemMetadata{
				Name:         "policy.pdf",
				Title:        "Leave Policy",
				WebURL:       "https://example.sharepoint.com/policy.pdf",
				LastModified: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
				CreatedBy:    "HR Team",
				IsFile:       true,
			},
			content: []byte("%PDF-1.7"),
		},
		extract:  &fakeExtractor{text: "--- Page 1 ---\n\n# Leave Policy\n\nFull-time staff accrue 15 days annually."},
		perms:    newFakePermissions(),
		embedder: &fakeEmbedder{},
		index:    newFakeIndex(),
	}
	f.perms.grants = []domain.Grant{{Type: domain.GranteeGroup, GranteeID: "grp-hr"}}

	log := logger.NewNop()
	f.pipeline = NewDocumentPipeline(
		f.source,
		f.extract,
		chunker.New(newSplitTokenizer()),
		NewACLResolver(f.perms, log),
		f.embedder,
		NewChunkReconciler(f.index, log),
		log,
	)
	return f
}

func TestDocumentPipeline_Process_IndexesDocument(t *testing.T) {
	f := newPipelineFixture()

	require.NoError(t, f.pipeline.Process(context.Background(), testRef))

	ids, err := f.index.ChunkIDs(context.Background(), testRef.DocumentID(), 100)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	require.Len(t, f.embedder.batches, 1)
}

func TestDocumentPipeline_Process_ChunksCarryACLAndMetadata(t *testing.T) {
	f := newPipelineFixture()

	// Wrap the index to capture upserted chunks
	var captured []domain.Chunk
	capture := &capturingIndex{fakeIndex: f.index, out: &captured}
	log := logger.NewNop()
	f.pipeline = NewDocumentPipeline(
		f.source, f.extract, chunker.New(newSplitTokenizer()),
		NewACLResolver(f.perms, log), f.embedder,
		NewChunkReconciler(capture, log), log,
	)

	require.NoError(t, f.pipeline.Process(context.Background(), testRef))
	require.NotEmpty(t, captured)

	for _, chunk := range captured {
		assert.Equal(t, testRef.DocumentID(), chunk.DocumentID)
		assert.Equal(t, []string{"grp-hr"}, chunk.AllowedGroups)
		assert.Equal(t, "Leave Policy", chunk.Title)
		assert.Len(t, chunk.Embedding, 3)
		assert.Equal(t, testRef.DocumentID(), chunk.Metadata["document_id"])
		assert.Equal(t, "policy.pdf", chunk.Metadata["filename"])
		assert.Equal(t, "2026-08-01T09:00:00Z", chunk.Metadata["last_modified"])
	}
}

// capturingIndex records upserted chunks for inspection.
type capturingIndex struct {
	*fakeIndex
	out *[]domain.Chunk
}

func (c *capturingIndex) Upsert(ctx context.Context, chunks []domain.Chunk) ([]driven.UpsertResult, error) {
	*c.out = append(*c.out, chunks...)
	return c.fakeIndex.Upsert(ctx, chunks)
}

func TestDocumentPipeline_Process_FolderSkipped(t *testing.T) {
	f := newPipelineFixture()
	f.source.meta = &domain.ItemMetadata{Name: "Reports", IsFile: false}

	require.NoError(t, f.pipeline.Process(context.Background(), testRef))
	assert.Zero(t, f.source.downloads, "folders are never downloaded")
}

func TestDocumentPipeline_Process_UnsupportedTypeSkipped(t *testing.T) {
	f := newPipelineFixture()
	f.source.meta = &domain.ItemMetadata{Name: "budget.xlsx", IsFile: true}

	require.NoError(t, f.pipeline.Process(context.Background(), testRef))
	assert.Zero(t, f.source.downloads)
}

func TestDocumentPipeline_Process_EmptyExtraction_NothingIndexed(t *testing.T) {
	f := newPipelineFixture()
	f.extract.text = "   \n\n  "

	require.NoError(t, f.pipeline.Process(context.Background(), testRef))

	ids, err := f.index.ChunkIDs(context.Background(), testRef.DocumentID(), 100)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDocumentPipeline_Process_EmbeddingError_IndexUntouched(t *testing.T) {
	f := newPipelineFixture()
	f.index.seed(testRef.DocumentID(), "existing")
	f.embedder.err = errors.New("embedding service down")

	require.Error(t, f.pipeline.Process(context.Background(), testRef))

	ids, err := f.index.ChunkIDs(context.Background(), testRef.DocumentID(), 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"existing"}, ids, "failed embedding must not disturb existing records")
}

func TestDocumentPipeline_Process_DownloadError_Propagated(t *testing.T) {
	f := newPipelineFixture()
	f.source.contentErr = errors.New("throttled")

	err := f.pipeline.Process(context.Background(), testRef)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download content")
}

func TestDocumentPipeline_Process_Reprocess_ReplacesChunks(t *testing.T) {
	f := newPipelineFixture()

	require.NoError(t, f.pipeline.Process(context.Background(), testRef))
	first, err := f.index.ChunkIDs(context.Background(), testRef.DocumentID(), 100)
	require.NoError(t, err)

	require.NoError(t, f.pipeline.Process(context.Background(), testRef))
	second, err := f.index.ChunkIDs(context.Background(), testRef.DocumentID(), 100)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for _, id := range first {
		assert.NotContains(t, second, id, "fresh IDs each pass, stale ones removed")
	}
}

func TestDocumentPipeline_Delete_PurgesDocument(t *testing.T) {
	f := newPipelineFixture()
	f.index.seed(testRef.DocumentID(), "c1", "c2")

	require.NoError(t, f.pipeline.Delete(context.Background(), testRef.DocumentID()))

	ids, err := f.index.ChunkIDs(context.Background(), testRef.DocumentID(), 100)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDocumentPipeline_Process_ConcurrentSameDocument_Serializes(t *testing.T) {
	f := newPipelineFixture()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.pipeline.Process(context.Background(), testRef))
		}()
	}
	wg.Wait()

	// The index converges on exactly one pass's chunk set
	ids, err := f.index.ChunkIDs(context.Background(), testRef.DocumentID(), 100)
	require.NoError(t, err)
	assert.NotEmpty(t, ids)

	f.pipeline.mu.Lock()
	assert.Empty(t, f.pipeline.locks, "all per-document locks released")
	f.pipeline.mu.Unlock()
}
