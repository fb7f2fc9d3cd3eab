package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations batch internally and retry transient failures with
// backoff; callers see either a complete, order-preserving result or an
// error after retries are exhausted.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The returned slice preserves input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 1536).
	Dimensions() int

	// Close releases resources.
	Close() error
}
