// Package tokenizer provides a tiktoken-backed tokenizer matching the
// encoding used by the embedding models.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/northgate-labs/docsync/internal/core/ports/driven"
)

// DefaultEncoding matches the cl100k_base encoding used by the
// text-embedding-3 model family.
const DefaultEncoding = "cl100k_base"

// Tiktoken wraps a tiktoken encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

var _ driven.Tokenizer = (*Tiktoken)(nil)

// New creates a tokenizer for the named encoding. An empty name uses the
// default.
func New(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Encode converts text to token identifiers.
func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode converts token identifiers back to text.
func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
