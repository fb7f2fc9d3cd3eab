package driven

import "context"

// TextExtractor produces page-marked text from raw document bytes.
//
// The output is one logical string with each page demarcated by a
// literal "--- Page N ---" line, pages joined by blank lines. An empty
// result means no text could be extracted; callers treat that as
// "nothing to index", not an error.
type TextExtractor interface {
	// Extract returns page-marked text for the given content.
	// The filename's extension selects the extraction route.
	Extract(ctx context.Context, content []byte, filename string) (string, error)
}
