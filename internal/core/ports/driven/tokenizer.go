package driven

// Tokenizer converts text to and from token sequences for the
// token-budget chunker. Implementations must round-trip: decoding an
// encoded sequence yields the original text.
type Tokenizer interface {
	// Encode converts text into a token sequence.
	Encode(text string) []int

	// Decode converts a token sequence back into text.
	Decode(tokens []int) string
}
