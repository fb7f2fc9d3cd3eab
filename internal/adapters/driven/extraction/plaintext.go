package extraction

import (
	"strings"
	"unicode/utf8"
)

// extractPlainText decodes bytes as UTF-8, dropping invalid sequences.
// Used for text-like files that need no parsing.
func extractPlainText(content []byte) string {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return "--- Page 1 ---\n\n" + text
}
