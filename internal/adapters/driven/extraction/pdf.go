package extraction

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDFText reads the text layer of every page, prefixing each page
// with its marker. Returns the combined text and the page count.
func extractPDFText(content []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	pages := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A broken page loses its own text only
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- Page %d ---\n\n%s", i, strings.TrimSpace(text))
	}

	return sb.String(), pages, nil
}
