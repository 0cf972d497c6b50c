package ollama

import (
	"strings"

	"github.com/mpetrenko/taxmate/internal/core/ports"
)

func buildStatePrompt(req ports.StateClassifierRequest) string {
	const maxSnippet = 4000
	snippet := req.FullText
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	var sb strings.Builder
	sb.WriteString(`You determine the US state of residence for the person a tax document belongs to.
Return strict JSON object with keys:
state (two-letter USPS code, or empty string if undeterminable), confidence (number from 0 to 1), reasoning (short string).
No markdown, no extra keys.

`)
	if len(req.Addresses) > 0 {
		sb.WriteString("Addresses found on the document, most relevant first:\n")
		for _, addr := range req.Addresses {
			sb.WriteString("- " + addr + "\n")
		}
		sb.WriteString("\n")
	}
	if snippet != "" {
		sb.WriteString("Document text:\n")
		sb.WriteString(snippet)
		sb.WriteString("\n")
	}
	return sb.String()
}
