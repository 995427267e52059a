package retrieval

import "strings"

// DefaultChunkSize is the target maximum chunk length in characters.
const DefaultChunkSize = 1000

// SplitText breaks a large text into chunks of at most maxChunkSize
// characters, preferring sentence boundaries and falling back to paragraph
// boundaries for chunks that are still too large. Chunks are trimmed;
// empty chunks are dropped.
func SplitText(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	if len(text) <= maxChunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, sentence := range strings.Split(text, ". ") {
		if current.Len()+len(sentence)+2 > maxChunkSize && current.Len() > 0 {
			appendChunk(&chunks, current.String())
			current.Reset()
			current.WriteString(sentence)
			continue
		}
		if current.Len() > 0 {
			current.WriteString(". ")
		}
		current.WriteString(sentence)
	}
	appendChunk(&chunks, current.String())

	// Sentence splitting can still leave oversized chunks (e.g. tables or
	// run-on text); split those again by paragraph.
	var final []string
	for _, chunk := range chunks {
		if len(chunk) <= maxChunkSize {
			final = append(final, chunk)
			continue
		}
		final = append(final, splitByParagraph(chunk, maxChunkSize)...)
	}
	return final
}

func splitByParagraph(chunk string, maxChunkSize int) []string {
	var out []string
	var current strings.Builder

	for _, paragraph := range strings.Split(chunk, "\n\n") {
		if current.Len()+len(paragraph)+2 > maxChunkSize && current.Len() > 0 {
			appendChunk(&out, current.String())
			current.Reset()
			current.WriteString(paragraph)
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	appendChunk(&out, current.String())
	return out
}

func appendChunk(chunks *[]string, chunk string) {
	if trimmed := strings.TrimSpace(chunk); trimmed != "" {
		*chunks = append(*chunks, trimmed)
	}
}
