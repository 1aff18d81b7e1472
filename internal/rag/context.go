package rag

import (
	"fmt"
	"strings"

	"doc-rag/internal/models"
)

// BuildContext renders chunks as labeled blocks joined by the context
// separator and returns the distinct sources in first-appearance order.
// A source is the filename, or the stored file path when kept blocks from
// different files share that filename.
// With maxChars > 0, lower-ranked blocks that would overflow the budget are
// dropped; the first block is always kept.
func BuildContext(chunks []models.RetrievedChunk, maxChars int) (string, []string) {
	blocks := make([]string, 0, len(chunks))
	kept := make([]models.RetrievedChunk, 0, len(chunks))
	size := 0

	for i, c := range chunks {
		block := fmt.Sprintf("SOURCE:\nFilename: %s\nFilepath: %s\n\nCONTENT:\n%s\n", c.Filename, c.Filepath, c.Content)
		added := len(block)
		if i > 0 {
			added += len(models.ContextSeparator)
		}
		if maxChars > 0 && i > 0 && size+added > maxChars {
			continue
		}
		size += added
		blocks = append(blocks, block)
		kept = append(kept, c)
	}
	return strings.Join(blocks, models.ContextSeparator), sources(kept)
}

func sources(chunks []models.RetrievedChunk) []string {
	paths := map[string]map[string]bool{}
	for _, c := range chunks {
		if paths[c.Filename] == nil {
			paths[c.Filename] = map[string]bool{}
		}
		paths[c.Filename][c.Filepath] = true
	}

	out := []string{}
	seen := map[string]bool{}
	for _, c := range chunks {
		label := c.Filename
		if len(paths[c.Filename]) > 1 {
			label = c.Filepath
		}
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}
