package service

import "strings"

// chunkedParent is one coarse segment plus its fine-grained children, as
// produced by buildHierarchyChunks. Token counts are whitespace-token counts.
type chunkedParent struct {
	Content    string
	TokenCount int
	Children   []chunkedChild
}

type chunkedChild struct {
	Content    string
	TokenCount int
}

// tokenize splits text into whitespace-delimited tokens. The same text
// always yields the same tokens, which keeps chunking deterministic.
func tokenize(text string) []string {
	return strings.Fields(text)
}

// buildHierarchyChunks splits content into parent segments of at most
// parentSize tokens, then splits every parent into child segments of at most
// childSize tokens where consecutive children share overlap tokens. Empty or
// whitespace-only content yields no chunks.
func buildHierarchyChunks(content string, parentSize, childSize, overlap int) []chunkedParent {
	tokens := tokenize(content)
	if len(tokens) == 0 {
		return nil
	}

	var parents []chunkedParent
	for start := 0; start < len(tokens); start += parentSize {
		end := start + parentSize
		if end > len(tokens) {
			end = len(tokens)
		}
		parentTokens := tokens[start:end]

		parents = append(parents, chunkedParent{
			Content:    strings.Join(parentTokens, " "),
			TokenCount: len(parentTokens),
			Children:   buildChildChunks(parentTokens, childSize, overlap),
		})
	}
	return parents
}

// buildChildChunks windows the parent's tokens into child segments. The
// window advances by childSize-overlap so consecutive children share the
// last overlap tokens of their predecessor. A final window that would only
// repeat already-covered tokens is skipped.
func buildChildChunks(parentTokens []string, childSize, overlap int) []chunkedChild {
	if len(parentTokens) == 0 {
		return nil
	}

	step := childSize - overlap
	if step <= 0 {
		step = childSize
	}

	var children []chunkedChild
	covered := 0
	for start := 0; start < len(parentTokens); start += step {
		end := start + childSize
		if end > len(parentTokens) {
			end = len(parentTokens)
		}
		if end <= covered {
			break
		}
		window := parentTokens[start:end]
		children = append(children, chunkedChild{
			Content:    strings.Join(window, " "),
			TokenCount: len(window),
		})
		covered = end
		if end >= len(parentTokens) {
			break
		}
	}
	return children
}
